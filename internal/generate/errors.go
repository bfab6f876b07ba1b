package generate

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a generation failure. The engine maps kinds to
// retryable-vs-terminal application outcomes.
type ErrorKind string

// Generation failure kinds
const (
	// KindRateLimited means the generation service refused the call; retryable.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout means the call exceeded its deadline; retryable.
	KindTimeout ErrorKind = "timeout"
	// KindInvalidResponse means the service answered with an unusable payload.
	KindInvalidResponse ErrorKind = "invalid_response"
)

// Error represents a generation collaborator failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation error (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation error (%s): %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether retrying the call could succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

// AsError extracts a generation *Error from an error chain.
func AsError(err error) *Error {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}
	return nil
}
