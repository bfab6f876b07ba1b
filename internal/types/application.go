// Package types provides type definitions for structured data used throughout the apply-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of an ApplicationRecord.
type State string

// Application record states
const (
	StateDiscovered       State = "discovered"
	StateFilteredAccepted State = "filtered_accepted"
	StateFilteredRejected State = "filtered_rejected"
	StateContentReady     State = "content_ready"
	StateSubmitting       State = "submitting"
	StateSubmitted        State = "submitted"
	StateFailed           State = "failed"
	StateSkipped          State = "skipped"
)

// Terminal reports whether a record in this state can never transition again.
func (s State) Terminal() bool {
	switch s {
	case StateFilteredRejected, StateSubmitted, StateFailed, StateSkipped:
		return true
	}
	return false
}

// transitions is the closed set of legal state transitions. Failed appears as
// a source because a retryable failure returns the record to ContentReady;
// the record only rests in Failed once it is terminal.
var transitions = map[State][]State{
	StateDiscovered:       {StateFilteredAccepted, StateFilteredRejected, StateSkipped},
	StateFilteredAccepted: {StateContentReady, StateFailed, StateSkipped},
	StateContentReady:     {StateSubmitting, StateFailed, StateSkipped},
	StateSubmitting:       {StateSubmitted, StateFailed},
	StateFailed:           {StateContentReady},
}

// CanTransitionTo reports whether s -> next is a legal transition.
func (s State) CanTransitionTo(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Reason codes recorded on rejection, skip, or failure
const (
	ReasonSponsorship           = "sponsorship"
	ReasonTitle                 = "title"
	ReasonLocation              = "location"
	ReasonCompanyExcluded       = "company_excluded"
	ReasonKeywordExcluded       = "keyword_excluded"
	ReasonKeywordMissing        = "keyword_missing"
	ReasonSalary                = "salary"
	ReasonStructuralMismatch    = "structural_mismatch"
	ReasonBlockDetected         = "block_detected"
	ReasonGenerationFailure     = "generation_failure"
	ReasonTransient             = "transient"
	ReasonMaxAttempts           = "max_attempts"
	ReasonUnconfirmedSubmission = "unconfirmed_submission"
	ReasonOperatorSkip          = "operator_skip"
)

// ApplicationRecord is the durable audit trail entry for one
// (JobPosting, CandidateProfile) pair. It is created on admission, mutated
// only by the engine, and never deleted.
type ApplicationRecord struct {
	ID             uuid.UUID  `json:"id"`
	JobIdentity    string     `json:"job_identity"`
	ProfileVersion int        `json:"profile_version"`
	Job            JobPosting `json:"job"`
	State          State      `json:"state"`
	Reason         string     `json:"reason,omitempty"`
	Attempts       int        `json:"attempts"`
	Retryable      bool       `json:"retryable"`
	Fingerprint    string     `json:"fingerprint,omitempty"`
	AdmittedAt     time.Time  `json:"admitted_at"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
}
