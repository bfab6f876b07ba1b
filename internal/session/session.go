// Package session owns the lifecycle of the authenticated board session:
// login, health checks, and one re-authentication attempt before surfacing a
// fatal session error.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/apply-agent/internal/browser"
)

// Credentials holds the board login. Storage of these is the caller's
// problem; the supervisor only uses them.
type Credentials struct {
	Username string
	Password string
}

// BoardConfig describes how to log in to one board and how to tell whether
// the session is still authenticated.
type BoardConfig struct {
	LoginURL         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	// AuthMarker is a selector that only exists while logged in.
	AuthMarker string
}

// DefaultLinkedInConfig returns the login flow for LinkedIn's form.
func DefaultLinkedInConfig() *BoardConfig {
	return &BoardConfig{
		LoginURL:         "https://www.linkedin.com/login",
		UsernameSelector: "#username",
		PasswordSelector: "#password",
		SubmitSelector:   "button[type='submit']",
		AuthMarker:       "#global-nav",
	}
}

// InvalidError indicates the session lost authentication (expired login,
// forced logout). The supervisor retries once past this before going fatal.
type InvalidError struct {
	Message string
	Cause   error
}

func (e *InvalidError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("session invalid: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("session invalid: %s", e.Message)
}

func (e *InvalidError) Unwrap() error {
	return e.Cause
}

// FatalError indicates supervision could not restore a usable session. The
// engine maps this to pausing all submissions, not failing records.
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("session unrecoverable: %v", e.Cause)
}

func (e *FatalError) Unwrap() error {
	return e.Cause
}

// Supervisor manages the authenticated session over a browser driver.
type Supervisor struct {
	driver  browser.Driver
	config  *BoardConfig
	creds   Credentials
	verbose bool

	loggedIn bool
}

// NewSupervisor creates a supervisor. The driver is owned by the caller and
// released by the caller; the supervisor only drives it.
func NewSupervisor(driver browser.Driver, config *BoardConfig, creds Credentials, verbose bool) *Supervisor {
	if config == nil {
		config = DefaultLinkedInConfig()
	}
	return &Supervisor{driver: driver, config: config, creds: creds, verbose: verbose}
}

// WithSession ensures an authenticated session, runs fn with the driver, and
// performs exactly one re-login when fn reports an invalidated session. Any
// failure beyond that surfaces as *FatalError.
func (s *Supervisor) WithSession(ctx context.Context, fn func(drv browser.Driver) error) error {
	if err := s.ensureLoggedIn(ctx); err != nil {
		return &FatalError{Cause: err}
	}

	err := fn(s.driver)
	var invalid *InvalidError
	if !errors.As(err, &invalid) {
		return err
	}

	// One re-authentication attempt, then give up.
	if s.verbose {
		log.Printf("[SESSION] session invalidated (%v), re-authenticating once", invalid)
	}
	s.loggedIn = false
	if loginErr := s.ensureLoggedIn(ctx); loginErr != nil {
		return &FatalError{Cause: loginErr}
	}

	err = fn(s.driver)
	if errors.As(err, &invalid) {
		return &FatalError{Cause: invalid}
	}
	return err
}

// Healthy probes the auth marker without side effects.
func (s *Supervisor) Healthy(ctx context.Context) bool {
	if !s.loggedIn {
		return false
	}
	_, err := s.driver.Text(ctx, s.config.AuthMarker)
	return err == nil
}

// ensureLoggedIn logs in if the session is not known-good.
func (s *Supervisor) ensureLoggedIn(ctx context.Context) error {
	if s.loggedIn && s.Healthy(ctx) {
		return nil
	}
	return s.login(ctx)
}

// login drives the board's login form. No pacing here: login is a fixed,
// infrequent flow and the navigate wait dominates.
func (s *Supervisor) login(ctx context.Context) error {
	if s.creds.Username == "" || s.creds.Password == "" {
		return fmt.Errorf("missing credentials")
	}
	if s.verbose {
		log.Printf("[SESSION] logging in at %s", s.config.LoginURL)
	}

	if err := s.driver.Navigate(ctx, s.config.LoginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := s.driver.Type(ctx, s.config.UsernameSelector, s.creds.Username, nil); err != nil {
		return fmt.Errorf("failed to enter username: %w", err)
	}
	if err := s.driver.Type(ctx, s.config.PasswordSelector, s.creds.Password, nil); err != nil {
		return fmt.Errorf("failed to enter password: %w", err)
	}
	if err := s.driver.Click(ctx, s.config.SubmitSelector); err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}

	// Give the post-login redirect a moment before probing.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
	}

	if _, err := s.driver.Text(ctx, s.config.AuthMarker); err != nil {
		return fmt.Errorf("login did not reach an authenticated page: %w", err)
	}
	s.loggedIn = true
	return nil
}
