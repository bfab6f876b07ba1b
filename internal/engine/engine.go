// Package engine implements the per-job application state machine. It
// sequences filtering, content generation, paced submission, retry, and
// rate-limit decisions, and owns every ApplicationRecord mutation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/discover"
	"github.com/jonathan/apply-agent/internal/filter"
	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/quota"
	"github.com/jonathan/apply-agent/internal/submit"
	"github.com/jonathan/apply-agent/internal/types"
)

// PermitKind is the quota permit kind for form submissions.
const PermitKind = "submission"

// RecordStore persists application records. *store.DB implements it.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec *types.ApplicationRecord) error
	GetRecord(ctx context.Context, jobIdentity string, profileVersion int) (*types.ApplicationRecord, error)
	ListRecordsByState(ctx context.Context, state types.State) ([]*types.ApplicationRecord, error)
	RecoverInFlight(ctx context.Context) ([]*types.ApplicationRecord, error)
}

// Permits is the quota manager surface the engine consumes.
type Permits interface {
	TryAcquire(ctx context.Context, kind string) (*quota.Permit, *quota.Denial, error)
	ReportBlock(ctx context.Context, kind string, cooldown time.Duration) error
	CoolingDown() bool
}

// ContentProvider produces tailored content, cache-first.
type ContentProvider interface {
	GetContent(ctx context.Context, job *types.JobPosting, profile *types.CandidateProfile) (*types.GeneratedContent, error)
}

// Sessions is the session supervisor surface.
type Sessions interface {
	WithSession(ctx context.Context, fn func(drv browser.Driver) error) error
}

// FormSubmitter runs the board strategy for one submission attempt.
type FormSubmitter interface {
	Submit(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *submit.Request) error
}

// Discoverer produces this cycle's normalized postings.
type Discoverer interface {
	FetchAll(ctx context.Context, query discover.Query) []types.JobPosting
}

// ErrDeferred is returned by Advance when a quota denial defers a submission.
// The record stays ContentReady and is retried on a later cycle.
var ErrDeferred = errors.New("submission deferred by quota")

// ErrPaused is returned by RunCycle when the stop signal was observed before
// the cycle could start.
var ErrPaused = errors.New("engine is paused")

// Options tunes the engine's retry and cooldown policy.
type Options struct {
	// MaxAttempts caps retryable failures per record before terminal Failed.
	MaxAttempts int
	// BlockCooldown is the process-wide cooldown applied on a block signal.
	BlockCooldown time.Duration
	// BlockPauseThreshold pauses the run after this many block detections
	// within one cycle.
	BlockPauseThreshold int
	// ContentDir is where generated documents are materialized for upload.
	ContentDir string
	// GenerationConcurrency bounds parallel content generation.
	GenerationConcurrency int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() *Options {
	return &Options{
		MaxAttempts:           3,
		BlockCooldown:         time.Hour,
		BlockPauseThreshold:   2,
		ContentDir:            "data/content",
		GenerationConcurrency: 3,
	}
}

// Engine is the orchestration core. One engine serves one candidate profile.
type Engine struct {
	store     RecordStore
	permits   Permits
	filter    *filter.Filter
	content   ContentProvider
	sessions  Sessions
	submitter FormSubmitter
	discovery Discoverer
	sampler   *pacing.Sampler
	profile   *types.CandidateProfile
	opts      *Options

	paused atomic.Bool
}

// New wires an engine from its collaborators.
func New(
	store RecordStore,
	permits Permits,
	flt *filter.Filter,
	content ContentProvider,
	sessions Sessions,
	submitter FormSubmitter,
	discovery Discoverer,
	sampler *pacing.Sampler,
	profile *types.CandidateProfile,
	opts *Options,
) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Engine{
		store:     store,
		permits:   permits,
		filter:    flt,
		content:   content,
		sessions:  sessions,
		submitter: submitter,
		discovery: discovery,
		sampler:   sampler,
		profile:   profile,
		opts:      opts,
	}
}

// Pause sets the cooperative stop signal. In-flight browser actions complete;
// no new transition starts after the signal is observed.
func (e *Engine) Pause() { e.paused.Store(true) }

// Resume clears the stop signal.
func (e *Engine) Resume() { e.paused.Store(false) }

// Paused reports the stop signal.
func (e *Engine) Paused() bool { return e.paused.Load() }

// Admit creates the application record for a posting, or returns the existing
// one unchanged. Idempotent by (job identity, profile version).
func (e *Engine) Admit(ctx context.Context, job *types.JobPosting) (*types.ApplicationRecord, error) {
	identity := job.Identity()

	existing, err := e.store.GetRecord(ctx, identity, e.profile.Version)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	rec := &types.ApplicationRecord{
		ID:             uuid.New(),
		JobIdentity:    identity,
		ProfileVersion: e.profile.Version,
		Job:            *job,
		State:          types.StateDiscovered,
		AdmittedAt:     time.Now(),
	}
	if err := e.store.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Skip marks a record skipped by operator decision and withdraws it from the
// queue. Records are only skippable before the submitting step; once the form
// may have been touched, the outcome is settled by the state machine, not the
// operator.
func (e *Engine) Skip(ctx context.Context, jobIdentity string) (*types.ApplicationRecord, error) {
	rec, err := e.store.GetRecord(ctx, jobIdentity, e.profile.Version)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no record for %s", jobIdentity)
	}
	if !rec.State.CanTransitionTo(types.StateSkipped) {
		return nil, fmt.Errorf("cannot skip %s: record is %s", jobIdentity, rec.State)
	}

	rec.State = types.StateSkipped
	rec.Reason = types.ReasonOperatorSkip
	if err := e.store.SaveRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// StatusOf returns the record for a job identity, or (nil, nil) when the job
// was never admitted.
func (e *Engine) StatusOf(ctx context.Context, jobIdentity string) (*types.ApplicationRecord, error) {
	return e.store.GetRecord(ctx, jobIdentity, e.profile.Version)
}
