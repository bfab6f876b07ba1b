package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/generate"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/submit"
	"github.com/jonathan/apply-agent/internal/types"
)

// Advance performs exactly one state transition on a record and persists the
// result. Terminal records are left untouched, except a retryable Failed
// record, which re-enters the pipeline at ContentReady.
//
// A non-nil error means the transition could not be recorded (persistence or
// session failure); per-job outcomes are written to the record, not returned.
func (e *Engine) Advance(ctx context.Context, rec *types.ApplicationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch rec.State {
	case types.StateDiscovered:
		return e.advanceFilter(ctx, rec)
	case types.StateFilteredAccepted:
		return e.advanceGenerate(ctx, rec)
	case types.StateFailed:
		return e.advanceRetry(ctx, rec)
	case types.StateContentReady:
		return e.advanceSubmit(ctx, rec)
	}
	return nil
}

// advanceFilter evaluates preferences and records accept or reject.
func (e *Engine) advanceFilter(ctx context.Context, rec *types.ApplicationRecord) error {
	decision := e.filter.Evaluate(&rec.Job, e.profile)
	if decision.Accepted {
		rec.State = types.StateFilteredAccepted
		rec.Reason = ""
	} else {
		rec.State = types.StateFilteredRejected
		rec.Reason = decision.Reason
	}
	return e.store.SaveRecord(ctx, rec)
}

// advanceGenerate produces tailored content for an accepted record. The
// provider is cache-first, so re-entering this step after a retryable failure
// never regenerates content that already exists.
func (e *Engine) advanceGenerate(ctx context.Context, rec *types.ApplicationRecord) error {
	content, err := e.content.GetContent(ctx, &rec.Job, e.profile)
	if err != nil {
		genErr := generate.AsError(err)
		retryable := genErr != nil && genErr.Retryable()
		return e.recordFailure(ctx, rec, types.ReasonGenerationFailure, retryable)
	}

	rec.Fingerprint = content.Fingerprint
	rec.State = types.StateContentReady
	rec.Reason = ""
	return e.store.SaveRecord(ctx, rec)
}

// advanceRetry returns a retryable Failed record to ContentReady. The attempt
// counter was already incremented when the failure was recorded.
func (e *Engine) advanceRetry(ctx context.Context, rec *types.ApplicationRecord) error {
	if !rec.Retryable || rec.Attempts >= e.opts.MaxAttempts {
		return nil
	}
	rec.State = types.StateContentReady
	rec.Reason = ""
	return e.store.SaveRecord(ctx, rec)
}

// advanceSubmit runs one submission attempt. Content is fetched (cache-first)
// and materialized before a quota permit is consumed, so a denial costs
// nothing. The Submitting state is persisted inside the session callback,
// immediately before the first browser action: a crash after that point leaves
// a Submitting row for RunCycle's recovery pass to settle.
func (e *Engine) advanceSubmit(ctx context.Context, rec *types.ApplicationRecord) error {
	content, err := e.content.GetContent(ctx, &rec.Job, e.profile)
	if err != nil {
		genErr := generate.AsError(err)
		retryable := genErr != nil && genErr.Retryable()
		return e.recordFailure(ctx, rec, types.ReasonGenerationFailure, retryable)
	}
	if rec.Fingerprint == "" {
		rec.Fingerprint = content.Fingerprint
	}

	resumePath, coverPath, err := submit.MaterializeContent(e.opts.ContentDir, rec, content)
	if err != nil {
		return err
	}

	_, denial, err := e.permits.TryAcquire(ctx, PermitKind)
	if err != nil {
		return err
	}
	if denial != nil {
		rec.Reason = denial.Reason
		if saveErr := e.store.SaveRecord(ctx, rec); saveErr != nil {
			return saveErr
		}
		return ErrDeferred
	}

	req := &submit.Request{
		Job:        &rec.Job,
		Profile:    e.profile,
		ResumePath: resumePath,
		CoverPath:  coverPath,
	}

	var persistErr error
	submitErr := e.sessions.WithSession(ctx, func(drv browser.Driver) error {
		rec.State = types.StateSubmitting
		if err := e.store.SaveRecord(ctx, rec); err != nil {
			persistErr = err
			return err
		}
		return e.submitter.Submit(ctx, drv, e.sampler, req)
	})
	if persistErr != nil {
		return persistErr
	}

	return e.settleSubmission(ctx, rec, submitErr)
}

// settleSubmission maps a submission outcome onto the record.
func (e *Engine) settleSubmission(ctx context.Context, rec *types.ApplicationRecord, submitErr error) error {
	if submitErr == nil {
		now := time.Now()
		rec.Attempts++
		rec.LastAttemptAt = &now
		rec.SubmittedAt = &now
		rec.State = types.StateSubmitted
		rec.Reason = ""
		rec.Retryable = false
		return e.store.SaveRecord(ctx, rec)
	}

	var fatal *session.FatalError
	if errors.As(submitErr, &fatal) {
		if rec.State == types.StateSubmitting {
			// An attempt ran before the session died; its outcome is unknown.
			// Settle it the same way crash recovery settles Submitting rows.
			rec.Attempts++
			now := time.Now()
			rec.LastAttemptAt = &now
			rec.Retryable = false
			rec.Reason = types.ReasonUnconfirmedSubmission
			rec.State = types.StateFailed
			if err := e.store.SaveRecord(ctx, rec); err != nil {
				return err
			}
		}
		return fatal
	}

	var blocked *submit.BlockDetectedError
	if errors.As(submitErr, &blocked) {
		if err := e.permits.ReportBlock(ctx, PermitKind, e.opts.BlockCooldown); err != nil {
			return err
		}
		return e.recordFailure(ctx, rec, types.ReasonBlockDetected, true)
	}

	var mismatch *submit.StructuralMismatchError
	if errors.As(submitErr, &mismatch) {
		return e.recordFailure(ctx, rec, types.ReasonStructuralMismatch, false)
	}

	return e.recordFailure(ctx, rec, types.ReasonTransient, true)
}

// recordFailure moves a record to Failed. A retryable failure keeps the record
// eligible until the attempt ceiling; hitting the ceiling rewrites the reason
// so the audit trail shows why retrying stopped.
func (e *Engine) recordFailure(ctx context.Context, rec *types.ApplicationRecord, reason string, retryable bool) error {
	now := time.Now()
	rec.Attempts++
	rec.LastAttemptAt = &now
	rec.State = types.StateFailed
	rec.Reason = reason
	rec.Retryable = retryable && rec.Attempts < e.opts.MaxAttempts
	if retryable && !rec.Retryable {
		rec.Reason = types.ReasonMaxAttempts
	}
	return e.store.SaveRecord(ctx, rec)
}
