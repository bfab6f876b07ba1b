package engine

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/apply-agent/internal/discover"
	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/session"
	"github.com/jonathan/apply-agent/internal/types"
)

// RunCycle executes one full pipeline pass: recover stale in-flight records,
// discover and admit postings, filter, generate content concurrently, and
// submit accepted applications one at a time in admission order.
//
// Per-job failures land in records and the report; RunCycle only returns an
// error when persistence fails, the session goes fatally bad, or the context
// is canceled.
func (e *Engine) RunCycle(ctx context.Context, query discover.Query) (*types.CycleReport, error) {
	report := &types.CycleReport{StartedAt: time.Now()}
	defer func() { report.FinishedAt = time.Now() }()

	if e.paused.Load() {
		report.Paused = true
		return report, ErrPaused
	}

	if err := e.recoverInFlight(ctx, report); err != nil {
		return report, err
	}

	work, err := e.collectWork(ctx, query, report)
	if err != nil {
		return report, err
	}

	if err := e.filterPhase(ctx, work); err != nil {
		return report, err
	}
	if err := e.generatePhase(ctx, work); err != nil {
		return report, err
	}
	e.submitPhase(ctx, work, report)

	for _, rec := range work {
		if rec.State == types.StateDiscovered {
			// The stop signal landed before this record was filtered.
			continue
		}
		report.Add(rec)
	}
	return report, nil
}

// recoverInFlight settles Submitting rows left by a crash. The browser action
// may or may not have completed, so the record goes terminal rather than
// risking a duplicate application.
func (e *Engine) recoverInFlight(ctx context.Context, report *types.CycleReport) error {
	stale, err := e.store.RecoverInFlight(ctx)
	if err != nil {
		return err
	}
	for _, rec := range stale {
		log.Printf("[ENGINE] settling interrupted submission for %s", rec.JobIdentity)
		rec.State = types.StateFailed
		rec.Reason = types.ReasonUnconfirmedSubmission
		rec.Retryable = false
		if err := e.store.SaveRecord(ctx, rec); err != nil {
			return err
		}
		report.Add(rec)
	}
	return nil
}

// collectWork merges freshly discovered postings with leftovers from earlier
// cycles, ordered by admission time. Leftovers cover every resumable state:
// records stranded mid-pipeline by an interrupted cycle, deferred ContentReady
// records, and retryable failures.
func (e *Engine) collectWork(ctx context.Context, query discover.Query, report *types.CycleReport) ([]*types.ApplicationRecord, error) {
	seen := make(map[uuid.UUID]bool)
	var work []*types.ApplicationRecord

	add := func(rec *types.ApplicationRecord) {
		if seen[rec.ID] {
			return
		}
		seen[rec.ID] = true
		work = append(work, rec)
	}

	jobs := e.discovery.FetchAll(ctx, query)
	report.Discovered = len(jobs)
	for i := range jobs {
		rec, err := e.Admit(ctx, &jobs[i])
		if err != nil {
			return nil, err
		}
		if rec.State.Terminal() && !(rec.State == types.StateFailed && rec.Retryable) {
			continue
		}
		add(rec)
	}

	// A pause or crash during the filter or generate phase leaves records
	// resting in these states; they re-enter the queue even when discovery no
	// longer returns their postings.
	for _, state := range []types.State{
		types.StateDiscovered,
		types.StateFilteredAccepted,
		types.StateContentReady,
	} {
		leftovers, err := e.store.ListRecordsByState(ctx, state)
		if err != nil {
			return nil, err
		}
		for _, rec := range leftovers {
			add(rec)
		}
	}

	failed, err := e.store.ListRecordsByState(ctx, types.StateFailed)
	if err != nil {
		return nil, err
	}
	for _, rec := range failed {
		if rec.Retryable && rec.Attempts < e.opts.MaxAttempts {
			add(rec)
		}
	}

	sort.SliceStable(work, func(i, j int) bool {
		return work[i].AdmittedAt.Before(work[j].AdmittedAt)
	})
	return work, nil
}

// filterPhase advances every Discovered record through preference evaluation.
func (e *Engine) filterPhase(ctx context.Context, work []*types.ApplicationRecord) error {
	for _, rec := range work {
		if e.stopped(ctx) {
			return nil
		}
		if rec.State != types.StateDiscovered {
			continue
		}
		if err := e.Advance(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// generatePhase produces content for accepted records concurrently. Generation
// is the slow, network-bound step; submissions stay strictly sequential.
func (e *Engine) generatePhase(ctx context.Context, work []*types.ApplicationRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.GenerationConcurrency)

	for _, rec := range work {
		if rec.State != types.StateFilteredAccepted {
			continue
		}
		if e.stopped(ctx) {
			break
		}
		g.Go(func() error {
			return e.Advance(gctx, rec)
		})
	}
	return g.Wait()
}

// submitPhase moves retryable failures back into the queue, then submits
// ContentReady records one at a time in admission order. A fatal session error
// or the block-pause threshold ends the phase; quota denials defer records and
// keep going so the report shows every denial reason.
func (e *Engine) submitPhase(ctx context.Context, work []*types.ApplicationRecord, report *types.CycleReport) {
	for _, rec := range work {
		if rec.State == types.StateFailed && rec.Retryable {
			if err := e.Advance(ctx, rec); err != nil {
				report.FatalError = err.Error()
				return
			}
		}
	}

	blocks := 0
	for _, rec := range work {
		if rec.State != types.StateContentReady {
			continue
		}
		if e.stopped(ctx) {
			report.Paused = true
			return
		}

		err := e.Advance(ctx, rec)
		switch {
		case err == nil:
		case errors.Is(err, ErrDeferred):
			continue
		default:
			var fatal *session.FatalError
			if errors.As(err, &fatal) {
				log.Printf("[ENGINE] session unrecoverable, halting submissions: %v", fatal)
			}
			report.FatalError = err.Error()
			return
		}

		if rec.State == types.StateFailed && rec.Reason == types.ReasonBlockDetected {
			blocks++
			if blocks >= e.opts.BlockPauseThreshold {
				log.Printf("[ENGINE] %d block signals this cycle, pausing run", blocks)
				e.Pause()
				report.Paused = true
				return
			}
		}

		if rec.State == types.StateSubmitted {
			if !e.gap(ctx) {
				report.Paused = true
				return
			}
		}
	}
}

// stopped reports whether the cooperative stop signal or context cancellation
// has been observed.
func (e *Engine) stopped(ctx context.Context) bool {
	return e.paused.Load() || ctx.Err() != nil
}

// gap sleeps the between-submissions pacing delay. Returns false when the
// context was canceled mid-gap.
func (e *Engine) gap(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(e.sampler.DelayFor(pacing.ActionGap)):
		return true
	}
}
