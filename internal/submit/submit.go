// Package submit drives application forms through the browser driver. Each
// supported board has one strategy over a closed set of known field mappings;
// anything outside that set is a structural mismatch, never a best-effort
// guess.
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/apply-agent/internal/browser"
	"github.com/jonathan/apply-agent/internal/pacing"
	"github.com/jonathan/apply-agent/internal/types"
)

// StructuralMismatchError means the site's form shape is unsupported.
// Terminal by definition: retrying cannot change a structural mismatch.
type StructuralMismatchError struct {
	Board   string
	Missing string
}

func (e *StructuralMismatchError) Error() string {
	return fmt.Sprintf("structural mismatch on %s: expected element %q not found", e.Board, e.Missing)
}

// BlockDetectedError means the board surfaced a challenge or restriction page
// during the attempt.
type BlockDetectedError struct {
	Board string
}

func (e *BlockDetectedError) Error() string {
	return fmt.Sprintf("block signal detected on %s", e.Board)
}

// Request carries everything a strategy needs for one submission attempt.
type Request struct {
	Job        *types.JobPosting
	Profile    *types.CandidateProfile
	ResumePath string
	CoverPath  string // empty when no cover letter file exists
}

// Strategy submits one application on its board.
type Strategy interface {
	Board() string
	Apply(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *Request) error
}

// Submitter selects and runs the strategy for a job's board.
type Submitter struct {
	strategies map[string]Strategy
}

// NewSubmitter registers the built-in board strategies.
func NewSubmitter() *Submitter {
	s := &Submitter{strategies: make(map[string]Strategy)}
	for _, strat := range []Strategy{
		&easyApplyStrategy{},
		&indeedStrategy{},
		&zipRecruiterStrategy{},
	} {
		s.strategies[strat.Board()] = strat
	}
	return s
}

// Register adds or replaces a board strategy.
func (s *Submitter) Register(strat Strategy) {
	s.strategies[strat.Board()] = strat
}

// Submit runs the strategy for the job's board. An unknown board is a
// structural mismatch.
func (s *Submitter) Submit(ctx context.Context, drv browser.Driver, sampler *pacing.Sampler, req *Request) error {
	strat, ok := s.strategies[strings.ToLower(req.Job.Board)]
	if !ok {
		return &StructuralMismatchError{Board: req.Job.Board, Missing: "supported form strategy"}
	}
	return strat.Apply(ctx, drv, sampler, req)
}

// runner wraps a driver with pacing so every externally observable action is
// delayed like a human's.
type runner struct {
	drv     browser.Driver
	sampler *pacing.Sampler
}

func (r *runner) pause(ctx context.Context, class pacing.ActionClass) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.sampler.DelayFor(class)):
		return nil
	}
}

func (r *runner) navigate(ctx context.Context, url string) error {
	if err := r.drv.Navigate(ctx, url); err != nil {
		return err
	}
	return r.pause(ctx, pacing.ActionReview)
}

func (r *runner) click(ctx context.Context, selector string) error {
	if err := r.pause(ctx, pacing.ActionClick); err != nil {
		return err
	}
	return r.drv.Click(ctx, selector)
}

func (r *runner) typeInto(ctx context.Context, selector, text string) error {
	if err := r.pause(ctx, pacing.ActionClick); err != nil {
		return err
	}
	return r.drv.Type(ctx, selector, text, r.sampler.TypingDelays(text))
}

func (r *runner) upload(ctx context.Context, selector, path string) error {
	if err := r.pause(ctx, pacing.ActionUpload); err != nil {
		return err
	}
	return r.drv.Upload(ctx, selector, path)
}

func (r *runner) scroll(ctx context.Context) error {
	// Filler action: a short pause standing in for a scroll gesture.
	return r.pause(ctx, pacing.ActionScroll)
}

// requireVisible waits for a selector that defines the board's expected form
// shape; absence is a structural mismatch unless the wait merely timed out on
// a slow page, which stays retryable.
func (r *runner) requireVisible(ctx context.Context, board, selector string) error {
	err := r.drv.WaitVisible(ctx, selector)
	if err == nil {
		return nil
	}
	var actionErr *browser.ActionError
	if errors.As(err, &actionErr) && actionErr.Timeout {
		// The element may exist on a slow page; probe for a block first so a
		// challenge wall is not misread as slowness.
		if blocked, probeErr := r.drv.DetectBlockSignal(ctx); probeErr == nil && blocked {
			return &BlockDetectedError{Board: board}
		}
		return &StructuralMismatchError{Board: board, Missing: selector}
	}
	return err
}

// confirmOrClassify waits for the post-submit confirmation element. A missing
// confirmation probes for a block signal before reporting failure.
func (r *runner) confirmOrClassify(ctx context.Context, board, selector string) error {
	if err := r.drv.WaitVisible(ctx, selector); err != nil {
		if blocked, probeErr := r.drv.DetectBlockSignal(ctx); probeErr == nil && blocked {
			return &BlockDetectedError{Board: board}
		}
		return fmt.Errorf("no submission confirmation on %s: %w", board, err)
	}
	return nil
}

// fieldStep is one independent form-fill action, jitter-ordered before
// execution.
type fieldStep struct {
	action pacing.Action
	run    func(ctx context.Context) error
}

// runFields executes independent field fills in a pacing-jittered order.
// Dependent steps (uploads, submits) must not be passed here.
func (r *runner) runFields(ctx context.Context, steps []fieldStep) error {
	actions := make([]pacing.Action, len(steps))
	byTarget := make(map[string]fieldStep, len(steps))
	for i, s := range steps {
		actions[i] = s.action
		byTarget[s.action.Target] = s
	}

	for _, a := range r.sampler.OrderActions(actions) {
		if a.Class == pacing.ActionScroll && a.Target == "" {
			if err := r.scroll(ctx); err != nil {
				return err
			}
			continue
		}
		if err := byTarget[a.Target].run(ctx); err != nil {
			return err
		}
	}
	return nil
}
