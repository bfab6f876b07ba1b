package generate

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jonathan/apply-agent/internal/types"
)

// Orchestrator defaults. The retry cap is deliberately low: generation
// retries exist for transient API failure only, and every retry costs money.
const (
	DefaultTimeout     = 90 * time.Second
	DefaultMaxRetries  = 2
	DefaultBackoff     = 5 * time.Second
	DefaultConcurrency = 3
)

// Options configures an Orchestrator.
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration
	Concurrency int64
}

// DefaultOptions returns the orchestrator defaults.
func DefaultOptions() *Options {
	return &Options{
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		Backoff:     DefaultBackoff,
		Concurrency: DefaultConcurrency,
	}
}

// Orchestrator is the content-generation front door: cache first, then the
// generator under a bounded timeout, retry cap, and concurrency limit.
type Orchestrator struct {
	gen   Generator
	cache *Cache
	opts  *Options
	sem   *semaphore.Weighted
	sleep func(context.Context, time.Duration) error
}

// NewOrchestrator creates an orchestrator around a generator and cache.
func NewOrchestrator(gen Generator, cache *Cache, opts *Options) *Orchestrator {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		gen:   gen,
		cache: cache,
		opts:  opts,
		sem:   semaphore.NewWeighted(opts.Concurrency),
		sleep: sleepCtx,
	}
}

// GetContent returns tailored content for (job, profile version), generating
// it at most once per fingerprint. Failures after the retry cap surface as a
// classified *Error.
func (o *Orchestrator) GetContent(ctx context.Context, job *types.JobPosting, profile *types.CandidateProfile) (*types.GeneratedContent, error) {
	fingerprint := types.Fingerprint(job, profile.Version)

	if content, err := o.cache.Get(ctx, fingerprint); err != nil {
		return nil, err
	} else if content != nil {
		return content, nil
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)

	// Another worker may have generated the same fingerprint while we waited
	// on the semaphore.
	if content, err := o.cache.Get(ctx, fingerprint); err != nil {
		return nil, err
	} else if content != nil {
		return content, nil
	}

	content, err := o.generateWithRetry(ctx, job, profile)
	if err != nil {
		return nil, err
	}

	content.Fingerprint = fingerprint
	if err := o.cache.Put(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// generateWithRetry calls the generator under the per-call timeout, retrying
// only retryable kinds up to the cap with linear backoff.
func (o *Orchestrator) generateWithRetry(ctx context.Context, job *types.JobPosting, profile *types.CandidateProfile) (*types.GeneratedContent, error) {
	var lastErr error
	for attempt := 0; attempt <= o.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := o.sleep(ctx, o.opts.Backoff*time.Duration(attempt)); err != nil {
				return nil, lastErr
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
		content, err := o.gen.Generate(callCtx, job, profile)
		cancel()

		if err == nil {
			return content, nil
		}
		lastErr = err

		genErr := AsError(err)
		if genErr == nil || !genErr.Retryable() {
			return nil, err
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
