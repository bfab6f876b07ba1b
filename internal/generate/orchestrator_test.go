package generate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/apply-agent/internal/types"
)

// fakeGenerator returns scripted results and counts calls.
type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	results []fakeResult
}

type fakeResult struct {
	content *types.GeneratedContent
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, _ *types.JobPosting, _ *types.CandidateProfile) (*types.GeneratedContent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	if r.err != nil {
		return nil, r.err
	}
	cp := *r.content
	return &cp, nil
}

func (f *fakeGenerator) Close() error { return nil }

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testJob() *types.JobPosting {
	return &types.JobPosting{Board: "linkedin", ExternalID: "42", Title: "Engineer", Company: "Initech"}
}

func testProfile() *types.CandidateProfile {
	return &types.CandidateProfile{Name: "Ada", Version: 1}
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newTestOrchestrator(gen Generator, opts *Options) *Orchestrator {
	o := NewOrchestrator(gen, NewCache(nil), opts)
	o.sleep = noSleep
	return o
}

func TestGetContentGeneratesOncePerFingerprint(t *testing.T) {
	gen := &fakeGenerator{results: []fakeResult{
		{content: &types.GeneratedContent{ResumeText: "resume", CoverLetter: "cover"}},
	}}
	o := newTestOrchestrator(gen, nil)

	first, err := o.GetContent(context.Background(), testJob(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, "resume", first.ResumeText)
	assert.Equal(t, types.Fingerprint(testJob(), 1), first.Fingerprint)

	second, err := o.GetContent(context.Background(), testJob(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, gen.callCount(), "cached content must not regenerate")
}

func TestGetContentRetriesRetryableKinds(t *testing.T) {
	gen := &fakeGenerator{results: []fakeResult{
		{err: &Error{Kind: KindRateLimited, Message: "slow down"}},
		{err: &Error{Kind: KindTimeout, Message: "deadline"}},
		{content: &types.GeneratedContent{ResumeText: "resume", CoverLetter: "cover"}},
	}}
	o := newTestOrchestrator(gen, &Options{MaxRetries: 2, Timeout: time.Second})

	content, err := o.GetContent(context.Background(), testJob(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, "resume", content.ResumeText)
	assert.Equal(t, 3, gen.callCount())
}

func TestGetContentStopsAfterRetryCap(t *testing.T) {
	gen := &fakeGenerator{results: []fakeResult{
		{err: &Error{Kind: KindRateLimited, Message: "slow down"}},
	}}
	o := newTestOrchestrator(gen, &Options{MaxRetries: 2, Timeout: time.Second})

	_, err := o.GetContent(context.Background(), testJob(), testProfile())
	require.Error(t, err)
	assert.Equal(t, 3, gen.callCount(), "initial call plus two retries")

	genErr := AsError(err)
	require.NotNil(t, genErr)
	assert.Equal(t, KindRateLimited, genErr.Kind)
}

func TestGetContentDoesNotRetryInvalidResponse(t *testing.T) {
	gen := &fakeGenerator{results: []fakeResult{
		{err: &Error{Kind: KindInvalidResponse, Message: "garbage"}},
	}}
	o := newTestOrchestrator(gen, &Options{MaxRetries: 3, Timeout: time.Second})

	_, err := o.GetContent(context.Background(), testJob(), testProfile())
	require.Error(t, err)
	assert.Equal(t, 1, gen.callCount(), "invalid response is not retryable")
}

func TestGetContentConcurrentCallersShareOneGeneration(t *testing.T) {
	gen := &fakeGenerator{results: []fakeResult{
		{content: &types.GeneratedContent{ResumeText: "resume", CoverLetter: "cover"}},
	}}
	// Concurrency 1 serializes workers; the second re-checks the cache after
	// acquiring the semaphore.
	o := newTestOrchestrator(gen, &Options{Timeout: time.Second, Concurrency: 1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.GetContent(context.Background(), testJob(), testProfile())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, gen.callCount())
}

func TestErrorRetryable(t *testing.T) {
	assert.True(t, (&Error{Kind: KindRateLimited}).Retryable())
	assert.True(t, (&Error{Kind: KindTimeout}).Retryable())
	assert.False(t, (&Error{Kind: KindInvalidResponse}).Retryable())
}
