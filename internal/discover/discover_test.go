package discover

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/apply-agent/internal/types"
)

// stubSource returns fixed postings or a fixed error.
type stubSource struct {
	name string
	jobs []types.JobPosting
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(_ context.Context, _ Query) ([]types.JobPosting, error) {
	return s.jobs, s.err
}

func TestFetchAllDeduplicatesByIdentity(t *testing.T) {
	r := NewRegistry(
		&stubSource{name: "linkedin", jobs: []types.JobPosting{
			{Board: "linkedin", ExternalID: "1", Title: "Engineer"},
			{Board: "linkedin", ExternalID: "1", Title: "Engineer (duplicate)"},
			{Board: "linkedin", ExternalID: "2", Title: "Other"},
		}},
	)

	jobs := r.FetchAll(context.Background(), Query{})
	assert.Len(t, jobs, 2)
	assert.Equal(t, "Engineer", jobs[0].Title, "first occurrence wins")
}

func TestFetchAllSkipsFailingSource(t *testing.T) {
	r := NewRegistry(
		&stubSource{name: "linkedin", err: fmt.Errorf("network down")},
		&stubSource{name: "indeed", jobs: []types.JobPosting{
			{Board: "indeed", ExternalID: "7", Title: "Engineer"},
		}},
	)

	jobs := r.FetchAll(context.Background(), Query{})
	assert.Len(t, jobs, 1)
	assert.Equal(t, "indeed", jobs[0].Board)
}

func TestFetchAllNormalizesPostings(t *testing.T) {
	r := NewRegistry(
		&stubSource{name: "ziprecruiter", jobs: []types.JobPosting{
			{ExternalID: "3", Title: "Engineer"},
		}},
	)

	jobs := r.FetchAll(context.Background(), Query{})
	assert.Len(t, jobs, 1)
	assert.Equal(t, "ziprecruiter", jobs[0].Board)
	assert.Equal(t, types.SponsorUnknown, jobs[0].Sponsorship)
	assert.False(t, jobs[0].DiscoveredAt.IsZero())
}

func TestFetchErrorFormatting(t *testing.T) {
	err := &FetchError{Board: "linkedin", Message: "search failed", Cause: fmt.Errorf("timeout")}
	assert.Contains(t, err.Error(), "linkedin")
	assert.Contains(t, err.Error(), "timeout")
	assert.NotNil(t, err.Unwrap())
}
