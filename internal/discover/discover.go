// Package discover produces normalized job postings from configured board
// sources. A source failing a cycle yields zero results for that board; it is
// never fatal to the run.
package discover

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/apply-agent/internal/types"
)

// Source produces one board's postings for a run invocation.
type Source interface {
	Name() string
	Fetch(ctx context.Context, query Query) ([]types.JobPosting, error)
}

// Query carries the search parameters shared by all sources.
type Query struct {
	Titles    []string
	Locations []string
	Limit     int
}

// FetchError represents a per-board fetch failure.
type FetchError struct {
	Board   string
	Message string
	Cause   error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("discovery failed for %s: %s: %v", e.Board, e.Message, e.Cause)
	}
	return fmt.Sprintf("discovery failed for %s: %s", e.Board, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Registry holds the enabled sources in a stable order.
type Registry struct {
	sources []Source
}

// NewRegistry creates a registry over the given sources.
func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

// Add appends a source.
func (r *Registry) Add(src Source) {
	r.sources = append(r.sources, src)
}

// FetchAll queries every source, logging and skipping per-board failures.
// Postings are normalized and deduplicated by identity before returning.
func (r *Registry) FetchAll(ctx context.Context, query Query) []types.JobPosting {
	seen := make(map[string]bool)
	var all []types.JobPosting

	for _, src := range r.sources {
		jobs, err := src.Fetch(ctx, query)
		if err != nil {
			log.Printf("[DISCOVER] %s yielded no results this cycle: %v", src.Name(), err)
			continue
		}
		for _, job := range jobs {
			normalize(&job, src.Name())
			if seen[job.Identity()] {
				continue
			}
			seen[job.Identity()] = true
			all = append(all, job)
		}
	}
	return all
}

// normalize stamps the board name and discovery time on a posting.
func normalize(job *types.JobPosting, board string) {
	if job.Board == "" {
		job.Board = board
	}
	if job.DiscoveredAt.IsZero() {
		job.DiscoveredAt = time.Now()
	}
	if job.Sponsorship == "" {
		job.Sponsorship = types.SponsorUnknown
	}
}
