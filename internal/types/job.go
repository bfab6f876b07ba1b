// Package types provides type definitions for structured data used throughout the apply-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SponsorVerdict is a company-level classification of willingness to sponsor
// a work-authorization visa.
type SponsorVerdict string

// Sponsor verdict values returned by the sponsor-lookup collaborator
const (
	SponsorYes     SponsorVerdict = "yes"
	SponsorNo      SponsorVerdict = "no"
	SponsorUnknown SponsorVerdict = "unknown"
)

// JobPosting represents a normalized job record shared across boards.
// It is immutable once discovered; (Board, ExternalID) is its identity.
type JobPosting struct {
	Board        string         `json:"board"`
	ExternalID   string         `json:"external_id"`
	Title        string         `json:"title"`
	Company      string         `json:"company"`
	Location     string         `json:"location"`
	Description  string         `json:"description"`
	URL          string         `json:"url"`
	Salary       int            `json:"salary,omitempty"` // annual USD, 0 when unknown
	Sponsorship  SponsorVerdict `json:"sponsorship,omitempty"`
	EasyApply    bool           `json:"easy_apply,omitempty"`
	DiscoveredAt time.Time      `json:"discovered_at"`
}

// Identity returns the dedup key for a posting.
func (j *JobPosting) Identity() string {
	return j.Board + "/" + j.ExternalID
}

// Fingerprint derives the stable content-cache key for a (job, candidate
// version) pair.
func Fingerprint(job *JobPosting, profileVersion int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", job.Board, job.ExternalID, profileVersion))
	return hex.EncodeToString(sum[:])
}
