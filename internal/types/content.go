// Package types provides type definitions for structured data used throughout the apply-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// GeneratedContent holds the tailored resume and cover letter variants for one
// (job, candidate version) fingerprint. It is owned by the content cache and
// shared read-only by the orchestrator.
type GeneratedContent struct {
	Fingerprint string    `json:"fingerprint"`
	ResumeText  string    `json:"resume_text"`
	CoverLetter string    `json:"cover_letter"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
