// Package types provides type definitions for structured data used throughout the apply-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// RecordDiagnostic is a per-record entry in a CycleReport.
type RecordDiagnostic struct {
	JobIdentity string `json:"job_identity"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	State       State  `json:"state"`
	Reason      string `json:"reason,omitempty"`
	Attempts    int    `json:"attempts"`
}

// CycleReport summarizes one run cycle. The run never crashes on a per-job
// error; everything lands here instead.
type CycleReport struct {
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	Discovered  int                `json:"discovered"`
	Submitted   int                `json:"submitted"`
	Failed      int                `json:"failed"`
	Skipped     int                `json:"skipped"`
	Rejected    int                `json:"rejected"`
	Deferred    int                `json:"deferred"`
	Paused      bool               `json:"paused,omitempty"`
	FatalError  string             `json:"fatal_error,omitempty"`
	Diagnostics []RecordDiagnostic `json:"diagnostics,omitempty"`
}

// Add appends a diagnostic for a record and bumps the matching counter.
func (r *CycleReport) Add(rec *ApplicationRecord) {
	r.Diagnostics = append(r.Diagnostics, RecordDiagnostic{
		JobIdentity: rec.JobIdentity,
		Title:       rec.Job.Title,
		Company:     rec.Job.Company,
		State:       rec.State,
		Reason:      rec.Reason,
		Attempts:    rec.Attempts,
	})
	switch rec.State {
	case StateSubmitted:
		r.Submitted++
	case StateFailed:
		r.Failed++
	case StateSkipped:
		r.Skipped++
	case StateFilteredRejected:
		r.Rejected++
	case StateContentReady:
		r.Deferred++
	}
}
