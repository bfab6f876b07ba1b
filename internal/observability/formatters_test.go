package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/apply-agent/internal/types"
)

func TestPrintCycleReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	report := &types.CycleReport{
		Discovered: 12,
		Submitted:  3,
		Rejected:   7,
		Deferred:   1,
		Failed:     1,
		Diagnostics: []types.RecordDiagnostic{
			{Title: "Engineer", Company: "Initech", State: types.StateSubmitted},
			{Title: "Analyst", Company: "Globex", State: types.StateFailed, Reason: types.ReasonBlockDetected},
		},
	}

	p.PrintCycleReport(report)
	output := buf.String()

	assert.Contains(t, output, "CYCLE REPORT")
	assert.Contains(t, output, "Discovered: 12")
	assert.Contains(t, output, "Submitted:  3")
	assert.Contains(t, output, "Initech")
	assert.Contains(t, output, "block_detected")
}

func TestPrintCycleReportFatalAndPaused(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCycleReport(&types.CycleReport{Paused: true, FatalError: "session unrecoverable"})
	output := buf.String()

	assert.Contains(t, output, "paused")
	assert.Contains(t, output, "Halted: session unrecoverable")
}

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	submitted := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	rec := &types.ApplicationRecord{
		JobIdentity: "linkedin/42",
		Job:         types.JobPosting{Title: "Engineer", Company: "Initech"},
		State:       types.StateSubmitted,
		Attempts:    1,
		AdmittedAt:  submitted.Add(-time.Hour),
		SubmittedAt: &submitted,
	}

	p.PrintRecord(rec)
	output := buf.String()

	assert.Contains(t, output, "APPLICATION RECORD")
	assert.Contains(t, output, "linkedin/42")
	assert.Contains(t, output, "submitted")
	assert.Contains(t, output, "2026-08-30 14:30")
}

func TestPrintQueue(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintQueue([]*types.ApplicationRecord{
		{State: types.StateSubmitted},
		{State: types.StateSubmitted},
		{State: types.StateContentReady},
	})
	output := buf.String()

	assert.Contains(t, output, "APPLICATION QUEUE")
	assert.Contains(t, output, "submitted")
	assert.Contains(t, output, "2")

	buf.Reset()
	p.PrintQueue(nil)
	assert.Contains(t, buf.String(), "No records.")
}

func TestNilInputsAreNoOps(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintCycleReport(nil)
	p.PrintRecord(nil)
	assert.Empty(t, buf.String())
}
