// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/apply-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 10
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCycleReport outputs a human-readable summary of one run cycle.
func (p *Printer) PrintCycleReport(report *types.CycleReport) {
	if report == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Discovered: %d\n", report.Discovered))
	sb.WriteString(fmt.Sprintf("Submitted:  %d\n", report.Submitted))
	sb.WriteString(fmt.Sprintf("Rejected:   %d\n", report.Rejected))
	sb.WriteString(fmt.Sprintf("Deferred:   %d\n", report.Deferred))
	sb.WriteString(fmt.Sprintf("Failed:     %d\n", report.Failed))
	if report.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("Skipped:    %d\n", report.Skipped))
	}
	if report.Paused {
		sb.WriteString("\nRun paused before completing the cycle.\n")
	}
	if report.FatalError != "" {
		sb.WriteString(fmt.Sprintf("\nHalted: %s\n", report.FatalError))
	}

	if len(report.Diagnostics) > 0 {
		sb.WriteString("\nOutcomes:\n")
		count := min(len(report.Diagnostics), maxItemsToShow)
		for i := 0; i < count; i++ {
			d := report.Diagnostics[i]
			sb.WriteString(fmt.Sprintf("  • %s @ %s: %s", d.Title, d.Company, d.State))
			if d.Reason != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", d.Reason))
			}
			sb.WriteString("\n")
		}
		if len(report.Diagnostics) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(report.Diagnostics)-maxItemsToShow))
		}
	}

	p.printBox("CYCLE REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRecord outputs the audit-trail view of one application record.
func (p *Printer) PrintRecord(rec *types.ApplicationRecord) {
	if rec == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Job:      %s\n", rec.JobIdentity))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", rec.Job.Title))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", rec.Job.Company))
	sb.WriteString(fmt.Sprintf("State:    %s\n", rec.State))
	if rec.Reason != "" {
		sb.WriteString(fmt.Sprintf("Reason:   %s\n", rec.Reason))
	}
	sb.WriteString(fmt.Sprintf("Attempts: %d\n", rec.Attempts))
	sb.WriteString(fmt.Sprintf("Admitted: %s\n", rec.AdmittedAt.Format("2006-01-02 15:04")))
	if rec.SubmittedAt != nil {
		sb.WriteString(fmt.Sprintf("Sent:     %s\n", rec.SubmittedAt.Format("2006-01-02 15:04")))
	}

	p.printBox("APPLICATION RECORD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintQueue outputs a compact count of records grouped by state.
func (p *Printer) PrintQueue(records []*types.ApplicationRecord) {
	if len(records) == 0 {
		p.printBox("APPLICATION QUEUE", "No records.")
		return
	}

	byState := make(map[types.State]int)
	for _, rec := range records {
		byState[rec.State]++
	}

	var sb strings.Builder
	order := []types.State{
		types.StateDiscovered,
		types.StateFilteredAccepted,
		types.StateContentReady,
		types.StateSubmitting,
		types.StateSubmitted,
		types.StateFilteredRejected,
		types.StateFailed,
		types.StateSkipped,
	}
	for _, state := range order {
		if n := byState[state]; n > 0 {
			sb.WriteString(fmt.Sprintf("%-18s %d\n", state, n))
		}
	}

	p.printBox("APPLICATION QUEUE", strings.TrimSuffix(sb.String(), "\n"))
}
