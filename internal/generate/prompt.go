package generate

import (
	"fmt"
	"strings"

	"github.com/jonathan/apply-agent/internal/types"
)

// maxDescriptionChars bounds the job description excerpt sent to the model.
const maxDescriptionChars = 6000

// buildPrompt assembles the tailoring prompt from the posting and the
// candidate's emphasis configuration.
func buildPrompt(job *types.JobPosting, profile *types.CandidateProfile) string {
	var sb strings.Builder

	sb.WriteString("You are tailoring application materials for a specific job posting.\n")
	sb.WriteString("Respond with JSON only, shaped as {\"resume_text\": string, \"cover_letter\": string}.\n\n")

	fmt.Fprintf(&sb, "Job title: %s\nCompany: %s\nLocation: %s\n\n", job.Title, job.Company, job.Location)

	desc := job.Description
	if len(desc) > maxDescriptionChars {
		desc = desc[:maxDescriptionChars]
	}
	sb.WriteString("Job description:\n")
	sb.WriteString(desc)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Candidate: %s (%s)\n", profile.Name, profile.Email)

	emphasis := profile.Emphasis
	if len(emphasis.Skills) > 0 {
		fmt.Fprintf(&sb, "Skills to highlight: %s\n", strings.Join(emphasis.Skills, ", "))
	}
	if len(emphasis.Certifications) > 0 {
		fmt.Fprintf(&sb, "Certifications to highlight: %s\n", strings.Join(emphasis.Certifications, ", "))
	}
	if len(emphasis.Projects) > 0 {
		fmt.Fprintf(&sb, "Projects to highlight: %s\n", strings.Join(emphasis.Projects, ", "))
	}
	if len(emphasis.KeyStrengths) > 0 {
		fmt.Fprintf(&sb, "Key strengths for the cover letter: %s\n", strings.Join(emphasis.KeyStrengths, ", "))
	}
	if emphasis.CareerGoals != "" {
		fmt.Fprintf(&sb, "Career goals: %s\n", emphasis.CareerGoals)
	}

	sb.WriteString("\nWrite resume_text as a plain-text resume tailored to this posting, ")
	sb.WriteString("and cover_letter as a concise letter addressed to the company. ")
	sb.WriteString("Do not invent experience the candidate did not claim.\n")

	return sb.String()
}
