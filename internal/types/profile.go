// Package types provides type definitions for structured data used throughout the apply-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// SponsorshipMode controls how the eligibility filter treats the sponsorship
// verdict for a company.
type SponsorshipMode string

// Sponsorship filter modes
const (
	// SponsorshipOff disables sponsorship filtering entirely.
	SponsorshipOff SponsorshipMode = "off"
	// SponsorshipPrefer rejects companies known not to sponsor; Unknown passes.
	SponsorshipPrefer SponsorshipMode = "prefer"
	// SponsorshipStrict only accepts companies with a Yes verdict.
	SponsorshipStrict SponsorshipMode = "strict"
)

// CandidateProfile holds the caller-owned candidate identity and preferences.
// The core treats it as read-only. Version increments whenever the resume
// source or emphasis changes, invalidating cached generated content.
type CandidateProfile struct {
	Name        string      `json:"name"`
	Email       string      `json:"email"`
	Phone       string      `json:"phone"`
	LinkedIn    string      `json:"linkedin,omitempty"`
	ResumePath  string      `json:"resume_path"`
	Version     int         `json:"version"`
	Preferences Preferences `json:"preferences"`
	Emphasis    Emphasis    `json:"emphasis"`
}

// Preferences are the predicates the eligibility filter evaluates.
type Preferences struct {
	Titles           []string        `json:"titles"`
	Locations        []string        `json:"locations"`
	Keywords         []string        `json:"keywords,omitempty"`
	ExcludeKeywords  []string        `json:"exclude_keywords,omitempty"`
	ExcludeCompanies []string        `json:"exclude_companies,omitempty"`
	MinSalary        int             `json:"min_salary,omitempty"`
	Sponsorship      SponsorshipMode `json:"sponsorship,omitempty"`
}

// Emphasis feeds the generation prompts: skills, certifications, and projects
// to highlight, plus cover-letter framing.
type Emphasis struct {
	Skills         []string `json:"skills,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Projects       []string `json:"projects,omitempty"`
	KeyStrengths   []string `json:"key_strengths,omitempty"`
	CareerGoals    string   `json:"career_goals,omitempty"`
}
