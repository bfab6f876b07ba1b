// Package filter evaluates normalized job postings against candidate
// preferences. Evaluation is deterministic and side-effect-free so it can run
// ahead of expensive content generation.
package filter

import (
	"strings"

	"github.com/jonathan/apply-agent/internal/types"
)

// SponsorLookup resolves a company's sponsorship verdict. Implementations
// must answer from local state; any network fetching happens ahead of
// evaluation (see the sponsor package's Preload).
type SponsorLookup interface {
	Lookup(company string) types.SponsorVerdict
}

// Decision is the outcome of evaluating one posting.
type Decision struct {
	Accepted bool
	Reason   string // reason code when rejected
}

// Filter holds the candidate preferences and the sponsor-lookup collaborator.
type Filter struct {
	sponsors SponsorLookup
}

// New creates a Filter. sponsors may be nil when sponsorship filtering is off.
func New(sponsors SponsorLookup) *Filter {
	return &Filter{sponsors: sponsors}
}

// Evaluate checks a posting against the profile's preference predicates.
// Checks are ordered cheapest-first; the first failing predicate decides the
// reason code.
func (f *Filter) Evaluate(job *types.JobPosting, profile *types.CandidateProfile) Decision {
	prefs := profile.Preferences

	if reason := f.checkSponsorship(job, prefs.Sponsorship); reason != "" {
		return Decision{Reason: reason}
	}

	company := strings.ToLower(job.Company)
	for _, excluded := range prefs.ExcludeCompanies {
		if company == strings.ToLower(excluded) {
			return Decision{Reason: types.ReasonCompanyExcluded}
		}
	}

	if len(prefs.Titles) > 0 && !matchesAny(job.Title, prefs.Titles) {
		return Decision{Reason: types.ReasonTitle}
	}

	if len(prefs.Locations) > 0 && !matchesAny(job.Location, prefs.Locations) {
		return Decision{Reason: types.ReasonLocation}
	}

	haystack := strings.ToLower(job.Title + "\n" + job.Description)
	for _, kw := range prefs.ExcludeKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return Decision{Reason: types.ReasonKeywordExcluded}
		}
	}

	// Required keywords: any single match qualifies the posting.
	if len(prefs.Keywords) > 0 && !matchesAny(haystack, prefs.Keywords) {
		return Decision{Reason: types.ReasonKeywordMissing}
	}

	// Salary filters only apply when the posting discloses compensation.
	if prefs.MinSalary > 0 && job.Salary > 0 && job.Salary < prefs.MinSalary {
		return Decision{Reason: types.ReasonSalary}
	}

	return Decision{Accepted: true}
}

// checkSponsorship returns a reason code when the sponsorship predicate fails.
// An Unknown verdict is non-blocking unless the mode is strict.
func (f *Filter) checkSponsorship(job *types.JobPosting, mode types.SponsorshipMode) string {
	if mode == "" || mode == types.SponsorshipOff {
		return ""
	}

	verdict := job.Sponsorship
	if verdict == "" {
		verdict = types.SponsorUnknown
		if f.sponsors != nil {
			verdict = f.sponsors.Lookup(job.Company)
		}
	}

	switch mode {
	case types.SponsorshipStrict:
		if verdict != types.SponsorYes {
			return types.ReasonSponsorship
		}
	case types.SponsorshipPrefer:
		if verdict == types.SponsorNo {
			return types.ReasonSponsorship
		}
	}
	return ""
}

// matchesAny reports whether value contains any of the patterns,
// case-insensitively. "Remote" patterns match postings with no location.
func matchesAny(value string, patterns []string) bool {
	v := strings.ToLower(value)
	for _, p := range patterns {
		if strings.Contains(v, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
