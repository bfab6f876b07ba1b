// Package sponsor resolves company-level visa sponsorship verdicts from a
// public sponsor registry, with an in-memory cache so the eligibility filter
// never waits on the network.
package sponsor

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/apply-agent/internal/types"
)

// DefaultRegistryURL is the public sponsor-registry search page.
const DefaultRegistryURL = "https://h1bdata.info/index.php"

// DefaultTimeout is the per-lookup HTTP timeout.
const DefaultTimeout = 15 * time.Second

// LookupError represents a registry fetch or parse failure.
type LookupError struct {
	Company string
	Message string
	Cause   error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sponsor lookup failed for %s: %s: %v", e.Company, e.Message, e.Cause)
	}
	return fmt.Sprintf("sponsor lookup failed for %s: %s", e.Company, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// Checker queries the sponsor registry and caches verdicts by company name.
// Lookup answers only from cache; Preload and Resolve do the fetching.
type Checker struct {
	registryURL string
	client      *http.Client
	verbose     bool

	mu    sync.RWMutex
	cache map[string]types.SponsorVerdict
}

// Option configures a Checker.
type Option func(*Checker)

// WithRegistryURL overrides the registry endpoint (used in tests).
func WithRegistryURL(u string) Option {
	return func(c *Checker) { c.registryURL = u }
}

// WithVerbose enables lookup logging.
func WithVerbose(v bool) Option {
	return func(c *Checker) { c.verbose = v }
}

// NewChecker creates a Checker seeded with the well-known large sponsors so
// common companies resolve without any fetch.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		registryURL: DefaultRegistryURL,
		client:      &http.Client{Timeout: DefaultTimeout},
		cache:       make(map[string]types.SponsorVerdict),
	}
	for _, name := range knownSponsors {
		c.cache[name] = types.SponsorYes
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// knownSponsors are companies that file sponsorship petitions every year.
// Seeding them avoids registry round-trips for the most common employers.
var knownSponsors = []string{
	"amazon", "google", "microsoft", "meta", "apple", "ibm", "intel",
	"oracle", "cisco", "qualcomm", "deloitte", "accenture", "capgemini",
	"infosys", "tata consultancy services", "wipro", "cognizant",
	"jpmorgan chase", "goldman sachs", "morgan stanley", "salesforce",
	"nvidia", "adobe", "uber", "lyft", "airbnb", "netflix",
}

// Lookup returns the cached verdict for a company, or Unknown when the
// company has not been resolved yet. It never touches the network.
func (c *Checker) Lookup(company string) types.SponsorVerdict {
	key := normalize(company)
	if key == "" {
		return types.SponsorUnknown
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.cache[key]; ok {
		return v
	}
	return types.SponsorUnknown
}

// Resolve fetches the registry for a company and caches the verdict. A fetch
// failure caches nothing and returns Unknown with the error, so a later cycle
// can retry.
func (c *Checker) Resolve(ctx context.Context, company string) (types.SponsorVerdict, error) {
	key := normalize(company)
	if key == "" {
		return types.SponsorUnknown, nil
	}

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	verdict, err := c.fetchVerdict(ctx, company)
	if err != nil {
		return types.SponsorUnknown, err
	}

	c.mu.Lock()
	c.cache[key] = verdict
	c.mu.Unlock()

	if c.verbose {
		log.Printf("[SPONSOR] %s -> %s", company, verdict)
	}
	return verdict, nil
}

// Preload resolves verdicts for a batch of companies ahead of filtering.
// Individual failures are logged and skipped; preloading is best-effort.
func (c *Checker) Preload(ctx context.Context, companies []string) {
	for _, company := range companies {
		if _, err := c.Resolve(ctx, company); err != nil {
			log.Printf("[SPONSOR] preload failed for %s: %v", company, err)
		}
	}
}

// fetchVerdict queries the registry search page and counts petition rows.
// Any row mentioning the company counts as a Yes; an empty result is a No.
func (c *Checker) fetchVerdict(ctx context.Context, company string) (types.SponsorVerdict, error) {
	q := url.Values{}
	q.Set("em", company)
	reqURL := c.registryURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return types.SponsorUnknown, &LookupError{Company: company, Message: "failed to create request", Cause: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.SponsorUnknown, &LookupError{Company: company, Message: "registry request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return types.SponsorUnknown, &LookupError{Company: company, Message: fmt.Sprintf("registry returned status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return types.SponsorUnknown, &LookupError{Company: company, Message: "failed to parse registry page", Cause: err}
	}

	needle := normalize(company)
	matches := 0
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		employer := normalize(row.Find("td").First().Text())
		if employer != "" && strings.Contains(employer, needle) {
			matches++
		}
	})

	if matches > 0 {
		return types.SponsorYes, nil
	}
	return types.SponsorNo, nil
}

// normalize lowercases and strips common corporate suffixes so registry rows
// match job-board company names.
func normalize(company string) string {
	s := strings.ToLower(strings.TrimSpace(company))
	for _, suffix := range []string{", inc.", ", inc", " inc.", " inc", " llc", " ltd", " corp.", " corp", " corporation", " co."} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}
