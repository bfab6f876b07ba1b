package discover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/apply-agent/internal/types"
)

// DefaultUserAgent is the user agent string for board search requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ApplyAgent/1.0)"

// Selectors maps a board's search-result markup to posting fields. One
// Selectors value per supported board; unknown markup simply yields fewer
// fields, not an error.
type Selectors struct {
	Result      string // container for one result card
	Title       string
	Company     string
	Location    string
	Link        string // anchor carrying the posting URL and id
	Description string
}

// HTMLBoard scrapes a search-results page for one board.
type HTMLBoard struct {
	name      string
	searchURL string // base search endpoint; q and l params are appended
	selectors Selectors
	client    *http.Client
}

// NewHTMLBoard creates a source scraping searchURL with the given selectors.
func NewHTMLBoard(name, searchURL string, selectors Selectors) *HTMLBoard {
	return &HTMLBoard{
		name:      name,
		searchURL: searchURL,
		selectors: selectors,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewLinkedInBoard returns a source for LinkedIn's public job search markup.
func NewLinkedInBoard() *HTMLBoard {
	return NewHTMLBoard("linkedin", "https://www.linkedin.com/jobs/search", Selectors{
		Result:   "div.base-card",
		Title:    "h3.base-search-card__title",
		Company:  "h4.base-search-card__subtitle",
		Location: "span.job-search-card__location",
		Link:     "a.base-card__full-link",
	})
}

// NewIndeedBoard returns a source for Indeed's search markup.
func NewIndeedBoard() *HTMLBoard {
	return NewHTMLBoard("indeed", "https://www.indeed.com/jobs", Selectors{
		Result:   "div.job_seen_beacon",
		Title:    "h2.jobTitle",
		Company:  "span.companyName",
		Location: "div.companyLocation",
		Link:     "h2.jobTitle a",
	})
}

// NewZipRecruiterBoard returns a source for ZipRecruiter's search markup.
func NewZipRecruiterBoard() *HTMLBoard {
	return NewHTMLBoard("ziprecruiter", "https://www.ziprecruiter.com/jobs-search", Selectors{
		Result:   "article.job_result",
		Title:    "h2.job_title",
		Company:  "a.company_name",
		Location: "a.company_location",
		Link:     "h2.job_title a",
	})
}

// Name returns the board name.
func (b *HTMLBoard) Name() string { return b.name }

// Fetch runs one search per (title, location) pair and parses result cards.
// An empty location list searches without a location constraint.
func (b *HTMLBoard) Fetch(ctx context.Context, query Query) ([]types.JobPosting, error) {
	locations := query.Locations
	if len(locations) == 0 {
		locations = []string{""}
	}

	var jobs []types.JobPosting
	for _, title := range query.Titles {
		for _, location := range locations {
			page, err := b.search(ctx, title, location)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, page...)
			if query.Limit > 0 && len(jobs) >= query.Limit {
				return jobs[:query.Limit], nil
			}
		}
	}
	return jobs, nil
}

func (b *HTMLBoard) search(ctx context.Context, title, location string) ([]types.JobPosting, error) {
	params := url.Values{}
	params.Set("q", title)
	params.Set("l", location)
	reqURL := b.searchURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Board: b.name, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &FetchError{Board: b.name, Message: "search request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Board: b.name, Message: fmt.Sprintf("search returned status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &FetchError{Board: b.name, Message: "failed to parse search page", Cause: err}
	}

	var jobs []types.JobPosting
	doc.Find(b.selectors.Result).Each(func(_ int, card *goquery.Selection) {
		job := types.JobPosting{
			Board:    b.name,
			Title:    text(card, b.selectors.Title),
			Company:  text(card, b.selectors.Company),
			Location: text(card, b.selectors.Location),
		}
		if b.selectors.Description != "" {
			job.Description = text(card, b.selectors.Description)
		}
		if href, ok := card.Find(b.selectors.Link).First().Attr("href"); ok {
			job.URL = href
			job.ExternalID = externalID(href)
		}
		if job.Title == "" || job.ExternalID == "" {
			return
		}
		jobs = append(jobs, job)
	})
	return jobs, nil
}

func text(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

// externalID derives a stable id from the posting URL: the last non-empty
// path segment, stripped of query noise.
func externalID(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return strings.TrimSpace(href)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return u.Path
}
