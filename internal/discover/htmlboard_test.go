package discover

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<div class="card">
	<h3 class="title">Senior Go Engineer</h3>
	<h4 class="company">Initech</h4>
	<span class="location">New York, NY</span>
	<a class="link" href="/jobs/view/12345?ref=search">View</a>
</div>
<div class="card">
	<h3 class="title">Platform Engineer</h3>
	<h4 class="company">Globex</h4>
	<span class="location">Remote</span>
	<a class="link" href="/jobs/view/67890">View</a>
</div>
<div class="card">
	<h3 class="title"></h3>
	<a class="link" href="/jobs/view/99999">no title, skipped</a>
</div>
</body></html>`

func testSelectors() Selectors {
	return Selectors{
		Result:   "div.card",
		Title:    "h3.title",
		Company:  "h4.company",
		Location: "span.location",
		Link:     "a.link",
	}
}

func TestHTMLBoardFetchParsesCards(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Go Engineer", r.URL.Query().Get("q"))
		assert.Equal(t, "New York", r.URL.Query().Get("l"))
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	board := NewHTMLBoard("testboard", srv.URL, testSelectors())
	jobs, err := board.Fetch(context.Background(), Query{
		Titles:    []string{"Go Engineer"},
		Locations: []string{"New York"},
	})
	require.NoError(t, err)
	require.Len(t, jobs, 2, "card without title is dropped")

	assert.Equal(t, "Senior Go Engineer", jobs[0].Title)
	assert.Equal(t, "Initech", jobs[0].Company)
	assert.Equal(t, "New York, NY", jobs[0].Location)
	assert.Equal(t, "12345", jobs[0].ExternalID, "id comes from the URL path, query stripped")
	assert.Equal(t, "67890", jobs[1].ExternalID)
}

func TestHTMLBoardFetchHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	board := NewHTMLBoard("testboard", srv.URL, testSelectors())
	jobs, err := board.Fetch(context.Background(), Query{
		Titles:    []string{"a", "b"},
		Locations: []string{"x"},
		Limit:     1,
	})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestHTMLBoardFetchErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	board := NewHTMLBoard("testboard", srv.URL, testSelectors())
	_, err := board.Fetch(context.Background(), Query{Titles: []string{"a"}, Locations: []string{"x"}})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "testboard", fetchErr.Board)
}

func TestExternalID(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"https://example.com/jobs/view/123", "123"},
		{"/jobs/view/456?src=a", "456"},
		{"/jobs/view/789/", "789"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, externalID(tt.href), "externalID(%q)", tt.href)
	}
}
