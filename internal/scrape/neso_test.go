package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbrief/internal/fetch"
)

const nesoListingPage = `<html><body>
<article class="node node--type-article">
  <a class="article-link" href="/news/winter-outlook-published">
    <h3 class="article-title">Winter Outlook report published</h3>
    <p class="published-read">22 Jan 2026 - 3 min read</p>
    <div class="article-description">Our assessment of electricity margins for the coming winter.</div>
  </a>
</article>
<article class="node node--type-article">
  <a class="article-link" href="/news/balancing-costs-fall">
    <h3 class="article-title">Balancing costs fall for third month</h3>
    <p class="published-read">20 Jan 2026 - 2 min read</p>
    <div class="article-description">Constraint payments continue their downward trend.</div>
  </a>
</article>
<article class="node node--type-article">
  <a class="article-link" href="/events/stakeholder-webinar">
    <h3 class="article-title">Stakeholder webinar in February</h3>
  </a>
</article>
<article class="node node--type-article">
  <a class="article-link" href="/news/winter-outlook-published">
    <h3 class="article-title">Winter Outlook report published</h3>
  </a>
</article>
</body></html>`

const nesoArticlePage = `<html><body>
<div class="field-field-image"><img src="/sites/default/files/winter.jpg" alt=""></div>
<p>Body text.</p>
</body></html>`

func newNESOFixture(t *testing.T) (*NESO, *httptest.Server, map[string]int) {
	t.Helper()
	hits := make(map[string]int)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path+"?"+r.URL.RawQuery]++
		switch {
		case r.URL.Path == "/news-and-events" && r.URL.Query().Get("page") == "":
			w.Write([]byte(nesoListingPage))
		case r.URL.Path == "/news-and-events":
			w.Write([]byte("<html><body></body></html>"))
		default:
			w.Write([]byte(nesoArticlePage))
		}
	}))
	t.Cleanup(srv.Close)

	n := NewNESO(fetch.NewClient(fetch.Options{Timeout: 5 * time.Second}))
	n.baseURL = srv.URL
	return n, srv, hits
}

func TestNESOScrapeParsesListing(t *testing.T) {
	n, srv, _ := newNESOFixture(t)

	entries, err := n.Scrape(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 2, "event links and duplicate URLs are skipped")

	first := entries[0]
	assert.Equal(t, "Winter Outlook report published", first.Title)
	assert.Equal(t, srv.URL+"/news/winter-outlook-published", first.URL)
	assert.Equal(t, "Our assessment of electricity margins for the coming winter.", first.Summary)
	require.NotNil(t, first.PublishedAt)
	assert.Equal(t, time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	assert.Equal(t, srv.URL+"/sites/default/files/winter.jpg", first.ImageURL, "lead image is absolutized")
}

func TestNESOScrapeStopsOnEmptyPage(t *testing.T) {
	n, _, hits := newNESOFixture(t)

	_, err := n.Scrape(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, hits["/news-and-events?"])
	assert.Equal(t, 1, hits["/news-and-events?page=1"], "pagination stops after the first empty page")
	assert.Zero(t, hits["/news-and-events?page=2"])
}

func TestNESOScrapeSurvivesListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewNESO(fetch.NewClient(fetch.Options{Timeout: 5 * time.Second}))
	n.baseURL = srv.URL

	entries, err := n.Scrape(context.Background(), 2)
	require.NoError(t, err, "listing failures end pagination without erroring the run")
	assert.Empty(t, entries)
}

func TestParseNESODate(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
	}{
		{"22 Jan 2026", timePtr(2026, time.January, 22)},
		{"3 February 2025", timePtr(2025, time.February, 3)},
		{"not a date", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseNESODate(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, got.UTC())
		})
	}
}

func timePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(fetch.NewClient(fetch.Options{}))

	s, ok := r.Lookup("neso")
	require.True(t, ok)
	assert.Equal(t, "NESO News", s.Name())

	s, ok = r.Lookup("NESO")
	require.True(t, ok, "locator keys are case-insensitive")
	assert.Equal(t, "NESO News", s.Name())

	_, ok = r.Lookup("unknown-site")
	assert.False(t, ok)

	assert.Equal(t, []string{"neso"}, r.Keys())
}
