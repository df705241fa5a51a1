package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gridbrief/internal/core"
	"gridbrief/internal/fetch"
	"gridbrief/internal/logger"
)

const nesoBaseURL = "https://www.neso.energy"

// nesoDateFormats parse listing dates such as "22 Jan 2026".
var nesoDateFormats = []string{
	"2 Jan 2006",
	"2 January 2006",
}

// NESO scrapes the news listing of Great Britain's National Energy System
// Operator, which publishes announcements without a feed.
type NESO struct {
	client  *fetch.Client
	baseURL string
}

// NewNESO builds the NESO news scraper.
func NewNESO(client *fetch.Client) *NESO {
	return &NESO{client: client, baseURL: nesoBaseURL}
}

// Name identifies the scraper in logs and run stats.
func (n *NESO) Name() string { return "NESO News" }

// Scrape walks the paginated news listing. Pagination is ?page=N starting
// at 0 (the first page has no query). An empty or failing page ends the
// walk; entries gathered so far are still returned.
func (n *NESO) Scrape(ctx context.Context, maxPages int) ([]core.Entry, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var entries []core.Entry
	seen := make(map[string]bool)
	for page := 0; page < maxPages; page++ {
		pageURL := n.baseURL + "/news-and-events"
		if page > 0 {
			pageURL = fmt.Sprintf("%s?page=%d", pageURL, page)
		}

		html, err := n.client.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return entries, ctx.Err()
			}
			logger.Warn("news page fetch failed", "scraper", n.Name(), "url", pageURL, "error", err.Error())
			break
		}

		pageEntries, err := n.parseNewsPage(html, seen)
		if err != nil {
			return entries, err
		}
		if len(pageEntries) == 0 {
			break
		}

		for i := range pageEntries {
			if ctx.Err() != nil {
				return entries, ctx.Err()
			}
			pageEntries[i].ImageURL = n.articleImage(ctx, pageEntries[i].URL)
		}
		entries = append(entries, pageEntries...)
	}
	return entries, nil
}

// parseNewsPage extracts article cards from one listing page. Cards whose
// link does not point under /news/ are calendar events and are skipped.
func (n *NESO) parseNewsPage(html []byte, seen map[string]bool) ([]core.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse news page: %w", err)
	}

	var entries []core.Entry
	doc.Find("article.node--type-article").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.article-link").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if !strings.HasPrefix(href, "/news/") {
			return
		}

		fullURL := n.baseURL + href
		if seen[fullURL] {
			return
		}
		seen[fullURL] = true

		title := strings.TrimSpace(link.Find("h3.article-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if len(title) <= 5 {
			return
		}

		entry := core.Entry{
			Title:   title,
			URL:     fullURL,
			Summary: strings.TrimSpace(link.Find("div.article-description").First().Text()),
		}

		// "22 Jan 2026 - 3 min read" carries the date before the dash.
		if raw := strings.TrimSpace(link.Find("p.published-read").First().Text()); raw != "" {
			datePart := raw
			if idx := strings.Index(raw, " - "); idx >= 0 {
				datePart = strings.TrimSpace(raw[:idx])
			}
			entry.PublishedAt = parseNESODate(datePart)
		}

		entries = append(entries, entry)
	})
	return entries, nil
}

// articleImage fetches the article page and pulls its lead image, if any.
// Failures are tolerated: a listing entry without an image is still useful.
func (n *NESO) articleImage(ctx context.Context, articleURL string) string {
	html, err := n.client.Fetch(ctx, articleURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	img := doc.Find("div.field-field-image img").First()
	src, ok := img.Attr("src")
	if !ok || src == "" {
		src, _ = img.Attr("data-src")
	}
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "/") {
		return n.baseURL + src
	}
	return src
}

func parseNESODate(s string) *time.Time {
	for _, format := range nesoDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
