// Package feeds turns RSS and Atom documents into normalized entries.
package feeds

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"gridbrief/internal/core"
	"gridbrief/internal/fetch"
)

// ErrNoEntries signals a feed that parsed cleanly but carried nothing usable.
var ErrNoEntries = errors.New("feed contains no usable entries")

// fallbackDateFormats cover feeds whose date strings escape gofeed's own
// parsing. RSS variants first, then a few loose ISO shapes.
var fallbackDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse decodes a feed document and returns its entries in feed order.
// Entries without a title or link are dropped. A feed with zero usable
// entries yields ErrNoEntries.
func Parse(data []byte) ([]core.Entry, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	entries := make([]core.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		entries = append(entries, core.Entry{
			Title:       title,
			URL:         link,
			PublishedAt: entryDate(item),
			Summary:     strings.TrimSpace(item.Description),
			ImageURL:    entryImage(item),
		})
	}
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	return entries, nil
}

// entryDate resolves an item's publication time, preferring the values
// gofeed already parsed and falling back to raw date strings.
func entryDate(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	for _, raw := range []string{item.Published, item.Updated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, format := range fallbackDateFormats {
			if t, err := time.Parse(format, raw); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

func entryImage(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return ""
}

// ContentHash fingerprints an entry for change detection. Extracted body
// text is not part of the hash, so re-extraction never churns it.
func ContentHash(title, url, summary string) string {
	sum := sha256.Sum256([]byte(title + "|" + url + "|" + summary))
	return hex.EncodeToString(sum[:])
}

// Fetcher retrieves and parses remote feeds.
type Fetcher struct {
	client *fetch.Client
}

// NewFetcher wraps a fetch client for feed retrieval.
func NewFetcher(client *fetch.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchEntries downloads the feed at feedURL and returns its entries.
func (f *Fetcher) FetchEntries(ctx context.Context, feedURL string) ([]core.Entry, error) {
	data, err := f.client.FetchFeed(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
