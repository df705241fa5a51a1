// Package scrape holds site-specific adapters for sources without feeds.
package scrape

import (
	"context"
	"sort"
	"strings"

	"gridbrief/internal/core"
	"gridbrief/internal/fetch"
)

// Scraper lists articles from a site without a feed. Implementations own
// their pagination and stop on the first empty page.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, maxPages int) ([]core.Entry, error)
}

// Registry maps source locator keys to compiled-in scrapers.
type Registry struct {
	scrapers map[string]Scraper
}

// NewRegistry builds a registry with every built-in scraper registered.
func NewRegistry(client *fetch.Client) *Registry {
	r := &Registry{scrapers: make(map[string]Scraper)}
	r.Register("neso", NewNESO(client))
	return r
}

// Register adds a scraper under a locator key. Keys are case-insensitive.
func (r *Registry) Register(key string, s Scraper) {
	r.scrapers[strings.ToLower(key)] = s
}

// Lookup resolves a locator key to its scraper.
func (r *Registry) Lookup(key string) (Scraper, bool) {
	s, ok := r.scrapers[strings.ToLower(key)]
	return s, ok
}

// Keys returns the registered locator keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.scrapers))
	for k := range r.scrapers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
