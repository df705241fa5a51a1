package core

import (
	"fmt"
	"testing"
	"time"
)

func TestSourceKindValid(t *testing.T) {
	valid := []SourceKind{SourceRSS, SourceScraper, SourcePaywalled}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("Expected %q to be valid", k)
		}
	}
	for _, k := range []SourceKind{"", "atom", "RSS", "scraper"} {
		if k.Valid() {
			t.Errorf("Expected %q to be invalid", k)
		}
	}
}

func TestRunStatsAddErrorCapsSamples(t *testing.T) {
	var stats RunStats
	for i := 0; i < 25; i++ {
		stats.AddError(fmt.Sprintf("source %d: boom", i))
	}

	if stats.Errors != 25 {
		t.Errorf("Expected Errors to be 25, got %d", stats.Errors)
	}
	if len(stats.ErrorDetails) != 10 {
		t.Errorf("Expected 10 error samples, got %d", len(stats.ErrorDetails))
	}
	if stats.ErrorDetails[0] != "source 0: boom" {
		t.Errorf("Expected first sample to be kept, got %q", stats.ErrorDetails[0])
	}
	if stats.ErrorDetails[9] != "source 9: boom" {
		t.Errorf("Expected tenth sample to be 'source 9: boom', got %q", stats.ErrorDetails[9])
	}
}

func TestSearchFiltersEmpty(t *testing.T) {
	if !(SearchFilters{}).Empty() {
		t.Error("Expected zero filters to be empty")
	}

	now := time.Now()
	cases := []SearchFilters{
		{Countries: []string{"DE"}},
		{Topics: []string{"renewables_solar"}},
		{DateFrom: &now},
		{DateTo: &now},
	}
	for i, f := range cases {
		if f.Empty() {
			t.Errorf("Expected case %d to be non-empty", i)
		}
	}
}
