package core

import "time"

// SourceKind identifies how a source's entries are obtained.
type SourceKind string

const (
	SourceRSS       SourceKind = "rss"         // standard RSS/Atom feed polled over HTTP
	SourceScraper   SourceKind = "web_scraper" // compiled-in site adapter keyed by locator
	SourcePaywalled SourceKind = "paywalled"   // feed-only source; content extraction is skipped
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceRSS, SourceScraper, SourcePaywalled:
		return true
	}
	return false
}

// Source represents an ingestion origin (a feed URL or a scraper key).
type Source struct {
	ID        int64      `json:"id"`         // Stable integer identifier
	Name      string     `json:"name"`       // Unique human-readable name (e.g., "NESO")
	Kind      SourceKind `json:"kind"`       // rss, web_scraper or paywalled
	Locator   string     `json:"locator"`    // Feed URL for rss/paywalled; registry key for web_scraper
	Enabled   bool       `json:"enabled"`    // Disabled sources are skipped by the pipeline
	CreatedAt time.Time  `json:"created_at"` // When the source was registered
}

// ArticleMetadata is the closed set of optional article annotations.
// Producers and consumers are all in-repo, so this is a record, not a map.
type ArticleMetadata struct {
	ImageURL string   `json:"image_url,omitempty"` // Lead image selected during extraction
	Regions  []string `json:"regions,omitempty"`   // Non-country regions detected by the tagger (e.g., "EU")
}

// Article represents one canonical story from a source.
type Article struct {
	ID           int64           `json:"id"`                     // Stable integer identifier
	SourceID     int64           `json:"source_id"`              // Owning source (cascade on delete)
	Title        string          `json:"title"`                  // Headline as published
	URL          string          `json:"url"`                    // Canonical URL, unique across the corpus
	PublishedAt  *time.Time      `json:"published_at,omitempty"` // Publication time if the feed carried one
	FetchedAt    time.Time       `json:"fetched_at"`             // When the entry was first seen
	RawSummary   string          `json:"raw_summary,omitempty"`  // Feed-provided summary, unprocessed
	ContentText  string          `json:"content_text,omitempty"` // Extracted main text; sticky once set
	Language     string          `json:"language,omitempty"`     // ISO-639-1 code detected from content
	ContentHash  string          `json:"content_hash"`           // SHA-256 of title|url|summary, change-detection key
	CountryCodes []string        `json:"country_codes,omitempty"` // Up to 3 ISO-3166 alpha-2 codes
	TopicTags    []string        `json:"topic_tags,omitempty"`    // Up to 3 topic identifiers
	Metadata     ArticleMetadata `json:"metadata"`                // Image URL and detected regions
}

// ArticleChunk is the unit of semantic retrieval: a bounded text segment
// carrying denormalized filter columns mirrored from its article.
type ArticleChunk struct {
	ID           int64      `json:"id"`                      // Stable integer identifier
	ArticleID    int64      `json:"article_id"`              // Owning article (cascade on delete)
	ChunkIndex   int        `json:"chunk_index"`             // Dense position starting at 0
	Text         string     `json:"text"`                    // Chunk body, trimmed, never empty
	Embedding    []float32  `json:"-"`                       // Vector of configured dimension; nil until embedded
	CountryCodes []string   `json:"country_codes,omitempty"` // Mirror of the article's codes at write time
	TopicTags    []string   `json:"topic_tags,omitempty"`    // Mirror of the article's tags at write time
	PublishedAt  *time.Time `json:"published_at,omitempty"`  // Mirror of the article's publication time
	CreatedAt    time.Time  `json:"created_at"`              // When the chunk row was written
}

// Entry is a normalized item produced by the feed parser or a site scraper.
type Entry struct {
	Title       string     `json:"title"`                  // Required, non-empty
	URL         string     `json:"url"`                    // Required, absolute
	PublishedAt *time.Time `json:"published_at,omitempty"` // Best-effort publication time
	Summary     string     `json:"summary,omitempty"`      // Short feed summary if present
	ImageURL    string     `json:"image_url,omitempty"`    // Scrapers may resolve a lead image up front
}

// UpsertOutcome reports what an article upsert did.
type UpsertOutcome string

const (
	UpsertInserted  UpsertOutcome = "inserted"  // new URL, row created
	UpsertUpdated   UpsertOutcome = "updated"   // hash mismatch, title/summary refreshed
	UpsertUnchanged UpsertOutcome = "unchanged" // incoming hash equals stored hash
)

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// maxErrorSamples bounds the error detail kept per run; the counter stays accurate.
const maxErrorSamples = 10

// RunStats accumulates per-stage counters over one pipeline invocation.
type RunStats struct {
	SourcesProcessed  int      `json:"sources_processed"`  // Sources attempted, including failed ones
	ArticlesFetched   int      `json:"articles_fetched"`   // Entries seen across all sources
	ArticlesNew       int      `json:"articles_new"`       // Upserts that inserted
	ArticlesUpdated   int      `json:"articles_updated"`   // Upserts that refreshed title/summary
	ArticlesExtracted int      `json:"articles_extracted"` // Articles that gained content text
	ArticlesTagged    int      `json:"articles_tagged"`    // Articles that gained country or topic tags
	ChunksCreated     int      `json:"chunks_created"`     // Chunk rows written
	ChunksEmbedded    int      `json:"chunks_embedded"`    // Chunk rows written with a vector
	Errors            int      `json:"errors"`             // Total error count
	ErrorDetails      []string `json:"error_details"`      // First N error samples (N=10)
	DurationSeconds   float64  `json:"duration_seconds"`   // Wall-clock run duration
}

// AddError records an error, keeping at most ten samples.
func (s *RunStats) AddError(sample string) {
	s.Errors++
	if len(s.ErrorDetails) < maxErrorSamples {
		s.ErrorDetails = append(s.ErrorDetails, sample)
	}
}

// IngestionRun is the audit record of one pipeline invocation.
type IngestionRun struct {
	ID         int64      `json:"id"`                    // Stable integer identifier
	StartedAt  time.Time  `json:"started_at"`            // Run start
	FinishedAt *time.Time `json:"finished_at,omitempty"` // Run end; nil while running
	Status     RunStatus  `json:"status"`                // running, completed or failed
	Stats      RunStats   `json:"stats"`                 // Stage counters and error samples
}

// Brief is a cached generated summary for one country and window.
type Brief struct {
	ID           int64     `json:"id"`            // Stable integer identifier
	CountryCode  string    `json:"country_code"`  // Country the brief covers; empty for global
	Content      string    `json:"content"`       // Markdown brief body
	ArticleCount int       `json:"article_count"` // Articles the brief drew on
	DaysRange    int       `json:"days_range"`    // Window length in days
	GeneratedAt  time.Time `json:"generated_at"`  // When the brief was generated
}

// SearchFilters narrows retrieval and article queries.
type SearchFilters struct {
	Countries []string   `json:"countries,omitempty"` // Match rows whose country_codes intersect
	Topics    []string   `json:"topics,omitempty"`    // Match rows whose topic_tags intersect
	DateFrom  *time.Time `json:"date_from,omitempty"` // Inclusive lower bound on published_at
	DateTo    *time.Time `json:"date_to,omitempty"`   // Inclusive upper bound on published_at
}

// Empty reports whether no filter is set.
func (f SearchFilters) Empty() bool {
	return len(f.Countries) == 0 && len(f.Topics) == 0 && f.DateFrom == nil && f.DateTo == nil
}

// RetrievedChunk is a vector-search hit joined with its article fields by value.
type RetrievedChunk struct {
	ChunkID      int64      `json:"chunk_id"`               // Chunk row id
	ArticleID    int64      `json:"article_id"`             // Owning article id
	Text         string     `json:"text"`                   // Chunk body handed to the answerer
	Similarity   float64    `json:"similarity"`             // 1 - cosine distance to the query
	Title        string     `json:"title"`                  // Article headline
	URL          string     `json:"url"`                    // Article URL
	PublishedAt  *time.Time `json:"published_at,omitempty"` // Article publication time
	CountryCodes []string   `json:"country_codes,omitempty"` // Denormalized codes on the chunk
	TopicTags    []string   `json:"topic_tags,omitempty"`    // Denormalized tags on the chunk
}

// Confidence grades how well retrieved context supports an answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Citation points an answer back at one source article.
type Citation struct {
	ArticleID   int64      `json:"article_id"`             // Cited article id
	Title       string     `json:"title"`                  // Article headline
	URL         string     `json:"url"`                    // Article URL
	PublishedAt *time.Time `json:"published_at,omitempty"` // Article publication time
	Source      string     `json:"source"`                 // Host part of the URL
	ChunkID     int64      `json:"chunk_id"`               // First chunk of this article seen in context
	Similarity  float64    `json:"similarity"`             // Similarity of that chunk
}

// ChatAnswer is the grounded question-answering result.
type ChatAnswer struct {
	Answer         string        `json:"answer"`          // Generated answer text
	Citations      []Citation    `json:"citations"`       // Unique articles behind the context chunks
	Confidence     Confidence    `json:"confidence"`      // high, medium or low
	FiltersApplied SearchFilters `json:"filters_applied"` // Filters after question/hint fusion
	Mode           string        `json:"mode"`            // semantic, country_scoped, keyword or general
}

// BriefArticle is the display metadata attached to a generated brief.
type BriefArticle struct {
	ID          int64      `json:"id"`                     // Article id
	Title       string     `json:"title"`                  // Headline
	URL         string     `json:"url"`                    // Article URL
	PublishedAt *time.Time `json:"published_at,omitempty"` // Publication time
	ImageURL    string     `json:"image_url,omitempty"`    // Lead image if one was extracted
}

// BriefResult is the response of the brief generation path.
type BriefResult struct {
	Brief        string         `json:"brief"`         // Markdown brief body
	ArticleCount int            `json:"article_count"` // Articles the brief drew on
	Articles     []BriefArticle `json:"articles"`      // First five articles for display
	DateRange    string         `json:"date_range"`    // Human-readable window description
}

// TopStory is one ranked entry in the top-stories view.
type TopStory struct {
	Article
	Score float64 `json:"score"` // Recency + source tier + priority keyword score
}

// CountryCount is one row of the per-country article count listing.
type CountryCount struct {
	Code  string `json:"code"`  // ISO-3166 alpha-2 code
	Name  string `json:"name"`  // Display name; falls back to the code
	Count int    `json:"count"` // Articles tagged with the code in the window
}

// ActivityDay is one day of ingestion activity for the stats surface.
type ActivityDay struct {
	Date  string `json:"date"`  // Day in YYYY-MM-DD
	Count int    `json:"count"` // Articles fetched that day
}

// TopicCount is one row of the topic breakdown stats.
type TopicCount struct {
	Topic string `json:"topic"` // Topic identifier
	Name  string `json:"name"`  // Display name
	Count int    `json:"count"` // Articles carrying the tag in the window
}
