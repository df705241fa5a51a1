// Package extract pulls readable article text, language and lead images
// out of fetched pages.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	readability "github.com/go-shiori/go-readability"

	"gridbrief/internal/fetch"
	"gridbrief/internal/logger"
)

const (
	minContentChars  = 100
	minParagraphLen  = 20
	languageSample   = 1000
	minLanguageChars = 20
)

// skipImagePatterns disqualify fallback images that are chrome, not content.
var skipImagePatterns = []string{"logo", "icon", "avatar", "ad"}

// ExtractError reports a page that could not be fetched for extraction.
type ExtractError struct {
	URL string
	Err error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Result is the outcome of extracting one page. Any field may be empty;
// an empty Text means no usable body was found.
type Result struct {
	Text     string
	Language string
	ImageURL string
}

// FromHTML extracts text, language and lead image from raw page HTML.
// It never fails: pages with no usable body yield a zero Result.
func FromHTML(html []byte, pageURL string) Result {
	var res Result
	res.Text = extractText(html, pageURL)
	res.ImageURL = extractImage(html)
	if res.Text != "" {
		res.Language = DetectLanguage(res.Text)
	}
	return res
}

// extractText tries readability first and falls back to paragraph joining.
func extractText(html []byte, pageURL string) string {
	if text := readabilityText(html, pageURL); text != "" {
		return text
	}
	return paragraphText(html)
}

func readabilityText(html []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(bytes.NewReader(html), parsed)
	if err != nil {
		return ""
	}
	text := collapseLines(article.TextContent)
	if len(text) < minContentChars {
		return ""
	}
	return text
}

// paragraphText joins substantial <p> elements after dropping page chrome.
func paragraphText(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer, header, aside").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if len(text) > minParagraphLen {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, "\n\n")
	if len(text) < minContentChars {
		return ""
	}
	return text
}

var multiSpace = regexp.MustCompile(`[ \t]+`)

// collapseLines normalizes extracted text: trimmed non-empty lines joined
// by blank lines, runs of spaces collapsed.
func collapseLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n\n")
}

// DetectLanguage returns the ISO 639-1 code of the text's language, or ""
// when the sample is too short or detection is unreliable.
func DetectLanguage(text string) string {
	if len(text) < minLanguageChars {
		return ""
	}
	sample := text
	if len(sample) > languageSample {
		sample = sample[:languageSample]
	}
	info := whatlanggo.Detect(sample)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

// extractImage picks a lead image: social-card metadata first, then the
// first absolute in-body image that is not obvious page chrome.
func extractImage(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}

	metaSelectors := []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="article:image"]`,
	}
	for _, sel := range metaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && content != "" {
			return content
		}
	}

	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src == "" || (!strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://")) {
			return true
		}
		lower := strings.ToLower(src)
		for _, skip := range skipImagePatterns {
			if strings.Contains(lower, skip) {
				return true
			}
		}
		found = src
		return false
	})
	return found
}

// Extractor fetches article pages and extracts their content.
type Extractor struct {
	client *fetch.Client
}

// NewExtractor wraps a fetch client for article extraction.
func NewExtractor(client *fetch.Client) *Extractor {
	return &Extractor{client: client}
}

// ExtractArticle fetches a page and extracts its content. Aggregator links
// are resolved to their final article URL first. Fetch failures surface as
// ExtractError; a page with no usable body returns a zero Result and no
// error.
func (e *Extractor) ExtractArticle(ctx context.Context, articleURL string) (Result, error) {
	target := articleURL
	if strings.Contains(fetch.Host(articleURL), "news.google.com") {
		resolved, err := e.client.Resolve(ctx, articleURL)
		if err != nil {
			return Result{}, &ExtractError{URL: articleURL, Err: err}
		}
		if resolved != articleURL {
			logger.Debug("aggregator link resolved", "from", articleURL, "to", resolved)
		}
		target = resolved
	}

	html, err := e.client.Fetch(ctx, target)
	if err != nil {
		return Result{}, &ExtractError{URL: target, Err: err}
	}
	return FromHTML(html, target), nil
}
