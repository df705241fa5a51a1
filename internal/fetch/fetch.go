package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"gridbrief/internal/config"
	"gridbrief/internal/logger"
)

const (
	acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptFeed = "application/rss+xml, application/atom+xml, application/xml, text/xml;q=0.9, */*;q=0.8"

	maxBodyBytes = 20 << 20 // refuse to buffer more than 20 MiB per response

	retryAttempts = 3
	retryBase     = 2 * time.Second
	retryCap      = 10 * time.Second
)

// consentHosts are interstitial hosts that swallow redirect resolution;
// landing on one means the original URL is the best we have.
var consentHosts = map[string]bool{
	"consent.google.com":  true,
	"consent.youtube.com": true,
}

// FetchError reports a failed page or feed retrieval.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	PerHost      int64
	Global       int64
	PerHostEvery time.Duration
}

// Client retrieves feed and page bytes with polite headers, bounded
// concurrency and exponential-backoff retries on transient failures.
type Client struct {
	hc        *http.Client
	ua        string
	gate      *gate
	retryBase time.Duration
	retryCap  time.Duration
}

// NewClient builds a Client from explicit options.
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; gridbrief/1.0)"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Client{
		hc: &http.Client{
			Timeout: opts.Timeout,
		},
		ua:        opts.UserAgent,
		gate:      newGate(opts.Global, opts.PerHost, opts.PerHostEvery),
		retryBase: retryBase,
		retryCap:  retryCap,
	}
}

// FromConfig builds a Client from the fetch section of the configuration,
// with a small same-host pacing interval for politeness.
func FromConfig(cfg config.Fetch) *Client {
	return NewClient(Options{
		UserAgent:    cfg.UserAgent,
		Timeout:      cfg.Timeout,
		PerHost:      int64(cfg.PerHost),
		Global:       int64(cfg.GlobalInFlight),
		PerHostEvery: 200 * time.Millisecond,
	})
}

// Fetch retrieves a page with browser-like Accept headers.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL, acceptHTML)
}

// FetchFeed retrieves a feed document with feed Accept headers.
func (c *Client) FetchFeed(ctx context.Context, rawURL string) ([]byte, error) {
	return c.fetch(ctx, rawURL, acceptFeed)
}

func (c *Client) fetch(ctx context.Context, rawURL, accept string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("invalid url: %w", err)}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	bo.MaxInterval = c.retryCap

	body, err := backoff.Retry(ctx, func() ([]byte, error) {
		return c.attempt(ctx, parsed.Host, rawURL, accept)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(retryAttempts))
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	return body, nil
}

// attempt performs one request under the egress gate. Transient failures
// (network errors, 429, 5xx) return plain errors so the retry loop
// continues; other HTTP rejections are permanent.
func (c *Client) attempt(ctx context.Context, host, rawURL, accept string) ([]byte, error) {
	release, err := c.gate.acquire(ctx, host)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backoff.Permanent(&FetchError{URL: rawURL, Err: err})
	}
	c.setHeaders(req, accept)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, &FetchError{URL: rawURL, Err: err}
		}
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode, Err: errTransientStatus}
	default:
		return nil, backoff.Permanent(&FetchError{URL: rawURL, Status: resp.StatusCode, Err: errRejectedStatus})
	}
}

var (
	errTransientStatus = errors.New("transient status")
	errRejectedStatus  = errors.New("rejected status")
)

func (c *Client) setHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", c.ua)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}

// Resolve follows redirects for aggregator links and returns the final URL.
// Landing on a consent interstitial, or any fetch problem short of context
// cancellation, yields the original URL unchanged: resolution is
// best-effort and never blocks extraction.
func (c *Client) Resolve(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL, nil
	}

	release, err := c.gate.acquire(ctx, parsed.Host)
	if err != nil {
		return rawURL, err
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return rawURL, nil
	}
	c.setHeaders(req, acceptHTML)

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return rawURL, ctx.Err()
		}
		logger.Warn("redirect resolution failed", "url", rawURL, "error", err.Error())
		return rawURL, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	final := resp.Request.URL
	if consentHosts[final.Host] {
		return rawURL, nil
	}
	return final.String(), nil
}

// IsTimeout reports whether err stems from a deadline or network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// Host extracts the lowercase host part of a URL, without port.
func Host(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
