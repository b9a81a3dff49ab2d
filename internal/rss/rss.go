// Package rss fetches feed sources concurrently and canonicalizes their entries.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/logger"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/deusflow/newsdesk/internal/retry"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"

// Config configures the fetcher.
type Config struct {
	Timeout     time.Duration // per source URL. Default: 12s.
	Concurrency int           // simultaneous source fetches. Default: 16.
	UserAgent   string
	Retry       retry.RetryConfig
	// Limiter throttles requests per host; nil means unlimited.
	Limiter *ratelimit.HostLimiter
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 12 * time.Second
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 16
	}
	if c.UserAgent == "" {
		c.UserAgent = "newsdesk/1.0"
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 1
	}
}

// SourceResult is the outcome of one source URL.
type SourceResult struct {
	URL     string
	Items   int
	Dropped int
	Err     error
}

// Batch is the combined outcome of a fan-out.
type Batch struct {
	Items   []news.Item
	Sources []SourceResult
}

// Failed counts the sources that contributed nothing because of an error.
func (b Batch) Failed() int {
	n := 0
	for _, s := range b.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Degraded reports whether every source failed.
func (b Batch) Degraded() bool {
	return len(b.Sources) > 0 && b.Failed() == len(b.Sources)
}

// Fetcher retrieves and canonicalizes feeds.
type Fetcher struct {
	client  *resty.Client
	canon   *news.Canonicalizer
	config  Config
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Fetcher. A nil canonicalizer, logger or metrics gets a default.
func New(cfg Config, canon *news.Canonicalizer, log *slog.Logger, m *metrics.Metrics) *Fetcher {
	cfg.defaults()
	if canon == nil {
		canon = news.NewCanonicalizer(nil)
	}
	if m == nil {
		m = metrics.New()
	}
	log = logger.OrDefault(log)

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", acceptHeader).
		SetLogger(restyLogger{log: log})

	return &Fetcher{client: client, canon: canon, config: cfg, log: log, metrics: m}
}

// FetchAll fetches every URL concurrently, each under its own timeout, and
// returns the canonical items in URL order, then entry order. Failing sources
// contribute nothing. Cancelling ctx does not stop fetches already started.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, scope news.Scope) Batch {
	ctx = context.WithoutCancel(ctx)

	results := make([]SourceResult, len(urls))
	perURL := make([][]news.Item, len(urls))

	var g errgroup.Group
	g.SetLimit(f.config.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			items, dropped, err := f.fetchSource(ctx, u, scope)
			perURL[i] = items
			results[i] = SourceResult{URL: u, Items: len(items), Dropped: dropped, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, items := range perURL {
		total += len(items)
	}
	batch := Batch{Items: make([]news.Item, 0, total), Sources: results}
	for _, items := range perURL {
		batch.Items = append(batch.Items, items...)
	}

	f.log.Debug("fan-out settled",
		"scope", scope.Key(),
		"sources", len(urls),
		"failed", batch.Failed(),
		"items", len(batch.Items))
	return batch
}

func (f *Fetcher) fetchSource(ctx context.Context, url string, scope news.Scope) ([]news.Item, int, error) {
	ctx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	var entries []news.RawEntry
	err := retry.WithRetry(ctx, f.config.Retry, func(ctx context.Context) error {
		body, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		entries, err = ParseEntries(body)
		if err != nil {
			return retry.Permanent(err)
		}
		return nil
	})
	if err != nil {
		f.metrics.IncrementFeedsFailed()
		f.log.Warn("feed fetch failed", "url", url, "scope", scope.Key(), "error", err)
		return nil, 0, err
	}

	items := make([]news.Item, 0, len(entries))
	for _, e := range entries {
		if it, ok := f.canon.Canonicalize(e, scope); ok {
			items = append(items, it)
		}
	}
	dropped := len(entries) - len(items)

	f.metrics.IncrementFeedsFetched()
	if dropped > 0 {
		f.metrics.AddEntriesDropped(dropped)
	}
	f.log.Debug("feed loaded", "url", url, "items", len(items), "dropped", dropped)
	return items, dropped, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if err := f.config.Limiter.Wait(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 300 {
		err := fmt.Errorf("status %d body: %s", code, responseSnippet(resp.Body()))
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return resp.Body(), nil
}

func responseSnippet(body []byte) string {
	const maxLen = 256
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// restyLogger routes resty's own messages to slog.
type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Debug("resty", "error", fmt.Sprintf(format, v...))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Debug("resty", "warn", fmt.Sprintf(format, v...))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug("resty", "debug", fmt.Sprintf(format, v...))
}
