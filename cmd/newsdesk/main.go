package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/deusflow/newsdesk/internal/app"
	"github.com/deusflow/newsdesk/internal/cache"
	"github.com/deusflow/newsdesk/internal/config"
	"github.com/deusflow/newsdesk/internal/feeds"
	"github.com/deusflow/newsdesk/internal/logger"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/ratelimit"
	"github.com/deusflow/newsdesk/internal/retry"
	"github.com/deusflow/newsdesk/internal/rss"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.Debug)

	catalog, err := feeds.Load(cfg.FeedsConfigPath)
	if err != nil {
		log.Error("failed to load feed catalog", "path", cfg.FeedsConfigPath, "error", err)
		os.Exit(1)
	}
	catalog.MaxSources = cfg.MaxSources

	m := metrics.New()
	limiter := ratelimit.NewHostLimiter(cfg.HostRateLimit, cfg.HostBurst)
	fetcher := rss.New(rss.Config{
		Timeout:     cfg.FetchTimeout,
		Concurrency: cfg.FetchConcurrency,
		UserAgent:   cfg.UserAgent,
		Retry: retry.RetryConfig{
			MaxAttempts: cfg.RetryAttempts,
			Delay:       cfg.RetryDelay,
			Backoff:     true,
		},
		Limiter: limiter,
	}, catalog.Canonicalizer(nil), log, m)

	store := cache.New(cache.Options{
		FeedTTL:     cfg.FeedTTL,
		ItemTTL:     cfg.ItemTTL,
		MaxFeedKeys: cfg.MaxFeedKeys,
		MaxItems:    cfg.MaxItems,
	})

	engine := app.New(catalog, fetcher, store, app.Options{
		MaxFeedItems:    cfg.MaxFeedItems,
		CollapseFetches: cfg.CollapseFetches,
		Logger:          log,
		Metrics:         m,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(&cli{
		engine:  engine,
		catalog: catalog,
		metrics: m,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
		out:     os.Stdout,
	})
	if err := root.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
