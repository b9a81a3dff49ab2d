// Package app wires the catalog, fetcher and cache into the news engine:
// listing a region/category feed, looking up one article and searching.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/deusflow/newsdesk/internal/cache"
	"github.com/deusflow/newsdesk/internal/logger"
	"github.com/deusflow/newsdesk/internal/metrics"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/rss"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxFeedItems = 60
	SearchLimit         = 60
)

// Categories fetched to warm an empty region index before a search.
var warmCategories = []news.Category{
	news.CategoryTop,
	news.CategoryTechnology,
	news.CategoryBusiness,
}

// Categories probed, in order, when an article lookup only knows the region.
var probeCategories = []news.Category{
	news.CategoryTop,
	news.CategoryTechnology,
	news.CategoryBusiness,
	news.CategoryWorld,
	news.CategoryScience,
	news.CategoryHealth,
}

type Options struct {
	MaxFeedItems int
	// CollapseFetches shares one fetch between concurrent misses of the same key.
	CollapseFetches bool
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
}

// Engine answers news requests from the cache, fetching on miss.
type Engine struct {
	catalog SourceCatalog
	fetcher FeedFetcher
	store   *cache.Store
	opts    Options
	flight  singleflight.Group
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(catalog SourceCatalog, fetcher FeedFetcher, store *cache.Store, opts Options) *Engine {
	if opts.MaxFeedItems <= 0 {
		opts.MaxFeedItems = DefaultMaxFeedItems
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if store == nil {
		store = cache.New(cache.Options{})
	}
	return &Engine{
		catalog: catalog,
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		log:     logger.OrDefault(opts.Logger),
		metrics: opts.Metrics,
	}
}

// Store exposes the engine's cache, mainly for stats.
func (e *Engine) Store() *cache.Store { return e.store }

// ListResult is a listing plus where it came from.
type ListResult struct {
	Items []news.Item
	// Cached is true when no fetch happened.
	Cached bool
	// Batch holds per-source outcomes of the fetch; zero when Cached.
	Batch rss.Batch
}

// Degraded reports whether the listing came from a fetch where every source failed.
func (r ListResult) Degraded() bool {
	return !r.Cached && r.Batch.Degraded()
}

// ListNews returns the merged feed for region and category, newest first.
// Fetch failures degrade to fewer or zero items; it never fails.
func (e *Engine) ListNews(ctx context.Context, region news.Region, category news.Category) []news.Item {
	return e.ListNewsResult(ctx, region, category).Items
}

// ListNewsResult is ListNews with the fetch outcome attached.
func (e *Engine) ListNewsResult(ctx context.Context, region news.Region, category news.Category) ListResult {
	scope := news.Scope{Region: region, Category: category}

	if items, ok := e.store.MergedFeed(scope); ok {
		e.metrics.IncrementCacheHits()
		return ListResult{Items: items, Cached: true}
	}
	e.metrics.IncrementCacheMisses()
	e.log.Debug("feed cache miss", "scope", scope.Key())

	if !e.opts.CollapseFetches {
		return e.refresh(ctx, scope)
	}

	v, _, shared := e.flight.Do(scope.Key(), func() (interface{}, error) {
		return e.refresh(ctx, scope), nil
	})
	res := v.(ListResult)
	if shared {
		res.Items = slices.Clone(res.Items)
	}
	return res
}

func (e *Engine) refresh(ctx context.Context, scope news.Scope) ListResult {
	start := time.Now()

	urls := e.catalog.SourcesFor(scope.Region, scope.Category)
	batch := e.fetcher.FetchAll(ctx, urls, scope)

	merged := news.Merge(batch.Items, e.opts.MaxFeedItems)
	if dups := news.Duplicates(batch.Items); dups > 0 {
		e.metrics.AddDuplicatesMerged(dups)
	}
	e.store.SetMergedFeed(scope, merged)

	e.metrics.RecordProcessingTime(time.Since(start))
	e.metrics.SetLastRun()
	if batch.Degraded() {
		e.metrics.SetError(fmt.Sprintf("all %d sources failed for %s", len(batch.Sources), scope.Key()))
		e.log.Warn("every source failed", "scope", scope.Key(), "sources", len(batch.Sources))
	}

	e.log.Info("feed refreshed",
		"scope", scope.Key(),
		"sources", len(urls),
		"failed", batch.Failed(),
		"items", len(merged),
		"duration", time.Since(start))

	return ListResult{Items: merged, Batch: batch}
}

// Lookup identifies an article, with optional hints for where to fetch it.
type Lookup struct {
	ID       string
	Region   news.Region
	Category news.Category
}

// GetArticle finds an article by id: item cache, then cached feeds, then the
// hinted region and category, then the region's home categories in order.
// Without a region hint it never touches the network.
func (e *Engine) GetArticle(ctx context.Context, l Lookup) (news.Item, bool) {
	if l.ID == "" {
		return news.Item{}, false
	}

	if it, ok := e.store.Item(l.ID); ok {
		e.metrics.IncrementCacheHits()
		return it, true
	}
	if it, ok := e.store.FindInCachedFeeds(l.ID); ok {
		e.metrics.IncrementCacheHits()
		return it, true
	}
	if l.Region == "" {
		return news.Item{}, false
	}

	if l.Category != "" {
		if it, ok := findByID(e.ListNews(ctx, l.Region, l.Category), l.ID); ok {
			return it, true
		}
	}

	for _, c := range probeCategories {
		if it, ok := findByID(e.ListNews(ctx, l.Region, c), l.ID); ok {
			return it, true
		}
	}
	return news.Item{}, false
}

func findByID(items []news.Item, id string) (news.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return news.Item{}, false
}

// Search ranks the region's recently seen items against query. An empty
// region index is warmed first by listing the default categories concurrently.
// A blank query returns nothing and fetches nothing.
func (e *Engine) Search(ctx context.Context, query string, region news.Region) []news.Item {
	if len(news.Terms(query)) == 0 {
		return nil
	}
	e.metrics.IncrementSearches()

	if !e.store.HasRegionItems(region) {
		e.log.Debug("warming region index", "region", region)
		e.warm(ctx, region)
	}

	return news.Rank(e.store.RegionItems(region), query, SearchLimit)
}

func (e *Engine) warm(ctx context.Context, region news.Region) {
	var g errgroup.Group
	for _, c := range warmCategories {
		g.Go(func() error {
			e.ListNews(ctx, region, c)
			return nil
		})
	}
	_ = g.Wait()
}
