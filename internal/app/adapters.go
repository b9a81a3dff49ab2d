package app

import (
	"context"

	"github.com/deusflow/newsdesk/internal/feeds"
	"github.com/deusflow/newsdesk/internal/news"
	"github.com/deusflow/newsdesk/internal/rss"
)

// SourceCatalog lists the feed URLs for a region and category.
type SourceCatalog interface {
	SourcesFor(region news.Region, category news.Category) []string
}

// FeedFetcher fetches and canonicalizes a set of feed URLs.
type FeedFetcher interface {
	FetchAll(ctx context.Context, urls []string, scope news.Scope) rss.Batch
}

var (
	_ SourceCatalog = (*feeds.Catalog)(nil)
	_ FeedFetcher   = (*rss.Fetcher)(nil)
)
