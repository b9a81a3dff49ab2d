// Package cache keeps merged feeds, individual items and a per-region search
// index in memory, each bounded by TTL and size.
//
// Expiry is lazy: entries are checked when they are read, there is no sweeper.
package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
)

// Options configures a Store. Zero values take the defaults below.
type Options struct {
	FeedTTL     time.Duration // Default: 5m.
	ItemTTL     time.Duration // Default: 90m. Also the region index age window.
	MaxFeedKeys int           // Default: 72.
	MaxItems    int           // Default: 2000. Also the per-region index cap.
	Now         func() time.Time
}

func (o *Options) defaults() {
	if o.FeedTTL <= 0 {
		o.FeedTTL = 5 * time.Minute
	}
	if o.ItemTTL <= 0 {
		o.ItemTTL = 90 * time.Minute
	}
	if o.MaxFeedKeys <= 0 {
		o.MaxFeedKeys = 72
	}
	if o.MaxItems <= 0 {
		o.MaxItems = 2000
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type feedEntry struct {
	items     []news.Item
	expiresAt time.Time
}

type itemEntry struct {
	item      news.Item
	expiresAt time.Time
}

type regionEntry struct {
	item      news.Item
	touchedAt time.Time
}

// Stats is a point-in-time view of the store sizes.
type Stats struct {
	FeedKeys int
	Items    int
	Regions  map[news.Region]int
}

// Store is safe for concurrent use. One mutex guards all three sub-stores.
type Store struct {
	mu      sync.Mutex
	opts    Options
	feeds   *ordered[feedEntry]
	items   *ordered[itemEntry]
	regions map[news.Region]*ordered[regionEntry]
}

func New(opts Options) *Store {
	opts.defaults()
	return &Store{
		opts:    opts,
		feeds:   newOrdered[feedEntry](),
		items:   newOrdered[itemEntry](),
		regions: make(map[news.Region]*ordered[regionEntry]),
	}
}

// MergedFeed returns the cached merged feed for scope. An expired entry is
// removed and reported as a miss.
func (s *Store) MergedFeed(scope news.Scope) ([]news.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.Key()
	e, ok := s.feeds.get(key)
	if !ok {
		return nil, false
	}
	if s.opts.Now().After(e.expiresAt) {
		s.feeds.remove(key)
		return nil, false
	}
	s.feeds.touch(key)
	return slices.Clone(e.items), true
}

// SetMergedFeed replaces the merged feed for scope, caches every item and
// indexes it under its region, then evicts least recently used feed keys.
func (s *Store) SetMergedFeed(scope news.Scope, items []news.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	s.feeds.put(scope.Key(), feedEntry{
		items:     slices.Clone(items),
		expiresAt: now.Add(s.opts.FeedTTL),
	})
	for _, it := range items {
		s.setItemLocked(it, now)
	}
	s.feeds.trim(s.opts.MaxFeedKeys)
}

// Item returns a cached item by id. A hit becomes the most recently used.
func (s *Store) Item(id string) (news.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items.get(id)
	if !ok {
		return news.Item{}, false
	}
	if s.opts.Now().After(e.expiresAt) {
		s.items.remove(id)
		return news.Item{}, false
	}
	s.items.touch(id)
	return e.item, true
}

// SetItem inserts or overwrites an item with a fresh TTL.
func (s *Store) SetItem(it news.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setItemLocked(it, s.opts.Now())
}

func (s *Store) setItemLocked(it news.Item, now time.Time) {
	s.items.put(it.ID, itemEntry{item: it, expiresAt: now.Add(s.opts.ItemTTL)})
	if it.Region != "" {
		s.indexLocked(it, now)
	}
	s.items.trim(s.opts.MaxItems)
}

func (s *Store) indexLocked(it news.Item, now time.Time) {
	idx, ok := s.regions[it.Region]
	if !ok {
		idx = newOrdered[regionEntry]()
		s.regions[it.Region] = idx
	}
	idx.put(it.ID, regionEntry{item: it, touchedAt: now})
	idx.trim(s.opts.MaxItems)
}

// FindInCachedFeeds scans the unexpired merged feeds, oldest key first, for an
// item with the given id. Expired feeds met on the way are evicted. A hit is
// promoted into the item cache.
func (s *Store) FindInCachedFeeds(id string) (news.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Now()
	var (
		found news.Item
		hit   bool
	)
	s.feeds.each(func(key string, e feedEntry) bool {
		if now.After(e.expiresAt) {
			s.feeds.remove(key)
			return true
		}
		for _, it := range e.items {
			if it.ID == id {
				found, hit = it, true
				return false
			}
		}
		return true
	})
	if hit {
		s.setItemLocked(found, now)
	}
	return found, hit
}

// RegionItems returns the items indexed for region that were touched within
// the item TTL, newest publication first. Older entries are evicted.
func (s *Store) RegionItems(region news.Region) []news.Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.regionItemsLocked(region)
}

// HasRegionItems reports whether the region index holds any live item.
func (s *Store) HasRegionItems(region news.Region) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.regionItemsLocked(region)) > 0
}

func (s *Store) regionItemsLocked(region news.Region) []news.Item {
	idx, ok := s.regions[region]
	if !ok {
		return nil
	}

	cutoff := s.opts.Now().Add(-s.opts.ItemTTL)
	out := make([]news.Item, 0, idx.len())
	idx.each(func(key string, e regionEntry) bool {
		if e.touchedAt.Before(cutoff) {
			idx.remove(key)
			return true
		}
		out = append(out, e.item)
		return true
	})
	news.SortByRecency(out)
	return out
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		FeedKeys: s.feeds.len(),
		Items:    s.items.len(),
		Regions:  make(map[news.Region]int, len(s.regions)),
	}
	for r, idx := range s.regions {
		st.Regions[r] = idx.len()
	}
	return st
}
