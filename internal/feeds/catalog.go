// Package feeds holds the curated source catalog and builds the ordered list
// of feed URLs to fetch for a region and category.
package feeds

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultMaxSources caps the number of URLs returned by SourcesFor.
const DefaultMaxSources = 18

// Locale is the aggregator locale triple of a region.
type Locale struct {
	HL   string `yaml:"hl"`
	GL   string `yaml:"gl"`
	CEID string `yaml:"ceid"`
}

func (l Locale) query() string {
	return fmt.Sprintf("hl=%s&gl=%s&ceid=%s", l.HL, l.GL, l.CEID)
}

// Aggregator describes the generated headline, topic and search feeds.
type Aggregator struct {
	BaseURL        string   `yaml:"base_url"`
	Hosts          []string `yaml:"hosts"`
	MaxSearchFeeds int      `yaml:"max_search_feeds"`
}

// Catalog is the YAML feed catalog:
//
//	global:
//	  Top:
//	    - https://...
//	regions:
//	  US:
//	    Top: [...]
type Catalog struct {
	MaxSources     int                                       `yaml:"max_sources"`
	Aggregator     Aggregator                                `yaml:"aggregator"`
	Locales        map[news.Region]Locale                    `yaml:"locales"`
	Topics         map[news.Category]string                  `yaml:"topics"`
	SearchKeywords map[news.Category][]string                `yaml:"search_keywords"`
	Global         map[news.Category][]string                `yaml:"global"`
	Regions        map[news.Region]map[news.Category][]string `yaml:"regions"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Load reads a catalog from a YAML file. An empty path yields the default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a YAML catalog and fills defaults.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.MaxSources <= 0 {
		c.MaxSources = DefaultMaxSources
	}
	if c.Aggregator.MaxSearchFeeds < 0 {
		c.Aggregator.MaxSearchFeeds = 0
	}
	c.Aggregator.BaseURL = strings.TrimRight(strings.TrimSpace(c.Aggregator.BaseURL), "/")
	return &c, nil
}

// Canonicalizer returns a canonicalizer that treats the catalog's aggregator
// hosts as aggregators, or the default hosts when the catalog names none.
func (c *Catalog) Canonicalizer(now func() time.Time) *news.Canonicalizer {
	canon := news.NewCanonicalizer(now)
	if len(c.Aggregator.Hosts) > 0 {
		canon.AggregatorHosts = c.Aggregator.Hosts
	}
	return canon
}

// SourcesFor lists the feed URLs for a region and category, highest priority
// first, without duplicates and capped at MaxSources.
func (c *Catalog) SourcesFor(region news.Region, category news.Category) []string {
	limit := c.MaxSources
	if limit <= 0 {
		limit = DefaultMaxSources
	}

	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(urls ...string) {
		for _, u := range urls {
			u = strings.TrimSpace(u)
			if u == "" || len(out) >= limit {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}

	add(c.Regions[region][category]...)
	add(c.Regions[region][news.CategoryTop]...)
	add(c.Global[category]...)
	if category == news.CategoryTop {
		add(c.Global[news.CategoryStartups]...)
	}
	add(c.topicFeed(region, category))
	add(c.searchFeeds(region, category)...)

	return out
}

// topicFeed is the aggregator headline feed for Top and the topic section feed
// otherwise; empty when the category has no topic.
func (c *Catalog) topicFeed(region news.Region, category news.Category) string {
	locale, ok := c.Locales[region]
	if !ok || c.Aggregator.BaseURL == "" {
		return ""
	}
	if category == news.CategoryTop {
		return c.Aggregator.BaseURL + "?" + locale.query()
	}
	topic := strings.TrimSpace(c.Topics[category])
	if topic == "" {
		return ""
	}
	return c.Aggregator.BaseURL + "/headlines/section/topic/" + url.PathEscape(topic) + "?" + locale.query()
}

func (c *Catalog) searchFeeds(region news.Region, category news.Category) []string {
	locale, ok := c.Locales[region]
	if !ok || c.Aggregator.BaseURL == "" {
		return nil
	}

	var out []string
	for _, kw := range c.SearchKeywords[category] {
		if len(out) >= c.Aggregator.MaxSearchFeeds {
			break
		}
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, c.Aggregator.BaseURL+"/search?q="+url.QueryEscape(kw)+"&"+locale.query())
	}
	return out
}
