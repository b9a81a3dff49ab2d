package news

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Region is a country scope used to select and group feed sources.
type Region string

const (
	RegionUS Region = "US"
	RegionUK Region = "UK"
	RegionDE Region = "DE"
	RegionFR Region = "FR"
	RegionTR Region = "TR"
	RegionIN Region = "IN"
	RegionNG Region = "NG"
	RegionKE Region = "KE"
	RegionBR Region = "BR"
	RegionCA Region = "CA"
	RegionAU Region = "AU"
	RegionJP Region = "JP"
)

// Category is a topical scope used to select feed sources.
type Category string

const (
	CategoryTop        Category = "Top"
	CategoryWorld      Category = "World"
	CategoryTechnology Category = "Technology"
	CategoryBusiness   Category = "Business"
	CategoryScience    Category = "Science"
	CategoryHealth     Category = "Health"
	CategoryFunding    Category = "Funding"
	CategoryStartups   Category = "Startups"
)

var (
	ErrUnknownRegion   = errors.New("unknown region")
	ErrUnknownCategory = errors.New("unknown category")
)

var regionNames = map[Region]string{
	RegionUS: "United States",
	RegionUK: "United Kingdom",
	RegionDE: "Germany",
	RegionFR: "France",
	RegionTR: "Turkiye",
	RegionIN: "India",
	RegionNG: "Nigeria",
	RegionKE: "Kenya",
	RegionBR: "Brazil",
	RegionCA: "Canada",
	RegionAU: "Australia",
	RegionJP: "Japan",
}

var allRegions = []Region{
	RegionUS, RegionUK, RegionDE, RegionFR, RegionTR, RegionIN,
	RegionNG, RegionKE, RegionBR, RegionCA, RegionAU, RegionJP,
}

var allCategories = []Category{
	CategoryTop, CategoryWorld, CategoryTechnology, CategoryBusiness,
	CategoryScience, CategoryHealth, CategoryFunding, CategoryStartups,
}

// HomeCategories are the categories shown on the front page, in display order.
var HomeCategories = []Category{
	CategoryTop, CategoryWorld, CategoryTechnology,
	CategoryBusiness, CategoryScience, CategoryHealth,
}

// Regions returns every supported region in display order.
func Regions() []Region {
	return append([]Region(nil), allRegions...)
}

// Categories returns every supported category in display order.
func Categories() []Category {
	return append([]Category(nil), allCategories...)
}

// ParseRegion resolves a region code case-insensitively.
func ParseRegion(s string) (Region, error) {
	r := Region(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := regionNames[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRegion, s)
	}
	return r, nil
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range allCategories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Name returns the human readable country name.
func (r Region) Name() string {
	if n, ok := regionNames[r]; ok {
		return n
	}
	return string(r)
}

// Label returns the display label of the category.
func (c Category) Label() string {
	if c == CategoryTop {
		return "Top Stories"
	}
	return string(c)
}

// Scope is the (region, category) pair a feed fetch is made for.
type Scope struct {
	Region   Region
	Category Category
}

// Key is the cache key of the scope.
func (s Scope) Key() string {
	return string(s.Region) + ":" + string(s.Category)
}

// Item is one canonical news item.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	SourceName  string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      string    `json:"author,omitempty"`
	Excerpt     string    `json:"excerpt,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Category    Category  `json:"category,omitempty"`
	Region      Region    `json:"country,omitempty"`
	ReadMinutes int       `json:"readTimeMin,omitempty"`
}

// RawEntry is one entry of a parsed feed before canonicalization.
// Field names follow the different feed dialects; any of them may be empty.
type RawEntry struct {
	Title string
	Link  string
	GUID  string
	ID    string
	URL   string

	ISODate string
	PubDate string
	Updated string

	Content        string
	ContentSnippet string
	Summary        string
	Description    string
	ContentEncoded string

	Enclosures     []string
	MediaContent   []string
	MediaThumbnail []string

	Author    string
	Creator   string
	DCCreator string

	SourceTitle string
	SourceValue string
}
