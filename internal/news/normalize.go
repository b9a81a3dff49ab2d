package news

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/net/html"
)

const (
	maxExcerptRunes = 280
	wordsPerMinute  = 220
	idLength        = 18
	minFeedYear     = 1970
)

// DefaultAggregatorHosts are hosts whose titles carry the publisher as a " - " suffix.
var DefaultAggregatorHosts = []string{"news.google.com"}

var ampersandEntity = regexp.MustCompile(`(?i)&(amp|#0*38|#x0*26);`)

// Canonicalizer turns raw feed entries into canonical items.
// It has no side effects; Now is only read for the publish date fallback.
type Canonicalizer struct {
	AggregatorHosts []string
	Now             func() time.Time
}

// NewCanonicalizer returns a Canonicalizer with the default aggregator hosts.
// A nil now uses time.Now.
func NewCanonicalizer(now func() time.Time) *Canonicalizer {
	if now == nil {
		now = time.Now
	}
	return &Canonicalizer{AggregatorHosts: DefaultAggregatorHosts, Now: now}
}

// Canonicalize converts one raw entry. It reports false when the entry has no
// usable absolute link; nothing else causes rejection.
func (c *Canonicalizer) Canonicalize(raw RawEntry, scope Scope) (Item, bool) {
	link := ""
	for _, candidate := range []string{raw.Link, raw.GUID, raw.ID, raw.URL} {
		if link = normalizeURL(candidate); link != "" {
			break
		}
	}
	if link == "" {
		return Item{}, false
	}

	source, title := c.resolveSource(raw, link)
	text := firstNonEmpty(raw.ContentSnippet, raw.Summary, raw.Description, raw.Content)
	plain := stripMarkup(text)

	return Item{
		ID:          HashLink(link),
		Title:       title,
		Link:        link,
		SourceName:  source,
		PublishedAt: c.resolveDate(raw),
		Author:      firstNonEmpty(raw.Author, raw.Creator, raw.DCCreator),
		Excerpt:     truncateRunes(plain, maxExcerptRunes),
		ImageURL:    resolveImage(raw),
		Category:    scope.Category,
		Region:      scope.Region,
		ReadMinutes: readMinutes(plain),
	}, true
}

// HashLink derives the stable item id from a canonical link.
func HashLink(link string) string {
	sum := sha1.Sum([]byte(link)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:idLength]
}

func (c *Canonicalizer) resolveSource(raw RawEntry, link string) (source, title string) {
	title = firstNonEmpty(raw.Title)
	if title == "" {
		title = "Untitled"
	}

	if c.isAggregator(link) && strings.Contains(title, " - ") {
		parts := strings.Split(title, " - ")
		maybeSource := strings.TrimSpace(parts[len(parts)-1])
		maybeTitle := strings.TrimSpace(strings.Join(parts[:len(parts)-1], " - "))
		if maybeSource != "" && maybeTitle != "" {
			return maybeSource, maybeTitle
		}
	}

	if s := firstNonEmpty(raw.SourceTitle, raw.SourceValue); s != "" {
		return s, title
	}
	return hostLabel(link), title
}

func (c *Canonicalizer) isAggregator(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range c.AggregatorHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (c *Canonicalizer) resolveDate(raw RawEntry) time.Time {
	for _, candidate := range []string{raw.ISODate, raw.PubDate, raw.Updated} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		// dateparse accepts fragments like "Mon," or "1/" and yields year 0
		if t, err := dateparse.ParseAny(candidate); err == nil && t.Year() >= minFeedYear {
			return t.UTC()
		}
	}
	return c.Now().UTC()
}

func resolveImage(raw RawEntry) string {
	for _, group := range [][]string{raw.Enclosures, raw.MediaContent, raw.MediaThumbnail} {
		for _, candidate := range group {
			if u := normalizeURL(candidate); u != "" {
				return u
			}
		}
	}

	markup := strings.Join([]string{raw.Content, raw.Description, raw.Summary, raw.ContentEncoded}, " ")
	if !strings.Contains(strings.ToLower(markup), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		found = normalizeURL(src)
		return found == ""
	})
	return found
}

// normalizeURL returns the canonical form of an absolute http(s) URL, or "".
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(ampersandEntity.ReplaceAllString(raw, "&"))
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// hostLabel makes a display name from a link host: "www.tech-crunch.com" -> "Tech Crunch".
func hostLabel(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "Unknown Source"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	primary, _, _ := strings.Cut(host, ".")
	if primary == "" {
		return host
	}

	words := strings.Split(primary, "-")
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		if size == 0 {
			continue
		}
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// stripMarkup drops tags, decodes entities and collapses whitespace.
func stripMarkup(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		default:
			b.WriteByte(' ')
		}
	}
}

func readMinutes(plain string) int {
	words := len(strings.Fields(plain))
	if words == 0 {
		return 0
	}
	return max(1, int(math.Round(float64(words)/wordsPerMinute)))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
