package news

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testCanonicalizer() *Canonicalizer {
	return NewCanonicalizer(func() time.Time { return fixedNow })
}

var usTech = Scope{Region: RegionUS, Category: CategoryTechnology}

func TestCanonicalize_RejectsEntryWithoutLink(t *testing.T) {
	c := testCanonicalizer()

	_, ok := c.Canonicalize(RawEntry{Title: "No link here"}, usTech)
	assert.False(t, ok)

	_, ok = c.Canonicalize(RawEntry{Title: "Relative", Link: "/a/b", GUID: "urn:uuid:123"}, usTech)
	assert.False(t, ok, "relative links and non-http guids are not resolvable")
}

func TestCanonicalize_LinkFallbackOrder(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{
		Title: "Fallback",
		GUID:  "urn:uuid:abc",
		URL:   "https://X.example/story?a=1&amp;b=2",
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "https://x.example/story?a=1&b=2", it.Link)

	it, ok = c.Canonicalize(RawEntry{Title: "Bare host", Link: "https://x.example"}, usTech)
	require.True(t, ok)
	assert.Equal(t, "https://x.example/", it.Link)
}

func TestCanonicalize_IDIsDeterministic(t *testing.T) {
	c := testCanonicalizer()
	raw := RawEntry{Title: "Same", Link: "https://x.example/a"}

	a, ok := c.Canonicalize(raw, usTech)
	require.True(t, ok)
	b, ok := c.Canonicalize(raw, Scope{Region: RegionUK, Category: CategoryTop})
	require.True(t, ok)

	assert.Len(t, a.ID, 18)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, HashLink("https://x.example/a"), a.ID)
	assert.NotEqual(t, a.ID, HashLink("https://x.example/b"))
}

func TestCanonicalize_AggregatorTitleSplit(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{
		Title:       "Acme raises $10M - Series A - TechCrunch",
		Link:        "https://news.google.com/rss/articles/CBMiabc",
		SourceTitle: "Ignored",
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "TechCrunch", it.SourceName)
	assert.Equal(t, "Acme raises $10M - Series A", it.Title)
}

func TestCanonicalize_SourceFallbacks(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{
		Title:       "Rates - what next",
		Link:        "https://www.example.com/rates",
		SourceTitle: "Example Daily",
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "Example Daily", it.SourceName)
	assert.Equal(t, "Rates - what next", it.Title, "non-aggregator titles are left intact")

	it, ok = c.Canonicalize(RawEntry{Link: "https://www.tech-crunch.com/x"}, usTech)
	require.True(t, ok)
	assert.Equal(t, "Tech Crunch", it.SourceName)
	assert.Equal(t, "Untitled", it.Title)
}

func TestCanonicalize_Dates(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{Link: "https://x.example/a", ISODate: "2026-02-24T10:00:00Z"}, usTech)
	require.True(t, ok)
	assert.True(t, it.PublishedAt.Equal(time.Date(2026, 2, 24, 10, 0, 0, 0, time.UTC)))

	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/b", PubDate: "Mon, 23 Feb 2026 09:00:00 +0000"}, usTech)
	require.True(t, ok)
	assert.True(t, it.PublishedAt.Equal(time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)))

	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/c", PubDate: "not a date"}, usTech)
	require.True(t, ok, "a bad date never rejects the entry")
	assert.True(t, it.PublishedAt.Equal(fixedNow))

	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/d"}, usTech)
	require.True(t, ok)
	assert.True(t, it.PublishedAt.Equal(fixedNow))

	for _, fragment := range []string{"Mon,", "1/", "1/1/", "12.", "1:"} {
		it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/e", PubDate: fragment}, usTech)
		require.True(t, ok, fragment)
		assert.True(t, it.PublishedAt.Equal(fixedNow), "%q: got %s", fragment, it.PublishedAt)
	}

	it, ok = c.Canonicalize(RawEntry{
		Link:    "https://x.example/f",
		ISODate: "Mon,",
		PubDate: "Mon, 23 Feb 2026 09:00:00 +0000",
	}, usTech)
	require.True(t, ok)
	assert.True(t, it.PublishedAt.Equal(time.Date(2026, 2, 23, 9, 0, 0, 0, time.UTC)),
		"an implausible candidate falls through to the next one")
}

func TestCanonicalize_ExcerptAndReadTime(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{
		Link:        "https://x.example/a",
		Description: "<p>Hello <b>world</b> &amp; friends</p>\n\n<p>again</p>",
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "Hello world & friends again", it.Excerpt)
	assert.Equal(t, 1, it.ReadMinutes)

	long := strings.Repeat("word ", 500)
	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/b", Summary: long, Description: "ignored"}, usTech)
	require.True(t, ok)
	assert.Equal(t, 280, len([]rune(it.Excerpt)))
	assert.True(t, strings.HasPrefix(it.Excerpt, "word word"))
	assert.Equal(t, 2, it.ReadMinutes)

	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/c", Content: "<div><br/></div>"}, usTech)
	require.True(t, ok)
	assert.Empty(t, it.Excerpt)
	assert.Zero(t, it.ReadMinutes)
}

func TestCanonicalize_ImagePriority(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{
		Link:           "https://x.example/a",
		Enclosures:     []string{"not a url", "https://img.example/enclosure.jpg"},
		MediaContent:   []string{"https://img.example/media.jpg"},
		MediaThumbnail: []string{"https://img.example/thumb.jpg"},
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "https://img.example/enclosure.jpg", it.ImageURL)

	it, ok = c.Canonicalize(RawEntry{
		Link:           "https://x.example/b",
		MediaThumbnail: []string{"https://img.example/thumb.jpg"},
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "https://img.example/thumb.jpg", it.ImageURL)

	it, ok = c.Canonicalize(RawEntry{
		Link:           "https://x.example/c",
		Description:    `<p>text</p><img src="/relative.png">`,
		ContentEncoded: `<figure><img alt="x" src='https://img.example/inline.png'></figure>`,
	}, usTech)
	require.True(t, ok)
	assert.Equal(t, "https://img.example/inline.png", it.ImageURL)

	it, ok = c.Canonicalize(RawEntry{Link: "https://x.example/d", Description: "plain"}, usTech)
	require.True(t, ok)
	assert.Empty(t, it.ImageURL)
}

func TestCanonicalize_ContextAndAuthor(t *testing.T) {
	c := testCanonicalizer()

	it, ok := c.Canonicalize(RawEntry{Link: "https://x.example/a", DCCreator: "Jo Writer"}, usTech)
	require.True(t, ok)
	assert.Equal(t, "Jo Writer", it.Author)
	assert.Equal(t, RegionUS, it.Region)
	assert.Equal(t, CategoryTechnology, it.Category)
}

func TestParseRegionAndCategory(t *testing.T) {
	r, err := ParseRegion(" uk ")
	require.NoError(t, err)
	assert.Equal(t, RegionUK, r)
	assert.Equal(t, "United Kingdom", r.Name())

	_, err = ParseRegion("XX")
	assert.ErrorIs(t, err, ErrUnknownRegion)

	c, err := ParseCategory("technology")
	require.NoError(t, err)
	assert.Equal(t, CategoryTechnology, c)
	assert.Equal(t, "Top Stories", CategoryTop.Label())

	_, err = ParseCategory("Gossip")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
