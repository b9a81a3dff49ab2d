package rss

import (
	"bytes"
	"fmt"
	"time"

	"github.com/deusflow/newsdesk/internal/news"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	gorss "github.com/mmcdole/gofeed/rss"
)

// ParseEntries decodes an RSS, Atom or JSON feed document into raw entries.
// RSS goes through gofeed's RSS parser so <source>, <guid> and the enclosure
// stay visible; other formats use the universal parser.
func ParseEntries(body []byte) ([]news.RawEntry, error) {
	if gofeed.DetectFeedType(bytes.NewReader(body)) == gofeed.FeedTypeRSS {
		fp := &gorss.Parser{}
		feed, err := fp.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse rss: %w", err)
		}
		entries := make([]news.RawEntry, 0, len(feed.Items))
		for _, it := range feed.Items {
			if it != nil {
				entries = append(entries, fromRSSItem(it))
			}
		}
		return entries, nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]news.RawEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it != nil {
			entries = append(entries, fromItem(it))
		}
	}
	return entries, nil
}

func fromRSSItem(it *gorss.Item) news.RawEntry {
	e := news.RawEntry{
		Title:       it.Title,
		Link:        it.Link,
		PubDate:     it.PubDate,
		Description: it.Description,
		Content:     it.Content, // content:encoded
		Author:      it.Author,
	}
	if it.PubDateParsed != nil {
		e.ISODate = it.PubDateParsed.UTC().Format(time.RFC3339)
	}
	if it.GUID != nil {
		e.GUID = it.GUID.Value
	}
	if it.Enclosure != nil {
		e.Enclosures = append(e.Enclosures, it.Enclosure.URL)
	}
	if it.Source != nil {
		e.SourceTitle = it.Source.Title
		e.SourceValue = it.Source.URL
	}
	if it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0 {
		e.DCCreator = it.DublinCoreExt.Creator[0]
	}
	e.MediaContent, e.MediaThumbnail = mediaURLs(it.Extensions)
	return e
}

func fromItem(it *gofeed.Item) news.RawEntry {
	e := news.RawEntry{
		Title:   it.Title,
		Link:    it.Link,
		ID:      it.GUID,
		PubDate: it.Published,
		Updated: it.Updated,
		Summary: it.Description,
		Content: it.Content,
	}
	if e.Link == "" && len(it.Links) > 0 {
		e.Link = it.Links[0]
	}
	if it.PublishedParsed != nil {
		e.ISODate = it.PublishedParsed.UTC().Format(time.RFC3339)
	}
	if it.Author != nil {
		e.Author = it.Author.Name
	}
	if it.DublinCoreExt != nil && len(it.DublinCoreExt.Creator) > 0 {
		e.DCCreator = it.DublinCoreExt.Creator[0]
	}
	for _, enc := range it.Enclosures {
		if enc != nil {
			e.Enclosures = append(e.Enclosures, enc.URL)
		}
	}
	e.MediaContent, e.MediaThumbnail = mediaURLs(it.Extensions)
	if it.Image != nil {
		e.MediaThumbnail = append(e.MediaThumbnail, it.Image.URL)
	}
	return e
}

// mediaURLs collects media:content and media:thumbnail urls, including those
// nested in media:group.
func mediaURLs(exts ext.Extensions) (content, thumbnails []string) {
	media, ok := exts["media"]
	if !ok {
		return nil, nil
	}

	collect := func(dst []string, list []ext.Extension) []string {
		for _, m := range list {
			if u := m.Attrs["url"]; u != "" {
				dst = append(dst, u)
			}
		}
		return dst
	}

	content = collect(content, media["content"])
	thumbnails = collect(thumbnails, media["thumbnail"])
	for _, g := range media["group"] {
		content = collect(content, g.Children["content"])
		thumbnails = collect(thumbnails, g.Children["thumbnail"])
	}
	return content, thumbnails
}
