package news

import (
	"sort"
	"strings"
)

// Weights of a query term hit per field.
const (
	titleWeight   = 8
	excerptWeight = 4
	sourceWeight  = 1
)

// Merge deduplicates items by link, keeping the most recently published
// candidate for each link (the first one on ties), sorts newest first and
// keeps at most limit items. A limit <= 0 keeps everything.
func Merge(items []Item, limit int) []Item {
	unique := make([]Item, 0, len(items))
	byLink := make(map[string]int, len(items))

	for _, it := range items {
		idx, dup := byLink[it.Link]
		if !dup {
			byLink[it.Link] = len(unique)
			unique = append(unique, it)
			continue
		}
		if it.PublishedAt.After(unique[idx].PublishedAt) {
			unique[idx] = it
		}
	}

	SortByRecency(unique)
	if limit > 0 && len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}

// Duplicates reports how many items Merge folded away for the given input.
func Duplicates(items []Item) int {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.Link] = struct{}{}
	}
	return len(items) - len(seen)
}

// SortByRecency orders items by PublishedAt descending, keeping input order on ties.
func SortByRecency(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}

// Terms splits a free text query into lower-cased search terms.
func Terms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Score rates an item against lower-cased query terms.
func Score(it Item, terms []string) int {
	title := strings.ToLower(it.Title)
	excerpt := strings.ToLower(it.Excerpt)
	source := strings.ToLower(it.SourceName)

	score := 0
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += titleWeight
		}
		if strings.Contains(excerpt, term) {
			score += excerptWeight
		}
		if strings.Contains(source, term) {
			score += sourceWeight
		}
	}
	return score
}

type scored struct {
	item  Item
	score int
}

// Rank returns the items of pool matching query, best score first and newest
// first among equal scores, capped at limit. An empty query matches nothing.
func Rank(pool []Item, query string, limit int) []Item {
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}

	hits := make([]scored, 0, len(pool))
	for _, it := range pool {
		if s := Score(it, terms); s > 0 {
			hits = append(hits, scored{item: it, score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].item.PublishedAt.After(hits[j].item.PublishedAt)
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Item, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}
