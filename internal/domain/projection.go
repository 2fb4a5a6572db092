package domain

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the ordering of a projection.
type SortKey string

const (
	SortByDate      SortKey = "date"
	SortByTitle     SortKey = "title"
	SortByFavorites SortKey = "favorites"
)

// CategoryAll matches every category in a projection filter.
const CategoryAll = "all"

// ParseSortKey maps user input to a SortKey. Unknown keys fall back to date.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByTitle:
		return SortByTitle
	case SortByFavorites:
		return SortByFavorites
	default:
		return SortByDate
	}
}

// Project filters and sorts a collection into a new slice.
// The input slice and the bookmarks it points to are never modified.
func Project(collection []*Bookmark, searchTerm, categoryFilter string, sortKey SortKey) []*Bookmark {
	term := strings.ToLower(searchTerm)
	if categoryFilter == "" {
		categoryFilter = CategoryAll
	}

	out := make([]*Bookmark, 0, len(collection))
	for _, b := range collection {
		if b == nil {
			continue
		}
		if !matchesSearch(b, term) {
			continue
		}
		if categoryFilter != CategoryAll && b.Category != categoryFilter {
			continue
		}
		out = append(out, b)
	}

	switch sortKey {
	case SortByTitle:
		// collate.Collator is not safe for concurrent use
		c := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Title, out[j].Title) < 0
		})
	case SortByFavorites:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].IsFavorite && !out[j].IsFavorite
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}

// matchesSearch is a case-insensitive substring match on title or url.
// term must already be lowercased.
func matchesSearch(b *Bookmark, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.URL), term)
}

// Categories lists the category filter choices for a collection:
// "all", "general", then every other category in first-seen order.
func Categories(collection []*Bookmark) []string {
	out := []string{CategoryAll, DefaultCategory}
	seen := map[string]bool{CategoryAll: true, DefaultCategory: true}
	for _, b := range collection {
		if b == nil || seen[b.Category] {
			continue
		}
		seen[b.Category] = true
		out = append(out, b.Category)
	}
	return out
}
