package domain

import (
	"reflect"
	"testing"
	"time"
)

func testCollection() []*Bookmark {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	// store order: created_at descending
	return []*Bookmark{
		{ID: "4", Title: "Go Docs", URL: "https://go.dev/doc", Category: "dev", CreatedAt: base.Add(4 * time.Hour)},
		{ID: "3", Title: "Zebra", URL: "https://zebra.example", Category: "general", IsFavorite: true, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "2", Title: "apple", URL: "https://apple.example", Category: "shopping", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "1", Title: "Redis", URL: "https://redis.io", Category: "dev", IsFavorite: true, CreatedAt: base.Add(1 * time.Hour)},
	}
}

func ids(bookmarks []*Bookmark) []string {
	out := make([]string, 0, len(bookmarks))
	for _, b := range bookmarks {
		out = append(out, b.ID)
	}
	return out
}

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		category string
		sortKey  SortKey
		expected []string
	}{
		{
			name:     "no filter sorts by date",
			category: CategoryAll,
			sortKey:  SortByDate,
			expected: []string{"4", "3", "2", "1"},
		},
		{
			name:     "search matches title case-insensitively",
			search:   "ZEB",
			category: CategoryAll,
			sortKey:  SortByDate,
			expected: []string{"3"},
		},
		{
			name:     "search matches url",
			search:   "redis.io",
			category: CategoryAll,
			sortKey:  SortByDate,
			expected: []string{"1"},
		},
		{
			name:     "category exact match",
			category: "dev",
			sortKey:  SortByDate,
			expected: []string{"4", "1"},
		},
		{
			name:     "category is case sensitive",
			category: "Dev",
			sortKey:  SortByDate,
			expected: []string{},
		},
		{
			name:     "empty category behaves like all",
			sortKey:  SortByDate,
			expected: []string{"4", "3", "2", "1"},
		},
		{
			name:     "title sort is locale aware",
			category: CategoryAll,
			sortKey:  SortByTitle,
			expected: []string{"2", "4", "1", "3"},
		},
		{
			name:     "favorites first keeps date order inside groups",
			category: CategoryAll,
			sortKey:  SortByFavorites,
			expected: []string{"3", "1", "4", "2"},
		},
		{
			name:     "search and category combine",
			search:   "go",
			category: "dev",
			sortKey:  SortByDate,
			expected: []string{"4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Project(testCollection(), tt.search, tt.category, tt.sortKey))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Project() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestProjectTitleScenario(t *testing.T) {
	collection := []*Bookmark{
		{ID: "z", Title: "Zebra"},
		{ID: "a", Title: "apple"},
	}

	got := Project(collection, "", CategoryAll, SortByTitle)
	if len(got) != 2 || got[0].Title != "apple" || got[1].Title != "Zebra" {
		t.Fatalf("Project() titles = [%s %s], want [apple Zebra]", got[0].Title, got[1].Title)
	}
}

func TestProjectIsPure(t *testing.T) {
	collection := testCollection()
	before := make([]Bookmark, len(collection))
	for i, b := range collection {
		before[i] = *b
	}
	order := ids(collection)

	first := Project(collection, "e", CategoryAll, SortByTitle)
	second := Project(collection, "e", CategoryAll, SortByTitle)

	if !reflect.DeepEqual(ids(first), ids(second)) {
		t.Errorf("Project() not deterministic: %v vs %v", ids(first), ids(second))
	}
	if !reflect.DeepEqual(ids(collection), order) {
		t.Errorf("Project() reordered its input: %v, want %v", ids(collection), order)
	}
	for i, b := range collection {
		if *b != before[i] {
			t.Errorf("Project() mutated bookmark %s", b.ID)
		}
	}
}

func TestParseSortKey(t *testing.T) {
	tests := map[string]SortKey{
		"date":      SortByDate,
		"title":     SortByTitle,
		" Title ":   SortByTitle,
		"favorites": SortByFavorites,
		"":          SortByDate,
		"bogus":     SortByDate,
	}
	for input, want := range tests {
		if got := ParseSortKey(input); got != want {
			t.Errorf("ParseSortKey(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCategories(t *testing.T) {
	got := Categories(testCollection())
	want := []string{"all", "general", "dev", "shopping"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories() = %v, want %v", got, want)
	}

	if got := Categories(nil); !reflect.DeepEqual(got, []string{"all", "general"}) {
		t.Errorf("Categories(nil) = %v", got)
	}
}
