package index

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

func TestNewCollection(t *testing.T) {
	c := NewCollection()
	if c == nil {
		t.Fatal("NewCollection() returned nil")
	}
	if c.Count() != 0 || c.Version() != 0 || c.OwnerID() != "" {
		t.Errorf("NewCollection() should start empty, got count=%d version=%d owner=%q", c.Count(), c.Version(), c.OwnerID())
	}
	if !c.LastRefresh().IsZero() {
		t.Error("LastRefresh() should be zero before the first replace")
	}
}

func TestReplaceOverwrites(t *testing.T) {
	c := NewCollection()

	c.Replace("alice", []*domain.Bookmark{{ID: "1"}, {ID: "2"}})
	v := c.Replace("alice", []*domain.Bookmark{{ID: "3"}})

	if v != 2 {
		t.Errorf("Replace() version = %d, want 2", v)
	}
	if c.Count() != 1 {
		t.Fatalf("Replace() should overwrite, got %d bookmarks want 1", c.Count())
	}
	if _, ok := c.Get("1"); ok {
		t.Error("stale bookmark 1 still present")
	}
	if c.LastRefresh().IsZero() {
		t.Error("LastRefresh() not set")
	}
}

func TestReplaceKeepsOrderAndSkipsDuplicates(t *testing.T) {
	c := NewCollection()
	c.Replace("alice", []*domain.Bookmark{{ID: "b"}, nil, {ID: "a"}, {ID: "b"}})

	all := c.All()
	if len(all) != 2 || all[0].ID != "b" || all[1].ID != "a" {
		t.Fatalf("All() = %v, want [b a]", all)
	}
}

func TestAllReturnsCopies(t *testing.T) {
	c := NewCollection()
	src := &domain.Bookmark{ID: "1", Title: "original"}
	c.Replace("alice", []*domain.Bookmark{src})

	src.Title = "mutated source"
	all := c.All()
	all[0].Title = "mutated copy"

	got, ok := c.Get("1")
	if !ok || got.Title != "original" {
		t.Errorf("collection was mutated through a shared pointer: %+v", got)
	}
}

func TestClear(t *testing.T) {
	c := NewCollection()
	c.Replace("alice", []*domain.Bookmark{{ID: "1"}})
	c.Clear()

	if c.Count() != 0 || c.OwnerID() != "" {
		t.Errorf("Clear() left count=%d owner=%q", c.Count(), c.OwnerID())
	}
	if c.Version() != 2 {
		t.Errorf("Version() = %d, want 2", c.Version())
	}
}

func TestOnChange(t *testing.T) {
	c := NewCollection()

	var got []uint64
	var owners []string
	unregister := c.OnChange(func(version uint64, ownerID string) {
		got = append(got, version)
		owners = append(owners, ownerID)
	})

	c.Replace("alice", nil)
	c.Clear()
	unregister()
	c.Replace("alice", nil)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("listener saw versions %v, want [1 2]", got)
	}
	if owners[0] != "alice" || owners[1] != "" {
		t.Errorf("listener saw owners %v", owners)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := NewCollection()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Replace("alice", []*domain.Bookmark{{ID: "1"}, {ID: "2"}})
		}()
		go func() {
			defer wg.Done()
			_ = c.All()
			_ = c.Count()
		}()
	}
	wg.Wait()

	if c.Version() != 10 {
		t.Errorf("Version() = %d after 10 replaces", c.Version())
	}
}
