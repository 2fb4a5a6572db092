package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/index"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	storeredis "github.com/MrSnakeDoc/marksync/internal/store/redis"
)

type fakeLister struct {
	mu    sync.Mutex
	rows  map[string][]*domain.Bookmark
	err   error
	calls int

	// gate, when set, blocks ListBookmarks until it is closed
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeLister) ListBookmarks(ctx context.Context, ownerID string) ([]*domain.Bookmark, error) {
	f.mu.Lock()
	f.calls++
	gate, entered := f.gate, f.entered
	rows, err := f.rows[ownerID], f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return rows, err
}

func (f *fakeLister) set(ownerID string, rows ...*domain.Bookmark) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rows == nil {
		f.rows = make(map[string][]*domain.Bookmark)
	}
	f.rows[ownerID] = rows
}

func ids(bookmarks []*domain.Bookmark) []string {
	out := make([]string, len(bookmarks))
	for i, b := range bookmarks {
		out[i] = b.ID
	}
	return out
}

func TestActivateLoadsCollection(t *testing.T) {
	lister := &fakeLister{}
	lister.set("alice", &domain.Bookmark{ID: "2"}, &domain.Bookmark{ID: "1"})

	s := New(lister, index.NewCollection(), logger.Nop())
	if err := s.Activate(context.Background(), "alice"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got := ids(s.Collection().All())
	if len(got) != 2 || got[0] != "2" || got[1] != "1" {
		t.Fatalf("collection = %v, want [2 1]", got)
	}
	if s.OwnerID() != "alice" || s.Collection().OwnerID() != "alice" {
		t.Errorf("owner not bound")
	}
}

func TestRefreshFailureKeepsPreviousCollection(t *testing.T) {
	lister := &fakeLister{}
	lister.set("alice", &domain.Bookmark{ID: "1"})

	s := New(lister, index.NewCollection(), logger.Nop())
	if err := s.Activate(context.Background(), "alice"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	before := s.Collection().Version()

	lister.mu.Lock()
	lister.err = errors.New("connection reset")
	lister.mu.Unlock()

	err := s.Refresh(context.Background())
	if !errors.Is(err, domain.ErrTransient) {
		t.Fatalf("expected ErrTransient, got %v", err)
	}
	if s.Collection().Count() != 1 || s.Collection().Version() != before {
		t.Errorf("collection changed after a failed refresh")
	}
}

func TestRefreshWithoutOwner(t *testing.T) {
	lister := &fakeLister{}
	s := New(lister, index.NewCollection(), logger.Nop())

	if err := s.Refresh(context.Background()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if lister.calls != 0 {
		t.Errorf("backing store queried without an owner")
	}
}

func TestClear(t *testing.T) {
	lister := &fakeLister{}
	lister.set("alice", &domain.Bookmark{ID: "1"})

	s := New(lister, index.NewCollection(), logger.Nop())
	_ = s.Activate(context.Background(), "alice")
	s.Clear()

	if s.Collection().Count() != 0 || s.OwnerID() != "" {
		t.Errorf("Clear() left count=%d owner=%q", s.Collection().Count(), s.OwnerID())
	}
}

func TestStaleRefreshIsDiscarded(t *testing.T) {
	lister := &fakeLister{}
	lister.set("alice", &domain.Bookmark{ID: "a1"})
	lister.set("bob", &domain.Bookmark{ID: "b1"})

	s := New(lister, index.NewCollection(), logger.Nop())
	if err := s.Activate(context.Background(), "alice"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	lister.mu.Lock()
	lister.gate = make(chan struct{})
	lister.entered = make(chan struct{}, 1)
	gate, entered := lister.gate, lister.entered
	lister.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- s.Refresh(context.Background()) }()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never reached the backing store")
	}

	// Sign-out lands while alice's refresh is in flight
	s.Clear()
	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if s.Collection().Count() != 0 {
		t.Fatalf("stale refresh repopulated the collection: %v", ids(s.Collection().All()))
	}
}

func TestActivateNewOwnerDropsPreviousRows(t *testing.T) {
	lister := &fakeLister{}
	lister.set("alice", &domain.Bookmark{ID: "a1"})

	s := New(lister, index.NewCollection(), logger.Nop())
	_ = s.Activate(context.Background(), "alice")

	lister.mu.Lock()
	lister.err = errors.New("down")
	lister.mu.Unlock()

	if err := s.Activate(context.Background(), "bob"); err == nil {
		t.Fatal("expected activate error")
	}
	if s.Collection().Count() != 0 {
		t.Errorf("bob sees alice's rows: %v", ids(s.Collection().All()))
	}
}

func TestRefreshConvergesWithBackingStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	backing := storeredis.NewStore(client)
	ctx := context.Background()

	s := New(backing, index.NewCollection(), logger.Nop())
	if err := s.Activate(ctx, "alice"); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	var want []string
	for _, url := range []string{"https://a.io", "https://b.io", "https://c.io"} {
		b, err := backing.InsertBookmark(ctx, &domain.Bookmark{OwnerID: "alice", URL: url, Title: url, Category: "general"})
		if err != nil {
			t.Fatalf("InsertBookmark: %v", err)
		}
		want = append(want, b.ID)
	}
	if _, err := backing.InsertBookmark(ctx, &domain.Bookmark{OwnerID: "bob", URL: "https://a.io"}); err != nil {
		t.Fatalf("InsertBookmark: %v", err)
	}
	if err := backing.DeleteBookmark(ctx, "alice", want[0]); err != nil {
		t.Fatalf("DeleteBookmark: %v", err)
	}
	want = want[1:]

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	got := ids(s.Collection().All())
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("collection = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("collection = %v, want %v", got, want)
		}
	}
}
