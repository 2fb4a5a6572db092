package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// ChangeFunc is called after every replace or clear, outside the lock.
type ChangeFunc func(version uint64, ownerID string)

// Collection is the in-memory mirror of the active owner's bookmarks.
// It is only ever replaced wholesale; there is no per-row mutation.
type Collection struct {
	mu          sync.RWMutex
	ownerID     string
	bookmarks   []*domain.Bookmark          // backing-store order (created_at desc)
	byID        map[string]*domain.Bookmark // ID -> Bookmark
	version     uint64                      // bumped on every replace or clear
	lastRefresh time.Time

	listenersMu sync.Mutex
	listeners   map[int]ChangeFunc
	nextID      int
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{
		bookmarks: []*domain.Bookmark{},
		byID:      make(map[string]*domain.Bookmark),
		listeners: make(map[int]ChangeFunc),
	}
}

// Replace swaps the whole collection for the rows of ownerID
func (c *Collection) Replace(ownerID string, bookmarks []*domain.Bookmark) uint64 {
	rows := make([]*domain.Bookmark, 0, len(bookmarks))
	byID := make(map[string]*domain.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		if b == nil {
			continue
		}
		if _, dup := byID[b.ID]; dup {
			continue
		}
		row := b.Clone()
		rows = append(rows, row)
		byID[row.ID] = row
	}

	c.mu.Lock()
	c.ownerID = ownerID
	c.bookmarks = rows
	c.byID = byID
	c.version++
	c.lastRefresh = time.Now()
	version := c.version
	c.mu.Unlock()

	c.notify(version, ownerID)
	return version
}

// Clear empties the collection and forgets the owner
func (c *Collection) Clear() uint64 {
	c.mu.Lock()
	c.ownerID = ""
	c.bookmarks = []*domain.Bookmark{}
	c.byID = make(map[string]*domain.Bookmark)
	c.version++
	version := c.version
	c.mu.Unlock()

	c.notify(version, "")
	return version
}

// All returns copies of every bookmark in backing-store order
func (c *Collection) All() []*domain.Bookmark {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*domain.Bookmark, len(c.bookmarks))
	for i, b := range c.bookmarks {
		out[i] = b.Clone()
	}
	return out
}

// Get retrieves a bookmark by ID
func (c *Collection) Get(id string) (*domain.Bookmark, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.byID[id]
	return b.Clone(), ok
}

func (c *Collection) OwnerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ownerID
}

// Count returns the number of bookmarks in the collection
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.bookmarks)
}

func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.version
}

// LastRefresh returns the time of the last successful replace
func (c *Collection) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastRefresh
}

// OnChange registers a listener and returns its unregister func
func (c *Collection) OnChange(fn ChangeFunc) func() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Collection) notify(version uint64, ownerID string) {
	c.listenersMu.Lock()
	fns := make([]ChangeFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn(version, ownerID)
	}
}
