// Package reconcile keeps the in-memory bookmark collection in line with the
// backing store. Every invalidation, whatever its source, ends in Refresh.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/index"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Lister reads the rows of one owner, newest first.
type Lister interface {
	ListBookmarks(ctx context.Context, ownerID string) ([]*domain.Bookmark, error)
}

// Store is the reconciliation store.
type Store struct {
	lister     Lister
	collection *index.Collection
	logger     logger.Logger

	refreshMu sync.Mutex // one refresh in flight at a time

	mu         sync.Mutex // guards ownerID, generation and the replace itself
	ownerID    string
	generation uint64
}

// New creates a reconciliation store writing into collection
func New(lister Lister, collection *index.Collection, log logger.Logger) *Store {
	return &Store{
		lister:     lister,
		collection: collection,
		logger:     log,
	}
}

// Activate binds the store to ownerID and performs the initial fetch.
// A failed initial fetch leaves the collection empty; the owner stays bound
// so later triggers can retry.
func (s *Store) Activate(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	if s.ownerID != ownerID {
		// Never show the previous owner's rows to the new one
		s.collection.Clear()
	}
	s.ownerID = ownerID
	s.generation++
	s.mu.Unlock()

	s.logger.Info("collection activated", logger.String("owner_id", ownerID))

	return s.Refresh(ctx)
}

// Refresh re-reads the owner's rows and replaces the collection.
// On failure the previous collection is kept and the error is returned.
// A result fetched for an owner that is no longer active is discarded.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.mu.Lock()
	ownerID, generation := s.ownerID, s.generation
	s.mu.Unlock()

	if ownerID == "" {
		return fmt.Errorf("refresh: %w", domain.ErrUnauthenticated)
	}

	start := time.Now()
	rows, err := s.lister.ListBookmarks(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, domain.ErrTransient) {
			err = fmt.Errorf("failed to refresh bookmarks: %w: %w", domain.ErrTransient, err)
		}
		s.logger.Warn("refresh failed, keeping previous collection",
			logger.String("owner_id", ownerID),
			logger.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		s.logger.Debug("discarding stale refresh",
			logger.String("owner_id", ownerID),
			logger.Uint64("generation", generation))
		return nil
	}

	version := s.collection.Replace(ownerID, rows)

	s.logger.Debug("collection refreshed",
		logger.String("owner_id", ownerID),
		logger.Int("count", len(rows)),
		logger.Uint64("version", version),
		logger.Duration("took", time.Since(start)))

	return nil
}

// Clear forgets the owner and empties the collection. In-flight refreshes are discarded.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ownerID = ""
	s.generation++
	s.collection.Clear()

	s.logger.Info("collection cleared")
}

func (s *Store) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownerID
}

// Collection exposes the mirrored rows for read-only use
func (s *Store) Collection() *index.Collection {
	return s.collection
}
