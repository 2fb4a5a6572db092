// Package feed listens to backing-store change notifications for the active
// owner and turns each one into a refresh request.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	storeredis "github.com/MrSnakeDoc/marksync/internal/store/redis"
)

// Stream is one live subscription.
type Stream interface {
	Events() <-chan domain.ChangeEvent
	Close() error
}

// Source opens subscriptions on the change feed.
type Source interface {
	Subscribe(ctx context.Context, filters []domain.ChangeFilter) (Stream, error)
}

type storeSource struct {
	store *storeredis.Store
}

// FromStore adapts the Redis store to a Source
func FromStore(store *storeredis.Store) Source {
	return storeSource{store: store}
}

func (s storeSource) Subscribe(ctx context.Context, filters []domain.ChangeFilter) (Stream, error) {
	sub, err := s.store.SubscribeChanges(ctx, filters)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Filters returns the subscription set for an owner: inserts and updates
// narrowed to the owner, deletes unfiltered (delete events carry no owner).
func Filters(ownerID string) []domain.ChangeFilter {
	return []domain.ChangeFilter{
		{Type: domain.ChangeInsert, OwnerID: ownerID},
		{Type: domain.ChangeUpdate, OwnerID: ownerID},
		{Type: domain.ChangeDelete},
	}
}

// Subscriber holds at most one subscription, bound to one owner.
type Subscriber struct {
	source  Source
	trigger func()
	logger  logger.Logger

	mu      sync.Mutex
	ownerID string
	stream  Stream
	done    chan struct{}
}

// New creates a subscriber calling trigger on every notification
func New(source Source, trigger func(), log logger.Logger) *Subscriber {
	return &Subscriber{
		source:  source,
		trigger: trigger,
		logger:  log,
	}
}

// Activate subscribes for ownerID. Activating the current owner again is a
// no-op; another owner replaces the subscription.
func (s *Subscriber) Activate(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil && s.ownerID == ownerID {
		return nil
	}
	s.teardownLocked()

	stream, err := s.source.Subscribe(ctx, Filters(ownerID))
	if err != nil {
		return fmt.Errorf("failed to subscribe to changes for %s: %w", ownerID, err)
	}

	s.ownerID = ownerID
	s.stream = stream
	s.done = make(chan struct{})
	go s.pump(stream, ownerID, s.done)

	s.logger.Info("change feed subscribed", logger.String("owner_id", ownerID))
	return nil
}

// Deactivate drops the subscription, if any
func (s *Subscriber) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return
	}
	owner := s.ownerID
	s.teardownLocked()

	s.logger.Info("change feed unsubscribed", logger.String("owner_id", owner))
}

// OwnerID returns the owner of the live subscription, or ""
func (s *Subscriber) OwnerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ownerID
}

func (s *Subscriber) teardownLocked() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.logger.Warn("failed to close change feed", logger.Error(err))
	}
	<-s.done

	s.stream = nil
	s.done = nil
	s.ownerID = ""
}

func (s *Subscriber) pump(stream Stream, ownerID string, done chan struct{}) {
	defer close(done)

	for event := range stream.Events() {
		// The payload is only logged; the collection is always re-read in full
		s.logger.Debug("change received",
			logger.String("owner_id", ownerID),
			logger.String("type", string(event.Type)),
			logger.String("record_id", event.RecordID))
		s.trigger()
	}
}
