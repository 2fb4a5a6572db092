package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// Subscription is a typed view over a Redis pub/sub subscription.
// Messages that do not decode as T are dropped.
type Subscription[T any] struct {
	pubsub *redis.PubSub
	events chan T
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func subscribe[T any](ctx context.Context, client *redis.Client, channels ...string) (*Subscription[T], error) {
	pubsub := client.Subscribe(ctx, channels...)

	// Wait for the confirmation so callers know the subscription is live
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, transient("subscribe", err)
	}

	sub := &Subscription[T]{
		pubsub: pubsub,
		events: make(chan T, 16),
		done:   make(chan struct{}),
	}

	sub.wg.Add(1)
	go sub.pump()

	return sub, nil
}

func (s *Subscription[T]) pump() {
	defer s.wg.Done()
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event T
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

// Events returns the decoded message stream. It is closed after Close.
func (s *Subscription[T]) Events() <-chan T {
	return s.events
}

// Close tears the subscription down. Safe to call more than once.
func (s *Subscription[T]) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
		s.wg.Wait()
	})
	return err
}

// SubscribeChanges opens one subscription covering every filter
func (s *Store) SubscribeChanges(ctx context.Context, filters []domain.ChangeFilter) (*Subscription[domain.ChangeEvent], error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("subscribe changes: no filters")
	}

	channels := make([]string, 0, len(filters))
	for _, f := range filters {
		channels = append(channels, ChangeChannel(domain.TableBookmarks, string(f.Type), f.OwnerID))
	}

	return subscribe[domain.ChangeEvent](ctx, s.client, channels...)
}

// publishChange notifies the change feed about a committed write
func (s *Store) publishChange(ctx context.Context, kind domain.ChangeType, ownerID, recordID string) error {
	event := domain.ChangeEvent{
		ID:       newEventID(),
		Type:     kind,
		Table:    domain.TableBookmarks,
		OwnerID:  ownerID,
		RecordID: recordID,
		At:       s.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	channel := ChangeChannel(domain.TableBookmarks, string(kind), ownerID)
	if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
		return transient("publish change", err)
	}
	return nil
}
