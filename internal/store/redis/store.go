package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// maxTxRetries bounds optimistic transaction retries when a watched key changes
const maxTxRetries = 5

// claimTTL bounds how long an insert may hold a uniqueness key before its row exists
const claimTTL = 30 * time.Second

// Store is the Redis backing store: bookmark rows, owner indexes,
// uniqueness keys, sessions and the pub/sub change feed.
type Store struct {
	client *redis.Client
	now    func() time.Time
	newID  func() string
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Client exposes the underlying client (health checks)
func (s *Store) Client() *redis.Client {
	return s.client
}

// Ping checks that Redis answers
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return transient("ping redis", err)
	}
	return nil
}

// transient wraps a Redis failure as a domain.ErrTransient while keeping the cause
func transient(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrTransient, err)
}

// passThrough returns domain errors untouched and classifies everything else as transient
func passThrough(op string, err error) error {
	if errors.Is(err, domain.ErrNotFoundOrForbidden) ||
		errors.Is(err, domain.ErrDuplicate) ||
		errors.Is(err, domain.ErrValidation) {
		return err
	}
	return transient(op, err)
}

func newEventID() string {
	return ulid.Make().String()
}

// getBookmark reads a row through any redis.Cmdable (client or watched tx).
// A missing row returns (nil, nil).
func getBookmark(ctx context.Context, c redis.Cmdable, id string) (*domain.Bookmark, error) {
	data, err := c.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark %s: %w", id, err)
	}
	return &bookmark, nil
}

// runWatched runs fn inside WATCH/MULTI/EXEC and retries when a watched key moved under us
func (s *Store) runWatched(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
