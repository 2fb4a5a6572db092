package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// SessionRecord is the server-side half of a session token
type SessionRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SaveSession stores a session record that expires with its token
func (s *Store) SaveSession(ctx context.Context, record SessionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session %s: %w: already expired", record.ID, domain.ErrValidation)
	}

	if err := s.client.Set(ctx, SessionKey(record.ID), data, ttl).Err(); err != nil {
		return transient("save session", err)
	}
	return nil
}

// GetSession returns the session record, or (nil, nil) when it does not exist
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	data, err := s.client.Get(ctx, SessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, transient("get session", err)
	}

	var record SessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %s: %w", sessionID, err)
	}
	return &record, nil
}

// DeleteSession revokes a session. It reports whether a record was removed.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Del(ctx, SessionKey(sessionID)).Result()
	if err != nil {
		return false, transient("delete session", err)
	}
	return n > 0, nil
}

// PublishAuthEvent broadcasts a sign-in or sign-out to every process
func (s *Store) PublishAuthEvent(ctx context.Context, event domain.AuthEvent) error {
	if event.ID == "" {
		event.ID = newEventID()
	}
	if event.At.IsZero() {
		event.At = s.now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal auth event: %w", err)
	}

	if err := s.client.Publish(ctx, ChannelAuthEvents, data).Err(); err != nil {
		return transient("publish auth event", err)
	}
	return nil
}

// SubscribeAuthEvents streams sign-in and sign-out events
func (s *Store) SubscribeAuthEvents(ctx context.Context) (*Subscription[domain.AuthEvent], error) {
	return subscribe[domain.AuthEvent](ctx, s.client, ChannelAuthEvents)
}
