package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// ListBookmarks returns every bookmark of an owner, newest first
func (s *Store) ListBookmarks(ctx context.Context, ownerID string) ([]*domain.Bookmark, error) {
	ids, err := s.client.ZRevRange(ctx, OwnerIndexKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, transient("list bookmark ids", err)
	}

	if len(ids) == 0 {
		return []*domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, transient("load bookmarks", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Row deleted between ZREVRANGE and MGET
			continue
		}
		var bookmark domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &bookmark); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bookmark %s: %w", ids[i], err)
		}
		if bookmark.OwnerID != ownerID {
			continue
		}
		bookmarks = append(bookmarks, &bookmark)
	}

	return bookmarks, nil
}

// FindByURL returns the live bookmark of an owner with this exact URL, or nil
func (s *Store) FindByURL(ctx context.Context, ownerID, url string) (*domain.Bookmark, error) {
	id, err := s.client.Get(ctx, OwnerURLKey(ownerID, url)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, transient("look up bookmark url", err)
	}

	bookmark, err := getBookmark(ctx, s.client, id)
	if err != nil {
		return nil, transient("get bookmark", err)
	}
	if bookmark == nil || bookmark.OwnerID != ownerID || bookmark.URL != url {
		return nil, nil
	}
	return bookmark, nil
}

// InsertBookmark stores a new row. ID and CreatedAt are assigned here.
// The (owner, url) uniqueness key is claimed first, so a concurrent insert of
// the same URL fails with domain.ErrDuplicate. The claim expires after
// claimTTL unless the row write makes it permanent.
func (s *Store) InsertBookmark(ctx context.Context, bookmark *domain.Bookmark) (*domain.Bookmark, error) {
	row := bookmark.Clone()
	row.ID = s.newID()
	row.CreatedAt = s.now().UTC()

	urlKey := OwnerURLKey(row.OwnerID, row.URL)
	claimed, err := s.claimURL(ctx, urlKey, row.ID)
	if err != nil {
		return nil, transient("claim bookmark url", err)
	}
	if !claimed {
		return nil, fmt.Errorf("insert %s: %w", row.URL, domain.ErrDuplicate)
	}

	data, err := json.Marshal(row)
	if err != nil {
		_, _ = s.delIfEqual(ctx, urlKey, row.ID)
		return nil, fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		holder, err := tx.Get(ctx, urlKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if holder != row.ID {
			return fmt.Errorf("claim on %s expired before the row was written", row.URL)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, BookmarkKey(row.ID), data, 0)
			pipe.ZAdd(ctx, OwnerIndexKey(row.OwnerID), redis.Z{
				Score:  float64(row.CreatedAt.UnixMilli()),
				Member: row.ID,
			})
			pipe.Persist(ctx, urlKey)
			return nil
		})
		return err
	}

	if err := s.runWatched(ctx, txf, urlKey); err != nil {
		// Release the claim so the user can retry; if this fails too the TTL does it
		_, _ = s.delIfEqual(ctx, urlKey, row.ID)
		return nil, passThrough("save bookmark", err)
	}

	// Best effort: the writer refreshes on its own acknowledgment
	_ = s.publishChange(ctx, domain.ChangeInsert, row.OwnerID, row.ID)

	return row, nil
}

// claimURL takes the uniqueness key for id with a claimTTL expiry. A
// permanent key whose row does not exist is an orphan and is taken over.
func (s *Store) claimURL(ctx context.Context, key, id string) (bool, error) {
	claimed, err := s.client.SetNX(ctx, key, id, claimTTL).Result()
	if err != nil || claimed {
		return claimed, err
	}

	holder, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return s.client.SetNX(ctx, key, id, claimTTL).Result()
	}
	if err != nil {
		return false, err
	}

	orphan, err := orphanedClaim(ctx, s.client, key, holder)
	if err != nil || !orphan {
		return false, err
	}
	if _, err := s.delIfEqual(ctx, key, holder); err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, id, claimTTL).Result()
}

// orphanedClaim reports whether key permanently points at a row that is gone.
// Claims of in-flight inserts still carry their TTL and are never orphans.
func orphanedClaim(ctx context.Context, c redis.Cmdable, key, id string) (bool, error) {
	row, err := getBookmark(ctx, c, id)
	if err != nil || row != nil {
		return false, err
	}

	ttl, err := c.TTL(ctx, key).Result()
	if err != nil {
		return false, err
	}
	// -1: no expiry
	return ttl == -1, nil
}

// UpdateBookmark applies a patch to the row matching both id and owner.
// The ownership check and the write run in one optimistic transaction.
func (s *Store) UpdateBookmark(ctx context.Context, ownerID, id string, patch domain.Patch) (*domain.Bookmark, error) {
	key := BookmarkKey(id)
	watched := []string{key}
	if patch.URL != nil {
		watched = append(watched, OwnerURLKey(ownerID, *patch.URL))
	}

	var updated *domain.Bookmark
	txf := func(tx *redis.Tx) error {
		current, err := getBookmark(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil || current.OwnerID != ownerID {
			return fmt.Errorf("update %s: %w", id, domain.ErrNotFoundOrForbidden)
		}

		next := current.Clone()
		patch.Apply(next)

		urlChanged := next.URL != current.URL
		newURLKey := OwnerURLKey(ownerID, next.URL)
		if urlChanged {
			holder, err := tx.Get(ctx, newURLKey).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil && holder != id {
				orphan, err := orphanedClaim(ctx, tx, newURLKey, holder)
				if err != nil {
					return err
				}
				if !orphan {
					return fmt.Errorf("update %s to %s: %w", id, next.URL, domain.ErrDuplicate)
				}
			}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal bookmark: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if urlChanged {
				pipe.Set(ctx, newURLKey, id, 0)
				pipe.Del(ctx, OwnerURLKey(ownerID, current.URL))
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = next
		return nil
	}

	if err := s.runWatched(ctx, txf, watched...); err != nil {
		return nil, passThrough("update bookmark", err)
	}

	_ = s.publishChange(ctx, domain.ChangeUpdate, ownerID, id)

	return updated, nil
}

// DeleteBookmark removes the row matching both id and owner. There is no soft delete.
func (s *Store) DeleteBookmark(ctx context.Context, ownerID, id string) error {
	key := BookmarkKey(id)

	txf := func(tx *redis.Tx) error {
		current, err := getBookmark(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil || current.OwnerID != ownerID {
			return fmt.Errorf("delete %s: %w", id, domain.ErrNotFoundOrForbidden)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.ZRem(ctx, OwnerIndexKey(ownerID), id)
			pipe.Del(ctx, OwnerURLKey(ownerID, current.URL))
			return nil
		})
		return err
	}

	if err := s.runWatched(ctx, txf, key); err != nil {
		return passThrough("delete bookmark", err)
	}

	// The deleted row's owner is not echoed on the feed: DELETE is unfiltered
	_ = s.publishChange(ctx, domain.ChangeDelete, "", id)

	return nil
}
