package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// SweepResult counts the index entries removed by Sweep
type SweepResult struct {
	IndexEntries int
	URLKeys      int
}

// Total is the number of removed entries
func (r SweepResult) Total() int {
	return r.IndexEntries + r.URLKeys
}

const sweepScanCount = 100

// Sweep removes index entries of an owner that no longer match a row:
// ids in the owner's sorted set whose row is gone or belongs to someone
// else, and uniqueness keys pointing at a row that no longer carries that
// URL. A uniqueness key whose row is missing is removed only once it is
// permanent: an in-flight insert holds its claim with a TTL.
func (s *Store) Sweep(ctx context.Context, ownerID string) (SweepResult, error) {
	var res SweepResult

	n, err := s.sweepIndex(ctx, ownerID)
	res.IndexEntries = n
	if err != nil {
		return res, err
	}

	n, err = s.sweepURLKeys(ctx, ownerID)
	res.URLKeys = n
	return res, err
}

func (s *Store) sweepIndex(ctx context.Context, ownerID string) (int, error) {
	indexKey := OwnerIndexKey(ownerID)
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, transient("list bookmark ids", err)
	}

	var stale []any
	for _, id := range ids {
		row, err := getBookmark(ctx, s.client, id)
		if err != nil {
			return 0, transient("get bookmark", err)
		}
		if row == nil || row.OwnerID != ownerID {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	removed, err := s.client.ZRem(ctx, indexKey, stale...).Result()
	if err != nil {
		return 0, transient("prune bookmark index", err)
	}
	return int(removed), nil
}

func (s *Store) sweepURLKeys(ctx context.Context, ownerID string) (int, error) {
	pattern := KeyPrefixOwner + ownerID + ":url:*"
	removed := 0

	iter := s.client.Scan(ctx, 0, pattern, sweepScanCount).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		id, err := s.client.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, transient("read url key", err)
		}

		row, err := getBookmark(ctx, s.client, id)
		if err != nil {
			return removed, transient("get bookmark", err)
		}
		if row == nil {
			orphan, err := orphanedClaim(ctx, s.client, key, id)
			if err != nil {
				return removed, transient("check url claim", err)
			}
			if !orphan {
				continue
			}
		} else if row.OwnerID == ownerID && OwnerURLKey(ownerID, row.URL) == key {
			continue
		}

		// Only delete if the key still points at the same id
		deleted, err := s.delIfEqual(ctx, key, id)
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, transient("scan url keys", err)
	}

	return removed, nil
}

func (s *Store) delIfEqual(ctx context.Context, key, want string) (bool, error) {
	deleted := false
	txf := func(tx *redis.Tx) error {
		got, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if got != want {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}

	if err := s.runWatched(ctx, txf, key); err != nil {
		return false, passThrough("delete url key", err)
	}
	return deleted, nil
}
