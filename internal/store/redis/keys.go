package redis

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	// KeyPrefixBookmark is the prefix for bookmark row keys
	KeyPrefixBookmark = "marksync:bookmark:"
	// KeyPrefixOwner is the prefix for per-owner indexes
	KeyPrefixOwner = "marksync:owner:"
	// KeyPrefixSession is the prefix for session records
	KeyPrefixSession = "marksync:session:"
	// ChannelPrefixChanges is the prefix for change feed channels
	ChannelPrefixChanges = "marksync:changes:"
	// ChannelAuthEvents carries SIGNED_IN / SIGNED_OUT events
	ChannelAuthEvents = "marksync:auth:events"
)

// BookmarkKey returns the Redis key for a bookmark row
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// OwnerIndexKey returns the sorted set of an owner's bookmark IDs, scored by creation time
func OwnerIndexKey(ownerID string) string {
	return KeyPrefixOwner + ownerID + ":bookmarks"
}

// OwnerURLKey returns the uniqueness key for (owner, url).
// The URL is hashed so arbitrary characters never leak into the key space.
func OwnerURLKey(ownerID, url string) string {
	hash := sha256.Sum256([]byte(url))
	return KeyPrefixOwner + ownerID + ":url:" + hex.EncodeToString(hash[:])
}

// SessionKey returns the Redis key for a session record
func SessionKey(sessionID string) string {
	return KeyPrefixSession + sessionID
}

// ChangeChannel returns the pub/sub channel for a table/event pair.
// An empty owner yields the unfiltered channel.
func ChangeChannel(table, event, ownerID string) string {
	ch := ChannelPrefixChanges + table + ":" + event
	if ownerID != "" {
		ch += ":" + ownerID
	}
	return ch
}
