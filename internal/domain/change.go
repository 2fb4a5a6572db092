package domain

import "time"

// ChangeType is the row operation carried by a change notification.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// TableBookmarks is the only table the change feed watches.
const TableBookmarks = "bookmarks"

// ChangeEvent is a notification from the backing store's change feed.
// It is only ever used as an invalidation signal; its payload is logged, never applied.
type ChangeEvent struct {
	ID       string     `json:"id"`
	Type     ChangeType `json:"type"`
	Table    string     `json:"table"`
	OwnerID  string     `json:"user_id,omitempty"` // empty on DELETE
	RecordID string     `json:"record_id"`
	At       time.Time  `json:"at"`
}

// ChangeFilter selects one event type, optionally narrowed to one owner.
type ChangeFilter struct {
	Type    ChangeType
	OwnerID string
}
