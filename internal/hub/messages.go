package hub

import (
	"encoding/json"

	"github.com/MrSnakeDoc/marksync/internal/domain"
)

// Message is what UI clients receive. Clients re-fetch on "collection" and
// re-read the session on "session"; messages carry no row data.
type Message struct {
	Type    string `json:"type"`
	Version uint64 `json:"version,omitempty"`
	Status  string `json:"status,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

func CollectionMessage(version uint64) []byte {
	out, _ := json.Marshal(Message{Type: TopicCollection, Version: version})
	return out
}

func SessionMessage(s domain.Session) []byte {
	out, _ := json.Marshal(Message{Type: TopicSession, Status: s.Status.String(), UserID: s.OwnerID()})
	return out
}
