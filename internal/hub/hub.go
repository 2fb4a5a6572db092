// Package hub fans invalidation messages out to connected UI clients.
package hub

import (
	"context"
	"sync"
)

// Topics UI clients can listen to
const (
	TopicCollection = "collection"
	TopicSession    = "session"
)

type Writer interface {
	Write(message []byte) error
	Close() error
}

type Connection struct {
	Topics []string
	Writer Writer
}

type envelope struct {
	topic   string
	message []byte
}

type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{}
	queue       chan envelope
}

func New() *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		queue:       make(chan envelope, 64),
	}
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range conn.Topics {
		if h.connections[topic] == nil {
			h.connections[topic] = make(map[*Connection]struct{})
		}
		h.connections[topic][conn] = struct{}{}
	}
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range conn.Topics {
		set := h.connections[topic]
		if set == nil {
			continue
		}
		delete(set, conn)
		if len(set) == 0 {
			delete(h.connections, topic)
		}
	}
}

// Count returns the number of connections listening to topic
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections[topic])
}

// Broadcast writes message to every connection of topic synchronously.
// Connections whose write fails are closed and dropped.
func (h *Hub) Broadcast(topic string, message []byte) {
	h.mu.RLock()
	set := h.connections[topic]
	conns := make([]*Connection, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var failed []*Connection
	for _, c := range conns {
		if err := c.Writer.Write(message); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		_ = c.Writer.Close()
		h.Unregister(c)
	}
}

// Publish queues a broadcast for Run without blocking the caller.
// It reports false when the queue is full and the message was dropped.
func (h *Hub) Publish(topic string, message []byte) bool {
	select {
	case h.queue <- envelope{topic: topic, message: message}:
		return true
	default:
		return false
	}
}

// Run delivers queued messages until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case env := <-h.queue:
			h.Broadcast(env.topic, env.message)
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll closes and drops every connection
func (h *Hub) CloseAll() {
	h.mu.Lock()
	seen := make(map[*Connection]struct{})
	for _, set := range h.connections {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	h.connections = make(map[string]map[*Connection]struct{})
	h.mu.Unlock()

	for c := range seen {
		_ = c.Writer.Close()
	}
}
