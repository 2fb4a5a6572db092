package hub

import (
	"context"
	"sync"
	"testing"
	"time"
)

type testWriter struct {
	mu     sync.Mutex
	writes int
	fail   bool
	closed bool
}

func (w *testWriter) Write(message []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes++
	if w.fail {
		return errTest
	}
	return nil
}

func (w *testWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *testWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

var errTest = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "test" }

func TestHub_RegisterBroadcastUnregister(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	c1 := &Connection{Topics: []string{TopicCollection}, Writer: w1}

	h.Register(c1)
	h.Broadcast(TopicCollection, []byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected 1 write, got %d", w1.count())
	}

	h.Unregister(c1)
	h.Broadcast(TopicCollection, []byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected no more writes, got %d", w1.count())
	}
	if h.Count(TopicCollection) != 0 {
		t.Fatalf("expected empty topic, got %d", h.Count(TopicCollection))
	}
}

func TestHub_TopicsAreIsolated(t *testing.T) {
	h := New()
	both := &testWriter{}
	sessionOnly := &testWriter{}
	h.Register(&Connection{Topics: []string{TopicCollection, TopicSession}, Writer: both})
	h.Register(&Connection{Topics: []string{TopicSession}, Writer: sessionOnly})

	h.Broadcast(TopicCollection, []byte("x"))
	h.Broadcast(TopicSession, []byte("y"))

	if both.count() != 2 {
		t.Errorf("expected 2 writes, got %d", both.count())
	}
	if sessionOnly.count() != 1 {
		t.Errorf("expected 1 write, got %d", sessionOnly.count())
	}
}

func TestHub_RemovesFailedConnections(t *testing.T) {
	h := New()
	w1 := &testWriter{fail: true}
	c1 := &Connection{Topics: []string{TopicCollection}, Writer: w1}
	h.Register(c1)

	h.Broadcast(TopicCollection, []byte("x"))
	h.Broadcast(TopicCollection, []byte("x"))
	if w1.count() != 1 {
		t.Fatalf("expected only 1 write before removal, got %d", w1.count())
	}
	if !w1.closed {
		t.Fatal("failed connection was not closed")
	}
}

func TestHub_PublishAndRun(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	h.Register(&Connection{Topics: []string{TopicCollection}, Writer: w1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	if !h.Publish(TopicCollection, []byte("x")) {
		t.Fatal("Publish dropped a message on an empty queue")
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && w1.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if w1.count() != 1 {
		t.Fatalf("expected 1 write, got %d", w1.count())
	}
}

func TestHub_CloseAll(t *testing.T) {
	h := New()
	w1 := &testWriter{}
	h.Register(&Connection{Topics: []string{TopicCollection, TopicSession}, Writer: w1})

	h.CloseAll()

	if !w1.closed {
		t.Fatal("connection was not closed")
	}
	if h.Count(TopicCollection) != 0 || h.Count(TopicSession) != 0 {
		t.Fatal("connections still registered after CloseAll")
	}
}
