package outbox

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/conn"
	"github.com/ignaciov/matechat/internal/store"
)

// mockEmitter records emits and returns a configurable error.
type mockEmitter struct {
	mu    sync.Mutex
	calls []emitCall
	err   error
}

type emitCall struct {
	Event   string
	Payload any
}

func (m *mockEmitter) Emit(event string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, emitCall{Event: event, Payload: payload})
	return m.err
}

func (m *mockEmitter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// fixedState always reports the same connection state.
type fixedState struct{ state conn.State }

func (f fixedState) Current() conn.State { return f.state }

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSenderProcessesPendingMessages(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockEmitter{}
	s := NewSender(db, mock, fixedState{conn.Ready}, b, zap.NewNop())

	ch, unsub := b.Subscribe("outbox.sent", 10)
	defer unsub()

	if err := db.QueueOutbox("c1", "chat-1", "hello"); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	select {
	case evt := <-ch:
		if evt.Kind != "outbox.sent" {
			t.Errorf("event kind = %q, want outbox.sent", evt.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbox.sent event")
	}

	if got := mock.callCount(); got != 1 {
		t.Fatalf("got %d emits, want 1", got)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0 after send", len(pending))
	}
}

func TestSenderHoldsUntilReady(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockEmitter{}
	s := NewSender(db, mock, fixedState{conn.Disconnected}, b, zap.NewNop())

	if err := db.QueueOutbox("c1", "chat-1", "held"); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	time.Sleep(1200 * time.Millisecond)

	if got := mock.callCount(); got != 0 {
		t.Fatalf("got %d emits while disconnected, want 0", got)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("got %d pending, want 1 (held until ready)", len(pending))
	}
}

func TestSenderHandlesFailure(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockEmitter{err: fmt.Errorf("connection lost")}
	s := NewSender(db, mock, fixedState{conn.Ready}, b, zap.NewNop())

	ch, unsub := b.Subscribe("outbox.send_failed", 10)
	defer unsub()

	if err := db.QueueOutbox("c1", "chat-1", "hello"); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	select {
	case evt := <-ch:
		if evt.Kind != "outbox.send_failed" {
			t.Errorf("event kind = %q, want outbox.send_failed", evt.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for outbox.send_failed event")
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending, want 0 (should be marked failed)", len(pending))
	}
}

// TestSenderOptimisticInsert verifies the queued message appears in the
// messages cache before the emit completes, so the thread shows it
// immediately.
func TestSenderOptimisticInsert(t *testing.T) {
	db := testDB(t)
	b := bus.New()
	mock := &mockEmitter{}
	s := NewSender(db, mock, fixedState{conn.Ready}, b, zap.NewNop())

	ch, unsub := b.Subscribe("cache.message_upserted", 10)
	defer unsub()

	if err := db.QueueOutbox("c1", "chat-1", "optimistic"); err != nil {
		t.Fatal(err)
	}

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for cache.message_upserted event")
	}

	msgs, err := db.ListMessages("chat-1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (optimistic insert)", len(msgs))
	}
	if msgs[0].Body != "optimistic" {
		t.Errorf("body = %q, want 'optimistic'", msgs[0].Body)
	}
	if !msgs[0].FromMe {
		t.Error("from_me = false, want true")
	}
}
