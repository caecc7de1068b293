package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestReplaceChatsWholesale(t *testing.T) {
	db := testDB(t)

	err := db.ReplaceChats([]Chat{
		{ID: "c1", Name: "Ana", LastActivity: 2000},
		{ID: "c2", Name: "Bruno", LastActivity: 1000},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].ID != "c1" {
		t.Fatalf("chats = %+v, want [c1 c2] by activity", chats)
	}

	// The next snapshot replaces everything.
	if err := db.ReplaceChats([]Chat{{ID: "c3", Name: "Carla"}}, nil); err != nil {
		t.Fatal(err)
	}
	chats, _ = db.ListChats(10)
	if len(chats) != 1 || chats[0].ID != "c3" {
		t.Errorf("chats = %+v, want only c3 after replace", chats)
	}
}

func TestChatLabelsSurviveReplace(t *testing.T) {
	db := testDB(t)

	err := db.ReplaceChats([]Chat{{ID: "c1"}}, map[string][]string{"c1": {"l1", "l2"}})
	if err != nil {
		t.Fatal(err)
	}

	// Snapshot without c1's labels: the cached association stays.
	if err := db.ReplaceChats([]Chat{{ID: "c2"}}, nil); err != nil {
		t.Fatal(err)
	}

	ids, err := db.LabelsForChat("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "l1" || ids[1] != "l2" {
		t.Errorf("labels = %v, want sticky [l1 l2]", ids)
	}
}

func TestGetChatMissing(t *testing.T) {
	db := testDB(t)
	c, err := db.GetChat("nope")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("GetChat(nope) = %+v, want nil", c)
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	db := testDB(t)

	m := &Message{ChatID: "c1", MsgID: "m1", Body: "v1", Kind: "text", Timestamp: 1000}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Body = "v2"
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent)", len(msgs))
	}
	if msgs[0].Body != "v2" {
		t.Errorf("body = %q, want v2 (updated)", msgs[0].Body)
	}
}

func TestListMessagesKeysetPagination(t *testing.T) {
	db := testDB(t)

	for i, ts := range []int64{1000, 2000, 3000} {
		msg := &Message{ChatID: "c1", MsgID: string(rune('a' + i)), Body: "x", Kind: "text", Timestamp: ts}
		if err := db.UpsertMessage(msg); err != nil {
			t.Fatal(err)
		}
	}

	// Newest page first.
	msgs, err := db.ListMessages("c1", 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Timestamp != 3000 {
		t.Fatalf("page = %+v, want newest two", msgs)
	}

	// Page before the oldest of the first page.
	msgs, err = db.ListMessages("c1", 2000, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Timestamp != 1000 {
		t.Errorf("page = %+v, want just ts=1000", msgs)
	}
}

func TestReplaceLabels(t *testing.T) {
	db := testDB(t)

	if err := db.ReplaceLabels([]Label{{ID: "l1", Name: "VIP", Color: "#f00"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceLabels([]Label{{ID: "l2", Name: "New"}}); err != nil {
		t.Fatal(err)
	}

	labels, err := db.ListLabels()
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 1 || labels[0].ID != "l2" {
		t.Errorf("labels = %+v, want wholesale replaced [l2]", labels)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox("cm1", "c1", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox("cm2", "c1", "world"); err != nil {
		t.Fatal(err)
	}

	pending, err := db.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := db.MarkOutboxSending("cm1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxSent("cm1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("cm2", "gateway down"); err != nil {
		t.Fatal(err)
	}

	pending, _ = db.PendingOutbox()
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0 after resolution", len(pending))
	}
}
