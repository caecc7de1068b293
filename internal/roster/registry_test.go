package roster

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/transport"
)

func testRegistry() *Registry {
	return New(bus.New(), zap.NewNop())
}

func TestApplyRosterReplacesWholesale(t *testing.T) {
	r := testRegistry()

	r.ApplyRoster(json.RawMessage(`[{"id":"c1","name":"Ana"},{"id":"c2","name":"Bruno"}]`))
	if got := len(r.Chats()); got != 2 {
		t.Fatalf("chats = %d, want 2", got)
	}

	r.ApplyRoster(json.RawMessage(`[{"id":"c3","name":"Carla"}]`))
	chats := r.Chats()
	if len(chats) != 1 || chats[0].ID != "c3" {
		t.Errorf("chats = %+v, want only c3 (wholesale replace)", chats)
	}
}

func TestMalformedRosterDegradesToEmpty(t *testing.T) {
	r := testRegistry()
	r.ApplyRoster(json.RawMessage(`[{"id":"c1"}]`))

	r.ApplyRoster(json.RawMessage(`{"unexpected":"object"}`))
	if got := len(r.Chats()); got != 0 {
		t.Errorf("chats = %d, want 0 after malformed push", got)
	}
}

func TestLabelsSurviveOmission(t *testing.T) {
	// A chat that had labels in push one keeps them when push two omits it.
	// This asserts the observed merge-without-removal contract.
	r := testRegistry()

	r.ApplyRoster(json.RawMessage(`[{"id":"c1","labels":["l1","l2"]},{"id":"c2"}]`))
	if got := r.LabelsFor("c1"); len(got) != 2 {
		t.Fatalf("LabelsFor(c1) = %v, want [l1 l2]", got)
	}

	r.ApplyRoster(json.RawMessage(`[{"id":"c2"}]`))
	got := r.LabelsFor("c1")
	if len(got) != 2 || got[0] != "l1" || got[1] != "l2" {
		t.Errorf("LabelsFor(c1) = %v, want sticky [l1 l2] after omission", got)
	}
}

func TestLabelMergeUpdatesPresent(t *testing.T) {
	r := testRegistry()

	r.ApplyRoster(json.RawMessage(`[{"id":"c1","labels":["l1"]}]`))
	r.ApplyRoster(json.RawMessage(`[{"id":"c1","labels":["l5"]}]`))

	got := r.LabelsFor("c1")
	if len(got) != 1 || got[0] != "l5" {
		t.Errorf("LabelsFor(c1) = %v, want [l5]", got)
	}
}

func TestEmptyLabelListDoesNotClear(t *testing.T) {
	// An explicitly empty label array is indistinguishable from absence in
	// the merge: the last non-empty value stays.
	r := testRegistry()

	r.ApplyRoster(json.RawMessage(`[{"id":"c1","labels":["l1"]}]`))
	r.ApplyRoster(json.RawMessage(`[{"id":"c1","labels":[]}]`))

	if got := r.LabelsFor("c1"); len(got) != 1 {
		t.Errorf("LabelsFor(c1) = %v, want sticky [l1]", got)
	}
}

func TestApplyLabelCatalog(t *testing.T) {
	r := testRegistry()

	r.ApplyLabelCatalog(json.RawMessage(`[{"id":"l1","name":"VIP","color":"#ff0000"}]`))
	cat := r.Catalog()
	if len(cat) != 1 || cat[0].Name != "VIP" {
		t.Fatalf("catalog = %+v, want one VIP label", cat)
	}

	r.ApplyLabelCatalog(json.RawMessage(`[{"id":"l2","name":"New"}]`))
	cat = r.Catalog()
	if len(cat) != 1 || cat[0].ID != "l2" {
		t.Errorf("catalog = %+v, want wholesale replaced [l2]", cat)
	}

	// Malformed catalog push leaves the previous catalog untouched.
	r.ApplyLabelCatalog(json.RawMessage(`"nope"`))
	if cat := r.Catalog(); len(cat) != 1 || cat[0].ID != "l2" {
		t.Errorf("catalog = %+v, want unchanged after malformed push", cat)
	}
}

func TestStartConsumesBusPushes(t *testing.T) {
	b := bus.New()
	r := New(b, zap.NewNop())
	applied, unsub := b.Subscribe(KindRosterApplied, 4)
	defer unsub()

	r.Start(context.Background())
	defer r.Stop()

	b.Emit(transport.KindRoster, json.RawMessage(`[{"id":"c1","name":"Ana"}]`))

	select {
	case <-applied:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for roster.applied")
	}
	chats := r.Chats()
	if len(chats) != 1 || chats[0].Name != "Ana" {
		t.Errorf("chats = %+v, want Ana", chats)
	}
}
