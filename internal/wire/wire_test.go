package wire

import (
	"encoding/json"
	"testing"
)

func TestPairingChallengeDecodesBothEncodings(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
		wantErr bool
	}{
		{name: "bare string", payload: `"2@abc123"`, want: "2@abc123"},
		{name: "object", payload: `{"qr":"2@abc123"}`, want: "2@abc123"},
		{name: "object extra fields", payload: `{"qr":"x","ttl":30}`, want: "x"},
		{name: "number", payload: `42`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p PairingChallenge
			err := json.Unmarshal([]byte(tc.payload), &p)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Code != tc.want {
				t.Errorf("code = %q, want %q", p.Code, tc.want)
			}
		})
	}
}

func TestParseRoster(t *testing.T) {
	chats, err := ParseRoster(json.RawMessage(`[{"id":"c1","name":"Ana","labels":["l1","l2"]}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 {
		t.Fatalf("got %d chats, want 1", len(chats))
	}
	if len(chats[0].LabelIDs) != 2 {
		t.Errorf("labels = %v, want 2 entries", chats[0].LabelIDs)
	}

	if _, err := ParseRoster(json.RawMessage(`{"not":"a list"}`)); err == nil {
		t.Error("expected error for non-list roster")
	}
	if _, err := ParseRoster(nil); err == nil {
		t.Error("expected error for empty payload")
	}
}

func TestParseMessageDefaultsKind(t *testing.T) {
	m, err := ParseMessage(json.RawMessage(`{"id":"m1","chatId":"c1","body":"hi","timestamp":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind != KindText {
		t.Errorf("kind = %q, want text", m.Kind)
	}
}

func TestParseMessagePage(t *testing.T) {
	msgs, err := ParseMessagePage(json.RawMessage(`[{"id":"m1","chatId":"c1","timestamp":1},{"id":"m2","chatId":"c1","timestamp":2}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != "m1" {
		t.Errorf("first message = %q, want m1 (oldest first)", msgs[0].ID)
	}

	empty, err := ParseMessagePage(json.RawMessage(`[]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d messages, want 0", len(empty))
	}
}

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{Event: EventFetchMessages, ID: "req-1", Payload: json.RawMessage(`{"chatId":"c1","limit":50}`)}
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}

	var got Frame
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.Event != EventFetchMessages || got.ID != "req-1" {
		t.Errorf("frame = %+v", got)
	}
}
