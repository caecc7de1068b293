// Package wire defines the event contract spoken over the gateway
// connection: frame envelope, event names, and payload types.
package wire

import (
	"encoding/json"
	"fmt"
)

// Outbound event names.
const (
	EventClientReady   = "client-ready"
	EventFetchMessages = "fetch-messages"
	EventSendMessage   = "send-message"
	EventAssignLabel   = "assign-label"
	EventUnassignLabel = "unassign-label"
	EventLogout        = "logout"
)

// Inbound event names.
const (
	EventQR          = "qr"
	EventAuth        = "authenticated"
	EventReady       = "ready"
	EventAuthFailure = "auth_failure"
	EventChatUpdate  = "chat-update"
	EventLabelUpdate = "labels-update"
	EventMessage     = "message-received"
	EventResponse    = "response"
)

// Frame is the JSON envelope for every message on the socket.
// ID is set only on request frames and their matching response frames.
type Frame struct {
	Event   string          `json:"event"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageKind enumerates supported message content kinds.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindAudio    MessageKind = "audio"
	KindVideo    MessageKind = "video"
	KindDocument MessageKind = "document"
)

// Chat is one entry of a roster push.
type Chat struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	IsGroup            bool     `json:"isGroup"`
	LastMessagePreview string   `json:"lastMessagePreview"`
	UnreadCount        int      `json:"unreadCount"`
	LastActivity       int64    `json:"lastActivity"`
	AvatarURL          string   `json:"avatarURL,omitempty"`
	LabelIDs           []string `json:"labels,omitempty"`
}

// Message is a single chat message, live-pushed or page-fetched.
type Message struct {
	ID        string      `json:"id"`
	ChatID    string      `json:"chatId"`
	FromMe    bool        `json:"fromMe"`
	Body      string      `json:"body"`
	Kind      MessageKind `json:"type"`
	Timestamp int64       `json:"timestamp"`
	ReplyToID string      `json:"replyTo,omitempty"`
}

// Label is one entry of the global label catalog.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// FetchMessagesRequest is the payload of a fetch-messages request.
// Before, when set, is the exclusive upper-bound message id.
type FetchMessagesRequest struct {
	ChatID string `json:"chatId"`
	Limit  int    `json:"limit"`
	Before string `json:"before,omitempty"`
}

// SendMessageRequest is the payload of a send-message emit.
type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
}

// LabelRequest is the payload of assign-label / unassign-label emits.
type LabelRequest struct {
	ChatID  string `json:"chatId"`
	LabelID string `json:"labelId"`
}

// PairingChallenge is the payload of a qr push. The gateway sends either a
// bare string or an object with a "qr" field; both are accepted.
type PairingChallenge struct {
	Code string
}

// UnmarshalJSON accepts both challenge encodings.
func (p *PairingChallenge) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		p.Code = s
		return nil
	}
	var obj struct {
		QR string `json:"qr"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode pairing challenge: %w", err)
	}
	p.Code = obj.QR
	return nil
}

// ParseRoster decodes a chat-update payload. A payload that is not a
// well-formed chat list yields an empty roster and an error; the caller is
// expected to log the error and carry on with the empty roster.
func ParseRoster(payload json.RawMessage) ([]Chat, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty roster payload")
	}
	var chats []Chat
	if err := json.Unmarshal(payload, &chats); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return chats, nil
}

// ParseLabelCatalog decodes a labels-update payload.
func ParseLabelCatalog(payload json.RawMessage) ([]Label, error) {
	var labels []Label
	if err := json.Unmarshal(payload, &labels); err != nil {
		return nil, fmt.Errorf("decode label catalog: %w", err)
	}
	return labels, nil
}

// ParseMessage decodes a message-received payload.
func ParseMessage(payload json.RawMessage) (*Message, error) {
	var m Message
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if m.Kind == "" {
		m.Kind = KindText
	}
	return &m, nil
}

// ParseMessagePage decodes a fetch-messages response payload. The gateway
// returns messages in ascending chronological order (oldest first).
func ParseMessagePage(payload json.RawMessage) ([]Message, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var msgs []Message
	if err := json.Unmarshal(payload, &msgs); err != nil {
		return nil, fmt.Errorf("decode message page: %w", err)
	}
	return msgs, nil
}
