package store

// Chat is a cached roster entry.
type Chat struct {
	ID           string
	Name         string
	IsGroup      bool
	UnreadCount  int
	LastActivity int64
	LastPreview  string
	AvatarURL    string
}

// Message is a cached chat message.
type Message struct {
	ChatID    string
	MsgID     string
	FromMe    bool
	Body      string
	Kind      string
	ReplyTo   string
	Timestamp int64
}

// Label is a cached label catalog entry.
type Label struct {
	ID    string
	Name  string
	Color string
}

// OutboxEntry is a pending outgoing message.
type OutboxEntry struct {
	ID           int64
	ClientMsgID  string
	ChatID       string
	Body         string
	Status       string // queued, sending, sent, failed
	ErrorMessage string
}
