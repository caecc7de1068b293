// Package label requests label attach/detach for chats. Requests are
// fire-and-forget: there is no optimistic local mutation and no rollback;
// the UI converges when a later roster push echoes the server's truth.
package label

import (
	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/wire"
)

// Emitter sends fire-and-forget events over the gateway connection.
// Satisfied by *transport.Client.
type Emitter interface {
	Emit(event string, payload any) error
}

// Channel sends label mutations.
type Channel struct {
	emitter Emitter
	logger  *zap.Logger
}

// NewChannel creates a label sync channel.
func NewChannel(e Emitter, logger *zap.Logger) *Channel {
	return &Channel{emitter: e, logger: logger}
}

// Assign requests attaching a label to a chat.
func (c *Channel) Assign(chatID, labelID string) {
	c.send(wire.EventAssignLabel, chatID, labelID)
}

// Unassign requests detaching a label from a chat.
func (c *Channel) Unassign(chatID, labelID string) {
	c.send(wire.EventUnassignLabel, chatID, labelID)
}

func (c *Channel) send(event, chatID, labelID string) {
	err := c.emitter.Emit(event, wire.LabelRequest{ChatID: chatID, LabelID: labelID})
	if err != nil {
		// No error surface by contract; a dropped request is reconciled by
		// the next roster push, so this is only worth a log line.
		c.logger.Warn("label mutation not sent",
			zap.String("event", event),
			zap.String("chat", chatID),
			zap.String("label", labelID),
			zap.Error(err))
	}
}
