// Package outbox drains queued outgoing messages to the gateway once the
// session is ready, so composing while offline never loses text.
package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/conn"
	"github.com/ignaciov/matechat/internal/store"
	"github.com/ignaciov/matechat/internal/wire"
)

// Emitter pushes fire-and-forget events to the gateway.
type Emitter interface {
	Emit(event string, payload any) error
}

// StateSource reports the current connection state.
type StateSource interface {
	Current() conn.State
}

// Sender drains the outbox and emits send-message events to the gateway.
// Entries queued while disconnected are held until the session is ready.
type Sender struct {
	db      *store.DB
	emitter Emitter
	state   StateSource
	bus     *bus.Bus
	logger  *zap.Logger
	cancel  context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, emitter Emitter, state StateSource, b *bus.Bus, logger *zap.Logger) *Sender {
	return &Sender{
		db:      db,
		emitter: emitter,
		state:   state,
		bus:     b,
		logger:  logger,
	}
}

// Start begins polling the outbox for pending messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.state.Current() != conn.Ready {
				continue
			}
			s.processPending()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) processPending() {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return
	}

	for _, entry := range pending {
		if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			continue
		}

		// Optimistic insert: show the message in the thread immediately.
		_ = s.db.UpsertMessage(&store.Message{
			ChatID:    entry.ChatID,
			MsgID:     entry.ClientMsgID,
			FromMe:    true,
			Body:      entry.Body,
			Kind:      "text",
			Timestamp: time.Now().UnixMilli(),
		})
		s.bus.Emit("cache.message_upserted", map[string]string{
			"chat_id": entry.ChatID,
			"msg_id":  entry.ClientMsgID,
		})

		err := s.emitter.Emit(wire.EventSendMessage, wire.SendMessageRequest{
			ChatID:  entry.ChatID,
			Content: entry.Body,
		})
		if err != nil {
			s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
			_ = s.db.MarkOutboxFailed(entry.ClientMsgID, err.Error())
			s.bus.Emit("outbox.send_failed", map[string]string{
				"client_msg_id": entry.ClientMsgID,
				"error":         err.Error(),
			})
			continue
		}

		if err := s.db.MarkOutboxSent(entry.ClientMsgID); err != nil {
			s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		}

		s.logger.Info("message sent", zap.String("client_msg_id", entry.ClientMsgID), zap.String("chat_id", entry.ChatID))
		s.bus.Emit("outbox.sent", map[string]string{
			"client_msg_id": entry.ClientMsgID,
			"chat_id":       entry.ChatID,
		})
	}
}
