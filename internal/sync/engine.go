// Package sync mirrors gateway pushes into the local cache so a relaunch
// warm-starts from the last known roster and messages.
package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/store"
	"github.com/ignaciov/matechat/internal/transport"
	"github.com/ignaciov/matechat/internal/wire"
)

// Engine handles idempotent ingestion of gateway pushes into the cache.
// It subscribes to "gw." events on the bus and processes them in arrival
// order.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates a new sync engine.
func NewEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		bus:    b,
		logger: logger,
	}
}

// Start subscribes to inbound gateway events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("gw.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	raw, ok := evt.Payload.(json.RawMessage)
	if !ok {
		return
	}
	switch evt.Kind {
	case transport.KindRoster:
		if err := e.IngestRoster(raw); err != nil {
			e.logger.Error("failed to cache roster", zap.Error(err))
		}
	case transport.KindLabels:
		if err := e.IngestLabelCatalog(raw); err != nil {
			e.logger.Error("failed to cache label catalog", zap.Error(err))
		}
	case transport.KindMessage:
		if err := e.IngestMessage(raw); err != nil {
			e.logger.Error("failed to cache message", zap.Error(err))
		}
	}
}

// IngestRoster caches a roster snapshot. Malformed snapshots are skipped
// without clearing the cache: stale chats beat none on the next warm start.
func (e *Engine) IngestRoster(payload json.RawMessage) error {
	chats, err := wire.ParseRoster(payload)
	if err != nil {
		return fmt.Errorf("parse roster: %w", err)
	}

	cached := make([]store.Chat, 0, len(chats))
	labels := make(map[string][]string)
	for _, c := range chats {
		cached = append(cached, store.Chat{
			ID:           c.ID,
			Name:         c.Name,
			IsGroup:      c.IsGroup,
			UnreadCount:  c.UnreadCount,
			LastActivity: c.LastActivity,
			LastPreview:  c.LastMessagePreview,
			AvatarURL:    c.AvatarURL,
		})
		if len(c.LabelIDs) > 0 {
			labels[c.ID] = c.LabelIDs
		}
	}

	if err := e.db.ReplaceChats(cached, labels); err != nil {
		return fmt.Errorf("replace chats: %w", err)
	}
	e.bus.Emit("cache.roster_updated", len(cached))
	return nil
}

// IngestLabelCatalog caches a label catalog push.
func (e *Engine) IngestLabelCatalog(payload json.RawMessage) error {
	labels, err := wire.ParseLabelCatalog(payload)
	if err != nil {
		return fmt.Errorf("parse label catalog: %w", err)
	}

	cached := make([]store.Label, 0, len(labels))
	for _, l := range labels {
		cached = append(cached, store.Label{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	if err := e.db.ReplaceLabels(cached); err != nil {
		return fmt.Errorf("replace labels: %w", err)
	}
	return nil
}

// IngestMessage caches a live message push (idempotent).
func (e *Engine) IngestMessage(payload json.RawMessage) error {
	msg, err := wire.ParseMessage(payload)
	if err != nil {
		return fmt.Errorf("parse message: %w", err)
	}

	if err := e.db.UpsertMessage(&store.Message{
		ChatID:    msg.ChatID,
		MsgID:     msg.ID,
		FromMe:    msg.FromMe,
		Body:      msg.Body,
		Kind:      string(msg.Kind),
		ReplyTo:   msg.ReplyToID,
		Timestamp: msg.Timestamp,
	}); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	e.bus.Emit("cache.message_upserted", map[string]string{
		"chat_id": msg.ChatID,
		"msg_id":  msg.ID,
	})
	return nil
}
