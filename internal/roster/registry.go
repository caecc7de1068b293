// Package roster maintains the chat roster and the derived per-chat label
// associations. The roster itself is replaced wholesale on every push; the
// label side map is merged additively and never loses an entry for a chat
// the current push omits.
package roster

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/transport"
	"github.com/ignaciov/matechat/internal/wire"
)

// Bus event kinds published by the registry.
const (
	KindRosterApplied  = "roster.applied"
	KindCatalogApplied = "roster.catalog_applied"
)

// Registry holds the canonical chat roster, the label catalog, and the
// chatID -> labelIDs side map.
type Registry struct {
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.RWMutex
	chats   []wire.Chat
	labels  map[string][]string
	catalog []wire.Label

	cancel context.CancelFunc
}

// New creates an empty registry.
func New(b *bus.Bus, logger *zap.Logger) *Registry {
	return &Registry{
		bus:    b,
		logger: logger,
		labels: make(map[string][]string),
	}
}

// Start subscribes to gateway roster and label-catalog pushes.
func (r *Registry) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe("gw.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				switch evt.Kind {
				case transport.KindRoster:
					if raw, ok := evt.Payload.(json.RawMessage); ok {
						r.ApplyRoster(raw)
					}
				case transport.KindLabels:
					if raw, ok := evt.Payload.(json.RawMessage); ok {
						r.ApplyLabelCatalog(raw)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops event handling.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// ApplyRoster replaces the chat roster wholesale from a push payload. A
// malformed payload degrades to an empty roster with a warning rather than
// an error. Independently, chats carrying a non-empty label list are merged
// into the side map; chats absent from the push keep their last-seen labels.
func (r *Registry) ApplyRoster(payload json.RawMessage) {
	chats, err := wire.ParseRoster(payload)
	if err != nil {
		r.logger.Warn("roster push not a well-formed chat list", zap.Error(err))
		chats = nil
	}

	r.mu.Lock()
	r.chats = chats
	for _, c := range chats {
		if len(c.LabelIDs) > 0 {
			r.labels[c.ID] = c.LabelIDs
		}
	}
	r.mu.Unlock()

	r.bus.Emit(KindRosterApplied, len(chats))
}

// ApplyLabelCatalog replaces the global label catalog wholesale.
func (r *Registry) ApplyLabelCatalog(payload json.RawMessage) {
	labels, err := wire.ParseLabelCatalog(payload)
	if err != nil {
		r.logger.Warn("malformed label catalog push", zap.Error(err))
		return
	}

	r.mu.Lock()
	r.catalog = labels
	r.mu.Unlock()

	r.bus.Emit(KindCatalogApplied, len(labels))
}

// Chats returns the current roster snapshot.
func (r *Registry) Chats() []wire.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

// Chat returns the roster entry for a chat id, if present.
func (r *Registry) Chat(chatID string) (wire.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.chats {
		if c.ID == chatID {
			return c, true
		}
	}
	return wire.Chat{}, false
}

// LabelsFor returns the most recent non-empty label set ever observed for a
// chat. Labels are sticky: a later roster push omitting the chat does not
// clear them.
func (r *Registry) LabelsFor(chatID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.labels[chatID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Catalog returns the current label catalog snapshot.
func (r *Registry) Catalog() []wire.Label {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.Label, len(r.catalog))
	copy(out, r.catalog)
	return out
}
