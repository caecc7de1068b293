// Package window holds the paginated in-memory message cache for the
// currently selected chat: initial page load, backward pagination with
// de-duplication, and live appends.
package window

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/transport"
	"github.com/ignaciov/matechat/internal/wire"
)

// Bus event kinds published by the window.
const (
	// KindUpdated fires after any window mutation. Payload is the chat id.
	KindUpdated = "window.updated"
	// KindPrepended fires when older messages were inserted at the front.
	// Payload is the number of prepended messages; the scroll controller
	// uses it to anchor the viewport.
	KindPrepended = "window.prepended"
	// KindError fires when a page request fails or times out.
	KindError = "window.error"
)

// Fetcher requests one message page from the gateway. beforeID, when
// non-empty, is the exclusive upper-bound cursor. The returned page is in
// ascending chronological order.
type Fetcher interface {
	FetchPage(ctx context.Context, chatID string, limit int, beforeID string) ([]wire.Message, error)
}

// Options tunes the window.
type Options struct {
	InitialPageSize int
	OlderPageSize   int
	// FetchTimeout bounds each page request. Zero disables the timeout,
	// reproducing the observed contract where a dropped request wedges the
	// loading flag until the chat is re-selected.
	FetchTimeout time.Duration
}

// Snapshot is a copy of the window state for consumers.
type Snapshot struct {
	ChatID         string
	Messages       []wire.Message
	HasMore        bool
	LoadingInitial bool
	LoadingOlder   bool
}

// Window is the message cache for exactly one chat at a time.
type Window struct {
	fetcher Fetcher
	bus     *bus.Bus
	logger  *zap.Logger
	opts    Options

	mu             sync.Mutex
	chatID         string
	epoch          uint64
	messages       []wire.Message
	hasMore        bool
	loadingInitial bool
	loadingOlder   bool

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an empty window.
func New(f Fetcher, opts Options, b *bus.Bus, logger *zap.Logger) *Window {
	if opts.InitialPageSize <= 0 {
		opts.InitialPageSize = 50
	}
	if opts.OlderPageSize <= 0 {
		opts.OlderPageSize = 20
	}
	return &Window{
		fetcher: f,
		bus:     b,
		logger:  logger,
		opts:    opts,
		ctx:     context.Background(),
	}
}

// Start subscribes to live message pushes. Optional; Select/LoadOlder work
// without it (the TUI-less tests drive OnLive directly).
func (w *Window) Start(ctx context.Context) {
	w.ctx, w.cancel = context.WithCancel(ctx)
	ch, unsub := w.bus.Subscribe(transport.KindMessage, 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				raw, ok := evt.Payload.(json.RawMessage)
				if !ok {
					continue
				}
				msg, err := wire.ParseMessage(raw)
				if err != nil {
					w.logger.Warn("malformed live message", zap.Error(err))
					continue
				}
				w.OnLive(*msg)
			case <-w.ctx.Done():
				return
			}
		}
	}()
}

// Stop stops live message handling.
func (w *Window) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}

// Select binds the window to a chat: all prior state is discarded and the
// most recent page is requested with no cursor. Selecting a new chat while
// a request for the previous chat is in flight does not cancel it; the late
// response is discarded by the epoch check instead.
func (w *Window) Select(chatID string) {
	w.mu.Lock()
	w.chatID = chatID
	w.epoch++
	epoch := w.epoch
	w.messages = nil
	w.hasMore = true
	w.loadingInitial = true
	w.loadingOlder = false
	w.mu.Unlock()

	w.bus.Emit(KindUpdated, chatID)

	go func() {
		page, err := w.fetchPage(chatID, w.opts.InitialPageSize, "")

		w.mu.Lock()
		if w.epoch != epoch {
			// The user moved on; this page belongs to an abandoned chat.
			w.mu.Unlock()
			return
		}
		w.loadingInitial = false
		if err == nil {
			w.messages = page
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Warn("initial page load failed", zap.String("chat", chatID), zap.Error(err))
			w.bus.Emit(KindError, err.Error())
		}
		w.bus.Emit(KindUpdated, chatID)
	}()
}

// LoadOlder requests the page preceding the oldest loaded message. It is a
// no-op while no chat is selected, a backward request is already in flight,
// the history is exhausted, or the window is still empty; this keeps at
// most one backward request in flight per chat.
func (w *Window) LoadOlder() {
	w.mu.Lock()
	if w.chatID == "" || w.loadingOlder || w.loadingInitial || !w.hasMore || len(w.messages) == 0 {
		w.mu.Unlock()
		return
	}
	w.loadingOlder = true
	chatID := w.chatID
	epoch := w.epoch
	beforeID := w.messages[0].ID
	w.mu.Unlock()

	w.bus.Emit(KindUpdated, chatID)

	go func() {
		page, err := w.fetchPage(chatID, w.opts.OlderPageSize, beforeID)

		w.mu.Lock()
		if w.epoch != epoch {
			w.mu.Unlock()
			return
		}
		w.loadingOlder = false

		prepended := 0
		switch {
		case err != nil:
		case len(page) == 0:
			// Only an explicitly empty page signals exhaustion; a short
			// page keeps hasMore true at the cost of one extra round-trip.
			w.hasMore = false
		default:
			seen := make(map[string]struct{}, len(w.messages))
			for _, m := range w.messages {
				seen[m.ID] = struct{}{}
			}
			fresh := page[:0:len(page)]
			for _, m := range page {
				if _, dup := seen[m.ID]; !dup {
					fresh = append(fresh, m)
				}
			}
			w.messages = append(fresh, w.messages...)
			prepended = len(fresh)
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.Warn("older page load failed", zap.String("chat", chatID), zap.Error(err))
			w.bus.Emit(KindError, err.Error())
		}
		if prepended > 0 {
			w.bus.Emit(KindPrepended, prepended)
		}
		w.bus.Emit(KindUpdated, chatID)
	}()
}

// OnLive appends a pushed message if it targets the selected chat. Arrival
// order is append-only: no reordering and no cursor interaction.
func (w *Window) OnLive(msg wire.Message) {
	w.mu.Lock()
	if msg.ChatID != w.chatID || w.chatID == "" {
		w.mu.Unlock()
		return
	}
	w.messages = append(w.messages, msg)
	chatID := w.chatID
	w.mu.Unlock()

	w.bus.Emit(KindUpdated, chatID)
}

// Snapshot returns a copy of the current window state.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := make([]wire.Message, len(w.messages))
	copy(msgs, w.messages)
	return Snapshot{
		ChatID:         w.chatID,
		Messages:       msgs,
		HasMore:        w.hasMore,
		LoadingInitial: w.loadingInitial,
		LoadingOlder:   w.loadingOlder,
	}
}

func (w *Window) fetchPage(chatID string, limit int, beforeID string) ([]wire.Message, error) {
	ctx := w.ctx
	if w.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.FetchTimeout)
		defer cancel()
	}
	return w.fetcher.FetchPage(ctx, chatID, limit, beforeID)
}
