// Package conn supervises the single gateway connection for an
// authenticated session: it owns transport start/stop, runs the
// pairing/authentication state machine, and holds the current pairing
// challenge.
package conn

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/transport"
	"github.com/ignaciov/matechat/internal/wire"
)

// Bus event kinds published by the manager.
const (
	KindStateChanged = "conn.state_changed"
	KindAuthFailure  = "conn.auth_failure"
	KindChallenge    = "conn.challenge"
)

// Transport is the surface the manager needs from the gateway connection.
type Transport interface {
	Start(ctx context.Context)
	Stop()
	Emit(event string, payload any) error
}

// Manager drives the connection state machine from transport bus events.
// It is the only component allowed to open or close the transport.
type Manager struct {
	machine   *Machine
	transport Transport
	bus       *bus.Bus
	logger    *zap.Logger

	mu        sync.RWMutex
	challenge string

	cancel context.CancelFunc
	unsub  func()
}

// NewManager creates a connection manager.
func NewManager(t Transport, m *Machine, b *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		machine:   m,
		transport: t,
		bus:       b,
		logger:    logger,
	}
}

// Start opens the transport and begins consuming its events.
func (mgr *Manager) Start(ctx context.Context) {
	ctx, mgr.cancel = context.WithCancel(ctx)

	ch, unsub := mgr.bus.Subscribe("gw.", 256)
	mgr.unsub = unsub

	_ = mgr.machine.Transition(Connecting)
	mgr.transport.Start(ctx)

	go func() {
		for {
			select {
			case evt := <-ch:
				mgr.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop closes the transport and stops event handling. Must be called on
// teardown so no live socket or duplicate handlers survive into a
// re-established session.
func (mgr *Manager) Stop() {
	if mgr.cancel != nil {
		mgr.cancel()
	}
	if mgr.unsub != nil {
		mgr.unsub()
	}
	mgr.transport.Stop()
	if mgr.machine.Current() != Disconnected {
		_ = mgr.machine.Transition(Disconnected)
	}
}

// State returns the current connection state.
func (mgr *Manager) State() State {
	return mgr.machine.Current()
}

// Challenge returns the current pairing challenge code, if any.
func (mgr *Manager) Challenge() (string, bool) {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return mgr.challenge, mgr.challenge != ""
}

// Logout requests session/pairing teardown from the gateway. It is a
// one-way signal: local state does not change until the resulting pairing
// challenge push arrives.
func (mgr *Manager) Logout() error {
	return mgr.transport.Emit(wire.EventLogout, nil)
}

func (mgr *Manager) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case transport.KindConnected:
		if mgr.machine.Current() == Disconnected {
			_ = mgr.machine.Transition(Connecting)
		}
		// The gateway pushes nothing until the client announces readiness.
		if err := mgr.transport.Emit(wire.EventClientReady, nil); err != nil {
			mgr.logger.Warn("client-ready emit failed", zap.Error(err))
		}

	case transport.KindPairing:
		mgr.handleChallenge(evt.Payload)

	case transport.KindAuth:
		mgr.setChallenge("")
		if mgr.machine.Current() == Authenticated {
			return
		}
		if err := mgr.machine.Transition(Authenticated); err != nil {
			mgr.logger.Warn("unexpected authenticated push", zap.Error(err))
		}

	case transport.KindReady:
		// Pairing may have been skipped entirely; clear any stale challenge.
		mgr.setChallenge("")
		if mgr.machine.Current() == Ready {
			return
		}
		if err := mgr.machine.Transition(Ready); err != nil {
			mgr.logger.Warn("unexpected ready push", zap.Error(err))
		}

	case transport.KindAuthFailure:
		// Stay in PairingRequired; the failure is user-visible, not fatal.
		msg := rawString(evt.Payload)
		mgr.logger.Warn("authentication failed", zap.String("reason", msg))
		mgr.bus.Emit(KindAuthFailure, msg)

	case transport.KindDisconnected:
		if mgr.machine.Current() != Disconnected {
			_ = mgr.machine.Transition(Disconnected)
		}

	case transport.KindGaveUp:
		// Terminal until the user retries; the state is already Disconnected.
		mgr.logger.Error("gateway reconnection abandoned")
	}
}

// handleChallenge replaces the pairing challenge wholesale and moves the
// machine to PairingRequired. Challenges recur until pairing succeeds; each
// push supersedes the previous code.
func (mgr *Manager) handleChallenge(payload any) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		mgr.logger.Warn("pairing push with unexpected payload type")
		return
	}
	var ch wire.PairingChallenge
	if err := json.Unmarshal(raw, &ch); err != nil || ch.Code == "" {
		mgr.logger.Warn("malformed pairing challenge", zap.Error(err))
		return
	}
	mgr.setChallenge(ch.Code)
	mgr.bus.Emit(KindChallenge, ch.Code)

	if mgr.machine.Current() != PairingRequired {
		if err := mgr.machine.Transition(PairingRequired); err != nil {
			mgr.logger.Warn("unexpected pairing push", zap.Error(err))
		}
	}
}

func (mgr *Manager) setChallenge(code string) {
	mgr.mu.Lock()
	mgr.challenge = code
	mgr.mu.Unlock()
}

func rawString(payload any) string {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return string(raw)
	}
	return s
}
