package conn

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ignaciov/matechat/internal/bus"
)

// State represents a connection lifecycle state.
type State string

const (
	Disconnected    State = "DISCONNECTED"
	Connecting      State = "CONNECTING"
	PairingRequired State = "PAIRING_REQUIRED"
	Authenticated   State = "AUTHENTICATED"
	Ready           State = "READY"
)

// validTransitions defines allowed state transitions. The gateway may skip
// the pairing or authenticated pushes for an already linked device, so
// Connecting can jump straight to Authenticated or Ready.
var validTransitions = map[State][]State{
	Disconnected:    {Connecting},
	Connecting:      {PairingRequired, Authenticated, Ready, Disconnected},
	PairingRequired: {Authenticated, Ready, Disconnected},
	Authenticated:   {Ready, PairingRequired, Disconnected},
	Ready:           {PairingRequired, Disconnected},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Disconnected.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is invalid; the machine is left unchanged in that case.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "conn.state_changed",
			Timestamp: time.Now(),
			Payload: StateChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StateChange is the payload for conn.state_changed events.
type StateChange struct {
	From State
	To   State
}
