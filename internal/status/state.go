package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/metrics"
)

// State is the transport connection state.
type State string

const (
	Offline      State = "offline"
	Reconnecting State = "reconnecting"
	Connected    State = "connected"
)

// All lists every state, in display order.
var All = []State{Offline, Reconnecting, Connected}

// validTransitions defines allowed state transitions. Reconnecting may
// re-enter itself after a failed dial so observers see each retry.
var validTransitions = map[State][]State{
	Offline:      {Reconnecting},
	Reconnecting: {Connected, Reconnecting, Offline},
	Connected:    {Reconnecting, Offline},
}

// Machine tracks and enforces connection state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	since   time.Time
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Offline state.
func NewMachine(b *bus.Bus) *Machine {
	m := &Machine{
		current: Offline,
		since:   time.Now(),
		bus:     b,
	}
	setGauge(Offline)
	return m
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns when the current state was entered.
func (m *Machine) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.since = time.Now()
	setGauge(to)
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindStateChanged,
			Timestamp: m.since,
			Payload: StateChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

func setGauge(current State) {
	for _, s := range All {
		v := 0.0
		if s == current {
			v = 1
		}
		metrics.ConnectionState.WithLabelValues(string(s)).Set(v)
	}
}

// StateChange is the payload for state change events.
type StateChange struct {
	From State
	To   State
}
