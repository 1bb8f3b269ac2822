package session

import (
	"sync"
	"time"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseOpen
	PhaseClosing
	PhaseClosed
)

// String returns the string representation of a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseOpen:
		return "OPEN"
	case PhaseClosing:
		return "CLOSING"
	case PhaseClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// PhaseChange represents a phase transition event.
type PhaseChange struct {
	FromPhase Phase
	ToPhase   Phase
	Timestamp time.Time
	Reason    string
}

// PhaseListener observes session phase changes.
type PhaseListener interface {
	OnPhaseChange(event PhaseChange)
}

// phaseMachine implements the finite state machine for the session
// lifecycle. PhaseClosed is terminal.
type phaseMachine struct {
	currentPhase Phase
	mu           sync.RWMutex

	listeners []PhaseListener
}

func newPhaseMachine() *phaseMachine {
	return &phaseMachine{currentPhase: PhaseIdle}
}

// Phase returns the current phase.
func (m *phaseMachine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentPhase
}

// transitionValid checks if a phase transition is valid (must be called
// with lock held).
func (m *phaseMachine) transitionValid(from, to Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseIdle:       {PhaseConnecting},
		PhaseConnecting: {PhaseOpen, PhaseIdle},
		PhaseOpen:       {PhaseClosing},
		PhaseClosing:    {PhaseClosed},
	}

	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, p := range allowed {
		if p == to {
			return true
		}
	}
	return false
}

// Transition moves to a new phase with validation.
func (m *phaseMachine) Transition(phase Phase, reason string) error {
	m.mu.Lock()

	if !m.transitionValid(m.currentPhase, phase) {
		from := m.currentPhase
		m.mu.Unlock()
		return &InvalidTransitionError{From: from, To: phase}
	}

	oldPhase := m.currentPhase
	m.currentPhase = phase

	event := PhaseChange{
		FromPhase: oldPhase,
		ToPhase:   phase,
		Timestamp: time.Now(),
		Reason:    reason,
	}

	listeners := make([]PhaseListener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, listener := range listeners {
		listener.OnPhaseChange(event)
	}
	return nil
}

// AddListener registers a listener for phase change events.
func (m *phaseMachine) AddListener(listener PhaseListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// InvalidTransitionError represents an invalid phase transition attempt.
type InvalidTransitionError struct {
	From Phase
	To   Phase
}

func (e *InvalidTransitionError) Error() string {
	return "invalid phase transition from " + e.From.String() + " to " + e.To.String()
}
