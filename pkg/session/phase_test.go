package session

import (
	"errors"
	"testing"
)

type recordingListener struct {
	changes []PhaseChange
}

func (l *recordingListener) OnPhaseChange(event PhaseChange) {
	l.changes = append(l.changes, event)
}

func TestPhaseMachineHappyPath(t *testing.T) {
	m := newPhaseMachine()
	if m.Phase() != PhaseIdle {
		t.Fatalf("initial phase = %s, want Idle", m.Phase())
	}

	steps := []Phase{PhaseConnecting, PhaseOpen, PhaseClosing, PhaseClosed}
	for _, p := range steps {
		if err := m.Transition(p, "test"); err != nil {
			t.Fatalf("transition to %s: %v", p, err)
		}
		if m.Phase() != p {
			t.Fatalf("phase = %s, want %s", m.Phase(), p)
		}
	}
}

func TestPhaseMachineRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		walk []Phase
		to   Phase
	}{
		{"idle_to_open", nil, PhaseOpen},
		{"idle_to_closing", nil, PhaseClosing},
		{"open_to_idle", []Phase{PhaseConnecting, PhaseOpen}, PhaseIdle},
		{"closed_is_terminal", []Phase{PhaseConnecting, PhaseOpen, PhaseClosing, PhaseClosed}, PhaseConnecting},
		{"closing_to_open", []Phase{PhaseConnecting, PhaseOpen, PhaseClosing}, PhaseOpen},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newPhaseMachine()
			for _, p := range tc.walk {
				if err := m.Transition(p, "walk"); err != nil {
					t.Fatalf("walk to %s: %v", p, err)
				}
			}
			err := m.Transition(tc.to, "invalid")
			if err == nil {
				t.Fatalf("transition %s -> %s should fail", m.Phase(), tc.to)
			}
			var ite *InvalidTransitionError
			if !errors.As(err, &ite) {
				t.Fatalf("error type = %T", err)
			}
		})
	}
}

func TestPhaseMachineConnectingCanAbort(t *testing.T) {
	m := newPhaseMachine()
	if err := m.Transition(PhaseConnecting, "start"); err != nil {
		t.Fatalf("to connecting: %v", err)
	}
	if err := m.Transition(PhaseIdle, "channel open failed"); err != nil {
		t.Fatalf("abort to idle: %v", err)
	}
}

func TestPhaseMachineNotifiesListeners(t *testing.T) {
	m := newPhaseMachine()
	l := &recordingListener{}
	m.AddListener(l)

	_ = m.Transition(PhaseConnecting, "start requested")
	_ = m.Transition(PhaseOpen, "channel opened")

	if len(l.changes) != 2 {
		t.Fatalf("listener saw %d changes, want 2", len(l.changes))
	}
	first := l.changes[0]
	if first.FromPhase != PhaseIdle || first.ToPhase != PhaseConnecting {
		t.Fatalf("first change = %+v", first)
	}
	if first.Reason != "start requested" {
		t.Fatalf("reason = %q", first.Reason)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	// Failed transitions must not notify.
	before := len(l.changes)
	_ = m.Transition(PhaseConnecting, "invalid")
	if len(l.changes) != before {
		t.Fatal("listener notified for rejected transition")
	}
}
