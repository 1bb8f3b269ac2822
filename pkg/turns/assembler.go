// Package turns reconciles streaming transcription deltas into finalized
// conversational turns.
package turns

import (
	"strings"
	"sync"
	"time"

	"github.com/nareswara/intervox/pkg/frames"
)

// Record is one finalized turn. Immutable once appended; transcript order
// is append order is chronological order.
type Record struct {
	Speaker   frames.Speaker `json:"speaker"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}

// Assembler accumulates partial transcript fragments for both speakers and
// commits them as records at turn boundaries. The two accumulators are
// independent: the remote channel may interleave candidate and agent deltas
// within the same turn.
type Assembler struct {
	candidate accumulator
	agent     accumulator

	mu         sync.Mutex
	transcript []Record
}

type accumulator struct {
	mu sync.Mutex
	sb strings.Builder
}

func (a *accumulator) append(delta string) {
	a.mu.Lock()
	a.sb.WriteString(delta)
	a.mu.Unlock()
}

func (a *accumulator) take() string {
	a.mu.Lock()
	out := a.sb.String()
	a.sb.Reset()
	a.mu.Unlock()
	return out
}

func (a *accumulator) peek() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sb.String()
}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Append adds one fragment to the speaker's accumulator, in arrival order.
// Empty deltas are permitted and contribute nothing.
func (t *Assembler) Append(speaker frames.Speaker, delta string) {
	switch speaker {
	case frames.SpeakerAI:
		t.agent.append(delta)
	default:
		t.candidate.append(delta)
	}
}

// Commit closes the current turn: each non-empty accumulator becomes one
// record, candidate before agent, both stamped with now. Both accumulators
// are empty afterwards. Returns the records appended (0, 1, or 2).
func (t *Assembler) Commit(now time.Time) []Record {
	candidate := t.candidate.take()
	agent := t.agent.take()

	out := make([]Record, 0, 2)
	if candidate != "" {
		out = append(out, Record{Speaker: frames.SpeakerCandidate, Text: candidate, Timestamp: now})
	}
	if agent != "" {
		out = append(out, Record{Speaker: frames.SpeakerAI, Text: agent, Timestamp: now})
	}
	if len(out) == 0 {
		return nil
	}

	t.mu.Lock()
	t.transcript = append(t.transcript, out...)
	t.mu.Unlock()
	return out
}

// Pending returns the current uncommitted fragment for a speaker.
func (t *Assembler) Pending(speaker frames.Speaker) string {
	if speaker == frames.SpeakerAI {
		return t.agent.peek()
	}
	return t.candidate.peek()
}

// Transcript returns a copy of the committed records, in append order.
func (t *Assembler) Transcript() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.transcript))
	copy(out, t.transcript)
	return out
}

// Len returns the number of committed records.
func (t *Assembler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.transcript)
}
