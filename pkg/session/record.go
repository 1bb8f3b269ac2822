package session

import (
	"time"

	"github.com/nareswara/intervox/pkg/recording"
	"github.com/nareswara/intervox/pkg/turns"
)

// DefaultDurationLimit is the fixed session length.
const DefaultDurationLimit = 1500 * time.Second

// Clock tracks the session countdown. ConnectedAt is the real
// channel-open timestamp, stored directly rather than recomputed from the
// remaining countdown, so the record's start time cannot drift if ticks
// stall.
type Clock struct {
	ConnectedAt time.Time
	Limit       time.Duration
}

// Deadline is the instant the session must begin closing.
func (c Clock) Deadline() time.Time {
	return c.ConnectedAt.Add(c.Limit)
}

// Remaining reports the countdown value at now, clamped at zero.
func (c Clock) Remaining(now time.Time) time.Duration {
	r := c.Deadline().Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// Expired reports whether the countdown reached zero.
func (c Clock) Expired(now time.Time) bool {
	return !now.Before(c.Deadline())
}

// Record is the final session artifact, produced exactly once when the
// session reaches PhaseClosed.
type Record struct {
	SessionID     string         `json:"sessionId"`
	StartTime     int64          `json:"startTime"`     // epoch ms
	DurationLimit int            `json:"durationLimit"` // seconds
	Transcript    []turns.Record `json:"transcript"`
	RecordingRef  *recording.Ref `json:"recordingRef,omitempty"`
	Interruptions int            `json:"interruptions"`
}
