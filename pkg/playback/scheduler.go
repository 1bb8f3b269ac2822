// Package playback schedules decoded response audio on a monotonic output
// clock for gapless playback, and supports immediate flush on barge-in.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nareswara/intervox/pkg/frames"
	"github.com/nareswara/intervox/pkg/logging"
)

// DefaultSinkRate is the playback-side sample rate in Hz.
const DefaultSinkRate = 24000

// ScheduledSource is one in-flight playback chunk registered with the
// output clock.
type ScheduledSource struct {
	ID    string
	Frame frames.PlaybackFrame
	Start time.Duration
	End   time.Duration
}

// Sink receives scheduled chunks. Play must begin output delay after the
// call and invoke onEnded exactly once when the chunk finishes naturally;
// Stop force-stops a source so that onEnded is never invoked for it.
// Play runs under the scheduler lock and must not invoke onEnded or call
// back into the scheduler synchronously.
type Sink interface {
	Name() string
	Play(src *ScheduledSource, delay time.Duration, onEnded func()) error
	Stop(src *ScheduledSource) error
}

// Scheduler owns the active source set and the next-start baseline. Both
// are mutated only through Schedule and Flush, so arrival-order scheduling
// and barge-in flushes never race.
type Scheduler struct {
	clock  Clock
	sink   Sink
	logger *slog.Logger

	mu        sync.Mutex
	active    map[string]*ScheduledSource
	nextStart time.Duration
	speaking  bool

	onSpeaking func(bool)
}

func NewScheduler(clock Clock, sink Sink) *Scheduler {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	return &Scheduler{
		clock:  clock,
		sink:   sink,
		logger: logging.NewComponentLogger(slog.Default(), "playback"),
		active: make(map[string]*ScheduledSource),
	}
}

// SetSpeakingListener registers a callback for agent-speaking flag changes.
// It fires outside the scheduler lock.
func (s *Scheduler) SetSpeakingListener(fn func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSpeaking = fn
}

// Schedule registers one chunk at max(now, previousChunkEnd) and advances
// the baseline by the chunk's duration. Chunks are scheduled strictly in
// arrival order, back to back, regardless of network jitter.
func (s *Scheduler) Schedule(chunk frames.PlaybackFrame) (*ScheduledSource, error) {
	d := chunk.Duration()

	s.mu.Lock()
	now := s.clock.Now()
	start := s.nextStart
	if now > start {
		start = now
	}
	src := &ScheduledSource{
		ID:    uuid.NewString(),
		Frame: chunk,
		Start: start,
		End:   start + d,
	}
	if s.sink != nil {
		// Registered with the sink inside the critical section so a
		// concurrent Flush cannot slip between registration and timer
		// arming and miss this source.
		if err := s.sink.Play(src, start-now, func() { s.sourceEnded(src.ID) }); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	s.nextStart = start + d
	s.active[src.ID] = src
	wasSpeaking := s.speaking
	s.speaking = true
	notify := s.onSpeaking
	s.mu.Unlock()

	if !wasSpeaking && notify != nil {
		notify(true)
	}
	return src, nil
}

// Flush force-stops every active source, clears the set, and resets the
// baseline to zero so the next chunk schedules relative to now rather than
// a stale future offset.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	stopped := make([]*ScheduledSource, 0, len(s.active))
	for _, src := range s.active {
		stopped = append(stopped, src)
	}
	s.active = make(map[string]*ScheduledSource)
	s.nextStart = 0
	wasSpeaking := s.speaking
	s.speaking = false
	notify := s.onSpeaking
	s.mu.Unlock()

	for _, src := range stopped {
		if s.sink != nil {
			_ = s.sink.Stop(src)
		}
	}
	if wasSpeaking && notify != nil {
		notify(false)
	}
	if len(stopped) > 0 {
		s.logger.Debug("playback_flushed", "stopped_sources", len(stopped))
	}
}

// Speaking reports whether any source is currently registered.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// ActiveCount returns the size of the active source set.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// NextStart exposes the scheduling baseline.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextStart
}

func (s *Scheduler) sourceEnded(id string) {
	s.mu.Lock()
	if _, ok := s.active[id]; !ok {
		// Flushed before natural completion.
		s.mu.Unlock()
		return
	}
	delete(s.active, id)
	drained := len(s.active) == 0
	wasSpeaking := s.speaking
	if drained {
		s.speaking = false
	}
	notify := s.onSpeaking
	s.mu.Unlock()

	if drained && wasSpeaking && notify != nil {
		notify(false)
	}
}
