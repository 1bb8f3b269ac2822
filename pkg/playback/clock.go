package playback

import "time"

// Clock is the output device's monotonic clock. The zero instant is the
// moment the clock was created; it never goes backwards.
type Clock interface {
	Now() time.Duration
}

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a clock anchored at the current instant.
func NewMonotonicClock() Clock {
	return monotonicClock{start: time.Now()}
}

func (c monotonicClock) Now() time.Duration {
	return time.Since(c.start)
}
