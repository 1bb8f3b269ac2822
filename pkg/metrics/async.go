package metrics

import (
	"sync"
	"sync/atomic"
)

// AsyncObserver decouples event producers from a possibly slow inner
// observer. Events are handed off through a bounded queue; when the
// queue is full the event is counted as dropped rather than blocking
// the audio path.
type AsyncObserver struct {
	inner   Observer
	queue   chan MetricsEvent
	dropped atomic.Int64
	closed  atomic.Bool
	once    sync.Once
	drained sync.WaitGroup
}

func NewAsyncObserver(inner Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = 256
	}
	a := &AsyncObserver{
		inner: inner,
		queue: make(chan MetricsEvent, buffer),
	}
	a.drained.Add(1)
	go a.pump()
	return a
}

func (a *AsyncObserver) RecordEvent(ev MetricsEvent) {
	if a == nil || a.closed.Load() {
		return
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded due to backpressure.
func (a *AsyncObserver) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until everything already
// queued has been delivered to the inner observer.
func (a *AsyncObserver) Close() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		a.closed.Store(true)
		close(a.queue)
		a.drained.Wait()
	})
}

func (a *AsyncObserver) pump() {
	defer a.drained.Done()
	for ev := range a.queue {
		a.inner.RecordEvent(ev)
	}
}
