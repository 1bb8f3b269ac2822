package metrics

import (
	"testing"
	"time"
)

func TestAsyncObserverDeliversBeforeClose(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 16)

	for i := 0; i < 5; i++ {
		async.RecordEvent(MetricsEvent{Name: "tick", Time: time.Now(), Value: float64(i)})
	}
	async.Close()

	got := mem.Snapshot()
	if len(got) != 5 {
		t.Fatalf("expected 5 events after close, got %d", len(got))
	}
	for i, ev := range got {
		if ev.Value != float64(i) {
			t.Fatalf("event %d out of order: value %v", i, ev.Value)
		}
	}
	if async.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", async.Dropped())
	}
}

func TestAsyncObserverDropsWhenQueueFull(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	var delivered int
	inner := ObserverFunc(func(MetricsEvent) {
		delivered++
		if delivered == 1 {
			close(started)
			<-gate
		}
	})

	async := NewAsyncObserver(inner, 1)
	async.RecordEvent(MetricsEvent{Name: "a"})
	<-started
	async.RecordEvent(MetricsEvent{Name: "b"}) // fills the queue
	async.RecordEvent(MetricsEvent{Name: "c"}) // no room left

	if got := async.Dropped(); got != 1 {
		t.Fatalf("expected 1 dropped event, got %d", got)
	}
	close(gate)
	async.Close()
	if delivered != 2 {
		t.Fatalf("expected 2 delivered events, got %d", delivered)
	}
}

func TestAsyncObserverRecordAfterCloseIsNoop(t *testing.T) {
	mem := NewMemoryObserver()
	async := NewAsyncObserver(mem, 4)
	async.Close()
	async.RecordEvent(MetricsEvent{Name: "late"})
	async.Close()
	if mem.Len() != 0 {
		t.Fatalf("expected no events, got %d", mem.Len())
	}
}
