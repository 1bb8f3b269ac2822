package metrics

import "time"

// MetricsEvent is a single point on the session timeline: a named
// occurrence with an optional numeric value, low-cardinality tags and
// free-form fields.
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

// Observer receives engine and session events. Implementations must be
// safe for concurrent use; RecordEvent should not block the caller.
type Observer interface {
	RecordEvent(ev MetricsEvent)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ev MetricsEvent)

func (f ObserverFunc) RecordEvent(ev MetricsEvent) { f(ev) }
