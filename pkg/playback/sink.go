package playback

import (
	"io"
	"sync"
	"time"
)

// WriterSink plays scheduled chunks by writing raw PCM to an output writer
// (typically a speaker pipe) at the scheduled instant. Completion is timer
// driven from the chunk's duration.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	timers map[string]*time.Timer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{
		w:      w,
		timers: make(map[string]*time.Timer),
	}
}

func (ws *WriterSink) Name() string { return "writer" }

func (ws *WriterSink) Play(src *ScheduledSource, delay time.Duration, onEnded func()) error {
	if delay < 0 {
		delay = 0
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	id := src.ID
	pcm := src.Frame.RawPayload()
	d := src.Frame.Duration()
	ws.timers[id] = time.AfterFunc(delay, func() {
		ws.mu.Lock()
		_, live := ws.timers[id]
		if live {
			_, _ = ws.w.Write(pcm)
			ws.timers[id] = time.AfterFunc(d, func() {
				ws.mu.Lock()
				_, still := ws.timers[id]
				delete(ws.timers, id)
				ws.mu.Unlock()
				if still {
					onEnded()
				}
			})
		}
		ws.mu.Unlock()
	})
	return nil
}

func (ws *WriterSink) Stop(src *ScheduledSource) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if t, ok := ws.timers[src.ID]; ok {
		t.Stop()
		delete(ws.timers, src.ID)
	}
	return nil
}

// NullSink discards audio while still honoring the scheduling contract.
// Useful for headless runs and transcript-only sessions.
type NullSink struct{}

func (NullSink) Name() string { return "null" }

func (NullSink) Play(src *ScheduledSource, delay time.Duration, onEnded func()) error {
	if delay < 0 {
		delay = 0
	}
	time.AfterFunc(delay+src.Frame.Duration(), onEnded)
	return nil
}

func (NullSink) Stop(*ScheduledSource) error { return nil }
