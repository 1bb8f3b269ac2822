// Package mock provides an in-memory STT adapter for tests.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nareswara/intervox/pkg/frames"
	"github.com/nareswara/intervox/pkg/stt"
)

type Config struct {
	SessionID  string
	Transcript string
}

// StreamingSTT emits the configured transcript as a final result after the
// first audio frame arrives.
type StreamingSTT struct {
	cfg     Config
	out     chan frames.Frame
	mu      sync.Mutex
	started bool
	emitted bool
}

func New(cfg Config) *StreamingSTT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	return &StreamingSTT{cfg: cfg, out: make(chan frames.Frame, 16)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
	s.started = false
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("not started")
	}
	if s.emitted || s.out == nil {
		s.mu.Unlock()
		return nil
	}
	s.emitted = true
	out := s.out
	s.mu.Unlock()

	meta := map[string]string{
		frames.MetaSpeaker: string(frames.SpeakerCandidate),
		frames.MetaIsFinal: "true",
	}
	out <- frames.NewTextFrame(s.cfg.SessionID, time.Now().UnixNano(), s.cfg.Transcript, meta)
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
