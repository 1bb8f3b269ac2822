// Package mock provides an in-memory capture source for tests.
package mock

import (
	"context"
	"errors"
	"sync/atomic"
)

type Source struct {
	frames chan []float32
	closed atomic.Bool

	// StartErr, when set, simulates a device-access failure.
	StartErr error

	started atomic.Bool
}

func New() *Source {
	return &Source{frames: make(chan []float32, 64)}
}

func (s *Source) Name() string { return "mock" }

func (s *Source) Start(ctx context.Context) error {
	if s.StartErr != nil {
		return s.StartErr
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.started.Store(true)
	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()
	return nil
}

func (s *Source) Stop() error {
	if s.closed.CompareAndSwap(false, true) {
		close(s.frames)
	}
	return nil
}

func (s *Source) Frames() <-chan []float32 { return s.frames }

// Push injects one captured frame.
func (s *Source) Push(frame []float32) error {
	if s.closed.Load() {
		return errors.New("source stopped")
	}
	select {
	case s.frames <- frame:
		return nil
	default:
		return errors.New("frame buffer full")
	}
}

// Started reports whether the device was acquired.
func (s *Source) Started() bool { return s.started.Load() }

// Stopped reports whether the device was released.
func (s *Source) Stopped() bool { return s.closed.Load() }
