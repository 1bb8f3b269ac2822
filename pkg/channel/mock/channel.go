// Package mock provides an in-memory channel for local testing and
// integration. It implements the channel.Channel interface without any
// network dependency.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nareswara/intervox/pkg/channel"
)

type Channel struct {
	events chan channel.Event
	sent   chan channel.WireFrame

	mu        sync.Mutex
	lastSetup channel.Setup
	opened    atomic.Bool
	closed    atomic.Bool

	// OpenErr, when set, makes Open fail. CloseErr likewise for Close.
	OpenErr  error
	CloseErr error
}

func New() *Channel {
	return &Channel{
		events: make(chan channel.Event, 256),
		sent:   make(chan channel.WireFrame, 256),
	}
}

func (c *Channel) Name() string { return "mock" }

func (c *Channel) Open(ctx context.Context, setup channel.Setup) error {
	if c.OpenErr != nil {
		return c.OpenErr
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.lastSetup = setup
	c.mu.Unlock()
	c.opened.Store(true)
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()
	return nil
}

func (c *Channel) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.events)
		close(c.sent)
	}
	return c.CloseErr
}

func (c *Channel) Events() <-chan channel.Event { return c.events }

func (c *Channel) SendAudio(frame channel.WireFrame) error {
	if c.closed.Load() {
		return nil
	}
	select {
	case c.sent <- frame:
	default:
	}
	return nil
}

// Push injects an inbound event into the channel.
func (c *Channel) Push(evt channel.Event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.events <- evt:
	default:
	}
}

// Sent exposes outbound wire frames for inspection.
func (c *Channel) Sent() <-chan channel.WireFrame { return c.sent }

// Setup returns the configuration payload from the last Open call.
func (c *Channel) Setup() channel.Setup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSetup
}

// Opened reports whether Open was called.
func (c *Channel) Opened() bool { return c.opened.Load() }
