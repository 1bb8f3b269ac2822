package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LifecycleRunner owns the start/drain/stop sequence of the engine.
// Run blocks until the context is cancelled or Stop is called, then
// gives in-flight sessions a bounded window to drain before hooks fire.
type LifecycleRunner struct {
	state   atomic.Int32
	drainer Drainer
	hooks   Hooks
	timeout time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}

	mu      sync.Mutex
	stopErr error
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &LifecycleRunner{
		drainer: drainer,
		hooks:   hooks,
		timeout: timeout,
		stopCh:  make(chan struct{}),
	}
	r.state.Store(int32(StateNew))
	return r
}

func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateNew), int32(StateStarting)) {
		return errors.New("runner already started")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	PrintBanner()
	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.state.Store(int32(StateRunning))

	select {
	case <-ctx.Done():
	case <-r.stopCh:
	}
	return r.shutdown()
}

func (r *LifecycleRunner) Stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	return r.shutdown()
}

func (r *LifecycleRunner) State() State {
	return State(r.state.Load())
}

func (r *LifecycleRunner) shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if State(r.state.Load()) == StateStopped {
		return r.stopErr
	}
	r.state.Store(int32(StateDraining))
	if r.drainer != nil {
		r.stopErr = r.drainWithDeadline()
	}
	if r.hooks.OnStop != nil {
		r.hooks.OnStop()
	}
	r.state.Store(int32(StateStopped))
	return r.stopErr
}

func (r *LifecycleRunner) drainWithDeadline() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.drainer.Drain() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.New("drain timeout")
	}
}
