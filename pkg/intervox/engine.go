// Package intervox assembles configured providers into running interview
// sessions and manages their shared lifecycle.
package intervox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nareswara/intervox/pkg/logging"
	"github.com/nareswara/intervox/pkg/metrics"
	"github.com/nareswara/intervox/pkg/observers"
	"github.com/nareswara/intervox/pkg/playback"
	"github.com/nareswara/intervox/pkg/presence"
	"github.com/nareswara/intervox/pkg/profile"
	"github.com/nareswara/intervox/pkg/recording"
	"github.com/nareswara/intervox/pkg/redact"
	"github.com/nareswara/intervox/pkg/runner"
	"github.com/nareswara/intervox/pkg/session"
	"github.com/nareswara/intervox/pkg/stt"
)

type Engine struct {
	cfg       Config
	providers *ProviderRegistry
	sink      playback.Sink
	clock     playback.Clock
	detector  presence.Detector
	asyncObs  *metrics.AsyncObserver
	runner    *runner.LifecycleRunner

	mu       sync.Mutex
	sessions map[string]*session.Controller
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// Sink overrides the config-derived playback sink, useful for embedding
	// and tests.
	Sink     playback.Sink
	Clock    playback.Clock
	Presence presence.Detector
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	SetDefaultLogger(cfg.LogLevel)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("intervox_init",
		"environment", cfg.Environment,
		"channel_provider", cfg.Vendors.Channel.Provider,
		"capture_provider", cfg.Capture.Provider,
		"stt_provider", cfg.Vendors.STT.Provider,
	)

	obsList := []metrics.Observer{observers.NewLoggerObserver(slog.Default())}
	var timelineObs *observers.TimelineObserver
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			_, _ = observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour)
		}
		timelineObs = observers.NewTimelineObserver(dir)
		obsList = append(obsList, timelineObs)
	}
	asyncObs := metrics.NewAsyncObserver(observers.NewMultiObserver(obsList...), 2048)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultRegistry()
	}

	sink := opts.Sink
	if sink == nil {
		var err error
		sink, err = sinkFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = playback.NewMonotonicClock()
	}

	e := &Engine{
		cfg:       cfg,
		providers: providers,
		sink:      sink,
		clock:     clock,
		detector:  opts.Presence,
		asyncObs:  asyncObs,
		sessions:  make(map[string]*session.Controller),
	}

	hooks := runner.Hooks{
		OnStart: func() {
			slog.Info("engine_ready", "message", "Intervox Engine Ready")
		},
		OnStop: func() {
			if asyncObs != nil {
				asyncObs.Close()
			}
			if timelineObs != nil {
				_ = timelineObs.Close()
			}
			slog.Info("shutdown", "goroutines", runtime.NumGoroutine(), "active_sessions", e.Count())
		},
	}
	e.runner = runner.NewLifecycleRunner(drainerFunc(e.drain), hooks, 30*time.Second)

	return e, nil
}

// NewSession builds a controller for one interview from the configured
// providers. The session is tracked until its record is produced.
func (e *Engine) NewSession() (*session.Controller, error) {
	sessionID := uuid.NewString()

	ch, err := e.providers.BuildChannel(e.cfg.Vendors.Channel.Provider, e.cfg, sessionID)
	if err != nil {
		return nil, fmt.Errorf("build channel: %w", err)
	}
	source, images, err := e.providers.BuildSource(e.cfg.Capture.Provider, e.cfg, sessionID)
	if err != nil {
		return nil, fmt.Errorf("build capture source: %w", err)
	}

	var fallback stt.StreamingSTT
	if name := strings.TrimSpace(e.cfg.Vendors.STT.Provider); name != "" {
		fallback, err = e.providers.BuildSTT(name, e.cfg, sessionID)
		if err != nil {
			return nil, fmt.Errorf("build fallback stt: %w", err)
		}
	}

	var recorder recording.Recorder
	if e.cfg.Observability.RecordAudio && strings.TrimSpace(e.cfg.Observability.ArtifactsDir) != "" {
		recorder = recording.NewWAVRecorder(e.cfg.Observability.ArtifactsDir, e.cfg.Capture.SourceRate)
	}

	var detector presence.Detector
	if images != nil {
		detector = e.detector
		if detector == nil {
			detector = presence.NewLumaDetector()
		}
	}

	ctrl, err := session.NewController(session.Config{
		SessionID:           sessionID,
		Model:               e.cfg.Session.Model,
		Voice:               e.cfg.Session.Voice,
		DurationLimit:       time.Duration(e.cfg.Session.DurationLimitS) * time.Second,
		SourceRate:          e.cfg.Capture.SourceRate,
		SinkRate:            e.cfg.Playback.SinkRate,
		TickInterval:        time.Duration(e.cfg.Session.TickIntervalMS) * time.Millisecond,
		ForwardInterim:      e.cfg.Session.ForwardInterim,
		InputTranscription:  e.cfg.Session.InputTranscription,
		OutputTranscription: e.cfg.Session.OutputTranscription,
		Profile:             e.cfg.Candidate,
		Prompt: profile.PromptConfig{
			Persona:    e.cfg.Prompt.Persona,
			BasePrompt: e.cfg.Prompt.BasePrompt,
		},
	}, session.Options{
		Channel:     ch,
		Source:      source,
		Scheduler:   playback.NewScheduler(e.clock, e.sink),
		Recorder:    recorder,
		FallbackSTT: fallback,
		Presence:    detector,
		Images:      images,
		Observer:    e.asyncObs,
	})
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.sessions) > 0 {
		e.mu.Unlock()
		return nil, errors.New("another session is still active")
	}
	e.sessions[sessionID] = ctrl
	e.mu.Unlock()
	go func() {
		<-ctrl.Done()
		e.mu.Lock()
		delete(e.sessions, sessionID)
		e.mu.Unlock()
	}()

	return ctrl, nil
}

// Run blocks until the context is canceled or Stop is called, then drains
// active sessions.
func (e *Engine) Run(ctx context.Context) error {
	return e.runner.Run(ctx)
}

func (e *Engine) Stop() error {
	return e.runner.Stop()
}

// Count reports the number of sessions not yet finalized.
func (e *Engine) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) ProviderRegistry() *ProviderRegistry { return e.providers }

// drain stops every active session and waits for its record, bounded by
// the runner's drain timeout.
func (e *Engine) drain() error {
	e.mu.Lock()
	active := make([]*session.Controller, 0, len(e.sessions))
	for _, ctrl := range e.sessions {
		active = append(active, ctrl)
	}
	e.mu.Unlock()

	for _, ctrl := range active {
		_ = ctrl.Stop()
	}
	for _, ctrl := range active {
		// Sessions that never opened have no teardown to wait for.
		if p := ctrl.Phase(); p == session.PhaseIdle || p == session.PhaseConnecting {
			continue
		}
		select {
		case <-ctrl.Done():
		case <-time.After(10 * time.Second):
		}
	}
	return nil
}

func sinkFromConfig(cfg Config) (playback.Sink, error) {
	path := strings.TrimSpace(cfg.Playback.OutputPath)
	if path == "" {
		return playback.NullSink{}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open playback output: %w", err)
	}
	return playback.NewWriterSink(f), nil
}

type drainerFunc func() error

func (f drainerFunc) Drain() error { return f() }

func SetDefaultLogger(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	slog.SetDefault(logging.InitLogger(lvl))
}
