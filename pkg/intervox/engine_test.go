package intervox

import (
	"context"
	"testing"
	"time"

	"github.com/nareswara/intervox/pkg/session"
)

func mockEngineConfig() Config {
	return Config{
		Session: SessionConfig{
			Model:               "models/test-live",
			DurationLimitS:      60,
			TickIntervalMS:      10,
			InputTranscription:  true,
			OutputTranscription: true,
		},
		Vendors: VendorsConfig{
			Channel: VendorConfig{Provider: "mock"},
		},
		Capture:  CaptureConfig{Provider: "mock", SourceRate: 16000},
		Playback: PlaybackConfig{SinkRate: 24000},
		LogLevel: "error",
	}
}

func TestEngineBuildsAndDrainsSessions(t *testing.T) {
	e, err := NewEngine(EngineOptions{Config: mockEngineConfig()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	ctrl, err := e.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if e.Count() != 1 {
		t.Fatalf("count = %d, want 1", e.Count())
	}

	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if ctrl.Phase() != session.PhaseOpen {
		t.Fatalf("phase = %s, want Open", ctrl.Phase())
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("stop engine: %v", err)
	}

	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session not drained on engine stop")
	}
	if _, ok := ctrl.Record(); !ok {
		t.Fatal("record missing after drain")
	}

	deadline := time.Now().Add(time.Second)
	for e.Count() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if e.Count() != 0 {
		t.Fatalf("count after drain = %d, want 0", e.Count())
	}
}

func TestEngineRejectsUnknownProviders(t *testing.T) {
	cfg := mockEngineConfig()
	cfg.Vendors.Channel.Provider = "nope"
	e, err := NewEngine(EngineOptions{Config: cfg})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := e.NewSession(); err == nil {
		t.Fatal("expected error for unknown channel provider")
	}
}

func TestEngineGeminiRequiresAPIKey(t *testing.T) {
	cfg := mockEngineConfig()
	cfg.Vendors.Channel.Provider = "gemini"
	cfg.Vendors.Channel.Settings = map[string]any{}
	e, err := NewEngine(EngineOptions{Config: cfg})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if _, err := e.NewSession(); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestEngineFallbackSTTProvider(t *testing.T) {
	cfg := mockEngineConfig()
	cfg.Vendors.STT = VendorConfig{Provider: "mock"}
	e, err := NewEngine(EngineOptions{Config: cfg})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ctrl, err := e.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = ctrl.Stop()
	select {
	case <-ctrl.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}
	_ = e.Stop()
}

func TestEngineRejectsConcurrentSessions(t *testing.T) {
	e, err := NewEngine(EngineOptions{Config: mockEngineConfig()})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	first, err := e.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, err := e.NewSession(); err == nil {
		t.Fatal("expected second session to be rejected while the first is active")
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_ = first.Stop()
	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	second, err := e.NewSession()
	if err != nil {
		t.Fatalf("new session after drain: %v", err)
	}
	_ = second
	_ = e.Stop()
}
