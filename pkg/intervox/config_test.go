package intervox

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
vendors:
  channel:
    provider: mock
capture:
  provider: mock
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Session.Model != "models/gemini-2.0-flash-live-001" {
		t.Fatalf("model default = %q", cfg.Session.Model)
	}
	if cfg.Session.DurationLimitS != 1500 {
		t.Fatalf("duration limit default = %d", cfg.Session.DurationLimitS)
	}
	if cfg.Capture.SourceRate != 16000 || cfg.Playback.SinkRate != 24000 {
		t.Fatalf("rate defaults = %d/%d", cfg.Capture.SourceRate, cfg.Playback.SinkRate)
	}
	if !cfg.Session.InputTranscription || !cfg.Session.OutputTranscription {
		t.Fatal("transcription defaults should be on")
	}
	if !cfg.Privacy.RedactPII {
		t.Fatal("redaction default should be on")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level default = %q", cfg.LogLevel)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-key")
	path := writeConfig(t, `
vendors:
  channel:
    provider: gemini
    settings:
      api_key: ${TEST_GEMINI_KEY}
capture:
  provider: mock
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Vendors.Channel.Settings["api_key"]; got != "secret-key" {
		t.Fatalf("api_key = %v, want expanded env value", got)
	}
}

func TestLoadConfigProfile(t *testing.T) {
	path := writeConfig(t, `
vendors:
  channel:
    provider: mock
capture:
  provider: mock
candidate:
  text: Backend engineer
  skills: [Go, Redis]
  projects: [billing pipeline]
session:
  duration_limit_s: 900
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Candidate.Text != "Backend engineer" {
		t.Fatalf("candidate text = %q", cfg.Candidate.Text)
	}
	if len(cfg.Candidate.Skills) != 2 || cfg.Candidate.Skills[0] != "Go" {
		t.Fatalf("skills = %v", cfg.Candidate.Skills)
	}
	if cfg.Session.DurationLimitS != 900 {
		t.Fatalf("duration limit = %d", cfg.Session.DurationLimitS)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing_channel_provider", `
vendors:
  channel:
    provider: ""
capture:
  provider: mock
`},
		{"missing_capture_provider", `
vendors:
  channel:
    provider: mock
capture:
  provider: ""
`},
		{"nonpositive_duration", `
vendors:
  channel:
    provider: mock
capture:
  provider: mock
session:
  duration_limit_s: 0
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
