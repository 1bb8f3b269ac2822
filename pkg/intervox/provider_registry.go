package intervox

import (
	"fmt"
	"strings"

	"github.com/nareswara/intervox/pkg/capture"
	"github.com/nareswara/intervox/pkg/capture/bridge"
	capturemock "github.com/nareswara/intervox/pkg/capture/mock"
	"github.com/nareswara/intervox/pkg/channel"
	"github.com/nareswara/intervox/pkg/channel/gemini"
	channelmock "github.com/nareswara/intervox/pkg/channel/mock"
	"github.com/nareswara/intervox/pkg/configutil"
	"github.com/nareswara/intervox/pkg/frames"
	"github.com/nareswara/intervox/pkg/stt"
	"github.com/nareswara/intervox/pkg/stt/deepgram"
	sttmock "github.com/nareswara/intervox/pkg/stt/mock"
)

type ChannelFactory func(cfg Config, sessionID string) (channel.Channel, error)

// SourceFactory builds a capture source. The returned image channel is nil
// for sources without a video leg.
type SourceFactory func(cfg Config, sessionID string) (capture.Source, <-chan frames.ImageFrame, error)

type STTFactory func(cfg Config, sessionID string) (stt.StreamingSTT, error)

// ProviderRegistry maps vendor names from config to factories. Applications
// register custom providers before building sessions.
type ProviderRegistry struct {
	channels map[string]ChannelFactory
	sources  map[string]SourceFactory
	stts     map[string]STTFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		channels: make(map[string]ChannelFactory),
		sources:  make(map[string]SourceFactory),
		stts:     make(map[string]STTFactory),
	}
}

// DefaultRegistry returns a registry with the built-in providers.
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterChannel("gemini", buildGeminiChannel)
	r.RegisterChannel("mock", func(Config, string) (channel.Channel, error) {
		return channelmock.New(), nil
	})
	r.RegisterSource("bridge", buildBridgeSource)
	r.RegisterSource("mock", func(Config, string) (capture.Source, <-chan frames.ImageFrame, error) {
		return capturemock.New(), nil, nil
	})
	r.RegisterSTT("deepgram", buildDeepgramSTT)
	r.RegisterSTT("mock", func(cfg Config, sessionID string) (stt.StreamingSTT, error) {
		return sttmock.New(sttmock.Config{SessionID: sessionID}), nil
	})
	return r
}

func (r *ProviderRegistry) RegisterChannel(name string, factory ChannelFactory) {
	r.channels[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterSource(name string, factory SourceFactory) {
	r.sources[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stts[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildChannel(provider string, cfg Config, sessionID string) (channel.Channel, error) {
	fn := r.channels[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("channel provider not registered: %s", provider)
	}
	return fn(cfg, sessionID)
}

func (r *ProviderRegistry) BuildSource(provider string, cfg Config, sessionID string) (capture.Source, <-chan frames.ImageFrame, error) {
	fn := r.sources[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, nil, fmt.Errorf("capture provider not registered: %s", provider)
	}
	return fn(cfg, sessionID)
}

func (r *ProviderRegistry) BuildSTT(provider string, cfg Config, sessionID string) (stt.StreamingSTT, error) {
	fn := r.stts[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg, sessionID)
}

func buildGeminiChannel(cfg Config, _ string) (channel.Channel, error) {
	if err := validateSettings("vendors.channel.settings", cfg.Vendors.Channel.Settings, configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"endpoint"},
	}); err != nil {
		return nil, err
	}
	var gc gemini.Config
	if err := configutil.DecodeSettings(cfg.Vendors.Channel.Settings, &gc); err != nil {
		return nil, fmt.Errorf("gemini settings: %w", err)
	}
	if strings.TrimSpace(gc.APIKey) == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}
	return gemini.New(gc), nil
}

func buildBridgeSource(cfg Config, _ string) (capture.Source, <-chan frames.ImageFrame, error) {
	if err := validateSettings("capture.settings", cfg.Capture.Settings, configutil.Schema{
		Optional: []string{"server_addr", "media_path", "allow_any_origin", "allowed_origins"},
	}); err != nil {
		return nil, nil, err
	}
	var bc bridge.Config
	if err := configutil.DecodeSettings(cfg.Capture.Settings, &bc); err != nil {
		return nil, nil, fmt.Errorf("bridge settings: %w", err)
	}
	src := bridge.New(bc)
	return src, src.Images(), nil
}

func buildDeepgramSTT(cfg Config, sessionID string) (stt.StreamingSTT, error) {
	if err := validateSettings("vendors.stt.settings", cfg.Vendors.STT.Settings, configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"model", "language", "sample_rate", "encoding", "interim"},
	}); err != nil {
		return nil, err
	}
	var dc deepgram.Config
	if err := configutil.DecodeSettings(cfg.Vendors.STT.Settings, &dc); err != nil {
		return nil, fmt.Errorf("deepgram settings: %w", err)
	}
	if strings.TrimSpace(dc.APIKey) == "" {
		return nil, fmt.Errorf("deepgram api_key is required")
	}
	dc.SessionID = sessionID
	if dc.SampleRate == 0 {
		dc.SampleRate = cfg.Capture.SourceRate
	}
	dc.Interim = cfg.Session.ForwardInterim
	return deepgram.New(dc), nil
}

func validateSettings(path string, input map[string]any, schema configutil.Schema) error {
	if err := configutil.ValidateSettings(input, schema); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
