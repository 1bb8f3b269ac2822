package intervox

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/nareswara/intervox/pkg/profile"
)

type Config struct {
	Session       SessionConfig       `mapstructure:"session"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Capture       CaptureConfig       `mapstructure:"capture"`
	Playback      PlaybackConfig      `mapstructure:"playback"`
	Candidate     profile.Candidate   `mapstructure:"candidate"`
	Prompt        PromptConfig        `mapstructure:"prompt"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type SessionConfig struct {
	Model               string `mapstructure:"model"`
	Voice               string `mapstructure:"voice"`
	DurationLimitS      int    `mapstructure:"duration_limit_s"`
	TickIntervalMS      int    `mapstructure:"tick_interval_ms"`
	InputTranscription  bool   `mapstructure:"input_transcription"`
	OutputTranscription bool   `mapstructure:"output_transcription"`
	ForwardInterim      bool   `mapstructure:"forward_interim"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	Channel VendorConfig `mapstructure:"channel"`
	STT     VendorConfig `mapstructure:"stt"`
}

type CaptureConfig struct {
	Provider   string         `mapstructure:"provider"`
	SourceRate int            `mapstructure:"source_rate"`
	Settings   map[string]any `mapstructure:"settings"`
}

type PlaybackConfig struct {
	SinkRate   int    `mapstructure:"sink_rate"`
	OutputPath string `mapstructure:"output_path"`
}

type PromptConfig struct {
	Persona    string `mapstructure:"persona"`
	BasePrompt string `mapstructure:"base_prompt"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string `mapstructure:"artifacts_dir"`
	RecordAudio   bool   `mapstructure:"record_audio"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("session.model", "models/gemini-2.0-flash-live-001")
	v.SetDefault("session.voice", "Aoede")
	v.SetDefault("session.duration_limit_s", 1500)
	v.SetDefault("session.tick_interval_ms", 1000)
	v.SetDefault("session.input_transcription", true)
	v.SetDefault("session.output_transcription", true)
	v.SetDefault("session.forward_interim", false)
	v.SetDefault("vendors.channel.provider", "gemini")
	v.SetDefault("capture.provider", "bridge")
	v.SetDefault("capture.source_rate", 16000)
	v.SetDefault("playback.sink_rate", 24000)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.record_audio", false)
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.Channel.Provider) == "" {
		return fmt.Errorf("vendors.channel.provider is required")
	}
	if strings.TrimSpace(c.Capture.Provider) == "" {
		return fmt.Errorf("capture.provider is required")
	}
	if c.Session.DurationLimitS <= 0 {
		return fmt.Errorf("session.duration_limit_s must be positive")
	}

	return nil
}

// expandEnvStrings resolves ${VAR} references so secrets like API keys can
// stay out of the config file.
func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.Channel.Settings = expandSettings(cfg.Vendors.Channel.Settings)
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Capture.Settings = expandSettings(cfg.Capture.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
