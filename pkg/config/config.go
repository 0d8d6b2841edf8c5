package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/voxkey/voxkey/pkg/dictation"
)

type Config struct {
	Audio              AudioConfig         `mapstructure:"audio"`
	Transcription      TranscriptionConfig `mapstructure:"transcription"`
	Output             OutputConfig        `mapstructure:"output"`
	UI                 UIConfig            `mapstructure:"ui"`
	DictationCommands  CommandsConfig      `mapstructure:"dictation_commands"`
	Recognizer         VendorConfig        `mapstructure:"recognizer"`
	Telemetry          TelemetryConfig     `mapstructure:"telemetry"`
	Metrics            MetricsConfig       `mapstructure:"metrics"`
	LogLevel           string              `mapstructure:"log_level"`
	LogFormat          string              `mapstructure:"log_format"`
}

type AudioConfig struct {
	DeviceID          int `mapstructure:"device_id"`
	SampleRate        int `mapstructure:"sample_rate"`
	FramesPerBuffer   int `mapstructure:"frames_per_buffer"`
	HangoverTimeoutMS int `mapstructure:"hangover_timeout_ms"`
	VADAggressiveness int `mapstructure:"vad_aggressiveness"`
	FrameTimeoutMS    int `mapstructure:"frame_timeout_ms"`
}

type TranscriptionConfig struct {
	KeypressDelayMS int    `mapstructure:"keypress_delay_ms"`
	NoiseFiltering  bool   `mapstructure:"noise_filtering"`
	ModelPath       string `mapstructure:"model_path"`
	Language        string `mapstructure:"language"`
}

type OutputConfig struct {
	Method string `mapstructure:"method"`
}

type UIConfig struct {
	PauseOnActiveWindowChange bool `mapstructure:"pause_on_active_window_change"`
}

type CommandsConfig struct {
	SupportedCommands []dictation.CommandEntry `mapstructure:"supported_commands"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type TelemetryConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// MetricsConfig controls optional metric persistence. When JSONLPath is
// set, every metric event is appended to that file as one JSON line.
type MetricsConfig struct {
	JSONLPath string `mapstructure:"jsonl_path"`
}

// HangoverTimeout returns the hangover timeout as a duration.
func (a AudioConfig) HangoverTimeout() time.Duration {
	return time.Duration(a.HangoverTimeoutMS) * time.Millisecond
}

// FrameTimeout returns the per-fetch timeout as a duration.
func (a AudioConfig) FrameTimeout() time.Duration {
	return time.Duration(a.FrameTimeoutMS) * time.Millisecond
}

// FrameDuration returns the nominal duration of one capture buffer.
func (a AudioConfig) FrameDuration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(a.FramesPerBuffer) * time.Second / time.Duration(a.SampleRate)
}

// KeypressDelay returns the inter-key delay as a duration.
func (t TranscriptionConfig) KeypressDelay() time.Duration {
	return time.Duration(t.KeypressDelayMS) * time.Millisecond
}

// Commands returns the configured command table, falling back to the
// built-in defaults when the config names none.
func (c Config) Commands() []dictation.CommandEntry {
	if len(c.DictationCommands.SupportedCommands) > 0 {
		return c.DictationCommands.SupportedCommands
	}
	return dictation.DefaultCommands()
}

// Load reads configuration from path. An empty path loads defaults only.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandSettings(cfg.Recognizer.Settings)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.device_id", -1)
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.frames_per_buffer", 320)
	v.SetDefault("audio.hangover_timeout_ms", 300)
	v.SetDefault("audio.vad_aggressiveness", 2)
	v.SetDefault("audio.frame_timeout_ms", 10)
	v.SetDefault("transcription.keypress_delay_ms", 20)
	v.SetDefault("transcription.noise_filtering", true)
	v.SetDefault("transcription.model_path", "")
	v.SetDefault("transcription.language", "en-US")
	v.SetDefault("output.method", "simulated_keypresses")
	v.SetDefault("ui.pause_on_active_window_change", false)
	v.SetDefault("recognizer.provider", "mock")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen_addr", "127.0.0.1:8090")
	v.SetDefault("metrics.jsonl_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return fmt.Errorf("audio.frames_per_buffer must be positive")
	}
	if c.Audio.HangoverTimeoutMS <= 0 {
		return fmt.Errorf("audio.hangover_timeout_ms must be positive")
	}
	if c.Audio.VADAggressiveness < 0 || c.Audio.VADAggressiveness > 3 {
		return fmt.Errorf("audio.vad_aggressiveness must be in [0,3]")
	}
	switch c.Output.Method {
	case "simulated_keypresses", "clipboard":
	default:
		return fmt.Errorf("output.method must be simulated_keypresses or clipboard")
	}
	if strings.TrimSpace(c.Recognizer.Provider) == "" {
		return fmt.Errorf("recognizer.provider is required")
	}
	for _, cmd := range c.DictationCommands.SupportedCommands {
		if cmd.Phrase == "" || cmd.Action == "" {
			return fmt.Errorf("dictation_commands entries need phrase and action")
		}
	}
	return nil
}

func expandSettings(settings map[string]any) {
	for k, val := range settings {
		if s, ok := val.(string); ok {
			settings[k] = os.ExpandEnv(s)
		}
	}
}
