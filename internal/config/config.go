// Package config loads the server configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"resttimer/internal/domain"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Timer    TimerConfig    `yaml:"timer"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StreamInterval  time.Duration `yaml:"stream_interval"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	ReapInterval    time.Duration `yaml:"reap_interval"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type TimerConfig struct {
	DefaultSeconds int           `yaml:"default_seconds"`
	DefaultVariant string        `yaml:"default_variant"`
	FrameInterval  time.Duration `yaml:"frame_interval"`
	Presets        []int         `yaml:"presets"`
}

type FeedbackConfig struct {
	Sound      bool    `yaml:"sound"`
	Haptics    bool    `yaml:"haptics"`
	Volume     float64 `yaml:"volume"`
	SampleRate int     `yaml:"sample_rate"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 30 * time.Second,
			StreamInterval:  250 * time.Millisecond,
			SessionTTL:      30 * time.Minute,
			ReapInterval:    time.Minute,
		},
		Timer: TimerConfig{
			DefaultSeconds: 60,
			DefaultVariant: string(domain.VariantFull),
			FrameInterval:  16 * time.Millisecond,
			Presets:        append([]int(nil), domain.DefaultPresetSeconds...),
		},
		Feedback: FeedbackConfig{
			Sound:      true,
			Haptics:    true,
			Volume:     0,
			SampleRate: 44100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error

	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		errs = append(errs, envError("PORT", err))
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, envError("SHUTDOWN_TIMEOUT", err))
		c.Server.ShutdownTimeout = d
	}
	if v, ok := os.LookupEnv("FRAME_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		errs = append(errs, envError("FRAME_INTERVAL", err))
		c.Timer.FrameInterval = d
	}
	if v, ok := os.LookupEnv("DEFAULT_VARIANT"); ok {
		c.Timer.DefaultVariant = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("SOUND_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError("SOUND_ENABLED", err))
		c.Feedback.Sound = b
	}
	if v, ok := os.LookupEnv("HAPTICS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError("HAPTICS_ENABLED", err))
		c.Feedback.Haptics = b
	}

	return errors.Join(errs...)
}

func envError(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", key, err)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.StreamInterval <= 0 {
		errs = append(errs, errors.New("server.stream_interval must be positive"))
	}
	if c.Server.SessionTTL <= 0 {
		errs = append(errs, errors.New("server.session_ttl must be positive"))
	}
	if c.Server.ReapInterval <= 0 {
		errs = append(errs, errors.New("server.reap_interval must be positive"))
	}
	if c.Timer.DefaultSeconds < 1 {
		errs = append(errs, errors.New("timer.default_seconds must be at least 1"))
	}
	if _, err := domain.ParseVariant(c.Timer.DefaultVariant); err != nil {
		errs = append(errs, fmt.Errorf("timer.default_variant: %w", err))
	}
	if c.Timer.FrameInterval <= 0 {
		errs = append(errs, errors.New("timer.frame_interval must be positive"))
	}
	if domain.NewPresetCatalog(c.Timer.Presets...).Len() == 0 {
		errs = append(errs, errors.New("timer.presets needs at least one positive value"))
	}
	if c.Feedback.SampleRate <= 0 {
		errs = append(errs, errors.New("feedback.sample_rate must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format %q must be json or text", c.Log.Format))
	}

	return errors.Join(errs...)
}

// Variant returns the validated default variant.
func (c TimerConfig) Variant() domain.Variant {
	v, err := domain.ParseVariant(c.DefaultVariant)
	if err != nil {
		return domain.VariantFull
	}
	return v
}

// SlogLevel parses Level ("debug", "info", "warn", "error").
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
