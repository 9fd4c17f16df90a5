package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/useridle/pkg/idle"
)

// Config holds all configuration for useridle
type Config struct {
	// Monitor settings
	PollInterval  time.Duration `yaml:"poll_interval" env:"USERIDLE_POLL_INTERVAL"`
	ActivityKinds []string      `yaml:"activity_kinds"`

	// Notification settings. Without a topic notifications are printed to
	// the terminal instead.
	NtfyTopic  string `yaml:"ntfy_topic" env:"USERIDLE_TOPIC"`
	NtfyServer string `yaml:"ntfy_server" env:"USERIDLE_SERVER"`

	// Behavior flags
	Quiet bool `yaml:"quiet" env:"USERIDLE_QUIET"`
	Debug bool `yaml:"debug" env:"USERIDLE_DEBUG"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Batching
	BatchWindow time.Duration `yaml:"batch_window"`

	Watchers []WatcherConfig `yaml:"watchers"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// WatcherConfig describes one idle watcher to register at startup.
type WatcherConfig struct {
	Name           string        `yaml:"name"`
	Timeout        time.Duration `yaml:"timeout"`
	Tick           bool          `yaml:"tick"`
	Message        string        `yaml:"message"`
	NotifyOnActive bool          `yaml:"notify_on_active"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval: idle.DefaultPollInterval,
		NtfyServer:   "https://ntfy.sh",
		RateLimit: RateLimitConfig{
			Window:      1 * time.Minute,
			MaxMessages: 5,
		},
		Watchers: []WatcherConfig{
			{
				Name:           "away",
				Timeout:        5 * time.Minute,
				NotifyOnActive: true,
			},
		},
	}
}

// Kinds returns the configured activity kinds. An empty list means every
// kind.
func (c *Config) Kinds() ([]idle.ActivityKind, error) {
	if len(c.ActivityKinds) == 0 {
		return idle.AllKinds(), nil
	}

	kinds := make([]idle.ActivityKind, 0, len(c.ActivityKinds))
	for _, name := range c.ActivityKinds {
		k, err := idle.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("activity_kinds: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Load loads configuration from file and environment, then applies overrides
// (typically command line flags) before validating. An explicit path must
// exist; the default locations are optional.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
	}
	if path != "" {
		err := loadFromFile(cfg, path)
		if err != nil && (explicit || !errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	for _, override := range overrides {
		override(cfg)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if path := os.Getenv("USERIDLE_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "useridle", "config.yaml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "useridle", "config.yaml")
	}

	return ""
}

func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - path comes from the user's flag, env var or standard locations
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func loadFromEnv(cfg *Config) error {
	if topic := os.Getenv("USERIDLE_TOPIC"); topic != "" {
		cfg.NtfyTopic = topic
	}

	if server := os.Getenv("USERIDLE_SERVER"); server != "" {
		cfg.NtfyServer = server
	}

	if interval := os.Getenv("USERIDLE_POLL_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid USERIDLE_POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}

	for _, b := range []struct {
		env string
		dst *bool
	}{
		{"USERIDLE_QUIET", &cfg.Quiet},
		{"USERIDLE_DEBUG", &cfg.Debug},
	} {
		v := os.Getenv(b.env)
		if v == "" {
			continue
		}
		parsed, err := parseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", b.env, err)
		}
		*b.dst = parsed
	}

	return nil
}

func parseBool(v string) (bool, error) {
	switch v {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%q (use true/false)", v)
	}
}

func validate(cfg *Config) error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	if _, err := cfg.Kinds(); err != nil {
		return err
	}

	if cfg.RateLimit.MaxMessages < 0 {
		return fmt.Errorf("rate_limit.max_messages must be non-negative")
	}

	if cfg.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be non-negative")
	}

	if cfg.BatchWindow < 0 {
		return fmt.Errorf("batch_window must be non-negative")
	}

	seen := make(map[string]bool, len(cfg.Watchers))
	for i, w := range cfg.Watchers {
		if w.Name == "" {
			return fmt.Errorf("watchers[%d].name is required", i)
		}
		if seen[w.Name] {
			return fmt.Errorf("watchers[%d].name %q is duplicated", i, w.Name)
		}
		seen[w.Name] = true

		if w.Timeout <= 0 {
			return fmt.Errorf("watchers[%d].timeout must be positive", i)
		}
	}

	return nil
}
