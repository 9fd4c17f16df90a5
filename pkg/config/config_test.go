package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/useridle/pkg/idle"
)

var configEnv = []string{
	"USERIDLE_CONFIG",
	"USERIDLE_TOPIC",
	"USERIDLE_SERVER",
	"USERIDLE_POLL_INTERVAL",
	"USERIDLE_QUIET",
	"USERIDLE_DEBUG",
}

// isolateEnv clears every variable Load reads and points the config path at a
// file that does not exist so a developer's own config cannot leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
	t.Setenv("USERIDLE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.NtfyServer != "https://ntfy.sh" {
		t.Errorf("expected NtfyServer to be https://ntfy.sh but got %s", cfg.NtfyServer)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("expected PollInterval to be 500ms but got %v", cfg.PollInterval)
	}
	if len(cfg.Watchers) != 1 || cfg.Watchers[0].Name != "away" {
		t.Errorf("expected a single default watcher named away but got %+v", cfg.Watchers)
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		t.Fatalf("Kinds() error: %v", err)
	}
	if len(kinds) != len(idle.AllKinds()) {
		t.Errorf("expected all %d kinds by default but got %d", len(idle.AllKinds()), len(kinds))
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name      string
		envVars   map[string]string
		checkFunc func(*testing.T, *Config)
		wantErr   bool
	}{
		{
			name: "valid environment variables",
			envVars: map[string]string{
				"USERIDLE_TOPIC":         "test-topic",
				"USERIDLE_SERVER":        "https://test.server",
				"USERIDLE_POLL_INTERVAL": "250ms",
				"USERIDLE_DEBUG":         "1",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.NtfyTopic != "test-topic" {
					t.Errorf("expected NtfyTopic to be test-topic but got %s", cfg.NtfyTopic)
				}
				if cfg.NtfyServer != "https://test.server" {
					t.Errorf("expected NtfyServer to be https://test.server but got %s", cfg.NtfyServer)
				}
				if cfg.PollInterval != 250*time.Millisecond {
					t.Errorf("expected PollInterval to be 250ms but got %v", cfg.PollInterval)
				}
				if !cfg.Debug {
					t.Error("expected Debug to be true")
				}
			},
		},
		{
			name: "invalid poll interval",
			envVars: map[string]string{
				"USERIDLE_QUIET":         "true",
				"USERIDLE_POLL_INTERVAL": "soon",
			},
			wantErr: true,
		},
		{
			name: "zero poll interval",
			envVars: map[string]string{
				"USERIDLE_QUIET":         "true",
				"USERIDLE_POLL_INTERVAL": "0s",
			},
			wantErr: true,
		},
		{
			name: "invalid quiet value",
			envVars: map[string]string{
				"USERIDLE_QUIET": "maybe",
			},
			wantErr: true,
		},
		{
			name: "boolean variations",
			envVars: map[string]string{
				"USERIDLE_QUIET": "yes",
				"USERIDLE_DEBUG": "no",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				if !cfg.Quiet {
					t.Error("expected Quiet to be true for 'yes'")
				}
				if cfg.Debug {
					t.Error("expected Debug to be false for 'no'")
				}
			},
		},
		{
			name:    "topic is optional",
			envVars: map[string]string{},
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.NtfyTopic != "" {
					t.Errorf("expected empty NtfyTopic but got %s", cfg.NtfyTopic)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load("")

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		checkFunc func(*testing.T, *Config)
		wantErr   bool
	}{
		{
			name: "valid config file",
			content: `
poll_interval: 100ms
activity_kinds: [keydown, resize]
ntfy_topic: "file-topic"
ntfy_server: "https://file.server"
rate_limit:
  window: 30s
  max_messages: 2
batch_window: 2s
watchers:
  - name: short
    timeout: 30s
    message: "stepped away"
  - name: nag
    timeout: 10m
    tick: true
    notify_on_active: true
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				if cfg.NtfyTopic != "file-topic" {
					t.Errorf("expected NtfyTopic to be file-topic but got %s", cfg.NtfyTopic)
				}
				if cfg.PollInterval != 100*time.Millisecond {
					t.Errorf("expected PollInterval to be 100ms but got %v", cfg.PollInterval)
				}
				if cfg.RateLimit.MaxMessages != 2 || cfg.RateLimit.Window != 30*time.Second {
					t.Errorf("unexpected rate limit %+v", cfg.RateLimit)
				}
				if cfg.BatchWindow != 2*time.Second {
					t.Errorf("expected BatchWindow to be 2s but got %v", cfg.BatchWindow)
				}

				kinds, err := cfg.Kinds()
				if err != nil {
					t.Fatalf("Kinds() error: %v", err)
				}
				if len(kinds) != 2 || kinds[0] != idle.KindKeyDown || kinds[1] != idle.KindResize {
					t.Errorf("unexpected kinds %v", kinds)
				}

				if len(cfg.Watchers) != 2 {
					t.Fatalf("expected 2 watchers but got %d", len(cfg.Watchers))
				}
				want := WatcherConfig{Name: "nag", Timeout: 10 * time.Minute, Tick: true, NotifyOnActive: true}
				if cfg.Watchers[1] != want {
					t.Errorf("expected watcher %+v but got %+v", want, cfg.Watchers[1])
				}
				if cfg.Watchers[0].Message != "stepped away" {
					t.Errorf("expected message 'stepped away' but got %q", cfg.Watchers[0].Message)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: "invalid: yaml: content:\n  bad indentation",
			wantErr: true,
		},
		{
			name:    "unknown activity kind",
			content: "ntfy_topic: t\nactivity_kinds: [blink]\n",
			wantErr: true,
		},
		{
			name:    "duplicate watcher names",
			content: "ntfy_topic: t\nwatchers:\n  - {name: a, timeout: 1m}\n  - {name: a, timeout: 2m}\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)

			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write config file: %v", err)
			}
			t.Setenv("USERIDLE_CONFIG", configPath)

			cfg, err := Load("")

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoadExplicitPath(t *testing.T) {
	isolateEnv(t)

	t.Run("missing explicit file is an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("explicit path wins over env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "explicit.yaml")
		if err := os.WriteFile(path, []byte("quiet: true\n"), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.Quiet {
			t.Error("expected Quiet from explicit file")
		}
	})

	t.Run("overrides apply before validation", func(t *testing.T) {
		cfg, err := Load("", func(c *Config) { c.PollInterval = time.Second })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.PollInterval != time.Second {
			t.Errorf("expected override PollInterval 1s but got %v", cfg.PollInterval)
		}

		if _, err := Load("", func(c *Config) { c.PollInterval = -time.Second }); err == nil {
			t.Error("expected invalid override to fail validation")
		}
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "explicit.yaml")
		if err := os.WriteFile(path, []byte("ntfy_topic: from-file\n"), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("USERIDLE_TOPIC", "from-env")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.NtfyTopic != "from-env" {
			t.Errorf("expected env topic but got %s", cfg.NtfyTopic)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.NtfyTopic = "test-topic"
		return cfg
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		wantErr  bool
		errorMsg string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:     "zero poll interval",
			mutate:   func(c *Config) { c.PollInterval = 0 },
			wantErr:  true,
			errorMsg: "poll_interval",
		},
		{
			name:     "unknown activity kind",
			mutate:   func(c *Config) { c.ActivityKinds = []string{"keydown", "blink"} },
			wantErr:  true,
			errorMsg: "blink",
		},
		{
			name:     "negative rate limit",
			mutate:   func(c *Config) { c.RateLimit.MaxMessages = -1 },
			wantErr:  true,
			errorMsg: "rate_limit.max_messages",
		},
		{
			name:     "negative batch window",
			mutate:   func(c *Config) { c.BatchWindow = -time.Second },
			wantErr:  true,
			errorMsg: "batch_window",
		},
		{
			name:     "unnamed watcher",
			mutate:   func(c *Config) { c.Watchers = append(c.Watchers, WatcherConfig{Timeout: time.Minute}) },
			wantErr:  true,
			errorMsg: "watchers[1].name",
		},
		{
			name:     "zero watcher timeout",
			mutate:   func(c *Config) { c.Watchers[0].Timeout = 0 },
			wantErr:  true,
			errorMsg: "watchers[0].timeout",
		},
		{
			name:    "no watchers",
			mutate:  func(c *Config) { c.Watchers = nil },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q but got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		want    string
	}{
		{
			name:    "explicit config path",
			envVars: map[string]string{"USERIDLE_CONFIG": "/custom/path/config.yaml"},
			want:    "/custom/path/config.yaml",
		},
		{
			name:    "XDG config path",
			envVars: map[string]string{"XDG_CONFIG_HOME": "/xdg/config"},
			want:    "/xdg/config/useridle/config.yaml",
		},
		{
			name:    "home directory fallback",
			envVars: map[string]string{"HOME": "/home/someone"},
			want:    "/home/someone/.config/useridle/config.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("USERIDLE_CONFIG", "")
			t.Setenv("XDG_CONFIG_HOME", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if got := getConfigPath(); got != tt.want {
				t.Errorf("getConfigPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
