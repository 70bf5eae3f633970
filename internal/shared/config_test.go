package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Queue.BaseURL != "http://127.0.0.1:8089" {
			t.Errorf("expected base URL http://127.0.0.1:8089, got %s", config.Queue.BaseURL)
		}
		if config.Queue.PollInterval.Duration != 2*time.Second {
			t.Errorf("expected poll interval 2s, got %v", config.Queue.PollInterval)
		}
		if config.Queue.CleanupAge.Duration != 24*time.Hour {
			t.Errorf("expected cleanup age 24h, got %v", config.Queue.CleanupAge)
		}
		if config.Database.Path != "./webpq.db" {
			t.Errorf("expected database path ./webpq.db, got %s", config.Database.Path)
		}
		if config.Mock.FailPrefix != "fail-" {
			t.Errorf("expected fail prefix fail-, got %s", config.Mock.FailPrefix)
		}
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})

	t.Run("LoadConfig overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := "[queue]\nbase_url = \"http://queue.internal\"\npoll_interval = \"500ms\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Queue.BaseURL != "http://queue.internal" {
			t.Errorf("expected overridden base URL, got %s", config.Queue.BaseURL)
		}
		if config.Queue.PollInterval.Duration != 500*time.Millisecond {
			t.Errorf("expected 500ms poll interval, got %v", config.Queue.PollInterval)
		}
		if config.Queue.CleanupAge.Duration != 24*time.Hour {
			t.Errorf("expected default cleanup age to survive, got %v", config.Queue.CleanupAge)
		}
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[queue]\npoll_interval = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(path); err == nil {
			t.Error("expected parse error for invalid duration")
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(c *Config)
		}{
			{"empty base url", func(c *Config) { c.Queue.BaseURL = "" }},
			{"zero poll interval", func(c *Config) { c.Queue.PollInterval.Duration = 0 }},
			{"zero timeout", func(c *Config) { c.Queue.RequestTimeout.Duration = 0 }},
			{"negative cleanup age", func(c *Config) { c.Queue.CleanupAge.Duration = -time.Hour }},
			{"negative rate limit", func(c *Config) { c.Queue.RateLimit = -1 }},
			{"unknown priority", func(c *Config) { c.Queue.DefaultPriority = "urgent" }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		if _, err := os.Stat(configPath); err != nil {
			t.Errorf("config file should exist: %v", err)
		}
		if err := CreateConfigFile(configPath); err == nil {
			t.Error("expected error when config file already exists")
		}
	})
}
