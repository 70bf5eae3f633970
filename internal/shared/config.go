package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Queue    QueueConfig    `toml:"queue"`
	Database DatabaseConfig `toml:"database"`
	Mock     MockConfig     `toml:"mock"`
}

// QueueConfig contains job queue backend and polling settings.
type QueueConfig struct {
	BaseURL         string   `toml:"base_url"`
	PollInterval    Duration `toml:"poll_interval"`
	CleanupAge      Duration `toml:"cleanup_age"`
	RequestTimeout  Duration `toml:"request_timeout"`
	RateLimit       float64  `toml:"rate_limit"`     // Requests per second across all calls
	MaxConcurrent   int      `toml:"max_concurrent"` // Status fetches in flight per cycle, 0 for unbounded
	DefaultPriority string   `toml:"default_priority"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// MockConfig contains settings for the in-memory mock queue backend.
type MockConfig struct {
	Addr       string  `toml:"addr"`
	Advance    float64 `toml:"advance"`     // Progress added per status read
	FailPrefix string  `toml:"fail_prefix"` // Item IDs with this prefix end up failed
}

// Duration wraps [time.Duration] so it can be written as "2s" or "24h" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the settings the orchestrator cannot run without.
func (c *Config) Validate() error {
	if c.Queue.BaseURL == "" {
		return fmt.Errorf("%w: queue.base_url is empty", ErrInvalidConfig)
	}
	if c.Queue.PollInterval.Duration <= 0 {
		return fmt.Errorf("%w: queue.poll_interval must be positive", ErrInvalidConfig)
	}
	if c.Queue.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("%w: queue.request_timeout must be positive", ErrInvalidConfig)
	}
	if c.Queue.CleanupAge.Duration <= 0 {
		return fmt.Errorf("%w: queue.cleanup_age must be positive", ErrInvalidConfig)
	}
	if c.Queue.RateLimit < 0 || c.Queue.MaxConcurrent < 0 {
		return fmt.Errorf("%w: queue.rate_limit and queue.max_concurrent cannot be negative", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Queue.DefaultPriority) {
	case "", "low", "normal", "high":
	default:
		return fmt.Errorf("%w: unknown queue.default_priority %q", ErrInvalidConfig, c.Queue.DefaultPriority)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
