package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Variation VariationConfig `yaml:"variation"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIKey         string        `yaml:"api_key"`          // Bearer token required on API routes (empty = open)
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // HTTP write timeout (default: 30s)
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
}

// BackendConfig contains rule-evaluation backend settings
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"` // Env var read when api_key is empty
	Timeout   time.Duration `yaml:"timeout"`     // Per-request timeout (default: 30s)
}

// DatabaseConfig contains local session database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig contains grouped-payload cache settings
type CacheConfig struct {
	Path string        `yaml:"path"`
	TTL  time.Duration `yaml:"ttl"` // Payload lifetime before a forced refetch (default: 5m)
}

// JobsConfig contains job polling settings
type JobsConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"`     // Fixed delay between status polls (default: 2s)
	MaxAttempts      int           `yaml:"max_attempts"`      // Polls before a job is declared timed out (default: 100)
	DebounceInterval time.Duration `yaml:"debounce_interval"` // Coalescing window for refresh triggers (default: 500ms)
}

// VariationConfig contains AI message variation settings
type VariationConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"` // Default: gemini-2.0-flash
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"` // Env var read when api_key is empty (default: GEMINI_API_KEY)
	// With Enabled and no key, variation is delegated to the evaluator
	// backend's preview endpoint.
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Default: /metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	cfg.resolveSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.MaxHeaderBytes == 0 {
		c.Server.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}
	if c.Backend.APIKeyEnv == "" {
		c.Backend.APIKeyEnv = "CONSOLA_BACKEND_API_KEY"
	}

	if c.Database.Path == "" {
		c.Database.Path = "/var/lib/consola/consola.db"
	}

	if c.Cache.Path == "" {
		c.Cache.Path = "/var/lib/consola/cache.db"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}

	if c.Jobs.PollInterval == 0 {
		c.Jobs.PollInterval = 2 * time.Second
	}
	if c.Jobs.MaxAttempts == 0 {
		c.Jobs.MaxAttempts = 100
	}
	if c.Jobs.DebounceInterval == 0 {
		c.Jobs.DebounceInterval = 500 * time.Millisecond
	}

	if c.Variation.Model == "" {
		c.Variation.Model = "gemini-2.0-flash"
	}
	if c.Variation.APIKeyEnv == "" {
		c.Variation.APIKeyEnv = "GEMINI_API_KEY"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// resolveSecrets fills keys left empty in the file from the environment.
func (c *Config) resolveSecrets() {
	if c.Backend.APIKey == "" {
		c.Backend.APIKey = os.Getenv(c.Backend.APIKeyEnv)
	}
	if c.Variation.APIKey == "" {
		c.Variation.APIKey = os.Getenv(c.Variation.APIKeyEnv)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}

	if c.Jobs.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("jobs.poll_interval must be at least 100ms")
	}
	if c.Jobs.MaxAttempts < 1 {
		return fmt.Errorf("jobs.max_attempts must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
