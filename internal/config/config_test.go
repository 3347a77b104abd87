package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	content := `
server:
  listen_addr: ":9080"
  api_key: "console-key"

backend:
  base_url: "https://backend.test/api/v1"
  api_key: "backend-key"
  timeout: 10s

database:
  path: "/tmp/consola.db"

cache:
  path: "/tmp/cache.db"
  ttl: 2m

jobs:
  poll_interval: 1s
  max_attempts: 30
  debounce_interval: 300ms

variation:
  enabled: true
  model: "gemini-2.0-flash"
  api_key: "gemini-key"

logging:
  level: "debug"
  format: "text"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9080" {
		t.Errorf("Server.ListenAddr = %v, want :9080", cfg.Server.ListenAddr)
	}
	if cfg.Backend.BaseURL != "https://backend.test/api/v1" {
		t.Errorf("Backend.BaseURL = %v, want https://backend.test/api/v1", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Errorf("Backend.Timeout = %v, want 10s", cfg.Backend.Timeout)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("Cache.TTL = %v, want 2m", cfg.Cache.TTL)
	}
	if cfg.Jobs.PollInterval != time.Second {
		t.Errorf("Jobs.PollInterval = %v, want 1s", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.MaxAttempts != 30 {
		t.Errorf("Jobs.MaxAttempts = %v, want 30", cfg.Jobs.MaxAttempts)
	}
	if !cfg.Variation.Enabled {
		t.Error("Variation.Enabled = false, want true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `
backend:
  base_url: "https://backend.test"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("Backend.Timeout = %v, want 30s", cfg.Backend.Timeout)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Jobs.PollInterval != 2*time.Second {
		t.Errorf("Jobs.PollInterval = %v, want 2s", cfg.Jobs.PollInterval)
	}
	if cfg.Jobs.MaxAttempts != 100 {
		t.Errorf("Jobs.MaxAttempts = %v, want 100", cfg.Jobs.MaxAttempts)
	}
	if cfg.Variation.Model != "gemini-2.0-flash" {
		t.Errorf("Variation.Model = %v, want gemini-2.0-flash", cfg.Variation.Model)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}
}

func TestLoadBackendKeyFromEnv(t *testing.T) {
	content := `
backend:
  base_url: "https://backend.test"
  api_key_env: "TEST_CONSOLA_KEY"
`
	t.Setenv("TEST_CONSOLA_KEY", "from-env")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.APIKey != "from-env" {
		t.Errorf("Backend.APIKey = %v, want from-env", cfg.Backend.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing backend base_url",
			content: "logging:\n  level: info\n",
		},
		{
			name:    "poll interval too small",
			content: "backend:\n  base_url: \"https://backend.test\"\njobs:\n  poll_interval: 10ms\n",
		},
		{
			name:    "invalid log level",
			content: "backend:\n  base_url: \"https://backend.test\"\nlogging:\n  level: verbose\n",
		},
		{
			name:    "invalid log format",
			content: "backend:\n  base_url: \"https://backend.test\"\nlogging:\n  format: xml\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() error = nil, want error")
	}
}
