// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("built-in defaults do not validate: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8741 {
		t.Errorf("Server.Port = %d, want 8741", cfg.Server.Port)
	}
	if cfg.Events.Capacity != 512 {
		t.Errorf("Events.Capacity = %d, want 512", cfg.Events.Capacity)
	}
	if !cfg.WebSocket.Enabled {
		t.Error("WebSocket.Enabled = false, want true")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
events:
  capacity: 64
  default_wait: 5s
  max_wait: 10s
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Events.Capacity != 64 {
		t.Errorf("Events.Capacity = %d, want 64", cfg.Events.Capacity)
	}
	if cfg.Events.MaxWait != 10*time.Second {
		t.Errorf("Events.MaxWait = %s, want 10s", cfg.Events.MaxWait)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Database.Path != "/data/agora.db" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("AGORA_SERVER_PORT", "9200")
	t.Setenv("AGORA_DATABASE_PATH", ":memory:")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Server.Port = %d, want env override 9200", cfg.Server.Port)
	}
	if cfg.Database.Path != ":memory:" {
		t.Errorf("Database.Path = %q, want :memory:", cfg.Database.Path)
	}
}

func TestCORSOriginsFromEnv(t *testing.T) {
	t.Setenv("AGORA_API_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.API.CORSOrigins) != 2 ||
		cfg.API.CORSOrigins[0] != "https://a.example" ||
		cfg.API.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.API.CORSOrigins)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero capacity", func(c *Config) { c.Events.Capacity = 0 }},
		{"default wait above max", func(c *Config) { c.Events.DefaultWait = 2 * c.Events.MaxWait }},
		{"write timeout below max wait", func(c *Config) { c.Server.WriteTimeout = c.Events.MaxWait / 2 }},
		{"zero max thread ids", func(c *Config) { c.API.MaxThreadIDs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an invalid configuration")
			}
		})
	}
}

func TestAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8080
	if got := cfg.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8080", got)
	}
}
