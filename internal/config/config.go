// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package config loads Agora's configuration via Koanf v2 with layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Agora server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Events    EventsConfig    `koanf:"events"`
	API       APIConfig       `koanf:"api"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ReadTimeout bounds header+body reads. WriteTimeout must exceed the
	// maximum long-poll wait or held requests are cut off mid-poll.
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds post store settings.
type DatabaseConfig struct {
	// Path is the SQLite database file. ":memory:" is accepted for
	// ephemeral instances and tests.
	Path string `koanf:"path"`
}

// EventsConfig tunes the live-update core.
type EventsConfig struct {
	// Capacity is the number of events retained for replay. Clients
	// further behind than this receive a resync signal.
	Capacity int `koanf:"capacity"`

	// DefaultWait is the long-poll timeout applied when the client does
	// not pass one.
	DefaultWait time.Duration `koanf:"default_wait"`

	// MaxWait caps client-supplied long-poll timeouts.
	MaxWait time.Duration `koanf:"max_wait"`
}

// APIConfig holds routing-layer settings.
type APIConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	MaxThreadIDs      int           `koanf:"max_thread_ids"`
	RecentPageSize    int           `koanf:"recent_page_size"`
}

// WebSocketConfig holds push-bridge settings.
type WebSocketConfig struct {
	Enabled bool `koanf:"enabled"`

	// PumpWait is the long-poll timeout the bridge's event pump uses
	// against the dispatcher.
	PumpWait time.Duration `koanf:"pump_wait"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, overridden by config file
// and environment layers.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8741,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    75 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "/data/agora.db",
		},
		Events: EventsConfig{
			Capacity:    512,
			DefaultWait: 25 * time.Second,
			MaxWait:     60 * time.Second,
		},
		API: APIConfig{
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
			MaxThreadIDs:      50,
			RecentPageSize:    20,
		},
		WebSocket: WebSocketConfig{
			Enabled:  true,
			PumpWait: 25 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Events.Capacity <= 0 {
		return fmt.Errorf("events.capacity must be positive, got %d", c.Events.Capacity)
	}
	if c.Events.DefaultWait <= 0 || c.Events.MaxWait <= 0 {
		return fmt.Errorf("events.default_wait and events.max_wait must be positive")
	}
	if c.Events.DefaultWait > c.Events.MaxWait {
		return fmt.Errorf("events.default_wait %s exceeds events.max_wait %s",
			c.Events.DefaultWait, c.Events.MaxWait)
	}
	if c.Server.WriteTimeout <= c.Events.MaxWait {
		return fmt.Errorf("server.write_timeout %s must exceed events.max_wait %s or long polls are cut off",
			c.Server.WriteTimeout, c.Events.MaxWait)
	}
	if c.API.MaxThreadIDs <= 0 {
		return fmt.Errorf("api.max_thread_ids must be positive, got %d", c.API.MaxThreadIDs)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
