// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Audit     AuditConfig     `koanf:"audit"`
	Risk      RiskConfig      `koanf:"risk"`
	Retention RetentionConfig `koanf:"retention"`
	Export    ExportConfig    `koanf:"export"`
	NATS      NATSConfig      `koanf:"nats"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the audit record store.
type DatabaseConfig struct {
	// Driver is "duckdb" or "postgres".
	Driver string `koanf:"driver"`

	// Path is the DuckDB file; empty means in-memory.
	Path string `koanf:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `koanf:"dsn"`

	MaxOpenConns int `koanf:"max_open_conns"`
}

// AuditConfig holds compliance defaults and lifecycle bounds.
type AuditConfig struct {
	DefaultRetentionDays int           `koanf:"default_retention_days"`
	Regulations          []string      `koanf:"regulations"`
	CleanupInterval      time.Duration `koanf:"cleanup_interval"`
	CleanupLimit         int           `koanf:"cleanup_limit"`
	ArchiveCap           int           `koanf:"archive_cap"`
	DeleteRate           float64       `koanf:"delete_rate"` // deletions per second, 0 = unlimited
	DeleteBurst          int           `koanf:"delete_burst"`
}

// RiskConfig tunes the risk engine.
type RiskConfig struct {
	Enabled           bool          `koanf:"enabled"`
	Timezone          string        `koanf:"timezone"` // IANA name for business hours; empty = server local
	BusinessHourStart int           `koanf:"business_hour_start"`
	BusinessHourEnd   int           `koanf:"business_hour_end"`
	HistoryTimeout    time.Duration `koanf:"history_timeout"`

	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
}

// RetentionConfig configures the retention policy store.
type RetentionConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// ExportConfig configures where rendered exports are written.
type ExportConfig struct {
	Dir string `koanf:"dir"`

	// Compress gzips export files.
	Compress bool `koanf:"compress"`

	// MaxFiles caps how many exports are kept; the oldest are pruned.
	// Zero keeps everything.
	MaxFiles int `koanf:"max_files"`
}

// NATSConfig holds event publishing settings.
type NATSConfig struct {
	// Enabled publishes through NATS JetStream; otherwise an in-process
	// channel is used.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server connection URL.
	URL string `koanf:"url"`

	// EmbeddedServer runs a NATS server inside the process.
	EmbeddedServer bool `koanf:"embedded_server"`

	// EmbeddedPort is the embedded server's client port; -1 picks a random
	// free port.
	EmbeddedPort int `koanf:"embedded_port"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore bound JetStream memory and disk in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// TopicPrefix is prepended to audit topics, e.g. "audit".
	TopicPrefix string `koanf:"topic_prefix"`
}

// SecurityConfig holds authentication and authorization settings
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	RateLimitOff    bool          `koanf:"rate_limit_disabled"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	Casbin          CasbinConfig  `koanf:"casbin"`
}

// CasbinConfig points the authorizer at optional model and policy files.
type CasbinConfig struct {
	ModelPath  string        `koanf:"model_path"`
	PolicyPath string        `koanf:"policy_path"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
