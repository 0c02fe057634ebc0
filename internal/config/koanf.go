// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/auditrail/config.yaml",
	"/etc/auditrail/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Driver:       "duckdb",
			Path:         "/data/auditrail.duckdb",
			MaxOpenConns: 10,
		},
		Audit: AuditConfig{
			DefaultRetentionDays: 180,
			Regulations:          []string{"LGPD", "ISO27001"},
			CleanupInterval:      6 * time.Hour,
			CleanupLimit:         1000,
			ArchiveCap:           10000,
			DeleteRate:           0, // unlimited
			DeleteBurst:          100,
		},
		Risk: RiskConfig{
			Enabled:             true,
			Timezone:            "",
			BusinessHourStart:   8,
			BusinessHourEnd:     18,
			HistoryTimeout:      2 * time.Second,
			BreakerMinRequests:  5,
			BreakerFailureRatio: 0.6,
			BreakerTimeout:      30 * time.Second,
		},
		Retention: RetentionConfig{
			Enabled: true,
			Path:    "/data/retention",
		},
		Export: ExportConfig{
			Dir:      "/data/exports",
			Compress: true,
			MaxFiles: 100,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			EmbeddedPort:   4222,
			StoreDir:       "/data/nats/jetstream",
			MaxMemory:      64 * 1024 * 1024,   // 64MB
			MaxStore:       1024 * 1024 * 1024, // 1GB
			TopicPrefix:    "audit",
		},
		Security: SecurityConfig{
			JWTIssuer:       "auditrail",
			TokenTTL:        time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			RateLimitOff:    false,
			CORSOrigins:     []string{"*"},
			Casbin: CasbinConfig{
				CacheTTL: time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Priority order (highest to lowest):
//  1. Environment variables
//  2. Config file (if found)
//  3. Default values
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// AUDIT_DEFAULT_RETENTION_DAYS -> audit.default_retention_days
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are the keys that accept comma-separated env values.
var sliceConfigPaths = []string{
	"audit.regulations",
	"security.cors_origins",
}

// processSliceFields splits comma-separated string values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (defaults or YAML)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// Database mappings
	"database_driver":         "database.driver",
	"duckdb_path":             "database.path",
	"database_dsn":            "database.dsn",
	"database_max_open_conns": "database.max_open_conns",

	// Audit mappings
	"audit_default_retention_days": "audit.default_retention_days",
	"audit_regulations":            "audit.regulations",
	"audit_cleanup_interval":       "audit.cleanup_interval",
	"audit_cleanup_limit":          "audit.cleanup_limit",
	"audit_archive_cap":            "audit.archive_cap",
	"audit_delete_rate":            "audit.delete_rate",
	"audit_delete_burst":           "audit.delete_burst",

	// Risk engine mappings
	"risk_enabled":               "risk.enabled",
	"risk_timezone":              "risk.timezone",
	"risk_business_hour_start":   "risk.business_hour_start",
	"risk_business_hour_end":     "risk.business_hour_end",
	"risk_history_timeout":       "risk.history_timeout",
	"risk_breaker_min_requests":  "risk.breaker_min_requests",
	"risk_breaker_failure_ratio": "risk.breaker_failure_ratio",
	"risk_breaker_timeout":       "risk.breaker_timeout",

	// Retention policy store mappings
	"retention_store_enabled": "retention.enabled",
	"retention_store_path":    "retention.path",

	// Export mappings
	"export_dir":       "export.dir",
	"export_compress":  "export.compress",
	"export_max_files": "export.max_files",

	// NATS mappings
	"nats_enabled":      "nats.enabled",
	"nats_url":          "nats.url",
	"nats_embedded":     "nats.embedded_server",
	"nats_port":         "nats.embedded_port",
	"nats_store_dir":    "nats.store_dir",
	"nats_max_memory":   "nats.max_memory",
	"nats_max_store":    "nats.max_store",
	"nats_topic_prefix": "nats.topic_prefix",

	// Security mappings
	"jwt_secret":          "security.jwt_secret",
	"jwt_issuer":          "security.jwt_issuer",
	"token_ttl":           "security.token_ttl",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Casbin mappings
	"casbin_model_path":  "security.casbin.model_path",
	"casbin_policy_path": "security.casbin.policy_path",
	"casbin_cache_ttl":   "security.casbin.cache_ttl",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path.
// Unmapped keys return "" and are skipped, so random environment variables
// never pollute the config.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
