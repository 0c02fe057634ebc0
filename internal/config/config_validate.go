// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/auth"
)

var (
	validLogLevels = map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	validLogFormats = map[string]bool{
		"json": true, "console": true,
	}
	validDrivers = map[string]bool{
		"duckdb": true, "postgres": true,
	}
	validEnvironments = map[string]bool{
		"development": true, "staging": true, "production": true,
	}
)

// placeholderPatterns mark values that were copied from an example and never
// replaced.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"CHANGE-ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateRisk(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DATABASE_DRIVER must be one of: duckdb, postgres")
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required when DATABASE_DRIVER=postgres")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("DATABASE_MAX_OPEN_CONNS must be at least 1")
	}
	return nil
}

func (c *Config) validateAudit() error {
	a := c.Audit
	if a.DefaultRetentionDays < audit.MinRetentionDays || a.DefaultRetentionDays > audit.MaxRetentionDays {
		return fmt.Errorf("AUDIT_DEFAULT_RETENTION_DAYS must be between %d and %d, got %d",
			audit.MinRetentionDays, audit.MaxRetentionDays, a.DefaultRetentionDays)
	}
	if a.CleanupInterval < time.Minute {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be at least 1m, got %s", a.CleanupInterval)
	}
	if a.CleanupLimit < 1 {
		return fmt.Errorf("AUDIT_CLEANUP_LIMIT must be at least 1")
	}
	if a.ArchiveCap < 1 {
		return fmt.Errorf("AUDIT_ARCHIVE_CAP must be at least 1")
	}
	if a.DeleteRate < 0 {
		return fmt.Errorf("AUDIT_DELETE_RATE must not be negative")
	}
	if a.DeleteRate > 0 && a.DeleteBurst < 1 {
		return fmt.Errorf("AUDIT_DELETE_BURST must be at least 1 when AUDIT_DELETE_RATE is set")
	}
	return nil
}

func (c *Config) validateRisk() error {
	r := c.Risk
	if !r.Enabled {
		return nil
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("RISK_TIMEZONE is invalid: %w", err)
		}
	}
	if r.BusinessHourStart < 0 || r.BusinessHourEnd > 24 || r.BusinessHourStart >= r.BusinessHourEnd {
		return fmt.Errorf("risk business hours must satisfy 0 <= start < end <= 24, got %d-%d",
			r.BusinessHourStart, r.BusinessHourEnd)
	}
	if r.BreakerFailureRatio <= 0 || r.BreakerFailureRatio > 1 {
		return fmt.Errorf("RISK_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}

// Location returns the business-hours timezone.
func (r RiskConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) validateRetention() error {
	if c.Retention.Enabled && c.Retention.Path == "" {
		return fmt.Errorf("RETENTION_STORE_PATH is required when the retention store is enabled")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.Dir == "" {
		return fmt.Errorf("EXPORT_DIR is required")
	}
	if c.Export.MaxFiles < 0 {
		return fmt.Errorf("EXPORT_MAX_FILES must not be negative, got %d", c.Export.MaxFiles)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true and NATS_EMBEDDED=false")
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.TopicPrefix == "" {
		return fmt.Errorf("NATS_TOPIC_PREFIX must not be empty")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(secret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	upper := strings.ToUpper(secret)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return fmt.Errorf("JWT_SECRET looks like a placeholder (contains %q)", p)
		}
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	return nil
}

// validateCORS rejects wildcard origins in production.
func (c *Config) validateCORS() error {
	if !c.IsProduction() {
		return nil
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain '*' when ENVIRONMENT=production")
		}
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitOff {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
