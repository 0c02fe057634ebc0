// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package eventprocessor

import (
	"time"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/config"
)

// DefaultTopicPrefix is prepended to every audit topic.
const DefaultTopicPrefix = "audit"

// DefaultStreamName is the JetStream stream holding audit notifications.
const DefaultStreamName = "AUDIT"

// Topic returns the topic for a notification kind, e.g. "audit.anomaly".
func Topic(prefix string, kind audit.NotificationKind) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + string(kind)
}

// Topics returns every topic the notifier publishes to.
func Topics(prefix string) []string {
	return []string{
		Topic(prefix, audit.NotificationAnomaly),
		Topic(prefix, audit.NotificationLifecycle),
	}
}

// BusConfig configures the NATS transport.
type BusConfig struct {
	URL             string
	StreamName      string
	TopicPrefix     string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	AckWaitTimeout  time.Duration
	CloseTimeout    time.Duration

	// MaxAge bounds how long notifications stay in the stream.
	MaxAge time.Duration

	// DuplicateWindow is the JetStream deduplication window keyed on
	// Nats-Msg-Id.
	DuplicateWindow time.Duration
}

// DefaultBusConfig returns defaults for a local NATS server.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		URL:             "nats://127.0.0.1:4222",
		StreamName:      DefaultStreamName,
		TopicPrefix:     DefaultTopicPrefix,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
		AckWaitTimeout:  30 * time.Second,
		CloseTimeout:    10 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host      string
	Port      int // -1 picks a random port
	StoreDir  string
	MaxMemory int64
	MaxStore  int64
}

// BreakerConfig tunes the publish circuit breaker.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
	Interval         time.Duration
	MaxRequests      uint32
}

// DefaultBreakerConfig opens after five consecutive failures and probes
// again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "audit-publisher",
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		Interval:         time.Minute,
		MaxRequests:      1,
	}
}

// FromConfig derives bus and server settings from application config.
func FromConfig(cfg config.NATSConfig) (BusConfig, ServerConfig) {
	bus := DefaultBusConfig()
	if cfg.URL != "" {
		bus.URL = cfg.URL
	}
	if cfg.TopicPrefix != "" {
		bus.TopicPrefix = cfg.TopicPrefix
	}

	port := cfg.EmbeddedPort
	if port == 0 {
		port = 4222
	}
	srv := ServerConfig{
		Host:      "127.0.0.1",
		Port:      port,
		StoreDir:  cfg.StoreDir,
		MaxMemory: cfg.MaxMemory,
		MaxStore:  cfg.MaxStore,
	}
	return bus, srv
}
