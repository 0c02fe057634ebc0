// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/auditrail/internal/config"
	"github.com/tomtom215/auditrail/internal/eventprocessor"
	"github.com/tomtom215/auditrail/internal/logging"
)

// EventComponents holds the notification transport and its publisher.
type EventComponents struct {
	server    *eventprocessor.EmbeddedServer
	bus       *eventprocessor.Bus
	publisher *eventprocessor.Publisher
	notifier  *eventprocessor.Notifier
	prefix    string
}

// initEvents builds the notification transport. With NATS disabled an
// in-process channel bus carries notifications to the WebSocket forwarder.
func initEvents(ctx context.Context, cfg config.NATSConfig) (*EventComponents, error) {
	adapter := logging.NewWatermillAdapter(logging.WithComponent("watermill"))
	busCfg, serverCfg := eventprocessor.FromConfig(cfg)

	c := &EventComponents{prefix: busCfg.TopicPrefix}

	if !cfg.Enabled {
		c.bus = eventprocessor.NewChannelBus(adapter)
		c.wire()
		logging.Info().Str("transport", c.bus.Transport).Msg("Event bus initialized")
		return c, nil
	}

	if cfg.EmbeddedServer {
		server, err := eventprocessor.NewEmbeddedServer(serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = server
		busCfg.URL = server.ClientURL()
		logging.Info().Str("url", busCfg.URL).Msg("Embedded NATS server started")
	}

	bus, err := eventprocessor.NewNATSBus(ctx, busCfg, adapter)
	if err != nil {
		c.shutdownServer()
		return nil, fmt.Errorf("connect NATS bus: %w", err)
	}
	c.bus = bus
	c.wire()

	logging.Info().
		Str("transport", bus.Transport).
		Str("url", busCfg.URL).
		Str("stream", busCfg.StreamName).
		Msg("Event bus initialized")
	return c, nil
}

func (c *EventComponents) wire() {
	c.publisher = eventprocessor.NewPublisher(c.bus.Publisher, eventprocessor.DefaultBreakerConfig())
	c.notifier = eventprocessor.NewNotifier(c.publisher, c.prefix)
}

// Notifier returns the audit notifier publishing to the bus.
func (c *EventComponents) Notifier() *eventprocessor.Notifier {
	return c.notifier
}

// HealthCheck reports the bus unhealthy while the publish breaker is open
// or the embedded server has stopped.
func (c *EventComponents) HealthCheck(_ context.Context) error {
	if c.server != nil && !c.server.IsRunning() {
		return errors.New("embedded NATS server is not running")
	}
	if c.publisher.State() == gobreaker.StateOpen.String() {
		return errors.New("event publisher circuit is open")
	}
	return nil
}

// Close stops publishing, closes the bus and shuts down an embedded server
// that the supervisor did not already stop.
func (c *EventComponents) Close() {
	if c == nil {
		return
	}
	if c.publisher != nil {
		_ = c.publisher.Close()
	}
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing event bus")
		}
	}
	c.shutdownServer()
}

func (c *EventComponents) shutdownServer() {
	if c.server == nil || !c.server.IsRunning() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.server.Shutdown(ctx); err != nil {
		logging.Warn().Err(err).Msg("Error shutting down embedded NATS server")
	}
}
