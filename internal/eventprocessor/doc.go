// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package eventprocessor publishes audit notifications onto a message bus.

Anomalous records and lifecycle summaries are delivered to two topics:

	<prefix>.anomaly    records whose risk assessment is anomalous
	<prefix>.lifecycle  summaries of cleanup, archive, bulk delete, retention and export runs

The prefix defaults to "audit".

# Transports

The bus is built on Watermill and has two implementations:

  - NATS JetStream (NewNATSBus): watermill-nats publishes to a file-backed
    AUDIT stream. An EmbeddedServer can run nats-server in-process for
    single-node deployments.
  - In-process (NewChannelBus): a Watermill GoChannel, used when NATS is
    disabled and in tests.

Both expose the same message.Publisher and message.Subscriber, so the
WebSocket bridge and any other consumer do not care which one is running.

# Resilience

Publisher wraps the bus publisher in a gobreaker circuit breaker. When the
broker is down the breaker opens and publishes fail fast, so a write never
waits on NATS. Notification failures are logged by the audit writer and never
fail the write itself.

# Usage

	bus, err := eventprocessor.NewNATSBus(ctx, eventprocessor.BusConfig{URL: srv.ClientURL()}, logger)
	pub := eventprocessor.NewPublisher(bus.Publisher, eventprocessor.DefaultBreakerConfig())
	writer.AddNotifier(eventprocessor.NewNotifier(pub, "audit"))
*/
package eventprocessor
