// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package services adapts audit components to suture's Serve pattern.

  - HTTPServerService wraps *http.Server with graceful shutdown.
  - CleanupScheduler runs the expired-record cleanup on a fixed interval
    as the system caller.
  - GCService runs value log garbage collection on the retention store.
  - EmbeddedNATSService owns the in-process NATS server and shuts it down
    with the tree.

The websocket hub and forwarder implement suture.Service themselves and are
added to the tree directly.
*/
package services
