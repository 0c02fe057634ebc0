// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package main is the entry point for the Auditrail server.

Auditrail records every significant action as an immutable audit record,
scores risky actions, and serves role-scoped queries and administrative
lifecycle operations over a REST API.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("auditrail")
	├── DataSupervisor ("data-layer")
	│   ├── Embedded NATS server (NATS_ENABLED and NATS_EMBEDDED)
	│   └── Retention policy GC (RETENTION_STORE_ENABLED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── WebSocket forwarder (bus to hub)
	│   └── Cleanup scheduler (every 6h by default)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Database: DuckDB (default) or PostgreSQL audit store
 3. Risk engine and BadgerDB retention policy store
 4. Casbin authorizer and JWT token manager
 5. Event bus: NATS JetStream or an in-process channel
 6. Lifecycle manager and export directory
 7. HTTP router, WebSocket stream and supervisor tree

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins): environment variables, config.yaml, built-in defaults.
JWT_SECRET (32+ characters) is required.

	export JWT_SECRET=$(openssl rand -base64 32)
	export DUCKDB_PATH=/data/auditrail.duckdb
	./auditrail

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server first, waits for in-flight requests, then closes the event bus,
the retention store and the database.
*/
package main
