// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package websocket streams audit notifications to connected operators.

The live feed carries two message types:

	audit_anomaly    a record whose risk assessment was anomalous
	audit_lifecycle  the summary record of a cleanup, archive, bulk delete,
	                 retention policy change or export

# Components

  - Hub: tracks connected clients and fans messages out. It runs as a
    suture service (Serve) and closes every client on shutdown.
  - Client: one gorilla/websocket connection with a read pump and a write
    pump. The read pump answers application-level ping messages; the write
    pump sends protocol pings every 54 seconds.
  - Forwarder: subscribes to the anomaly and lifecycle topics on the
    message bus and hands each decoded record to the hub.
  - Handler: the HTTP upgrade endpoint. It requires an authenticated caller
    and checks the Origin header against the configured CORS origins.

# Visibility

Every client carries a Scope resolved at connect time with the same
authorization rules as record queries:

  - read_all on audit:records (master, system) sees every record
  - read_scoped (partner) sees records the partner performed or owns
  - everyone else sees only records they performed

Messages a client may not see are never queued for it.

# Message Format

	{"type": "audit_anomaly", "data": {"kind": "anomaly", "record": {...}}}
*/
package websocket
