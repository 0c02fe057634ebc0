// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package supervisor runs the long-lived parts of the audit service under a
suture supervision tree.

The tree has three layers so a crash in one does not take down the others:

	auditrail (root)
	├── data-layer        embedded NATS server, retention store GC
	├── messaging-layer   websocket hub, anomaly forwarder, cleanup scheduler
	└── api-layer         HTTP server

Each layer restarts its failing children with exponential backoff. Supervisor
events are logged through sutureslog, bridged onto zerolog by
logging.NewSlogLogger.

Services that wrap other components live in the services subpackage.
*/
package supervisor
