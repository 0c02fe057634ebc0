// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package logging provides the zerolog-based structured logger used across
// Auditrail.
//
// # Overview
//
// The package provides:
//   - A global zerolog logger configured once from LoggingConfig
//   - JSON output for production, console output for development
//   - Request and correlation ID propagation through context.Context
//   - Bridges for libraries with their own logger interfaces: an
//     slog.Handler for sutureslog and a watermill.LoggerAdapter for the
//     event publisher
//   - Redaction helpers for tokens and personal data in log fields
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("addr", addr).Msg("HTTP server listening")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Notifier failed")
//
// Audit records themselves are never written through this package. Log
// lines describe the service; the audit store is the system of record.
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never emitted.
package logging
