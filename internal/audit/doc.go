// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package audit records every security- and business-relevant action taken in
// the platform, classifies it, optionally scores it for anomalous risk, and
// exposes it through role-scoped queries and retention lifecycle operations.
//
// # Overview
//
// The package is organized leaf-first:
//
//   - Classifier: Classify, AssessSeverity and IsPersonalData are pure lookups
//     over the closed EventType enumeration.
//   - Writer: resolves the acting identity, merges classifier defaults,
//     computes compliance and retention metadata, and appends one record.
//     The typed builders (LogAssetOperation, LogBookingOperation, ...) are thin
//     mappings that funnel through Writer.Write.
//   - QueryService: paginated, filtered and aggregated reads, each scoped by
//     the caller's role before data is returned.
//   - Lifecycle: expiry cleanup, soft archival, bulk delete, retention policy
//     updates and exports. Every mutating operation appends a summary record.
//
// # Records
//
// A Record is immutable once written. The only fields that may change after
// insert are Metadata.Archived and Metadata.ArchivedAt, set by Lifecycle.Archive.
// All timestamps are epoch milliseconds:
//
//	ExpiresAt == Timestamp + Compliance.RetentionPeriodDays*86400000
//
// # Storage
//
// Store is implemented by MemoryStore (tests, ephemeral deployments) and
// SQLStore, which speaks both DuckDB and PostgreSQL:
//
//	store := audit.NewSQLStore(db, audit.DialectDuckDB)
//	if err := store.CreateTable(ctx); err != nil {
//	    return err
//	}
//
// # Usage Example
//
//	writer := audit.NewWriter(store, audit.DefaultWriterConfig())
//	writer.SetRiskScorer(riskEngine)
//
//	id, err := writer.LogAssetOperation(ctx, caller, audit.AssetOperation{
//	    Op:        audit.AssetOpDelete,
//	    AssetID:   "asset-42",
//	    AssetName: "Beach House",
//	    PartnerID: caller.ID,
//	    Request:   audit.RequestFromHTTP(r),
//	})
//
// # Access Control
//
// Callers are passed explicitly; there is no ambient session. Role decisions
// are delegated to an Authorizer (internal/authz wraps Casbin). The master
// role reads everything, the partner role reads records it acted on or whose
// resource belongs to it, and every other role is denied.
//
// # Thread Safety
//
// Writer, QueryService, Lifecycle and both stores are safe for concurrent use.
// The classifier functions read immutable tables and need no synchronization.
package audit
