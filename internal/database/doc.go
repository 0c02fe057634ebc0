// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package database opens the SQL connection backing the audit record store.

Two drivers are supported:

  - duckdb (default): an embedded DuckDB file through duckdb-go. An empty
    path opens an in-memory database.
  - postgres: a PostgreSQL server through the pgx stdlib driver.

Open configures the connection pool, verifies connectivity and returns a
DB whose AuditStore method creates the audit_records table and hands back
an audit.SQLStore with the matching placeholder dialect:

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
	    return err
	}
	defer db.Close()

	store, err := db.AuditStore(ctx)

Close checkpoints DuckDB before closing so the WAL is flushed to the main
file and the next start does not replay it.
*/
package database
