// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

// Package testinfra provides container-backed infrastructure for integration tests.
//
// Integration tests use testcontainers-go to start real dependencies so the
// SQL store is exercised against the same engines it runs on in production.
// Everything in this package is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # PostgreSQL
//
//	func TestSQLStorePostgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db, err := sql.Open("pgx", pg.DSN)
//	    // ...
//	}
//
// Tests skip gracefully when Docker is not available.
package testinfra
