// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/config"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: DriverDuckDB, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen_DuckDBMemory(t *testing.T) {
	db := openMemory(t)
	if db.Dialect() != audit.DialectDuckDB {
		t.Errorf("Dialect() = %q, want duckdb", db.Dialect())
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if db.Conn().Stats().MaxOpenConnections != 4 {
		t.Errorf("MaxOpenConnections = %d, want 4", db.Conn().Stats().MaxOpenConnections)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("error = %v, want ErrUnknownDriver", err)
	}
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, config.DatabaseConfig{
		Driver: DriverPostgres,
		DSN:    "postgres://nobody@127.0.0.1:1/none?connect_timeout=1",
	})
	if err == nil {
		t.Fatal("Open() should fail for an unreachable server")
	}
}

func TestAuditStore_RoundTrip(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	store, err := db.AuditStore(ctx)
	if err != nil {
		t.Fatalf("AuditStore() error = %v", err)
	}
	// second call must be idempotent
	if _, err := db.AuditStore(ctx); err != nil {
		t.Fatalf("AuditStore() second call error = %v", err)
	}

	w := audit.NewWriter(store, audit.DefaultWriterConfig())
	id, err := w.Write(ctx, audit.SystemCaller(), audit.WriteInput{
		Type:   audit.EventTypeLogin,
		Action: "login",
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	rec, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if rec.Event.Type != audit.EventTypeLogin {
		t.Errorf("stored type = %q", rec.Event.Type)
	}
}

func TestOpen_DuckDBFileCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.duckdb")
	db, err := Open(context.Background(), config.DatabaseConfig{Driver: DriverDuckDB, Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := db.AuditStore(context.Background()); err != nil {
		t.Fatalf("AuditStore() error = %v", err)
	}
	if err := db.Checkpoint(context.Background()); err != nil {
		t.Errorf("Checkpoint() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	reopened, err := Open(context.Background(), config.DatabaseConfig{Driver: DriverDuckDB, Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	var n int
	if err := reopened.Conn().QueryRow("SELECT COUNT(*) FROM audit_records").Scan(&n); err != nil {
		t.Errorf("table missing after reopen: %v", err)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{sql.ErrConnDone, true},
		{fmt.Errorf("query: %w", sql.ErrConnDone), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("syntax error at or near SELECT"), false},
	}
	for _, tt := range tests {
		if got := IsConnectionError(tt.err); got != tt.want {
			t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
