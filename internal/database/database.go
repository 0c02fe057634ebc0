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
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/config"
	"github.com/tomtom215/auditrail/internal/logging"
)

// Driver names accepted in DatabaseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned for a driver other than duckdb or postgres.
var ErrUnknownDriver = errors.New("unknown database driver")

const pingTimeout = 5 * time.Second

// DB wraps the connection pool and remembers which dialect it speaks.
type DB struct {
	conn    *sql.DB
	driver  string
	dialect audit.Dialect
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	var (
		conn    *sql.DB
		dialect audit.Dialect
		err     error
	)

	switch cfg.Driver {
	case DriverDuckDB, "":
		conn, err = openDuckDB(cfg.Path)
		dialect = audit.DialectDuckDB
	case DriverPostgres:
		conn, err = sql.Open("pgx", cfg.DSN)
		dialect = audit.DialectPostgres
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, driver: string(dialect), dialect: dialect}
	db.configureConnectionPool(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping %s: %w", db.driver, err)
	}

	logging.Info().
		Str("driver", db.driver).
		Str("path", cfg.Path).
		Msg("Database connection established")
	return db, nil
}

// openDuckDB opens path, creating its parent directory. Extension autoload
// is disabled so startup never reaches out to the network.
func openDuckDB(path string) (*sql.DB, error) {
	if path == "" || path == ":memory:" {
		path = ""
	} else if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	connStr := path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
	return sql.Open("duckdb", connStr)
}

// configureConnectionPool sets pool limits. DuckDB is embedded and
// serializes writers, so it keeps a small idle set.
func (db *DB) configureConnectionPool(maxOpen int) {
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Dialect returns the placeholder dialect for audit.NewSQLStore.
func (db *DB) Dialect() audit.Dialect {
	return db.dialect
}

// AuditStore creates the audit_records table if needed and returns a store
// over this connection.
func (db *DB) AuditStore(ctx context.Context) (*audit.SQLStore, error) {
	store := audit.NewSQLStore(db.conn, db.dialect)
	if err := store.CreateTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	return store, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the DuckDB WAL. It is a no-op on PostgreSQL.
func (db *DB) Checkpoint(ctx context.Context) error {
	if db.dialect != audit.DialectDuckDB {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, "CHECKPOINT")
	return err
}

// Close checkpoints and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// IsConnectionError reports whether err indicates a lost connection rather
// than a failed statement.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
		"database is closed",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("Error closing database after failed open")
	}
}
