// Package store keeps finished simulations in a SQLite database so that runs
// can be listed and compared later.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	start        TEXT NOT NULL,
	finish       TEXT NOT NULL,
	currency     TEXT NOT NULL,
	assets       TEXT NOT NULL,
	rebalance    TEXT NOT NULL,
	config       TEXT NOT NULL,
	cash         TEXT NOT NULL,
	final_value  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS valuations (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	day        TEXT NOT NULL,
	all_assets TEXT NOT NULL,
	cash       TEXT NOT NULL,
	aggregated INTEGER NOT NULL,
	PRIMARY KEY (run_id, day)
);

CREATE TABLE IF NOT EXISTS trades (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	day      TEXT NOT NULL,
	command  TEXT NOT NULL,
	ticker   TEXT NOT NULL,
	price    TEXT NOT NULL,
	quantity TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS rebalancings (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	day    TEXT NOT NULL,
	PRIMARY KEY (run_id, day)
);
`

// Store wraps the database connection
type Store struct {
	conn *sql.DB
	path string
	log  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger of the store.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open opens (or creates) the database at path and applies the schema.
//
// ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	pragmas := "_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		pragmas += "&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", path+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection: SQLite has one writer, and every in-memory connection is a distinct database.
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	s.log.Debug().Str("path", path).Msg("store opened")
	s.conn = conn
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }
