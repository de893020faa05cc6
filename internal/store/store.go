// Package store provides the local-first SQLite repository for item
// records, realms, and realm membership.
//
// The database runs embedded (ncruces/go-sqlite3) with WAL mode so
// readers stay concurrent with writes. All query operations take an
// explicit realm.Scope; there is no implicit current-realm state.
//
// Writes are local-only and never depend on the remote replication
// service being reachable. Cross-device conflicts are resolved by the
// sync layer last-write-wins at updated_at granularity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds so the stored
// text sorts lexicographically in timestamp order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the SQLite connection with repository operations.
type Store struct {
	conn *sql.DB
	path string

	// development enables administrative operations (Clear) that are
	// disabled in normal builds.
	development bool

	logger *slog.Logger
}

// Options configures Open.
type Options struct {
	// Development enables administrative bulk operations.
	Development bool

	// Logger receives repository diagnostics. Nil means slog.Default.
	Logger *slog.Logger
}

// Open creates (or opens) the database at path and initializes the
// schema. The caller must Close the store when done.
//
// Example:
//
//	st, err := store.Open(ctx, filepath.Join(home, ".mochimono/items.db"), store.Options{})
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	st := &Store{
		conn:        conn,
		path:        path,
		development: opts.Development,
		logger:      logger.With("component", "store"),
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := st.conn.ExecContext(ctx, pragma); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := st.initSchema(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	return st, nil
}

// RawDB returns the underlying sql.DB connection for integration with
// libraries that expect one.
func (s *Store) RawDB() *sql.DB { return s.conn }

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("failed to checkpoint WAL", "error", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// initSchema creates tables and indexes. Idempotent.
func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		realm_id TEXT,
		name TEXT NOT NULL,
		name_en TEXT NOT NULL DEFAULT '',
		generic_name TEXT NOT NULL DEFAULT '',
		generic_en TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		special_notes TEXT NOT NULL DEFAULT '',
		rationale TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		condition TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 1,

		online_low INTEGER NOT NULL DEFAULT 0,
		online_high INTEGER NOT NULL DEFAULT 0,
		online_confidence REAL NOT NULL DEFAULT 0,
		thrift_low INTEGER NOT NULL DEFAULT 0,
		thrift_high INTEGER NOT NULL DEFAULT 0,
		thrift_confidence REAL NOT NULL DEFAULT 0,
		disposal_cost INTEGER,

		recommended_action TEXT NOT NULL,

		marketplaces TEXT,    -- JSON array
		search_queries TEXT,  -- JSON array
		keywords TEXT,        -- JSON array

		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Binary payloads live apart from the row so list queries never
	-- touch blobs. Lifetime is tied to the record via the cascade.
	CREATE TABLE IF NOT EXISTS item_images (
		item_id TEXT PRIMARY KEY,
		image BLOB,
		thumbnail BLOB,
		FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS realms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		realm_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		invited_at TEXT NOT NULL,
		accepted_at TEXT,
		FOREIGN KEY (realm_id) REFERENCES realms(id) ON DELETE CASCADE
	);

	-- One membership row per user per realm.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_members_realm_user
	    ON members(realm_id, user_id);

	CREATE INDEX IF NOT EXISTS idx_items_realm ON items(realm_id);
	CREATE INDEX IF NOT EXISTS idx_items_action ON items(recommended_action);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

	-- Composite indexes matching the ordering contract of the query
	-- operations (updated_at DESC, id ASC).
	CREATE INDEX IF NOT EXISTS idx_items_action_updated
	    ON items(recommended_action, updated_at);
	CREATE INDEX IF NOT EXISTS idx_items_category_updated
	    ON items(category, updated_at);
	CREATE INDEX IF NOT EXISTS idx_items_realm_updated
	    ON items(realm_id, updated_at);

	CREATE INDEX IF NOT EXISTS idx_members_user ON members(user_id);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
