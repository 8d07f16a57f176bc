// Package store provides the local SQLite cache backing the marketplace
// client: cached domain entities plus the durable pending-operation queue.
//
// The database runs embedded with WAL mode for concurrent reads. Everything
// in it is a cache re-derivable from the backend, with one exception: the
// pending-operation queue holds mutations the backend has never seen, so a
// destructive schema rebuild loses queued user intent. That trade-off is
// deliberate and documented rather than papered over.
//
// Layout:
//   - products, wishlist, orders, image_uploads, reviews, messages: cached
//     entity tables
//   - pending_ops: ordered durable log of unsynchronized mutations
//   - dead_ops: operations retired after a permanent replay failure
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SchemaVersion is stamped into PRAGMA user_version. Opening a database with
// a different non-zero version destroys and rebuilds it empty.
const SchemaVersion = 3

// Store wraps the SQLite connection with marketplace-specific functionality.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the database at path.
//
// The caller MUST call Close() when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	// WAL for concurrent reads while the worker writes
	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return s, nil
}

// RawDB returns the underlying sql.DB connection.
func (s *Store) RawDB() *sql.DB {
	return s.conn
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates or migrates the database schema.
//
// A fresh database gets the current schema. A database stamped with a
// different schema version is dropped and rebuilt empty: every table,
// including pending_ops. Queued mutations are lost on that path.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates or migrates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	var version int
	if err := s.conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version != 0 && version != SchemaVersion {
		if err := s.dropAll(ctx); err != nil {
			return fmt.Errorf("failed to rebuild schema from version %d: %w", version, err)
		}
	}

	if err := s.createSchema(ctx); err != nil {
		return err
	}

	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", SchemaVersion)); err != nil {
		return fmt.Errorf("failed to stamp schema version: %w", err)
	}
	return nil
}

// dropAll removes every table so the cache can be rebuilt from the backend.
func (s *Store) dropAll(ctx context.Context) error {
	tables := []string{
		"products", "wishlist", "orders", "image_uploads",
		"pending_ops", "dead_ops", "reviews", "messages",
	}
	for _, table := range tables {
		if _, err := s.conn.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	schema := `
	-- Cached entities
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		seller_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL DEFAULT 0,
		images TEXT NOT NULL DEFAULT '[]',  -- JSON array, display order
		labels TEXT NOT NULL DEFAULT '[]',  -- JSON array, display order
		status TEXT NOT NULL DEFAULT 'available',
		created_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT '',
		cached_at INTEGER NOT NULL  -- unix nanos, drives the TTL policy
	);

	CREATE TABLE IF NOT EXISTS wishlist (
		product_id TEXT PRIMARY KEY,
		added_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		buyer_id TEXT NOT NULL,
		seller_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		order_date TEXT NOT NULL,
		price REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS image_uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		correlation_id TEXT NOT NULL UNIQUE,
		local_path TEXT NOT NULL,
		remote_path TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending',
		remote_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_user_id TEXT NOT NULL,
		reviewer_id TEXT NOT NULL,
		order_id TEXT NOT NULL DEFAULT '',
		rating INTEGER NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		body TEXT NOT NULL,
		sent_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	);

	-- Pending-operation queue. FIFO is the core invariant: replay order must
	-- match creation order or remote state diverges from user intent.
	CREATE TABLE IF NOT EXISTS pending_ops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL  -- unix nanos
	);

	-- Dead letters: ops retired after a permanent replay failure so they
	-- stop blocking the queue head.
	CREATE TABLE IF NOT EXISTS dead_ops (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		op_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		correlation_id TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		failed_at TEXT NOT NULL,
		reason TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pending_ops_created ON pending_ops(created_at, id);
	CREATE INDEX IF NOT EXISTS idx_products_status ON products(status);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, sent_at);
	CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// dbtx is the subset of sql.DB/sql.Tx the entity helpers need, so the same
// code serves both direct calls and transactional ones.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx exposes the store's mutators inside a single transaction. The
// repository uses it to commit an optimistic local mutation and its queued
// operation atomically: both happen or neither.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
