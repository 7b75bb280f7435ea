/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteDriverName = "sqlite"

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
)`

// SQLiteBackend keeps entries in a SQLite database file.
// Expired rows are skipped (and removed) on read and may be purged in bulk with PurgeExpired.
type SQLiteBackend struct {
	db  *sql.DB
	now func() time.Time
}

var _ Backend = (*SQLiteBackend)(nil)

// SQLiteBackendOpts represents options for SQLiteBackend.
type SQLiteBackendOpts struct {
	Clock func() time.Time
}

// NewSQLiteBackend opens (or creates) the database at path and prepares the schema.
func NewSQLiteBackend(ctx context.Context, path string, opts SQLiteBackendOpts) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite cache path is empty")
	}
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache at %q: %w", path, err)
	}
	// A single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite cache schema: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &SQLiteBackend{db: db, now: opts.Clock}, nil
}

// Get implements Backend.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64
	err := b.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("sqlite get: %w", err)
	}
	if expiresAt != 0 && b.now().UnixMilli() >= expiresAt {
		if _, err = b.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE key = ? AND expires_at = ?`, key, expiresAt); err != nil {
			return "", false, fmt.Errorf("sqlite delete expired: %w", err)
		}
		return "", false, nil
	}
	return value, true, nil
}

// Set implements Backend.
func (b *SQLiteBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = b.now().Add(ttl).UnixMilli()
	}
	_, err := b.db.ExecContext(ctx, `INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlite set: %w", err)
	}
	return nil
}

// Ping implements Backend.
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close implements Backend.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// RemoveExpired deletes all expired rows and returns their number.
func (b *SQLiteBackend) RemoveExpired(ctx context.Context) (int, error) {
	res, err := b.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at != 0 AND expires_at <= ?`, b.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
