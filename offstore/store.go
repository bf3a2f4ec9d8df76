// Package offstore implements the persistent local store backing the
// offline sync layer: the offline-data key/value collection (pending
// action lists plus arbitrary caller keys), the cached-data collection
// with a freshness window, and the named cache buckets used by the
// request interceptor.
//
// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/furqan-debug/hisaabdost-sync/offstore/migrations"
)

// CacheFreshness is the window within which a cached-data entry is
// considered fresh on read. Stale entries are still returned; the
// caller decides whether to revalidate.
const CacheFreshness = 24 * time.Hour

// ErrStoreClosed is returned for any operation against a closed store.
var ErrStoreClosed = errors.New("offstore: store is closed")

// ErrNotFound is returned when a key has no entry.
var ErrNotFound = errors.New("offstore: not found")

// Store manages the local SQLite offline database. It is shared by the
// pending-action queue and the cache strategy layer. Writes are
// last-write-wins at the granularity of a key.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// Open opens or creates the offline store at path. Use ":memory:" for
// an ephemeral store in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("offstore: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("offstore: open database: %w", err)
	}

	// A single connection avoids SQLite lock contention between the
	// queue and the cache layer sharing this store.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("offstore: enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("offstore: enable foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("offstore: migrate schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database. Further operations return
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

func (s *Store) guard() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Get returns the raw JSON value stored under key in the offline-data
// collection, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM offline_data WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offstore: get %q: %w", key, err)
	}
	return value, nil
}

// Put stores value under key in the offline-data collection,
// overwriting any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO offline_data (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("offstore: put %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the offline-data collection. Deleting a
// missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM offline_data WHERE key = ?`, key); err != nil {
		return fmt.Errorf("offstore: delete %q: %w", key, err)
	}
	return nil
}

// CachedValue is a payload read from the cached-data collection.
type CachedValue struct {
	Payload  []byte
	StoredAt time.Time
	Fresh    bool // within CacheFreshness of StoredAt
}

// GetCached returns the cached-data entry for key, reporting whether it
// is still within the freshness window. Stale entries are returned with
// Fresh=false; they remain authoritative for offline reads.
func (s *Store) GetCached(ctx context.Context, key string) (*CachedValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}

	var payload []byte
	var storedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT payload, stored_at FROM cached_data WHERE key = ?
	`, key).Scan(&payload, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offstore: get cached %q: %w", key, err)
	}

	at := time.UnixMilli(storedAt).UTC()
	return &CachedValue{
		Payload:  payload,
		StoredAt: at,
		Fresh:    time.Since(at) < CacheFreshness,
	}, nil
}

// PutCached overwrites the cached-data entry for key with the current
// write time.
func (s *Store) PutCached(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cached_data (key, payload, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, stored_at = excluded.stored_at
	`, key, payload, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("offstore: put cached %q: %w", key, err)
	}
	return nil
}

// PruneCached removes cached-data entries older than ttl and returns
// the number removed.
func (s *Store) PruneCached(ctx context.Context, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-ttl).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM cached_data WHERE stored_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("offstore: prune cached: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
