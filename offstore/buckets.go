// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package offstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Entry is a cached response stored in a named cache bucket. At most
// one entry exists per key per bucket; writes overwrite.
type Entry struct {
	Bucket   string
	Key      string
	Status   int
	Header   map[string][]string
	Body     []byte
	StoredAt time.Time
}

// GetEntry returns the entry stored under (bucket, key), or ErrNotFound.
func (s *Store) GetEntry(ctx context.Context, bucket, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}

	var (
		status    int
		headerRaw []byte
		body      []byte
		storedAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status, header, body, stored_at FROM cache_entries WHERE bucket = ? AND key = ?
	`, bucket, key).Scan(&status, &headerRaw, &body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offstore: get entry %s/%q: %w", bucket, key, err)
	}

	header := map[string][]string{}
	if len(headerRaw) > 0 {
		if err := json.Unmarshal(headerRaw, &header); err != nil {
			return nil, fmt.Errorf("offstore: decode header for %s/%q: %w", bucket, key, err)
		}
	}

	return &Entry{
		Bucket:   bucket,
		Key:      key,
		Status:   status,
		Header:   header,
		Body:     body,
		StoredAt: time.UnixMilli(storedAt).UTC(),
	}, nil
}

// PutEntry overwrites the entry under (entry.Bucket, entry.Key).
func (s *Store) PutEntry(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}

	headerRaw, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("offstore: encode header for %s/%q: %w", entry.Bucket, entry.Key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (bucket, key, status, header, body, stored_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, key) DO UPDATE SET
			status = excluded.status,
			header = excluded.header,
			body = excluded.body,
			stored_at = excluded.stored_at
	`, entry.Bucket, entry.Key, entry.Status, headerRaw, entry.Body, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("offstore: put entry %s/%q: %w", entry.Bucket, entry.Key, err)
	}
	return nil
}

// ListBuckets returns the names of all cache buckets that currently
// hold at least one entry.
func (s *Store) ListBuckets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.guard(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT bucket FROM cache_entries ORDER BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("offstore: list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("offstore: scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("offstore: iterate buckets: %w", err)
	}
	return buckets, nil
}

// DeleteBucket removes every entry in the named bucket. Used during
// activation to drop buckets from previous cache versions.
func (s *Store) DeleteBucket(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("offstore: delete bucket %q: %w", bucket, err)
	}
	return nil
}
