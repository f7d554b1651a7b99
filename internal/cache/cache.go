// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps provider lookup answers in a local SQLite database so
// repeated runs (notably --retry-failed) do not query the same title twice.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-fetch/pkg/types"
)

const dbFile = "lookups.db"

// timeLayout sorts lexically in UTC, which Prune relies on.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a lookup cache backed by SQLite. It satisfies search.Cache.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open opens or creates dir/lookups.db. Entries older than ttl are treated
// as misses; ttl <= 0 keeps entries forever.
func Open(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, ttl: ttl, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS lookups (
		provider TEXT NOT NULL,
		query TEXT NOT NULL,
		candidates TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		PRIMARY KEY (provider, query)
	)`)
	return err
}

// Get returns the cached candidates for (provider, query). The boolean is
// false when nothing fresh is stored.
func (s *Store) Get(ctx context.Context, provider, query string) ([]types.Candidate, bool, error) {
	var raw, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT candidates, fetched_at FROM lookups WHERE provider = ? AND query = ?`,
		provider, query,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	if s.ttl > 0 {
		t, err := time.Parse(timeLayout, fetchedAt)
		if err != nil || s.now().Sub(t) > s.ttl {
			return nil, false, nil
		}
	}

	var cands []types.Candidate
	if err := json.Unmarshal([]byte(raw), &cands); err != nil {
		return nil, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return cands, true, nil
}

// Put stores candidates for (provider, query), replacing any earlier entry.
func (s *Store) Put(ctx context.Context, provider, query string, cands []types.Candidate) error {
	if cands == nil {
		cands = []types.Candidate{}
	}
	raw, err := json.Marshal(cands)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lookups (provider, query, candidates, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(provider, query) DO UPDATE SET candidates = excluded.candidates, fetched_at = excluded.fetched_at`,
		provider, query, string(raw), s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Prune deletes entries older than the store's ttl and returns how many
// rows were removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM lookups WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}
