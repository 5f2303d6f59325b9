// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// SQLite persists cache entries across process restarts with the same
// TTL and FIFO-eviction semantics as the in-memory cache. Insertion order
// is tracked by a monotonic sequence; re-inserting a key assigns a new
// sequence number, matching the memory backend's move-to-back behavior.
//
// Storage failures degrade to cache misses or dropped writes; the search
// path never fails because the cache file is unavailable.
type SQLite struct {
	db       *sql.DB
	ttl      time.Duration
	capacity int

	now func() time.Time
}

// NewSQLite opens or creates the cache database at cfg.Path and ensures
// the schema exists.
func NewSQLite(cfg types.CacheConfig) (*SQLite, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultCachePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = types.DefaultCacheTTL
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = types.DefaultCacheCapacity
	}

	s := &SQLite{db: db, ttl: ttl, capacity: capacity, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			seq        INTEGER PRIMARY KEY,
			key        TEXT NOT NULL UNIQUE,
			results    TEXT NOT NULL,
			stored_at  INTEGER NOT NULL
		)`)
	return err
}

// Get returns the stored results for key, purging the row when it has
// outlived the TTL.
func (s *SQLite) Get(key string) ([]types.SearchResult, bool) {
	var raw string
	var storedAt int64
	err := s.db.QueryRow(`SELECT results, stored_at FROM entries WHERE key = ?`, key).
		Scan(&raw, &storedAt)
	if err != nil {
		return nil, false
	}

	if s.now().Sub(time.UnixMilli(storedAt)) >= s.ttl {
		s.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
		return nil, false
	}

	var results []types.SearchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		s.db.Exec(`DELETE FROM entries WHERE key = ?`, key)
		return nil, false
	}
	return results, true
}

// Put stores results under key and evicts the oldest-inserted rows when
// the table exceeds capacity. The replace and eviction run inside one
// transaction so concurrent writers cannot interleave between them.
func (s *SQLite) Put(key string, results []types.SearchResult) {
	raw, err := json.Marshal(results)
	if err != nil {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO entries (key, results, stored_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			results = excluded.results,
			stored_at = excluded.stored_at,
			seq = (SELECT IFNULL(MAX(seq), 0) + 1 FROM entries)`,
		key, string(raw), s.now().UnixMilli()); err != nil {
		return
	}

	if _, err := tx.Exec(
		`DELETE FROM entries WHERE seq IN (
			SELECT seq FROM entries ORDER BY seq ASC
			LIMIT MAX((SELECT COUNT(*) FROM entries) - ?, 0)
		)`, s.capacity); err != nil {
		return
	}

	tx.Commit()
}

// Len returns the number of stored rows.
func (s *SQLite) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
