// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache stores query results with TTL expiry and a FIFO capacity
// bound. The cache outlives any single orchestration run; entries expire on
// read, not via a background sweep.
package cache

import (
	"fmt"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// Cache is the storage contract shared by all concurrently running queries.
// Implementations synchronize internally; callers never see a lock. A Get
// on a missing or expired key reports absent, and an expired entry is
// purged during that lookup.
type Cache interface {
	Get(key string) ([]types.SearchResult, bool)
	Put(key string, results []types.SearchResult)
	Len() int
	Close() error
}

// Key derives the deterministic cache key for a query. The same logical
// query always yields the same key. resultType distinguishes organic from
// news lookups of otherwise identical queries.
func Key(q types.SearchQuery, resultType string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", q.Text, q.GeoCode, q.LangCode, q.ResultCount, resultType)
}

// New constructs the cache selected by cfg.Backend.
func New(cfg types.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case types.CacheSQLite:
		return NewSQLite(cfg)
	case types.CacheMemory, "":
		return NewMemory(cfg), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
