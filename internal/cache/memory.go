// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/pdiddy/insight-engine/pkg/types"
)

// Memory is the in-process cache. Eviction is FIFO by insertion order, not
// LRU: a Get does not refresh recency, so a hot entry inserted early is
// still evicted before a cold one inserted late. A Put on an existing key
// counts as a fresh insertion and moves the entry to the back.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = oldest insertion
	ttl      time.Duration
	capacity int

	// now is the clock; tests substitute it to drive expiry.
	now func() time.Time
}

type memoryEntry struct {
	key      string
	results  []types.SearchResult
	storedAt time.Time
}

// NewMemory creates an in-memory cache with cfg's TTL and capacity.
func NewMemory(cfg types.CacheConfig) *Memory {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = types.DefaultCacheTTL
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = types.DefaultCacheCapacity
	}
	return &Memory{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns the stored results for key. An entry older than the TTL is
// treated as absent and removed during this lookup.
func (m *Memory) Get(key string) ([]types.SearchResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*memoryEntry)
	if m.now().Sub(ent.storedAt) >= m.ttl {
		m.order.Remove(elem)
		delete(m.entries, key)
		return nil, false
	}
	return ent.results, true
}

// Put stores results under key, stamping the current time. When the cache
// is full the oldest-inserted entry is evicted in the same critical
// section, so concurrent writers cannot push the size past capacity.
func (m *Memory) Put(key string, results []types.SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.entries[key]; ok {
		m.order.Remove(elem)
		delete(m.entries, key)
	}

	for m.order.Len() >= m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.entries, oldest.Value.(*memoryEntry).key)
	}

	ent := &memoryEntry{key: key, results: results, storedAt: m.now()}
	m.entries[key] = m.order.PushBack(ent)
}

// Len returns the number of stored entries, including any not yet purged
// expired ones.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Close is a no-op for the in-memory cache.
func (m *Memory) Close() error { return nil }
