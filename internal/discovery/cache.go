// Copyright 2026 The modelgateway Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package discovery

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/modelgateway/internal/registry"
)

// DefaultCacheTTL is how long a fetched catalog is served before it is refetched.
const DefaultCacheTTL = time.Hour

// DefaultMaxCacheEntries bounds the number of cached catalogs.
const DefaultMaxCacheEntries = 256

// CacheEntry represents a cached catalog.
type CacheEntry struct {
	Key       string                    `json:"key"`
	FetchedAt time.Time                 `json:"fetched_at"`
	Models    []*registry.ProviderModel `json:"models"`
}

// CacheStats is a point-in-time view of the store counters.
type CacheStats struct {
	Entries    int    `json:"entries"`
	Schemas    int    `json:"schemas"`
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Evictions  uint64 `json:"evictions"`
	TTLSeconds int    `json:"ttl_seconds"`
	MaxEntries int    `json:"max_entries"`
}

// MemoryStore is the process-lifetime cache store.
// Entries expire after the TTL and the oldest entry is evicted once MaxEntries is reached.
type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]*CacheEntry
	schemas    map[string]json.RawMessage
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewMemoryStore creates a store. ttl <= 0 disables expiry; maxEntries <= 0 applies
// DefaultMaxCacheEntries.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxCacheEntries
	}
	return &MemoryStore{
		entries:    make(map[string]*CacheEntry),
		schemas:    make(map[string]json.RawMessage),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds the cache key for provider and an optional search string.
func MakeKey(provider, search string) string {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return provider
	}
	return provider + ":" + search
}

// MakeKey implements Store.
func (c *MemoryStore) MakeKey(provider, search string) string {
	return MakeKey(provider, search)
}

// Get retrieves the cached models for key. Returns false if not found or expired.
func (c *MemoryStore) Get(key string) ([]*registry.ProviderModel, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.isExpired(entry) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return entry.Models, true
}

// Entry returns the raw cache entry for key, including expired ones.
func (c *MemoryStore) Entry(key string) (*CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Set stores models under key, evicting the oldest entry when the store is full.
func (c *MemoryStore) Set(key string, models []*registry.ProviderModel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &CacheEntry{
		Key:       key,
		FetchedAt: c.now(),
		Models:    models,
	}
}

// BulkSetSchemas stores all given schemas in one critical section.
func (c *MemoryStore) BulkSetSchemas(schemas map[string]json.RawMessage) {
	if len(schemas) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, schema := range schemas {
		c.schemas[id] = schema
	}
	log.WithField("count", len(schemas)).Debug("Stored model parameter schemas")
}

// GetSchema returns the raw parameter schema for modelID.
func (c *MemoryStore) GetSchema(modelID string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	schema, ok := c.schemas[modelID]
	return schema, ok
}

// Clear removes all catalog entries and schemas.
func (c *MemoryStore) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*CacheEntry)
	c.schemas = make(map[string]json.RawMessage)
}

// Stats returns the current counters.
func (c *MemoryStore) Stats() CacheStats {
	c.mu.RLock()
	entries, schemas := len(c.entries), len(c.schemas)
	c.mu.RUnlock()
	return CacheStats{
		Entries:    entries,
		Schemas:    schemas,
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		TTLSeconds: int(c.ttl / time.Second),
		MaxEntries: c.maxEntries,
	}
}

// isExpired checks if the entry has exceeded the store TTL.
func (c *MemoryStore) isExpired(entry *CacheEntry) bool {
	if c.ttl <= 0 {
		return false
	}
	return c.now().After(entry.FetchedAt.Add(c.ttl))
}

func (c *MemoryStore) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.FetchedAt.Before(oldest) {
			oldestKey, oldest = key, entry.FetchedAt
		}
	}
	if oldestKey == "" {
		return
	}
	delete(c.entries, oldestKey)
	c.evictions.Add(1)
	log.WithField("key", oldestKey).Debug("Evicted oldest catalog cache entry")
}
