// Package cache provides a content-addressed embedding cache with a
// pluggable eviction policy and a durable backing store.
//
// The cache is constructed explicitly at startup and passed by handle to
// its callers; there is no package-level instance.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Default capacity bounds applied when settings leave them zero.
const (
	DefaultMaxEntries = 4096
	DefaultMaxBytes   = 256 << 20 // 256 MiB of vectors
	DefaultTTL        = 24 * time.Hour
)

// Cache is an in-memory embedding cache persisted write-through to a
// CacheStore. All mutations (insert, evict, access-metadata update) are
// serialised under the writer lock; pure reads share the read lock.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.CacheEntry

	policy     domain.EvictionPolicy
	maxEntries int
	maxBytes   int64
	ttl        time.Duration

	totalBytes int64
	hits       int64
	misses     int64
	evictions  int64

	store driven.CacheStore

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a cache with the given settings, warmed from the backing
// store when one is provided. A nil store yields a memory-only cache.
func New(settings domain.CacheSettings, store driven.CacheStore) (*Cache, error) {
	policy := settings.Policy
	if !policy.IsValid() {
		policy = domain.EvictLRU
	}

	c := &Cache{
		entries:    make(map[string]*domain.CacheEntry),
		policy:     policy,
		maxEntries: settings.MaxEntries,
		maxBytes:   settings.MaxBytes,
		ttl:        settings.TTL,
		store:      store,
		now:        time.Now,
	}
	if c.maxEntries <= 0 {
		c.maxEntries = DefaultMaxEntries
	}
	if c.maxBytes <= 0 {
		c.maxBytes = DefaultMaxBytes
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}

	if store != nil {
		persisted, err := store.LoadEntries(context.Background())
		if err != nil {
			return nil, fmt.Errorf("warming cache: %w", err)
		}
		for i := range persisted {
			entry := persisted[i]
			c.entries[entry.ContentHash] = &entry
			c.totalBytes += entry.SizeBytes()
		}
		logger.Debug("Cache warmed with %d persisted entries", len(persisted))
	}

	return c, nil
}

// Key derives the cache key for a (text, model) pair.
// Hash collisions are treated as hits; raw text is never compared.
func Key(text, model string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached embedding for (text, model), or ok=false on miss.
// A hit updates the entry's access metadata and persists the update.
func (c *Cache) Get(ctx context.Context, text, model string) ([]float32, bool) {
	key := Key(text, model)

	// Access metadata mutates on a hit, so the lookup runs under the
	// writer lock as a single atomic step.
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	c.hits++
	entry.LastAccessed = c.now()
	entry.AccessCount++

	if c.store != nil {
		if err := c.store.SaveEntry(ctx, entry); err != nil {
			// Persistence failures never fail a read.
			logger.Error("Cache: persisting access metadata: %v", err)
		}
	}

	return entry.Embedding, true
}

// Put stores an embedding for (text, model), evicting per policy when the
// capacity bounds are exceeded. The insert is atomic with respect to
// concurrent readers.
func (c *Cache) Put(ctx context.Context, text, model string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("cache put: %w: empty embedding", domain.ErrInvalidInput)
	}

	key := Key(text, model)
	now := c.now()
	entry := &domain.CacheEntry{
		ContentHash:   key,
		Embedding:     embedding,
		ModelName:     model,
		ContentLength: len(text),
		CreatedAt:     now,
		LastAccessed:  now,
		AccessCount:   0,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.totalBytes -= old.SizeBytes()
	}
	c.entries[key] = entry
	c.totalBytes += entry.SizeBytes()

	evicted := c.evictLocked()

	if c.store != nil {
		if err := c.store.SaveEntry(ctx, entry); err != nil {
			logger.Error("Cache: persisting entry: %v", err)
		}
		if len(evicted) > 0 {
			if err := c.store.DeleteEntries(ctx, evicted); err != nil {
				logger.Error("Cache: persisting eviction: %v", err)
			}
		}
	}

	return nil
}

// Clear removes all entries from memory and the backing store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*domain.CacheEntry)
	c.totalBytes = 0

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			return fmt.Errorf("clearing cache store: %w", err)
		}
	}
	return nil
}

// SweepExpired removes entries older than the TTL. Only meaningful under
// the TTL policy; other policies evict on insert.
func (c *Cache) SweepExpired(ctx context.Context) int {
	if c.policy != domain.EvictTTL {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := c.evictExpiredLocked()
	if len(evicted) > 0 && c.store != nil {
		if err := c.store.DeleteEntries(ctx, evicted); err != nil {
			logger.Error("Cache: persisting TTL sweep: %v", err)
		}
	}
	return len(evicted)
}

// Stats returns an observability snapshot.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := domain.CacheStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		SizeBytes: c.totalBytes,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
