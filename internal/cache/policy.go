package cache

import (
	"sort"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// evictLocked sheds entries per the configured policy and returns the
// evicted keys. Callers hold the writer lock.
func (c *Cache) evictLocked() []string {
	switch c.policy {
	case domain.EvictTTL:
		return c.evictExpiredLocked()
	case domain.EvictSize:
		return c.evictLargestLocked()
	default:
		return c.evictLRULocked()
	}
}

// evictLRULocked removes least-recently-accessed entries until both the
// entry count and byte budget fit.
func (c *Cache) evictLRULocked() []string {
	if len(c.entries) <= c.maxEntries && c.totalBytes <= c.maxBytes {
		return nil
	}

	ordered := c.sortedEntries(func(a, b *domain.CacheEntry) bool {
		return a.LastAccessed.Before(b.LastAccessed)
	})

	var evicted []string
	for _, entry := range ordered {
		if len(c.entries) <= c.maxEntries && c.totalBytes <= c.maxBytes {
			break
		}
		c.removeLocked(entry)
		evicted = append(evicted, entry.ContentHash)
	}
	return evicted
}

// evictExpiredLocked removes entries older than the TTL.
func (c *Cache) evictExpiredLocked() []string {
	cutoff := c.now().Add(-c.ttl)

	var evicted []string
	for _, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			c.removeLocked(entry)
			evicted = append(evicted, entry.ContentHash)
		}
	}
	return evicted
}

// evictLargestLocked removes the largest entries first until the byte
// budget fits.
func (c *Cache) evictLargestLocked() []string {
	if c.totalBytes <= c.maxBytes {
		return nil
	}

	ordered := c.sortedEntries(func(a, b *domain.CacheEntry) bool {
		return a.SizeBytes() > b.SizeBytes()
	})

	var evicted []string
	for _, entry := range ordered {
		if c.totalBytes <= c.maxBytes {
			break
		}
		c.removeLocked(entry)
		evicted = append(evicted, entry.ContentHash)
	}
	return evicted
}

// sortedEntries snapshots the entries ordered by less.
func (c *Cache) sortedEntries(less func(a, b *domain.CacheEntry) bool) []*domain.CacheEntry {
	ordered := make([]*domain.CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j])
	})
	return ordered
}

// removeLocked drops one entry and updates counters.
func (c *Cache) removeLocked(entry *domain.CacheEntry) {
	delete(c.entries, entry.ContentHash)
	c.totalBytes -= entry.SizeBytes()
	c.evictions++
}
