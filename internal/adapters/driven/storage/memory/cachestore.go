// Package memory provides in-memory implementations of the storage
// driven ports, used in tests and for ephemeral runs where persistence
// across restarts is not needed.
package memory

import (
	"context"
	"sync"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CacheEntry
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]domain.CacheEntry),
	}
}

// SaveEntry stores or replaces an entry.
func (s *CacheStore) SaveEntry(_ context.Context, entry *domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ContentHash] = *entry
	return nil
}

// DeleteEntries removes entries by content hash.
func (s *CacheStore) DeleteEntries(_ context.Context, hashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, hash := range hashes {
		delete(s.entries, hash)
	}
	return nil
}

// LoadEntries returns all persisted entries.
func (s *CacheStore) LoadEntries(_ context.Context) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	return entries, nil
}

// Clear removes all entries.
func (s *CacheStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]domain.CacheEntry)
	return nil
}
