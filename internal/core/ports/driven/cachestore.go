package driven

import (
	"context"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// CacheStore durably persists embedding cache entries so the cache
// survives process restart. Backed by SQLite in production.
//
// Store failures must be non-fatal for retrieval: the in-memory cache
// logs them and degrades to a miss.
type CacheStore interface {
	// SaveEntry stores or replaces an entry, including access metadata.
	SaveEntry(ctx context.Context, entry *domain.CacheEntry) error

	// DeleteEntries removes entries by content hash.
	DeleteEntries(ctx context.Context, hashes []string) error

	// LoadEntries returns all persisted entries, used to warm the
	// in-memory cache at startup.
	LoadEntries(ctx context.Context) ([]domain.CacheEntry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
