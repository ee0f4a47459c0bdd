package domain

import "time"

// CacheEntry is a persisted embedding vector with access metadata.
// At most one entry exists per content hash. Access metadata mutates on
// every hit; everything else is immutable after creation.
type CacheEntry struct {
	// ContentHash is the SHA-256 of (text, model name) and the primary key.
	ContentHash string

	// Embedding is the cached vector.
	Embedding []float32

	// ModelName is the embedding model that produced the vector.
	ModelName string

	// ContentLength is the length of the source text in bytes.
	ContentLength int

	// CreatedAt is when the entry was first stored.
	CreatedAt time.Time

	// LastAccessed is updated on every cache hit.
	LastAccessed time.Time

	// AccessCount is the number of hits since creation.
	AccessCount int64
}

// SizeBytes estimates the in-memory footprint of the entry, used by the
// size-based and byte-budget eviction policies.
func (e *CacheEntry) SizeBytes() int64 {
	return int64(len(e.Embedding))*4 + int64(len(e.ContentHash)) + int64(len(e.ModelName))
}

// CacheStats is an observability snapshot of the embedding cache.
type CacheStats struct {
	Entries   int     `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
	SizeBytes int64   `json:"size_bytes"`
}

// EvictionPolicy selects how the embedding cache sheds entries.
type EvictionPolicy string

// Available eviction policies.
const (
	// EvictLRU removes the least-recently-accessed entries once the entry
	// count or byte budget is exceeded.
	EvictLRU EvictionPolicy = "lru"

	// EvictTTL removes entries older than the configured lifetime.
	EvictTTL EvictionPolicy = "ttl"

	// EvictSize removes the largest entries first once the byte budget is
	// exceeded.
	EvictSize EvictionPolicy = "size"
)

// IsValid returns true if the eviction policy is recognised.
func (p EvictionPolicy) IsValid() bool {
	switch p {
	case EvictLRU, EvictTTL, EvictSize:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p EvictionPolicy) String() string {
	return string(p)
}
