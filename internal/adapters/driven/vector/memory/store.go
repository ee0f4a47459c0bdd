// Package memory provides an in-memory vector store for tests and
// offline use.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory implementation of driven.VectorStore using
// brute-force cosine similarity.
type Store struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
}

// NewStore creates a new in-memory vector store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]driven.VectorRecord),
	}
}

// Upsert stores or replaces records.
func (s *Store) Upsert(_ context.Context, records []driven.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.records[record.ID] = record
	}
	return nil
}

// Query returns the k nearest records by cosine similarity.
func (s *Store) Query(_ context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(s.records))
	for _, record := range s.records {
		hits = append(hits, driven.VectorHit{
			Record:     record,
			Similarity: cosine(vector, record.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// DeleteByDocument removes all records belonging to a document.
func (s *Store) DeleteByDocument(_ context.Context, documentName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.records {
		if record.DocumentName == documentName {
			delete(s.records, id)
		}
	}
	return nil
}

// Scan returns up to limit records; limit <= 0 returns everything.
func (s *Store) Scan(_ context.Context, limit int) ([]driven.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	records := make([]driven.VectorRecord, 0, len(ids))
	for _, id := range ids {
		records = append(records, s.records[id])
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// cosine computes cosine similarity mapped to [0,1].
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Map [-1,1] to [0,1] so scores are comparable with BM25 window scores.
	return (sim + 1) / 2
}
