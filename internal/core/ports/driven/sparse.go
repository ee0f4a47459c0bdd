package driven

import (
	"context"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// SparseIndex provides lexical (BM25) retrieval over the chunk corpus.
//
// The index is a derived structure: the vector store holds the
// authoritative corpus and the indexing pipeline calls Invalidate after
// corpus changes. A stale index rebuilds itself on the next query under
// the writer lock.
type SparseIndex interface {
	// Query returns up to topK candidates ranked by BM25 score,
	// min-max normalised to [0,1] across the returned window.
	// A query with no matching tokens returns an empty list.
	Query(ctx context.Context, query string, topK int) ([]domain.RetrievalCandidate, error)

	// Invalidate marks the index stale after a corpus change.
	Invalidate()

	// Rebuild reconstructs the index from the authoritative corpus.
	Rebuild(ctx context.Context) error

	// Size returns the number of indexed chunks.
	Size() int
}
