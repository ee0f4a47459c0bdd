package driven

import (
	"context"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// VectorStore persists chunk embeddings and serves nearest-neighbour queries.
// It is also the authoritative chunk corpus: the sparse index rebuilds
// itself from Scan.
type VectorStore interface {
	// Upsert stores or replaces a record.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns the k nearest records to the query vector.
	Query(ctx context.Context, vector []float32, k int) ([]VectorHit, error)

	// DeleteByDocument removes all records belonging to a document.
	DeleteByDocument(ctx context.Context, documentName string) error

	// Scan streams up to limit records for corpus rebuilds.
	// A limit <= 0 scans the whole collection.
	Scan(ctx context.Context, limit int) ([]VectorRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorRecord is a stored chunk embedding with retrieval metadata.
type VectorRecord struct {
	// ID is the stable record identifier.
	ID string

	// Vector is the chunk embedding.
	Vector []float32

	// Text is the chunk text.
	Text string

	// DocumentID identifies the source document.
	DocumentID string

	// DocumentName is the human-readable document name.
	DocumentName string

	// ChunkIndex is the chunk ordinal within the document.
	ChunkIndex int

	// PageNumber is the source page of the chunk.
	PageNumber int
}

// VectorHit is a similarity search result.
type VectorHit struct {
	// Record is the matched record.
	Record VectorRecord

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}

// Candidate converts the hit into a retrieval candidate.
func (h VectorHit) Candidate() domain.RetrievalCandidate {
	return domain.RetrievalCandidate{
		RecordID:        h.Record.ID,
		Text:            h.Record.Text,
		SimilarityScore: h.Similarity,
		DocumentID:      h.Record.DocumentID,
		DocumentName:    h.Record.DocumentName,
		ChunkIndex:      h.Record.ChunkIndex,
		PageNumber:      h.Record.PageNumber,
	}
}
