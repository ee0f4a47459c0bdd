package driving

import (
	"context"
	"time"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// RetrievalService serves ranked passage retrieval to external actors.
type RetrievalService interface {
	// Retrieve returns a bounded, threshold-filtered ranked candidate list
	// for the query.
	Retrieve(ctx context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievalCandidate, error)
}

// IndexingService feeds documents into the retrieval indexes.
type IndexingService interface {
	// IngestDocument chunks the pages, embeds non-empty chunks through the
	// cache, upserts them into the vector store, registers a lifecycle
	// version and invalidates the sparse index. Returns the number of
	// chunks produced.
	IngestDocument(ctx context.Context, documentID, documentName, filePath string, pages []domain.PageText) (int, error)

	// RemoveDocument removes a document's records from the vector store
	// and invalidates the sparse index.
	RemoveDocument(ctx context.Context, documentName string) error
}

// LifecycleService tracks document versions and obsoletion independently
// of the indexes.
type LifecycleService interface {
	// Register records a new version of a document and returns it.
	Register(ctx context.Context, documentID, filePath, fileHash string, validFrom, validUntil *time.Time) (*domain.DocumentVersion, error)

	// Obsolete transitions a version (latest Active when version == 0) to
	// Obsolete.
	Obsolete(ctx context.Context, documentID string, version int, reason, actor string) error

	// Invalidate transitions a version (latest Active when version == 0)
	// to Invalid.
	Invalidate(ctx context.Context, documentID string, version int, reason, actor string) error

	// ActiveDocuments returns versions active at the given time
	// (now when asOf == nil).
	ActiveDocuments(ctx context.Context, asOf *time.Time) ([]domain.DocumentVersion, error)

	// History returns all versions of a document, oldest first.
	History(ctx context.Context, documentID string) ([]domain.DocumentVersion, error)

	// Events returns the obsoletion event log for a document, oldest first.
	Events(ctx context.Context, documentID string) ([]domain.ObsoletionEvent, error)

	// CleanupExpired sweeps Active versions whose validity window has
	// passed into Obsolete. Returns the number of versions transitioned.
	CleanupExpired(ctx context.Context) (int, error)
}
