package driven

import (
	"context"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// VersionStore persists document versions and the obsoletion event log.
// Backed by an append-mostly relational store indexed by
// (document_id, status) and by validity window.
//
// Store failures are fatal for lifecycle mutations: callers must see the
// failure so state is not assumed to have changed.
type VersionStore interface {
	// SaveVersion stores or updates a version. Versions are keyed by
	// (document_id, version).
	SaveVersion(ctx context.Context, version *domain.DocumentVersion) error

	// GetVersion retrieves a specific version of a document.
	GetVersion(ctx context.Context, documentID string, version int) (*domain.DocumentVersion, error)

	// LatestVersion returns the highest registered version number for a
	// document, or 0 when the document is unknown.
	LatestVersion(ctx context.Context, documentID string) (int, error)

	// LatestActive returns the highest-numbered Active version of a
	// document, or domain.ErrNotFound.
	LatestActive(ctx context.Context, documentID string) (*domain.DocumentVersion, error)

	// ListByDocument returns all versions of a document, oldest first.
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentVersion, error)

	// ListByStatus returns all versions with the given status.
	ListByStatus(ctx context.Context, status domain.VersionStatus) ([]domain.DocumentVersion, error)

	// AppendEvent appends an immutable obsoletion event.
	AppendEvent(ctx context.Context, event *domain.ObsoletionEvent) error

	// ListEvents returns events for a document, oldest first.
	ListEvents(ctx context.Context, documentID string) ([]domain.ObsoletionEvent, error)
}
