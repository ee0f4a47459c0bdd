package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure VersionStore implements the interface.
var _ driven.VersionStore = (*VersionStore)(nil)

// versionKey identifies a document revision.
type versionKey struct {
	documentID string
	version    int
}

// VersionStore is an in-memory implementation of driven.VersionStore.
type VersionStore struct {
	mu       sync.RWMutex
	versions map[versionKey]domain.DocumentVersion
	events   map[string][]domain.ObsoletionEvent
}

// NewVersionStore creates a new in-memory version store.
func NewVersionStore() *VersionStore {
	return &VersionStore{
		versions: make(map[versionKey]domain.DocumentVersion),
		events:   make(map[string][]domain.ObsoletionEvent),
	}
}

// SaveVersion stores or updates a version.
func (s *VersionStore) SaveVersion(_ context.Context, version *domain.DocumentVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[versionKey{version.DocumentID, version.Version}] = *version
	return nil
}

// GetVersion retrieves a specific version of a document.
func (s *VersionStore) GetVersion(_ context.Context, documentID string, version int) (*domain.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[versionKey{documentID, version}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &v, nil
}

// LatestVersion returns the highest registered version number, or 0.
func (s *VersionStore) LatestVersion(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := 0
	for key := range s.versions {
		if key.documentID == documentID && key.version > latest {
			latest = key.version
		}
	}
	return latest, nil
}

// LatestActive returns the highest-numbered Active version.
func (s *VersionStore) LatestActive(_ context.Context, documentID string) (*domain.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *domain.DocumentVersion
	for key, v := range s.versions {
		if key.documentID != documentID || v.Status != domain.StatusActive {
			continue
		}
		if found == nil || v.Version > found.Version {
			copied := v
			found = &copied
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

// ListByDocument returns all versions of a document, oldest first.
func (s *VersionStore) ListByDocument(_ context.Context, documentID string) ([]domain.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var versions []domain.DocumentVersion
	for key, v := range s.versions {
		if key.documentID == documentID {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version < versions[j].Version
	})
	return versions, nil
}

// ListByStatus returns all versions with the given status.
func (s *VersionStore) ListByStatus(_ context.Context, status domain.VersionStatus) ([]domain.DocumentVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var versions []domain.DocumentVersion
	for _, v := range s.versions {
		if v.Status == status {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		if versions[i].DocumentID != versions[j].DocumentID {
			return versions[i].DocumentID < versions[j].DocumentID
		}
		return versions[i].Version < versions[j].Version
	})
	return versions, nil
}

// AppendEvent appends an immutable obsoletion event.
func (s *VersionStore) AppendEvent(_ context.Context, event *domain.ObsoletionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.DocumentID] = append(s.events[event.DocumentID], *event)
	return nil
}

// ListEvents returns events for a document, oldest first.
func (s *VersionStore) ListEvents(_ context.Context, documentID string) ([]domain.ObsoletionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ObsoletionEvent(nil), s.events[documentID]...), nil
}
