package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedding implements driven.EmbeddingService with per-text vectors.
type mockEmbedding struct {
	vectors    map[string][]float32
	defaultVec []float32
	embedErr   error
	dims       int
	model      string

	embedCalls int
	batchCalls int
}

func (m *mockEmbedding) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	if m.defaultVec != nil {
		return m.defaultVec, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

func (m *mockEmbedding) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 3
}

func (m *mockEmbedding) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbedding) Ping(_ context.Context) error { return nil }

func (m *mockEmbedding) Close() error { return nil }

// mockVectorStore implements driven.VectorStore.
type mockVectorStore struct {
	hits     []driven.VectorHit
	queryErr error

	upserted  []driven.VectorRecord
	upsertErr error

	deleted   []string
	deleteErr error
}

func (m *mockVectorStore) Upsert(_ context.Context, records []driven.VectorRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, _ []float32, k int) ([]driven.VectorHit, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if k > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:k], nil
}

func (m *mockVectorStore) DeleteByDocument(_ context.Context, documentName string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentName)
	return nil
}

func (m *mockVectorStore) Scan(_ context.Context, limit int) ([]driven.VectorRecord, error) {
	if limit <= 0 || limit > len(m.upserted) {
		return m.upserted, nil
	}
	return m.upserted[:limit], nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) {
	return len(m.upserted), nil
}

func (m *mockVectorStore) Close() error { return nil }

// mockSparseIndex implements driven.SparseIndex.
type mockSparseIndex struct {
	candidates []domain.RetrievalCandidate
	queryErr   error

	invalidations int
	rebuilds      int
}

func (m *mockSparseIndex) Query(_ context.Context, _ string, topK int) ([]domain.RetrievalCandidate, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK > len(m.candidates) {
		return m.candidates, nil
	}
	return m.candidates[:topK], nil
}

func (m *mockSparseIndex) Invalidate() { m.invalidations++ }

func (m *mockSparseIndex) Rebuild(_ context.Context) error {
	m.rebuilds++
	return nil
}

func (m *mockSparseIndex) Size() int { return len(m.candidates) }

// mockRelevance implements driven.RelevanceModel with per-text scores.
type mockRelevance struct {
	scores   map[string]float64
	failFor  map[string]bool
	scoreErr error
	calls    int
}

func (m *mockRelevance) Score(_ context.Context, _, text string) (float64, error) {
	m.calls++
	if m.scoreErr != nil {
		return 0, m.scoreErr
	}
	if m.failFor[text] {
		return 0, errors.New("scoring failed")
	}
	return m.scores[text], nil
}

func (m *mockRelevance) ModelName() string { return "mock-relevance" }

func (m *mockRelevance) Ping(_ context.Context) error { return nil }

func (m *mockRelevance) Close() error { return nil }

// mockVersionStore implements driven.VersionStore in memory.
type mockVersionStore struct {
	versions map[string][]domain.DocumentVersion
	events   map[string][]domain.ObsoletionEvent

	saveErr   error
	appendErr error
}

func newMockVersionStore() *mockVersionStore {
	return &mockVersionStore{
		versions: make(map[string][]domain.DocumentVersion),
		events:   make(map[string][]domain.ObsoletionEvent),
	}
}

func (m *mockVersionStore) SaveVersion(_ context.Context, version *domain.DocumentVersion) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	list := m.versions[version.DocumentID]
	for i := range list {
		if list[i].Version == version.Version {
			list[i] = *version
			return nil
		}
	}
	m.versions[version.DocumentID] = append(list, *version)
	return nil
}

func (m *mockVersionStore) GetVersion(_ context.Context, documentID string, version int) (*domain.DocumentVersion, error) {
	for _, v := range m.versions[documentID] {
		if v.Version == version {
			out := v
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockVersionStore) LatestVersion(_ context.Context, documentID string) (int, error) {
	latest := 0
	for _, v := range m.versions[documentID] {
		if v.Version > latest {
			latest = v.Version
		}
	}
	return latest, nil
}

func (m *mockVersionStore) LatestActive(_ context.Context, documentID string) (*domain.DocumentVersion, error) {
	var found *domain.DocumentVersion
	for _, v := range m.versions[documentID] {
		if v.Status == domain.StatusActive && (found == nil || v.Version > found.Version) {
			out := v
			found = &out
		}
	}
	if found == nil {
		return nil, domain.ErrNotFound
	}
	return found, nil
}

func (m *mockVersionStore) ListByDocument(_ context.Context, documentID string) ([]domain.DocumentVersion, error) {
	out := append([]domain.DocumentVersion(nil), m.versions[documentID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (m *mockVersionStore) ListByStatus(_ context.Context, status domain.VersionStatus) ([]domain.DocumentVersion, error) {
	var out []domain.DocumentVersion
	for _, list := range m.versions {
		for _, v := range list {
			if v.Status == status {
				out = append(out, v)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Version < out[j].Version
	})
	return out, nil
}

func (m *mockVersionStore) AppendEvent(_ context.Context, event *domain.ObsoletionEvent) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events[event.DocumentID] = append(m.events[event.DocumentID], *event)
	return nil
}

func (m *mockVersionStore) ListEvents(_ context.Context, documentID string) ([]domain.ObsoletionEvent, error) {
	return append([]domain.ObsoletionEvent(nil), m.events[documentID]...), nil
}
