package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydocs/quarry/internal/chunking"
	"github.com/quarrydocs/quarry/internal/core/domain"
)

func ingestPages() []domain.PageText {
	return []domain.PageText{
		{PageNumber: 1, Text: "The quarterly invoice covers all outstanding consulting work."},
		{PageNumber: 2, Text: ""},
		{PageNumber: 3, Text: "Payment is due within thirty days of the invoice date."},
	}
}

func newIndexingFixture() (*IndexingService, *mockVectorStore, *mockSparseIndex, *mockVersionStore) {
	store := &mockVectorStore{}
	sparse := &mockSparseIndex{}
	versions := newMockVersionStore()
	embedder := &mockEmbedding{defaultVec: []float32{0.1, 0.2, 0.3}}
	svc := NewIndexingService(chunking.New(), embedder, store, sparse, NewLifecycleService(versions))
	return svc, store, sparse, versions
}

func TestIngestDocument(t *testing.T) {
	svc, store, sparse, versions := newIndexingFixture()

	count, err := svc.IngestDocument(context.Background(), "doc-1", "invoice.pdf", "/docs/invoice.pdf", ingestPages())
	require.NoError(t, err)

	// One chunk per page, including the empty page.
	assert.Equal(t, 3, count)

	// Only the non-empty chunks reach the vector store.
	require.Len(t, store.upserted, 2)
	for _, record := range store.upserted {
		assert.Equal(t, "doc-1", record.DocumentID)
		assert.Equal(t, "invoice.pdf", record.DocumentName)
		assert.NotEmpty(t, record.ID)
		assert.NotEmpty(t, record.Vector)
	}
	assert.Equal(t, 1, store.upserted[0].PageNumber)
	assert.Equal(t, 3, store.upserted[1].PageNumber)

	// The sparse index is stale until its next query.
	assert.Equal(t, 1, sparse.invalidations)

	// A lifecycle version was registered.
	v, err := versions.LatestActive(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, "/docs/invoice.pdf", v.FilePath)
	assert.NotEmpty(t, v.FileHash)
}

func TestIngestDocument_ReingestBumpsVersion(t *testing.T) {
	svc, _, _, versions := newIndexingFixture()
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, "doc-1", "invoice.pdf", "/docs/invoice.pdf", ingestPages())
	require.NoError(t, err)
	_, err = svc.IngestDocument(ctx, "doc-1", "invoice.pdf", "/docs/invoice.pdf", ingestPages())
	require.NoError(t, err)

	v, err := versions.LatestActive(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Version)
}

func TestIngestDocument_Validation(t *testing.T) {
	svc, _, _, _ := newIndexingFixture()

	_, err := svc.IngestDocument(context.Background(), "  ", "invoice.pdf", "/p", ingestPages())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestDocument_MissingCollaborators(t *testing.T) {
	_, err := NewIndexingService(chunking.New(), nil, &mockVectorStore{}, nil, nil).
		IngestDocument(context.Background(), "doc-1", "a.pdf", "/p", ingestPages())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)

	_, err = NewIndexingService(chunking.New(), &mockEmbedding{defaultVec: []float32{1}}, nil, nil, nil).
		IngestDocument(context.Background(), "doc-1", "a.pdf", "/p", ingestPages())
	assert.ErrorIs(t, err, domain.ErrVectorStoreUnavailable)
}

func TestIngestDocument_EmbeddingFailure(t *testing.T) {
	store := &mockVectorStore{}
	embedder := &mockEmbedding{embedErr: errors.New("model offline")}
	svc := NewIndexingService(chunking.New(), embedder, store, nil, nil)

	_, err := svc.IngestDocument(context.Background(), "doc-1", "a.pdf", "/p", ingestPages())
	require.Error(t, err)
	assert.Empty(t, store.upserted)
}

func TestIngestDocument_AllPagesEmpty(t *testing.T) {
	svc, store, _, _ := newIndexingFixture()

	pages := []domain.PageText{{PageNumber: 1, Text: ""}, {PageNumber: 2, Text: "   "}}
	count, err := svc.IngestDocument(context.Background(), "doc-1", "blank.pdf", "/p", pages)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, store.upserted)
}

func TestRemoveDocument(t *testing.T) {
	svc, store, sparse, _ := newIndexingFixture()
	ctx := context.Background()

	_, err := svc.IngestDocument(ctx, "doc-1", "invoice.pdf", "/p", ingestPages())
	require.NoError(t, err)

	err = svc.RemoveDocument(ctx, "invoice.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.pdf"}, store.deleted)
	assert.Equal(t, 2, sparse.invalidations)

	err = svc.RemoveDocument(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
