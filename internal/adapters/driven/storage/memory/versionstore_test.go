package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

func version(documentID string, number int, status domain.VersionStatus) *domain.DocumentVersion {
	now := time.Now().UTC()
	return &domain.DocumentVersion{
		DocumentID: documentID,
		Version:    number,
		Status:     status,
		CreatedAt:  now,
		ValidFrom:  now,
	}
}

func TestVersionStore_SaveAndGet(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 1, domain.StatusActive)))

	got, err := store.GetVersion(ctx, "doc-1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)

	_, err = store.GetVersion(ctx, "doc-1", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVersionStore_LatestVersion(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	latest, err := store.LatestVersion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, latest)

	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 1, domain.StatusObsolete)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 3, domain.StatusActive)))

	latest, err = store.LatestVersion(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
}

func TestVersionStore_LatestActive(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 1, domain.StatusActive)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 2, domain.StatusActive)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 3, domain.StatusInvalid)))

	got, err := store.LatestActive(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)

	_, err = store.LatestActive(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVersionStore_ListByDocumentOrdersOldestFirst(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 2, domain.StatusActive)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 1, domain.StatusObsolete)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-2", 1, domain.StatusActive)))

	list, err := store.ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, 2, list[1].Version)
}

func TestVersionStore_ListByStatus(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	require.NoError(t, store.SaveVersion(ctx, version("doc-1", 1, domain.StatusActive)))
	require.NoError(t, store.SaveVersion(ctx, version("doc-2", 1, domain.StatusObsolete)))

	active, err := store.ListByStatus(ctx, domain.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "doc-1", active[0].DocumentID)
}

func TestVersionStore_Events(t *testing.T) {
	store := NewVersionStore()
	ctx := context.Background()

	events, err := store.ListEvents(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, store.AppendEvent(ctx, &domain.ObsoletionEvent{
		ID: "evt-1", DocumentID: "doc-1", Version: 1, Reason: "superseded by version 2",
	}))
	require.NoError(t, store.AppendEvent(ctx, &domain.ObsoletionEvent{
		ID: "evt-2", DocumentID: "doc-1", Version: 2, Reason: "expired automatically",
	}))

	events, err = store.ListEvents(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
}
