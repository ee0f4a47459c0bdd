package cli

import (
	"context"
	"errors"
	"time"

	"github.com/quarrydocs/quarry/internal/adapters/driven/index/bm25"
	vectormemory "github.com/quarrydocs/quarry/internal/adapters/driven/vector/memory"
	"github.com/quarrydocs/quarry/internal/cache"
	"github.com/quarrydocs/quarry/internal/core/domain"
)

// setupTestServices installs mock services and returns a cleanup that
// restores the previous ones.
func setupTestServices() func() {
	oldRetrieval := retrievalService
	oldIndexing := indexingService
	oldLifecycle := lifecycleService
	oldSettings := settingsService
	oldCache := embeddingCache
	oldVector := vectorStore
	oldSparse := sparseIndex

	retrievalService = &mockRetrievalService{}
	indexingService = &mockIndexingService{chunkCount: 3}
	lifecycleService = newMockLifecycleService()
	settingsService = &mockSettingsService{settings: domain.DefaultAppSettings()}
	embeddingCache, _ = cache.New(domain.CacheSettings{}, nil)
	vectorStore = vectormemory.NewStore()
	sparseIndex = bm25.New(vectorStore)

	return func() {
		retrievalService = oldRetrieval
		indexingService = oldIndexing
		lifecycleService = oldLifecycle
		settingsService = oldSettings
		embeddingCache = oldCache
		vectorStore = oldVector
		sparseIndex = oldSparse
	}
}

type mockRetrievalService struct {
	lastQuery string
	lastOpts  domain.RetrieveOptions
	err       error
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, opts domain.RetrieveOptions) ([]domain.RetrievalCandidate, error) {
	m.lastQuery = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return []domain.RetrievalCandidate{
		{
			RecordID:        "guide.pdf:0",
			Text:            "how to configure retrieval",
			SimilarityScore: 0.91,
			DocumentID:      "guide.pdf",
			DocumentName:    "guide.pdf",
			PageNumber:      1,
		},
		{
			RecordID:        "guide.pdf:4",
			Text:            "tuning the sparse index",
			SimilarityScore: 0.74,
			DocumentID:      "guide.pdf",
			DocumentName:    "guide.pdf",
			PageNumber:      3,
		},
	}, nil
}

type mockIndexingService struct {
	chunkCount   int
	ingestedID   string
	ingestedName string
	removedName  string
	err          error
}

func (m *mockIndexingService) IngestDocument(_ context.Context, documentID, documentName, _ string, _ []domain.PageText) (int, error) {
	m.ingestedID = documentID
	m.ingestedName = documentName
	return m.chunkCount, m.err
}

func (m *mockIndexingService) RemoveDocument(_ context.Context, documentName string) error {
	m.removedName = documentName
	return m.err
}

type mockLifecycleService struct {
	versions []domain.DocumentVersion
	events   []domain.ObsoletionEvent

	obsoletedID   string
	invalidatedID string
	cleanupCount  int
}

func newMockLifecycleService() *mockLifecycleService {
	registered := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &mockLifecycleService{
		versions: []domain.DocumentVersion{
			{
				DocumentID: "guide.pdf",
				Version:    2,
				Status:     domain.StatusActive,
				CreatedAt:  registered,
				ValidFrom:  registered,
			},
			{
				DocumentID: "guide.pdf",
				Version:    1,
				Status:     domain.StatusObsolete,
				CreatedAt:  registered.Add(-24 * time.Hour),
				ValidFrom:  registered.Add(-24 * time.Hour),
			},
		},
		events: []domain.ObsoletionEvent{
			{
				ID:          "evt-1",
				DocumentID:  "guide.pdf",
				Version:     1,
				ObsoletedAt: registered,
				Reason:      "superseded by version 2",
				ObsoletedBy: "system",
			},
		},
		cleanupCount: 1,
	}
}

func (m *mockLifecycleService) Register(_ context.Context, documentID, filePath, fileHash string, _, _ *time.Time) (*domain.DocumentVersion, error) {
	return &domain.DocumentVersion{DocumentID: documentID, FilePath: filePath, FileHash: fileHash, Version: 1}, nil
}

func (m *mockLifecycleService) Obsolete(_ context.Context, documentID string, _ int, _, _ string) error {
	m.obsoletedID = documentID
	return nil
}

func (m *mockLifecycleService) Invalidate(_ context.Context, documentID string, _ int, _, _ string) error {
	m.invalidatedID = documentID
	return nil
}

func (m *mockLifecycleService) ActiveDocuments(_ context.Context, _ *time.Time) ([]domain.DocumentVersion, error) {
	return m.versions[:1], nil
}

func (m *mockLifecycleService) History(_ context.Context, documentID string) ([]domain.DocumentVersion, error) {
	if documentID != "guide.pdf" {
		return nil, domain.ErrNotFound
	}
	return m.versions, nil
}

func (m *mockLifecycleService) Events(_ context.Context, _ string) ([]domain.ObsoletionEvent, error) {
	return m.events, nil
}

func (m *mockLifecycleService) CleanupExpired(_ context.Context) (int, error) {
	return m.cleanupCount, nil
}

type mockSettingsService struct {
	settings *domain.AppSettings
	saved    *domain.AppSettings
	getErr   error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.settings, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.saved = settings
	return nil
}

var errMockFailure = errors.New("mock failure")
