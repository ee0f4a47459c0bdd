package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/quarrydocs/quarry/internal/chunking"
	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/ports/driving"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// IndexingService turns page-ordered document text into retrievable
// records. Ingestion chunks, registers a lifecycle version, embeds
// non-empty chunks through the cache, upserts the vector store and
// invalidates the sparse index so it rebuilds lazily.
type IndexingService struct {
	chunker     *chunking.Chunker
	embedder    driven.EmbeddingService
	vectorStore driven.VectorStore
	sparseIndex driven.SparseIndex
	lifecycle   driving.LifecycleService
}

// NewIndexingService creates an indexing service. The sparse index and
// lifecycle service are optional.
func NewIndexingService(
	chunker *chunking.Chunker,
	embedder driven.EmbeddingService,
	vectorStore driven.VectorStore,
	sparseIndex driven.SparseIndex,
	lifecycle driving.LifecycleService,
) *IndexingService {
	return &IndexingService{
		chunker:     chunker,
		embedder:    embedder,
		vectorStore: vectorStore,
		sparseIndex: sparseIndex,
		lifecycle:   lifecycle,
	}
}

// IngestDocument indexes the pages of a document and returns the number
// of chunks produced. Empty chunks keep page coverage but are not
// embedded or stored.
func (s *IndexingService) IngestDocument(
	ctx context.Context, documentID, documentName, filePath string, pages []domain.PageText,
) (int, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return 0, fmt.Errorf("ingest: %w: empty document ID", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return 0, fmt.Errorf("ingest: %w", domain.ErrEmbeddingUnavailable)
	}
	if s.vectorStore == nil {
		return 0, fmt.Errorf("ingest: %w", domain.ErrVectorStoreUnavailable)
	}

	logger.Section("Ingest: " + documentName)

	chunks, err := s.chunker.ChunkPages(documentID, documentName, pages)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", documentName, err)
	}
	logger.Info("Chunked %d pages into %d chunks", len(pages), len(chunks))

	if s.lifecycle != nil {
		if _, err := s.lifecycle.Register(ctx, documentID, filePath, contentHash(pages), nil, nil); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", documentName, err)
		}
	}

	indexable := make([]domain.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if !chunk.IsEmpty {
			indexable = append(indexable, chunk)
		}
	}
	if len(indexable) == 0 {
		logger.Warn("Document %s produced no indexable chunks", documentName)
		return len(chunks), nil
	}

	texts := make([]string, len(indexable))
	for i, chunk := range indexable {
		texts[i] = chunk.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: embedding: %w", documentName, err)
	}

	records := make([]driven.VectorRecord, len(indexable))
	for i, chunk := range indexable {
		records[i] = driven.VectorRecord{
			ID:           chunk.ID,
			Vector:       vectors[i],
			Text:         chunk.Text,
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.DocumentName,
			ChunkIndex:   chunk.Index,
			PageNumber:   chunk.PageNumber,
		}
	}
	if err := s.vectorStore.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("ingest %s: vector store: %w", documentName, err)
	}
	logger.Info("Upserted %d records", len(records))

	if s.sparseIndex != nil {
		s.sparseIndex.Invalidate()
	}

	return len(chunks), nil
}

// RemoveDocument drops a document's records from the vector store and
// invalidates the sparse index.
func (s *IndexingService) RemoveDocument(ctx context.Context, documentName string) error {
	documentName = strings.TrimSpace(documentName)
	if documentName == "" {
		return fmt.Errorf("remove: %w: empty document name", domain.ErrInvalidInput)
	}
	if s.vectorStore == nil {
		return fmt.Errorf("remove: %w", domain.ErrVectorStoreUnavailable)
	}

	if err := s.vectorStore.DeleteByDocument(ctx, documentName); err != nil {
		return fmt.Errorf("remove %s: %w", documentName, err)
	}

	if s.sparseIndex != nil {
		s.sparseIndex.Invalidate()
	}

	logger.Info("Removed %s from the indexes", documentName)
	return nil
}

// contentHash fingerprints the document text for version tracking.
func contentHash(pages []domain.PageText) string {
	h := sha256.New()
	for _, page := range pages {
		h.Write([]byte(page.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
