package services

import (
	"context"
	"fmt"

	"github.com/quarrydocs/quarry/internal/cache"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Ensure CachedEmbedder implements the interface.
var _ driven.EmbeddingService = (*CachedEmbedder)(nil)

// CachedEmbedder decorates an embedding service with the content-addressed
// embedding cache. Only cache misses reach the underlying model; hits are
// served from memory and refresh the entry's access metadata.
type CachedEmbedder struct {
	inner driven.EmbeddingService
	cache *cache.Cache
}

// NewCachedEmbedder wraps inner with the given cache.
func NewCachedEmbedder(inner driven.EmbeddingService, c *cache.Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c}
}

// Embed returns the cached embedding or computes and caches it.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.inner.ModelName()
	if vector, ok := e.cache.Get(ctx, text, model); ok {
		return vector, nil
	}

	vector, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	if err := e.cache.Put(ctx, text, model, vector); err != nil {
		logger.Warn("Embedding cache put failed: %v", err)
	}
	return vector, nil
}

// EmbedBatch serves hits from the cache and batches only the misses to
// the underlying model.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.inner.ModelName()
	result := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if vector, ok := e.cache.Get(ctx, text, model); ok {
			result[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	vectors, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embed batch: model returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for i, vector := range vectors {
		result[missIdx[i]] = vector
		if err := e.cache.Put(ctx, missTexts[i], model, vector); err != nil {
			logger.Warn("Embedding cache put failed: %v", err)
		}
	}
	return result, nil
}

// Dimensions returns the embedding vector size.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// Ping validates the underlying service is reachable.
func (e *CachedEmbedder) Ping(ctx context.Context) error {
	return e.inner.Ping(ctx)
}

// Close releases resources.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
