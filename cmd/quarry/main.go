// Command quarry is the entry point for the quarry CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quarrydocs/quarry/internal/adapters/driven/ai"
	configfile "github.com/quarrydocs/quarry/internal/adapters/driven/config/file"
	"github.com/quarrydocs/quarry/internal/adapters/driven/index/bm25"
	"github.com/quarrydocs/quarry/internal/adapters/driven/storage/sqlite"
	vectormemory "github.com/quarrydocs/quarry/internal/adapters/driven/vector/memory"
	"github.com/quarrydocs/quarry/internal/adapters/driven/vector/qdrant"
	"github.com/quarrydocs/quarry/internal/adapters/driving/cli"
	"github.com/quarrydocs/quarry/internal/cache"
	"github.com/quarrydocs/quarry/internal/chunking"
	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/services"
	"github.com/quarrydocs/quarry/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configStore, err := configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}

	// Live reload: edits to the config file are picked up without a
	// restart; the next settings lookup sees the new values.
	go func() {
		if err := configStore.Watch(ctx, func() {
			logger.Info("Configuration reloaded")
		}); err != nil && ctx.Err() == nil {
			logger.Warn("Config watcher stopped: %v", err)
		}
	}()

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	embeddingCache, err := cache.New(settings.Cache, store.CacheStore())
	if err != nil {
		return fmt.Errorf("failed to build embedding cache: %w", err)
	}

	// AI services are optional: retrieval degrades to sparse-only when
	// embedding is unreachable, and reranking is skipped without a
	// relevance model.
	var embedder driven.EmbeddingService
	if svc, err := ai.CreateAndValidateEmbeddingService(&settings.Embedding); err != nil {
		logger.Warn("%v", err)
	} else if svc != nil {
		embedder = services.NewCachedEmbedder(svc, embeddingCache)
		defer svc.Close()
	}

	var relevance driven.RelevanceModel
	if model, err := ai.CreateAndValidateRelevanceModel(&settings.Relevance); err != nil {
		logger.Warn("%v", err)
	} else if model != nil {
		relevance = model
		defer model.Close()
	}

	vectorStore, err := buildVectorStore(ctx, settings)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	sparseIndex := bm25.New(vectorStore)

	chunker := chunking.New(
		chunking.WithChunkSize(settings.Chunking.ChunkSize),
		chunking.WithOverlap(settings.Chunking.ChunkOverlap),
		chunking.WithStrategy(settings.Chunking.Strategy),
		chunking.WithMinChunkLength(settings.Chunking.MinChunkLength),
	)

	lifecycleService := services.NewLifecycleService(store.VersionStore())
	indexingService := services.NewIndexingService(chunker, embedder, vectorStore, sparseIndex, lifecycleService)
	retrievalService := services.NewRetrievalService(vectorStore, embedder, sparseIndex, relevance)
	retrievalService.SetRerankCandidateCount(settings.Retrieval.RerankCandidateCount)

	cli.SetServices(cli.Services{
		Retrieval:   retrievalService,
		Indexing:    indexingService,
		Lifecycle:   lifecycleService,
		Settings:    settingsService,
		Cache:       embeddingCache,
		VectorStore: vectorStore,
		SparseIndex: sparseIndex,
	})

	return cli.Execute()
}

// buildVectorStore selects the configured vector store backend.
func buildVectorStore(ctx context.Context, settings *domain.AppSettings) (driven.VectorStore, error) {
	switch settings.VectorStore.Provider {
	case domain.VectorStoreQdrant:
		store := qdrant.NewStore(qdrant.Config{
			BaseURL:    settings.VectorStore.URL,
			Collection: settings.VectorStore.Collection,
			Dimensions: settings.VectorStore.Dimensions,
		})
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, fmt.Errorf("failed to reach qdrant: %w", err)
		}
		return store, nil

	default:
		return vectormemory.NewStore(), nil
	}
}
