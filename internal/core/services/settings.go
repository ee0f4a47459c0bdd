package services

import (
	"fmt"
	"time"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"

	keyRelevanceProvider = "relevance.provider"
	keyRelevanceModel    = "relevance.model"
	keyRelevanceBaseURL  = "relevance.base_url"
	keyRelevanceAPIKey   = "relevance.api_key"

	keyRetrievalTopK      = "retrieval.top_k"
	keyRetrievalThreshold = "retrieval.similarity_threshold"
	keyRetrievalStrategy  = "retrieval.strategy"
	keyRetrievalPool      = "retrieval.rerank_candidates"
	keyRetrievalLambda    = "retrieval.mmr_lambda"

	keyCachePolicy     = "cache.policy"
	keyCacheMaxEntries = "cache.max_entries"
	keyCacheMaxBytes   = "cache.max_bytes"
	keyCacheTTL        = "cache.ttl"

	keyChunkSize     = "chunking.chunk_size"
	keyChunkOverlap  = "chunking.chunk_overlap"
	keyChunkStrategy = "chunking.strategy"
	keyChunkMinLen   = "chunking.min_chunk_length"

	keyVectorProvider   = "vector_store.provider"
	keyVectorURL        = "vector_store.url"
	keyVectorCollection = "vector_store.collection"
	keyVectorDims       = "vector_store.dimensions"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getAIProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		Relevance: domain.RelevanceSettings{
			Provider: s.getAIProvider(keyRelevanceProvider, defaults.Relevance.Provider),
			Model:    s.getString(keyRelevanceModel, defaults.Relevance.Model),
			BaseURL:  s.configStore.GetString(keyRelevanceBaseURL),
			APIKey:   s.configStore.GetString(keyRelevanceAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                 s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			SimilarityThreshold:  s.getFloat(keyRetrievalThreshold, defaults.Retrieval.SimilarityThreshold),
			Strategy:             s.getStrategy(defaults.Retrieval.Strategy),
			RerankCandidateCount: s.getInt(keyRetrievalPool, defaults.Retrieval.RerankCandidateCount),
			MMRLambda:            s.getFloat(keyRetrievalLambda, defaults.Retrieval.MMRLambda),
		},
		Cache: domain.CacheSettings{
			Policy:     s.getEvictionPolicy(defaults.Cache.Policy),
			MaxEntries: s.getInt(keyCacheMaxEntries, defaults.Cache.MaxEntries),
			MaxBytes:   int64(s.getInt(keyCacheMaxBytes, int(defaults.Cache.MaxBytes))),
			TTL:        s.getDuration(keyCacheTTL, defaults.Cache.TTL),
		},
		Chunking: domain.ChunkingSettings{
			ChunkSize:      s.getInt(keyChunkSize, defaults.Chunking.ChunkSize),
			ChunkOverlap:   s.getInt(keyChunkOverlap, defaults.Chunking.ChunkOverlap),
			Strategy:       s.getChunkStrategy(defaults.Chunking.Strategy),
			MinChunkLength: s.getInt(keyChunkMinLen, defaults.Chunking.MinChunkLength),
		},
		VectorStore: domain.VectorStoreSettings{
			Provider:   s.getVectorProvider(defaults.VectorStore.Provider),
			URL:        s.configStore.GetString(keyVectorURL),
			Collection: s.getString(keyVectorCollection, defaults.VectorStore.Collection),
			Dimensions: s.getInt(keyVectorDims, defaults.VectorStore.Dimensions),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	pairs := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyRelevanceProvider, settings.Relevance.Provider.String()},
		{keyRelevanceModel, settings.Relevance.Model},
		{keyRelevanceBaseURL, settings.Relevance.BaseURL},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalThreshold, settings.Retrieval.SimilarityThreshold},
		{keyRetrievalStrategy, settings.Retrieval.Strategy.String()},
		{keyRetrievalPool, settings.Retrieval.RerankCandidateCount},
		{keyRetrievalLambda, settings.Retrieval.MMRLambda},
		{keyCachePolicy, settings.Cache.Policy.String()},
		{keyCacheMaxEntries, settings.Cache.MaxEntries},
		{keyCacheMaxBytes, settings.Cache.MaxBytes},
		{keyCacheTTL, settings.Cache.TTL.String()},
		{keyChunkSize, settings.Chunking.ChunkSize},
		{keyChunkOverlap, settings.Chunking.ChunkOverlap},
		{keyChunkStrategy, settings.Chunking.Strategy.String()},
		{keyChunkMinLen, settings.Chunking.MinChunkLength},
		{keyVectorProvider, settings.VectorStore.Provider.String()},
		{keyVectorURL, settings.VectorStore.URL},
		{keyVectorCollection, settings.VectorStore.Collection},
		{keyVectorDims, settings.VectorStore.Dimensions},
	}

	for _, pair := range pairs {
		if err := s.configStore.Set(pair.key, pair.value); err != nil {
			return fmt.Errorf("save %s: %w", pair.key, err)
		}
	}

	// API keys are only written when set, so a blank form never wipes a
	// configured key.
	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save embedding api_key: %w", err)
		}
	}
	if settings.Relevance.APIKey != "" {
		if err := s.configStore.Set(keyRelevanceAPIKey, settings.Relevance.APIKey); err != nil {
			return fmt.Errorf("save relevance api_key: %w", err)
		}
	}

	return nil
}

func (s *SettingsService) getString(key, fallback string) string {
	if value := s.configStore.GetString(key); value != "" {
		return value
	}
	return fallback
}

func (s *SettingsService) getInt(key string, fallback int) int {
	if value := s.configStore.GetInt(key); value != 0 {
		return value
	}
	return fallback
}

func (s *SettingsService) getFloat(key string, fallback float64) float64 {
	if value := s.configStore.GetFloat(key); value != 0 {
		return value
	}
	return fallback
}

func (s *SettingsService) getDuration(key string, fallback time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return fallback
	}
	d, err := time.ParseDuration(str)
	if err != nil {
		return fallback
	}
	return d
}

func (s *SettingsService) getAIProvider(key string, fallback domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if provider.IsValid() {
		return provider
	}
	return fallback
}

func (s *SettingsService) getStrategy(fallback domain.RetrievalStrategy) domain.RetrievalStrategy {
	strategy := domain.RetrievalStrategy(s.configStore.GetString(keyRetrievalStrategy))
	if strategy.IsValid() {
		return strategy
	}
	return fallback
}

func (s *SettingsService) getEvictionPolicy(fallback domain.EvictionPolicy) domain.EvictionPolicy {
	policy := domain.EvictionPolicy(s.configStore.GetString(keyCachePolicy))
	if policy.IsValid() {
		return policy
	}
	return fallback
}

func (s *SettingsService) getChunkStrategy(fallback domain.ChunkStrategy) domain.ChunkStrategy {
	strategy := domain.ChunkStrategy(s.configStore.GetString(keyChunkStrategy))
	if strategy.IsValid() {
		return strategy
	}
	return fallback
}

func (s *SettingsService) getVectorProvider(fallback domain.VectorStoreProvider) domain.VectorStoreProvider {
	provider := domain.VectorStoreProvider(s.configStore.GetString(keyVectorProvider))
	if provider.IsValid() {
		return provider
	}
	return fallback
}
