package domain

import "time"

// AIProvider identifies an AI service provider for embeddings or relevance
// scoring.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// EmbeddingSettings configures the embedding service adapter.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true when enough fields are set to build a service.
func (s *EmbeddingSettings) IsConfigured() bool {
	if s == nil || !s.Provider.IsValid() {
		return false
	}
	if s.Provider == AIProviderOpenAI {
		return s.APIKey != ""
	}
	return true
}

// EmbeddingDimensions maps known embedding models to their vector size.
// Models not listed fall back to the adapter's default.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// RelevanceSettings configures the cross-encoder relevance adapter.
type RelevanceSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string
}

// IsConfigured returns true when enough fields are set to build a scorer.
func (s *RelevanceSettings) IsConfigured() bool {
	if s == nil || !s.Provider.IsValid() {
		return false
	}
	if s.Provider == AIProviderOpenAI {
		return s.APIKey != ""
	}
	return true
}

// RetrievalSettings holds tunables for the retrieval orchestrator.
type RetrievalSettings struct {
	// TopK is the default result count.
	TopK int

	// SimilarityThreshold filters final results when > 0.
	SimilarityThreshold float64

	// Strategy is the default retrieval strategy.
	Strategy RetrievalStrategy

	// RerankCandidateCount is the pool size fetched when reranking.
	RerankCandidateCount int

	// MMRLambda is the default relevance/diversity trade-off.
	MMRLambda float64
}

// CacheSettings holds tunables for the embedding cache.
type CacheSettings struct {
	// Policy selects the eviction policy.
	Policy EvictionPolicy

	// MaxEntries bounds the entry count (LRU policy).
	MaxEntries int

	// MaxBytes bounds the total vector bytes (LRU and Size policies).
	MaxBytes int64

	// TTL bounds entry age (TTL policy).
	TTL time.Duration
}

// ChunkingSettings holds tunables for the chunker.
type ChunkingSettings struct {
	ChunkSize      int
	ChunkOverlap   int
	Strategy       ChunkStrategy
	MinChunkLength int
}

// VectorStoreProvider identifies a vector store backend.
type VectorStoreProvider string

// Available vector store providers.
const (
	// VectorStoreMemory is the in-process brute-force store.
	VectorStoreMemory VectorStoreProvider = "memory"

	// VectorStoreQdrant is a Qdrant server reached over HTTP.
	VectorStoreQdrant VectorStoreProvider = "qdrant"
)

// IsValid returns true if the vector store provider is recognised.
func (p VectorStoreProvider) IsValid() bool {
	switch p {
	case VectorStoreMemory, VectorStoreQdrant:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p VectorStoreProvider) String() string {
	return string(p)
}

// VectorStoreSettings configures the vector store adapter.
type VectorStoreSettings struct {
	Provider   VectorStoreProvider
	URL        string
	Collection string
	Dimensions int
}

// AppSettings aggregates all tunable application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	Relevance   RelevanceSettings
	Retrieval   RetrievalSettings
	Cache       CacheSettings
	Chunking    ChunkingSettings
	VectorStore VectorStoreSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() *AppSettings {
	return &AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
		},
		Relevance: RelevanceSettings{
			Provider: AIProviderOllama,
		},
		Retrieval: RetrievalSettings{
			TopK:                 10,
			Strategy:             StrategyHybrid,
			RerankCandidateCount: 100,
			MMRLambda:            0.7,
		},
		Cache: CacheSettings{
			Policy:     EvictLRU,
			MaxEntries: 4096,
			MaxBytes:   256 << 20,
			TTL:        24 * time.Hour,
		},
		Chunking: ChunkingSettings{
			ChunkSize:      1000,
			ChunkOverlap:   200,
			Strategy:       ChunkStrategyRecursive,
			MinChunkLength: 20,
		},
		VectorStore: VectorStoreSettings{
			Provider:   VectorStoreMemory,
			Collection: "quarry",
			Dimensions: 768,
		},
	}
}
