package domain

// RetrievalCandidate is a single ranked retrieval result.
// Candidates are produced fresh per query and never persisted; the
// ordering of a result list is the contract, not candidate identity.
type RetrievalCandidate struct {
	// RecordID is the stable vector-store record id for the chunk.
	// Fusion keys on it when merging ranked lists.
	RecordID string

	// Text is the chunk text.
	Text string

	// SimilarityScore is the normalised relevance score in [0,1].
	// Its meaning depends on the stage that produced it (cosine, BM25
	// window-normalised, RRF-fused, reranked or MMR).
	SimilarityScore float64

	// DocumentID identifies the source document.
	DocumentID string

	// DocumentName is the human-readable document name.
	DocumentName string

	// ChunkIndex is the chunk ordinal within the document.
	ChunkIndex int

	// PageNumber is the source page of the chunk.
	PageNumber int
}

// RetrievalStrategy selects which index (or combination) serves a query.
type RetrievalStrategy string

// Available retrieval strategies.
const (
	// StrategyDense retrieves by embedding similarity from the vector store.
	StrategyDense RetrievalStrategy = "dense"

	// StrategySparse retrieves lexically from the BM25 index.
	StrategySparse RetrievalStrategy = "sparse"

	// StrategyHybrid fuses dense and sparse lists with reciprocal rank fusion.
	StrategyHybrid RetrievalStrategy = "hybrid"

	// StrategyBm25 is an alias clients use for sparse retrieval.
	StrategyBm25 RetrievalStrategy = "bm25"
)

// IsValid returns true if the retrieval strategy is recognised.
func (s RetrievalStrategy) IsValid() bool {
	switch s {
	case StrategyDense, StrategySparse, StrategyHybrid, StrategyBm25:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s RetrievalStrategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s RetrievalStrategy) Description() string {
	switch s {
	case StrategyDense:
		return "Dense (vector similarity)"
	case StrategySparse, StrategyBm25:
		return "Sparse (BM25 keyword)"
	case StrategyHybrid:
		return "Hybrid (dense + sparse, RRF fused)"
	default:
		return "Unknown"
	}
}

// RetrieveOptions controls a single retrieval call.
type RetrieveOptions struct {
	// TopK is the maximum number of candidates to return.
	TopK int

	// SimilarityThreshold filters the final list when > 0; no candidate
	// below the threshold is returned.
	SimilarityThreshold float64

	// Strategy selects the index combination. Unknown values fall back to
	// dense when a dense branch is configured.
	Strategy RetrievalStrategy

	// Rerank enables cross-encoder reranking of a widened candidate pool.
	Rerank bool

	// Diversify enables MMR re-ordering of the already-fetched pool.
	Diversify bool

	// MMRLambda trades relevance (1.0) against diversity (0.0).
	MMRLambda float64
}
