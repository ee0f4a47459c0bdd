package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/ports/driving"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultRerankCandidateCount is the candidate pool fetched before
// reranking narrows it down to top_k.
const DefaultRerankCandidateCount = 100

// DefaultMMRLambda is the default relevance/diversity trade-off.
const DefaultMMRLambda = 0.7

// RetrievalService orchestrates strategy selection, optional reranking,
// optional diversification and threshold filtering.
//
// Each retrieval call is self-contained and idempotent: the same query
// against an unchanged index and cache returns the same ranked list.
type RetrievalService struct {
	vectorStore driven.VectorStore
	embedder    driven.EmbeddingService
	sparseIndex driven.SparseIndex
	reranker    *Reranker

	rerankCandidateCount int
}

// NewRetrievalService creates a retrieval service. The embedder,
// vector store, sparse index and relevance model are all optional;
// strategies whose collaborators are missing degrade per the error
// handling rules rather than failing construction.
func NewRetrievalService(
	vectorStore driven.VectorStore,
	embedder driven.EmbeddingService,
	sparseIndex driven.SparseIndex,
	relevance driven.RelevanceModel,
) *RetrievalService {
	s := &RetrievalService{
		vectorStore:          vectorStore,
		embedder:             embedder,
		sparseIndex:          sparseIndex,
		rerankCandidateCount: DefaultRerankCandidateCount,
	}
	if relevance != nil {
		s.reranker = NewReranker(relevance)
	}
	return s
}

// SetRerankCandidateCount overrides the pre-rerank pool size.
func (s *RetrievalService) SetRerankCandidateCount(n int) {
	if n > 0 {
		s.rerankCandidateCount = n
	}
}

// Retrieve returns a bounded, threshold-filtered ranked candidate list.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts domain.RetrieveOptions,
) ([]domain.RetrievalCandidate, error) {
	logger.Section("Retrieval")

	// Input errors are rejected before any I/O.
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("retrieve: %w: empty query", domain.ErrInvalidInput)
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("retrieve: %w: top_k must be positive", domain.ErrInvalidInput)
	}

	strategy := s.effectiveStrategy(opts.Strategy)
	logger.Info("Strategy: %s", strategy.Description())

	rerank := opts.Rerank && s.reranker != nil
	if opts.Rerank && s.reranker == nil {
		logger.Warn("Reranking requested but no relevance model configured")
	}

	// Reranking and diversification select from a wider pool than the
	// final top_k.
	fetchK := opts.TopK
	if (rerank || opts.Diversify) && s.rerankCandidateCount > fetchK {
		fetchK = s.rerankCandidateCount
	}

	var candidates []domain.RetrievalCandidate
	switch strategy {
	case domain.StrategyDense:
		candidates = s.denseSearch(ctx, query, fetchK)
	case domain.StrategySparse, domain.StrategyBm25:
		candidates = s.sparseSearch(ctx, query, fetchK)
	case domain.StrategyHybrid:
		candidates = s.hybridSearch(ctx, query, fetchK)
	default:
		// effectiveStrategy found no configured branch at all.
		return []domain.RetrievalCandidate{}, nil
	}
	logger.Debug("Fetched %d candidates", len(candidates))

	if rerank {
		// With diversification following, keep the whole pool so MMR
		// still has alternatives to choose from.
		rerankK := opts.TopK
		if opts.Diversify {
			rerankK = fetchK
		}
		reranked, err := s.reranker.Rerank(ctx, query, candidates, rerankK)
		if err != nil {
			logger.Warn("Rerank failed: %v (keeping retrieval order)", err)
		} else {
			candidates = reranked
		}
	}

	if opts.Diversify {
		candidates = s.diversify(ctx, query, candidates, opts)
	}

	if opts.SimilarityThreshold > 0 {
		candidates = filterByThreshold(candidates, opts.SimilarityThreshold)
		logger.Debug("After threshold %.2f: %d candidates", opts.SimilarityThreshold, len(candidates))
	}

	if len(candidates) > opts.TopK {
		candidates = candidates[:opts.TopK]
	}

	logger.Info("Final results: %d", len(candidates))
	return candidates, nil
}

// effectiveStrategy resolves the requested strategy against the
// configured collaborators. An unknown strategy falls back to dense when
// a dense branch exists; the zero value means nothing is configured.
func (s *RetrievalService) effectiveStrategy(requested domain.RetrievalStrategy) domain.RetrievalStrategy {
	canDense := s.vectorStore != nil && s.embedder != nil
	canSparse := s.sparseIndex != nil

	if requested.IsValid() {
		switch requested {
		case domain.StrategyDense:
			if canDense {
				return domain.StrategyDense
			}
		case domain.StrategySparse, domain.StrategyBm25:
			if canSparse {
				return domain.StrategySparse
			}
		case domain.StrategyHybrid:
			if canDense && canSparse {
				return domain.StrategyHybrid
			}
			// Degrade to whichever single branch exists.
			if canDense {
				logger.Warn("Hybrid requested but sparse index unavailable, using dense only")
				return domain.StrategyDense
			}
			if canSparse {
				logger.Warn("Hybrid requested but dense retrieval unavailable, using sparse only")
				return domain.StrategySparse
			}
		}
		return ""
	}

	logger.Warn("Unknown strategy %q, falling back to dense", requested)
	if canDense {
		return domain.StrategyDense
	}
	return ""
}

// denseSearch embeds the query and asks the vector store for neighbours.
// Collaborator failures degrade to an empty branch result.
func (s *RetrievalService) denseSearch(ctx context.Context, query string, k int) []domain.RetrievalCandidate {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Dense search: query embedding failed: %v", err)
		return nil
	}

	hits, err := s.vectorStore.Query(ctx, vector, k)
	if err != nil {
		logger.Warn("Dense search: vector store query failed: %v", err)
		return nil
	}

	candidates := make([]domain.RetrievalCandidate, len(hits))
	for i, hit := range hits {
		candidates[i] = hit.Candidate()
	}
	return candidates
}

// sparseSearch queries the BM25 index.
func (s *RetrievalService) sparseSearch(ctx context.Context, query string, k int) []domain.RetrievalCandidate {
	candidates, err := s.sparseIndex.Query(ctx, query, k)
	if err != nil {
		logger.Warn("Sparse search failed: %v", err)
		return nil
	}
	return candidates
}

// hybridSearch runs dense and sparse in parallel and fuses the lists with
// reciprocal rank fusion. Each branch fetches 2*k so fusion has depth to
// work with; the fused list truncates back to k. A failed branch degrades
// to the surviving one.
func (s *RetrievalService) hybridSearch(ctx context.Context, query string, k int) []domain.RetrievalCandidate {
	var dense, sparse []domain.RetrievalCandidate

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dense = s.denseSearch(ctx, query, 2*k)
	}()
	go func() {
		defer wg.Done()
		sparse = s.sparseSearch(ctx, query, 2*k)
	}()
	wg.Wait()

	if len(dense) == 0 && len(sparse) == 0 {
		return nil
	}
	if len(dense) == 0 {
		logger.Debug("Hybrid: dense branch empty, using sparse results")
		return truncate(sparse, k)
	}
	if len(sparse) == 0 {
		logger.Debug("Hybrid: sparse branch empty, using dense results")
		return truncate(dense, k)
	}

	logger.Debug("Hybrid: fusing %d dense + %d sparse results", len(dense), len(sparse))
	return truncate(reciprocalRankFusion(dense, sparse), k)
}

// diversify applies MMR over the already-fetched pool. It never
// re-queries an index.
func (s *RetrievalService) diversify(
	ctx context.Context, query string, candidates []domain.RetrievalCandidate, opts domain.RetrieveOptions,
) []domain.RetrievalCandidate {
	if s.embedder == nil {
		logger.Warn("Diversification requested but no embedding service configured")
		return candidates
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Diversification: query embedding failed: %v", err)
		return candidates
	}

	lambda := opts.MMRLambda
	if lambda <= 0 || lambda > 1 {
		lambda = DefaultMMRLambda
	}

	return maximalMarginalRelevance(ctx, candidates, queryVector, s.embedder.Embed, lambda, opts.TopK)
}

// filterByThreshold drops candidates scoring below the threshold.
func filterByThreshold(candidates []domain.RetrievalCandidate, threshold float64) []domain.RetrievalCandidate {
	filtered := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.SimilarityScore >= threshold {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// truncate bounds a list to k entries.
func truncate(candidates []domain.RetrievalCandidate, k int) []domain.RetrievalCandidate {
	if len(candidates) > k {
		return candidates[:k]
	}
	return candidates
}
