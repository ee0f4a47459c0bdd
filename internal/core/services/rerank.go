package services

import (
	"context"
	"sort"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Reranker re-scores a candidate shortlist with a cross-encoder style
// relevance model.
type Reranker struct {
	model driven.RelevanceModel
}

// NewReranker creates a reranker over the given relevance model.
func NewReranker(model driven.RelevanceModel) *Reranker {
	return &Reranker{model: model}
}

// Rerank scores each (query, candidate) pair, min-max normalises the
// scores to [0,1] and returns the top topK by that score. An empty
// candidate list returns empty without invoking the model. Per-pair
// scoring failures degrade to a zero raw score with a warning rather
// than failing the whole list.
func (r *Reranker) Rerank(
	ctx context.Context, query string, candidates []domain.RetrievalCandidate, topK int,
) ([]domain.RetrievalCandidate, error) {
	if len(candidates) == 0 || topK <= 0 {
		return []domain.RetrievalCandidate{}, nil
	}
	if r.model == nil {
		return nil, domain.ErrRelevanceUnavailable
	}

	type scored struct {
		candidate domain.RetrievalCandidate
		raw       float64
	}

	scoredList := make([]scored, len(candidates))
	for i, candidate := range candidates {
		raw, err := r.model.Score(ctx, query, candidate.Text)
		if err != nil {
			logger.Warn("Rerank: scoring pair for %s failed: %v", candidate.RecordID, err)
			raw = 0
		}
		scoredList[i] = scored{candidate: candidate, raw: raw}
	}

	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].raw != scoredList[j].raw {
			return scoredList[i].raw > scoredList[j].raw
		}
		if scoredList[i].candidate.SimilarityScore != scoredList[j].candidate.SimilarityScore {
			return scoredList[i].candidate.SimilarityScore > scoredList[j].candidate.SimilarityScore
		}
		return scoredList[i].candidate.RecordID < scoredList[j].candidate.RecordID
	})

	if len(scoredList) > topK {
		scoredList = scoredList[:topK]
	}

	minRaw := scoredList[len(scoredList)-1].raw
	maxRaw := scoredList[0].raw
	spread := maxRaw - minRaw

	result := make([]domain.RetrievalCandidate, len(scoredList))
	for i, s := range scoredList {
		candidate := s.candidate
		if spread > 0 {
			candidate.SimilarityScore = (s.raw - minRaw) / spread
		} else {
			candidate.SimilarityScore = 1.0
		}
		result[i] = candidate
	}

	return result, nil
}
