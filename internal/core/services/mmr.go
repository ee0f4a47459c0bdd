package services

import (
	"context"
	"math"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/logger"
)

// EmbedFunc produces an embedding for one text. The production wiring
// passes the cache-backed embedder's Embed method.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// maximalMarginalRelevance re-orders candidates to trade relevance for
// diversity. It greedily picks the unselected candidate maximising
//
//	lambda*relevance(c) - (1-lambda)*maxSimilarity(c, selected)
//
// where relevance and similarity are cosine over embeddings. The first
// selection carries no diversity penalty. The MMR score replaces the
// candidate's similarity score, clipped to [0,1].
//
// Candidates whose embedding fails are skipped with a warning; a
// non-positive topK or empty input returns an empty list.
func maximalMarginalRelevance(
	ctx context.Context,
	candidates []domain.RetrievalCandidate,
	queryEmbedding []float32,
	embed EmbedFunc,
	lambda float64,
	topK int,
) []domain.RetrievalCandidate {
	if topK <= 0 || len(candidates) == 0 {
		return []domain.RetrievalCandidate{}
	}

	type embedded struct {
		candidate domain.RetrievalCandidate
		vector    []float32
		relevance float64
	}

	pool := make([]embedded, 0, len(candidates))
	for _, candidate := range candidates {
		vector, err := embed(ctx, candidate.Text)
		if err != nil {
			logger.Warn("MMR: embedding candidate %s failed: %v (skipping)", candidate.RecordID, err)
			continue
		}
		pool = append(pool, embedded{
			candidate: candidate,
			vector:    vector,
			relevance: cosineSimilarity(queryEmbedding, vector),
		})
	}
	if len(pool) == 0 {
		return []domain.RetrievalCandidate{}
	}

	selected := make([]embedded, 0, topK)
	remaining := pool

	for len(selected) < topK && len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, cand := range remaining {
			penalty := 0.0
			for _, chosen := range selected {
				if sim := cosineSimilarity(cand.vector, chosen.vector); sim > penalty {
					penalty = sim
				}
			}

			score := lambda * cand.relevance
			if len(selected) > 0 {
				score -= (1 - lambda) * penalty
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		chosen := remaining[bestIdx]
		chosen.candidate.SimilarityScore = clip01(bestScore)
		selected = append(selected, chosen)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	result := make([]domain.RetrievalCandidate, len(selected))
	for i, s := range selected {
		result[i] = s.candidate
	}
	return result
}

// cosineSimilarity computes raw cosine similarity in [-1,1].
// Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// clip01 clamps a score into [0,1].
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
