package services

import (
	"sort"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// rrfK is the reciprocal rank fusion constant. It dampens the dominance
// of top ranks so deep-list agreement still counts.
const rrfK = 60

// reciprocalRankFusion merges ranked candidate lists keyed by record id.
//
// Each list contributes 1/(k+rank+1) per candidate; candidates absent
// from a list contribute nothing for it. Fused scores are min-max
// normalised to [0,1] over the fused set. When every fused score is equal
// (a single-chunk corpus, or two identical lists) all candidates score
// 1.0 rather than the degenerate 0.0 min-max would produce, so downstream
// threshold filters keep legitimate results.
//
// Ties in the fused score break by the candidate's best original
// similarity score (descending), then by record id (ascending), which
// keeps the ordering deterministic across runs.
func reciprocalRankFusion(lists ...[]domain.RetrievalCandidate) []domain.RetrievalCandidate {
	scores := make(map[string]float64)
	best := make(map[string]domain.RetrievalCandidate)

	for _, list := range lists {
		for rank, candidate := range list {
			scores[candidate.RecordID] += 1.0 / float64(rrfK+rank+1)
			if existing, ok := best[candidate.RecordID]; !ok || candidate.SimilarityScore > existing.SimilarityScore {
				best[candidate.RecordID] = candidate
			}
		}
	}

	fused := make([]domain.RetrievalCandidate, 0, len(scores))
	for id := range scores {
		fused = append(fused, best[id])
	}

	sort.Slice(fused, func(i, j int) bool {
		si, sj := scores[fused[i].RecordID], scores[fused[j].RecordID]
		if si != sj {
			return si > sj
		}
		if fused[i].SimilarityScore != fused[j].SimilarityScore {
			return fused[i].SimilarityScore > fused[j].SimilarityScore
		}
		return fused[i].RecordID < fused[j].RecordID
	})

	if len(fused) == 0 {
		return fused
	}

	minScore := scores[fused[len(fused)-1].RecordID]
	maxScore := scores[fused[0].RecordID]
	spread := maxScore - minScore

	for i := range fused {
		if spread > 0 {
			fused[i].SimilarityScore = (scores[fused[i].RecordID] - minScore) / spread
		} else {
			fused[i].SimilarityScore = 1.0
		}
	}

	return fused
}
