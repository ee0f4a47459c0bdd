package driven

import "context"

// RelevanceModel scores (query, passage) pairs together, cross-encoder
// style. This is an optional service - when nil, reranking is disabled.
type RelevanceModel interface {
	// Score returns a raw relevance score for the pair. Scores are only
	// comparable within a single query; the reranker min-max normalises
	// them across the candidate shortlist.
	Score(ctx context.Context, query, text string) (float64, error)

	// ModelName returns the name of the relevance model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
