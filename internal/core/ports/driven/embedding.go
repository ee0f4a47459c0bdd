package driven

import "context"

// EmbeddingService generates vector embeddings from text. It is an
// optional collaborator: when nil, dense and hybrid retrieval are
// disabled and the pipeline degrades to sparse-only scoring.
//
// Implementations include OpenAI (text-embedding-3-small/-large) and
// Ollama (nomic-embed-text, all-minilm).
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts, preserving input order.
	// Preferred over repeated Embed calls during ingestion.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size. It must match the
	// vector store collection configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping checks reachability with a lightweight request, without
	// running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
