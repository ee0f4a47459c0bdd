package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	// Input errors are rejected before any I/O and are never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoActiveVersion indicates a lifecycle operation targeted a document
	// with no Active version to transition.
	ErrNoActiveVersion = errors.New("no active version")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Dense and hybrid retrieval are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	// Dense retrieval is disabled without it.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrSparseIndexUnavailable indicates the sparse index is not configured.
	// Lexical (BM25) retrieval is disabled without it.
	ErrSparseIndexUnavailable = errors.New("sparse index unavailable")

	// ErrRelevanceUnavailable indicates the relevance model is not configured.
	// Reranking is disabled without it.
	ErrRelevanceUnavailable = errors.New("relevance model unavailable")
)
