// Package domain defines the core business entities for Quarry.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A retrievable unit of document text with page provenance
//   - RetrievalCandidate: A ranked retrieval result for a query
//   - DocumentVersion: A tracked revision of an ingested document
//   - CacheEntry: A persisted embedding vector with access metadata
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
