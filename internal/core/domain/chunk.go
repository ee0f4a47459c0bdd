package domain

// PageText is a single page of extracted document text.
// Pages arrive in order from the document-parsing subsystem with stable
// page numbers; Quarry never re-derives page boundaries.
type PageText struct {
	// PageNumber is the 1-based page number from the source document.
	PageNumber int

	// PageLabel is the printed label for the page ("iv", "A-2"), if any.
	PageLabel string

	// Text is the plain extracted text of the page.
	Text string
}

// Chunk represents a retrievable unit within a document.
// Chunks are created by the chunking pipeline and immutable thereafter.
// A chunk never spans two pages.
type Chunk struct {
	// ID is the deterministic identifier derived from the document stem
	// and the running chunk index. Reprocessing the same document with the
	// same parameters reproduces identical IDs.
	ID string

	// Index is the ordinal position within the document. It is unique and
	// monotonically increasing per document.
	Index int

	// DocumentID links to the parent document.
	DocumentID string

	// DocumentName is the human-readable document name.
	DocumentName string

	// PageNumber is the source page this chunk was cut from.
	// Every chunk carries a valid page number so page coverage is complete.
	PageNumber int

	// PageLabel is the printed page label, if the source provides one.
	PageLabel string

	// Text is the cleaned chunk text.
	Text string

	// ContentHash is the SHA-256 of the cleaned text, used as the
	// embedding-cache key component.
	ContentHash string

	// IsEmpty marks chunks retained only for page-count integrity.
	// Empty chunks are skipped at embedding time.
	IsEmpty bool

	// Metadata carries optional source-specific fields.
	Metadata map[string]string
}

// ChunkStrategy selects how document pages are split into chunks.
type ChunkStrategy string

// Available chunking strategies.
const (
	// ChunkStrategyRecursive tries separators in priority order (paragraph,
	// line, sentence, word) and falls back to fixed-width slicing.
	ChunkStrategyRecursive ChunkStrategy = "recursive"

	// ChunkStrategySentence splits at sentence boundaries with a sliding
	// character overlap window.
	ChunkStrategySentence ChunkStrategy = "sentence"
)

// IsValid returns true if the chunk strategy is recognised.
func (s ChunkStrategy) IsValid() bool {
	switch s {
	case ChunkStrategyRecursive, ChunkStrategySentence:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s ChunkStrategy) String() string {
	return string(s)
}
