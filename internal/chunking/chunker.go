// Package chunking splits page-ordered document text into retrievable
// chunks with stable metadata.
//
// Chunks never cross page boundaries, and every page - even an empty
// one - yields at least one chunk so page numbering stays dense and 1:1
// with the source document. Chunk IDs are deterministic: reprocessing a
// document with the same parameters reproduces identical IDs.
package chunking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

// Default configuration values.
const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the default number of overlapping characters.
	DefaultChunkOverlap = 200

	// DefaultMinChunkLength is the cleaned length below which a chunk is
	// marked empty.
	DefaultMinChunkLength = 20

	// DefaultMinAlnumRatio is the alphanumeric ratio below which a chunk
	// is marked empty.
	DefaultMinAlnumRatio = 0.2
)

// recursiveSeparators are tried in priority order: paragraph break, line
// break, sentence boundary, word boundary.
var recursiveSeparators = []string{"\n\n", "\n", ". ", " "}

// sentencePattern matches one sentence including its terminator.
var sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+\s*)`)

// Chunker splits page-ordered documents into chunks.
type Chunker struct {
	chunkSize      int
	overlap        int
	strategy       domain.ChunkStrategy
	minChunkLength int
	minAlnumRatio  float64
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithStrategy sets the splitting strategy.
func WithStrategy(strategy domain.ChunkStrategy) Option {
	return func(c *Chunker) {
		if strategy.IsValid() {
			c.strategy = strategy
		}
	}
}

// WithMinChunkLength sets the cleaned length below which a chunk is
// marked empty.
func WithMinChunkLength(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minChunkLength = n
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize:      DefaultChunkSize,
		overlap:        DefaultChunkOverlap,
		strategy:       domain.ChunkStrategyRecursive,
		minChunkLength: DefaultMinChunkLength,
		minAlnumRatio:  DefaultMinAlnumRatio,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// ChunkPages splits the pages of a document into chunks.
// Pages must arrive in document order; each chunk is cut from exactly one
// page. The running chunk index is monotonically increasing across pages.
func (c *Chunker) ChunkPages(documentID, documentName string, pages []domain.PageText) ([]domain.Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("chunk pages: %w: empty document id", domain.ErrInvalidInput)
	}

	stem := documentStem(documentName)
	chunks := make([]domain.Chunk, 0, len(pages))
	index := 0

	for _, page := range pages {
		pieces := c.splitPage(page.Text)
		if len(pieces) == 0 {
			// Retain an empty chunk so page coverage stays complete.
			pieces = []string{""}
		}

		for _, piece := range pieces {
			cleaned := cleanText(piece)
			chunk := domain.Chunk{
				ID:           chunkID(stem, index),
				Index:        index,
				DocumentID:   documentID,
				DocumentName: documentName,
				PageNumber:   page.PageNumber,
				PageLabel:    page.PageLabel,
				Text:         cleaned,
				ContentHash:  hashText(cleaned),
				IsEmpty:      c.isEmpty(cleaned),
			}
			chunks = append(chunks, chunk)
			index++
		}
	}

	return chunks, nil
}

// splitPage applies the configured strategy to one page of text.
func (c *Chunker) splitPage(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	switch c.strategy {
	case domain.ChunkStrategySentence:
		return c.splitSentences(text)
	default:
		return c.splitRecursive(text, recursiveSeparators)
	}
}

// splitRecursive tries separators in priority order, splitting only when
// a candidate exceeds the chunk size and merging adjacent fragments back
// up to the limit before re-splitting with the next separator. When no
// separator keeps a piece under the limit it falls back to fixed-width
// slicing.
func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return c.sliceFixed(text)
	}

	sep := separators[0]
	parts := strings.Split(text, sep)
	if len(parts) == 1 {
		// Separator absent; try the next one.
		return c.splitRecursive(text, separators[1:])
	}

	// Re-attach the separator so merged fragments read naturally.
	for i := 0; i < len(parts)-1; i++ {
		parts[i] += sep
	}

	var result []string
	for _, merged := range c.mergeFragments(parts) {
		if len(merged) <= c.chunkSize {
			result = append(result, merged)
			continue
		}
		result = append(result, c.splitRecursive(merged, separators[1:])...)
	}
	return result
}

// mergeFragments greedily packs adjacent fragments up to the chunk size,
// carrying trailing fragments totalling at most the overlap into the next
// chunk.
func (c *Chunker) mergeFragments(parts []string) []string {
	var merged []string
	var window []string
	windowLen := 0

	flush := func() {
		if windowLen == 0 {
			return
		}
		merged = append(merged, strings.Join(window, ""))

		// Keep the overlap tail as the seed of the next window.
		var tail []string
		tailLen := 0
		for i := len(window) - 1; i >= 0; i-- {
			if tailLen+len(window[i]) > c.overlap {
				break
			}
			tail = append([]string{window[i]}, tail...)
			tailLen += len(window[i])
		}
		window = tail
		windowLen = tailLen
	}

	for _, part := range parts {
		if windowLen > 0 && windowLen+len(part) > c.chunkSize {
			flush()
		}
		window = append(window, part)
		windowLen += len(part)
	}
	if windowLen > 0 {
		merged = append(merged, strings.Join(window, ""))
	}

	// Drop pure-overlap leftovers already contained in the previous chunk.
	out := make([]string, 0, len(merged))
	for i, m := range merged {
		if i > 0 && len(m) <= c.overlap && strings.HasSuffix(merged[i-1], m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// splitSentences splits at sentence boundaries with a sliding overlap
// window measured in characters.
func (c *Chunker) splitSentences(text string) []string {
	sentences := sentencePattern.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > c.chunkSize {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()

			// Seed the next chunk with the trailing overlap window.
			if c.overlap > 0 && len(chunk) > c.overlap {
				current.WriteString(chunk[len(chunk)-c.overlap:])
			}
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// sliceFixed is the last-resort raw slicer with stride chunkSize-overlap.
func (c *Chunker) sliceFixed(text string) []string {
	stride := c.chunkSize - c.overlap
	if stride <= 0 {
		stride = c.chunkSize
	}

	var slices []string
	for start := 0; start < len(text); start += stride {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		slices = append(slices, text[start:end])
		if end == len(text) {
			break
		}
	}
	return slices
}

// isEmpty reports whether a cleaned chunk should be retained but skipped
// at embedding time.
func (c *Chunker) isEmpty(cleaned string) bool {
	if len(cleaned) < c.minChunkLength {
		return true
	}
	return alnumRatio(cleaned) < c.minAlnumRatio
}

// chunkID derives the deterministic chunk identifier.
func chunkID(stem string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", stem, index)))
	return hex.EncodeToString(sum[:])
}

// hashText returns the hex SHA-256 of the cleaned chunk text.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// documentStem strips directory and extension from a document name.
func documentStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
