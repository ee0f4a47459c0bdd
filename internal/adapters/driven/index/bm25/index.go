// Package bm25 provides an in-memory lexical index over the chunk corpus.
//
// The index is a derived structure rebuilt from the vector store's
// authoritative corpus. The indexing pipeline calls Invalidate after a
// corpus change; the next query rebuilds under the writer lock, so many
// readers can query concurrently but never during a rebuild.
package bm25

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.SparseIndex = (*Index)(nil)

// BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75
)

// indexedChunk is one corpus entry with its token statistics.
type indexedChunk struct {
	record    driven.VectorRecord
	termFreqs map[string]int
	length    int
}

// Index is a BM25 index over the chunk corpus.
type Index struct {
	mu     sync.RWMutex
	corpus driven.VectorStore

	chunks    []indexedChunk
	docFreqs  map[string]int
	avgLength float64
	stale     bool
}

// New creates an index that rebuilds itself from the given corpus.
// The index starts stale and loads lazily on first query.
func New(corpus driven.VectorStore) *Index {
	return &Index{
		corpus:   corpus,
		docFreqs: make(map[string]int),
		stale:    true,
	}
}

// Invalidate marks the index stale after a corpus change.
func (idx *Index) Invalidate() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stale = true
}

// Rebuild reconstructs the index from the authoritative corpus.
// It holds the writer lock for the duration, waiting for readers to drain.
func (idx *Index) Rebuild(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.rebuildLocked(ctx)
}

func (idx *Index) rebuildLocked(ctx context.Context) error {
	records, err := idx.corpus.Scan(ctx, 0)
	if err != nil {
		return fmt.Errorf("scanning corpus: %w", err)
	}

	chunks := make([]indexedChunk, 0, len(records))
	docFreqs := make(map[string]int)
	totalLength := 0

	for _, record := range records {
		tokens := Tokenize(record.Text)
		freqs := make(map[string]int, len(tokens))
		for _, token := range tokens {
			freqs[token]++
		}
		for token := range freqs {
			docFreqs[token]++
		}
		chunks = append(chunks, indexedChunk{
			record:    record,
			termFreqs: freqs,
			length:    len(tokens),
		})
		totalLength += len(tokens)
	}

	idx.chunks = chunks
	idx.docFreqs = docFreqs
	idx.avgLength = 0
	if len(chunks) > 0 {
		idx.avgLength = float64(totalLength) / float64(len(chunks))
	}
	idx.stale = false

	logger.Debug("BM25 index rebuilt: %d chunks, %d terms", len(chunks), len(docFreqs))
	return nil
}

// Query returns up to topK candidates ranked by BM25, min-max normalised
// to [0,1] across the returned window. An empty corpus or a query with no
// matching tokens returns an empty list without error.
func (idx *Index) Query(ctx context.Context, query string, topK int) ([]domain.RetrievalCandidate, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("bm25 query: %w: top_k must be positive", domain.ErrInvalidInput)
	}

	if err := idx.ensureFresh(ctx); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	tokens := Tokenize(query)
	if len(tokens) == 0 || len(idx.chunks) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	type scored struct {
		chunk *indexedChunk
		score float64
	}

	n := float64(len(idx.chunks))
	var hits []scored
	for i := range idx.chunks {
		chunk := &idx.chunks[i]
		score := 0.0
		for _, token := range tokens {
			tf := float64(chunk.termFreqs[token])
			if tf == 0 {
				continue
			}
			df := float64(idx.docFreqs[token])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := k1 * (1 - b + b*float64(chunk.length)/idx.avgLength)
			score += idf * tf * (k1 + 1) / (tf + norm)
		}
		if score > 0 {
			hits = append(hits, scored{chunk: chunk, score: score})
		}
	}

	if len(hits) == 0 {
		return []domain.RetrievalCandidate{}, nil
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].chunk.record.ID < hits[j].chunk.record.ID
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}

	// Min-max normalise across the returned window only, so sparse scores
	// are comparable with dense cosine scores for fusion.
	minScore := hits[len(hits)-1].score
	maxScore := hits[0].score
	spread := maxScore - minScore

	candidates := make([]domain.RetrievalCandidate, len(hits))
	for i, hit := range hits {
		score := 1.0
		if spread > 0 {
			score = (hit.score - minScore) / spread
		}
		record := hit.chunk.record
		candidates[i] = domain.RetrievalCandidate{
			RecordID:        record.ID,
			Text:            record.Text,
			SimilarityScore: score,
			DocumentID:      record.DocumentID,
			DocumentName:    record.DocumentName,
			ChunkIndex:      record.ChunkIndex,
			PageNumber:      record.PageNumber,
		}
	}

	return candidates, nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// ensureFresh rebuilds a stale index before serving a query.
func (idx *Index) ensureFresh(ctx context.Context) error {
	idx.mu.RLock()
	stale := idx.stale
	idx.mu.RUnlock()
	if !stale {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.stale {
		// Another writer rebuilt while we waited.
		return nil
	}
	return idx.rebuildLocked(ctx)
}

// Tokenize lowercases the text and splits on non-alphanumeric runs,
// dropping empty tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
