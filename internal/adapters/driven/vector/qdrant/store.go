// Package qdrant provides a vector store backed by a Qdrant server over
// its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	// DefaultBaseURL is the default Qdrant REST endpoint.
	DefaultBaseURL = "http://localhost:6333"

	// DefaultCollection is the default collection name.
	DefaultCollection = "quarry"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// scanPageSize is the scroll page size for corpus rebuilds.
	scanPageSize = 256
)

// Config holds Qdrant store configuration.
type Config struct {
	// BaseURL is the Qdrant REST endpoint (default: http://localhost:6333).
	BaseURL string

	// APIKey authenticates requests when the server requires it.
	APIKey string

	// Collection is the collection name (default: quarry).
	Collection string

	// Dimensions is the embedding vector size, used when creating the
	// collection.
	Dimensions int

	// Timeout is the request timeout (default: 15s).
	Timeout time.Duration
}

// Store is a Qdrant-backed implementation of driven.VectorStore.
// Record identifiers are mapped to deterministic UUIDs because Qdrant
// only accepts UUID or integer point IDs; the original ID is kept in
// the payload.
type Store struct {
	client     *http.Client
	baseURL    string
	apiKey     string
	collection string
	dimensions int
}

// NewStore creates a Qdrant vector store with the given configuration.
func NewStore(cfg Config) *Store {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
}

// EnsureCollection creates the collection if it does not exist. Qdrant
// treats a PUT for an existing collection with the same schema as a
// success, so this is safe to call on every startup.
func (s *Store) EnsureCollection(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimensions,
			"distance": "Cosine",
		},
	}
	return s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s", s.collection), body, nil)
}

type pointPayload struct {
	RecordID     string `json:"record_id"`
	Text         string `json:"text"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	PageNumber   int    `json:"page_number"`
}

type point struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector,omitempty"`
	Payload pointPayload `json:"payload"`
}

// Upsert stores or replaces records.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, record := range records {
		points[i] = point{
			ID:     pointID(record.ID),
			Vector: record.Vector,
			Payload: pointPayload{
				RecordID:     record.ID,
				Text:         record.Text,
				DocumentID:   record.DocumentID,
				DocumentName: record.DocumentName,
				ChunkIndex:   record.ChunkIndex,
				PageNumber:   record.PageNumber,
			},
		}
	}

	body := map[string]any{"points": points}
	return s.doJSON(ctx, http.MethodPut,
		fmt.Sprintf("/collections/%s/points?wait=true", s.collection), body, nil)
}

// Query returns the k nearest records by cosine similarity.
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]driven.VectorHit, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/search", s.collection), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, driven.VectorHit{
			Record: recordFromPayload(r.Payload),
			// Qdrant cosine scores live in [-1,1]; map to [0,1] to match
			// the similarity contract of the port.
			Similarity: (r.Score + 1) / 2,
		})
	}
	return hits, nil
}

// DeleteByDocument removes all records belonging to a document.
func (s *Store) DeleteByDocument(ctx context.Context, documentName string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{
					"key":   "document_name",
					"match": map[string]any{"value": documentName},
				},
			},
		},
	}
	return s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection), body, nil)
}

// Scan streams up to limit records via the scroll API; limit <= 0 scans
// the whole collection.
func (s *Store) Scan(ctx context.Context, limit int) ([]driven.VectorRecord, error) {
	var records []driven.VectorRecord
	var offset any

	for {
		pageSize := scanPageSize
		if limit > 0 && limit-len(records) < pageSize {
			pageSize = limit - len(records)
		}
		if pageSize <= 0 {
			break
		}

		body := map[string]any{
			"limit":        pageSize,
			"with_payload": true,
			"with_vector":  true,
		}
		if offset != nil {
			body["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points []struct {
					Vector  []float32    `json:"vector"`
					Payload pointPayload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.doJSON(ctx, http.MethodPost,
			fmt.Sprintf("/collections/%s/points/scroll", s.collection), body, &resp); err != nil {
			return nil, err
		}

		for _, p := range resp.Result.Points {
			record := recordFromPayload(p.Payload)
			record.Vector = p.Vector
			records = append(records, record)
		}

		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	body := map[string]any{"exact": true}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost,
		fmt.Sprintf("/collections/%s/points/count", s.collection), body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close releases resources.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// doJSON sends a JSON request and decodes the response into out when
// out is non-nil.
func (s *Store) doJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s returned %s: %s", method, path, resp.Status, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// recordFromPayload rebuilds a record from its stored payload. The
// vector is absent unless the caller requested it.
func recordFromPayload(p pointPayload) driven.VectorRecord {
	return driven.VectorRecord{
		ID:           p.RecordID,
		Text:         p.Text,
		DocumentID:   p.DocumentID,
		DocumentName: p.DocumentName,
		ChunkIndex:   p.ChunkIndex,
		PageNumber:   p.PageNumber,
	}
}

// pointID derives a deterministic UUID for a record ID so re-ingesting
// the same chunk overwrites its point.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}
