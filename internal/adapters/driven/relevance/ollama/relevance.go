// Package ollama provides a relevance scoring adapter using Ollama.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Ensure RelevanceModel implements the interface.
var _ driven.RelevanceModel = (*RelevanceModel)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 30 * time.Second
)

// scorePrompt instructs the model to emit a bare numeric judgement.
const scorePrompt = `Rate how relevant the passage is to the query on a scale from 0 to 100.
Respond with only the number.

Query: %s

Passage: %s

Score:`

// numberPattern extracts the first numeric token from the completion.
var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// Config holds configuration for the Ollama relevance model.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the scoring model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// RelevanceModel scores (query, passage) pairs using Ollama.
type RelevanceModel struct {
	client  *http.Client
	baseURL string
	model   string
}

// generateRequest is the Ollama API request format.
type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the Ollama API response format.
type generateResponse struct {
	Response string `json:"response"`
}

// NewRelevanceModel creates a new Ollama relevance model.
func NewRelevanceModel(cfg Config) *RelevanceModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &RelevanceModel{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Score returns a raw relevance score for the (query, text) pair.
func (m *RelevanceModel) Score(ctx context.Context, query, text string) (float64, error) {
	reqBody := generateRequest{
		Model:  m.model,
		Prompt: fmt.Sprintf(scorePrompt, query, text),
		Stream: false,
		Options: map[string]any{
			"temperature": 0,
			"num_predict": 8,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return 0, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	return parseScore(genResp.Response)
}

// parseScore extracts the numeric score from a model completion.
func parseScore(completion string) (float64, error) {
	match := numberPattern.FindString(completion)
	if match == "" {
		return 0, fmt.Errorf("no score in completion: %q", completion)
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing score %q: %w", match, err)
	}
	return score, nil
}

// ModelName returns the name of the relevance model being used.
func (m *RelevanceModel) ModelName() string {
	return m.model
}

// Ping validates the service is reachable by checking the /api/tags endpoint.
func (m *RelevanceModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (m *RelevanceModel) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
