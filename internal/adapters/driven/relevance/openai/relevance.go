// Package openai provides a relevance scoring adapter using the OpenAI API.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second
)

// scorePrompt instructs the model to emit a bare numeric judgement.
const scorePrompt = `Rate how relevant the passage is to the query on a scale from 0 to 100.
Respond with only the number.

Query: %s

Passage: %s`

// numberPattern extracts the first numeric token from the completion.
var numberPattern = regexp.MustCompile(`\d+(\.\d+)?`)

// Config holds configuration for the OpenAI relevance model.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the scoring model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// RelevanceModel scores (query, passage) pairs using the OpenAI API.
type RelevanceModel struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatRequest is the OpenAI chat completions request format.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatMessage is a single chat turn.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the OpenAI chat completions response format.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewRelevanceModel creates a new OpenAI relevance model.
func NewRelevanceModel(cfg Config) (*RelevanceModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
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
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Score returns a raw relevance score for the (query, text) pair.
func (m *RelevanceModel) Score(ctx context.Context, query, text string) (float64, error) {
	reqBody := chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(scorePrompt, query, text)},
		},
		Temperature: 0,
		MaxTokens:   8,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return 0, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	if len(chatResp.Choices) == 0 {
		return 0, fmt.Errorf("openai: no completion returned")
	}

	return parseScore(chatResp.Choices[0].Message.Content)
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

// Ping validates the service is reachable by checking the /models endpoint.
func (m *RelevanceModel) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Close releases resources.
func (m *RelevanceModel) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
