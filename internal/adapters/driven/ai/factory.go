// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/quarrydocs/quarry/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/quarrydocs/quarry/internal/adapters/driven/embedding/openai"
	ollamarel "github.com/quarrydocs/quarry/internal/adapters/driven/relevance/ollama"
	openairel "github.com/quarrydocs/quarry/internal/adapters/driven/relevance/openai"
	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates
// connectivity. Returns nil (no error) when the settings are not configured,
// so callers can degrade to sparse-only retrieval.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'quarry settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'quarry settings' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateAndValidateRelevanceModel creates a relevance model and validates
// connectivity. Returns nil (no error) when the settings are not configured;
// reranking is optional and retrieval works without it.
func CreateAndValidateRelevanceModel(settings *domain.RelevanceSettings) (driven.RelevanceModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	model, err := CreateRelevanceModel(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'quarry settings' to fix",
			domain.ErrRelevanceUnavailable, err)
	}

	if model == nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := model.Ping(ctx); err != nil {
		model.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'quarry settings' to fix",
			domain.ErrRelevanceUnavailable, err)
	}

	return model, nil
}

// ValidateEmbeddingConfig validates an embedding configuration by creating a
// service and pinging it. Intended for the settings command to validate
// credentials on configuration.
func ValidateEmbeddingConfig(settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// ValidateRelevanceConfig validates a relevance model configuration by
// creating a model and pinging it.
func ValidateRelevanceConfig(settings *domain.RelevanceSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	model, err := CreateRelevanceModel(settings)
	if err != nil {
		return err
	}
	if model == nil {
		return nil
	}
	defer model.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return model.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateRelevanceModel creates the appropriate relevance model based on settings.
// Returns nil if the provider is not configured.
func CreateRelevanceModel(settings *domain.RelevanceSettings) (driven.RelevanceModel, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamarel.NewRelevanceModel(ollamarel.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openairel.NewRelevanceModel(openairel.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("unsupported relevance provider: %s", settings.Provider)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}
