package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydocs/quarry/internal/core/domain"
)

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantNil     bool
		wantErr     bool
		errContains string
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "unknown provider returns nil",
			settings: &domain.EmbeddingSettings{
				Provider: "unknown",
				APIKey:   "test-key",
			},
			// an invalid provider is treated as not configured
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
			}

			if tt.wantNil {
				assert.Nil(t, svc)
			} else {
				require.NotNil(t, svc)
			}
			if svc != nil {
				svc.Close()
			}
		})
	}
}

func TestCreateEmbeddingService_DimensionsFromModel(t *testing.T) {
	svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://localhost:11434",
		Model:    "mxbai-embed-large",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)
	defer svc.Close()

	assert.Equal(t, 1024, svc.Dimensions())
}

func TestCreateRelevanceModel(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.RelevanceSettings
		wantNil  bool
		wantErr  bool
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.RelevanceSettings{},
			wantNil:  true,
		},
		{
			name: "ollama provider creates model",
			settings: &domain.RelevanceSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "llama3.2",
			},
		},
		{
			name: "openai provider creates model",
			settings: &domain.RelevanceSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "gpt-4o-mini",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := CreateRelevanceModel(tt.settings)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tt.wantNil {
				assert.Nil(t, model)
			} else {
				require.NotNil(t, model)
			}
			if model != nil {
				model.Close()
			}
		})
	}
}

func TestCreateAndValidate_UnconfiguredIsNotAnError(t *testing.T) {
	svc, err := CreateAndValidateEmbeddingService(nil)
	require.NoError(t, err)
	assert.Nil(t, svc)

	model, err := CreateAndValidateRelevanceModel(&domain.RelevanceSettings{})
	require.NoError(t, err)
	assert.Nil(t, model)
}

func TestValidateConfig_UnconfiguredIsNotAnError(t *testing.T) {
	assert.NoError(t, ValidateEmbeddingConfig(nil))
	assert.NoError(t, ValidateRelevanceConfig(&domain.RelevanceSettings{}))
}
