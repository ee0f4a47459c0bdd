package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	defer svc.Close()

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestEmbedBatch_SingleRequest(t *testing.T) {
	var gotPath string
	var gotReq embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
		})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL, Model: "all-minilm"})
	defer svc.Close()

	embeddings, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, "/api/embed", gotPath)
	assert.Equal(t, "all-minilm", gotReq.Model)
	assert.Equal(t, []string{"first", "second"}, gotReq.Input)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{0.1, 0.2}, embeddings[0])
	assert.Equal(t, []float32{0.3, 0.4}, embeddings[1])
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://unused"})
	defer svc.Close()

	embeddings, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, embeddings)
}

func TestEmbedBatch_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float64{{0.1}},
		})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	defer svc.Close()

	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 embeddings for 2 inputs")
}

func TestEmbed_ReturnsSingleVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{
			Embeddings: [][]float64{{1, 2, 3}},
		})
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	defer svc.Close()

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3}, vec)
}

func TestEmbedBatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	defer svc.Close()

	_, err := svc.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewEmbeddingService(Config{BaseURL: server.URL})
	defer svc.Close()

	assert.NoError(t, svc.Ping(context.Background()))
}
