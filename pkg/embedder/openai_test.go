package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jungtaeinn/open-persona/pkg/config"
)

func newTestEmbedder(t *testing.T, serverURL string, batchSize int) *OpenAIEmbedder {
	t.Helper()
	cfg := &config.EmbedderConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 4,
		APIKey:     "test-key",
		BaseURL:    serverURL,
		BatchSize:  batchSize,
	}
	e, err := NewOpenAIEmbedder(cfg)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	return e
}

func TestNewOpenAIEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(&config.EmbedderConfig{Model: "text-embedding-3-small"})
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Dimensions != 4 {
			t.Errorf("Dimensions = %d, want 4", req.Dimensions)
		}

		// Return embeddings out of order to exercise index sorting
		data := make([]map[string]interface{}, len(req.Input))
		for i := range req.Input {
			data[len(req.Input)-1-i] = map[string]interface{}{
				"index":     i,
				"embedding": []float32{float32(i), 0, 0, 0},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":  data,
			"model": req.Model,
		})
	}))
	defer server.Close()

	e := newTestEmbedder(t, server.URL, 2)

	texts := []string{"a", "b", "c"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}

	if len(vectors) != 3 {
		t.Fatalf("vectors = %d, want 3", len(vectors))
	}
	// Batch size 2 splits 3 texts into 2 requests
	if requestCount != 2 {
		t.Errorf("requests = %d, want 2", requestCount)
	}
	// First vector of each request corresponds to index 0
	if vectors[0][0] != 0 || vectors[1][0] != 1 {
		t.Errorf("vectors not ordered by index: %v", vectors)
	}
}

func TestOpenAIEmbedder_Embed_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	e := newTestEmbedder(t, server.URL, 0)
	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Error("Embed() error = nil, want auth error")
	}
}

func TestOpenAIEmbedder_EmbedBatch_Empty(t *testing.T) {
	e := newTestEmbedder(t, "http://localhost", 0)
	vectors, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch(nil) error = %v", err)
	}
	if vectors != nil {
		t.Errorf("EmbedBatch(nil) = %v, want nil", vectors)
	}
}
