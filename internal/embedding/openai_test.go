package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyqa/internal/domain"
)

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddings serves the OpenAI embeddings wire format, returning a
// distinct vector per input whose first component encodes the input's
// position offset.
func fakeEmbeddings(t *testing.T, calls *atomic.Int64, failFirst int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if int(n) <= failFirst {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "boom", "type": "server_error"},
			})
			return
		}
		var req embeddingsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), 1, 0},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	})
}

func newTestClient(t *testing.T, baseURL string, batchSize int) *Client {
	t.Setenv("TEST_OPENAI_KEY", "test-key")
	c, err := NewClient(Config{
		BaseURL:    baseURL,
		APIKeyEnv:  "TEST_OPENAI_KEY",
		Model:      "text-embedding-3-small",
		Dimensions: 3,
		Timeout:    5 * time.Second,
		BatchSize:  batchSize,
	})
	require.NoError(t, err)
	return c
}

func TestEmbedBatchPreservesOrderAcrossBatches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(fakeEmbeddings(t, &calls, 0))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := c.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d out of order", i)
	}
	// 5 texts with batch size 2 → 3 calls
	assert.Equal(t, int64(3), calls.Load())
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(fakeEmbeddings(t, &calls, 1))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 16)
	vectors, err := c.EmbedQuery(context.Background(), "what is covered?")
	require.NoError(t, err)
	assert.Len(t, vectors, 3)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEmbedFailsAfterMaxRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(fakeEmbeddings(t, &calls, 1000))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 16)
	_, err := c.EmbedQuery(context.Background(), "anything")
	var embedErr *domain.EmbeddingServiceError
	require.ErrorAs(t, err, &embedErr)
	assert.Equal(t, int64(maxRetries+1), calls.Load())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_OPENAI_KEY"})
	assert.Error(t, err)
}
