// Package embedding maps text to fixed-dimension vectors via an
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"policyqa/internal/domain"
)

var modelDimensions = map[string]int{
	"text-embedding-3-large": 3072,
	"text-embedding-3-small": 1536,
	"text-embedding-ada-002": 1536,
}

const maxRetries = 3

// Client is an OpenAI-compatible embeddings client. Calls are retried with
// bounded exponential backoff on rate limits, 5xx responses, and transport
// errors.
type Client struct {
	client    *openai.Client
	model     string
	batchSize int
	dimension int
}

// Config configures the embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Dimensions int
	Timeout    time.Duration
	BatchSize  int
}

// NewClient creates an embeddings client using the provided configuration.
// The API key is read from the environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	dims := cfg.Dimensions
	if dims == 0 {
		if known, ok := modelDimensions[cfg.Model]; ok {
			dims = known
		} else {
			dims = 1536
		}
	}

	clientConfig := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		batchSize: batchSize,
		dimension: dims,
	}, nil
}

// Dimension returns the dimensionality of the produced vectors.
func (c *Client) Dimension() int { return c.dimension }

// EmbedBatch embeds texts in bounded-size batches, preserving input order.
// A failed batch fails the whole call; no subset is silently dropped.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single question.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) embed(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, &domain.EmbeddingServiceError{Err: ctx.Err()}
			}
		}
		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.model),
			Input: batch,
		})
		if err != nil {
			lastErr = err
			if retryable(err) {
				continue
			}
			return nil, &domain.EmbeddingServiceError{Err: err}
		}
		if len(resp.Data) != len(batch) {
			return nil, &domain.EmbeddingServiceError{
				Err: fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Data)),
			}
		}
		vectors := make([][]float32, len(batch))
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return nil, &domain.EmbeddingServiceError{
					Err: fmt.Errorf("embedding index %d out of range", item.Index),
				}
			}
			if len(item.Embedding) != c.dimension {
				return nil, &domain.EmbeddingServiceError{
					Err: fmt.Errorf("dimension mismatch: got %d, want %d", len(item.Embedding), c.dimension),
				}
			}
			vectors[item.Index] = item.Embedding
		}
		return vectors, nil
	}
	return nil, &domain.EmbeddingServiceError{Err: lastErr}
}

// retryable reports whether the failure is transient: rate limiting, server
// errors, or transport-level failures.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return true
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
