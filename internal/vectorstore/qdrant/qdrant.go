// Package qdrant is a minimal REST adapter to a Qdrant vector database.
// Each namespace maps to its own collection so one document's chunks are
// isolated from every other document's.
package qdrant

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"policyqa/internal/domain"
)

// Storage talks to Qdrant over HTTP. Collections are created on demand with
// cosine distance.
type Storage struct {
	client           *http.Client
	url              string
	apiKey           string
	collectionPrefix string
	dimension        int
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	URL              string
	APIKey           string
	CollectionPrefix string
	Dimension        int
	Timeout          time.Duration
}

// NewStorage creates a Qdrant-backed vector store.
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	prefix := cfg.CollectionPrefix
	if prefix == "" {
		prefix = "policyqa"
	}
	return &Storage{
		client:           &http.Client{Timeout: timeout},
		url:              strings.TrimSuffix(cfg.URL, "/"),
		apiKey:           cfg.APIKey,
		collectionPrefix: prefix,
		dimension:        cfg.Dimension,
	}
}

func (s *Storage) collectionName(namespace string) string {
	return s.collectionPrefix + "_" + namespace
}

// Exists reports whether the namespace's collection holds indexed points.
func (s *Storage) Exists(ctx context.Context, namespace string) (bool, error) {
	resp, err := s.doRequest(ctx, http.MethodGet, "/collections/"+s.collectionName(namespace), nil)
	if err != nil {
		return false, &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return false, nil
	}
	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return false, &domain.IndexUnavailableError{
			Namespace: namespace,
			Err:       fmt.Errorf("describe collection: %s", resp.Status),
		}
	}
	var out struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	return out.Result.PointsCount > 0, nil
}

func (s *Storage) ensureCollection(ctx context.Context, namespace string) error {
	resp, err := s.doRequest(ctx, http.MethodGet, "/collections/"+s.collectionName(namespace), nil)
	if err == nil && resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	resp, err = s.doRequest(ctx, http.MethodPut, "/collections/"+s.collectionName(namespace), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("create collection: %s", resp.Status)
	}
	return nil
}

// Upsert writes entries into the namespace's collection. Point IDs derive
// deterministically from entry keys, so re-upserting overwrites.
func (s *Storage) Upsert(ctx context.Context, namespace string, entries []domain.Entry) error {
	if err := s.ensureCollection(ctx, namespace); err != nil {
		return &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     pointID(e.Key),
			"vector": e.Vector,
			"payload": map[string]any{
				"key":  e.Key,
				"text": e.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	resp, err := s.doRequest(ctx, http.MethodPut, "/collections/"+s.collectionName(namespace)+"/points?wait=true", body)
	if err != nil {
		return &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &domain.IndexUnavailableError{
			Namespace: namespace,
			Err:       fmt.Errorf("upsert: %s %s", resp.Status, string(raw)),
		}
	}
	return nil
}

// Query returns at most k nearest neighbors by cosine similarity.
func (s *Storage) Query(ctx context.Context, namespace string, vector []float32, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		k = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	resp, err := s.doRequest(ctx, http.MethodPost, "/collections/"+s.collectionName(namespace)+"/points/search", body)
	if err != nil {
		return nil, &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &domain.IndexUnavailableError{
			Namespace: namespace,
			Err:       fmt.Errorf("search: %s %s", resp.Status, string(raw)),
		}
	}
	var out struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.IndexUnavailableError{Namespace: namespace, Err: err}
	}
	results := make([]domain.RetrievedPassage, 0, len(out.Result))
	for _, r := range out.Result {
		text, _ := r.Payload["text"].(string)
		results = append(results, domain.RetrievedPassage{Text: text, Score: r.Score})
	}
	return results, nil
}

// pointID formats a chunk key as a deterministic UUID, since Qdrant only
// accepts unsigned integers or UUIDs as point IDs.
func pointID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x-%x-%x-%x-%x", sum[0:4], sum[4:6], sum[6:8], sum[8:10], sum[10:16])
}

func (s *Storage) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	return s.client.Do(req)
}
