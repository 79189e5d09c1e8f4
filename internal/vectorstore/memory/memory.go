// Package memory is an in-process vector store using brute-force cosine
// similarity, used for tests and single-node runs.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"policyqa/internal/domain"
)

type entry struct {
	vector []float32
	text   string
}

// Storage keeps one map of entries per namespace. Upserting an existing key
// overwrites it, never duplicates.
type Storage struct {
	mu         sync.RWMutex
	dimension  int
	namespaces map[string]map[string]entry
}

// NewStorage creates an empty store expecting vectors of the given dimension.
func NewStorage(dimension int) *Storage {
	return &Storage{
		dimension:  dimension,
		namespaces: make(map[string]map[string]entry),
	}
}

// Exists reports whether the namespace holds at least one entry.
func (s *Storage) Exists(ctx context.Context, namespace string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace]) > 0, nil
}

// Upsert inserts or overwrites entries in the namespace.
func (s *Storage) Upsert(ctx context.Context, namespace string, entries []domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Vector) != s.dimension {
			return &domain.IndexUnavailableError{
				Namespace: namespace,
				Err:       fmt.Errorf("vector dimension %d, want %d", len(e.Vector), s.dimension),
			}
		}
	}
	ns := s.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]entry, len(entries))
		s.namespaces[namespace] = ns
	}
	for _, e := range entries {
		ns[e.Key] = entry{vector: e.Vector, text: e.Text}
	}
	return nil
}

// Query returns the k most similar entries in the namespace by cosine
// similarity, descending.
func (s *Storage) Query(ctx context.Context, namespace string, vector []float32, k int) ([]domain.RetrievedPassage, error) {
	if k <= 0 {
		k = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, &domain.IndexUnavailableError{
			Namespace: namespace,
			Err:       fmt.Errorf("query dimension %d, want %d", len(vector), s.dimension),
		}
	}
	ns := s.namespaces[namespace]
	results := make([]domain.RetrievedPassage, 0, len(ns))
	for _, e := range ns {
		results = append(results, domain.RetrievedPassage{
			Text:  e.text,
			Score: cosine(vector, e.vector),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
