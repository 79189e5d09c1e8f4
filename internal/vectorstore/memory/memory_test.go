package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyqa/internal/domain"
)

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	s := NewStorage(2)
	ctx := context.Background()

	entries := []domain.Entry{
		{Key: "fp:0", Vector: []float32{1, 0}, Text: "first"},
		{Key: "fp:1", Vector: []float32{0, 1}, Text: "second"},
	}
	require.NoError(t, s.Upsert(ctx, "fp", entries))
	require.NoError(t, s.Upsert(ctx, "fp", entries))

	results, err := s.Query(ctx, "fp", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestUpsertOverwritesExistingKey(t *testing.T) {
	s := NewStorage(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "fp", []domain.Entry{{Key: "fp:0", Vector: []float32{1, 0}, Text: "old"}}))
	require.NoError(t, s.Upsert(ctx, "fp", []domain.Entry{{Key: "fp:0", Vector: []float32{1, 0}, Text: "new"}}))

	results, err := s.Query(ctx, "fp", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
}

func TestQueryRanksByCosineSimilarityDescending(t *testing.T) {
	s := NewStorage(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "fp", []domain.Entry{
		{Key: "fp:0", Vector: []float32{1, 0}, Text: "aligned"},
		{Key: "fp:1", Vector: []float32{0.7, 0.7}, Text: "diagonal"},
		{Key: "fp:2", Vector: []float32{0, 1}, Text: "orthogonal"},
	}))

	results, err := s.Query(ctx, "fp", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aligned", results[0].Text)
	assert.Equal(t, "diagonal", results[1].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestNamespaceIsolation(t *testing.T) {
	s := NewStorage(2)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "doc-a", []domain.Entry{{Key: "a:0", Vector: []float32{1, 0}, Text: "from A"}}))
	require.NoError(t, s.Upsert(ctx, "doc-b", []domain.Entry{{Key: "b:0", Vector: []float32{1, 0}, Text: "from B"}}))

	results, err := s.Query(ctx, "doc-a", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "from A", results[0].Text)
}

func TestExists(t *testing.T) {
	s := NewStorage(2)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Upsert(ctx, "fp", []domain.Entry{{Key: "fp:0", Vector: []float32{1, 0}, Text: "x"}}))
	exists, err = s.Exists(ctx, "fp")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s := NewStorage(2)
	err := s.Upsert(context.Background(), "fp", []domain.Entry{{Key: "fp:0", Vector: []float32{1, 0, 0}, Text: "x"}})
	var indexErr *domain.IndexUnavailableError
	assert.ErrorAs(t, err, &indexErr)
}
