package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Chunks with known similarities to the unit query vector {1, 0}:
// cos(a)=1.0, cos(b)≈0.707, cos(c)=0.0.
func seedChunks() []Chunk {
	return []Chunk{
		{ID: "a", Content: "exact", Embedding: []float64{1, 0}},
		{ID: "b", Content: "partial", Embedding: []float64{1, 1}},
		{ID: "c", Content: "orthogonal", Embedding: []float64{0, 1}},
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1.0},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0.0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1.0},
		{"zero vector", []float64{0, 0}, []float64{1, 2}, 0.0},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0.0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestInMemoryVectorStore_Search_Ranking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewInMemoryVectorStore(zap.NewNop())
	require.NoError(t, store.AddChunks(ctx, seedChunks()))

	results, err := store.Search(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	// Raw embeddings must not leak into results.
	for _, r := range results {
		assert.Nil(t, r.Chunk.Embedding)
	}
}

func TestInMemoryVectorStore_Search_TopKLargerThanIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewInMemoryVectorStore(zap.NewNop())
	require.NoError(t, store.AddChunks(ctx, seedChunks()))

	results, err := store.Search(ctx, []float64{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestInMemoryVectorStore_AddChunks_MissingEmbedding(t *testing.T) {
	t.Parallel()
	store := NewInMemoryVectorStore(zap.NewNop())
	err := store.AddChunks(context.Background(), []Chunk{{ID: "bare", Content: "x"}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}

func TestInMemoryVectorStore_Search_EmptyQuery(t *testing.T) {
	t.Parallel()
	store := NewInMemoryVectorStore(zap.NewNop())
	_, err := store.Search(context.Background(), nil, 5)
	assert.Error(t, err)
}

func TestInMemoryVectorStore_CountAndClear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewInMemoryVectorStore(zap.NewNop())
	require.NoError(t, store.AddChunks(ctx, seedChunks()))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.Clear(ctx))
	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
