package rag

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T, namespace string) *RedisVectorStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisVectorStore(client, namespace, zap.NewNop())
}

func TestRedisVectorStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestRedisStore(t, "exec1")

	require.NoError(t, store.AddChunks(ctx, seedChunks()))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := store.Search(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "b", results[1].Chunk.ID)
	assert.Nil(t, results[0].Chunk.Embedding)
}

func TestRedisVectorStore_AddChunks_MissingEmbedding(t *testing.T) {
	t.Parallel()
	store := newTestRedisStore(t, "exec2")
	err := store.AddChunks(context.Background(), []Chunk{{ID: "bare"}})
	assert.Error(t, err)
}

func TestRedisVectorStore_Clear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestRedisStore(t, "exec3")

	require.NoError(t, store.AddChunks(ctx, seedChunks()))
	require.NoError(t, store.Clear(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisVectorStore_NamespaceIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewRedisVectorStore(client, "exec-a", zap.NewNop())
	second := NewRedisVectorStore(client, "exec-b", zap.NewNop())

	require.NoError(t, first.AddChunks(ctx, seedChunks()))

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
