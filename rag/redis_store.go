package rag

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisVectorStore keeps embedded chunks in a Redis hash, one field per
// chunk id. Ranking happens client-side, which keeps this backend
// suitable for the same modest index sizes as the in-memory store while
// letting several processes share one index.
type RedisVectorStore struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewRedisVectorStore creates a store over an existing client. The
// namespace isolates one index from another (typically the execution id).
func NewRedisVectorStore(client *redis.Client, namespace string, logger *zap.Logger) *RedisVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisVectorStore{
		client:    client,
		namespace: namespace,
		logger:    logger.With(zap.String("component", "redis_vector_store")),
	}
}

func (s *RedisVectorStore) key() string {
	return "waverun:index:" + s.namespace
}

// AddChunks stores embedded chunks as JSON hash fields.
func (s *RedisVectorStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	fields := make(map[string]any, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", chunk.ID, err)
		}
		fields[chunk.ID] = data
	}

	if err := s.client.HSet(ctx, s.key(), fields).Err(); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Debug("chunks added",
		zap.String("namespace", s.namespace),
		zap.Int("count", len(chunks)),
	)
	return nil
}

// Search loads the index and ranks it against the query embedding.
func (s *RedisVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	raw, err := s.client.HGetAll(ctx, s.key()).Result()
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	results := make([]SearchResult, 0, len(raw))
	for id, data := range raw {
		var chunk Chunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return nil, fmt.Errorf("unmarshal chunk %s: %w", id, err)
		}
		results = append(results, SearchResult{
			Chunk: chunk,
			Score: CosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}
	return rankResults(results, topK), nil
}

// Count returns the number of stored chunks.
func (s *RedisVectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.key()).Result()
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(n), nil
}

// Clear removes the whole index.
func (s *RedisVectorStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}
