package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// SearchResult pairs a chunk with its similarity to the query. The
// chunk's raw embedding is stripped before it reaches the caller.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// VectorStore holds embedded chunks and ranks them by cosine similarity.
type VectorStore interface {
	// AddChunks stores embedded chunks. Chunks without an embedding are
	// rejected.
	AddChunks(ctx context.Context, chunks []Chunk) error

	// Search returns the topK most similar chunks in descending score
	// order, with raw embeddings stripped.
	Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes all stored chunks.
	Clear(ctx context.Context) error
}

// InMemoryVectorStore is the default per-execution backend.
type InMemoryVectorStore struct {
	chunks []Chunk
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryVectorStore creates an empty in-memory store.
func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		logger: logger.With(zap.String("component", "vector_store")),
	}
}

// AddChunks stores embedded chunks.
func (s *InMemoryVectorStore) AddChunks(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", chunk.ID)
		}
		s.chunks = append(s.chunks, chunk)
	}

	s.logger.Debug("chunks added", zap.Int("count", len(chunks)), zap.Int("total", len(s.chunks)))
	return nil
}

// Search ranks all stored chunks against the query embedding.
func (s *InMemoryVectorStore) Search(ctx context.Context, queryEmbedding []float64, topK int) ([]SearchResult, error) {
	if len(queryEmbedding) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		results = append(results, SearchResult{
			Chunk: chunk,
			Score: CosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}
	return rankResults(results, topK), nil
}

// Count returns the number of stored chunks.
func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear removes all stored chunks.
func (s *InMemoryVectorStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	return nil
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|). Mismatched lengths
// or zero-norm vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankResults sorts descending by score, truncates to topK, and strips
// embeddings from the returned chunks.
func rankResults(results []SearchResult, topK int) []SearchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Chunk.Embedding = nil
	}
	return results
}
