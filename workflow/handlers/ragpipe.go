package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/waverun/waverun/llm"
	"github.com/waverun/waverun/rag"
	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// ContextKeyIndex is the WorkflowContext key where rag_store publishes
// the vector store and where rag_search expects to find it. A second
// store node in the same workflow replaces the index.
const ContextKeyIndex = "rag_index"

// DefaultSearchTopK is used when a search node does not set top_k.
const DefaultSearchTopK = 5

// StoreFactory creates the vector store backing one execution's
// retrieval index.
type StoreFactory func(executionID string) rag.VectorStore

// RAGHandler executes the retrieval pipeline node family:
// load -> split -> embed -> store -> search.
type RAGHandler struct {
	embedder llm.EmbeddingProvider
	newStore StoreFactory
	chunking rag.ChunkingConfig
	logger   *zap.Logger
}

// NewRAGHandler creates a RAG handler. A nil factory builds in-memory
// stores; chunking supplies defaults for split nodes without explicit
// sizes.
func NewRAGHandler(embedder llm.EmbeddingProvider, newStore StoreFactory, chunking rag.ChunkingConfig, logger *zap.Logger) *RAGHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newStore == nil {
		log := logger
		newStore = func(string) rag.VectorStore { return rag.NewInMemoryVectorStore(log) }
	}
	if chunking.ChunkSize <= 0 {
		chunking = rag.DefaultChunkingConfig()
	}
	return &RAGHandler{embedder: embedder, newStore: newStore, chunking: chunking, logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *RAGHandler) Handle(ctx context.Context, inv *workflow.Invocation) (any, error) {
	switch inv.Node.Type {
	case workflow.NodeRAGLoad:
		return h.load(inv)
	case workflow.NodeRAGSplit:
		return h.split(inv)
	case workflow.NodeRAGEmbed:
		return h.embed(ctx, inv)
	case workflow.NodeRAGStore:
		return h.store(ctx, inv)
	case workflow.NodeRAGSearch:
		return h.search(ctx, inv)
	default:
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("rag handler cannot execute node type %q", inv.Node.Type))
	}
}

// load passes configured documents downstream, falling back to
// documents produced by a predecessor.
func (h *RAGHandler) load(inv *workflow.Invocation) (any, error) {
	if cfg, ok := inv.Node.Config.(*workflow.RAGLoadConfig); ok && len(cfg.Documents) > 0 {
		return cfg.Documents, nil
	}
	docs, ok := coerceDocuments(inv.PreviousValue())
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			"rag_load has no configured documents and no document input")
	}
	return docs, nil
}

func (h *RAGHandler) split(inv *workflow.Invocation) (any, error) {
	docs, ok := coerceDocuments(inv.PreviousValue())
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			"rag_split expects documents from its predecessor")
	}

	chunking := h.chunking
	if cfg, ok := inv.Node.Config.(*workflow.RAGSplitConfig); ok && cfg.ChunkSize > 0 {
		chunking = rag.ChunkingConfig{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}
	}
	chunks := rag.NewChunker(chunking, h.logger).SplitAll(docs)

	inv.State.Log.Info(fmt.Sprintf("node %s: split %d documents into %d chunks", inv.Node.ID, len(docs), len(chunks)), nil)
	return chunks, nil
}

// embed attaches embedding vectors to chunks. A chunk whose embedding
// fails is logged and dropped; the pipeline continues with the rest.
func (h *RAGHandler) embed(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.embedder == nil {
		return nil, types.NewError(types.ErrEmbeddingService, "no embedding provider configured")
	}
	chunks, ok := coerceChunks(inv.PreviousValue())
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			"rag_embed expects chunks from its predecessor")
	}

	embedded := make([]rag.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := h.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			inv.State.Log.Error(fmt.Sprintf("node %s: dropping chunk %s: embedding failed", inv.Node.ID, chunk.ID),
				map[string]any{"error": err.Error()})
			h.logger.Warn("chunk embedding failed",
				zap.String("component", "rag_handler"),
				zap.String("chunk_id", chunk.ID),
				zap.Error(err))
			continue
		}
		chunk.Embedding = vec
		embedded = append(embedded, chunk)
	}
	return embedded, nil
}

// store writes embedded chunks into a fresh vector store and publishes
// it under ContextKeyIndex.
func (h *RAGHandler) store(ctx context.Context, inv *workflow.Invocation) (any, error) {
	chunks, ok := coerceChunks(inv.PreviousValue())
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			"rag_store expects chunks from its predecessor")
	}

	store := h.newStore(inv.State.ExecutionID)
	if err := store.AddChunks(ctx, chunks); err != nil {
		return nil, types.NewError(types.ErrNodeExecution,
			fmt.Sprintf("storing %d chunks failed: %v", len(chunks), err)).WithCause(err)
	}
	inv.State.Context.Set(ContextKeyIndex, store)

	return map[string]any{"stored_chunks": len(chunks)}, nil
}

func (h *RAGHandler) search(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.embedder == nil {
		return nil, types.NewError(types.ErrEmbeddingService, "no embedding provider configured")
	}
	cfg, ok := inv.Node.Config.(*workflow.RAGSearchConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("rag_search node %s has no search config", inv.Node.ID))
	}

	v, ok := inv.State.Context.Get(ContextKeyIndex)
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			"rag_search found no index: run rag_store before searching")
	}
	store, ok := v.(rag.VectorStore)
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			fmt.Sprintf("context key %q holds %T, not a vector store", ContextKeyIndex, v))
	}

	queryVec, err := h.embedder.Embed(ctx, cfg.Query)
	if err != nil {
		return nil, types.NewError(types.ErrEmbeddingService,
			fmt.Sprintf("embedding search query failed: %v", err)).WithCause(err).WithRetryable(true)
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultSearchTopK
	}
	results, err := store.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, types.NewError(types.ErrNodeExecution,
			fmt.Sprintf("similarity search failed: %v", err)).WithCause(err)
	}
	return results, nil
}

// coerceDocuments accepts a typed document slice or a []any of
// documents, the shapes a predecessor can realistically publish.
func coerceDocuments(v any) ([]rag.Document, bool) {
	switch docs := v.(type) {
	case []rag.Document:
		return docs, true
	case rag.Document:
		return []rag.Document{docs}, true
	case []any:
		out := make([]rag.Document, 0, len(docs))
		for _, item := range docs {
			doc, ok := item.(rag.Document)
			if !ok {
				return nil, false
			}
			out = append(out, doc)
		}
		return out, true
	default:
		return nil, false
	}
}

func coerceChunks(v any) ([]rag.Chunk, bool) {
	switch chunks := v.(type) {
	case []rag.Chunk:
		return chunks, true
	case []any:
		out := make([]rag.Chunk, 0, len(chunks))
		for _, item := range chunks {
			chunk, ok := item.(rag.Chunk)
			if !ok {
				return nil, false
			}
			out = append(out, chunk)
		}
		return out, true
	default:
		return nil, false
	}
}
