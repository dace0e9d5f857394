package rag

import (
	"go.uber.org/zap"
)

// ChunkingConfig controls fixed-window chunking.
type ChunkingConfig struct {
	// ChunkSize is the window length in characters.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
	// ChunkOverlap is how many characters consecutive windows share.
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
}

// DefaultChunkingConfig returns the production defaults.
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// Chunker slices documents into fixed-size overlapping windows.
type Chunker struct {
	config ChunkingConfig
	logger *zap.Logger
}

// NewChunker creates a chunker. A non-positive size falls back to the
// default; overlap is clamped below size so every window makes progress.
func NewChunker(config ChunkingConfig, logger *zap.Logger) *Chunker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkingConfig().ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize - 1
	}
	return &Chunker{
		config: config,
		logger: logger.With(zap.String("component", "chunker")),
	}
}

// Split chunks a document into windows of ChunkSize characters, each
// window after the first overlapping its predecessor by ChunkOverlap
// characters. A document shorter than ChunkSize yields a single chunk.
// The final window always reaches the end of the document and ends the
// split there, so a document exactly ChunkSize characters long produces
// one chunk rather than a trailing overlap-only remnant.
func (c *Chunker) Split(doc Document) []Chunk {
	content := doc.Content
	if content == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + c.config.ChunkSize
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, Chunk{
			ID:         ChunkID(doc.ID, len(chunks)),
			DocumentID: doc.ID,
			Index:      len(chunks),
			Content:    content[start:end],
			Metadata:   doc.Metadata,
		})
		if end >= len(content) {
			break
		}
		start = end - c.config.ChunkOverlap
	}

	c.logger.Debug("document chunked",
		zap.String("document_id", doc.ID),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", c.config.ChunkSize),
		zap.Int("overlap", c.config.ChunkOverlap),
	)

	return chunks
}

// SplitAll chunks every document in order.
func (c *Chunker) SplitAll(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, c.Split(doc)...)
	}
	return chunks
}
