package llm

import (
	"context"
)

// Usage reports token accounting for a completion call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// CompletionRequest is a single-shot completion call.
type CompletionRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// CompletionResponse carries the model output and token usage.
type CompletionResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage,omitempty"`
}

// CompletionProvider is the completion service contract.
// The engine never instantiates a concrete provider itself; one is
// injected at construction so tests can substitute doubles.
type CompletionProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// EmbeddingProvider is the embedding service contract. Embed is called
// once per chunk or query text and returns a dense vector.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CompletionFunc adapts a plain function to CompletionProvider.
type CompletionFunc func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

// Complete implements CompletionProvider.
func (f CompletionFunc) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// EmbeddingFunc adapts a plain function to EmbeddingProvider.
type EmbeddingFunc func(ctx context.Context, text string) ([]float64, error)

// Embed implements EmbeddingProvider.
func (f EmbeddingFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
