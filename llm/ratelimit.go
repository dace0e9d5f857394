package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedCompletionProvider wraps a CompletionProvider with a
// token-bucket limiter so wide waves cannot flood the upstream service.
type RateLimitedCompletionProvider struct {
	inner   CompletionProvider
	limiter *rate.Limiter
}

// NewRateLimitedCompletionProvider creates a wrapper allowing rps
// requests per second with the given burst.
func NewRateLimitedCompletionProvider(inner CompletionProvider, rps float64, burst int) *RateLimitedCompletionProvider {
	return &RateLimitedCompletionProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Complete waits for limiter capacity, then delegates to the wrapped provider.
func (p *RateLimitedCompletionProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Complete(ctx, req)
}

// RateLimitedEmbeddingProvider applies the same limiting to embedding
// calls, which fan out once per chunk during indexing.
type RateLimitedEmbeddingProvider struct {
	inner   EmbeddingProvider
	limiter *rate.Limiter
}

// NewRateLimitedEmbeddingProvider creates a wrapper allowing rps
// requests per second with the given burst.
func NewRateLimitedEmbeddingProvider(inner EmbeddingProvider, rps float64, burst int) *RateLimitedEmbeddingProvider {
	return &RateLimitedEmbeddingProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for limiter capacity, then delegates to the wrapped provider.
func (p *RateLimitedEmbeddingProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.inner.Embed(ctx, text)
}
