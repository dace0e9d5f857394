package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator counts prompt tokens before a completion call so the
// engine can log usage and spot prompts that will blow the max_tokens
// budget. When no encoding is available it falls back to a chars/4
// estimate rather than failing the call.
type TokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTokenEstimator creates an estimator for the given tiktoken encoding
// (e.g. "cl100k_base", "o200k_base").
func NewTokenEstimator(encoding string) (*TokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get encoding %s: %w", encoding, err)
	}
	return &TokenEstimator{enc: enc}, nil
}

// Count returns the token count for text. A nil estimator or missing
// encoding estimates len(text)/4.
func (e *TokenEstimator) Count(text string) int {
	if e == nil || e.enc == nil {
		return len(text) / 4
	}
	return len(e.enc.Encode(text, nil, nil))
}
