// Package llm defines the contracts the engine consumes from external
// model services: single-shot completions and text embeddings. Concrete
// providers live outside the engine; tests inject doubles.
package llm
