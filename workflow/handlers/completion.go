package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/waverun/waverun/llm"
	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// templateTokenRe matches {{key}} placeholders in prompt templates.
var templateTokenRe = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// CompletionHandler renders a prompt template against the execution
// context and calls the configured completion provider.
//
// Placeholders resolve in two steps: {{previous}} expands to the
// serialized predecessor results, any other {{key}} to the serialized
// context value stored under that key. With exactly one resolved
// predecessor, {{previous}} serializes that bare value instead of a
// one-entry map keyed by node id, matching how Invocation.PreviousValue
// flattens the single-predecessor case. Unresolvable placeholders are
// left in place so a broken template is visible in the prompt rather
// than silently blanked.
type CompletionHandler struct {
	provider llm.CompletionProvider
	tokens   *llm.TokenEstimator
	logger   *zap.Logger
}

// NewCompletionHandler creates a completion handler. The token
// estimator may be nil; prompt sizes are then not logged.
func NewCompletionHandler(provider llm.CompletionProvider, tokens *llm.TokenEstimator, logger *zap.Logger) *CompletionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionHandler{provider: provider, tokens: tokens, logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *CompletionHandler) Handle(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.provider == nil {
		return nil, types.NewError(types.ErrCompletionService, "no completion provider configured")
	}
	cfg, ok := inv.Node.Config.(*workflow.CompletionConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("llm_completion node %s has no completion config", inv.Node.ID))
	}

	prompt := renderTemplate(cfg.PromptTemplate, inv)

	fields := map[string]any{"model": cfg.Model}
	if h.tokens != nil {
		fields["prompt_tokens_estimate"] = h.tokens.Count(prompt)
	}
	inv.State.Log.Info(fmt.Sprintf("node %s: requesting completion", inv.Node.ID), fields)

	resp, err := h.provider.Complete(ctx, &llm.CompletionRequest{
		Prompt:      prompt,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, types.NewError(types.ErrCompletionService,
			fmt.Sprintf("completion request failed: %v", err)).WithCause(err).WithRetryable(true)
	}

	// Published as a map so downstream condition and transform nodes can
	// path into it.
	return map[string]any{
		"content": resp.Content,
		"model":   cfg.Model,
		"usage": map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}, nil
}

// renderTemplate substitutes {{previous}} and {{key}} placeholders.
func renderTemplate(template string, inv *workflow.Invocation) string {
	return templateTokenRe.ReplaceAllStringFunc(template, func(match string) string {
		key := templateTokenRe.FindStringSubmatch(match)[1]
		if key == "previous" {
			return serializeValue(inv.PreviousValue())
		}
		if v, ok := inv.State.Context.Get(key); ok {
			return serializeValue(v)
		}
		return match
	})
}

// serializeValue renders a context value for prompt interpolation.
// JSON keeps structured values readable; values that cannot marshal
// fall back to fmt.
func serializeValue(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
