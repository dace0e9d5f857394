package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// TriggerSource produces the payload for schedule and webhook triggers.
// Manual triggers never consult the source; they publish the execution
// input directly.
type TriggerSource interface {
	Payload(ctx context.Context, trigger workflow.NodeType, cfg *workflow.TriggerConfig) (any, error)
}

// TriggerSourceFunc adapts a plain function to TriggerSource.
type TriggerSourceFunc func(ctx context.Context, trigger workflow.NodeType, cfg *workflow.TriggerConfig) (any, error)

// Payload implements TriggerSource.
func (f TriggerSourceFunc) Payload(ctx context.Context, trigger workflow.NodeType, cfg *workflow.TriggerConfig) (any, error) {
	return f(ctx, trigger, cfg)
}

// StaticTriggerSource is the default source: it synthesizes a small
// envelope describing the firing, sufficient for workflows that only
// care that the trigger fired.
type StaticTriggerSource struct{}

// Payload implements TriggerSource.
func (StaticTriggerSource) Payload(_ context.Context, trigger workflow.NodeType, cfg *workflow.TriggerConfig) (any, error) {
	payload := map[string]any{
		"trigger":  string(trigger),
		"fired_at": time.Now().UTC().Format(time.RFC3339),
	}
	if cfg != nil && cfg.Schedule != "" {
		payload["schedule"] = cfg.Schedule
	}
	return payload, nil
}

// TriggerHandler executes the trigger node family. Manual triggers
// return the execution input (or the configured payload override);
// schedule and webhook triggers pull their payload from the source.
type TriggerHandler struct {
	source TriggerSource
	logger *zap.Logger
}

// NewTriggerHandler creates a trigger handler. A nil source falls back
// to StaticTriggerSource; a nil logger falls back to zap.NewNop().
func NewTriggerHandler(source TriggerSource, logger *zap.Logger) *TriggerHandler {
	if source == nil {
		source = StaticTriggerSource{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriggerHandler{source: source, logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *TriggerHandler) Handle(ctx context.Context, inv *workflow.Invocation) (any, error) {
	cfg, _ := inv.Node.Config.(*workflow.TriggerConfig)

	switch inv.Node.Type {
	case workflow.NodeManualTrigger:
		if cfg != nil && cfg.Payload != nil {
			return cfg.Payload, nil
		}
		return inv.State.Input, nil

	case workflow.NodeScheduleTrigger, workflow.NodeWebhookTrigger:
		payload, err := h.source.Payload(ctx, inv.Node.Type, cfg)
		if err != nil {
			return nil, types.NewError(types.ErrNodeExecution,
				fmt.Sprintf("trigger source failed: %v", err)).WithCause(err)
		}
		return payload, nil

	default:
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("trigger handler cannot execute node type %q", inv.Node.Type))
	}
}
