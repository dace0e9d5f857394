package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
	"github.com/waverun/waverun/workflow/expr"
)

// LogicHandler executes the control-flow node family: condition,
// switch, loop, merge, and split.
type LogicHandler struct {
	logger *zap.Logger
}

// NewLogicHandler creates a logic handler.
func NewLogicHandler(logger *zap.Logger) *LogicHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogicHandler{logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *LogicHandler) Handle(_ context.Context, inv *workflow.Invocation) (any, error) {
	switch inv.Node.Type {
	case workflow.NodeCondition:
		return h.condition(inv)
	case workflow.NodeSwitch:
		return h.switchCase(inv)
	case workflow.NodeLoop:
		return h.loop(inv)
	case workflow.NodeMerge:
		return h.merge(inv)
	case workflow.NodeSplit:
		return h.split(inv)
	default:
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("logic handler cannot execute node type %q", inv.Node.Type))
	}
}

// condition evaluates the configured expression with the previous
// result bound as `data` and returns the matching branch value.
func (h *LogicHandler) condition(inv *workflow.Invocation) (any, error) {
	cfg, ok := inv.Node.Config.(*workflow.ConditionConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("condition node %s has no condition config", inv.Node.ID))
	}

	parsed, err := expr.Parse(cfg.Expression)
	if err != nil {
		// Unreachable for graph-built nodes; configs are parsed at build.
		return nil, types.NewError(types.ErrInvalidNodeConfig, err.Error()).WithCause(err)
	}

	matched, err := parsed.EvalBool(map[string]any{"data": inv.PreviousValue()})
	if err != nil {
		return nil, types.NewError(types.ErrNodeExecution,
			fmt.Sprintf("evaluating %q failed: %v", cfg.Expression, err)).WithCause(err)
	}

	if matched {
		return cfg.TrueValue, nil
	}
	return cfg.FalseValue, nil
}

// switchCase extracts a value by dotted path from the previous result
// and selects the matching case. With no match, the configured default
// wins; with no default, the previous result passes through unchanged.
func (h *LogicHandler) switchCase(inv *workflow.Invocation) (any, error) {
	cfg, ok := inv.Node.Config.(*workflow.SwitchConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("switch node %s has no switch config", inv.Node.ID))
	}

	prev := inv.PreviousValue()
	if v, found := lookupPath(prev, cfg.Path); found {
		key := fmt.Sprintf("%v", v)
		if out, hit := cfg.Cases[key]; hit {
			return out, nil
		}
	}
	if cfg.Default != nil {
		return cfg.Default, nil
	}
	return prev, nil
}

// loop collects its items unchanged. Explicitly configured items win
// over a list produced by the predecessor; a non-list input is treated
// as a single-item iteration.
func (h *LogicHandler) loop(inv *workflow.Invocation) (any, error) {
	if cfg, ok := inv.Node.Config.(*workflow.LoopItemsConfig); ok && len(cfg.Items) > 0 {
		return append([]any(nil), cfg.Items...), nil
	}
	prev := inv.PreviousValue()
	if items, ok := prev.([]any); ok {
		return append([]any(nil), items...), nil
	}
	if prev == nil {
		return []any{}, nil
	}
	return []any{prev}, nil
}

// merge shallow-merges the predecessor results into one map and stamps
// it. Non-map inputs are kept under their node id.
func (h *LogicHandler) merge(inv *workflow.Invocation) (any, error) {
	merged := make(map[string]any)
	for id, v := range inv.Previous {
		if m, ok := v.(map[string]any); ok {
			for k, mv := range m {
				merged[k] = mv
			}
			continue
		}
		merged[id] = v
	}
	merged["merged_at"] = time.Now().UTC().Format(time.RFC3339)
	return merged, nil
}

// split passes a list through unchanged and wraps anything else into a
// single-element list.
func (h *LogicHandler) split(inv *workflow.Invocation) (any, error) {
	prev := inv.PreviousValue()
	if items, ok := prev.([]any); ok {
		return items, nil
	}
	return []any{prev}, nil
}
