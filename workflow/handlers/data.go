package handlers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// DataHandler executes the data-shaping node family: transform, filter,
// aggregate, validate, and extract.
type DataHandler struct {
	logger *zap.Logger
}

// NewDataHandler creates a data handler.
func NewDataHandler(logger *zap.Logger) *DataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataHandler{logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *DataHandler) Handle(_ context.Context, inv *workflow.Invocation) (any, error) {
	switch inv.Node.Type {
	case workflow.NodeTransform:
		return h.transform(inv)
	case workflow.NodeFilter:
		return h.filter(inv)
	case workflow.NodeAggregate:
		return h.aggregate(inv)
	case workflow.NodeValidate:
		return h.validate(inv)
	case workflow.NodeExtract:
		return h.extract(inv)
	default:
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("data handler cannot execute node type %q", inv.Node.Type))
	}
}

// transform applies the configured mapping to the previous result. A
// list input is mapped per item; anything else is mapped as a single
// record. Paths that resolve to nothing produce no output key.
func (h *DataHandler) transform(inv *workflow.Invocation) (any, error) {
	cfg, ok := inv.Node.Config.(*workflow.TransformConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("transform node %s has no mapping config", inv.Node.ID))
	}

	prev := inv.PreviousValue()
	if items, isList := prev.([]any); isList {
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, applyMapping(item, cfg.Mapping))
		}
		return out, nil
	}
	return applyMapping(prev, cfg.Mapping), nil
}

func applyMapping(item any, mapping map[string]string) map[string]any {
	out := make(map[string]any, len(mapping))
	for key, path := range mapping {
		if v, found := lookupPath(item, path); found {
			out[key] = v
		}
	}
	return out
}

// filter passes every item through. Criteria evaluation is a declared
// stub until the selection grammar is settled.
func (h *DataHandler) filter(inv *workflow.Invocation) (any, error) {
	return inv.PreviousValue(), nil
}

// aggregate reduces a list input to count, sum, or average. Sum and
// average read the configured field from each map item and skip values
// that are not numeric.
func (h *DataHandler) aggregate(inv *workflow.Invocation) (any, error) {
	cfg, ok := inv.Node.Config.(*workflow.AggregateConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("aggregate node %s has no aggregate config", inv.Node.ID))
	}

	items, ok := inv.PreviousValue().([]any)
	if !ok {
		return nil, types.NewError(types.ErrNodeExecution,
			fmt.Sprintf("aggregate node %s expects a list input", inv.Node.ID))
	}

	if cfg.Operation == "count" {
		return map[string]any{"operation": "count", "result": len(items)}, nil
	}

	var sum float64
	var counted int
	for _, item := range items {
		v, found := lookupPath(item, cfg.Field)
		if !found {
			continue
		}
		n, numeric := toFloat(v)
		if !numeric {
			continue
		}
		sum += n
		counted++
	}

	switch cfg.Operation {
	case "sum":
		return map[string]any{"operation": "sum", "field": cfg.Field, "result": sum}, nil
	case "average":
		avg := 0.0
		if counted > 0 {
			avg = sum / float64(counted)
		}
		return map[string]any{"operation": "average", "field": cfg.Field, "result": avg}, nil
	default:
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("unknown aggregate operation %q", cfg.Operation))
	}
}

// validate stamps the input as valid. Rule evaluation is a declared stub;
// callers needing real validation register their own handler.
func (h *DataHandler) validate(inv *workflow.Invocation) (any, error) {
	return map[string]any{
		"valid":      true,
		"checked_at": time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// extract projects the configured fields from each item, preserving the
// input shape: list in, list out.
func (h *DataHandler) extract(inv *workflow.Invocation) (any, error) {
	cfg, ok := inv.Node.Config.(*workflow.ExtractConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("extract node %s has no extract config", inv.Node.ID))
	}

	project := func(item any) map[string]any {
		out := make(map[string]any, len(cfg.Fields))
		for _, field := range cfg.Fields {
			if v, found := lookupPath(item, field); found {
				out[field] = v
			}
		}
		return out
	}

	prev := inv.PreviousValue()
	if items, isList := prev.([]any); isList {
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, project(item))
		}
		return out, nil
	}
	return project(prev), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
