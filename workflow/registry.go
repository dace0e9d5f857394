package workflow

import (
	"context"
	"fmt"

	"github.com/waverun/waverun/types"
)

// ExecutionState is the per-execution environment shared by every node
// handler: the external input, the shared context, and the log.
type ExecutionState struct {
	ExecutionID string
	Input       any
	Context     *WorkflowContext
	Log         *ExecutionLog
}

// Invocation is one node execution request: the node, the results of
// its directly-resolved predecessors keyed by node id, and the shared
// execution state.
type Invocation struct {
	Node     *Node
	Previous map[string]any
	State    *ExecutionState
}

// PreviousValue flattens the predecessor results: the bare value when
// exactly one predecessor resolved, the id-keyed map otherwise, nil
// when the node has no predecessors.
func (inv *Invocation) PreviousValue() any {
	switch len(inv.Previous) {
	case 0:
		return nil
	case 1:
		for _, v := range inv.Previous {
			return v
		}
	}
	out := make(map[string]any, len(inv.Previous))
	for k, v := range inv.Previous {
		out[k] = v
	}
	return out
}

// NodeHandler executes nodes of one or more types.
type NodeHandler interface {
	Handle(ctx context.Context, inv *Invocation) (any, error)
}

// HandlerFunc adapts a plain function to NodeHandler.
type HandlerFunc func(ctx context.Context, inv *Invocation) (any, error)

// Handle implements NodeHandler.
func (f HandlerFunc) Handle(ctx context.Context, inv *Invocation) (any, error) {
	return f(ctx, inv)
}

// Registry dispatches node types to handlers.
type Registry struct {
	handlers map[NodeType]NodeHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[NodeType]NodeHandler)}
}

// Register binds a handler to one or more node types, replacing any
// previous binding.
func (r *Registry) Register(handler NodeHandler, nodeTypes ...NodeType) {
	for _, t := range nodeTypes {
		r.handlers[t] = handler
	}
}

// Handler returns the handler for a node type, or an UnknownNodeType
// error when none is registered.
func (r *Registry) Handler(t NodeType) (NodeHandler, error) {
	h, ok := r.handlers[t]
	if !ok {
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("no handler registered for node type %q", t))
	}
	return h, nil
}

// Has reports whether a handler is registered for the node type.
func (r *Registry) Has(t NodeType) bool {
	_, ok := r.handlers[t]
	return ok
}

// Types returns every registered node type.
func (r *Registry) Types() []NodeType {
	out := make([]NodeType, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}
