package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waverun/waverun/types"
)

// recordingHandler appends node ids in completion order.
type recordingHandler struct {
	mu    sync.Mutex
	seen  []string
	apply func(inv *Invocation) (any, error)
}

func (h *recordingHandler) Handle(_ context.Context, inv *Invocation) (any, error) {
	h.mu.Lock()
	h.seen = append(h.seen, inv.Node.ID)
	h.mu.Unlock()
	if h.apply != nil {
		return h.apply(inv)
	}
	return inv.Node.ID + "-result", nil
}

func (h *recordingHandler) order() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

const nodePassthrough NodeType = "passthrough"

func newTestEngine(handler NodeHandler, cfg EngineConfig) *Engine {
	reg := NewRegistry()
	reg.Register(handler, nodePassthrough)
	return NewEngine(reg, cfg, zap.NewNop())
}

func passNode(id string) Node {
	return Node{ID: id, Type: nodePassthrough}
}

func TestExecuteWorkflow_LinearChainRespectsOrder(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "linear",
		Nodes: []Node{passNode("a"), passNode("b"), passNode("c")},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, handler.order())
	assert.Equal(t, "c-result", result.Output)
	assert.Equal(t, "a-result", result.ContextSnapshot[NodeResultKey("a")])
	assert.Equal(t, "b-result", result.ContextSnapshot[NodeResultKey("b")])
}

func TestExecuteWorkflow_DiamondRunsMiddleWaveConcurrently(t *testing.T) {
	t.Parallel()

	// Both middle nodes wait for each other, so the wave only finishes
	// if they truly run concurrently.
	var rendezvous sync.WaitGroup
	rendezvous.Add(2)

	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		if inv.Node.ID == "b" || inv.Node.ID == "c" {
			rendezvous.Done()
			met := make(chan struct{})
			go func() {
				rendezvous.Wait()
				close(met)
			}()
			select {
			case <-met:
			case <-time.After(5 * time.Second):
				return nil, errors.New("wave sibling never started")
			}
		}
		return inv.Node.ID, nil
	}}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "diamond",
		Nodes: []Node{passNode("a"), passNode("b"), passNode("c"), passNode("d")},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "d"},
			{Source: "c", Target: "d"},
		},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "d", result.Output)

	order := handler.order()
	require.Len(t, order, 4)
	assert.Equal(t, "a", order[0])
	assert.Equal(t, "d", order[3])
}

func TestExecuteWorkflow_DiamondPreviousCarriesBothBranches(t *testing.T) {
	t.Parallel()

	var previousAtD map[string]any
	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		if inv.Node.ID == "d" {
			previousAtD = inv.Previous
		}
		return inv.Node.ID + "-result", nil
	}}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "diamond",
		Nodes: []Node{passNode("a"), passNode("b"), passNode("c"), passNode("d")},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "d"},
			{Source: "c", Target: "d"},
		},
	}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": "b-result", "c": "c-result"}, previousAtD)
}

func TestExecuteWorkflow_FailFastStopsDownstream(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		if inv.Node.ID == "b" {
			return nil, errors.New("boom")
		}
		return inv.Node.ID, nil
	}}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "failing",
		Nodes: []Node{passNode("a"), passNode("b"), passNode("c")},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeExecution, types.GetErrorCode(err))

	var wfErr *types.Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, "b", wfErr.NodeID)

	// Downstream of the failure never ran.
	assert.NotContains(t, handler.order(), "c")

	// The failed result still carries logs and partial context.
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Logs)
	assert.Equal(t, "a", result.ContextSnapshot[NodeResultKey("a")])
	assert.NotContains(t, result.ContextSnapshot, NodeResultKey("b"))
}

func TestExecuteWorkflow_FailingWaveDiscardsSiblingResults(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		if inv.Node.ID == "bad" {
			return nil, errors.New("boom")
		}
		return inv.Node.ID, nil
	}}
	engine := newTestEngine(handler, DefaultEngineConfig())

	// ok and bad are in the same wave.
	def := &Definition{
		ID:    "sibling",
		Nodes: []Node{passNode("ok"), passNode("bad")},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.NotContains(t, result.ContextSnapshot, NodeResultKey("ok"),
		"sibling results of a failed wave are discarded")
}

func TestExecuteWorkflow_MultipleSinksReturnMap(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "fan-out",
		Nodes: []Node{passNode("a"), passNode("x"), passNode("y")},
		Edges: []Edge{{Source: "a", Target: "x"}, {Source: "a", Target: "y"}},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "x-result", "y": "y-result"}, result.Output)
}

func TestExecuteWorkflow_CycleFailsAtBuild(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&recordingHandler{}, DefaultEngineConfig())
	def := &Definition{
		ID:    "cyclic",
		Nodes: []Node{passNode("a"), passNode("b")},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrCycleDetected, types.GetErrorCode(err))
}

func TestExecuteWorkflow_FullCycleWithCheckDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultEngineConfig()
	cfg.DisableCycleCheck = true
	engine := newTestEngine(&recordingHandler{}, cfg)

	def := &Definition{
		ID:    "cyclic",
		Nodes: []Node{passNode("a"), passNode("b")},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrNoRunnableNodes, types.GetErrorCode(err))
}

func TestExecuteWorkflow_PartialCycleStalls(t *testing.T) {
	t.Parallel()

	cfg := DefaultEngineConfig()
	cfg.DisableCycleCheck = true
	engine := newTestEngine(&recordingHandler{}, cfg)

	// a runs, then b and c deadlock on each other.
	def := &Definition{
		ID:    "stalls",
		Nodes: []Node{passNode("a"), passNode("b"), passNode("c")},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
			{Source: "c", Target: "b"},
		},
	}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrNoRunnableNodes, types.GetErrorCode(err))
}

func TestExecuteWorkflow_UnknownNodeTypeFailsUpfront(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "unknown",
		Nodes: []Node{passNode("a"), {ID: "b", Type: NodeType("never_registered")}},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownNodeType, types.GetErrorCode(err))
	assert.Empty(t, handler.order(), "no node runs when any type is unresolvable")
}

func TestExecuteWorkflow_NodeTimeout(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		return nil, context.DeadlineExceeded
	}}
	cfg := DefaultEngineConfig()
	cfg.NodeTimeout = time.Nanosecond
	engine := newTestEngine(handler, cfg)

	def := &Definition{ID: "slow", Nodes: []Node{passNode("a")}}

	_, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeTimeout, types.GetErrorCode(err))
}

func TestExecuteWorkflow_EmptyDefinition(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&recordingHandler{}, DefaultEngineConfig())
	result, err := engine.ExecuteWorkflow(context.Background(), &Definition{ID: "empty"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result.Output)
}

func TestExecute_FallsBackToGraphModeWithoutDriver(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&recordingHandler{}, DefaultEngineConfig())
	def := &Definition{ID: "plain", Nodes: []Node{passNode("a")}}

	out, err := engine.Execute(context.Background(), def, nil, "")
	require.NoError(t, err)
	_, ok := out.(*ExecutionResult)
	assert.True(t, ok)
}

func TestExecuteWorkflow_HandlerPanicFailsNode(t *testing.T) {
	t.Parallel()

	handler := &recordingHandler{apply: func(inv *Invocation) (any, error) {
		if inv.Node.ID == "b" {
			panic("handler went sideways")
		}
		return inv.Node.ID, nil
	}}
	engine := newTestEngine(handler, DefaultEngineConfig())

	def := &Definition{
		ID:    "panicking",
		Nodes: []Node{passNode("a"), passNode("b")},
		Edges: []Edge{{Source: "a", Target: "b"}},
	}

	result, err := engine.ExecuteWorkflow(context.Background(), def, nil, "")
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeExecution, types.GetErrorCode(err))

	var wfErr *types.Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, "b", wfErr.NodeID)
	assert.Contains(t, wfErr.Error(), "handler panic")

	require.NotNil(t, result)
	assert.Equal(t, "a", result.ContextSnapshot[NodeResultKey("a")])
}
