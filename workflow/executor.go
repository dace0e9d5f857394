package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/waverun/waverun/internal/metrics"
	"github.com/waverun/waverun/types"
)

// EngineConfig tunes the executor.
type EngineConfig struct {
	// MaxConcurrency bounds how many node handlers run at once within a
	// wave. Zero means unbounded fan-out, which matches the original
	// behavior but risks resource exhaustion on wide graphs.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	// NodeTimeout bounds a single node execution. Zero disables the
	// timeout; a hung collaborator then stalls the whole wave.
	NodeTimeout time.Duration `yaml:"node_timeout" json:"node_timeout"`

	// DisableCycleCheck skips cycle detection at graph build. A cyclic
	// graph then surfaces as a NoRunnableNodes error instead.
	DisableCycleCheck bool `yaml:"disable_cycle_check" json:"disable_cycle_check"`
}

// DefaultEngineConfig returns the production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrency: 8,
		NodeTimeout:    2 * time.Minute,
	}
}

// ExecutionResult is the outcome of one graph-mode execution.
type ExecutionResult struct {
	// Output is the result of the graph's terminal node(s): the bare
	// value when exactly one sink exists, a sink-id keyed map otherwise.
	Output any `json:"output"`
	// Logs holds every entry emitted up to completion or failure.
	Logs []LogEntry `json:"logs"`
	// ContextSnapshot is the final WorkflowContext contents.
	ContextSnapshot map[string]any `json:"context_snapshot"`
}

// Engine drives workflow executions. All collaborators are injected;
// the engine itself performs no I/O beyond dispatching handlers.
type Engine struct {
	registry   *Registry
	config     EngineConfig
	logger     *zap.Logger
	metrics    *metrics.Collector
	delegation *DelegationDriver
}

// NewEngine creates an engine over a handler registry.
func NewEngine(registry *Registry, config EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		config:   config,
		logger:   logger.With(zap.String("component", "engine")),
	}
}

// SetMetrics attaches a metrics collector.
func (e *Engine) SetMetrics(collector *metrics.Collector) {
	e.metrics = collector
}

// SetDelegationDriver attaches the delegation-mode driver. When set,
// Execute prefers delegation mode over graph mode.
func (e *Engine) SetDelegationDriver(driver *DelegationDriver) {
	e.delegation = driver
}

// Registry returns the handler registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Execute runs a workflow, preferring delegation mode when a supervisor
// is wired in and falling back to graph mode otherwise.
func (e *Engine) Execute(ctx context.Context, def *Definition, input any, executionID string) (any, error) {
	if e.delegation != nil && e.delegation.HasSupervisor() {
		initial := map[string]any{"input": input}
		return e.delegation.Run(ctx, def, initial, executionID)
	}
	return e.ExecuteWorkflow(ctx, def, input, executionID)
}

// ExecuteWithDelegation runs the workflow in delegation mode explicitly,
// regardless of how Execute would dispatch it.
func (e *Engine) ExecuteWithDelegation(ctx context.Context, def *Definition, initialState map[string]any, executionID string) (*WorkflowState, error) {
	driver := e.delegation
	if driver == nil {
		driver = NewDelegationDriver(nil, e, e.logger)
	}
	return driver.Run(ctx, def, initialState, executionID)
}

// ExecuteWorkflow runs the dependency graph to completion with wave
// parallelism. On failure the returned result still carries the log
// entries and context snapshot accumulated up to the failure point.
func (e *Engine) ExecuteWorkflow(ctx context.Context, def *Definition, input any, executionID string) (*ExecutionResult, error) {
	if executionID == "" {
		executionID = uuid.NewString()
	}

	start := time.Now()
	execLog := NewExecutionLog(executionID, e.logger)

	graph, err := e.buildGraph(def)
	if err != nil {
		e.observeWorkflow("build_failed", time.Since(start))
		return nil, err
	}

	state := &ExecutionState{
		ExecutionID: executionID,
		Input:       input,
		Context:     NewWorkflowContext(),
		Log:         execLog,
	}

	execLog.Info("workflow execution started", map[string]any{
		"workflow_id": def.ID,
		"nodes":       graph.Len(),
		"edges":       len(def.Edges),
	})

	results := make(map[string]any, graph.Len())
	ready := graph.ReadyNodes()
	if len(ready) == 0 && graph.Len() > 0 {
		err := types.NewError(types.ErrNoRunnableNodes,
			"no node with zero unresolved dependencies; graph is likely cyclic")
		execLog.Error(err.Message, nil)
		e.observeWorkflow("failed", time.Since(start))
		return e.failedResult(state), err
	}

	executed := 0
	for len(ready) > 0 {
		wave := ready
		ready = nil

		if e.metrics != nil {
			e.metrics.ObserveWaveSize(len(wave))
		}
		execLog.Info("wave started", map[string]any{"nodes": wave})

		outcomes, waveErr := e.runWave(ctx, graph, wave, results, state)
		if waveErr != nil {
			// Results of siblings that completed in the failing wave are
			// deliberately discarded.
			execLog.Error("wave failed", map[string]any{"error": waveErr.Error()})
			e.observeWorkflow("failed", time.Since(start))
			return e.failedResult(state), waveErr
		}

		// Wave barrier: commit results and unlock dependents only after
		// every node in the wave has settled.
		for _, id := range wave {
			result := outcomes[id]
			results[id] = result
			state.Context.Set(NodeResultKey(id), result)
			executed++
			ready = append(ready, graph.Resolve(id)...)
		}
	}

	if executed < graph.Len() {
		err := types.NewError(types.ErrNoRunnableNodes,
			fmt.Sprintf("workflow stalled: %d of %d nodes never became ready", graph.Len()-executed, graph.Len()))
		execLog.Error(err.Message, nil)
		e.observeWorkflow("failed", time.Since(start))
		return e.failedResult(state), err
	}

	output := e.collectOutput(graph, results)
	execLog.Success("workflow execution completed", map[string]any{
		"nodes_executed": executed,
		"duration_ms":    time.Since(start).Milliseconds(),
	})
	e.observeWorkflow("completed", time.Since(start))

	return &ExecutionResult{
		Output:          output,
		Logs:            execLog.Entries(),
		ContextSnapshot: state.Context.Snapshot(),
	}, nil
}

// buildGraph constructs and validates the execution graph, including
// the upfront handler lookup so an unknown node type fails before any
// node executes.
func (e *Engine) buildGraph(def *Definition) (*ExecutionGraph, error) {
	graph, err := BuildGraph(def)
	if err != nil {
		return nil, err
	}
	if !e.config.DisableCycleCheck {
		if err := graph.DetectCycle(); err != nil {
			return nil, err
		}
	}
	for _, id := range graph.NodeIDs() {
		node, _ := graph.Node(id)
		if _, err := e.registry.Handler(node.Type); err != nil {
			return nil, err
		}
	}
	return graph, nil
}

// runWave executes every node in the wave concurrently and returns the
// per-node outcomes once all of them have settled. The first failure is
// returned as a NodeExecutionError; outcomes are then meaningless.
func (e *Engine) runWave(ctx context.Context, graph *ExecutionGraph, wave []string, results map[string]any, state *ExecutionState) (map[string]any, error) {
	type outcome struct {
		id     string
		result any
	}

	outcomes := make([]outcome, len(wave))
	g := new(errgroup.Group)
	if e.config.MaxConcurrency > 0 {
		g.SetLimit(e.config.MaxConcurrency)
	}

	for i, id := range wave {
		i, id := i, id
		node, _ := graph.Node(id)

		previous := make(map[string]any, len(graph.Dependencies(id)))
		for _, dep := range graph.Dependencies(id) {
			previous[dep] = results[dep]
		}

		g.Go(func() error {
			result, err := e.runNode(ctx, node, previous, state)
			if err != nil {
				return err
			}
			outcomes[i] = outcome{id: id, result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(outcomes))
	for _, o := range outcomes {
		out[o.id] = o.result
	}
	return out, nil
}

// runNode dispatches one node to its handler under the configured
// per-node timeout and wraps any failure with the node id and elapsed
// time.
func (e *Engine) runNode(ctx context.Context, node *Node, previous map[string]any, state *ExecutionState) (any, error) {
	handler, err := e.registry.Handler(node.Type)
	if err != nil {
		return nil, err
	}

	if e.config.NodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.NodeTimeout)
		defer cancel()
	}

	state.Log.Info("node started", map[string]any{
		"node_id":   node.ID,
		"node_type": string(node.Type),
	})

	start := time.Now()
	result, err := safeHandle(ctx, handler, &Invocation{
		Node:     node,
		Previous: previous,
		State:    state,
	})
	elapsed := time.Since(start)

	if err != nil {
		e.observeNode(node.Type, "failed", elapsed)
		state.Log.Error("node failed", map[string]any{
			"node_id":    node.ID,
			"node_type":  string(node.Type),
			"elapsed_ms": elapsed.Milliseconds(),
			"error":      err.Error(),
		})
		code := types.ErrNodeExecution
		if ctx.Err() == context.DeadlineExceeded {
			code = types.ErrNodeTimeout
		}
		return nil, types.NewError(code, "node execution failed").
			WithNodeID(node.ID).
			WithElapsed(elapsed).
			WithCause(err)
	}

	e.observeNode(node.Type, "completed", elapsed)
	state.Log.Success("node completed", map[string]any{
		"node_id":    node.ID,
		"node_type":  string(node.Type),
		"elapsed_ms": elapsed.Milliseconds(),
	})
	return result, nil
}

// safeHandle invokes the handler and converts a panic into an error, so
// a misbehaving handler fails its node instead of taking down the whole
// execution.
func safeHandle(ctx context.Context, handler NodeHandler, inv *Invocation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, inv)
}

// collectOutput assembles the final output from the graph's sink nodes.
func (e *Engine) collectOutput(graph *ExecutionGraph, results map[string]any) any {
	sinks := graph.SinkNodes()
	if len(sinks) == 1 {
		return results[sinks[0]]
	}
	out := make(map[string]any, len(sinks))
	for _, id := range sinks {
		out[id] = results[id]
	}
	return out
}

func (e *Engine) failedResult(state *ExecutionState) *ExecutionResult {
	return &ExecutionResult{
		Logs:            state.Log.Entries(),
		ContextSnapshot: state.Context.Snapshot(),
	}
}

func (e *Engine) observeWorkflow(status string, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.ObserveWorkflow(status, elapsed)
	}
}

func (e *Engine) observeNode(nodeType NodeType, status string, elapsed time.Duration) {
	if e.metrics != nil {
		e.metrics.ObserveNode(string(nodeType), status, elapsed)
	}
}
