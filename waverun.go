// Package waverun provides a top-level convenience entry point for
// building and executing workflow graphs with minimal boilerplate.
//
// Usage:
//
//	import "github.com/waverun/waverun"
//
//	run, err := waverun.New(
//	    waverun.WithCompletionProvider(provider),
//	    waverun.WithEmbeddingProvider(embedder),
//	)
//	out, err := run.Execute(ctx, definition, input)
//
// Every collaborator is optional; workflows only fail when a node
// actually needs an absent one.
package waverun

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/waverun/waverun/agent"
	"github.com/waverun/waverun/config"
	"github.com/waverun/waverun/integrations"
	"github.com/waverun/waverun/internal/metrics"
	"github.com/waverun/waverun/llm"
	"github.com/waverun/waverun/rag"
	"github.com/waverun/waverun/workflow"
	"github.com/waverun/waverun/workflow/handlers"
)

// Runner bundles an engine, its registry, and the delegation driver
// behind one execution surface.
type Runner struct {
	engine *workflow.Engine
	driver *workflow.DelegationDriver
}

type options struct {
	completion llm.CompletionProvider
	tokens     *llm.TokenEstimator
	embedding  llm.EmbeddingProvider
	supervisor agent.Supervisor
	httpCaller integrations.HTTPCaller
	db         integrations.QueryRunner
	trigger    handlers.TriggerSource
	newStore   handlers.StoreFactory
	chunking   rag.ChunkingConfig
	engine     workflow.EngineConfig
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// Option configures the Runner created by [New].
type Option func(*options)

// WithCompletionProvider sets the provider backing llm_completion nodes.
func WithCompletionProvider(p llm.CompletionProvider) Option {
	return func(o *options) { o.completion = p }
}

// WithTokenEstimator sets the estimator used to log prompt sizes.
func WithTokenEstimator(t *llm.TokenEstimator) Option {
	return func(o *options) { o.tokens = t }
}

// WithEmbeddingProvider sets the provider backing rag_embed and
// rag_search nodes.
func WithEmbeddingProvider(p llm.EmbeddingProvider) Option {
	return func(o *options) { o.embedding = p }
}

// WithSupervisor sets the supervisor backing agent_task nodes and
// enables delegation-mode execution.
func WithSupervisor(s agent.Supervisor) Option {
	return func(o *options) { o.supervisor = s }
}

// WithHTTPCaller sets the transport backing http_request nodes.
func WithHTTPCaller(c integrations.HTTPCaller) Option {
	return func(o *options) { o.httpCaller = c }
}

// WithQueryRunner sets the runner backing database_query nodes.
func WithQueryRunner(r integrations.QueryRunner) Option {
	return func(o *options) { o.db = r }
}

// WithTriggerSource sets the payload source for schedule and webhook
// triggers.
func WithTriggerSource(s handlers.TriggerSource) Option {
	return func(o *options) { o.trigger = s }
}

// WithVectorStoreFactory sets the factory building per-execution
// retrieval indexes. The default builds in-memory stores.
func WithVectorStoreFactory(f handlers.StoreFactory) Option {
	return func(o *options) { o.newStore = f }
}

// WithChunking sets the default fixed-window chunking parameters.
func WithChunking(cfg rag.ChunkingConfig) Option {
	return func(o *options) { o.chunking = cfg }
}

// WithMaxConcurrency bounds per-wave parallelism. Zero removes the
// bound.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.engine.MaxConcurrency = n }
}

// WithNodeTimeout sets the per-node execution deadline.
func WithNodeTimeout(d time.Duration) Option {
	return func(o *options) { o.engine.NodeTimeout = d }
}

// WithEngineConfig replaces the whole engine configuration.
func WithEngineConfig(cfg workflow.EngineConfig) Option {
	return func(o *options) { o.engine = cfg }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *options) { o.metrics = collector }
}

// FromConfig derives engine and chunking options from a loaded
// configuration.
func FromConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.engine.MaxConcurrency = cfg.Engine.MaxConcurrency
		o.engine.NodeTimeout = cfg.Engine.NodeTimeout
		o.chunking = rag.ChunkingConfig{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
		}
	}
}

// New creates a Runner with the default handler families registered.
func New(opts ...Option) (*Runner, error) {
	o := options{engine: workflow.DefaultEngineConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	registry := workflow.NewRegistry()
	handlers.RegisterDefaults(registry, handlers.Dependencies{
		Completion: o.completion,
		Tokens:     o.tokens,
		Embedding:  o.embedding,
		Supervisor: o.supervisor,
		HTTP:       o.httpCaller,
		DB:         o.db,
		Trigger:    o.trigger,
		NewStore:   o.newStore,
		Chunking:   o.chunking,
		Logger:     o.logger,
	})

	engine := workflow.NewEngine(registry, o.engine, o.logger)
	driver := workflow.NewDelegationDriver(o.supervisor, engine, o.logger)
	engine.SetDelegationDriver(driver)
	if o.metrics != nil {
		engine.SetMetrics(o.metrics)
		driver.SetMetrics(o.metrics)
	}

	return &Runner{engine: engine, driver: driver}, nil
}

// Engine exposes the underlying workflow engine, for callers that need
// registry access or the full ExecutionResult.
func (r *Runner) Engine() *workflow.Engine {
	return r.engine
}

// Execute runs a workflow definition. With a supervisor configured the
// definition is flattened and delegated step by step; otherwise it runs
// wave-parallel and returns the sink output.
func (r *Runner) Execute(ctx context.Context, def *workflow.Definition, input any) (any, error) {
	return r.engine.Execute(ctx, def, input, "")
}

// ExecuteWorkflow always runs wave-parallel and returns the full
// execution result with logs and the final context snapshot.
func (r *Runner) ExecuteWorkflow(ctx context.Context, def *workflow.Definition, input any) (*workflow.ExecutionResult, error) {
	return r.engine.ExecuteWorkflow(ctx, def, input, "")
}

// Delegate runs the definition in delegation mode regardless of how
// Execute would dispatch it.
func (r *Runner) Delegate(ctx context.Context, def *workflow.Definition, initialState map[string]any) (*workflow.WorkflowState, error) {
	return r.driver.Run(ctx, def, initialState, "")
}
