package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waverun/waverun/agent"
	"github.com/waverun/waverun/internal/metrics"
)

// DelegationStep is one unit of work handed to the hierarchical
// supervisor in delegation mode.
type DelegationStep struct {
	StepID         string         `json:"step_id"`
	AgentRole      string         `json:"agent_role"`
	Prompt         string         `json:"prompt"`
	Parameters     map[string]any `json:"parameters,omitempty"`
	ToolsRequired  []string       `json:"tools_required,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
}

// StepRecord is the outcome of one delegated step. A failed delegation
// is still recorded, with Error set.
type StepRecord struct {
	Step      DelegationStep `json:"step"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// WorkflowState is the accumulated state of one delegation-mode run.
// StepsCompleted and CurrentStep grow monotonically: every step is
// attempted and recorded whether it succeeds or fails.
type WorkflowState struct {
	Vars           map[string]any `json:"vars,omitempty"`
	WorkflowID     string         `json:"workflow_id"`
	ExecutionID    string         `json:"execution_id"`
	StepsCompleted []StepRecord   `json:"steps_completed"`
	CurrentStep    int            `json:"current_step"`
	AgentHandoffs  []string       `json:"agent_handoffs,omitempty"`
	DirectResult   any            `json:"direct_execution_result,omitempty"`
	CompletedAt    time.Time      `json:"completed_at"`
}

// delegationRoles maps node types to the agent role that handles them
// in delegation mode. Unmapped types fall back to RoleExecutor.
var delegationRoles = map[NodeType]string{
	NodeManualTrigger:   agent.RoleCoordinator,
	NodeScheduleTrigger: agent.RoleCoordinator,
	NodeWebhookTrigger:  agent.RoleCoordinator,
	NodeCompletion:      agent.RoleWriter,
	NodeRAGLoad:         agent.RoleResearcher,
	NodeRAGSplit:        agent.RoleResearcher,
	NodeRAGEmbed:        agent.RoleResearcher,
	NodeRAGStore:        agent.RoleResearcher,
	NodeRAGSearch:       agent.RoleResearcher,
	NodeHTTPRequest:     agent.RoleIntegrator,
	NodeWebhookResponse: agent.RoleIntegrator,
	NodeDatabaseQuery:   agent.RoleIntegrator,
	NodeFileOperation:   agent.RoleIntegrator,
	NodeEmailSend:       agent.RoleIntegrator,
	NodeCondition:       agent.RoleCoordinator,
	NodeSwitch:          agent.RoleCoordinator,
	NodeLoop:            agent.RoleCoordinator,
	NodeMerge:           agent.RoleCoordinator,
	NodeSplit:           agent.RoleCoordinator,
	NodeTransform:       agent.RoleAnalyst,
	NodeFilter:          agent.RoleAnalyst,
	NodeAggregate:       agent.RoleAnalyst,
	NodeValidate:        agent.RoleAnalyst,
	NodeExtract:         agent.RoleAnalyst,
}

// DelegationDriver is the alternate top-level entry point: it flattens
// a workflow into a sequential list of agent delegations instead of
// running the dependency graph.
type DelegationDriver struct {
	supervisor agent.Supervisor
	engine     *Engine
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewDelegationDriver creates a driver. The engine is used for the
// direct-execution fallback when no supervisor is available.
func NewDelegationDriver(supervisor agent.Supervisor, engine *Engine, logger *zap.Logger) *DelegationDriver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DelegationDriver{
		supervisor: supervisor,
		engine:     engine,
		logger:     logger.With(zap.String("component", "delegation_driver")),
	}
}

// SetMetrics attaches a metrics collector.
func (d *DelegationDriver) SetMetrics(collector *metrics.Collector) {
	d.metrics = collector
}

// HasSupervisor reports whether a supervisor is wired in.
func (d *DelegationDriver) HasSupervisor() bool {
	return d.supervisor != nil
}

// FlattenSteps converts every workflow node, in definition order, into
// a DelegationStep using the role table.
func FlattenSteps(def *Definition) []DelegationStep {
	steps := make([]DelegationStep, 0, len(def.Nodes))
	for i := range def.Nodes {
		node := &def.Nodes[i]
		steps = append(steps, DelegationStep{
			StepID:         node.ID,
			AgentRole:      roleForNode(node),
			Prompt:         nodePrompt(node),
			Parameters:     nodeParameters(node),
			ToolsRequired:  nodeTools(node),
			ExpectedOutput: fmt.Sprintf("result of %s step %s", node.Type, node.ID),
		})
	}
	return steps
}

// Run executes the workflow in delegation mode. Every step is attempted
// in order; failures are recorded and never abort the run. When no
// supervisor is available the workflow falls back to graph execution
// and the aggregate output lands in DirectResult.
func (d *DelegationDriver) Run(ctx context.Context, def *Definition, initialState map[string]any, executionID string) (*WorkflowState, error) {
	if executionID == "" {
		executionID = uuid.NewString()
	}

	state := &WorkflowState{
		Vars:        initialState,
		WorkflowID:  def.ID,
		ExecutionID: executionID,
	}

	if d.supervisor == nil {
		d.logger.Info("no supervisor available, falling back to direct execution",
			zap.String("execution_id", executionID))
		result, err := d.engine.ExecuteWorkflow(ctx, def, fallbackInput(initialState), executionID)
		if result != nil {
			state.DirectResult = result.Output
		}
		state.CompletedAt = time.Now()
		return state, err
	}

	steps := FlattenSteps(def)
	d.logger.Info("delegation run started",
		zap.String("execution_id", executionID),
		zap.Int("steps", len(steps)),
	)

	var previousResult any
	for _, step := range steps {
		// A step without its own prompt receives the previous step's
		// serialized result instead.
		if step.Prompt == "" {
			step.Prompt = serialize(previousResult)
		}

		record := StepRecord{Step: step, Timestamp: time.Now()}
		resp, err := d.supervisor.Delegate(ctx, &agent.DelegationRequest{
			AgentRole:  step.AgentRole,
			Prompt:     step.Prompt,
			Parameters: step.Parameters,
		})
		if err != nil {
			record.Error = err.Error()
			d.observeStep("failed")
			d.logger.Warn("delegation step failed",
				zap.String("step_id", step.StepID),
				zap.String("agent_role", step.AgentRole),
				zap.Error(err),
			)
		} else {
			record.Result = resp.Response
			previousResult = resp.Response
			d.observeStep("completed")
			if resp.Agent != "" {
				state.AgentHandoffs = append(state.AgentHandoffs, resp.Agent)
			}
		}

		// CurrentStep advances whether the delegation succeeded or not.
		state.StepsCompleted = append(state.StepsCompleted, record)
		state.CurrentStep++
	}

	state.CompletedAt = time.Now()
	d.logger.Info("delegation run completed",
		zap.String("execution_id", executionID),
		zap.Int("steps_completed", state.CurrentStep),
	)
	return state, nil
}

func (d *DelegationDriver) observeStep(status string) {
	if d.metrics != nil {
		d.metrics.ObserveDelegationStep(status)
	}
}

// roleForNode resolves the agent role for a node: agent tasks carry
// their own role, everything else goes through the role table.
func roleForNode(node *Node) string {
	if cfg, ok := node.Config.(*AgentTaskConfig); ok && cfg.Role != "" {
		return cfg.Role
	}
	if role, ok := delegationRoles[node.Type]; ok {
		return role
	}
	return agent.RoleExecutor
}

// nodePrompt extracts the node's own prompt when its config carries one.
func nodePrompt(node *Node) string {
	switch cfg := node.Config.(type) {
	case *CompletionConfig:
		return cfg.PromptTemplate
	case *AgentTaskConfig:
		return cfg.Prompt
	default:
		return ""
	}
}

// nodeParameters extracts supervisor-relevant parameters from a node.
func nodeParameters(node *Node) map[string]any {
	switch cfg := node.Config.(type) {
	case *CompletionConfig:
		return map[string]any{
			"model":       cfg.Model,
			"temperature": cfg.Temperature,
			"max_tokens":  cfg.MaxTokens,
		}
	case *AgentTaskConfig:
		return cfg.Parameters
	default:
		return nil
	}
}

// nodeTools names the external tools a step needs, by handler family.
func nodeTools(node *Node) []string {
	switch node.Type {
	case NodeHTTPRequest, NodeWebhookTrigger, NodeWebhookResponse:
		return []string{"http"}
	case NodeDatabaseQuery:
		return []string{"database"}
	case NodeRAGLoad, NodeRAGSplit, NodeRAGEmbed, NodeRAGStore, NodeRAGSearch:
		return []string{"retrieval"}
	case NodeFileOperation:
		return []string{"filesystem"}
	case NodeEmailSend:
		return []string{"email"}
	default:
		return nil
	}
}

// fallbackInput picks the external input for the direct-execution
// fallback: the "input" var when present, the whole state otherwise.
func fallbackInput(initialState map[string]any) any {
	if v, ok := initialState["input"]; ok {
		return v
	}
	if initialState == nil {
		return nil
	}
	return initialState
}

func serialize(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
