package handlers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/waverun/waverun/agent"
	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// AgentHandler executes agent_task nodes by delegating to the
// configured supervisor.
type AgentHandler struct {
	supervisor agent.Supervisor
	logger     *zap.Logger
}

// NewAgentHandler creates an agent handler.
func NewAgentHandler(supervisor agent.Supervisor, logger *zap.Logger) *AgentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentHandler{supervisor: supervisor, logger: logger}
}

// Handle implements workflow.NodeHandler. When the config carries no
// prompt, the serialized predecessor results are used so the agent sees
// what the upstream nodes produced.
func (h *AgentHandler) Handle(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.supervisor == nil {
		return nil, types.NewError(types.ErrAgentDelegation, "no supervisor configured")
	}
	cfg, ok := inv.Node.Config.(*workflow.AgentTaskConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("agent_task node %s has no agent config", inv.Node.ID))
	}

	prompt := cfg.Prompt
	if prompt == "" {
		prompt = serializeValue(inv.PreviousValue())
	}

	inv.State.Log.Info(fmt.Sprintf("node %s: delegating to %s agent", inv.Node.ID, cfg.Role), nil)

	resp, err := h.supervisor.Delegate(ctx, &agent.DelegationRequest{
		AgentRole:  cfg.Role,
		Prompt:     prompt,
		Parameters: cfg.Parameters,
	})
	if err != nil {
		return nil, types.NewError(types.ErrAgentDelegation,
			fmt.Sprintf("delegation to %s agent failed: %v", cfg.Role, err)).WithCause(err).WithRetryable(true)
	}
	return map[string]any{"agent": resp.Agent, "response": resp.Response}, nil
}
