// Package agent defines the contract between the engine and an external
// hierarchical multi-agent supervisor. The supervisor's internal
// reasoning is out of scope; the engine only depends on the
// delegate-request/response shape.
package agent

import "context"

// DelegationRequest asks the supervisor to run one unit of work under a
// given agent role.
type DelegationRequest struct {
	AgentRole  string         `json:"agent_role"`
	Prompt     string         `json:"prompt"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// DelegationResponse is the supervisor's answer: which concrete agent
// handled the work and what it produced.
type DelegationResponse struct {
	Agent    string `json:"agent"`
	Response any    `json:"response"`
}

// Supervisor is the agent-execution endpoint contract.
type Supervisor interface {
	Delegate(ctx context.Context, req *DelegationRequest) (*DelegationResponse, error)
}

// SupervisorFunc adapts a plain function to Supervisor.
type SupervisorFunc func(ctx context.Context, req *DelegationRequest) (*DelegationResponse, error)

// Delegate implements Supervisor.
func (f SupervisorFunc) Delegate(ctx context.Context, req *DelegationRequest) (*DelegationResponse, error) {
	return f(ctx, req)
}

// Built-in agent roles used by the delegation-mode role table.
const (
	RoleCoordinator = "coordinator"
	RoleResearcher  = "researcher"
	RoleAnalyst     = "analyst"
	RoleWriter      = "writer"
	RoleIntegrator  = "integrator"
	RoleExecutor    = "executor"
)
