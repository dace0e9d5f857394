package handlers

import (
	"go.uber.org/zap"

	"github.com/waverun/waverun/agent"
	"github.com/waverun/waverun/integrations"
	"github.com/waverun/waverun/llm"
	"github.com/waverun/waverun/rag"
	"github.com/waverun/waverun/workflow"
)

// Dependencies carries the collaborators the default handler families
// need. Any field may be nil; nodes requiring an absent collaborator
// fail at execution time with a descriptive error.
type Dependencies struct {
	Completion llm.CompletionProvider
	Tokens     *llm.TokenEstimator
	Embedding  llm.EmbeddingProvider
	Supervisor agent.Supervisor
	HTTP       integrations.HTTPCaller
	DB         integrations.QueryRunner
	Trigger    TriggerSource
	NewStore   StoreFactory
	Chunking   rag.ChunkingConfig
	Logger     *zap.Logger
}

// RegisterDefaults binds the built-in handler families to every
// built-in node type. Callers can re-register individual types
// afterwards to override a family member.
func RegisterDefaults(reg *workflow.Registry, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reg.Register(NewTriggerHandler(deps.Trigger, logger),
		workflow.NodeManualTrigger, workflow.NodeScheduleTrigger, workflow.NodeWebhookTrigger)

	reg.Register(NewCompletionHandler(deps.Completion, deps.Tokens, logger),
		workflow.NodeCompletion)

	reg.Register(NewRAGHandler(deps.Embedding, deps.NewStore, deps.Chunking, logger),
		workflow.NodeRAGLoad, workflow.NodeRAGSplit, workflow.NodeRAGEmbed,
		workflow.NodeRAGStore, workflow.NodeRAGSearch)

	reg.Register(NewAgentHandler(deps.Supervisor, logger),
		workflow.NodeAgentTask)

	reg.Register(NewIntegrationHandler(deps.HTTP, deps.DB, logger),
		workflow.NodeHTTPRequest, workflow.NodeWebhookResponse, workflow.NodeDatabaseQuery,
		workflow.NodeFileOperation, workflow.NodeEmailSend)

	reg.Register(NewLogicHandler(logger),
		workflow.NodeCondition, workflow.NodeSwitch, workflow.NodeLoop,
		workflow.NodeMerge, workflow.NodeSplit)

	reg.Register(NewDataHandler(logger),
		workflow.NodeTransform, workflow.NodeFilter, workflow.NodeAggregate,
		workflow.NodeValidate, workflow.NodeExtract)
}
