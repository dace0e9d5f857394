package workflow

import (
	"fmt"

	"github.com/waverun/waverun/rag"
	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow/expr"
)

// NodeType identifies which handler family executes a node.
type NodeType string

// Trigger nodes
const (
	NodeManualTrigger   NodeType = "manual_trigger"
	NodeScheduleTrigger NodeType = "schedule_trigger"
	NodeWebhookTrigger  NodeType = "webhook_trigger"
)

// Model completion node
const (
	NodeCompletion NodeType = "llm_completion"
)

// RAG pipeline nodes
const (
	NodeRAGLoad   NodeType = "rag_load"
	NodeRAGSplit  NodeType = "rag_split"
	NodeRAGEmbed  NodeType = "rag_embed"
	NodeRAGStore  NodeType = "rag_store"
	NodeRAGSearch NodeType = "rag_search"
)

// Multi-agent delegation node
const (
	NodeAgentTask NodeType = "agent_task"
)

// Integration nodes
const (
	NodeHTTPRequest     NodeType = "http_request"
	NodeWebhookResponse NodeType = "webhook_response"
	NodeDatabaseQuery   NodeType = "database_query"
	NodeFileOperation   NodeType = "file_operation"
	NodeEmailSend       NodeType = "email_send"
)

// Logic nodes
const (
	NodeCondition NodeType = "condition"
	NodeSwitch    NodeType = "switch"
	NodeLoop      NodeType = "loop"
	NodeMerge     NodeType = "merge"
	NodeSplit     NodeType = "split"
)

// Data nodes
const (
	NodeTransform NodeType = "transform"
	NodeFilter    NodeType = "filter"
	NodeAggregate NodeType = "aggregate"
	NodeValidate  NodeType = "validate"
	NodeExtract   NodeType = "extract"
)

// Node is one typed unit of work in a workflow.
type Node struct {
	ID     string     `json:"id"`
	Type   NodeType   `json:"type"`
	Config NodeConfig `json:"config,omitempty"`
}

// Edge is a directed dependency: Target runs after Source settles.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Definition is an immutable workflow description: nodes plus edges.
type Definition struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeConfig is the tagged per-type configuration variant. Each node
// type carries only the fields it uses, and configs are checked when the
// graph is built rather than when the node executes.
type NodeConfig interface {
	Validate() error
}

// TriggerConfig configures trigger nodes. Payload overrides the external
// input for manual triggers; Schedule is passed to the trigger source.
type TriggerConfig struct {
	Payload  any    `json:"payload,omitempty"`
	Schedule string `json:"schedule,omitempty"`
}

func (c *TriggerConfig) Validate() error { return nil }

// CompletionConfig configures a model-completion node.
type CompletionConfig struct {
	PromptTemplate string  `json:"prompt_template"`
	Model          string  `json:"model"`
	Temperature    float64 `json:"temperature,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
}

func (c *CompletionConfig) Validate() error {
	if c.PromptTemplate == "" {
		return fmt.Errorf("prompt_template is required")
	}
	return nil
}

// RAGLoadConfig supplies the documents a load node passes through.
type RAGLoadConfig struct {
	Documents []rag.Document `json:"documents,omitempty"`
}

func (c *RAGLoadConfig) Validate() error { return nil }

// RAGSplitConfig configures fixed-window chunking.
type RAGSplitConfig struct {
	ChunkSize    int `json:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty"`
}

func (c *RAGSplitConfig) Validate() error {
	if c.ChunkSize < 0 || c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_size and chunk_overlap must be non-negative")
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}
	return nil
}

// RAGEmbedConfig configures the embed step.
type RAGEmbedConfig struct{}

func (c *RAGEmbedConfig) Validate() error { return nil }

// RAGStoreConfig configures the store step.
type RAGStoreConfig struct{}

func (c *RAGStoreConfig) Validate() error { return nil }

// RAGSearchConfig configures a similarity search.
type RAGSearchConfig struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

func (c *RAGSearchConfig) Validate() error {
	if c.Query == "" {
		return fmt.Errorf("query is required")
	}
	if c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative")
	}
	return nil
}

// AgentTaskConfig configures a delegated agent node.
type AgentTaskConfig struct {
	Role       string         `json:"role"`
	Prompt     string         `json:"prompt,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

func (c *AgentTaskConfig) Validate() error {
	if c.Role == "" {
		return fmt.Errorf("role is required")
	}
	return nil
}

// HTTPRequestConfig configures an outbound HTTP node. When Body is nil
// the previous node's result is sent.
type HTTPRequestConfig struct {
	Method  string            `json:"method,omitempty"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    any               `json:"body,omitempty"`
}

func (c *HTTPRequestConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// WebhookResponseConfig configures a webhook acknowledgment node.
type WebhookResponseConfig struct {
	StatusCode int `json:"status_code,omitempty"`
}

func (c *WebhookResponseConfig) Validate() error { return nil }

// DatabaseQueryConfig configures a relational query node.
type DatabaseQueryConfig struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

func (c *DatabaseQueryConfig) Validate() error {
	if c.SQL == "" {
		return fmt.Errorf("sql is required")
	}
	return nil
}

// FileOperationConfig configures a file-operation node (pass-through
// stub; no filesystem transport in scope).
type FileOperationConfig struct {
	Operation string `json:"operation"`
	Path      string `json:"path,omitempty"`
}

func (c *FileOperationConfig) Validate() error { return nil }

// EmailSendConfig configures an email node (acknowledgment stub).
type EmailSendConfig struct {
	To      []string `json:"to,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Body    string   `json:"body,omitempty"`
}

func (c *EmailSendConfig) Validate() error { return nil }

// ConditionConfig configures a boolean branch over the previous result.
// Expression uses the sandboxed grammar from workflow/expr evaluated
// against a `data` binding.
type ConditionConfig struct {
	Expression string `json:"expression"`
	TrueValue  any    `json:"true_value"`
	FalseValue any    `json:"false_value"`
}

func (c *ConditionConfig) Validate() error {
	if c.Expression == "" {
		return fmt.Errorf("expression is required")
	}
	if _, err := expr.Parse(c.Expression); err != nil {
		return err
	}
	return nil
}

// SwitchConfig selects a case by dotted-path extraction from the
// previous result. A nil Default falls back to the raw previous result.
type SwitchConfig struct {
	Path    string         `json:"path"`
	Cases   map[string]any `json:"cases"`
	Default any            `json:"default,omitempty"`
}

func (c *SwitchConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// LoopItemsConfig configures a loop node. Iteration is pass-through:
// each item is collected unchanged.
type LoopItemsConfig struct {
	Items []any `json:"items,omitempty"`
}

func (c *LoopItemsConfig) Validate() error { return nil }

// MergeConfig configures a merge node.
type MergeConfig struct{}

func (c *MergeConfig) Validate() error { return nil }

// SplitListConfig configures a split node.
type SplitListConfig struct{}

func (c *SplitListConfig) Validate() error { return nil }

// TransformConfig maps output keys to dotted source paths.
type TransformConfig struct {
	Mapping map[string]string `json:"mapping"`
}

func (c *TransformConfig) Validate() error {
	if len(c.Mapping) == 0 {
		return fmt.Errorf("mapping is required")
	}
	return nil
}

// FilterConfig configures a filter node. Criteria evaluation is not yet
// specified; the handler passes every item through.
type FilterConfig struct {
	Criteria string `json:"criteria,omitempty"`
}

func (c *FilterConfig) Validate() error { return nil }

// AggregateConfig configures count/sum/average over a list field.
type AggregateConfig struct {
	Operation string `json:"operation"`
	Field     string `json:"field,omitempty"`
}

func (c *AggregateConfig) Validate() error {
	switch c.Operation {
	case "count":
		return nil
	case "sum", "average":
		if c.Field == "" {
			return fmt.Errorf("field is required for %s", c.Operation)
		}
		return nil
	default:
		return fmt.Errorf("unknown aggregate operation %q", c.Operation)
	}
}

// ValidateConfig configures a validate node (always-valid stub).
type ValidateConfig struct {
	Rules map[string]string `json:"rules,omitempty"`
}

func (c *ValidateConfig) Validate() error { return nil }

// ExtractConfig projects the named fields from each item.
type ExtractConfig struct {
	Fields []string `json:"fields"`
}

func (c *ExtractConfig) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("fields is required")
	}
	return nil
}

// expectedConfigs maps node types to a zero value of the config variant
// they require. Types absent from the map accept a nil config.
var expectedConfigs = map[NodeType]NodeConfig{
	NodeManualTrigger:   &TriggerConfig{},
	NodeScheduleTrigger: &TriggerConfig{},
	NodeWebhookTrigger:  &TriggerConfig{},
	NodeCompletion:      &CompletionConfig{},
	NodeRAGLoad:         &RAGLoadConfig{},
	NodeRAGSplit:        &RAGSplitConfig{},
	NodeRAGEmbed:        &RAGEmbedConfig{},
	NodeRAGStore:        &RAGStoreConfig{},
	NodeRAGSearch:       &RAGSearchConfig{},
	NodeAgentTask:       &AgentTaskConfig{},
	NodeHTTPRequest:     &HTTPRequestConfig{},
	NodeWebhookResponse: &WebhookResponseConfig{},
	NodeDatabaseQuery:   &DatabaseQueryConfig{},
	NodeFileOperation:   &FileOperationConfig{},
	NodeEmailSend:       &EmailSendConfig{},
	NodeCondition:       &ConditionConfig{},
	NodeSwitch:          &SwitchConfig{},
	NodeLoop:            &LoopItemsConfig{},
	NodeMerge:           &MergeConfig{},
	NodeSplit:           &SplitListConfig{},
	NodeTransform:       &TransformConfig{},
	NodeFilter:          &FilterConfig{},
	NodeAggregate:       &AggregateConfig{},
	NodeValidate:        &ValidateConfig{},
	NodeExtract:         &ExtractConfig{},
}

// requiredConfigs lists node types whose config cannot be nil.
var requiredConfigs = map[NodeType]bool{
	NodeCompletion:    true,
	NodeRAGSearch:     true,
	NodeAgentTask:     true,
	NodeHTTPRequest:   true,
	NodeDatabaseQuery: true,
	NodeCondition:     true,
	NodeSwitch:        true,
	NodeTransform:     true,
	NodeAggregate:     true,
	NodeExtract:       true,
}

// validateNodeConfig checks a node's config variant matches its type and
// passes the variant's own validation. Called at graph build time.
func validateNodeConfig(node *Node) error {
	expected, known := expectedConfigs[node.Type]
	if !known {
		// Custom node types registered by callers validate themselves.
		if node.Config != nil {
			return node.Config.Validate()
		}
		return nil
	}

	if node.Config == nil {
		if requiredConfigs[node.Type] {
			return types.NewError(types.ErrInvalidNodeConfig,
				fmt.Sprintf("node type %s requires a config", node.Type)).WithNodeID(node.ID)
		}
		return nil
	}

	if fmt.Sprintf("%T", node.Config) != fmt.Sprintf("%T", expected) {
		return types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("node type %s expects %T, got %T", node.Type, expected, node.Config)).WithNodeID(node.ID)
	}

	if err := node.Config.Validate(); err != nil {
		return types.NewError(types.ErrInvalidNodeConfig, err.Error()).WithNodeID(node.ID).WithCause(err)
	}
	return nil
}
