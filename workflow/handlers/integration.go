package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/waverun/waverun/integrations"
	"github.com/waverun/waverun/types"
	"github.com/waverun/waverun/workflow"
)

// IntegrationHandler executes the outward-facing node family: HTTP
// calls, webhook acknowledgments, database queries, and the file and
// email stubs.
type IntegrationHandler struct {
	http   integrations.HTTPCaller
	db     integrations.QueryRunner
	logger *zap.Logger
}

// NewIntegrationHandler creates an integration handler. Either
// collaborator may be nil; the corresponding node types then fail with
// a configuration error at execution time.
func NewIntegrationHandler(httpCaller integrations.HTTPCaller, db integrations.QueryRunner, logger *zap.Logger) *IntegrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntegrationHandler{http: httpCaller, db: db, logger: logger}
}

// Handle implements workflow.NodeHandler.
func (h *IntegrationHandler) Handle(ctx context.Context, inv *workflow.Invocation) (any, error) {
	switch inv.Node.Type {
	case workflow.NodeHTTPRequest:
		return h.httpRequest(ctx, inv)
	case workflow.NodeWebhookResponse:
		return h.webhookResponse(inv)
	case workflow.NodeDatabaseQuery:
		return h.databaseQuery(ctx, inv)
	case workflow.NodeFileOperation:
		return h.fileOperation(inv)
	case workflow.NodeEmailSend:
		return h.emailSend(inv)
	default:
		return nil, types.NewError(types.ErrUnknownNodeType,
			fmt.Sprintf("integration handler cannot execute node type %q", inv.Node.Type))
	}
}

// httpRequest sends the configured body, or the previous node's result
// when the config leaves the body nil. Non-2xx responses are returned
// as results; only transport failures are errors.
func (h *IntegrationHandler) httpRequest(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.http == nil {
		return nil, types.NewError(types.ErrIntegrationCall, "no HTTP caller configured")
	}
	cfg, ok := inv.Node.Config.(*workflow.HTTPRequestConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("http_request node %s has no request config", inv.Node.ID))
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	body := cfg.Body
	if body == nil && method != http.MethodGet {
		body = inv.PreviousValue()
	}

	inv.State.Log.Info(fmt.Sprintf("node %s: %s %s", inv.Node.ID, method, cfg.URL), nil)

	resp, err := h.http.Do(ctx, &integrations.HTTPRequest{
		Method:  method,
		URL:     cfg.URL,
		Headers: cfg.Headers,
		Body:    body,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"status": resp.Status, "data": resp.Data, "headers": resp.Headers}, nil
}

func (h *IntegrationHandler) webhookResponse(inv *workflow.Invocation) (any, error) {
	status := http.StatusOK
	if cfg, ok := inv.Node.Config.(*workflow.WebhookResponseConfig); ok && cfg.StatusCode > 0 {
		status = cfg.StatusCode
	}
	return map[string]any{"acknowledged": true, "status_code": status}, nil
}

func (h *IntegrationHandler) databaseQuery(ctx context.Context, inv *workflow.Invocation) (any, error) {
	if h.db == nil {
		return nil, types.NewError(types.ErrIntegrationCall, "no query runner configured")
	}
	cfg, ok := inv.Node.Config.(*workflow.DatabaseQueryConfig)
	if !ok {
		return nil, types.NewError(types.ErrInvalidNodeConfig,
			fmt.Sprintf("database_query node %s has no query config", inv.Node.ID))
	}

	result, err := h.db.Query(ctx, &integrations.QueryRequest{SQL: cfg.SQL, Params: cfg.Params})
	if err != nil {
		return nil, types.NewError(types.ErrIntegrationCall,
			fmt.Sprintf("database query failed: %v", err)).WithCause(err).WithRetryable(true)
	}
	return map[string]any{"rows": result.Rows, "row_count": result.RowCount}, nil
}

// fileOperation acknowledges the requested operation without touching a
// filesystem; a storage transport can replace this handler through the
// registry.
func (h *IntegrationHandler) fileOperation(inv *workflow.Invocation) (any, error) {
	out := map[string]any{"status": "completed"}
	if cfg, ok := inv.Node.Config.(*workflow.FileOperationConfig); ok {
		out["operation"] = cfg.Operation
		out["path"] = cfg.Path
	}
	return out, nil
}

// emailSend acknowledges the send without a mail transport.
func (h *IntegrationHandler) emailSend(inv *workflow.Invocation) (any, error) {
	out := map[string]any{
		"sent":      true,
		"queued_at": time.Now().UTC().Format(time.RFC3339),
	}
	if cfg, ok := inv.Node.Config.(*workflow.EmailSendConfig); ok {
		out["to"] = cfg.To
		out["subject"] = cfg.Subject
	}
	return out, nil
}
