package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Graph construction and scheduling error codes
const (
	ErrGraphConstruction ErrorCode = "GRAPH_CONSTRUCTION"
	ErrCycleDetected     ErrorCode = "CYCLE_DETECTED"
	ErrNoRunnableNodes   ErrorCode = "NO_RUNNABLE_NODES"
	ErrUnknownNodeType   ErrorCode = "UNKNOWN_NODE_TYPE"
	ErrInvalidNodeConfig ErrorCode = "INVALID_NODE_CONFIG"
)

// Execution error codes
const (
	ErrNodeExecution ErrorCode = "NODE_EXECUTION"
	ErrNodeTimeout   ErrorCode = "NODE_TIMEOUT"
)

// Upstream collaborator error codes
const (
	ErrUpstreamService   ErrorCode = "UPSTREAM_SERVICE"
	ErrCompletionService ErrorCode = "COMPLETION_SERVICE"
	ErrEmbeddingService  ErrorCode = "EMBEDDING_SERVICE"
	ErrIntegrationCall   ErrorCode = "INTEGRATION_CALL"
	ErrAgentDelegation   ErrorCode = "AGENT_DELEGATION"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode     `json:"code"`
	Message   string        `json:"message"`
	NodeID    string        `json:"node_id,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.NodeID != "" && e.Cause != nil:
		return fmt.Sprintf("[%s] node %s: %s: %v", e.Code, e.NodeID, e.Message, e.Cause)
	case e.NodeID != "":
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithNodeID attaches the originating node id.
func (e *Error) WithNodeID(nodeID string) *Error {
	e.NodeID = nodeID
	return e
}

// WithElapsed records the time spent before the failure.
func (e *Error) WithElapsed(elapsed time.Duration) *Error {
	e.Elapsed = elapsed
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err (or any error it wraps) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
