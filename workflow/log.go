package workflow

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogLevel classifies execution log entries.
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelSuccess LogLevel = "success"
	LevelError   LogLevel = "error"
)

// LogEntry is one structured, timestamped record of an execution.
type LogEntry struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       LogLevel       `json:"level"`
	Message     string         `json:"message"`
	ExecutionID string         `json:"execution_id"`
	Fields      map[string]any `json:"fields,omitempty"`
}

// ExecutionLog collects append-only, emission-ordered entries for one
// execution and mirrors them to the process logger.
type ExecutionLog struct {
	mu          sync.Mutex
	executionID string
	entries     []LogEntry
	logger      *zap.Logger
}

// NewExecutionLog creates a log for the given execution.
func NewExecutionLog(executionID string, logger *zap.Logger) *ExecutionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionLog{
		executionID: executionID,
		logger:      logger.With(zap.String("execution_id", executionID)),
	}
}

// Info appends an info entry.
func (l *ExecutionLog) Info(message string, fields map[string]any) {
	l.append(LevelInfo, message, fields)
}

// Success appends a success entry.
func (l *ExecutionLog) Success(message string, fields map[string]any) {
	l.append(LevelSuccess, message, fields)
}

// Error appends an error entry.
func (l *ExecutionLog) Error(message string, fields map[string]any) {
	l.append(LevelError, message, fields)
}

func (l *ExecutionLog) append(level LogLevel, message string, fields map[string]any) {
	entry := LogEntry{
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		ExecutionID: l.executionID,
		Fields:      fields,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	switch level {
	case LevelError:
		l.logger.Error(message, zapFields...)
	default:
		l.logger.Info(message, zapFields...)
	}
}

// Entries returns a copy of all entries in emission order.
func (l *ExecutionLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *ExecutionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
