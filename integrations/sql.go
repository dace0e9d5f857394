package integrations

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/waverun/waverun/types"
)

// QueryRequest is a parameterized relational query.
type QueryRequest struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// QueryResult carries the rows and row count of a query.
type QueryResult struct {
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// QueryRunner is the relational datastore contract consumed by
// database-query nodes.
type QueryRunner interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResult, error)
}

// GormRunner executes queries through a gorm connection.
type GormRunner struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRunner creates a runner over an existing gorm connection.
func NewGormRunner(db *gorm.DB, logger *zap.Logger) (*GormRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormRunner{
		db:     db,
		logger: logger.With(zap.String("component", "query_runner")),
	}, nil
}

// Query runs a raw parameterized query and scans the rows into maps.
func (r *GormRunner) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	var rows []map[string]any
	tx := r.db.WithContext(ctx).Raw(req.SQL, req.Params...).Scan(&rows)
	if tx.Error != nil {
		return nil, types.NewError(types.ErrIntegrationCall, "query failed").WithCause(tx.Error)
	}

	r.logger.Debug("query executed", zap.Int("rows", len(rows)))
	return &QueryResult{Rows: rows, RowCount: len(rows)}, nil
}

// SQLRunner executes queries through a plain database/sql handle, for
// callers that manage their own pool without gorm.
type SQLRunner struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLRunner creates a runner over an existing *sql.DB.
func NewSQLRunner(db *sql.DB, logger *zap.Logger) (*SQLRunner, error) {
	if db == nil {
		return nil, fmt.Errorf("sql db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLRunner{
		db:     db,
		logger: logger.With(zap.String("component", "sql_runner")),
	}, nil
}

// Query runs a parameterized query and scans the rows into maps.
func (r *SQLRunner) Query(ctx context.Context, req *QueryRequest) (*QueryResult, error) {
	rows, err := r.db.QueryContext(ctx, req.SQL, req.Params...)
	if err != nil {
		return nil, types.NewError(types.ErrIntegrationCall, "query failed").WithCause(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, types.NewError(types.ErrIntegrationCall, "read columns").WithCause(err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, types.NewError(types.ErrIntegrationCall, "scan row").WithCause(err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewError(types.ErrIntegrationCall, "iterate rows").WithCause(err)
	}

	r.logger.Debug("query executed", zap.Int("rows", len(result)))
	return &QueryResult{Rows: result, RowCount: len(result)}, nil
}
