package integrations

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/waverun/waverun/types"
)

func newTestGormDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE TABLE contacts (id INTEGER PRIMARY KEY, name TEXT, city TEXT)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO contacts (name, city) VALUES (?, ?), (?, ?)`,
		"ada", "london", "grace", "nyc").Error)
	return db
}

func TestGormRunner_Query_Rows(t *testing.T) {
	t.Parallel()
	runner, err := NewGormRunner(newTestGormDB(t), zap.NewNop())
	require.NoError(t, err)

	result, err := runner.Query(context.Background(), &QueryRequest{
		SQL:    `SELECT name, city FROM contacts WHERE city = ? ORDER BY name`,
		Params: []any{"london"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.RowCount)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "ada", result.Rows[0]["name"])
}

func TestGormRunner_Query_Empty(t *testing.T) {
	t.Parallel()
	runner, err := NewGormRunner(newTestGormDB(t), zap.NewNop())
	require.NoError(t, err)

	result, err := runner.Query(context.Background(), &QueryRequest{
		SQL: `SELECT * FROM contacts WHERE city = 'nowhere'`,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowCount)
}

func TestGormRunner_Query_BadSQL(t *testing.T) {
	t.Parallel()
	runner, err := NewGormRunner(newTestGormDB(t), zap.NewNop())
	require.NoError(t, err)

	_, err = runner.Query(context.Background(), &QueryRequest{SQL: `SELECT * FROM missing_table`})
	require.Error(t, err)
	assert.Equal(t, types.ErrIntegrationCall, types.GetErrorCode(err))
}

func TestNewGormRunner_NilDB(t *testing.T) {
	t.Parallel()
	_, err := NewGormRunner(nil, zap.NewNop())
	assert.Error(t, err)
}

func TestSQLRunner_Query_Rows(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id, name FROM users`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(1, "ada").
			AddRow(2, "grace"))

	runner, err := NewSQLRunner(db, zap.NewNop())
	require.NoError(t, err)

	result, err := runner.Query(context.Background(), &QueryRequest{
		SQL:    `SELECT id, name FROM users WHERE status = ?`,
		Params: []any{"active"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "ada", result.Rows[0]["name"])
	assert.Equal(t, "grace", result.Rows[1]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLRunner_Query_Error(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("connection reset"))

	runner, err := NewSQLRunner(db, zap.NewNop())
	require.NoError(t, err)

	_, err = runner.Query(context.Background(), &QueryRequest{SQL: `SELECT 1`})
	require.Error(t, err)
	assert.Equal(t, types.ErrIntegrationCall, types.GetErrorCode(err))
}
