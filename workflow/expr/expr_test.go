package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalBool(t *testing.T, src string, binding map[string]any) bool {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err)
	got, err := e.EvalBool(binding)
	require.NoError(t, err)
	return got
}

func TestEval_Comparisons(t *testing.T) {
	t.Parallel()
	binding := map[string]any{
		"data": map[string]any{
			"status":  "active",
			"score":   0.9,
			"retries": 2,
			"tags":    []any{"prod", "eu"},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`data.status == "active"`, true},
		{`data.status != "active"`, false},
		{`data.score >= 0.8`, true},
		{`data.score < 0.5`, false},
		{`data.retries <= 2`, true},
		{`data.retries > 2`, false},
		{`data.tags contains "prod"`, true},
		{`data.tags contains "us"`, false},
		{`data.status contains "act"`, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, evalBool(t, tt.expr, binding))
		})
	}
}

func TestEval_BooleanCombination(t *testing.T) {
	t.Parallel()
	binding := map[string]any{
		"data": map[string]any{"a": true, "b": false, "n": 3.0},
	}

	assert.True(t, evalBool(t, `data.a && data.n > 2`, binding))
	assert.False(t, evalBool(t, `data.a && data.b`, binding))
	assert.True(t, evalBool(t, `data.b || data.a`, binding))
	assert.True(t, evalBool(t, `!data.b`, binding))
	assert.True(t, evalBool(t, `data.a and not data.b`, binding))
	assert.True(t, evalBool(t, `(data.b || data.a) && data.n == 3`, binding))
}

func TestEval_MissingPathIsNil(t *testing.T) {
	t.Parallel()
	binding := map[string]any{"data": map[string]any{}}
	assert.False(t, evalBool(t, `data.missing`, binding))
	assert.True(t, evalBool(t, `data.missing == null`, binding))
}

func TestEval_Truthiness(t *testing.T) {
	t.Parallel()
	binding := map[string]any{
		"data": map[string]any{
			"empty":  "",
			"zero":   0.0,
			"filled": "x",
		},
	}
	assert.False(t, evalBool(t, `data.empty`, binding))
	assert.False(t, evalBool(t, `data.zero`, binding))
	assert.True(t, evalBool(t, `data.filled`, binding))
}

func TestEval_IntAndFloatCompareEqual(t *testing.T) {
	t.Parallel()
	binding := map[string]any{"data": map[string]any{"count": 5}}
	assert.True(t, evalBool(t, `data.count == 5`, binding))
	assert.True(t, evalBool(t, `data.count > 4.5`, binding))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	for _, src := range []string{
		`data.status ==`,
		`(data.a`,
		`data.a === 1`,
		`"unterminated`,
		`data.a == 1 extra`,
	} {
		src := src
		t.Run(src, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}

func TestEval_TypeMismatch(t *testing.T) {
	t.Parallel()
	e, err := Parse(`data.status > 3`)
	require.NoError(t, err)
	_, err = e.Eval(map[string]any{"data": map[string]any{"status": "active"}})
	assert.Error(t, err)
}

func TestEval_UncomparableOperands(t *testing.T) {
	t.Parallel()
	binding := map[string]any{
		"data": map[string]any{
			"a":     []any{"x", "y"},
			"b":     []any{"x", "y"},
			"c":     []any{"z"},
			"m":     map[string]any{"k": 1.0},
			"n":     map[string]any{"k": 1.0},
			"list":  []any{map[string]any{"id": "a"}, map[string]any{"id": "b"}},
			"item":  map[string]any{"id": "b"},
			"pairs": []any{[]any{1.0, 2.0}},
			"pair":  []any{1.0, 2.0},
		},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`data.a == data.b`, true},
		{`data.a == data.c`, false},
		{`data.a != data.c`, true},
		{`data.m == data.n`, true},
		{`data.m != data.n`, false},
		{`data.list contains data.item`, true},
		{`data.pairs contains data.pair`, true},
		{`data.list contains data.m`, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, evalBool(t, tt.expr, binding))
		})
	}
}
