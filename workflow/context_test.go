package workflow

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowContext_SetGet(t *testing.T) {
	t.Parallel()

	wc := NewWorkflowContext()

	_, ok := wc.Get("missing")
	assert.False(t, ok)

	wc.Set("topic", "workflows")
	v, ok := wc.Get("topic")
	require.True(t, ok)
	assert.Equal(t, "workflows", v)

	// Last write wins.
	wc.Set("topic", "graphs")
	v, _ = wc.Get("topic")
	assert.Equal(t, "graphs", v)
}

func TestWorkflowContext_SnapshotIsDetached(t *testing.T) {
	t.Parallel()

	wc := NewWorkflowContext()
	wc.Set("a", 1)

	snap := wc.Snapshot()
	snap["a"] = 99
	snap["b"] = 2

	v, _ := wc.Get("a")
	assert.Equal(t, 1, v)
	_, ok := wc.Get("b")
	assert.False(t, ok)
}

func TestWorkflowContext_ConcurrentWriters(t *testing.T) {
	t.Parallel()

	wc := NewWorkflowContext()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			wc.Set(NodeResultKey(strconv.Itoa(n)), n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, wc.Keys(), 32)
}

func TestNodeResultKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "node_summarize", NodeResultKey("summarize"))
}
