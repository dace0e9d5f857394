package workflow

import "sync"

// NodeResultKey returns the WorkflowContext key holding a node's result.
func NodeResultKey(nodeID string) string {
	return "node_" + nodeID
}

// WorkflowContext is the single mutable key/value store shared by every
// node handler within one execution. Keys are either semantic names
// (e.g. the retrieval index) or "node_<id>" for a node's raw output.
// Writes are last-write-wins. The store is mutex-guarded so two nodes
// in the same wave writing the same key stay race-free, though which
// write wins between them is still unspecified.
type WorkflowContext struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewWorkflowContext creates an empty context.
func NewWorkflowContext() *WorkflowContext {
	return &WorkflowContext{data: make(map[string]any)}
}

// Set stores a value under key.
func (c *WorkflowContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get retrieves a value by key.
func (c *WorkflowContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Keys returns all keys in unspecified order.
func (c *WorkflowContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a shallow copy of the current contents.
func (c *WorkflowContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[string]any, len(c.data))
	for k, v := range c.data {
		snap[k] = v
	}
	return snap
}
