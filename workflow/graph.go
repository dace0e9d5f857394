package workflow

import (
	"fmt"

	"github.com/waverun/waverun/types"
)

// ExecutionGraph is the dependency structure derived from a Definition
// for one execution. It is built fresh per execution and only mutated
// (in-degree updates) inside the executor's wave barrier.
type ExecutionGraph struct {
	nodes        map[string]*Node
	order        []string // node ids in definition order
	dependencies map[string][]string
	dependents   map[string][]string
	inDegree     map[string]int
}

// BuildGraph converts a node list plus edge list into the dependency
// structure. An edge endpoint absent from the node list is a
// GraphConstruction error; node configs are type-checked here so a
// malformed node fails before anything executes.
func BuildGraph(def *Definition) (*ExecutionGraph, error) {
	if def == nil {
		return nil, types.NewError(types.ErrGraphConstruction, "definition cannot be nil")
	}

	g := &ExecutionGraph{
		nodes:        make(map[string]*Node, len(def.Nodes)),
		order:        make([]string, 0, len(def.Nodes)),
		dependencies: make(map[string][]string, len(def.Nodes)),
		dependents:   make(map[string][]string, len(def.Nodes)),
		inDegree:     make(map[string]int, len(def.Nodes)),
	}

	for i := range def.Nodes {
		node := &def.Nodes[i]
		if node.ID == "" {
			return nil, types.NewError(types.ErrGraphConstruction, "node id cannot be empty")
		}
		if _, dup := g.nodes[node.ID]; dup {
			return nil, types.NewError(types.ErrGraphConstruction,
				fmt.Sprintf("duplicate node id %q", node.ID))
		}
		if err := validateNodeConfig(node); err != nil {
			return nil, err
		}
		g.nodes[node.ID] = node
		g.order = append(g.order, node.ID)
		g.dependencies[node.ID] = nil
		g.dependents[node.ID] = nil
		g.inDegree[node.ID] = 0
	}

	for _, edge := range def.Edges {
		if _, ok := g.nodes[edge.Source]; !ok {
			return nil, types.NewError(types.ErrGraphConstruction,
				fmt.Sprintf("edge source %q is not a node", edge.Source))
		}
		if _, ok := g.nodes[edge.Target]; !ok {
			return nil, types.NewError(types.ErrGraphConstruction,
				fmt.Sprintf("edge target %q is not a node", edge.Target))
		}
		g.dependents[edge.Source] = append(g.dependents[edge.Source], edge.Target)
		g.dependencies[edge.Target] = append(g.dependencies[edge.Target], edge.Source)
		g.inDegree[edge.Target]++
	}

	return g, nil
}

// DetectCycle runs Kahn's algorithm over a copy of the in-degree map
// and reports a CycleDetected error when not every node is reachable.
func (g *ExecutionGraph) DetectCycle() error {
	degree := make(map[string]int, len(g.inDegree))
	for id, d := range g.inDegree {
		degree[id] = d
	}

	var queue []string
	for _, id := range g.order {
		if degree[id] == 0 {
			queue = append(queue, id)
		}
	}

	processed := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, dep := range g.dependents[id] {
			degree[dep]--
			if degree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if processed != len(g.nodes) {
		var stuck []string
		for _, id := range g.order {
			if degree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return types.NewError(types.ErrCycleDetected,
			fmt.Sprintf("cycle involving nodes %v", stuck))
	}
	return nil
}

// Node returns a node by id.
func (g *ExecutionGraph) Node(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// NodeIDs returns all node ids in definition order.
func (g *ExecutionGraph) NodeIDs() []string {
	return g.order
}

// Len returns the number of nodes.
func (g *ExecutionGraph) Len() int {
	return len(g.nodes)
}

// Dependencies returns the ids a node depends on.
func (g *ExecutionGraph) Dependencies(id string) []string {
	return g.dependencies[id]
}

// Dependents returns the ids that depend on a node.
func (g *ExecutionGraph) Dependents(id string) []string {
	return g.dependents[id]
}

// InDegree returns the current unresolved dependency count for a node.
func (g *ExecutionGraph) InDegree(id string) int {
	return g.inDegree[id]
}

// ReadyNodes returns, in definition order, every node whose in-degree
// is currently zero.
func (g *ExecutionGraph) ReadyNodes() []string {
	var ready []string
	for _, id := range g.order {
		if g.inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	return ready
}

// Resolve marks a node as settled: each dependent's in-degree drops by
// one and those reaching zero are returned in definition order. Only
// called from inside the executor's wave barrier.
func (g *ExecutionGraph) Resolve(id string) []string {
	var unlocked []string
	for _, dep := range g.dependents[id] {
		g.inDegree[dep]--
		if g.inDegree[dep] == 0 {
			unlocked = append(unlocked, dep)
		}
	}
	return unlocked
}

// SinkNodes returns, in definition order, every node with no dependents.
func (g *ExecutionGraph) SinkNodes() []string {
	var sinks []string
	for _, id := range g.order {
		if len(g.dependents[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	return sinks
}
