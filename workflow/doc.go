// Package workflow implements the DAG execution engine: workflow
// definitions with typed per-node configuration, dependency graph
// construction, wave-based parallel topological execution, the shared
// per-execution context, the structured execution log, and the
// sequential delegation-mode driver used when a hierarchical multi-agent
// supervisor is available.
//
// A workflow is a list of typed nodes plus directed dependency edges.
// The executor repeatedly drains the set of ready nodes (in-degree 0)
// into a "wave", runs the wave concurrently, and only after every node
// in the wave has settled commits results and unlocks dependents. One
// failing node aborts the execution; results of siblings in the same
// wave are discarded.
package workflow
