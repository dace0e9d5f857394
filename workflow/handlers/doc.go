// Package handlers implements the node handler families dispatched by
// the workflow engine: triggers, model completions, the RAG pipeline,
// multi-agent delegation, external integrations, logic nodes, and data
// nodes. Every external collaborator is injected, so each family can be
// exercised with test doubles.
package handlers
