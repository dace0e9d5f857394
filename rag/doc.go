// Package rag provides the retrieval substrate for workflow nodes:
// document and chunk types, fixed-window chunking, and vector stores
// ranked by cosine similarity. Stores share one interface so a workflow
// can run against the in-memory backend or Redis without changes.
package rag
