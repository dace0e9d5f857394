// Package types contains shared primitives used across the engine:
// the structured error type with unified error codes, and helpers for
// inspecting wrapped errors.
package types
