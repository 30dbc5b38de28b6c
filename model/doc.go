// Package model defines the provider-neutral request/response contract
// between the agent runtime and language model backends, plus a scripted
// in-memory implementation for tests. Concrete providers live in the
// openai and anthropic subpackages.
package model
