package model

import (
	"context"
	"sync"

	"github.com/hivecast/hivecast/core"
)

// ToolDefinition declaratively exposes a callable tool to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON schema
}

// Request captures the normalized model input produced by the agent runtime.
// Contents is the truncated history payload; Instructions is the pinned
// system prompt.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token accounting reported by the provider.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one whole model turn: either final assistant text or one or
// more tool calls (possibly both).
type Response struct {
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface the agent runtime needs to drive one
// conversational turn. Generate must honor ctx cancellation and deadlines.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Info() Info
}

// Turn is one canned reply used by ScriptedModel.
type Turn struct {
	Text  string
	Calls []core.ToolCall
	Err   error // returned instead of a response when set
}

// ScriptedModel replays a fixed sequence of turns. It is the test double
// used throughout the runtime and manager tests; once the script is
// exhausted it keeps returning the last turn.
type ScriptedModel struct {
	mu       sync.Mutex
	turns    []Turn
	index    int
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel from the given turns.
func NewScriptedModel(turns ...Turn) *ScriptedModel {
	return &ScriptedModel{turns: turns}
}

// Generate implements Model by replaying the next scripted turn.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.turns) == 0 {
		return &Response{
			Content:      core.NewTextContent("assistant", "ok"),
			FinishReason: "stop",
		}, nil
	}

	turn := m.turns[m.index]
	if m.index < len(m.turns)-1 {
		m.index++
	}

	if turn.Err != nil {
		return nil, turn.Err
	}

	parts := make([]core.Part, 0, len(turn.Calls)+1)
	if turn.Text != "" {
		parts = append(parts, core.TextPart{Text: turn.Text})
	}
	finish := "stop"
	for _, call := range turn.Calls {
		if call.ID == "" {
			call.ID = core.NewID()
		}
		parts = append(parts, core.ToolCallPart{ToolCall: call})
		finish = "tool_calls"
	}

	return &Response{
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: finish,
		Usage:        &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

// Requests returns a copy of every request seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}
