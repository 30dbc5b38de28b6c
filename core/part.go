package core

// Part is a polymorphic segment of role-based content. Concrete part types
// implement the unexported isPart marker so the set stays closed.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string
}

func (TextPart) isPart() {}

// ToolCall describes a tool invocation requested by the model. ID links the
// call to its eventual ToolResult and is stable for the lifetime of the turn.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON-encoded argument payload
}

// ToolCallPart wraps a ToolCall as a content part.
type ToolCallPart struct {
	ToolCall ToolCall
}

func (ToolCallPart) isPart() {}

// ToolResult carries the outcome of a previously issued ToolCall. A failed
// execution is encoded in Error; a result never surfaces as a raised fault.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IsError reports whether the result encodes a tool failure.
func (r ToolResult) IsError() bool { return r.Error != "" }

// Text returns the payload the model should see: the content on success or
// a flagged error string on failure.
func (r ToolResult) Text() string {
	if r.IsError() {
		return "Error executing tool: " + r.Error
	}
	return r.Content
}

// ToolResultPart wraps a ToolResult as a content part.
type ToolResultPart struct {
	ToolResult ToolResult
}

func (ToolResultPart) isPart() {}

// Content holds a conversation role plus its ordered parts.
type Content struct {
	Role  string `json:"role"` // system, user, assistant, tool
	Parts []Part `json:"parts"`
}

// NewTextContent builds a single-text-part content for the given role.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts in order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// ToolCalls returns the tool call parts in their original order.
func (c Content) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range c.Parts {
		if tc, ok := p.(ToolCallPart); ok {
			calls = append(calls, tc.ToolCall)
		}
	}
	return calls
}

// ToolResults returns the tool result parts in their original order.
func (c Content) ToolResults() []ToolResult {
	var results []ToolResult
	for _, p := range c.Parts {
		if tr, ok := p.(ToolResultPart); ok {
			results = append(results, tr.ToolResult)
		}
	}
	return results
}
