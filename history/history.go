// Package history manages the bounded conversation transcript an agent
// runtime submits to its model. Appends are never rejected; the request
// payload is truncated to a token budget in a way that preserves semantic
// integrity: the system prompt is pinned, messages are never reordered, and
// an assistant message carrying tool calls is dropped together with its tool
// results so the model never sees half a pair.
package history

import (
	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/internal/tokenutil"
)

// DefaultBudgetTokens bounds the transcript when no budget is configured.
const DefaultBudgetTokens = 80000

// truncationMarker replaces dropped content so the apparent turn order
// still records that something came before.
const truncationMarker = "[Earlier conversation history has been truncated.]"

// group is the unit of truncation: either a single message, or an assistant
// tool-call message together with the tool results it produced.
type group struct {
	contents []core.Content
	tokens   int
}

// History is an ordered, append-only record of conversation turns with a
// bounded token budget. Not safe for concurrent use; each agent runtime
// owns exactly one History.
type History struct {
	system       string
	systemTokens int
	budget       int
	groups       []group
	truncated    bool
}

// New creates a History pinned to the given system prompt. A budget of 0
// selects DefaultBudgetTokens.
func New(system string, budgetTokens int) *History {
	if budgetTokens <= 0 {
		budgetTokens = DefaultBudgetTokens
	}
	return &History{
		system:       system,
		systemTokens: tokenutil.CountTokens(system),
		budget:       budgetTokens,
	}
}

// System returns the pinned system prompt.
func (h *History) System() string { return h.system }

// Append adds a message to the ordered sequence. Tool-role messages join the
// group of the assistant message that issued the calls; everything else
// starts a new group. Append never fails; the budget is applied when the
// request payload is built.
func (h *History) Append(c core.Content) {
	tokens := contentTokens(c)
	if c.Role == "tool" && len(h.groups) > 0 {
		last := &h.groups[len(h.groups)-1]
		if openToolTurn(*last) {
			last.contents = append(last.contents, c)
			last.tokens += tokens
			return
		}
	}
	h.groups = append(h.groups, group{contents: []core.Content{c}, tokens: tokens})
}

// AppendUser appends a plain user message.
func (h *History) AppendUser(text string) {
	h.Append(core.NewTextContent("user", text))
}

// AppendToolResults appends the results of one model turn as a single
// tool-role message, in the order the calls were emitted.
func (h *History) AppendToolResults(results []core.ToolResult) {
	parts := make([]core.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, core.ToolResultPart{ToolResult: r})
	}
	h.Append(core.Content{Role: "tool", Parts: parts})
}

// TotalTokens returns the current token estimate including the system prompt.
func (h *History) TotalTokens() int {
	total := h.systemTokens
	for _, g := range h.groups {
		total += g.tokens
	}
	return total
}

// Len returns the number of messages currently held.
func (h *History) Len() int {
	n := 0
	for _, g := range h.groups {
		n += len(g.contents)
	}
	return n
}

// RequestPayload truncates to the budget and returns the ordered message
// sequence to submit to the model. The most recent group is always kept so
// the model has something to respond to, even if it alone exceeds the budget.
func (h *History) RequestPayload() []core.Content {
	h.truncate()

	var payload []core.Content
	if h.truncated {
		payload = append(payload, core.NewTextContent("user", truncationMarker))
	}
	for _, g := range h.groups {
		payload = append(payload, g.contents...)
	}
	return payload
}

// Truncated reports whether older content has been dropped.
func (h *History) Truncated() bool { return h.truncated }

func (h *History) truncate() {
	budget := h.budget - h.systemTokens
	if h.truncated {
		budget -= tokenutil.CountTokens(truncationMarker)
	}

	total := 0
	for _, g := range h.groups {
		total += g.tokens
	}

	for total > budget && len(h.groups) > 1 {
		dropped := h.groups[0]
		h.groups = h.groups[1:]
		total -= dropped.tokens
		if !h.truncated {
			h.truncated = true
			budget -= tokenutil.CountTokens(truncationMarker)
		}
	}
}

// openToolTurn reports whether the group ends in a state that still accepts
// tool results: its first content is an assistant message with tool calls
// and not every call has a result yet.
func openToolTurn(g group) bool {
	first := g.contents[0]
	if first.Role != "assistant" {
		return false
	}
	calls := len(first.ToolCalls())
	if calls == 0 {
		return false
	}
	results := 0
	for _, c := range g.contents[1:] {
		results += len(c.ToolResults())
	}
	return results < calls
}

func contentTokens(c core.Content) int {
	tokens := 0
	for _, p := range c.Parts {
		switch part := p.(type) {
		case core.TextPart:
			tokens += tokenutil.CountTokens(part.Text)
		case core.ToolCallPart:
			tokens += tokenutil.CountTokens(part.ToolCall.Name)
			tokens += tokenutil.CountTokens(part.ToolCall.Arguments)
		case core.ToolResultPart:
			tokens += tokenutil.CountTokens(part.ToolResult.Text())
		}
	}
	// Per-message framing overhead.
	return tokens + 4
}
