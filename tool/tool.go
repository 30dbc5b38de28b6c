// Package tool implements the tool-calling subsystem: the capability
// contract consumed by agent runtimes, a generic function adapter with
// schema validation, and the shared registry tools are resolved from.
package tool

import (
	"context"
	"fmt"

	"github.com/hivecast/hivecast/internal/util"
)

// Tool is a callable capability exposed to a model. Implementations must be
// safe for concurrent use: calls issued in the same model turn execute in
// parallel.
//
// Call returns the result string shown to the model. Errors returned here
// are converted into failed tool results by the runtime; they never abort a
// run and must never panic past this boundary.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case).
	Name() string

	// Description is shown to the model to explain when to use the tool.
	Description() string

	// Parameters returns a JSON schema describing accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with already-decoded arguments.
	Call(ctx context.Context, args map[string]any) (string, error)
}

// ValidationError re-exports the util validation error for callers.
type ValidationError = util.ValidationError

// ToolError represents a failure during tool execution with a code for
// categorization.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
