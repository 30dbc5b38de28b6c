package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hivecast/hivecast/tool"
)

// ReportToolName is the canonical termination tool name. Subagents created
// through the manager get this tool injected and registered as a
// termination tool automatically.
const ReportToolName = "report_results"

// NewReportTool builds the report_results termination tool bound to one
// store, task, and author. Calling it stores the agent's final report under
// the coordination category and ends the run.
func NewReportTool(store *Store, taskID, author string) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "One-paragraph summary of what was accomplished.",
			},
			"findings": map[string]any{
				"type":        "string",
				"description": "Detailed results, evidence, and numbers.",
			},
			"status": map[string]any{
				"type":        "string",
				"description": "Outcome of the assignment.",
				"enum":        []string{"success", "partial", "failure"},
			},
		},
		"required": []string{"summary", "status"},
	}

	call := func(ctx context.Context, args map[string]any) (string, error) {
		summary, _ := args["summary"].(string)
		findings, _ := args["findings"].(string)
		status, _ := args["status"].(string)

		var b strings.Builder
		fmt.Fprintf(&b, "status: %s\n\n%s", status, summary)
		if findings != "" {
			fmt.Fprintf(&b, "\n\nFindings:\n%s", findings)
		}

		entry, err := store.Store(Entry{
			TaskID:   taskID,
			Category: CategoryCoordination,
			Title:    fmt.Sprintf("Report from %s (%s)", author, status),
			Content:  b.String(),
			Tags:     []string{"report", status},
			Author:   author,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Report stored as entry %d.\n\n%s", entry.ID, b.String()), nil
	}

	return tool.NewFunctionTool(
		ReportToolName,
		"Submit your final report and end the run. Call this exactly once, when your assignment is complete.",
		schema, call)
}
