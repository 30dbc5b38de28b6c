package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hivecast/hivecast/agent"
	"github.com/hivecast/hivecast/tool"
)

// NewTool exposes the manager to a coordinator agent as the
// subagent_manager tool. Tool names passed to create are resolved against
// the given registry; the shared memory tools are injected by the manager
// itself and must not be listed.
func NewTool(m *Manager, registry *tool.Registry) tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Operation to perform.",
				"enum":        []string{"create", "run", "run_parallel", "run_batch", "delete", "status", "list"},
			},
			"name": map[string]any{
				"type":        "string",
				"description": "Subagent name (create, run, delete, status).",
			},
			"system_prompt": map[string]any{
				"type":        "string",
				"description": "Role and instructions for the subagent (create).",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier for the subagent (create).",
			},
			"tools": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Names of registered tools to grant (create). Memory tools are always available.",
			},
			"max_iterations": map[string]any{
				"type":        "integer",
				"description": "Iteration budget for the subagent loop (create).",
			},
			"task": map[string]any{
				"type":        "string",
				"description": "Task to run (run).",
			},
			"runs": map[string]any{
				"type":        "array",
				"description": "Name/task pairs (run_parallel, run_batch).",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name": map[string]any{"type": "string"},
						"task": map[string]any{"type": "string"},
					},
					"required": []string{"name", "task"},
				},
			},
			"stop_on_failure": map[string]any{
				"type":        "boolean",
				"description": "Stop a batch at the first failed run (run_batch).",
			},
		},
		"required": []string{"action"},
	}

	handler := &toolHandler{manager: m, registry: registry}

	return tool.NewFunctionTool(
		"subagent_manager",
		"Create, run, and manage subagents. Subagents share a memory store with you; "+
			"each finishes by calling report_results, and reports land in the coordination category.",
		schema, handler.call)
}

type toolHandler struct {
	manager  *Manager
	registry *tool.Registry
}

func (h *toolHandler) call(ctx context.Context, args map[string]any) (string, error) {
	action, _ := args["action"].(string)
	switch action {
	case "create":
		return h.create(args)
	case "run":
		name, _ := args["name"].(string)
		task, _ := args["task"].(string)
		if name == "" || task == "" {
			return "", fmt.Errorf("run requires name and task")
		}
		res, err := h.manager.Run(ctx, name, task)
		if err != nil && res == nil {
			return "", err
		}
		return formatResult(name, res), nil

	case "run_parallel":
		specs, err := decodeSpecs(args["runs"])
		if err != nil {
			return "", err
		}
		results, err := h.manager.RunParallel(ctx, specs)
		if err != nil {
			return "", err
		}
		return formatResults(specs, results), nil

	case "run_batch":
		specs, err := decodeSpecs(args["runs"])
		if err != nil {
			return "", err
		}
		stop, _ := args["stop_on_failure"].(bool)
		results, err := h.manager.RunBatch(ctx, specs, stop)
		if err != nil && len(results) == 0 {
			return "", err
		}
		return formatResults(specs[:len(results)], results), nil

	case "delete":
		name, _ := args["name"].(string)
		if err := h.manager.Delete(name); err != nil {
			return "", err
		}
		return fmt.Sprintf("Subagent %q deleted.", name), nil

	case "status":
		name, _ := args["name"].(string)
		info, err := h.manager.Status(name)
		if err != nil {
			return "", err
		}
		return formatInfo(info), nil

	case "list":
		infos := h.manager.List()
		if len(infos) == 0 {
			return "No subagents.", nil
		}
		lines := make([]string, 0, len(infos))
		for _, info := range infos {
			lines = append(lines, formatInfo(info))
		}
		return strings.Join(lines, "\n"), nil

	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

func (h *toolHandler) create(args map[string]any) (string, error) {
	name, _ := args["name"].(string)
	systemPrompt, _ := args["system_prompt"].(string)
	modelID, _ := args["model"].(string)
	if name == "" || systemPrompt == "" {
		return "", fmt.Errorf("create requires name and system_prompt")
	}

	var toolNames []string
	if raw, ok := args["tools"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				toolNames = append(toolNames, s)
			}
		}
	}
	resolved, err := h.registry.Resolve(toolNames)
	if err != nil {
		return "", err
	}

	cfg := agent.Config{
		Name:                   name,
		SystemPrompt:           systemPrompt,
		ModelID:                modelID,
		Tools:                  resolved,
		RequireTerminationTool: true,
	}
	if n, ok := args["max_iterations"].(float64); ok && n > 0 {
		cfg.MaxIterations = int(n)
	}

	if err := h.manager.Create(cfg); err != nil {
		return "", err
	}
	return fmt.Sprintf("Subagent %q created with %d tools.", name, len(resolved)+2), nil
}

func decodeSpecs(v any) ([]RunSpec, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("invalid runs: %w", err)
	}
	var specs []RunSpec
	if err := json.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("invalid runs: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("runs must not be empty")
	}
	for _, s := range specs {
		if s.Name == "" || s.Task == "" {
			return nil, fmt.Errorf("each run needs a name and a task")
		}
	}
	return specs, nil
}

func formatResult(name string, res *agent.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (%d iterations, %d tokens)", name, res.State, res.Iterations, res.TokensUsed)
	if res.Reason != "" {
		fmt.Fprintf(&b, " reason: %s", res.Reason)
	}
	if res.FinalText != "" {
		fmt.Fprintf(&b, "\n%s", res.FinalText)
	}
	return b.String()
}

func formatResults(specs []RunSpec, results []*agent.Result) string {
	lines := make([]string, 0, len(results))
	for i, res := range results {
		lines = append(lines, formatResult(specs[i].Name, res))
	}
	return strings.Join(lines, "\n\n")
}

func formatInfo(info Info) string {
	line := fmt.Sprintf("%s [%s] model=%s", info.Name, info.State, info.ModelID)
	if info.Result != nil && info.Result.Reason != "" {
		line += " reason=" + info.Result.Reason
	}
	return line
}
