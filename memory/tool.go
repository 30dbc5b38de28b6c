package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hivecast/hivecast/tool"
)

// NewTool builds the shared_memory tool bound to one store, task, and
// author. Every subagent gets its own binding so stored entries are
// attributed correctly without the model having to identify itself.
func NewTool(store *Store, taskID, author string) tool.Tool {
	categories := make([]string, 0, len(Categories()))
	for _, c := range Categories() {
		categories = append(categories, string(c))
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"description": "Operation to perform.",
				"enum":        []string{"store", "get", "search", "get_recent", "get_task_history", "browse_categories", "list_by_agent"},
			},
			"category": map[string]any{
				"type":        "string",
				"description": "Entry category. Required for store; optional filter for search.",
				"enum":        categories,
			},
			"title":   map[string]any{"type": "string", "description": "Short title for the entry (store)."},
			"content": map[string]any{"type": "string", "description": "Entry body (store)."},
			"tags": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Tags to attach (store) or require (search).",
			},
			"query": map[string]any{"type": "string", "description": "Text to match in title or content (search)."},
			"id":    map[string]any{"type": "integer", "description": "Entry id (get)."},
			"limit": map[string]any{"type": "integer", "description": "Maximum entries to return (get_recent)."},
			"agent": map[string]any{"type": "string", "description": "Author name (list_by_agent)."},
		},
		"required": []string{"action"},
	}

	call := func(ctx context.Context, args map[string]any) (string, error) {
		action, _ := args["action"].(string)
		switch action {
		case "store":
			category, _ := args["category"].(string)
			title, _ := args["title"].(string)
			content, _ := args["content"].(string)
			entry, err := store.Store(Entry{
				TaskID:   taskID,
				Category: Category(category),
				Title:    title,
				Content:  content,
				Tags:     stringSlice(args["tags"]),
				Author:   author,
			})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Stored entry %d in category %s.", entry.ID, entry.Category), nil

		case "get":
			id, ok := intArg(args["id"])
			if !ok {
				return "", fmt.Errorf("get requires an integer id")
			}
			entry, found := store.Get(id)
			if !found {
				return fmt.Sprintf("No entry with id %d.", id), nil
			}
			return FormatEntries([]Entry{entry}), nil

		case "search":
			category, _ := args["category"].(string)
			text, _ := args["query"].(string)
			if category != "" && !Category(category).Valid() {
				return "", fmt.Errorf("invalid category %q", category)
			}
			entries := store.Search(Query{
				TaskID:   taskID,
				Category: Category(category),
				Tags:     stringSlice(args["tags"]),
				Text:     text,
			})
			return FormatEntries(entries), nil

		case "get_recent":
			limit, _ := intArg(args["limit"])
			if limit <= 0 {
				limit = 10
			}
			return FormatEntries(store.GetRecent(taskID, int(limit))), nil

		case "get_task_history":
			return FormatEntries(store.GetTaskHistory(taskID)), nil

		case "browse_categories":
			stats := store.BrowseCategories(taskID)
			var b strings.Builder
			for _, c := range Categories() {
				stat := stats[c]
				if stat.Count == 0 {
					fmt.Fprintf(&b, "%s: empty\n", c)
					continue
				}
				fmt.Fprintf(&b, "%s: %d entries, latest [%d] %s\n", c, stat.Count, stat.Latest.ID, stat.Latest.Title)
			}
			return strings.TrimRight(b.String(), "\n"), nil

		case "list_by_agent":
			groups := store.ListByAgent(taskID)
			if agentName, _ := args["agent"].(string); agentName != "" {
				return FormatEntries(groups[agentName]), nil
			}
			names := make([]string, 0, len(groups))
			for name := range groups {
				names = append(names, name)
			}
			sort.Strings(names)
			var b strings.Builder
			for _, name := range names {
				fmt.Fprintf(&b, "## %s\n%s\n\n", name, FormatEntries(groups[name]))
			}
			return strings.TrimRight(b.String(), "\n"), nil

		default:
			return "", fmt.Errorf("unknown action %q", action)
		}
	}

	return tool.NewFunctionTool(
		"shared_memory",
		"Read and write the shared memory store used to coordinate with other agents. "+
			"Store findings under a category; search or browse what others have stored.",
		schema, call)
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
