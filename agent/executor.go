package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/tool"
)

// executor runs the tool calls of one model turn. Calls execute in parallel
// but results are returned in emission order, so the transcript pairs up
// deterministically.
type executor struct {
	tools   map[string]tool.Tool
	timeout time.Duration
	logger  logging.Logger
}

func newExecutor(tools []tool.Tool, timeout time.Duration, logger logging.Logger) *executor {
	byName := make(map[string]tool.Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &executor{tools: byName, timeout: timeout, logger: logger}
}

// Execute runs every call and returns one result per call, index-aligned
// with the input. A failed or panicking tool yields an error result; it
// never fails the turn.
func (e *executor) Execute(ctx context.Context, calls []core.ToolCall) []core.ToolResult {
	results := make([]core.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call core.ToolCall) {
			defer wg.Done()
			results[i] = e.executeOne(ctx, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

func (e *executor) executeOne(ctx context.Context, call core.ToolCall) (result core.ToolResult) {
	result = core.ToolResult{ID: call.ID, Name: call.Name}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool panicked", "tool", call.Name, "panic", r)
			result.Content = ""
			result.Error = fmt.Sprintf("tool %q panicked: %v", call.Name, r)
		}
	}()

	t, ok := e.tools[call.Name]
	if !ok {
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
		return result
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		result.Error = fmt.Sprintf("invalid arguments for tool %q: %v", call.Name, err)
		return result
	}

	callCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	content, err := t.Call(callCtx, args)
	e.logger.Debug("tool executed", "tool", call.Name, "duration", time.Since(start), "error", err != nil)

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Content = content
	return result
}

func decodeArguments(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}
