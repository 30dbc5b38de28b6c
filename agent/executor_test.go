package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivecast/hivecast/core"
	"github.com/hivecast/hivecast/logging"
	"github.com/hivecast/hivecast/tool"
)

func TestExecutor_ResultsPreserveCallOrder(t *testing.T) {
	slow := tool.NewFunctionTool("slow", "Sleeps briefly.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "slow done", nil
		})
	fast := tool.NewFunctionTool("fast", "Returns immediately.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "fast done", nil
		})

	e := newExecutor([]tool.Tool{slow, fast}, time.Second, logging.NoOpLogger{})
	results := e.Execute(context.Background(), []core.ToolCall{
		{ID: "1", Name: "slow", Arguments: "{}"},
		{ID: "2", Name: "fast", Arguments: "{}"},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "slow done", results[0].Content)
	assert.Equal(t, "fast done", results[1].Content)
}

func TestExecutor_PanicBecomesErrorResult(t *testing.T) {
	boom := tool.NewFunctionTool("boom", "Panics.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			panic("kaboom")
		})

	e := newExecutor([]tool.Tool{boom}, time.Second, logging.NoOpLogger{})
	results := e.Execute(context.Background(), []core.ToolCall{{ID: "1", Name: "boom", Arguments: "{}"}})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsError())
	assert.Contains(t, results[0].Error, "kaboom")
}

func TestExecutor_MalformedArguments(t *testing.T) {
	e := newExecutor([]tool.Tool{echoTool()}, time.Second, logging.NoOpLogger{})
	results := e.Execute(context.Background(), []core.ToolCall{{ID: "1", Name: "echo", Arguments: "{not json"}})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsError())
	assert.Contains(t, results[0].Error, "invalid arguments")
}

func TestExecutor_ToolTimeout(t *testing.T) {
	stuck := tool.NewFunctionTool("stuck", "Blocks until cancelled.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	e := newExecutor([]tool.Tool{stuck}, 10*time.Millisecond, logging.NoOpLogger{})
	results := e.Execute(context.Background(), []core.ToolCall{{ID: "1", Name: "stuck", Arguments: "{}"}})

	require.Len(t, results, 1)
	assert.True(t, results[0].IsError())
}
