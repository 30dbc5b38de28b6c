package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter() *FunctionTool {
	return NewFunctionTool("counter", "Counts things.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount": map[string]any{"type": "integer", "description": "How many."},
				"unit":   map[string]any{"type": "string", "enum": []string{"items", "boxes"}},
			},
			"required": []string{"amount"},
		},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "counted", nil
		})
}

func TestFunctionTool_ValidCall(t *testing.T) {
	out, err := newCounter().Call(context.Background(), map[string]any{"amount": float64(3), "unit": "items"})
	require.NoError(t, err)
	assert.Equal(t, "counted", out)
}

func TestFunctionTool_MissingRequired(t *testing.T) {
	_, err := newCounter().Call(context.Background(), map[string]any{"unit": "items"})
	require.Error(t, err)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	assert.Equal(t, "counter", toolErr.Tool)
}

func TestFunctionTool_EnumViolation(t *testing.T) {
	_, err := newCounter().Call(context.Background(), map[string]any{"amount": float64(1), "unit": "crates"})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
}

func TestFunctionTool_WrapsExecutionError(t *testing.T) {
	ft := NewFunctionTool("broken", "Always fails.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("connection refused")
		})

	_, err := ft.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
	assert.Contains(t, toolErr.Error(), "connection refused")
}

func TestFunctionTool_PassesThroughToolError(t *testing.T) {
	custom := &ToolError{Tool: "broken", Message: "rate limited", Code: "RATE_LIMITED"}
	ft := NewFunctionTool("broken", "Fails with a typed error.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "", custom
		})

	_, err := ft.Call(context.Background(), map[string]any{})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "RATE_LIMITED", toolErr.Code)
}

func TestRegistry_ResolveAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register(newCounter())

	resolved, err := r.Resolve([]string{"counter"})
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	_, err = r.Resolve([]string{"counter", "nope"})
	assert.Error(t, err)

	assert.Equal(t, []string{"counter"}, r.Names())
}

func TestRegistry_ResolvePreservesRequestedOrder(t *testing.T) {
	noop := func(ctx context.Context, args map[string]any) (string, error) { return "", nil }
	r := NewRegistry()
	r.Register(
		NewFunctionTool("alpha", "First.", map[string]any{"type": "object"}, noop),
		NewFunctionTool("beta", "Second.", map[string]any{"type": "object"}, noop),
		NewFunctionTool("gamma", "Third.", map[string]any{"type": "object"}, noop),
	)

	resolved, err := r.Resolve([]string{"gamma", "alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, resolved, 3)

	names := make([]string, len(resolved))
	for i, tl := range resolved {
		names[i] = tl.Name()
	}
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, names)
}
