package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleParams struct {
	Query   string   `json:"query" description:"Search text."`
	Limit   int      `json:"limit,omitempty" description:"Maximum results."`
	Tags    []string `json:"tags,omitempty"`
	Skipped string   `json:"-"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleParams{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Contains(t, props, "tags")
	assert.NotContains(t, props, "Skipped")

	query := props["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search text.", query["description"])
	assert.Equal(t, "integer", props["limit"].(map[string]any)["type"])
	assert.Equal(t, "array", props["tags"].(map[string]any)["type"])

	assert.Equal(t, []string{"query"}, schema["required"])
}

func TestValidateParameters_RequiredAndTypes(t *testing.T) {
	schema := CreateSchema(sampleParams{})

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x"}, schema))

	// JSON numbers arrive as float64; whole values satisfy integer.
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "limit": float64(5)}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"query": "x", "limit": 5.5}, schema))
	assert.Error(t, ValidateParameters(map[string]any{"query": 7}, schema))
}

func TestValidateParameters_EnumBothShapes(t *testing.T) {
	for _, enum := range []any{
		[]string{"a", "b"},
		[]any{"a", "b"},
	} {
		schema := map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode": map[string]any{"type": "string", "enum": enum},
			},
		}
		assert.NoError(t, ValidateParameters(map[string]any{"mode": "a"}, schema))
		assert.Error(t, ValidateParameters(map[string]any{"mode": "z"}, schema))
	}
}

func TestValidateParameters_ExtraFieldsAllowed(t *testing.T) {
	schema := CreateSchema(sampleParams{})
	assert.NoError(t, ValidateParameters(map[string]any{"query": "x", "bonus": true}, schema))
}
