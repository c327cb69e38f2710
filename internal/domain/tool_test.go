package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name   string
	params []ToolParameter
}

func (s *stubTool) Name() string                { return s.name }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) Category() ToolCategory      { return CategoryCustom }
func (s *stubTool) Parameters() []ToolParameter { return s.params }
func (s *stubTool) RequiresConfirmation() bool  { return false }
func (s *stubTool) Dangerous() bool             { return false }
func (s *stubTool) Execute(ctx context.Context, args map[string]any) (*ToolResult, error) {
	return &ToolResult{Success: true}, nil
}

func TestDefinitionSchemaShape(t *testing.T) {
	min := 1.0
	max := 100.0
	minLen := 2

	tool := &stubTool{
		name: "sample",
		params: []ToolParameter{
			{Name: "query", Type: "string", Description: "search text", Required: true, MinLength: &minLen},
			{Name: "mode", Type: "string", Enum: []string{"fast", "deep"}, Default: "fast"},
			{Name: "limit", Type: "integer", Minimum: &min, Maximum: &max},
		},
	}

	def := Definition(tool)
	assert.Equal(t, "sample", def.Name)
	assert.Equal(t, "object", def.Parameters["type"])

	props, ok := def.Parameters["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 3)

	query := props["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "search text", query["description"])
	assert.Equal(t, 2, query["minLength"])
	_, hasEnum := query["enum"]
	assert.False(t, hasEnum)

	mode := props["mode"].(map[string]any)
	assert.Equal(t, []string{"fast", "deep"}, mode["enum"])
	assert.Equal(t, "fast", mode["default"])

	limit := props["limit"].(map[string]any)
	assert.Equal(t, 1.0, limit["minimum"])
	assert.Equal(t, 100.0, limit["maximum"])

	required, ok := def.Parameters["required"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"query"}, required)
}

func TestDefinitionNoParameters(t *testing.T) {
	def := Definition(&stubTool{name: "bare"})
	props := def.Parameters["properties"].(map[string]any)
	assert.Empty(t, props)
	required := def.Parameters["required"].([]string)
	assert.Empty(t, required)
}
