package domain

import (
	"context"
	"time"
)

// ToolCategory groups tools for the registry's secondary index.
type ToolCategory string

const (
	CategoryFileOperations ToolCategory = "file_operations"
	CategoryWebTools       ToolCategory = "web_tools"
	CategoryGitTools       ToolCategory = "git_tools"
	CategoryCodeTools      ToolCategory = "code_tools"
	CategorySystemTools    ToolCategory = "system_tools"
	CategoryKnowledge      ToolCategory = "knowledge_tools"
	CategoryWorkflow       ToolCategory = "workflow_tools"
	CategoryCustom         ToolCategory = "custom"
)

// ToolParameter describes one parameter of a tool. Immutable once the tool
// is constructed.
type ToolParameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, integer, number, boolean, array, object
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	MinLength   *int     `json:"min_length,omitempty"`
	MaxLength   *int     `json:"max_length,omitempty"`
}

// ToolDefinition is the provider-facing view of a tool. Parameters is a
// JSON-Schema object ({type: object, properties: {...}, required: [...]});
// this exact shape is handed verbatim to every chat provider, so its field
// names are load-bearing.
type ToolDefinition struct {
	Name                 string         `json:"name"`
	Description          string         `json:"description"`
	Parameters           map[string]any `json:"parameters"`
	Category             ToolCategory   `json:"-"`
	Enabled              bool           `json:"-"`
	RequiresConfirmation bool           `json:"-"`
	Dangerous            bool           `json:"-"`
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	Success       bool           `json:"success"`
	Result        any            `json:"result,omitempty"`
	Error         string         `json:"error,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Tool is the interface every tool must implement. Arguments arrive as a
// decoded JSON object; a returned error (or panic) is converted to a failure
// ToolResult by the registry's safe-execution wrapper and never propagates
// to callers.
type Tool interface {
	Name() string
	Description() string
	Category() ToolCategory
	Parameters() []ToolParameter
	RequiresConfirmation() bool
	Dangerous() bool
	Execute(ctx context.Context, args map[string]any) (*ToolResult, error)
}

// ToolExecutor abstracts tool lookup, schema listing, and safe execution.
// The workflow engine and the agent loop both consume tools through this.
type ToolExecutor interface {
	Get(name string) (Tool, bool)
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) *ToolResult
}

// ToolApprover decides whether a tool call requires human confirmation.
// The registry only carries the dangerous/requires-confirmation flags;
// enforcement belongs to the interactive caller.
type ToolApprover interface {
	NeedsApproval(call ToolCall) bool
	RequestApproval(ctx context.Context, call ToolCall) (bool, error)
}

// Definition derives the provider-facing ToolDefinition from a tool's
// parameter list. Constraints map 1:1 onto the schema's matching keywords
// when present and are omitted when absent.
func Definition(t Tool) ToolDefinition {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, p := range t.Parameters() {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Pattern != "" {
			prop["pattern"] = p.Pattern
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		if p.MinLength != nil {
			prop["minLength"] = *p.MinLength
		}
		if p.MaxLength != nil {
			prop["maxLength"] = *p.MaxLength
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return ToolDefinition{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
		Category:             t.Category(),
		Enabled:              true,
		RequiresConfirmation: t.RequiresConfirmation(),
		Dangerous:            t.Dangerous(),
	}
}
