package tool

import (
	"context"
	"fmt"

	"model8cli/internal/domain"
)

// Args wraps the decoded argument map with typed accessors. JSON numbers
// arrive as float64; the accessors normalize the common cases.
type Args map[string]any

// String returns the named argument as a string, or an error if it is
// missing or not a string.
func (a Args) String(name string) (string, error) {
	v, ok := a[name]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q must be a string", name)
	}
	return s, nil
}

// StringOr returns the named argument as a string, or fallback when absent.
func (a Args) StringOr(name, fallback string) string {
	if s, ok := a[name].(string); ok {
		return s
	}
	return fallback
}

// Int returns the named argument as an int, or fallback when absent.
func (a Args) Int(name string, fallback int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// Bool returns the named argument as a bool, or fallback when absent.
func (a Args) Bool(name string, fallback bool) bool {
	if b, ok := a[name].(bool); ok {
		return b
	}
	return fallback
}

// StringSlice returns the named argument as a []string. Elements that are
// not strings are skipped.
func (a Args) StringSlice(name string) []string {
	raw, ok := a[name].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Options declares a tool. Run receives validated arguments and returns the
// result payload; errors become failure results in the registry's safe
// execution wrapper.
type Options struct {
	Name                 string
	Description          string
	Category             domain.ToolCategory
	Parameters           []domain.ToolParameter
	RequiresConfirmation bool
	Dangerous            bool
	Run                  func(ctx context.Context, args Args) (any, error)
}

type funcTool struct {
	opts Options
}

// New builds a domain.Tool from Options.
func New(opts Options) domain.Tool {
	return &funcTool{opts: opts}
}

func (t *funcTool) Name() string                       { return t.opts.Name }
func (t *funcTool) Description() string                { return t.opts.Description }
func (t *funcTool) Category() domain.ToolCategory      { return t.opts.Category }
func (t *funcTool) Parameters() []domain.ToolParameter { return t.opts.Parameters }
func (t *funcTool) RequiresConfirmation() bool         { return t.opts.RequiresConfirmation }
func (t *funcTool) Dangerous() bool                    { return t.opts.Dangerous }

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (*domain.ToolResult, error) {
	payload, err := t.opts.Run(ctx, Args(args))
	if err != nil {
		return &domain.ToolResult{Success: false, Error: err.Error()}, nil
	}
	return &domain.ToolResult{Success: true, Result: payload}, nil
}
