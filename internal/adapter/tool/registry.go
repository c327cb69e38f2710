package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"model8cli/internal/domain"
)

// entry holds a registered tool plus its compiled schema and usage counters.
// Counter updates happen under the registry mutex.
type entry struct {
	tool    domain.Tool
	schema  *jsonschema.Schema
	enabled bool

	execCount int64
	errCount  int64
	totalTime time.Duration
}

// Registry indexes tools by name and category, validates arguments against
// each tool's JSON Schema, and meters executions. It implements
// domain.ToolExecutor.
type Registry struct {
	mu         sync.RWMutex
	tools      map[string]*entry
	categories map[domain.ToolCategory][]string
	logger     *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:      make(map[string]*entry),
		categories: make(map[domain.ToolCategory][]string),
		logger:     logger,
	}
}

// Register adds a tool. Re-registering a name replaces the previous tool
// and logs a warning. The tool's parameter schema is compiled once here; a
// schema that fails to compile is logged and the tool registered without
// validation.
func (r *Registry) Register(t domain.Tool) {
	name := t.Name()
	schema := compileSchema(t, r.logger)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.tools[name]; exists {
		r.logger.Warn("replacing registered tool", "tool", name)
		r.removeFromCategory(old.tool.Category(), name)
	}

	r.tools[name] = &entry{tool: t, schema: schema, enabled: true}
	r.categories[t.Category()] = append(r.categories[t.Category()], name)

	r.logger.Debug("registered tool", "tool", name, "category", string(t.Category()))
}

// Unregister removes a tool by name. Removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.tools[name]
	if !exists {
		return
	}
	delete(r.tools, name)
	r.removeFromCategory(e.tool.Category(), name)
}

// removeFromCategory must be called with the write lock held.
func (r *Registry) removeFromCategory(cat domain.ToolCategory, name string) {
	names := r.categories[cat]
	for i, n := range names {
		if n == name {
			r.categories[cat] = append(names[:i], names[i+1:]...)
			break
		}
	}
	if len(r.categories[cat]) == 0 {
		delete(r.categories, cat)
	}
}

// Get implements domain.ToolExecutor.
func (r *Registry) Get(name string) (domain.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, false
	}
	return e.tool, true
}

// SetEnabled toggles a tool without unregistering it. Disabled tools keep
// their counters but are excluded from Definitions and refuse execution.
func (r *Registry) SetEnabled(name string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.tools[name]
	if !ok {
		return false
	}
	e.enabled = enabled
	return true
}

// Definitions implements domain.ToolExecutor. Only enabled tools are
// listed, sorted by name for a stable provider payload.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(r.tools))
	for _, e := range r.tools {
		if !e.enabled {
			continue
		}
		defs = append(defs, domain.Definition(e.tool))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ByCategory returns the names of registered tools in a category, sorted.
func (r *Registry) ByCategory(cat domain.ToolCategory) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.categories[cat]))
	copy(names, r.categories[cat])
	sort.Strings(names)
	return names
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute implements domain.ToolExecutor. Unknown and disabled tools yield
// failure results rather than errors so the conversation loop can relay
// them to the model.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) *domain.ToolResult {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return &domain.ToolResult{Success: false, Error: fmt.Sprintf("tool '%s' not found", name)}
	}
	if !e.enabled {
		return &domain.ToolResult{Success: false, Error: fmt.Sprintf("tool '%s' is disabled", name)}
	}
	return r.safeExecute(ctx, e, args)
}

// safeExecute validates arguments, runs the tool with panic containment,
// and updates the entry's counters. Validation failures return a generic
// failure without touching the counters; only attempts that reach the tool
// body are metered.
func (r *Registry) safeExecute(ctx context.Context, e *entry, args map[string]any) *domain.ToolResult {
	name := e.tool.Name()

	if err := r.validate(e, args); err != nil {
		r.logger.Warn("tool argument validation failed", "tool", name, "error", err)
		return &domain.ToolResult{Success: false, Error: "parameter validation failed"}
	}

	start := time.Now()
	result := r.invoke(ctx, e, args)
	elapsed := time.Since(start)
	result.ExecutionTime = elapsed

	r.mu.Lock()
	e.execCount++
	e.totalTime += elapsed
	if !result.Success {
		e.errCount++
	}
	r.mu.Unlock()

	if !result.Success {
		r.logger.Warn("tool execution failed", "tool", name, "error", result.Error)
	} else {
		r.logger.Debug("tool executed", "tool", name, "duration", elapsed.String())
	}
	return result
}

// invoke runs the tool body, converting panics and transport-level errors
// into failure results.
func (r *Registry) invoke(ctx context.Context, e *entry, args map[string]any) (result *domain.ToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool panicked", "tool", e.tool.Name(), "panic", rec)
			result = &domain.ToolResult{
				Success: false,
				Error:   fmt.Sprintf("tool panicked: %v", rec),
			}
		}
	}()

	res, err := e.tool.Execute(ctx, args)
	if err != nil {
		return &domain.ToolResult{Success: false, Error: err.Error()}
	}
	if res == nil {
		return &domain.ToolResult{Success: false, Error: "tool returned no result"}
	}
	return res
}

// validate checks args against the tool's compiled schema. Arguments are
// round-tripped through JSON first so Go-native values (ints, structs)
// normalize to the types the schema sees on the wire.
func (r *Registry) validate(e *entry, args map[string]any) error {
	if e.schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments not serializable: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return err
	}
	return e.schema.Validate(normalized)
}

// compileSchema compiles the tool's parameter list into a JSON Schema.
// Compile failures are survivable: the tool runs without validation.
func compileSchema(t domain.Tool, logger *slog.Logger) *jsonschema.Schema {
	def := domain.Definition(t)
	raw, err := json.Marshal(def.Parameters)
	if err != nil {
		logger.Warn("failed to encode tool schema", "tool", t.Name(), "error", err)
		return nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(raw)); err != nil {
		logger.Warn("failed to add tool schema resource", "tool", t.Name(), "error", err)
		return nil
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		logger.Warn("failed to compile tool schema", "tool", t.Name(), "error", err)
		return nil
	}
	return schema
}

// ToolStats is a point-in-time snapshot of one tool's usage counters.
type ToolStats struct {
	Name           string        `json:"name"`
	Category       string        `json:"category"`
	Enabled        bool          `json:"enabled"`
	ExecutionCount int64         `json:"execution_count"`
	ErrorCount     int64         `json:"error_count"`
	SuccessRate    float64       `json:"success_rate"`
	TotalTime      time.Duration `json:"total_execution_time"`
	AverageTime    time.Duration `json:"average_execution_time"`
}

// Stats returns usage counters for every registered tool, sorted by name.
func (r *Registry) Stats() []ToolStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]ToolStats, 0, len(r.tools))
	for name, e := range r.tools {
		s := ToolStats{
			Name:           name,
			Category:       string(e.tool.Category()),
			Enabled:        e.enabled,
			ExecutionCount: e.execCount,
			ErrorCount:     e.errCount,
			TotalTime:      e.totalTime,
			SuccessRate:    1,
		}
		if e.execCount > 0 {
			s.SuccessRate = float64(e.execCount-e.errCount) / float64(e.execCount)
			s.AverageTime = e.totalTime / time.Duration(e.execCount)
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

var _ domain.ToolExecutor = (*Registry)(nil)
