package tool

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model8cli/internal/domain"
)

func newCountingTool(name string, invocations *atomic.Int64, params []domain.ToolParameter, run func(ctx context.Context, args Args) (any, error)) domain.Tool {
	return New(Options{
		Name:       name,
		Category:   domain.CategoryCustom,
		Parameters: params,
		Run: func(ctx context.Context, args Args) (any, error) {
			invocations.Add(1)
			if run != nil {
				return run(ctx, args)
			}
			return "ok", nil
		},
	})
}

func TestRegistryValidationNeverReachesToolBody(t *testing.T) {
	var invocations atomic.Int64
	reg := NewRegistry(nil)
	reg.Register(newCountingTool("strict", &invocations, []domain.ToolParameter{
		{Name: "query", Type: "string", Required: true},
		{Name: "mode", Type: "string", Enum: []string{"fast", "deep"}},
		{Name: "limit", Type: "integer"},
	}, nil))

	cases := []map[string]any{
		{},                                   // missing required
		{"query": 42},                        // wrong type
		{"query": "x", "mode": "impossible"}, // enum violation
		{"query": "x", "limit": "ten"},       // wrong type on optional
	}
	for _, args := range cases {
		res := reg.Execute(context.Background(), "strict", args)
		require.False(t, res.Success)
		assert.Equal(t, "parameter validation failed", res.Error)
	}
	assert.Equal(t, int64(0), invocations.Load(), "validation failures must not invoke the tool")

	stats := reg.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(0), stats[0].ExecutionCount, "validation failures are not metered")

	res := reg.Execute(context.Background(), "strict", map[string]any{"query": "x", "mode": "fast", "limit": 3})
	assert.True(t, res.Success)
	assert.Equal(t, int64(1), invocations.Load())
}

func TestRegistryUnknownAndDisabled(t *testing.T) {
	var invocations atomic.Int64
	reg := NewRegistry(nil)

	res := reg.Execute(context.Background(), "ghost", nil)
	require.False(t, res.Success)
	assert.Equal(t, "tool 'ghost' not found", res.Error)

	reg.Register(newCountingTool("toggle", &invocations, nil, nil))
	require.True(t, reg.SetEnabled("toggle", false))

	res = reg.Execute(context.Background(), "toggle", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "disabled")
	assert.Equal(t, int64(0), invocations.Load())

	assert.Empty(t, reg.Definitions(), "disabled tools are excluded from definitions")

	reg.SetEnabled("toggle", true)
	res = reg.Execute(context.Background(), "toggle", nil)
	assert.True(t, res.Success)
}

func TestRegistryPanicContainment(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(New(Options{
		Name:     "explosive",
		Category: domain.CategoryCustom,
		Run: func(ctx context.Context, args Args) (any, error) {
			panic("boom")
		},
	}))

	res := reg.Execute(context.Background(), "explosive", nil)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")

	stats := reg.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, int64(1), stats[0].ExecutionCount)
	assert.Equal(t, int64(1), stats[0].ErrorCount)
}

func TestRegistryMetrics(t *testing.T) {
	var invocations atomic.Int64
	reg := NewRegistry(nil)
	reg.Register(newCountingTool("flaky", &invocations, []domain.ToolParameter{
		{Name: "fail", Type: "boolean"},
	}, func(ctx context.Context, args Args) (any, error) {
		if args.Bool("fail", false) {
			return nil, fmt.Errorf("requested failure")
		}
		return "ok", nil
	}))

	for i := 0; i < 3; i++ {
		reg.Execute(context.Background(), "flaky", map[string]any{"fail": false})
	}
	reg.Execute(context.Background(), "flaky", map[string]any{"fail": true})

	stats := reg.Stats()
	require.Len(t, stats, 1)
	s := stats[0]
	assert.Equal(t, int64(4), s.ExecutionCount)
	assert.Equal(t, int64(1), s.ErrorCount)
	assert.InDelta(t, 0.75, s.SuccessRate, 1e-9)
	assert.GreaterOrEqual(t, s.TotalTime, s.AverageTime)
}

func TestRegistryReplaceAndUnregister(t *testing.T) {
	var first, second atomic.Int64
	reg := NewRegistry(nil)
	reg.Register(newCountingTool("shared", &first, nil, nil))
	reg.Register(newCountingTool("shared", &second, nil, nil))

	reg.Execute(context.Background(), "shared", nil)
	assert.Equal(t, int64(0), first.Load())
	assert.Equal(t, int64(1), second.Load(), "re-registration replaces the previous tool")

	assert.Equal(t, []string{"shared"}, reg.ByCategory(domain.CategoryCustom))

	reg.Unregister("shared")
	_, ok := reg.Get("shared")
	assert.False(t, ok)
	assert.Empty(t, reg.ByCategory(domain.CategoryCustom))
}

func TestRegistryDefinitionsSorted(t *testing.T) {
	var n atomic.Int64
	reg := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		reg.Register(newCountingTool(name, &n, nil, nil))
	}

	defs := reg.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].Name)
	assert.Equal(t, "mid", defs[1].Name)
	assert.Equal(t, "zeta", defs[2].Name)
}
