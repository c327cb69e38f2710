package workflow

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteRecursesThroughStructures(t *testing.T) {
	vars := map[string]any{"name": "model8cli", "count": 3}

	in := map[string]any{
		"title": "hello {{name}}",
		"nested": map[string]any{
			"items": []any{"{{name}}-{{count}}", 7, true},
		},
	}

	out, ok := Substitute(in, vars).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello model8cli", out["title"])

	nested := out["nested"].(map[string]any)
	items := nested["items"].([]any)
	assert.Equal(t, "model8cli-3", items[0])
	assert.Equal(t, 7, items[1])
	assert.Equal(t, true, items[2])
}

func TestSubstituteBuiltins(t *testing.T) {
	out := substituteString("run at {{now}} saved as report_{{timestamp}}.md", nil)
	assert.NotContains(t, out, "{{now}}")
	assert.NotContains(t, out, "{{timestamp}}")
	assert.Regexp(t, regexp.MustCompile(`report_\d{8}_\d{6}\.md`), out)
}

func TestSubstituteBuiltinsResolveBeforeUserVariables(t *testing.T) {
	out := substituteString("{{now}}", map[string]any{"now": "shadowed"})
	assert.NotEqual(t, "shadowed", out)
}

func TestSubstituteUnknownPlaceholderLeftVerbatim(t *testing.T) {
	out := substituteString("value is {{unknown}}", map[string]any{"known": 1})
	assert.Equal(t, "value is {{unknown}}", out)
}

func TestStringifyStructuredValues(t *testing.T) {
	assert.Equal(t, "text", stringify("text"))
	assert.Equal(t, "42", stringify(42))
	assert.Equal(t, `{"a":1}`, stringify(map[string]any{"a": 1}))
	assert.Equal(t, `["x","y"]`, stringify([]any{"x", "y"}))
}

func TestEvalComparison(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"1 == 1", true},
		{"1 != 2", true},
		{"3 < 10", true},
		{"10 <= 10", true},
		{"2 > 5", false},
		{"abc == abc", true},
		{"abc != def", true},
		{"'quoted' == quoted", true},
		{"true", true},
		{"false", false},
		// Numeric compare wins over lexicographic when both sides parse.
		{"9 < 10", true},
	}
	for _, tc := range cases {
		got, err := evalComparison(tc.expr)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.want, got, tc.expr)
	}
}

func TestEvalComparisonErrors(t *testing.T) {
	for _, expr := range []string{
		"{{unresolved}} == x",
		"just words",
		"== missing",
		"",
	} {
		_, err := evalComparison(expr)
		assert.Error(t, err, expr)
	}
}
