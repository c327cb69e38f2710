package workflow

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Substitute resolves {{variable}} placeholders recursively through maps,
// slices and strings. The built-ins {{now}} (RFC 3339) and {{timestamp}}
// (compact, filename-safe) resolve before user variables, so a user
// variable cannot shadow them. Unknown placeholders are left verbatim.
func Substitute(obj any, variables map[string]any) any {
	switch v := obj.(type) {
	case string:
		return substituteString(v, variables)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = Substitute(val, variables)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = Substitute(val, variables)
		}
		return out
	default:
		return obj
	}
}

func substituteString(s string, variables map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}

	now := time.Now()
	s = strings.ReplaceAll(s, "{{now}}", now.Format(time.RFC3339))
	s = strings.ReplaceAll(s, "{{timestamp}}", now.Format("20060102_150405"))

	for key, value := range variables {
		placeholder := "{{" + key + "}}"
		if strings.Contains(s, placeholder) {
			s = strings.ReplaceAll(s, placeholder, stringify(value))
		}
	}
	return s
}

// stringify renders a variable value for interpolation. Structured values
// render as JSON so a step can pass a previous step's full result payload
// through a string parameter.
func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any, []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var comparisonOps = []string{"==", "!=", "<=", ">=", "<", ">"}

// evalComparison evaluates one binary comparison over already-resolved
// operands. Operands that both parse as numbers compare numerically,
// otherwise as strings. A bare "true"/"false" evaluates to itself. An
// operand still containing "{{" means an unresolved variable and is an
// error — the caller decides what that defaults to.
func evalComparison(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)
	if strings.Contains(expr, "{{") {
		return false, fmt.Errorf("unresolved variable in condition %q", expr)
	}

	for _, op := range comparisonOps {
		idx := strings.Index(expr, op)
		if idx < 0 {
			continue
		}
		left := strings.TrimSpace(expr[:idx])
		right := strings.TrimSpace(expr[idx+len(op):])
		if left == "" || right == "" {
			return false, fmt.Errorf("malformed condition %q", expr)
		}
		return compare(left, right, op)
	}

	switch strings.ToLower(expr) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("unsupported condition %q", expr)
}

func compare(left, right, op string) (bool, error) {
	left = strings.Trim(left, `'"`)
	right = strings.Trim(right, `'"`)

	lf, lerr := strconv.ParseFloat(left, 64)
	rf, rerr := strconv.ParseFloat(right, 64)
	if lerr == nil && rerr == nil {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}

	switch op {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case "<":
		return left < right, nil
	case "<=":
		return left <= right, nil
	case ">":
		return left > right, nil
	case ">=":
		return left >= right, nil
	}
	return false, fmt.Errorf("unsupported operator %q", op)
}
