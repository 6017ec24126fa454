package expr

import (
	"testing"
)

func varsFromMap(m map[string]any) VarSource {
	return func(name string) (any, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestIsExpression(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"STATUS == 200", true},
		{"A && B", true},
		{"len(ITEMS) == 0", true},
		{"has(TOKEN)", true},
		{"empty(LIST)", true},
		{"${VAR}", false},
		{"plain value", false},
		{"https://example.com/path", false},
	}
	for _, tt := range tests {
		if got := IsExpression(tt.input); got != tt.want {
			t.Errorf("IsExpression(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestEvalBool(t *testing.T) {
	vars := varsFromMap(map[string]any{
		"ENV":    "prod",
		"COUNT":  int64(3),
		"RATIO":  0.5,
		"DEBUG":  true,
		"ITEMS":  []any{},
		"TAGS":   []any{"a", "b"},
		"EMPTY":  "",
		"CONFIG": map[string]any{"k": 1},
	})

	tests := []struct {
		expr string
		want bool
	}{
		{"ENV == 'prod'", true},
		{"ENV != 'prod'", false},
		{"COUNT > 2", true},
		{"COUNT >= 3", true},
		{"COUNT < 3", false},
		{"RATIO <= 0.5", true},
		{"DEBUG", true},
		{"!DEBUG", false},
		{"len(ITEMS) == 0", true},
		{"len(TAGS) == 2", true},
		{"len(EMPTY) == 0", true},
		{"has(TAGS)", true},
		{"has(ITEMS)", false},
		{"has(EMPTY)", false},
		{"empty(ITEMS)", true},
		{"empty(TAGS)", false},
		{"has(CONFIG)", true},
		{"ENV == 'prod' && COUNT > 2", true},
		{"ENV == 'dev' || COUNT > 2", true},
		{"ENV == 'dev' && COUNT > 2", false},
		{"!(ENV == 'dev')", true},
		{"COUNT == 3", true},
		{"COUNT == 3.0", true},
		{"ENV > 'a'", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if got := EvalBool(tt.expr, vars); got != tt.want {
				t.Errorf("EvalBool(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvalBoolFailsClosed(t *testing.T) {
	vars := varsFromMap(map[string]any{"N": int64(1)})

	// Unknown identifiers, type mismatches in ordering, and syntax
	// errors all yield false, never a panic or a skip.
	exprs := []string{
		"UNKNOWN == 1",
		"has(UNKNOWN)",
		"N > 'text'",
		"N ==",
		"((N > 0)",
		"N >>> 2",
	}
	for _, e := range exprs {
		if EvalBool(e, vars) {
			t.Errorf("EvalBool(%q) = true, want false", e)
		}
	}
}

func TestEvalValue(t *testing.T) {
	vars := varsFromMap(map[string]any{"LIMIT": int64(10)})
	body := func(path string) any {
		values := map[string]any{
			"total":      int64(7),
			"user.name":  "ada",
			"items[0]":   "first",
			"absent.key": nil,
		}
		return values[path]
	}

	tests := []struct {
		expr string
		want any
	}{
		{"body.total", int64(7)},
		{"body.total < LIMIT", true},
		{"body.user.name == 'ada'", true},
		{"body.items[0]", "first"},
		{"len(body.user.name)", int64(3)},
		{"has(body.absent.key)", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got := EvalValue(tt.expr, vars, body)
			if got != tt.want {
				t.Errorf("EvalValue(%q) = %v (%T), want %v", tt.expr, got, got, tt.want)
			}
		})
	}
}

func TestEvalValueFailureIsNil(t *testing.T) {
	vars := varsFromMap(nil)
	if got := EvalValue("UNKNOWN == 1", vars, nil); got != nil {
		t.Errorf("EvalValue = %v, want nil", got)
	}
}
