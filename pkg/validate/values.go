package validate

import (
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/oj"
)

// strictEqual compares a decoded body value against a configured
// expectation with strict value AND type equality: integer 1 never
// equals float 1.0, and booleans never equal numbers. Decoded-integer
// widths (int vs int64) are normalized before comparing.
func strictEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	switch {
	case isInteger(actual):
		return isInteger(expected) && asInt(actual) == asInt(expected)
	case isFloat(actual):
		f, ok := expected.(float64)
		return ok && actual.(float64) == f
	}
	switch a := actual.(type) {
	case bool:
		e, ok := expected.(bool)
		return ok && a == e
	case string:
		e, ok := expected.(string)
		return ok && a == e
	case []any:
		e, ok := expected.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range a {
			if !strictEqual(a[i], e[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		e, ok := expected.(map[string]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for k, av := range a {
			ev, exists := e[k]
			if !exists || !strictEqual(av, ev) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int32, int64:
		return true
	default:
		return false
	}
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	default:
		return false
	}
}

func asInt(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	default:
		return 0
	}
}

// asNumber converts a numeric value to float64. Booleans are excluded.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// numericBound interprets a range bound: nil means unbounded, a number
// is the bound, anything else is invalid.
func numericBound(v any) (*float64, bool) {
	if v == nil {
		return nil, true
	}
	if _, isBool := v.(bool); isBool {
		return nil, false
	}
	n, ok := asNumber(v)
	if !ok {
		return nil, false
	}
	return &n, true
}

func formatRange(min, max *float64) string {
	switch {
	case min == nil && max == nil:
		return "(-inf, +inf)"
	case min == nil:
		return fmt.Sprintf("(-inf, %g]", *max)
	case max == nil:
		return fmt.Sprintf("[%g, +inf)", *min)
	default:
		return fmt.Sprintf("[%g, %g]", *min, *max)
	}
}

// jsonTypeName names a decoded value in JSON vocabulary.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int, int32, int64:
		return "integer"
	case float32, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// render shows a value in error messages using its JSON form.
func render(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	default:
		return oj.JSON(v)
	}
}
