package vars

import (
	"fmt"
	"strconv"

	"github.com/ohler55/ojg/oj"
)

// Kind tags the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// Value is one context variable: the original typed representation plus
// the string form used for ${VAR} substitution. The string form is fixed
// at the write boundary so substitution never re-coerces.
type Value struct {
	Raw  any
	Str  string
	Kind Kind
}

// NewValue wraps a raw value, computing its kind and string form.
func NewValue(raw any) Value {
	return Value{Raw: raw, Str: Stringify(raw), Kind: KindOf(raw)}
}

// KindOf classifies a decoded YAML/JSON value. Unknown types are treated
// as strings of their fmt representation.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int32, int64:
		return KindInt
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case []any, []string:
		return KindList
	case map[string]any:
		return KindMap
	default:
		return KindString
	}
}

// Stringify renders a value for storage in the execution context.
// Strings pass through, numbers and booleans render canonically, lists
// and maps render as JSON, nil renders empty.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []any, []string, map[string]any:
		return oj.JSON(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
