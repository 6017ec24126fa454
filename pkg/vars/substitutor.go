package vars

import (
	"fmt"
	"regexp"
)

// pattern matches ${NAME} references. Names follow identifier rules.
var pattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// UndefinedError reports a ${NAME} reference with no binding. It fails
// the substitution closed: no partial output is ever produced.
type UndefinedError struct {
	Name string
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined variable: ${%s}", e.Name)
}

// Lookup resolves a variable name to its string form. The second return
// reports whether the name is bound.
type Lookup func(name string) (string, bool)

// Substitutor replaces ${NAME} references in strings and nested
// structures against a variable lookup.
type Substitutor struct {
	lookup Lookup
}

// New creates a Substitutor over a lookup function.
func New(lookup Lookup) *Substitutor {
	return &Substitutor{lookup: lookup}
}

// NewFromMap creates a Substitutor over a plain string map.
func NewFromMap(m map[string]string) *Substitutor {
	return New(func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	})
}

// String replaces every ${NAME} in a single string. It returns an
// UndefinedError for the first unbound name.
func (s *Substitutor) String(text string) (string, error) {
	var undefined *UndefinedError
	result := pattern.ReplaceAllStringFunc(text, func(match string) string {
		if undefined != nil {
			return match
		}
		name := match[2 : len(match)-1]
		value, ok := s.lookup(name)
		if !ok {
			undefined = &UndefinedError{Name: name}
			return match
		}
		return value
	})
	if undefined != nil {
		return "", undefined
	}
	return result, nil
}

// Any recursively substitutes every string leaf in a value. Maps and
// slices are rebuilt, never mutated in place; non-string leaves pass
// through unchanged.
func (s *Substitutor) Any(value any) (any, error) {
	switch t := value.(type) {
	case string:
		return s.String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			sub, err := s.Any(v)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, v := range t {
			sub, err := s.String(v)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			sub, err := s.Any(v)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return value, nil
	}
}

// StringMap substitutes every value of a string map. Nil input yields
// nil output.
func (s *Substitutor) StringMap(m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out, err := s.Any(m)
	if err != nil {
		return nil, err
	}
	return out.(map[string]string), nil
}

// References returns every variable name referenced in a string, in
// order of first appearance.
func References(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range pattern.FindAllStringSubmatch(text, -1) {
		if !seen[match[1]] {
			seen[match[1]] = true
			names = append(names, match[1])
		}
	}
	return names
}

// IsTemplate reports whether a string is exactly one ${NAME} reference
// and nothing else.
func IsTemplate(text string) bool {
	loc := pattern.FindStringIndex(text)
	return loc != nil && loc[0] == 0 && loc[1] == len(text)
}
