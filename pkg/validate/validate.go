// Package validate checks probe responses against validation specs. All
// configured validators run regardless of earlier failures; errors
// accumulate in a deterministic order (status, response time, headers,
// body, each kind in its fixed position) and never abort a run.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cgast/apiprobe/pkg/extract"
	"github.com/cgast/apiprobe/pkg/httpclient"
	"github.com/cgast/apiprobe/pkg/probe"
)

// Error is one validation failure. It is a value, not a Go error: a
// probe with validation errors is marked failed while execution
// continues.
type Error struct {
	ProbeName string
	Validator string
	Field     string
	Expected  string
	Actual    string
	Message   string
}

const (
	absentField  = "<field absent>"
	absentHeader = "<header absent>"
)

// Validate runs every configured validator against a response.
func Validate(probeName string, resp *httpclient.Response, spec *probe.ValidationSpec) []Error {
	if spec == nil {
		return nil
	}
	v := &validator{probeName: probeName, resp: resp}

	if spec.Status != nil {
		v.status(spec.Status)
	}
	if spec.ResponseTimeMS > 0 {
		v.responseTime(spec.ResponseTimeMS)
	}
	if spec.Headers != nil {
		v.headers(spec.Headers)
	}
	if spec.Body != nil {
		v.body(spec.Body)
	}
	return v.errors
}

type validator struct {
	probeName string
	resp      *httpclient.Response
	errors    []Error
}

func (v *validator) add(kind, field, expected, actual, message string) {
	v.errors = append(v.errors, Error{
		ProbeName: v.probeName,
		Validator: kind,
		Field:     field,
		Expected:  expected,
		Actual:    actual,
		Message:   message,
	})
}

// statusPattern matches range patterns like "2xx" or "5XX".
var statusPattern = regexp.MustCompile(`^([1-5])[xX]{2}$`)

func (v *validator) status(expected any) {
	actual := v.resp.StatusCode
	switch want := expected.(type) {
	case int:
		if actual != want {
			v.add("status", "status_code", fmt.Sprintf("%d", want), fmt.Sprintf("%d", actual),
				fmt.Sprintf("Expected status %d, got %d", want, actual))
		}
	case string:
		m := statusPattern.FindStringSubmatch(want)
		if m == nil {
			v.add("status", "status_code", "<valid status or pattern like \"2xx\">", want,
				fmt.Sprintf("Invalid status pattern %q", want))
			return
		}
		hundreds := int(m[1][0] - '0')
		if actual/100 != hundreds {
			v.add("status", "status_code",
				fmt.Sprintf("%d00-%d99", hundreds, hundreds), fmt.Sprintf("%d", actual),
				fmt.Sprintf("Expected status in range %d00-%d99, got %d", hundreds, hundreds, actual))
		}
	default:
		v.add("status", "status_code", "<int or pattern like \"2xx\">", fmt.Sprintf("%v", expected),
			fmt.Sprintf("Invalid status expectation %v", expected))
	}
}

func (v *validator) responseTime(ceilingMS float64) {
	actualMS := float64(v.resp.Elapsed.Milliseconds())
	if actualMS > ceilingMS {
		v.add("response_time", "response_time",
			fmt.Sprintf("<= %gms", ceilingMS), fmt.Sprintf("%gms", actualMS),
			fmt.Sprintf("Response time %gms exceeds limit %gms", actualMS, ceilingMS))
	}
}

// Header validators run in the fixed order present, absent, equals,
// matches, contains.

func (v *validator) headers(spec *probe.HeaderChecks) {
	for _, name := range spec.Present {
		if _, err := extract.ExtractHeader(v.resp, name); err != nil {
			v.add("present", "headers."+name, "<header present>", absentHeader,
				fmt.Sprintf("Header %q is absent in response", name))
		}
	}
	for _, name := range spec.Absent {
		if value, err := extract.ExtractHeader(v.resp, name); err == nil {
			v.add("absent", "headers."+name, absentHeader, fmt.Sprintf("<header present: %s>", value),
				fmt.Sprintf("Header %q should not exist but is present", name))
		}
	}
	for _, name := range sortedKeys(spec.Equals) {
		expected := spec.Equals[name]
		actual, err := extract.ExtractHeader(v.resp, name)
		if err != nil {
			v.add("equals", "headers."+name, expected, absentHeader,
				fmt.Sprintf("Header %q not found in response", name))
			continue
		}
		if actual != expected {
			v.add("equals", "headers."+name, expected, actual,
				fmt.Sprintf("Header %q: expected %q, got %q", name, expected, actual))
		}
	}
	for _, name := range sortedKeys(spec.Matches) {
		pattern := spec.Matches[name]
		actual, err := extract.ExtractHeader(v.resp, name)
		if err != nil {
			v.add("matches", "headers."+name, "/"+pattern+"/", absentHeader,
				fmt.Sprintf("Header %q not found in response", name))
			continue
		}
		v.matchPattern("headers."+name, pattern, actual,
			fmt.Sprintf("Header %q does not match pattern /%s/", name, pattern))
	}
	for _, name := range sortedKeys(spec.Contains) {
		expected := spec.Contains[name]
		actual, err := extract.ExtractHeader(v.resp, name)
		if err != nil {
			v.add("contains", "headers."+name, expected, absentHeader,
				fmt.Sprintf("Header %q not found in response", name))
			continue
		}
		if !strings.Contains(actual, expected) {
			v.add("contains", "headers."+name, fmt.Sprintf("substring %q", expected), actual,
				fmt.Sprintf("Header %q does not contain substring %q", name, expected))
		}
	}
}

// Body validators run in the fixed order present, absent, equals,
// matches, type, contains, range, length.

func (v *validator) body(spec *probe.BodyChecks) {
	for _, path := range spec.Present {
		if _, err := extract.Extract(v.resp, path); err != nil {
			v.add("present", path, "<field present>", absentField,
				fmt.Sprintf("Field %q is absent in response", path))
		}
	}
	for _, path := range spec.Absent {
		if value, err := extract.Extract(v.resp, path); err == nil {
			v.add("absent", path, absentField, fmt.Sprintf("<field present: %v>", value),
				fmt.Sprintf("Field %q should not exist but is present", path))
		}
	}
	for _, path := range sortedKeys(spec.Equals) {
		v.equals(path, spec.Equals[path])
	}
	for _, path := range sortedKeys(spec.Matches) {
		v.matches(path, spec.Matches[path])
	}
	for _, path := range sortedKeys(spec.Type) {
		v.typeCheck(path, spec.Type[path])
	}
	for _, path := range sortedKeys(spec.Contains) {
		v.contains(path, spec.Contains[path])
	}
	for _, path := range sortedKeys(spec.Range) {
		v.rangeCheck(path, spec.Range[path])
	}
	for _, path := range sortedKeys(spec.Length) {
		v.length(path, spec.Length[path])
	}
}

func (v *validator) equals(path string, expected any) {
	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("equals", path, render(expected), absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}
	if !strictEqual(actual, expected) {
		v.add("equals", path, render(expected), render(actual),
			fmt.Sprintf("Field %q: expected %s, got %s", path, render(expected), render(actual)))
	}
}

func (v *validator) matches(path, pattern string) {
	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("matches", path, "/"+pattern+"/", absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}
	s, ok := actual.(string)
	if !ok {
		v.add("matches", path, fmt.Sprintf("string matching /%s/", pattern),
			fmt.Sprintf("<non-string: %s>", jsonTypeName(actual)),
			fmt.Sprintf("Field %q is not a string, cannot match pattern", path))
		return
	}
	v.matchPattern(path, pattern, s,
		fmt.Sprintf("Field %q does not match pattern /%s/", path, pattern))
}

// matchPattern performs a regex search (unanchored), reporting an invalid
// pattern as its own error.
func (v *validator) matchPattern(field, pattern, actual, failMessage string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		v.add("matches", field, "<valid pattern>", "/"+pattern+"/",
			fmt.Sprintf("Invalid pattern /%s/: %v", pattern, err))
		return
	}
	if !re.MatchString(actual) {
		v.add("matches", field, "/"+pattern+"/", actual, failMessage)
	}
}

var typeChecks = map[string]func(any) bool{
	"string":  func(v any) bool { _, ok := v.(string); return ok },
	"integer": func(v any) bool { return isInteger(v) },
	"number":  func(v any) bool { return isInteger(v) || isFloat(v) },
	"boolean": func(v any) bool { _, ok := v.(bool); return ok },
	"array":   func(v any) bool { _, ok := v.([]any); return ok },
	"object":  func(v any) bool { _, ok := v.(map[string]any); return ok },
	"null":    func(v any) bool { return v == nil },
}

var typeNames = []string{"string", "integer", "number", "boolean", "array", "object", "null"}

func (v *validator) typeCheck(path, expectedType string) {
	check, known := typeChecks[expectedType]
	if !known {
		v.add("type", path, expectedType, "<invalid type>",
			fmt.Sprintf("Unknown type %q. Valid types: %s", expectedType, strings.Join(typeNames, ", ")))
		return
	}
	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("type", path, expectedType, absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}
	if !check(actual) {
		v.add("type", path, expectedType, jsonTypeName(actual),
			fmt.Sprintf("Field %q: expected type %q, got %q", path, expectedType, jsonTypeName(actual)))
	}
}

func (v *validator) contains(path string, expected any) {
	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("contains", path, render(expected), absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}
	switch t := actual.(type) {
	case string:
		s, ok := expected.(string)
		if !ok {
			v.add("contains", path, render(expected), t,
				fmt.Sprintf("Field %q is a string, but expected value is not a string", path))
			return
		}
		if !strings.Contains(t, s) {
			v.add("contains", path, fmt.Sprintf("substring %q", s), t,
				fmt.Sprintf("Field %q does not contain substring %q", path, s))
		}
	case []any:
		for _, elem := range t {
			if strictEqual(elem, expected) {
				return
			}
		}
		v.add("contains", path, fmt.Sprintf("element %s", render(expected)), render(t),
			fmt.Sprintf("Field %q does not contain element %s", path, render(expected)))
	default:
		v.add("contains", path, render(expected), fmt.Sprintf("<%s>", jsonTypeName(actual)),
			fmt.Sprintf("Field %q is type %q, contains requires string or array", path, jsonTypeName(actual)))
	}
}

func (v *validator) rangeCheck(path string, bounds []any) {
	if len(bounds) != 2 {
		v.add("range", path, "[min, max]", render(bounds),
			fmt.Sprintf("Range must be [min, max], got %s", render(bounds)))
		return
	}
	min, minOK := numericBound(bounds[0])
	max, maxOK := numericBound(bounds[1])
	if !minOK || !maxOK {
		v.add("range", path, "[min, max] with numeric or null bounds", render(bounds),
			fmt.Sprintf("Range bounds must be numeric or null, got %s", render(bounds)))
		return
	}

	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("range", path, fmt.Sprintf("range %s", formatRange(min, max)), absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}
	n, ok := asNumber(actual)
	if !ok {
		v.add("range", path, fmt.Sprintf("number in range %s", formatRange(min, max)),
			fmt.Sprintf("<non-numeric: %s>", jsonTypeName(actual)),
			fmt.Sprintf("Field %q is not numeric, cannot check range", path))
		return
	}
	if min != nil && n < *min {
		v.add("range", path, fmt.Sprintf(">= %g", *min), render(actual),
			fmt.Sprintf("Field %q value %v is below minimum %g", path, actual, *min))
	}
	if max != nil && n > *max {
		v.add("range", path, fmt.Sprintf("<= %g", *max), render(actual),
			fmt.Sprintf("Field %q value %v is above maximum %g", path, actual, *max))
	}
}

func (v *validator) length(path string, expected any) {
	actual, err := extract.Extract(v.resp, path)
	if err != nil {
		v.add("length", path, render(expected), absentField,
			fmt.Sprintf("Field %q not found in response", path))
		return
	}

	var actualLen int
	switch t := actual.(type) {
	case string:
		actualLen = len(t)
	case []any:
		actualLen = len(t)
	default:
		v.add("length", path, render(expected), fmt.Sprintf("<%s>", jsonTypeName(actual)),
			fmt.Sprintf("Field %q is type %q, length requires string or array", path, jsonTypeName(actual)))
		return
	}

	switch want := expected.(type) {
	case int:
		if actualLen != want {
			v.add("length", path, fmt.Sprintf("length %d", want), fmt.Sprintf("length %d", actualLen),
				fmt.Sprintf("Field %q: expected length %d, got %d", path, want, actualLen))
		}
	case []any:
		if len(want) != 2 {
			v.add("length", path, "int or [min, max]", render(want),
				fmt.Sprintf("Length range must be [min, max], got %s", render(want)))
			return
		}
		min, minOK := numericBound(want[0])
		max, maxOK := numericBound(want[1])
		if !minOK || !maxOK {
			v.add("length", path, "[min, max] with numeric or null bounds", render(want),
				fmt.Sprintf("Length bounds must be numeric or null, got %s", render(want)))
			return
		}
		if min != nil && float64(actualLen) < *min {
			v.add("length", path, fmt.Sprintf("length >= %g", *min), fmt.Sprintf("length %d", actualLen),
				fmt.Sprintf("Field %q length %d is below minimum %g", path, actualLen, *min))
		}
		if max != nil && float64(actualLen) > *max {
			v.add("length", path, fmt.Sprintf("length <= %g", *max), fmt.Sprintf("length %d", actualLen),
				fmt.Sprintf("Field %q length %d is above maximum %g", path, actualLen, *max))
		}
	default:
		v.add("length", path, "int or [min, max]", render(expected),
			fmt.Sprintf("Length expectation must be an int or [min, max], got %s", render(expected)))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
