package validate

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cgast/apiprobe/pkg/httpclient"
	"github.com/cgast/apiprobe/pkg/probe"
)

func response(status int, body string) *httpclient.Response {
	return &httpclient.Response{
		StatusCode: status,
		Headers: http.Header{
			"Content-Type": []string{"application/json"},
			"X-Request-Id": []string{"r-1"},
		},
		Body:    []byte(body),
		Elapsed: 50 * time.Millisecond,
	}
}

func TestStatusValidator(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   int
		wantErrs int
		wantIn   string
	}{
		{"exact match", 201, 201, 0, ""},
		{"exact mismatch", 200, 404, 1, "Expected status 200, got 404"},
		{"pattern match", "4xx", 404, 0, ""},
		{"pattern mismatch shows range", "4xx", 500, 1, "400-499"},
		{"pattern uppercase", "2XX", 204, 0, ""},
		{"invalid pattern", "9xx", 200, 1, "Invalid status pattern"},
		{"invalid expectation type", 2.5, 200, 1, "Invalid status expectation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &probe.ValidationSpec{Status: tt.expected}
			errs := Validate("t", response(tt.actual, `{}`), spec)
			if len(errs) != tt.wantErrs {
				t.Fatalf("errors = %v, want %d", errs, tt.wantErrs)
			}
			if tt.wantIn != "" && !strings.Contains(errs[0].Message, tt.wantIn) {
				t.Errorf("message %q does not contain %q", errs[0].Message, tt.wantIn)
			}
		})
	}
}

func TestResponseTimeValidator(t *testing.T) {
	spec := &probe.ValidationSpec{ResponseTimeMS: 10}
	errs := Validate("t", response(200, `{}`), spec)
	if len(errs) != 1 || errs[0].Validator != "response_time" {
		t.Fatalf("errors = %v", errs)
	}

	spec = &probe.ValidationSpec{ResponseTimeMS: 1000}
	if errs := Validate("t", response(200, `{}`), spec); len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestEqualsStrictTypes(t *testing.T) {
	body := `{"int": 1, "float": 1.0, "s": "1", "b": true, "list": [1, 2]}`

	tests := []struct {
		name     string
		path     string
		expected any
		pass     bool
	}{
		{"int equals int", "int", 1, true},
		{"int not float", "int", 1.0, false},
		{"float not int", "float", 1, false},
		{"float equals float", "float", 1.0, true},
		{"string one not int one", "s", 1, false},
		{"bool not int", "b", 1, false},
		{"list deep equal", "list", []any{1, 2}, true},
		{"list order matters", "list", []any{2, 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &probe.ValidationSpec{
				Body: &probe.BodyChecks{Equals: map[string]any{tt.path: tt.expected}},
			}
			errs := Validate("t", response(200, body), spec)
			if tt.pass && len(errs) != 0 {
				t.Errorf("unexpected errors: %v", errs)
			}
			if !tt.pass && len(errs) != 1 {
				t.Errorf("errors = %v, want exactly one", errs)
			}
		})
	}
}

func TestEqualsAbsentFieldDistinctMessage(t *testing.T) {
	spec := &probe.ValidationSpec{
		Body: &probe.BodyChecks{Equals: map[string]any{"nope": 1}},
	}
	errs := Validate("t", response(200, `{}`), spec)
	if len(errs) != 1 {
		t.Fatalf("errors = %v", errs)
	}
	if errs[0].Actual != "<field absent>" {
		t.Errorf("Actual = %q, want field-absent marker", errs[0].Actual)
	}
	if !strings.Contains(errs[0].Message, "not found") {
		t.Errorf("message = %q", errs[0].Message)
	}
}

func TestRangeValidator(t *testing.T) {
	body := `{"n": 5, "neg": -3, "f": 2.5, "b": true, "s": "x"}`

	tests := []struct {
		name   string
		path   string
		bounds []any
		pass   bool
	}{
		{"within", "n", []any{0, 10}, true},
		{"below min", "neg", []any{0, nil}, false},
		{"unbounded max", "n", []any{0, nil}, true},
		{"unbounded min", "neg", []any{nil, 0}, true},
		{"above max", "n", []any{0, 4}, false},
		{"float within", "f", []any{2, 3}, true},
		{"boolean not numeric", "b", []any{0, 1}, false},
		{"string not numeric", "s", []any{0, 1}, false},
		{"bad shape", "n", []any{0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &probe.ValidationSpec{
				Body: &probe.BodyChecks{Range: map[string][]any{tt.path: tt.bounds}},
			}
			errs := Validate("t", response(200, body), spec)
			if tt.pass != (len(errs) == 0) {
				t.Errorf("pass = %v, errors = %v", tt.pass, errs)
			}
		})
	}
}

func TestMatchesValidator(t *testing.T) {
	body := `{"email": "a@b.co", "n": 7}`

	spec := &probe.ValidationSpec{
		Body: &probe.BodyChecks{Matches: map[string]string{"email": "@b\\."}},
	}
	if errs := Validate("t", response(200, body), spec); len(errs) != 0 {
		t.Errorf("search semantics should pass: %v", errs)
	}

	spec = &probe.ValidationSpec{
		Body: &probe.BodyChecks{Matches: map[string]string{"n": "7"}},
	}
	errs := Validate("t", response(200, body), spec)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "not a string") {
		t.Errorf("non-string field: %v", errs)
	}

	spec = &probe.ValidationSpec{
		Body: &probe.BodyChecks{Matches: map[string]string{"email": "("}},
	}
	errs = Validate("t", response(200, body), spec)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "Invalid pattern") {
		t.Errorf("invalid pattern: %v", errs)
	}
}

func TestTypeValidator(t *testing.T) {
	body := `{"s": "x", "i": 3, "f": 1.5, "b": true, "a": [], "o": {}, "z": null}`

	pass := map[string]string{
		"s": "string", "i": "integer", "f": "number",
		"b": "boolean", "a": "array", "o": "object", "z": "null",
	}
	for path, typeName := range pass {
		spec := &probe.ValidationSpec{
			Body: &probe.BodyChecks{Type: map[string]string{path: typeName}},
		}
		if errs := Validate("t", response(200, body), spec); len(errs) != 0 {
			t.Errorf("type %s on %s: %v", typeName, path, errs)
		}
	}

	// Booleans are excluded from integer and number checks.
	for _, typeName := range []string{"integer", "number"} {
		spec := &probe.ValidationSpec{
			Body: &probe.BodyChecks{Type: map[string]string{"b": typeName}},
		}
		if errs := Validate("t", response(200, body), spec); len(errs) != 1 {
			t.Errorf("boolean as %s: %v", typeName, errs)
		}
	}

	// Integers satisfy number.
	spec := &probe.ValidationSpec{
		Body: &probe.BodyChecks{Type: map[string]string{"i": "number"}},
	}
	if errs := Validate("t", response(200, body), spec); len(errs) != 0 {
		t.Errorf("integer as number: %v", errs)
	}

	spec = &probe.ValidationSpec{
		Body: &probe.BodyChecks{Type: map[string]string{"s": "text"}},
	}
	errs := Validate("t", response(200, body), spec)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "Unknown type") {
		t.Errorf("unknown type: %v", errs)
	}
}

func TestContainsValidator(t *testing.T) {
	body := `{"msg": "hello world", "tags": ["a", "b"], "nums": [1, 2], "n": 5}`

	tests := []struct {
		name     string
		path     string
		expected any
		pass     bool
	}{
		{"substring", "msg", "lo wo", true},
		{"missing substring", "msg", "xyz", false},
		{"array element", "tags", "b", true},
		{"array missing element", "tags", "c", false},
		{"array int element", "nums", 2, true},
		{"array strict type", "nums", 2.0, false},
		{"unsupported type", "n", 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &probe.ValidationSpec{
				Body: &probe.BodyChecks{Contains: map[string]any{tt.path: tt.expected}},
			}
			errs := Validate("t", response(200, body), spec)
			if tt.pass != (len(errs) == 0) {
				t.Errorf("pass = %v, errors = %v", tt.pass, errs)
			}
		})
	}
}

func TestLengthValidator(t *testing.T) {
	body := `{"s": "abcd", "a": [1, 2, 3], "n": 5}`

	tests := []struct {
		name     string
		path     string
		expected any
		pass     bool
	}{
		{"string exact", "s", 4, true},
		{"string wrong", "s", 3, false},
		{"array exact", "a", 3, true},
		{"array range", "a", []any{1, 5}, true},
		{"array below min", "a", []any{4, nil}, false},
		{"array above max", "a", []any{nil, 2}, false},
		{"non-measurable", "n", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := &probe.ValidationSpec{
				Body: &probe.BodyChecks{Length: map[string]any{tt.path: tt.expected}},
			}
			errs := Validate("t", response(200, body), spec)
			if tt.pass != (len(errs) == 0) {
				t.Errorf("pass = %v, errors = %v", tt.pass, errs)
			}
		})
	}
}

func TestHeaderValidators(t *testing.T) {
	resp := response(200, `{}`)

	spec := &probe.ValidationSpec{
		Headers: &probe.HeaderChecks{
			Present:  []string{"x-request-id"},
			Absent:   []string{"X-Debug"},
			Equals:   map[string]string{"X-Request-Id": "r-1"},
			Matches:  map[string]string{"Content-Type": "^application/"},
			Contains: map[string]string{"Content-Type": "json"},
		},
	}
	if errs := Validate("t", resp, spec); len(errs) != 0 {
		t.Fatalf("errors = %v, want none", errs)
	}

	spec = &probe.ValidationSpec{
		Headers: &probe.HeaderChecks{
			Present: []string{"X-Missing"},
			Absent:  []string{"X-Request-Id"},
		},
	}
	errs := Validate("t", resp, spec)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	if errs[0].Validator != "present" || errs[1].Validator != "absent" {
		t.Errorf("kind order = %s, %s", errs[0].Validator, errs[1].Validator)
	}
}

func TestValidatorsAccumulateInOrder(t *testing.T) {
	spec := &probe.ValidationSpec{
		Status: 201,
		Headers: &probe.HeaderChecks{
			Present: []string{"X-Missing"},
		},
		Body: &probe.BodyChecks{
			Present: []string{"nope"},
			Equals:  map[string]any{"also.nope": 1},
		},
	}
	errs := Validate("t", response(200, `{}`), spec)
	if len(errs) != 4 {
		t.Fatalf("errors = %v, want 4", errs)
	}
	order := []string{"status", "present", "present", "equals"}
	for i, kind := range order {
		if errs[i].Validator != kind {
			t.Errorf("errs[%d].Validator = %s, want %s", i, errs[i].Validator, kind)
		}
	}
	for _, e := range errs {
		if e.ProbeName != "t" {
			t.Errorf("ProbeName = %q", e.ProbeName)
		}
	}
}

func TestNilSpec(t *testing.T) {
	if errs := Validate("t", response(200, `{}`), nil); errs != nil {
		t.Errorf("errors = %v", errs)
	}
}
