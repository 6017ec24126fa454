package httpclient

import (
	"net/url"
	"strings"
	"testing"

	"github.com/ohler55/ojg/oj"

	"github.com/cgast/apiprobe/pkg/probe"
)

func TestBuildRESTDefaults(t *testing.T) {
	req, err := BuildREST(&probe.Probe{Name: "p", Endpoint: "http://x/y"})
	if err != nil {
		t.Fatalf("BuildREST: %v", err)
	}
	if req.Method != "GET" {
		t.Errorf("method = %q, want GET", req.Method)
	}
	if req.Body != nil {
		t.Errorf("body = %q, want nil", req.Body)
	}
}

func TestBuildRESTMethodUppercased(t *testing.T) {
	req, err := BuildREST(&probe.Probe{Name: "p", Endpoint: "http://x", Method: "delete"})
	if err != nil {
		t.Fatalf("BuildREST: %v", err)
	}
	if req.Method != "DELETE" {
		t.Errorf("method = %q, want DELETE", req.Method)
	}
}

func TestBuildRESTBodyRequiresContentType(t *testing.T) {
	_, err := BuildREST(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x",
		Method:   "POST",
		Body:     map[string]any{"a": 1},
	})
	if err == nil {
		t.Fatal("expected error for body without Content-Type")
	}
	if !strings.Contains(err.Error(), "Content-Type") {
		t.Errorf("error = %v", err)
	}
}

func TestBuildRESTJSONBody(t *testing.T) {
	req, err := BuildREST(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x",
		Method:   "POST",
		Headers:  map[string]string{"content-type": "application/json; charset=utf-8"},
		Body:     map[string]any{"a": int64(1), "b": "two"},
	})
	if err != nil {
		t.Fatalf("BuildREST: %v", err)
	}
	decoded, err := oj.Parse(req.Body)
	if err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	m := decoded.(map[string]any)
	if m["b"] != "two" {
		t.Errorf("decoded body = %v", m)
	}
}

func TestBuildRESTFormBody(t *testing.T) {
	req, err := BuildREST(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x",
		Method:   "POST",
		Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:     map[string]any{"user": "ada", "n": 2},
	})
	if err != nil {
		t.Fatalf("BuildREST: %v", err)
	}
	values, err := url.ParseQuery(string(req.Body))
	if err != nil {
		t.Fatalf("body is not form-encoded: %v", err)
	}
	if values.Get("user") != "ada" || values.Get("n") != "2" {
		t.Errorf("values = %v", values)
	}
}

func TestBuildRESTFormBodyRejectsNonMapping(t *testing.T) {
	_, err := BuildREST(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x",
		Method:   "POST",
		Headers:  map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
		Body:     "raw",
	})
	if err == nil {
		t.Fatal("expected error for non-mapping form body")
	}
}

func TestBuildRESTRawBody(t *testing.T) {
	req, err := BuildREST(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x",
		Method:   "POST",
		Headers:  map[string]string{"Content-Type": "application/xml"},
		Body:     "<a>1</a>",
	})
	if err != nil {
		t.Fatalf("BuildREST: %v", err)
	}
	if string(req.Body) != "<a>1</a>" {
		t.Errorf("body = %q", req.Body)
	}
}

func TestBuildGraphQLEnvelope(t *testing.T) {
	req, err := BuildGraphQL(&probe.Probe{
		Name:      "p",
		Endpoint:  "http://x/graphql",
		Query:     "query { me { id } }",
		Variables: map[string]any{"limit": int64(5)},
	})
	if err != nil {
		t.Fatalf("BuildGraphQL: %v", err)
	}
	if req.Method != "POST" {
		t.Errorf("method = %q, want POST", req.Method)
	}
	if req.Headers["Content-Type"] != "application/json" {
		t.Errorf("content type = %q", req.Headers["Content-Type"])
	}

	decoded, err := oj.Parse(req.Body)
	if err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	envelope := decoded.(map[string]any)
	if envelope["query"] != "query { me { id } }" {
		t.Errorf("query = %v", envelope["query"])
	}
	variables := envelope["variables"].(map[string]any)
	if variables["limit"] != int64(5) {
		t.Errorf("variables = %v", variables)
	}
}

func TestBuildGraphQLKeepsExplicitContentType(t *testing.T) {
	req, err := BuildGraphQL(&probe.Probe{
		Name:     "p",
		Endpoint: "http://x/graphql",
		Query:    "{ ping }",
		Headers:  map[string]string{"Content-Type": "application/json; charset=utf-8"},
	})
	if err != nil {
		t.Fatalf("BuildGraphQL: %v", err)
	}
	if req.Headers["Content-Type"] != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", req.Headers["Content-Type"])
	}
}

func TestBuildDispatchesOnType(t *testing.T) {
	rest, err := Build(&probe.Probe{Name: "r", Type: probe.TypeREST, Endpoint: "http://x"})
	if err != nil {
		t.Fatalf("Build rest: %v", err)
	}
	if rest.Method != "GET" {
		t.Errorf("rest method = %q", rest.Method)
	}

	gql, err := Build(&probe.Probe{Name: "g", Type: probe.TypeGraphQL, Endpoint: "http://x", Query: "{ ping }"})
	if err != nil {
		t.Fatalf("Build graphql: %v", err)
	}
	if gql.Method != "POST" {
		t.Errorf("graphql method = %q", gql.Method)
	}
}

func TestBuildDoesNotMutateProbeHeaders(t *testing.T) {
	p := &probe.Probe{
		Name:     "p",
		Type:     probe.TypeGraphQL,
		Endpoint: "http://x",
		Query:    "{ ping }",
		Headers:  map[string]string{"X-A": "1"},
	}
	if _, err := Build(p); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, injected := p.Headers["Content-Type"]; injected {
		t.Error("Build mutated the probe's header map")
	}
}
