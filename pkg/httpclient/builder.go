package httpclient

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/cgast/apiprobe/pkg/probe"
)

// Request carries the protocol-level parameters of one probe request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// BuildREST turns a substituted REST probe into request parameters. A
// body requires a Content-Type header; the body is serialized according
// to it (JSON encode, URL-form encode, raw passthrough for others).
func BuildREST(p *probe.Probe) (*Request, error) {
	method := strings.ToUpper(p.Method)
	if method == "" {
		method = "GET"
	}

	req := &Request{
		Method:  method,
		URL:     p.Endpoint,
		Headers: copyHeaders(p.Headers),
	}

	if p.Body != nil {
		contentType := headerValue(req.Headers, "Content-Type")
		if contentType == "" {
			return nil, fmt.Errorf("probe %q: Content-Type header is required when body is present", p.Name)
		}
		body, err := serializeBody(p.Body, contentType)
		if err != nil {
			return nil, fmt.Errorf("probe %q: serialize body: %w", p.Name, err)
		}
		req.Body = body
	}

	return req, nil
}

// BuildGraphQL turns a substituted GraphQL probe into request
// parameters: always POST, Content-Type application/json unless already
// set, with a {query, variables} JSON envelope.
func BuildGraphQL(p *probe.Probe) (*Request, error) {
	headers := copyHeaders(p.Headers)
	if headerValue(headers, "Content-Type") == "" {
		headers["Content-Type"] = "application/json"
	}

	envelope := map[string]any{"query": p.Query}
	if len(p.Variables) > 0 {
		envelope["variables"] = p.Variables
	}
	body, err := oj.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("probe %q: encode graphql envelope: %w", p.Name, err)
	}

	return &Request{
		Method:  "POST",
		URL:     p.Endpoint,
		Headers: headers,
		Body:    body,
	}, nil
}

// Build dispatches on the probe type.
func Build(p *probe.Probe) (*Request, error) {
	if p.Type == probe.TypeGraphQL {
		return BuildGraphQL(p)
	}
	return BuildREST(p)
}

func serializeBody(body any, contentType string) ([]byte, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "application/json"):
		return oj.Marshal(body)
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		return encodeForm(body)
	default:
		// XML and everything else pass through as-is.
		if s, ok := body.(string); ok {
			return []byte(s), nil
		}
		return []byte(fmt.Sprintf("%v", body)), nil
	}
}

func encodeForm(body any) ([]byte, error) {
	values := url.Values{}
	switch m := body.(type) {
	case map[string]any:
		for k, v := range m {
			values.Set(k, fmt.Sprintf("%v", v))
		}
	case map[string]string:
		for k, v := range m {
			values.Set(k, v)
		}
	default:
		return nil, fmt.Errorf("form-encoded body must be a mapping, got %T", body)
	}
	return []byte(values.Encode()), nil
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
