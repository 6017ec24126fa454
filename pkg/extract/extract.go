// Package extract resolves path expressions against probe responses.
// JSON bodies take dot/bracket traversal or full JSONPath; XML and SOAP
// bodies take XPath. Dispatch is driven by the response content type and
// the path syntax.
package extract

import (
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/cgast/apiprobe/pkg/httpclient"
)

// NotFoundError reports a path that does not resolve to a value: a
// missing key, an out-of-range index, or a null intermediate.
type NotFoundError struct {
	Path   string
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path %q not found: %s", e.Path, e.Reason)
}

func notFound(path, format string, args ...any) error {
	return &NotFoundError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Extract returns the value addressed by path inside the response body.
// XML content types are evaluated with XPath; everything else is decoded
// as JSON and traversed with JSONPath or dot/bracket notation.
func Extract(resp *httpclient.Response, path string) (any, error) {
	if isXMLContent(resp.ContentType()) {
		return extractXPath(resp.Body, path)
	}
	return extractJSON(resp.Body, path)
}

// ExtractHeader returns a response header by case-insensitive name.
func ExtractHeader(resp *httpclient.Response, name string) (string, error) {
	if v := resp.Headers.Get(name); v != "" {
		return v, nil
	}
	for k, values := range resp.Headers {
		if strings.EqualFold(k, name) && len(values) > 0 {
			return values[0], nil
		}
	}
	return "", notFound("headers."+name, "header %q absent", name)
}

func extractJSON(body []byte, path string) (any, error) {
	data, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("response body is not valid JSON: %w", err)
	}
	if isJSONPath(path) {
		return evalJSONPath(data, path)
	}
	return traverse(data, path)
}

// isJSONPath reports whether a path uses JSONPath syntax beyond plain
// dot/bracket traversal: a root anchor, wildcards, recursive descent,
// filters, unions, or slices.
func isJSONPath(path string) bool {
	if strings.HasPrefix(path, "$") {
		return true
	}
	if strings.ContainsAny(path, "*@?") || strings.Contains(path, "..") {
		return true
	}
	// Slices and unions live inside brackets.
	for i := strings.IndexByte(path, '['); i >= 0; {
		end := strings.IndexByte(path[i:], ']')
		if end < 0 {
			break
		}
		if strings.ContainsAny(path[i:i+end], ":,'\"") {
			return true
		}
		next := strings.IndexByte(path[i+end:], '[')
		if next < 0 {
			break
		}
		i += end + next
	}
	return false
}

func evalJSONPath(data any, path string) (any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONPath %q: %w", path, err)
	}
	matches := expr.Get(data)
	switch len(matches) {
	case 0:
		return nil, notFound(path, "no match")
	case 1:
		return matches[0], nil
	default:
		return matches, nil
	}
}

// traverse walks a decoded JSON value along a dot/bracket path such as
// "a.b[2].c". It fails with a NotFoundError if an intermediate value is
// absent or null, or if an index or key does not exist.
func traverse(data any, path string) (any, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	current := data
	for _, seg := range segments {
		if seg.key != "" {
			if current == nil {
				return nil, notFound(path, "null value before %q", seg.key)
			}
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, notFound(path, "expected object before %q, got %s", seg.key, typeName(current))
			}
			val, exists := obj[seg.key]
			if !exists {
				return nil, notFound(path, "key %q does not exist", seg.key)
			}
			current = val
		}
		for _, idx := range seg.indexes {
			if current == nil {
				return nil, notFound(path, "null value before index %d", idx)
			}
			arr, ok := current.([]any)
			if !ok {
				return nil, notFound(path, "expected array before index %d, got %s", idx, typeName(current))
			}
			if idx < 0 || idx >= len(arr) {
				return nil, notFound(path, "index %d out of range (len %d)", idx, len(arr))
			}
			current = arr[idx]
		}
	}
	return current, nil
}

type segment struct {
	key     string
	indexes []int
}

// splitPath parses "a.b[2][0].c" into segments. A segment may carry zero
// or more trailing indexes.
func splitPath(path string) ([]segment, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	var segments []segment
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", path)
		}
		seg := segment{key: part}
		if open := strings.IndexByte(part, '['); open >= 0 {
			seg.key = part[:open]
			rest := part[open:]
			for rest != "" {
				if rest[0] != '[' {
					return nil, fmt.Errorf("invalid path %q: malformed index in %q", path, part)
				}
				end := strings.IndexByte(rest, ']')
				if end < 0 {
					return nil, fmt.Errorf("invalid path %q: unterminated index in %q", path, part)
				}
				var idx int
				if _, err := fmt.Sscanf(rest[1:end], "%d", &idx); err != nil {
					return nil, fmt.Errorf("invalid path %q: non-integer index in %q", path, part)
				}
				seg.indexes = append(seg.indexes, idx)
				rest = rest[end+1:]
			}
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, int:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func isXMLContent(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") // text/xml, application/xml, application/soap+xml
}
