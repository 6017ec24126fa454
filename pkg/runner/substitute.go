package runner

import (
	"github.com/cgast/apiprobe/pkg/probe"
	"github.com/cgast/apiprobe/pkg/vars"
)

// substituteProbe produces the per-execution copy of a probe with every
// ${NAME} reference resolved. The template is never touched; maps and
// slices are rebuilt. The ignore condition is excluded: it is evaluated
// before substitution under its own coercion rules.
func substituteProbe(p *probe.Probe, sub *vars.Substitutor) (*probe.Probe, error) {
	resolved := *p

	endpoint, err := sub.String(p.Endpoint)
	if err != nil {
		return nil, err
	}
	resolved.Endpoint = endpoint

	if resolved.Headers, err = subStringMap(p.Headers, sub); err != nil {
		return nil, err
	}
	if resolved.Body, err = sub.Any(p.Body); err != nil {
		return nil, err
	}
	if resolved.Query, err = sub.String(p.Query); err != nil {
		return nil, err
	}
	if p.Variables != nil {
		substituted, err := sub.Any(p.Variables)
		if err != nil {
			return nil, err
		}
		resolved.Variables = substituted.(map[string]any)
	}
	if resolved.Output, err = subStringMap(p.Output, sub); err != nil {
		return nil, err
	}
	if resolved.Validation, err = substituteSpec(p.Validation, sub); err != nil {
		return nil, err
	}
	return &resolved, nil
}

// substituteSpec resolves ${NAME} references in a validation spec, both
// in path keys and in expected values.
func substituteSpec(spec *probe.ValidationSpec, sub *vars.Substitutor) (*probe.ValidationSpec, error) {
	if spec == nil {
		return nil, nil
	}
	resolved := *spec

	if s, ok := spec.Status.(string); ok {
		status, err := sub.String(s)
		if err != nil {
			return nil, err
		}
		resolved.Status = status
	}

	if spec.Headers != nil {
		h := *spec.Headers
		var err error
		if h.Present, err = subStringSlice(spec.Headers.Present, sub); err != nil {
			return nil, err
		}
		if h.Absent, err = subStringSlice(spec.Headers.Absent, sub); err != nil {
			return nil, err
		}
		if h.Equals, err = subStringMap(spec.Headers.Equals, sub); err != nil {
			return nil, err
		}
		if h.Matches, err = subStringMap(spec.Headers.Matches, sub); err != nil {
			return nil, err
		}
		if h.Contains, err = subStringMap(spec.Headers.Contains, sub); err != nil {
			return nil, err
		}
		resolved.Headers = &h
	}

	if spec.Body != nil {
		b := *spec.Body
		var err error
		if b.Present, err = subStringSlice(spec.Body.Present, sub); err != nil {
			return nil, err
		}
		if b.Absent, err = subStringSlice(spec.Body.Absent, sub); err != nil {
			return nil, err
		}
		if b.Equals, err = subAnyMap(spec.Body.Equals, sub); err != nil {
			return nil, err
		}
		if b.Matches, err = subStringMap(spec.Body.Matches, sub); err != nil {
			return nil, err
		}
		if b.Type, err = subStringMap(spec.Body.Type, sub); err != nil {
			return nil, err
		}
		if b.Contains, err = subAnyMap(spec.Body.Contains, sub); err != nil {
			return nil, err
		}
		if b.Range, err = subRangeMap(spec.Body.Range, sub); err != nil {
			return nil, err
		}
		if b.Length, err = subAnyMap(spec.Body.Length, sub); err != nil {
			return nil, err
		}
		resolved.Body = &b
	}

	return &resolved, nil
}

func subStringSlice(in []string, sub *vars.Substitutor) ([]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		resolved, err := sub.String(s)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func subStringMap(in map[string]string, sub *vars.Substitutor) (map[string]string, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key, err := sub.String(k)
		if err != nil {
			return nil, err
		}
		value, err := sub.String(v)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func subAnyMap(in map[string]any, sub *vars.Substitutor) (map[string]any, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		key, err := sub.String(k)
		if err != nil {
			return nil, err
		}
		value, err := sub.Any(v)
		if err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, nil
}

func subRangeMap(in map[string][]any, sub *vars.Substitutor) (map[string][]any, error) {
	if in == nil {
		return nil, nil
	}
	out := make(map[string][]any, len(in))
	for k, bounds := range in {
		key, err := sub.String(k)
		if err != nil {
			return nil, err
		}
		resolved, err := sub.Any(bounds)
		if err != nil {
			return nil, err
		}
		out[key] = resolved.([]any)
	}
	return out, nil
}
