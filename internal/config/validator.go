package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cgast/apiprobe/pkg/probe"
	"github.com/cgast/apiprobe/pkg/vars"
)

// CheckResult is the outcome of a structural configuration check.
// Errors make the configuration unusable; warnings flag likely mistakes
// that execution would tolerate.
type CheckResult struct {
	Errors   []string
	Warnings []string
	// Variables lists every ${NAME} the configuration references, sorted.
	Variables []string
}

// OK reports whether the configuration has no errors.
func (r *CheckResult) OK() bool {
	return len(r.Errors) == 0
}

// Check runs the structural checks a parsed configuration must satisfy:
// unique probe names, validation overrides that point at real probes,
// and variable references that some source can supply. environ provides
// the "KEY=value" pairs treated as bound variables.
func Check(cfg *probe.Config, environ []string) *CheckResult {
	result := &CheckResult{}

	probes := allProbes(cfg)
	seen := make(map[string]bool, len(probes))
	for _, p := range probes {
		if seen[p.Name] {
			result.Errors = append(result.Errors, fmt.Sprintf("duplicate probe name %q", p.Name))
		}
		seen[p.Name] = true
	}

	for i := range cfg.Executions {
		for name := range cfg.Executions[i].Validations {
			if !seen[name] {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"execution %q overrides validation for unknown probe %q",
					cfg.Executions[i].Name, name))
			}
		}
	}

	defined := definedVariables(cfg, environ)
	referenced := make(map[string]bool)
	for _, p := range probes {
		for _, name := range probeReferences(p) {
			referenced[name] = true
			if !defined[name] {
				result.Warnings = append(result.Warnings, fmt.Sprintf(
					"probe %q references ${%s}, which no environment variable, execution, or output defines",
					p.Name, name))
			}
		}
	}

	for i := range cfg.Executions {
		exec := &cfg.Executions[i]
		for probeName, spec := range exec.Validations {
			for _, name := range overrideReferences(spec) {
				referenced[name] = true
				if !defined[name] {
					result.Warnings = append(result.Warnings, fmt.Sprintf(
						"execution %q validation override for probe %q references ${%s}, which no environment variable, execution, or output defines",
						exec.Name, probeName, name))
				}
			}
		}
	}

	result.Variables = sortedSet(referenced)
	sort.Strings(result.Warnings)
	return result
}

func overrideReferences(spec *probe.ValidationSpec) []string {
	found := make(map[string]bool)
	specReferences(spec, func(names []string) {
		for _, n := range names {
			found[n] = true
		}
	})
	return sortedSet(found)
}

func allProbes(cfg *probe.Config) []*probe.Probe {
	var probes []*probe.Probe
	for i := range cfg.Items {
		switch {
		case cfg.Items[i].Probe != nil:
			probes = append(probes, cfg.Items[i].Probe)
		case cfg.Items[i].Group != nil:
			g := cfg.Items[i].Group
			for j := range g.Probes {
				probes = append(probes, &g.Probes[j])
			}
		}
	}
	return probes
}

// definedVariables collects every name some source can bind: the
// environment, execution variable sets, and output captures.
func definedVariables(cfg *probe.Config, environ []string) map[string]bool {
	defined := make(map[string]bool)
	for _, entry := range environ {
		if key, _, ok := strings.Cut(entry, "="); ok {
			defined[key] = true
		}
	}
	for i := range cfg.Executions {
		for name := range cfg.Executions[i].VarsMap() {
			defined[name] = true
		}
	}
	for _, p := range allProbes(cfg) {
		for name := range p.Output {
			defined[name] = true
		}
	}
	return defined
}

// probeReferences collects every ${NAME} a probe's templated fields use.
func probeReferences(p *probe.Probe) []string {
	found := make(map[string]bool)
	collect := func(names []string) {
		for _, n := range names {
			found[n] = true
		}
	}

	collect(vars.References(p.Endpoint))
	collect(vars.References(p.Query))
	for k, v := range p.Headers {
		collect(vars.References(k))
		collect(vars.References(v))
	}
	collectAny(p.Body, collect)
	collectAny(p.Variables, collect)
	for _, v := range p.Output {
		collect(vars.References(v))
	}
	if s, ok := p.Ignore.(string); ok {
		collect(vars.References(s))
	}
	specReferences(p.Validation, collect)

	return sortedSet(found)
}

// specReferences collects every ${NAME} used in a validation spec, in
// path keys as well as expected values. Mirrors the fields substitution
// resolves at run time.
func specReferences(spec *probe.ValidationSpec, collect func([]string)) {
	if spec == nil {
		return
	}
	if s, ok := spec.Status.(string); ok {
		collect(vars.References(s))
	}
	if h := spec.Headers; h != nil {
		for _, s := range h.Present {
			collect(vars.References(s))
		}
		for _, s := range h.Absent {
			collect(vars.References(s))
		}
		collectAny(h.Equals, collect)
		collectAny(h.Matches, collect)
		collectAny(h.Contains, collect)
	}
	if b := spec.Body; b != nil {
		for _, s := range b.Present {
			collect(vars.References(s))
		}
		for _, s := range b.Absent {
			collect(vars.References(s))
		}
		collectAny(b.Equals, collect)
		collectAny(b.Matches, collect)
		collectAny(b.Type, collect)
		collectAny(b.Contains, collect)
		for k, bounds := range b.Range {
			collect(vars.References(k))
			for _, bound := range bounds {
				collectAny(bound, collect)
			}
		}
		collectAny(b.Length, collect)
	}
}

func collectAny(value any, collect func([]string)) {
	switch t := value.(type) {
	case string:
		collect(vars.References(t))
	case map[string]any:
		for k, v := range t {
			collect(vars.References(k))
			collectAny(v, collect)
		}
	case map[string]string:
		for k, v := range t {
			collect(vars.References(k))
			collect(vars.References(v))
		}
	case []any:
		for _, v := range t {
			collectAny(v, collect)
		}
	}
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
