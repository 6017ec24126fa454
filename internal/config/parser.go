package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cgast/apiprobe/pkg/probe"
)

type rawRoot struct {
	Probes     []yaml.Node    `yaml:"probes"`
	Executions []rawExecution `yaml:"executions"`
}

type rawExecution struct {
	Name        string                           `yaml:"name"`
	Vars        []yaml.Node                      `yaml:"vars"`
	Validations map[string]*probe.ValidationSpec `yaml:"validations"`
}

// groupEntry distinguishes a {group: ...} item from a plain probe.
type groupEntry struct {
	Group *probe.Group `yaml:"group"`
}

func parseRoot(root *yaml.Node) (*probe.Config, error) {
	var raw rawRoot
	if err := root.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined")
	}

	cfg := &probe.Config{}
	for i := range raw.Probes {
		item, err := parseItem(&raw.Probes[i])
		if err != nil {
			return nil, fmt.Errorf("probes[%d]: %w", i, err)
		}
		cfg.Items = append(cfg.Items, item)
	}

	for i := range raw.Executions {
		exec, err := parseExecution(&raw.Executions[i])
		if err != nil {
			return nil, fmt.Errorf("executions[%d]: %w", i, err)
		}
		cfg.Executions = append(cfg.Executions, exec)
	}

	return cfg, nil
}

func parseItem(node *yaml.Node) (probe.Item, error) {
	var entry groupEntry
	if err := node.Decode(&entry); err == nil && entry.Group != nil {
		g := entry.Group
		if len(g.Probes) == 0 {
			return probe.Item{}, fmt.Errorf("group %q has no probes", g.Name)
		}
		for i := range g.Probes {
			if err := checkProbe(&g.Probes[i]); err != nil {
				return probe.Item{}, fmt.Errorf("group %q: %w", g.Name, err)
			}
		}
		return probe.Item{Group: g}, nil
	}

	var p probe.Probe
	if err := node.Decode(&p); err != nil {
		return probe.Item{}, err
	}
	if err := checkProbe(&p); err != nil {
		return probe.Item{}, err
	}
	return probe.Item{Probe: &p}, nil
}

// checkProbe enforces the shape rules that must hold before any
// execution: missing names and endpoints, unknown types, a REST body
// without a Content-Type, a GraphQL probe without a query.
func checkProbe(p *probe.Probe) error {
	if p.Name == "" {
		return fmt.Errorf("probe has no name")
	}
	if p.Endpoint == "" {
		return fmt.Errorf("probe %q has no endpoint", p.Name)
	}

	if p.Type == "" {
		p.Type = probe.TypeREST
	}
	switch p.Type {
	case probe.TypeREST:
		if p.Body != nil && !hasHeader(p.Headers, "Content-Type") {
			return fmt.Errorf("probe %q declares a body without a Content-Type header", p.Name)
		}
		if p.Query != "" {
			return fmt.Errorf("probe %q is rest but declares a graphql query", p.Name)
		}
	case probe.TypeGraphQL:
		if p.Query == "" {
			return fmt.Errorf("probe %q is graphql but has no query", p.Name)
		}
	default:
		return fmt.Errorf("probe %q has unknown type %q", p.Name, p.Type)
	}

	if p.DelaySeconds < 0 {
		return fmt.Errorf("probe %q has negative delay", p.Name)
	}
	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("probe %q has negative timeout", p.Name)
	}
	if p.Retry != nil && p.Retry.MaxAttempts < 1 {
		return fmt.Errorf("probe %q retry needs max_attempts >= 1", p.Name)
	}
	return nil
}

// parseExecution decodes one execution, enforcing that every vars entry
// is a single-key assignment so override order stays unambiguous.
func parseExecution(raw *rawExecution) (probe.Execution, error) {
	exec := probe.Execution{
		Name:        raw.Name,
		Validations: raw.Validations,
	}
	for i := range raw.Vars {
		var assignment map[string]any
		if err := raw.Vars[i].Decode(&assignment); err != nil {
			return exec, fmt.Errorf("vars[%d]: %w", i, err)
		}
		if len(assignment) != 1 {
			return exec, fmt.Errorf("vars[%d]: expected a single key, got %d", i, len(assignment))
		}
		exec.Vars = append(exec.Vars, assignment)
	}
	return exec, nil
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
