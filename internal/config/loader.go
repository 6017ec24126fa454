// Package config loads and checks probe configuration files. The loader
// resolves !include tags before parsing, so shared probe fragments,
// GraphQL queries, and request bodies can live in their own files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cgast/apiprobe/pkg/probe"
)

// includeTag marks a scalar whose value is a path to inline.
const includeTag = "!include"

// maxIncludeDepth bounds nested includes to catch cycles.
const maxIncludeDepth = 16

// Load reads a configuration file, resolves every !include relative to
// the including file, and parses the result.
func Load(path string) (*probe.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := resolveIncludes(&root, filepath.Dir(path), 0); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg, err := parseRoot(&root)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse parses configuration bytes without include resolution. Intended
// for callers that already hold assembled YAML.
func Parse(data []byte) (*probe.Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return parseRoot(&root)
}

// resolveIncludes rewrites every !include scalar in place. YAML and JSON
// files splice in as structure; anything else splices in as a raw
// string, which suits GraphQL query files.
func resolveIncludes(node *yaml.Node, baseDir string, depth int) error {
	if depth > maxIncludeDepth {
		return fmt.Errorf("includes nested deeper than %d, possible cycle", maxIncludeDepth)
	}

	if node.Kind == yaml.ScalarNode && node.Tag == includeTag {
		includePath := node.Value
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(baseDir, includePath)
		}
		data, err := os.ReadFile(includePath)
		if err != nil {
			return fmt.Errorf("include %s: %w", node.Value, err)
		}

		switch strings.ToLower(filepath.Ext(includePath)) {
		case ".yaml", ".yml", ".json":
			var included yaml.Node
			if err := yaml.Unmarshal(data, &included); err != nil {
				return fmt.Errorf("include %s: %w", node.Value, err)
			}
			if len(included.Content) == 0 {
				return fmt.Errorf("include %s: empty document", node.Value)
			}
			content := included.Content[0]
			if err := resolveIncludes(content, filepath.Dir(includePath), depth+1); err != nil {
				return err
			}
			*node = *content
		default:
			node.SetString(strings.TrimRight(string(data), "\n"))
		}
		return nil
	}

	for _, child := range node.Content {
		if err := resolveIncludes(child, baseDir, depth); err != nil {
			return err
		}
	}
	return nil
}
