package runner

import (
	"strings"
	"sync"

	"github.com/cgast/apiprobe/pkg/probe"
	"github.com/cgast/apiprobe/pkg/vars"
)

// ExecutionContext is the variable binding set one run executes under.
// Probes within a group read and write it from parallel goroutines, so
// all access goes through the lock. Writes are additive: keys are set or
// overwritten, never deleted.
type ExecutionContext struct {
	mu        sync.RWMutex
	values    map[string]vars.Value
	overrides map[string]*probe.ValidationSpec
}

// NewExecutionContext creates an empty context.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]vars.Value)}
}

// SeedEnviron loads "KEY=value" pairs, as returned by os.Environ, into
// the context.
func (c *ExecutionContext) SeedEnviron(environ []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		c.values[key] = vars.NewValue(value)
	}
}

// Set binds a variable, overwriting any previous binding.
func (c *ExecutionContext) Set(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = vars.NewValue(value)
}

// Lookup returns a variable's string form, for ${NAME} substitution.
func (c *ExecutionContext) Lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v.Str, ok
}

// Raw returns a variable's typed value, for expression evaluation.
func (c *ExecutionContext) Raw(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[name]
	return v.Raw, ok
}

// SetOverrides installs the per-probe validation replacements for this
// context.
func (c *ExecutionContext) SetOverrides(overrides map[string]*probe.ValidationSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = overrides
}

// Override returns the validation spec that replaces the named probe's
// own spec in this context, or nil.
func (c *ExecutionContext) Override(probeName string) *probe.ValidationSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overrides[probeName]
}
