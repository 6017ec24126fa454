// Package runner is the execution orchestrator: it builds one execution
// context per configured variable set, walks the top-level probe list in
// declared order, fans groups out across goroutines, and aggregates
// results. No probe failure ever aborts a run.
package runner

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cgast/apiprobe/pkg/events"
	"github.com/cgast/apiprobe/pkg/expr"
	"github.com/cgast/apiprobe/pkg/extract"
	"github.com/cgast/apiprobe/pkg/httpclient"
	"github.com/cgast/apiprobe/pkg/logging"
	"github.com/cgast/apiprobe/pkg/probe"
	"github.com/cgast/apiprobe/pkg/validate"
	"github.com/cgast/apiprobe/pkg/vars"
)

// Runner executes a parsed probe configuration.
type Runner struct {
	client  *httpclient.Client
	bus     events.Bus
	environ []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithBus attaches an event bus for lifecycle notifications.
func WithBus(bus events.Bus) Option {
	return func(r *Runner) { r.bus = bus }
}

// WithEnviron replaces the process environment as the base variable
// source.
func WithEnviron(environ []string) Option {
	return func(r *Runner) { r.environ = environ }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		client: httpclient.New(),
		bus:    events.NopBus{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.environ == nil {
		r.environ = os.Environ()
	}
	return r
}

// Execute runs every probe once per execution context and aggregates the
// results. With no executions configured, a single run uses the process
// environment as its variable source.
func (r *Runner) Execute(ctx context.Context, cfg *probe.Config) *ExecutionResult {
	result := &ExecutionResult{}

	if len(cfg.Executions) == 0 {
		execCtx := r.newContext(nil)
		result.Runs = append(result.Runs, r.run(ctx, 0, GenerateName(), execCtx, cfg.Items))
		return result
	}

	// Runs execute strictly one after another in declaration order.
	for i := range cfg.Executions {
		exec := &cfg.Executions[i]
		name := exec.Name
		if name == "" {
			name = GenerateName()
		}
		execCtx := r.newContext(exec)
		result.Runs = append(result.Runs, r.run(ctx, i, name, execCtx, cfg.Items))
	}
	return result
}

// newContext seeds a context from the environment and, when given, an
// execution's variable set. Execution values override the environment;
// a value carrying ${NAME} references is pre-resolved strictly against
// the environment, and the raw string is kept when that fails so the
// failure surfaces where the variable is used.
func (r *Runner) newContext(exec *probe.Execution) *ExecutionContext {
	execCtx := NewExecutionContext()
	execCtx.SeedEnviron(r.environ)

	if exec == nil {
		return execCtx
	}

	env := make(map[string]string, len(r.environ))
	for _, entry := range r.environ {
		if key, value, ok := strings.Cut(entry, "="); ok {
			env[key] = value
		}
	}
	envSub := vars.NewFromMap(env)

	for name, value := range exec.VarsMap() {
		if s, ok := value.(string); ok && len(vars.References(s)) > 0 {
			resolved, err := envSub.String(s)
			if err != nil {
				logging.Warn("runner", "execution variable not resolvable from environment",
					"variable", name, "value", s, "reason", err)
				execCtx.Set(name, s)
				continue
			}
			execCtx.Set(name, resolved)
			continue
		}
		execCtx.Set(name, value)
	}

	execCtx.SetOverrides(exec.Validations)
	return execCtx
}

func (r *Runner) run(ctx context.Context, index int, name string, execCtx *ExecutionContext, items []probe.Item) RunResult {
	run := RunResult{Index: index, Name: name}

	ev := events.New(events.TypeRunStarted)
	ev.RunName = name
	r.bus.Publish(ev)

	for i := range items {
		switch {
		case items[i].Probe != nil:
			run.Probes = append(run.Probes, r.runProbe(ctx, name, items[i].Probe, execCtx))
		case items[i].Group != nil:
			run.Probes = append(run.Probes, r.runGroup(ctx, name, items[i].Group, execCtx)...)
		}
	}

	done := events.New(events.TypeRunCompleted)
	done.RunName = name
	done.Success = run.Success()
	r.bus.Publish(done)
	return run
}

// runGroup fans the group's probes out one goroutine each and joins them
// into a result slice indexed by declaration order, so completion order
// never reorders reporting.
func (r *Runner) runGroup(ctx context.Context, runName string, g *probe.Group, execCtx *ExecutionContext) []ProbeResult {
	results := make([]ProbeResult, len(g.Probes))
	if len(g.Probes) == 0 {
		return results
	}

	if r.shouldIgnore(g.Ignore, execCtx) {
		for i := range g.Probes {
			results[i] = r.skipResult(runName, g.Probes[i].Name, "group ignore condition met", true)
		}
		return results
	}

	started := events.New(events.TypeGroupStarted)
	started.RunName = runName
	started.GroupName = g.Name
	r.bus.Publish(started)

	var eg errgroup.Group
	eg.SetLimit(len(g.Probes))
	for i := range g.Probes {
		i := i
		eg.Go(func() error {
			results[i] = r.runProbe(ctx, runName, &g.Probes[i], execCtx)
			return nil
		})
	}
	// Workers never return errors; failures live in their result slots.
	_ = eg.Wait()

	done := events.New(events.TypeGroupCompleted)
	done.RunName = runName
	done.GroupName = g.Name
	r.bus.Publish(done)
	return results
}

func (r *Runner) runProbe(ctx context.Context, runName string, p *probe.Probe, execCtx *ExecutionContext) ProbeResult {
	if r.shouldIgnore(p.Ignore, execCtx) {
		return r.skipResult(runName, p.Name, "ignore condition met", true)
	}

	sub := vars.New(execCtx.Lookup)
	resolved, err := substituteProbe(p, sub)
	if err != nil {
		return r.skipResult(runName, p.Name, err.Error(), false)
	}

	// An execution-level override replaces the probe's own spec and is
	// substituted up front, so an unresolved ${NAME} in it skips the
	// probe before any request is issued.
	spec := resolved.Validation
	if override := execCtx.Override(p.Name); override != nil {
		spec, err = substituteSpec(override, sub)
		if err != nil {
			return r.skipResult(runName, p.Name, err.Error(), false)
		}
	}

	result := ProbeResult{Name: p.Name, Endpoint: resolved.Endpoint}

	started := events.New(events.TypeProbeStarted)
	started.RunName = runName
	started.ProbeName = p.Name
	r.bus.Publish(started)

	if resolved.DelaySeconds > 0 {
		sleep(ctx, time.Duration(resolved.DelaySeconds*float64(time.Second)))
	}

	req, err := httpclient.Build(resolved)
	if err != nil {
		return r.failResult(runName, result, err)
	}

	opts := httpclient.Options{
		Timeout: time.Duration(resolved.TimeoutSeconds * float64(time.Second)),
		Retry:   resolved.Retry,
		Debug:   resolved.Debug,
		OnRetry: func(attempt int) {
			retried := events.New(events.TypeProbeRetried)
			retried.RunName = runName
			retried.ProbeName = p.Name
			retried.Attempt = attempt
			r.bus.Publish(retried)
		},
	}
	resp, err := r.client.Execute(ctx, req, opts)
	if err != nil {
		return r.failResult(runName, result, err)
	}

	result.Errors = validate.Validate(p.Name, resp, spec)
	result.Success = len(result.Errors) == 0

	r.captureOutputs(resolved.Output, resp, execCtx)

	completed := events.New(events.TypeProbeCompleted)
	completed.RunName = runName
	completed.ProbeName = p.Name
	completed.Success = result.Success
	completed.Elapsed = resp.Elapsed
	r.bus.Publish(completed)
	return result
}

// skipResult records a probe that never issued a request. An ignore skip
// counts as success; a substitution failure does not.
func (r *Runner) skipResult(runName, probeName, reason string, success bool) ProbeResult {
	ev := events.New(events.TypeProbeSkipped)
	ev.RunName = runName
	ev.ProbeName = probeName
	ev.Skipped = true
	ev.Success = success
	ev.Reason = reason
	r.bus.Publish(ev)
	return ProbeResult{
		Name:       probeName,
		Success:    success,
		Skipped:    true,
		SkipReason: reason,
	}
}

// failResult records a build or transport failure as a single synthetic
// execution error.
func (r *Runner) failResult(runName string, result ProbeResult, err error) ProbeResult {
	result.Success = false
	result.Errors = []validate.Error{{
		ProbeName: result.Name,
		Validator: "execution",
		Message:   err.Error(),
	}}

	ev := events.New(events.TypeProbeCompleted)
	ev.RunName = runName
	ev.ProbeName = result.Name
	ev.Err = err
	r.bus.Publish(ev)
	return result
}

// shouldIgnore applies the ignore coercion rules: nil is false, booleans
// and integers coerce directly, a bare ${NAME} template substitutes then
// coerces as a truthy string, an expression evaluates (failing closed),
// and any other string coerces as a truthy string.
func (r *Runner) shouldIgnore(condition any, execCtx *ExecutionContext) bool {
	switch t := condition.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return false
		}
		if vars.IsTemplate(s) {
			resolved, err := vars.New(execCtx.Lookup).String(s)
			if err != nil {
				logging.Warn("runner", "ignore template not resolvable", "condition", s, "reason", err)
				return false
			}
			return truthyString(resolved)
		}
		if expr.IsExpression(s) {
			return expr.EvalBool(s, execCtx.Raw)
		}
		return truthyString(s)
	default:
		return false
	}
}

func truthyString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// captureOutputs writes post-response values into the execution context.
// A failed capture is logged and leaves the variable unset so a later
// use fails visibly instead of silently carrying a stale value.
func (r *Runner) captureOutputs(outputs map[string]string, resp *httpclient.Response, execCtx *ExecutionContext) {
	for name, source := range outputs {
		value, err := captureValue(source, resp, execCtx)
		if err != nil {
			logging.Warn("runner", "output capture failed",
				"variable", name, "source", source, "reason", err)
			continue
		}
		execCtx.Set(name, value)
	}
}

// captureValue resolves one output source. Path prefixes win over
// expression markers: a body.<path> may carry JSONPath filter syntax
// like [?(@.price > 10)], so it is an expression only when an operator
// appears outside brackets.
func captureValue(source string, resp *httpclient.Response, execCtx *ExecutionContext) (any, error) {
	switch {
	case source == "status":
		return resp.StatusCode, nil
	case strings.HasPrefix(source, "body."):
		if hasTopLevelOperator(source) {
			return expr.EvalValue(source, execCtx.Raw, bodyResolver(resp)), nil
		}
		return extract.Extract(resp, strings.TrimPrefix(source, "body."))
	case strings.HasPrefix(source, "headers."):
		if hasTopLevelOperator(source) {
			return expr.EvalValue(source, execCtx.Raw, bodyResolver(resp)), nil
		}
		return extract.ExtractHeader(resp, strings.TrimPrefix(source, "headers."))
	case expr.IsExpression(source):
		return expr.EvalValue(source, execCtx.Raw, bodyResolver(resp)), nil
	default:
		return nil, &unknownOutputError{source: source}
	}
}

// hasTopLevelOperator reports whether a comparison or logical operator
// occurs outside brackets or parentheses. Operators nested in brackets
// belong to the path itself, not to an expression over it.
func hasTopLevelOperator(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
			}
			continue
		}
		if depth > 0 {
			continue
		}
		rest := s[i:]
		for _, op := range topLevelOperators {
			if strings.HasPrefix(rest, op) {
				return true
			}
		}
	}
	return false
}

var topLevelOperators = []string{"==", "!=", ">=", "<=", ">", "<", "&&", "||"}

type unknownOutputError struct {
	source string
}

func (e *unknownOutputError) Error() string {
	return "unknown output source: " + e.source
}

// bodyResolver adapts the extractor for body.<path> references inside
// output expressions. Extraction failures read as absent fields.
func bodyResolver(resp *httpclient.Response) expr.BodyResolver {
	return func(path string) any {
		value, err := extract.Extract(resp, path)
		if err != nil {
			return nil
		}
		return value
	}
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
