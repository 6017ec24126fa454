package probe

// Type identifies the protocol a probe speaks.
type Type string

const (
	// TypeREST is a plain HTTP probe.
	TypeREST Type = "rest"
	// TypeGraphQL is a GraphQL probe (always POSTed as a JSON envelope).
	TypeGraphQL Type = "graphql"
)

// Probe is one declared HTTP/GraphQL check. A Probe is immutable once
// parsed; execution works on substituted copies, never on the template.
type Probe struct {
	Name     string            `yaml:"name" json:"name"`
	Type     Type              `yaml:"type" json:"type"`
	Endpoint string            `yaml:"endpoint" json:"endpoint"`
	Method   string            `yaml:"method" json:"method"`
	Headers  map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body     any               `yaml:"body,omitempty" json:"body,omitempty"`

	// GraphQL only.
	Query     string         `yaml:"query,omitempty" json:"query,omitempty"`
	Variables map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`

	Validation *ValidationSpec   `yaml:"validation,omitempty" json:"validation,omitempty"`
	Output     map[string]string `yaml:"output,omitempty" json:"output,omitempty"`

	// DelaySeconds is slept before the request is issued.
	DelaySeconds float64 `yaml:"delay,omitempty" json:"delay,omitempty"`
	// TimeoutSeconds bounds a single request attempt. Zero means the
	// client default.
	TimeoutSeconds float64      `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retry          *RetryPolicy `yaml:"retry,omitempty" json:"retry,omitempty"`
	Debug          bool         `yaml:"debug,omitempty" json:"debug,omitempty"`

	// Ignore skips the probe when it coerces or evaluates to true. It may
	// be a boolean literal, a ${VAR} template, an expression string, a
	// plain string, or an integer.
	Ignore any `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// RetryPolicy bounds re-execution of a failed request. Attempts run
// strictly one after another with Delay slept between failures.
type RetryPolicy struct {
	MaxAttempts  int     `yaml:"max_attempts" json:"max_attempts"`
	DelaySeconds float64 `yaml:"delay" json:"delay"`
}

// Group is an ordered set of probes executed concurrently as a unit.
// Groups keep their position among top-level probes: the group as a whole
// runs sequentially relative to its siblings.
type Group struct {
	Name   string  `yaml:"name,omitempty" json:"name,omitempty"`
	Probes []Probe `yaml:"probes" json:"probes"`
	Ignore any     `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// Item is one top-level entry in the probes list: either a single probe
// or a group. Exactly one field is set.
type Item struct {
	Probe *Probe
	Group *Group
}

// Execution is one named variable binding set. Every execution triggers a
// full pass over all probes.
type Execution struct {
	// Name is optional; unnamed executions get a generated one.
	Name string
	// Vars is an ordered list of single-key assignments. Later keys with
	// the same name override earlier ones.
	Vars []map[string]any
	// Validations maps probe names to validation specs that replace the
	// probe's own spec for this execution only.
	Validations map[string]*ValidationSpec
}

// VarsMap flattens the ordered assignment list into a map, later entries
// winning.
func (e *Execution) VarsMap() map[string]any {
	merged := make(map[string]any)
	for _, assignment := range e.Vars {
		for k, v := range assignment {
			merged[k] = v
		}
	}
	return merged
}

// Config is the root of a parsed probe configuration.
type Config struct {
	Items      []Item
	Executions []Execution
}

// ValidationSpec declares the response checks for one probe.
type ValidationSpec struct {
	// Status is an exact code (int) or a pattern like "2xx" (string).
	Status any `yaml:"status,omitempty" json:"status,omitempty"`
	// ResponseTimeMS is a ceiling on the measured response time.
	ResponseTimeMS float64       `yaml:"response_time,omitempty" json:"response_time,omitempty"`
	Headers        *HeaderChecks `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body           *BodyChecks   `yaml:"body,omitempty" json:"body,omitempty"`
}

// HeaderChecks are the validator kinds applicable to response headers.
// Keys are header names.
type HeaderChecks struct {
	Present  []string          `yaml:"present,omitempty" json:"present,omitempty"`
	Absent   []string          `yaml:"absent,omitempty" json:"absent,omitempty"`
	Equals   map[string]string `yaml:"equals,omitempty" json:"equals,omitempty"`
	Matches  map[string]string `yaml:"matches,omitempty" json:"matches,omitempty"`
	Contains map[string]string `yaml:"contains,omitempty" json:"contains,omitempty"`
}

// BodyChecks are the validator kinds applicable to the response body.
// Keys are path expressions (dot/bracket, JSONPath, or XPath).
type BodyChecks struct {
	Present  []string          `yaml:"present,omitempty" json:"present,omitempty"`
	Absent   []string          `yaml:"absent,omitempty" json:"absent,omitempty"`
	Equals   map[string]any    `yaml:"equals,omitempty" json:"equals,omitempty"`
	Matches  map[string]string `yaml:"matches,omitempty" json:"matches,omitempty"`
	Type     map[string]string `yaml:"type,omitempty" json:"type,omitempty"`
	Contains map[string]any    `yaml:"contains,omitempty" json:"contains,omitempty"`
	// Range maps paths to [min, max]; either bound may be null for
	// unbounded.
	Range map[string][]any `yaml:"range,omitempty" json:"range,omitempty"`
	// Length maps paths to an exact int or a [min, max] pair.
	Length map[string]any `yaml:"length,omitempty" json:"length,omitempty"`
}
