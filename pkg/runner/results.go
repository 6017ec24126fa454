package runner

import "github.com/cgast/apiprobe/pkg/validate"

// ProbeResult is the outcome of one probe under one execution context.
type ProbeResult struct {
	Name    string
	Success bool
	// Errors holds validation failures, or the single synthetic
	// "execution" error for transport and build failures.
	Errors []validate.Error
	// Skipped marks probes that never issued a request: an ignore
	// condition that held, or a variable substitution failure.
	Skipped    bool
	SkipReason string
	// Endpoint is the resolved URL, empty when substitution failed.
	Endpoint string
}

// RunResult is one full pass over all probes under one execution
// context. Probes appear in declaration order regardless of how group
// members finished.
type RunResult struct {
	Index  int
	Name   string
	Probes []ProbeResult
}

// Success reports whether every probe in the run succeeded.
func (r *RunResult) Success() bool {
	for _, p := range r.Probes {
		if !p.Success {
			return false
		}
	}
	return true
}

// ExecutionResult aggregates all runs, one per execution context, in
// declaration order.
type ExecutionResult struct {
	Runs []RunResult
}

// Success reports whether every run succeeded.
func (r *ExecutionResult) Success() bool {
	for i := range r.Runs {
		if !r.Runs[i].Success() {
			return false
		}
	}
	return true
}

// Counts returns aggregate probe totals across all runs.
func (r *ExecutionResult) Counts() (total, passed, failed, skipped int) {
	for i := range r.Runs {
		for _, p := range r.Runs[i].Probes {
			total++
			if p.Skipped {
				skipped++
			}
			if p.Success {
				passed++
			} else {
				failed++
			}
		}
	}
	return total, passed, failed, skipped
}
