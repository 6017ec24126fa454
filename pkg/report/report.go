// Package report renders execution results for the terminal. A fully
// successful run prints nothing unless verbose output is requested, so
// CI logs stay quiet when everything is green.
package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cgast/apiprobe/pkg/events"
	"github.com/cgast/apiprobe/pkg/runner"
)

// Reporter writes run results and, optionally, live lifecycle lines.
type Reporter struct {
	w       io.Writer
	verbose bool

	mu sync.Mutex
	wg sync.WaitGroup
}

// New creates a Reporter writing to w.
func New(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

// Watch subscribes to the bus and prints lifecycle lines as they happen.
// The returned stop function unsubscribes and waits for the printer to
// drain. Watch is a no-op unless the reporter is verbose.
func (r *Reporter) Watch(bus events.Bus) func() {
	if !r.verbose {
		return func() {}
	}

	ch := bus.Subscribe()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for ev := range ch {
			r.printEvent(ev)
		}
	}()

	return func() {
		bus.Unsubscribe(ch)
		r.wg.Wait()
	}
}

func (r *Reporter) printEvent(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Type {
	case events.TypeRunStarted:
		fmt.Fprintf(r.w, "run %s started\n", ev.RunName)
	case events.TypeRunCompleted:
		fmt.Fprintf(r.w, "run %s completed: %s\n", ev.RunName, passFail(ev.Success))
	case events.TypeGroupStarted:
		fmt.Fprintf(r.w, "  group %s started\n", ev.GroupName)
	case events.TypeGroupCompleted:
		fmt.Fprintf(r.w, "  group %s completed\n", ev.GroupName)
	case events.TypeProbeStarted:
		fmt.Fprintf(r.w, "  probe %s started\n", ev.ProbeName)
	case events.TypeProbeRetried:
		fmt.Fprintf(r.w, "  probe %s retrying (attempt %d)\n", ev.ProbeName, ev.Attempt)
	case events.TypeProbeSkipped:
		fmt.Fprintf(r.w, "  probe %s skipped: %s\n", ev.ProbeName, ev.Reason)
	case events.TypeProbeCompleted:
		if ev.Err != nil {
			fmt.Fprintf(r.w, "  probe %s failed: %v\n", ev.ProbeName, ev.Err)
			return
		}
		fmt.Fprintf(r.w, "  probe %s completed in %dms: %s\n",
			ev.ProbeName, ev.Elapsed.Milliseconds(), passFail(ev.Success))
	}
}

// Print renders the final result. Success is silent unless verbose;
// failures get per-error detail and a summary table.
func (r *Reporter) Print(result *runner.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.Success() && !r.verbose {
		return
	}

	if !result.Success() {
		r.printFailures(result)
	}
	r.printSummary(result)
}

func (r *Reporter) printFailures(result *runner.ExecutionResult) {
	for i := range result.Runs {
		run := &result.Runs[i]
		if run.Success() {
			continue
		}
		fmt.Fprintf(r.w, "\n%s run %s\n", text.FgRed.Sprint("FAIL"), run.Name)
		for _, pr := range run.Probes {
			if pr.Success {
				continue
			}
			if pr.Skipped {
				fmt.Fprintf(r.w, "  %s: skipped: %s\n", pr.Name, pr.SkipReason)
				continue
			}
			for _, e := range pr.Errors {
				if e.Field != "" {
					fmt.Fprintf(r.w, "  %s: [%s] %s: %s\n", pr.Name, e.Validator, e.Field, e.Message)
				} else {
					fmt.Fprintf(r.w, "  %s: [%s] %s\n", pr.Name, e.Validator, e.Message)
				}
			}
		}
	}
}

func (r *Reporter) printSummary(result *runner.ExecutionResult) {
	t := table.NewWriter()
	t.SetOutputMirror(r.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"RUN", "PROBES", "PASSED", "FAILED", "SKIPPED", "RESULT"})

	for i := range result.Runs {
		run := &result.Runs[i]
		var passed, failed, skipped int
		for _, pr := range run.Probes {
			if pr.Skipped {
				skipped++
			}
			if pr.Success {
				passed++
			} else {
				failed++
			}
		}
		t.AppendRow(table.Row{run.Name, len(run.Probes), passed, failed, skipped, passFail(run.Success())})
	}

	total, passed, failed, skipped := result.Counts()
	t.AppendFooter(table.Row{"TOTAL", total, passed, failed, skipped, passFail(result.Success())})

	fmt.Fprintln(r.w)
	t.Render()
}

func passFail(ok bool) string {
	if ok {
		return text.FgGreen.Sprint("PASS")
	}
	return text.FgRed.Sprint("FAIL")
}
