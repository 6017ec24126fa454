package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cgast/apiprobe/internal/config"
	"github.com/cgast/apiprobe/pkg/events"
	"github.com/cgast/apiprobe/pkg/report"
	"github.com/cgast/apiprobe/pkg/runner"
)

func handleRun(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}
	initLogging(opts)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	check := config.Check(cfg, os.Environ())
	for _, w := range check.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !check.OK() {
		for _, e := range check.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
		return 2
	}

	bus := events.NewMemoryBus()
	reporter := report.New(os.Stdout, opts.verbose)
	stop := reporter.Watch(bus)

	result := runner.New(runner.WithBus(bus)).Execute(context.Background(), cfg)
	stop()
	reporter.Print(result)

	if !result.Success() {
		return 1
	}
	return 0
}
