package main

import (
	"fmt"
	"os"

	"github.com/cgast/apiprobe/internal/config"
)

func handleValidate(args []string) int {
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
	for _, e := range check.Errors {
		fmt.Fprintf(os.Stderr, "error: %s\n", e)
	}
	for _, w := range check.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	probes := 0
	for _, item := range cfg.Items {
		switch {
		case item.Probe != nil:
			probes++
		case item.Group != nil:
			probes += len(item.Group.Probes)
		}
	}
	fmt.Printf("%s: %d probes, %d executions\n", opts.configPath, probes, len(cfg.Executions))
	if len(check.Variables) > 0 {
		fmt.Println("referenced variables:")
		for _, name := range check.Variables {
			fmt.Printf("  ${%s}\n", name)
		}
	}

	if !check.OK() {
		return 2
	}
	return 0
}
