package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cgast/apiprobe/pkg/logging"
)

const defaultConfigPath = "probes.yaml"

func main() {
	args := os.Args[1:]

	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd = args[0]
		args = args[1:]
	}

	switch cmd {
	case "run":
		os.Exit(handleRun(args))
	case "validate":
		os.Exit(handleValidate(args))
	case "help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

type options struct {
	configPath string
	verbose    bool
	debug      bool
}

func parseArgs(args []string) (options, error) {
	opts := options{configPath: defaultConfigPath}
	for _, arg := range args {
		switch {
		case arg == "--verbose" || arg == "-v":
			opts.verbose = true
		case arg == "--debug":
			opts.debug = true
		case arg == "--help" || arg == "-h":
			printUsage(os.Stdout)
			os.Exit(0)
		case strings.HasPrefix(arg, "-"):
			return opts, fmt.Errorf("unknown flag %q", arg)
		default:
			opts.configPath = arg
		}
	}
	return opts, nil
}

func initLogging(opts options) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelInfo
	}
	if opts.debug {
		level = slog.LevelDebug
	}
	logging.Init(os.Stderr, level)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: apiprobe [command] [flags] [config-file]

Commands:
  run        Execute the configured probes (default)
  validate   Check a configuration without issuing requests
  help       Show this help

Flags:
  -v, --verbose   Print lifecycle detail and the summary table on success
      --debug     Log request and response detail

The config file defaults to %s.

Exit codes: 0 all probes passed, 1 probe failures, 2 configuration or
usage errors.
`, defaultConfigPath)
}
