package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/specialistvlad/scenegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const usageText = `
scenegrid - validate and transactionally build declarative 3D scene specs.

Usage:
  scenegrid COMMAND [options] SPEC

Commands:
  validate   Run structural, domain and traversability checks only.
  execute    Validate, then build the scene into the host and commit it.
  preview    Draw the spec's grid and shortest path in the terminal.

Arguments:
  SPEC
    Path to a .json/.yaml spec, "-" for stdin, or s3://bucket/key.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("scenegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usageText)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to an HCL config file or directory.")
	cFlag := flagSet.String("c", "", "Path to an HCL config file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	requestIDFlag := flagSet.String("request-id", "", "Request id naming the workspace and committed scene. Generated when empty.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Validate only; never touch the scene host.")
	extractFlag := flagSet.Bool("extract", false, "Recover the first JSON object from free text such as a model reply.")
	hostFlag := flagSet.String("host", "", "socket.io URL of the scene host. Overrides host.url from the config.")
	outputFlag := flagSet.String("output", app.OutputText, "Result format. Options: 'text' or 'json'.")
	plainFlag := flagSet.Bool("plain", false, "Print the preview as text instead of opening an interactive screen.")

	if len(args) == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	command, rest := args[0], args[1:]
	if command == "-h" || command == "-help" || command == "--help" || command == "help" {
		flagSet.Usage()
		return nil, true, nil
	}
	if !slices.Contains(app.Commands, command) {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q: must be one of %s", command, strings.Join(app.Commands, ", "))}
	}

	if err := flagSet.Parse(rest); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	if flagSet.NArg() != 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("%s expects exactly one SPEC argument, got %d", command, flagSet.NArg())}
	}

	configPath := *configFlag
	if configPath == "" {
		configPath = *cFlag
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:         command,
		SpecLocation:    flagSet.Arg(0),
		ConfigPath:      configPath,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		RequestID:       *requestIDFlag,
		DryRun:          *dryRunFlag,
		Extract:         *extractFlag,
		HostURL:         *hostFlag,
		Output:          strings.ToLower(*outputFlag),
		Plain:           *plainFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
