package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/scenegrid/internal/app"
	"github.com/specialistvlad/scenegrid/internal/cli"
	"github.com/specialistvlad/scenegrid/internal/hcl_adapter"
)

// Exit codes beyond the usage errors reported by cli.
const (
	exitRejected = 3
	exitFailed   = 4
)

// main is the entrypoint for the scenegrid application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	scenegrid, err := app.NewApp(outW, appConfig, hcl_adapter.NewLoader())
	if err != nil {
		return &cli.ExitError{Code: 1, Message: fmt.Sprintf("A critical startup error occurred: %v", err)}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = scenegrid.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, app.ErrRejected):
		return &cli.ExitError{Code: exitRejected, Message: err.Error()}
	case errors.Is(err, app.ErrExecutionFailed):
		return &cli.ExitError{Code: exitFailed, Message: err.Error()}
	default:
		return err
	}
}
