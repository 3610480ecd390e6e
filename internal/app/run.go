package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/executor"
	"github.com/specialistvlad/scenegrid/internal/preview"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/schema"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/traverse"
)

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	a.healthCheckServer()
	defer func() { _ = a.closeHealthCheckServer() }()
	defer a.Close()

	doc, err := a.loadDocument(ctx)
	if err != nil {
		return err
	}

	switch a.config.Command {
	case CommandValidate:
		err = a.runValidate(ctx, doc)
	case CommandExecute:
		err = a.runExecute(ctx, doc)
	case CommandPreview:
		err = a.runPreview(ctx, doc)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}

	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

// runValidate runs the validation pipeline without touching any host.
func (a *App) runValidate(ctx context.Context, doc *spec.Document) error {
	ex, err := a.newExecutor(ctx, nil)
	if err != nil {
		return err
	}
	res, err := ex.Execute(ctx, executor.Request{RequestID: a.config.RequestID, Document: doc, DryRun: true})
	return a.report(res, err)
}

func (a *App) runExecute(ctx context.Context, doc *spec.Document) error {
	if t := a.model.Executor.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	var b scenebuilder.Builder
	if !a.config.DryRun {
		var err error
		if b, err = a.newBuilder(ctx); err != nil {
			return err
		}
	}
	ex, err := a.newExecutor(ctx, b)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Starting scene execution...", "dry_run", a.config.DryRun)
	res, err := ex.Execute(ctx, executor.Request{RequestID: a.config.RequestID, Document: doc, DryRun: a.config.DryRun})
	if res != nil {
		a.logger.Info("🏁 Execution finished.", "state", res.State)
	}
	return a.report(res, err)
}

// report prints the result and classifies the error for the caller.
func (a *App) report(res *executor.Result, err error) error {
	if res == nil {
		return err
	}
	if perr := a.printResult(res); perr != nil {
		return errors.Join(err, perr)
	}
	switch {
	case err == nil:
		return nil
	case res.State == executor.StateFailedValidation:
		return fmt.Errorf("%w: %w", ErrRejected, err)
	default:
		return fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}
}

// runPreview draws the spec's grid and traversal path.
func (a *App) runPreview(ctx context.Context, doc *spec.Document) error {
	schemaOpts, err := a.validatorOptions()
	if err != nil {
		return err
	}
	s, err := schema.AssertValid(doc, schemaOpts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	if s.Grid == nil {
		return fmt.Errorf("%w: preview needs a grid", ErrRejected)
	}
	report := traverse.Check(s, a.traversalOptions()...)

	if a.config.Plain {
		text, err := preview.Text(s, &report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(a.outW, text)
		return err
	}

	screen, err := a.newScreen()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer screen.Fini()
	return preview.Run(ctx, screen, s, &report)
}
