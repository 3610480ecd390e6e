package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/scenegrid/internal/config"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/events"
	"github.com/specialistvlad/scenegrid/internal/metrics"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
)

var (
	// ErrRejected wraps the validation error of a spec that failed validation.
	ErrRejected = errors.New("scene spec rejected")
	// ErrExecutionFailed wraps the cause of a build that rolled back.
	ErrExecutionFailed = errors.New("scene execution failed")
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	model      *config.Model
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	events     *events.RingBuffer
	httpServer *http.Server
	closers    []func()

	stdin     io.Reader
	builder   scenebuilder.Builder
	newScreen func() (tcell.Screen, error)
}

// Option customizes an App, mostly for tests.
type Option func(*App)

// WithStdin replaces os.Stdin as the source for the "-" spec location.
func WithStdin(r io.Reader) Option {
	return func(a *App) { a.stdin = r }
}

// WithBuilder makes execute use b instead of dialing the configured host.
func WithBuilder(b scenebuilder.Builder) Option {
	return func(a *App) { a.builder = b }
}

// WithScreen replaces the terminal screen used by preview.
func WithScreen(fn func() (tcell.Screen, error)) Option {
	return func(a *App) { a.newScreen = fn }
}

// NewApp is the constructor for the main application. It builds the
// application's own isolated logger and metrics registry and loads the
// configuration model.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, opts ...Option) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	var configPaths []string
	if appConfig.ConfigPath != "" {
		configPaths = append(configPaths, appConfig.ConfigPath)
	}
	model, err := loader.Load(ctx, configPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.HostURL != "" {
		model.Host.URL = appConfig.HostURL
	}
	logger.Debug("Configuration loaded.", "host", model.Host.URL)

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a := &App{
		ctx:       ctx,
		outW:      outW,
		logger:    logger,
		config:    appConfig,
		model:     model,
		registry:  reg,
		metrics:   m,
		events:    events.NewRingBuffer(model.Events.BufferSize),
		stdin:     os.Stdin,
		newScreen: tcell.NewScreen,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model {
	return a.model
}

// Events returns the lifecycle events published so far, oldest first.
func (a *App) Events() []events.Event {
	return a.events.Snapshot()
}

// Close releases every connection opened by Run, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
