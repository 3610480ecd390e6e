// Package executor realizes a scene spec inside a host scene as a single
// transaction. An execution validates the spec, builds every datablock
// into a private workspace, and then either commits the workspace under its
// final name or removes everything it allocated.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/scenegrid/internal/commitlock"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/events"
	"github.com/specialistvlad/scenegrid/internal/journal"
	"github.com/specialistvlad/scenegrid/internal/metrics"
	"github.com/specialistvlad/scenegrid/internal/rules"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/schema"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/traverse"
	"github.com/specialistvlad/scenegrid/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// State is a step of the execution state machine.
type State string

const (
	StatePending          State = "PENDING"
	StateValidating       State = "VALIDATING"
	StateFailedValidation State = "FAILED_VALIDATION"
	StateValidated        State = "VALIDATED"
	StateBuilding         State = "BUILDING"
	StateCommitted        State = "COMMITTED"
	StateRolledBack       State = "ROLLED_BACK"
)

// Terminal reports whether an execution ends in s.
func (s State) Terminal() bool {
	switch s {
	case StateFailedValidation, StateValidated, StateCommitted, StateRolledBack:
		return true
	}
	return false
}

// DefaultNamePrefix prefixes every workspace and committed scene name.
const DefaultNamePrefix = "Canvas3D"

// Request asks for one execution.
type Request struct {
	// RequestID names the workspace and the committed scene. A UUID is
	// generated when empty.
	RequestID string
	Document  *spec.Document
	// DryRun validates only and never touches the host.
	DryRun bool
}

// Result describes a finished execution.
type Result struct {
	RequestID     string            `json:"request_id"`
	State         State             `json:"state"`
	History       []State           `json:"history"`
	CommittedName string            `json:"committed_name,omitempty"`
	Validation    validation.Result `json:"validation"`
	Traversal     *traverse.Report  `json:"traversal,omitempty"`
	Datablocks    int               `json:"datablocks"`
	Error         string            `json:"error,omitempty"`
	CleanupErrors []string          `json:"cleanup_errors,omitempty"`
	Duration      time.Duration     `json:"duration_ns"`

	// Err is the cause of a failed execution.
	Err error `json:"-"`
	// Cleanup holds errors raised while rolling back. They never replace Err.
	Cleanup error `json:"-"`

	domain spec.Domain
	seed   int64
}

// Executor runs scene executions against a Builder. It holds no
// per-execution state and is safe for concurrent use by requests with
// distinct ids.
type Executor struct {
	builder      scenebuilder.Builder
	rules        *rules.Registry
	locker       commitlock.Locker
	journal      journal.Recorder
	publisher    events.Publisher
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	prefix       string
	schemaOpts   []schema.Option
	traverseOpts []traverse.Option
	now          func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

func WithRules(r *rules.Registry) Option {
	return func(e *Executor) { e.rules = r }
}

// WithCommitLocker sets the lock serializing commits. The default is an
// in-process lock.
func WithCommitLocker(l commitlock.Locker) Option {
	return func(e *Executor) { e.locker = l }
}

func WithJournal(j journal.Recorder) Option {
	return func(e *Executor) { e.journal = j }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) { e.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) { e.tracer = tp.Tracer("scenegrid/executor") }
}

// WithNamePrefix replaces DefaultNamePrefix.
func WithNamePrefix(prefix string) Option {
	return func(e *Executor) { e.prefix = prefix }
}

// WithValidatorOptions passes options to the structural validator, such as
// an expected version.
func WithValidatorOptions(opts ...schema.Option) Option {
	return func(e *Executor) { e.schemaOpts = append(e.schemaOpts, opts...) }
}

// WithTraversalOptions passes options to the traversability check.
func WithTraversalOptions(opts ...traverse.Option) Option {
	return func(e *Executor) { e.traverseOpts = append(e.traverseOpts, opts...) }
}

// New creates an Executor. b may be nil, in which case only dry runs
// succeed.
func New(b scenebuilder.Builder, opts ...Option) *Executor {
	e := &Executor{
		builder:   b,
		rules:     rules.Default(),
		locker:    commitlock.NewLocal(),
		publisher: events.Nop{},
		tracer:    noop.NewTracerProvider().Tracer("scenegrid/executor"),
		prefix:    DefaultNamePrefix,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) workspaceName(id string) string { return e.prefix + "_Temp_" + id }

// CommitName is the name a request commits under.
func (e *Executor) CommitName(id string) string { return e.prefix + "_Scene_" + id }

func (e *Executor) dryRunName(id string) string { return e.prefix + "_DryRun_" + id }

// Execute runs one request to a terminal state. The returned Result is
// always populated once the request id is accepted; the error is the
// first cause of failure.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	if !spec.ASCIISafePattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRequestID, id)
	}
	if req.Document == nil {
		return nil, ErrNoDocument
	}

	started := e.now()
	res := &Result{RequestID: id}
	ctx = ctxlog.With(ctx, "request_id", id)
	ctx, span := e.tracer.Start(ctx, "scenegrid.execute", trace.WithAttributes(
		attribute.String("scenegrid.request_id", id),
		attribute.Bool("scenegrid.dry_run", req.DryRun),
	))
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Executing scene spec", "dry_run", req.DryRun)

	e.transition(ctx, res, StatePending)

	s, err := e.validate(ctx, req.Document, res)
	if err != nil {
		e.transition(ctx, res, StateFailedValidation)
		return e.finish(ctx, span, res, started, err)
	}

	if req.DryRun {
		res.CommittedName = e.dryRunName(id)
		e.transition(ctx, res, StateValidated)
		return e.finish(ctx, span, res, started, nil)
	}
	if e.builder == nil {
		e.transition(ctx, res, StateRolledBack)
		return e.finish(ctx, span, res, started, ErrNoBuilder)
	}

	e.transition(ctx, res, StateBuilding)
	name, err := e.build(ctx, id, s, res)
	if err != nil {
		e.transition(ctx, res, StateRolledBack)
		return e.finish(ctx, span, res, started, err)
	}

	res.CommittedName = name
	e.transition(ctx, res, StateCommitted)
	return e.finish(ctx, span, res, started, nil)
}

// validate runs the structural, domain and traversability passes in order.
// A pass only runs when every earlier pass is clean.
func (e *Executor) validate(ctx context.Context, doc *spec.Document, res *Result) (*spec.SceneSpec, error) {
	e.transition(ctx, res, StateValidating)
	ctx, span := e.tracer.Start(ctx, "scenegrid.validate")
	defer span.End()
	defer e.observe(metrics.PhaseValidate, e.now())

	res.Validation = schema.Validate(doc, e.schemaOpts...)
	if !res.Validation.OK() {
		return nil, res.Validation.Err()
	}
	s, err := doc.Decode()
	if err != nil {
		res.Validation.Errorf(validation.KindStructural, "$", validation.CodeType, err.Error())
		return nil, res.Validation.Err()
	}
	res.domain, res.seed = s.Domain, s.Seed

	res.Validation.Merge(e.rules.Validate(s))
	if !res.Validation.OK() {
		return nil, res.Validation.Err()
	}

	tres, report := traverse.Validate(s, e.traverseOpts...)
	res.Traversal = &report
	res.Validation.Merge(tres)
	if err := res.Validation.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("scenegrid.warnings", len(res.Validation.Warnings)))
	ctxlog.FromContext(ctx).Debug("Scene spec is valid.", "warnings", len(res.Validation.Warnings))
	return s, nil
}

func (e *Executor) transition(ctx context.Context, res *Result, to State) {
	res.State = to
	res.History = append(res.History, to)
	ctxlog.FromContext(ctx).Debug("State changed.", "state", to)

	ev := events.Event{
		Type:      "state_changed",
		RequestID: res.RequestID,
		State:     string(to),
		Timestamp: e.now().UTC(),
	}
	if to.Terminal() {
		ev.Fields = map[string]any{
			"committed_name": res.CommittedName,
			"datablocks":     res.Datablocks,
		}
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish lifecycle event.", "state", to, "error", err)
	}
}

func (e *Executor) observe(phase string, since time.Time) {
	if e.metrics != nil {
		e.metrics.ObservePhase(phase, e.now().Sub(since).Seconds())
	}
}

func (e *Executor) finish(ctx context.Context, span trace.Span, res *Result, started time.Time, err error) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	res.Duration = e.now().Sub(started)
	res.Err = err
	if err != nil {
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.State))
	}
	span.SetAttributes(
		attribute.String("scenegrid.state", string(res.State)),
		attribute.Int("scenegrid.datablocks", res.Datablocks),
	)

	if e.metrics != nil {
		e.metrics.IncExecutions(string(res.domain), string(res.State))
		for _, issue := range res.Validation.Errors {
			e.metrics.IncIssues(string(issue.Kind), string(issue.Severity))
		}
		for _, issue := range res.Validation.Warnings {
			e.metrics.IncIssues(string(issue.Kind), string(issue.Severity))
		}
		e.metrics.AddDatablocks(res.Datablocks)
		e.metrics.AddCleanupErrors(len(res.CleanupErrors))
	}

	if e.journal != nil {
		entry := journal.Entry{
			RequestID:     res.RequestID,
			Timestamp:     started.UTC(),
			Domain:        string(res.domain),
			Seed:          res.seed,
			State:         string(res.State),
			CommittedName: res.CommittedName,
			Error:         res.Error,
			Issues:        res.Validation.Errors,
			Datablocks:    res.Datablocks,
			Duration:      res.Duration,
		}
		// The journal must outlive a cancelled request.
		if jerr := e.journal.Record(context.WithoutCancel(ctx), entry); jerr != nil {
			logger.Warn("Failed to record execution.", "error", jerr)
		}
	}

	switch {
	case err == nil:
		logger.Info("✅ Finished executing scene spec", "state", res.State, "name", res.CommittedName, "duration", res.Duration)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Execution cancelled.", "state", res.State, "error", err)
	default:
		logger.Error("Execution failed.", "state", res.State, "error", err)
	}
	return res, err
}
