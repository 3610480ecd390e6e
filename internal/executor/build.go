package executor

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/metrics"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"go.opentelemetry.io/otel/attribute"
)

// pcgStream is the fixed PCG stream; the spec seed selects the state.
const pcgStream = 0x5ce9e97d

// newRand returns the generator for one execution.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), pcgStream))
}

// build creates the plan inside a fresh workspace and commits it. On any
// failure, cancellation included, every allocated datablock is released
// before build returns.
func (e *Executor) build(ctx context.Context, id string, s *spec.SceneSpec, res *Result) (name string, err error) {
	ctx, span := e.tracer.Start(ctx, "scenegrid.build")
	defer span.End()
	logger := ctxlog.FromContext(ctx)
	buildStarted := e.now()

	plan := NewPlan(s, newRand(s.Seed))
	span.SetAttributes(attribute.Int("scenegrid.planned_datablocks", plan.Len()))

	wsName := e.workspaceName(id)
	if err := ctx.Err(); err != nil {
		return "", &BuildError{Stage: StageWorkspace, ID: wsName, Err: err}
	}
	ws, err := e.builder.CreateWorkspace(ctx, wsName)
	if err != nil {
		if scenebuilder.OutcomeUnknown(err) {
			// The host may hold the workspace although its handle never arrived.
			e.rollback(ctx, res, newTransaction(e.builder, scenebuilder.Handle{Kind: scenebuilder.KindWorkspace, Name: wsName}))
		}
		span.RecordError(err)
		return "", &BuildError{Stage: StageWorkspace, ID: wsName, Err: err}
	}
	tx := newTransaction(e.builder, ws)

	defer func() {
		res.Datablocks = tx.count()
		if err == nil {
			return
		}
		e.rollback(ctx, res, tx)
		span.RecordError(err)
	}()

	step := func(stage, id, datablock string, create func() (scenebuilder.Handle, error)) error {
		if err := ctx.Err(); err != nil {
			return &BuildError{Stage: stage, ID: id, Datablock: datablock, Err: err}
		}
		logger.Debug("▶️ Creating datablock", "stage", stage, "name", datablock)
		h, err := create()
		if err != nil {
			return &BuildError{Stage: stage, ID: id, Datablock: datablock, Err: err}
		}
		tx.pushCleanup(h)
		return nil
	}

	for _, m := range plan.Materials {
		if err := step(StageMaterial, m.Name, m.Name, func() (scenebuilder.Handle, error) {
			return e.builder.CreateMaterial(ctx, ws, m)
		}); err != nil {
			return "", err
		}
	}
	for _, o := range plan.Objects {
		if err := step(StageObject, o.SourceID, o.Name, func() (scenebuilder.Handle, error) {
			return e.builder.CreateObject(ctx, ws, o)
		}); err != nil {
			return "", err
		}
	}
	if plan.ForceFail {
		logger.Warn("Injecting build failure requested by metadata.force_fail.")
		return "", &BuildError{Stage: StageInjected, Err: ErrForcedFailure}
	}
	for i, l := range plan.Lights {
		if err := step(StageLight, strconv.Itoa(i), l.Name, func() (scenebuilder.Handle, error) {
			return e.builder.CreateLight(ctx, ws, l)
		}); err != nil {
			return "", err
		}
	}
	if err := step(StageCamera, "camera", plan.Camera.Name, func() (scenebuilder.Handle, error) {
		return e.builder.CreateCamera(ctx, ws, plan.Camera)
	}); err != nil {
		return "", err
	}
	e.observe(metrics.PhaseBuild, buildStarted)

	return e.commit(ctx, id, ws, tx)
}

// rollback runs the cleanup stack of tx and records its failures on res.
// It runs even when ctx is already cancelled.
func (e *Executor) rollback(ctx context.Context, res *Result, tx *transaction) {
	rollbackStarted := e.now()
	cleanupErrs := tx.executeCleanupStack(context.WithoutCancel(ctx))
	for _, cerr := range cleanupErrs {
		res.CleanupErrors = append(res.CleanupErrors, cerr.Error())
	}
	res.Cleanup = errors.Join(cleanupErrs...)
	e.observe(metrics.PhaseRollback, rollbackStarted)
}

// commit moves the workspace to its final name inside the commit critical
// section.
func (e *Executor) commit(ctx context.Context, id string, ws scenebuilder.Handle, tx *transaction) (string, error) {
	ctx, span := e.tracer.Start(ctx, "scenegrid.commit")
	defer span.End()
	defer e.observe(metrics.PhaseCommit, e.now())
	logger := ctxlog.FromContext(ctx)
	target := e.CommitName(id)

	unlock, err := e.locker.Lock(ctx, e.prefix)
	if err != nil {
		return "", &BuildError{Stage: StageCommit, ID: target, Err: err}
	}
	defer func() {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			logger.Warn("Failed to release commit lock.", "error", uerr)
		}
	}()

	// Cancellation wins until the host has been asked to commit.
	if err := ctx.Err(); err != nil {
		return "", &BuildError{Stage: StageCommit, ID: target, Err: err}
	}
	name, err := e.builder.Commit(ctx, ws, target)
	if err != nil {
		if scenebuilder.OutcomeUnknown(err) {
			// The commit may have landed. Rolling back the workspace removes
			// its datablocks, and the target name is rolled back after it.
			logger.Warn("Commit outcome unknown, rolling back target name.", "name", target, "error", err)
			tx.discard()
			tx.markUnconfirmed(target)
		}
		return "", &BuildError{Stage: StageCommit, ID: target, Err: err}
	}
	tx.discard()
	logger.Info("Committed workspace.", "workspace", ws.Name, "name", name)
	return name, nil
}
