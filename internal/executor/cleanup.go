package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
)

// transaction owns the datablocks one execution allocates in its workspace.
type transaction struct {
	builder scenebuilder.Builder
	ws      scenebuilder.Handle

	cleanupMutex sync.Mutex
	cleanupStack []scenebuilder.Handle
	unconfirmed  []scenebuilder.Handle
	created      int
}

func newTransaction(b scenebuilder.Builder, ws scenebuilder.Handle) *transaction {
	return &transaction{builder: b, ws: ws}
}

// pushCleanup adds a handle to the LIFO cleanup stack.
func (t *transaction) pushCleanup(h scenebuilder.Handle) {
	t.cleanupMutex.Lock()
	defer t.cleanupMutex.Unlock()
	t.cleanupStack = append(t.cleanupStack, h)
	t.created++
}

// markUnconfirmed records a name the host may hold although no reply
// confirmed it. Cleanup rolls it back by name after the workspace.
func (t *transaction) markUnconfirmed(name string) {
	t.cleanupMutex.Lock()
	defer t.cleanupMutex.Unlock()
	t.unconfirmed = append(t.unconfirmed, scenebuilder.Handle{Kind: scenebuilder.KindWorkspace, Name: name})
}

func (t *transaction) count() int {
	t.cleanupMutex.Lock()
	defer t.cleanupMutex.Unlock()
	return t.created
}

// discard forgets the stack once the workspace has been committed.
func (t *transaction) discard() {
	t.cleanupMutex.Lock()
	defer t.cleanupMutex.Unlock()
	t.cleanupStack = nil
}

// executeCleanupStack releases every datablock in LIFO order and then rolls
// the workspace back. It never stops early; every failure is returned.
func (t *transaction) executeCleanupStack(ctx context.Context) []error {
	logger := ctxlog.FromContext(ctx)
	t.cleanupMutex.Lock()
	defer t.cleanupMutex.Unlock()

	logger.Info("Executing cleanup stack...", "datablocks", len(t.cleanupStack))
	var errs []error
	for i := len(t.cleanupStack) - 1; i >= 0; i-- {
		h := t.cleanupStack[i]
		logger.Debug("🔥 Releasing datablock", "kind", h.Kind, "name", h.Name)
		if err := t.builder.Release(ctx, t.ws, h); err != nil {
			logger.Warn("Failed to release datablock.", "name", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("release %s %s: %w", h.Kind, h.Name, err))
		}
	}
	t.cleanupStack = nil

	logger.Debug("🔥 Rolling back workspace", "workspace", t.ws.Name)
	if err := t.builder.Rollback(ctx, t.ws); err != nil {
		logger.Error("Failed to roll back workspace.", "workspace", t.ws.Name, "error", err)
		errs = append(errs, fmt.Errorf("rollback workspace %s: %w", t.ws.Name, err))
	}

	for _, h := range t.unconfirmed {
		logger.Debug("🔥 Rolling back unconfirmed name", "name", h.Name)
		if err := t.builder.Rollback(ctx, h); err != nil {
			logger.Error("Failed to roll back unconfirmed name.", "name", h.Name, "error", err)
			errs = append(errs, fmt.Errorf("rollback %s: %w", h.Name, err))
		}
	}
	t.unconfirmed = nil
	return errs
}
