package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrForcedFailure is the cause reported when metadata.force_fail is set.
	ErrForcedFailure = errors.New("forced failure requested by spec metadata")
	// ErrInvalidRequestID is returned when a request id is not ASCII-safe.
	ErrInvalidRequestID = errors.New("request id must match [a-zA-Z0-9_-]+")
	// ErrNoBuilder is returned when a build is requested without a host.
	ErrNoBuilder = errors.New("no scene builder configured; only dry runs are possible")
	// ErrNoDocument is returned for a request without a spec.
	ErrNoDocument = errors.New("request carries no scene spec document")
)

// Build stages reported by BuildError.
const (
	StageWorkspace = "workspace"
	StageMaterial  = "material"
	StageObject    = "object"
	StageInjected  = "injected_failure"
	StageLight     = "light"
	StageCamera    = "camera"
	StageCommit    = "commit"
)

// BuildError is a failure during BUILDING. ID is the spec id of the element
// under construction (an object id, a material name, a light index), and
// Datablock is the host name it was being created as.
type BuildError struct {
	Stage     string
	ID        string
	Datablock string
	Err       error
}

func (e *BuildError) Error() string {
	switch {
	case e.ID != "" && e.Datablock != "":
		return fmt.Sprintf("build failed at %s %q (datablock %s): %v", e.Stage, e.ID, e.Datablock, e.Err)
	case e.ID != "":
		return fmt.Sprintf("build failed at %s %q: %v", e.Stage, e.ID, e.Err)
	default:
		return fmt.Sprintf("build failed at %s: %v", e.Stage, e.Err)
	}
}

func (e *BuildError) Unwrap() error { return e.Err }
