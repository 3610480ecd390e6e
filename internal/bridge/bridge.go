// Package bridge implements scenebuilder.Builder against a host 3D tool
// reached over socket.io. Every builder call is one event whose
// acknowledgement carries the reply, so requests and replies are correlated
// by the transport rather than by event names.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	sio "github.com/zishang520/socket.io/v2/socket"
)

// Event names understood by the host.
const (
	EventCreateWorkspace = "scene:create_workspace"
	EventCreateMaterial  = "scene:create_material"
	EventCreateObject    = "scene:create_object"
	EventCreateLight     = "scene:create_light"
	EventCreateCamera    = "scene:create_camera"
	EventRelease         = "scene:release"
	EventCommit          = "scene:commit"
	EventRollback        = "scene:rollback"
)

// CodeNameTaken is the reply code for a commit onto an existing name.
const CodeNameTaken = "name_taken"

// DefaultTimeout bounds the wait for one acknowledgement.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the host does not acknowledge in time. It
// matches scenebuilder.ErrNoReply.
var ErrTimeout = fmt.Errorf("timed out waiting for host acknowledgement: %w", scenebuilder.ErrNoReply)

// RemoteError is a failure reported by the host.
type RemoteError struct {
	Event   string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("host rejected %s (%s): %s", e.Event, e.Code, e.Message)
	}
	return fmt.Sprintf("host rejected %s: %s", e.Event, e.Message)
}

// Is lets a name_taken reply match scenebuilder.ErrNameTaken.
func (e *RemoteError) Is(target error) bool {
	return target == scenebuilder.ErrNameTaken && e.Code == CodeNameTaken
}

// emitter is the part of *socket.Socket the bridge needs. The last argument
// of Emit may be an acknowledgement callback.
type emitter interface {
	Emit(ev string, args ...any) error
}

// Request payloads.
type (
	workspaceRequest struct {
		Name string `json:"name"`
	}
	createRequest struct {
		Workspace scenebuilder.Handle `json:"workspace"`
		Config    any                 `json:"config"`
	}
	releaseRequest struct {
		Workspace scenebuilder.Handle `json:"workspace"`
		Handle    scenebuilder.Handle `json:"handle"`
	}
	commitRequest struct {
		Workspace scenebuilder.Handle `json:"workspace"`
		Name      string              `json:"name"`
	}
	// Name lets the host find a workspace or scene whose handle the caller
	// never received.
	rollbackRequest struct {
		Workspace scenebuilder.Handle `json:"workspace"`
		Name      string              `json:"name"`
	}
)

// Reply is the acknowledgement payload of every event.
type Reply struct {
	OK     bool                `json:"ok"`
	Code   string              `json:"code,omitempty"`
	Error  string              `json:"error,omitempty"`
	Handle scenebuilder.Handle `json:"handle"`
	Name   string              `json:"name,omitempty"`
}

// Remote is a scenebuilder.Builder backed by a socket.io connection.
type Remote struct {
	conn    emitter
	timeout time.Duration
}

var _ scenebuilder.Builder = (*Remote)(nil)

// NewRemote wraps a connected socket. A zero timeout means DefaultTimeout.
func NewRemote(conn emitter, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Remote{conn: conn, timeout: timeout}
}

type ack struct {
	args []any
	err  error
}

// call emits event with payload and waits for its acknowledgement.
func (r *Remote) call(ctx context.Context, event string, payload any) (Reply, error) {
	logger := ctxlog.FromContext(ctx).With("event", event)

	data, err := toWire(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	done := make(chan ack, 1)
	var onAck sio.Ack = func(args []any, err error) {
		done <- ack{args: args, err: err}
	}
	logger.Debug("Emitting event")
	if err := r.conn.Emit(event, data, onAck); err != nil {
		return Reply{}, fmt.Errorf("failed to emit %s: %w", event, err)
	}

	select {
	case <-ctx.Done():
		return Reply{}, fmt.Errorf("waiting for %s: %w: %w", event, scenebuilder.ErrNoReply, ctx.Err())
	case <-time.After(r.timeout):
		return Reply{}, fmt.Errorf("%s after %v: %w", event, r.timeout, ErrTimeout)
	case a := <-done:
		if a.err != nil {
			return Reply{}, fmt.Errorf("%s acknowledgement failed: %w: %w", event, scenebuilder.ErrNoReply, a.err)
		}
		var reply Reply
		if len(a.args) == 0 {
			return Reply{}, fmt.Errorf("%s acknowledged without a reply", event)
		}
		if err := fromWire(a.args[0], &reply); err != nil {
			return Reply{}, fmt.Errorf("failed to decode %s reply: %w", event, err)
		}
		if !reply.OK {
			return reply, &RemoteError{Event: event, Code: reply.Code, Message: reply.Error}
		}
		logger.Debug("Received acknowledgement")
		return reply, nil
	}
}

// toWire turns a payload into the plain JSON tree socket.io serializes.
func toWire(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromWire(v any, out any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (r *Remote) CreateWorkspace(ctx context.Context, name string) (scenebuilder.Handle, error) {
	reply, err := r.call(ctx, EventCreateWorkspace, workspaceRequest{Name: name})
	return reply.Handle, err
}

func (r *Remote) create(ctx context.Context, event string, ws scenebuilder.Handle, cfg any) (scenebuilder.Handle, error) {
	reply, err := r.call(ctx, event, createRequest{Workspace: ws, Config: cfg})
	return reply.Handle, err
}

func (r *Remote) CreateMaterial(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.MaterialConfig) (scenebuilder.Handle, error) {
	return r.create(ctx, EventCreateMaterial, ws, cfg)
}

func (r *Remote) CreateObject(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.ObjectConfig) (scenebuilder.Handle, error) {
	return r.create(ctx, EventCreateObject, ws, cfg)
}

func (r *Remote) CreateLight(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.LightConfig) (scenebuilder.Handle, error) {
	return r.create(ctx, EventCreateLight, ws, cfg)
}

func (r *Remote) CreateCamera(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.CameraConfig) (scenebuilder.Handle, error) {
	return r.create(ctx, EventCreateCamera, ws, cfg)
}

func (r *Remote) Release(ctx context.Context, ws scenebuilder.Handle, h scenebuilder.Handle) error {
	_, err := r.call(ctx, EventRelease, releaseRequest{Workspace: ws, Handle: h})
	return err
}

func (r *Remote) Commit(ctx context.Context, ws scenebuilder.Handle, name string) (string, error) {
	reply, err := r.call(ctx, EventCommit, commitRequest{Workspace: ws, Name: name})
	if err != nil {
		return "", err
	}
	if reply.Name == "" {
		return name, nil
	}
	return reply.Name, nil
}

func (r *Remote) Rollback(ctx context.Context, ws scenebuilder.Handle) error {
	_, err := r.call(ctx, EventRollback, rollbackRequest{Workspace: ws, Name: ws.Name})
	return err
}
