package memscene

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
)

// Operation names passed to a FaultFunc.
const (
	OpCreateWorkspace = "CreateWorkspace"
	OpCreateMaterial  = "CreateMaterial"
	OpCreateObject    = "CreateObject"
	OpCreateLight     = "CreateLight"
	OpCreateCamera    = "CreateCamera"
	OpRelease         = "Release"
	OpCommit          = "Commit"
	OpRollback        = "Rollback"
)

var (
	ErrUnknownWorkspace = errors.New("unknown workspace")
	ErrUnknownHandle    = errors.New("unknown datablock")
)

// FaultFunc is consulted before every operation. A non-nil return fails the
// operation with that error and leaves state untouched.
type FaultFunc func(op, name string) error

// FailOn returns a FaultFunc failing op on the datablock called name. An
// empty name matches every call of op.
func FailOn(op, name string, err error) FaultFunc {
	return func(gotOp, gotName string) error {
		if gotOp == op && (name == "" || gotName == name) {
			return err
		}
		return nil
	}
}

// Option configures a Scene.
type Option func(*Scene)

// WithFault installs a fault injector.
func WithFault(fn FaultFunc) Option {
	return func(s *Scene) { s.fault = fn }
}

// Datablock is one allocated host resource with the configuration it was
// created from. Exactly one of the config pointers is set.
type Datablock struct {
	Handle   scenebuilder.Handle          `cbor:"handle"`
	Material *scenebuilder.MaterialConfig `cbor:"material,omitempty"`
	Object   *scenebuilder.ObjectConfig   `cbor:"object,omitempty"`
	Light    *scenebuilder.LightConfig    `cbor:"light,omitempty"`
	Camera   *scenebuilder.CameraConfig   `cbor:"camera,omitempty"`
}

type workspace struct {
	handle scenebuilder.Handle
	blocks []Datablock
}

// Scene is an in-memory host scene.
type Scene struct {
	mu         sync.Mutex
	seq        int
	workspaces map[string]*workspace // Key: workspace handle ID
	committed  map[string]*workspace // Key: committed name
	fault      FaultFunc
}

var _ scenebuilder.Builder = (*Scene)(nil)

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		workspaces: make(map[string]*workspace),
		committed:  make(map[string]*workspace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scene) check(op, name string) error {
	if s.fault == nil {
		return nil
	}
	if err := s.fault(op, name); err != nil {
		return fmt.Errorf("%s %q: %w", op, name, err)
	}
	return nil
}

func (s *Scene) nextID(kind scenebuilder.Kind) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", kind, s.seq)
}

// CreateWorkspace opens a private workspace.
func (s *Scene) CreateWorkspace(ctx context.Context, name string) (scenebuilder.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCreateWorkspace, name); err != nil {
		return scenebuilder.Handle{}, err
	}
	for _, ws := range s.workspaces {
		if ws.handle.Name == name {
			return scenebuilder.Handle{}, fmt.Errorf("workspace %q: %w", name, scenebuilder.ErrNameTaken)
		}
	}
	h := scenebuilder.Handle{Kind: scenebuilder.KindWorkspace, Name: name, ID: s.nextID(scenebuilder.KindWorkspace)}
	s.workspaces[h.ID] = &workspace{handle: h}
	return h, nil
}

func (s *Scene) add(ws scenebuilder.Handle, op string, block Datablock) (scenebuilder.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(op, block.Handle.Name); err != nil {
		return scenebuilder.Handle{}, err
	}
	w, ok := s.workspaces[ws.ID]
	if !ok {
		return scenebuilder.Handle{}, fmt.Errorf("%s %q: %w", op, block.Handle.Name, ErrUnknownWorkspace)
	}
	block.Handle.ID = s.nextID(block.Handle.Kind)
	w.blocks = append(w.blocks, block)
	return block.Handle, nil
}

func (s *Scene) CreateMaterial(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.MaterialConfig) (scenebuilder.Handle, error) {
	return s.add(ws, OpCreateMaterial, Datablock{
		Handle:   scenebuilder.Handle{Kind: scenebuilder.KindMaterial, Name: cfg.Name},
		Material: &cfg,
	})
}

func (s *Scene) CreateObject(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.ObjectConfig) (scenebuilder.Handle, error) {
	cfg.Openings = slices.Clone(cfg.Openings)
	return s.add(ws, OpCreateObject, Datablock{
		Handle: scenebuilder.Handle{Kind: scenebuilder.KindObject, Name: cfg.Name},
		Object: &cfg,
	})
}

func (s *Scene) CreateLight(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.LightConfig) (scenebuilder.Handle, error) {
	return s.add(ws, OpCreateLight, Datablock{
		Handle: scenebuilder.Handle{Kind: scenebuilder.KindLight, Name: cfg.Name},
		Light:  &cfg,
	})
}

func (s *Scene) CreateCamera(ctx context.Context, ws scenebuilder.Handle, cfg scenebuilder.CameraConfig) (scenebuilder.Handle, error) {
	return s.add(ws, OpCreateCamera, Datablock{
		Handle: scenebuilder.Handle{Kind: scenebuilder.KindCamera, Name: cfg.Name},
		Camera: &cfg,
	})
}

// Release frees one datablock from an open workspace.
func (s *Scene) Release(ctx context.Context, ws scenebuilder.Handle, h scenebuilder.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpRelease, h.Name); err != nil {
		return err
	}
	w, ok := s.workspaces[ws.ID]
	if !ok {
		return fmt.Errorf("release %q: %w", h.Name, ErrUnknownWorkspace)
	}
	i := slices.IndexFunc(w.blocks, func(b Datablock) bool { return b.Handle.ID == h.ID })
	if i < 0 {
		return fmt.Errorf("release %q: %w", h.Name, ErrUnknownHandle)
	}
	w.blocks = slices.Delete(w.blocks, i, i+1)
	return nil
}

// Commit moves a workspace into the global namespace under name.
func (s *Scene) Commit(ctx context.Context, ws scenebuilder.Handle, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpCommit, name); err != nil {
		return "", err
	}
	w, ok := s.workspaces[ws.ID]
	if !ok {
		return "", fmt.Errorf("commit %q: %w", name, ErrUnknownWorkspace)
	}
	if _, taken := s.committed[name]; taken {
		return "", fmt.Errorf("commit %q: %w", name, scenebuilder.ErrNameTaken)
	}
	delete(s.workspaces, ws.ID)
	w.handle.Name = name
	s.committed[name] = w
	return name, nil
}

// Rollback discards a workspace and everything in it. A handle without an
// ID is resolved by name: open workspaces first, then committed scenes.
// Unknown workspaces are ignored.
func (s *Scene) Rollback(ctx context.Context, ws scenebuilder.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(OpRollback, ws.Name); err != nil {
		return err
	}
	if ws.ID != "" {
		delete(s.workspaces, ws.ID)
		return nil
	}
	found := false
	for id, w := range s.workspaces {
		if w.handle.Name == ws.Name {
			delete(s.workspaces, id)
			found = true
		}
	}
	if !found {
		delete(s.committed, ws.Name)
	}
	return nil
}

// Residual counts open workspaces and the datablocks inside them. It is zero
// whenever no build is in flight.
func (s *Scene) Residual() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.workspaces {
		n += 1 + len(w.blocks)
	}
	return n
}

// Committed lists committed scene names in sorted order.
func (s *Scene) Committed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.committed))
	for name := range s.committed {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Snapshot returns a copy of a committed scene's datablocks in creation
// order.
func (s *Scene) Snapshot(name string) ([]Datablock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.committed[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(w.blocks), true
}

// fingerprintBlock leaves out handle IDs, which depend on the host's
// allocation history rather than on the scene itself.
type fingerprintBlock struct {
	Kind     scenebuilder.Kind            `cbor:"kind"`
	Name     string                       `cbor:"name"`
	Material *scenebuilder.MaterialConfig `cbor:"material,omitempty"`
	Object   *scenebuilder.ObjectConfig   `cbor:"object,omitempty"`
	Light    *scenebuilder.LightConfig    `cbor:"light,omitempty"`
	Camera   *scenebuilder.CameraConfig   `cbor:"camera,omitempty"`
}

var detEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Fingerprint returns the hex SHA-256 of the committed scene's datablocks
// encoded as deterministic CBOR. Two scenes built from the same spec have
// the same fingerprint regardless of their names.
func (s *Scene) Fingerprint(name string) (string, error) {
	blocks, ok := s.Snapshot(name)
	if !ok {
		return "", fmt.Errorf("fingerprint %q: %w", name, ErrUnknownWorkspace)
	}
	out := make([]fingerprintBlock, len(blocks))
	for i, b := range blocks {
		out[i] = fingerprintBlock{
			Kind: b.Handle.Kind, Name: b.Handle.Name,
			Material: b.Material, Object: b.Object, Light: b.Light, Camera: b.Camera,
		}
	}
	raw, err := detEncMode.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", name, err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
