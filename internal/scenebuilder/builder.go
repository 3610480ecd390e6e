// Package scenebuilder defines the capability the executor uses to create
// datablocks in a host 3D scene. The executor only ever talks to this
// interface; how a host renders or stores objects is not its concern.
package scenebuilder

import (
	"context"
	"errors"
)

// Kind classifies a datablock handle.
type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindMaterial  Kind = "material"
	KindObject    Kind = "object"
	KindLight     Kind = "light"
	KindCamera    Kind = "camera"
)

// Handle identifies a datablock allocated by a Builder.
type Handle struct {
	Kind Kind   `json:"kind" cbor:"kind"`
	Name string `json:"name" cbor:"name"`
	ID   string `json:"id" cbor:"id"`
}

// Vec3 is an [x, y, z] triple.
type Vec3 [3]float64

// Transform places a datablock in the scene.
type Transform struct {
	Location Vec3 `json:"location" cbor:"location"`
	Rotation Vec3 `json:"rotation" cbor:"rotation"`
	Scale    Vec3 `json:"scale" cbor:"scale"`
}

// Opening is a gap cut into a wall, measured along the wall from its start.
type Opening struct {
	Offset float64 `json:"offset" cbor:"offset"`
	Width  float64 `json:"width" cbor:"width"`
	DoorID string  `json:"door_id,omitempty" cbor:"door_id,omitempty"`
}

type ObjectConfig struct {
	Name       string    `json:"name" cbor:"name"`
	Type       string    `json:"type" cbor:"type"`
	Transform  Transform `json:"transform" cbor:"transform"`
	Dimensions Vec3      `json:"dimensions" cbor:"dimensions"`
	Material   string    `json:"material,omitempty" cbor:"material,omitempty"`
	Collection string    `json:"collection,omitempty" cbor:"collection,omitempty"`
	SourceID   string    `json:"source_id,omitempty" cbor:"source_id,omitempty"`
	Openings   []Opening `json:"openings,omitempty" cbor:"openings,omitempty"`
}

type LightConfig struct {
	Name      string    `json:"name" cbor:"name"`
	Type      string    `json:"type" cbor:"type"`
	Transform Transform `json:"transform" cbor:"transform"`
	Intensity float64   `json:"intensity" cbor:"intensity"`
	Color     Vec3      `json:"color" cbor:"color"`
}

type CameraConfig struct {
	Name      string    `json:"name" cbor:"name"`
	Transform Transform `json:"transform" cbor:"transform"`
	FOVDeg    float64   `json:"fov_deg" cbor:"fov_deg"`
}

type MaterialConfig struct {
	Name      string  `json:"name" cbor:"name"`
	BaseColor Vec3    `json:"base_color" cbor:"base_color"`
	Metallic  float64 `json:"metallic" cbor:"metallic"`
	Roughness float64 `json:"roughness" cbor:"roughness"`
	NormalTex string  `json:"normal_tex,omitempty" cbor:"normal_tex,omitempty"`
	Quality   string  `json:"quality" cbor:"quality"`
}

var (
	// ErrNameTaken is returned by Commit when the final name already exists
	// in the host namespace.
	ErrNameTaken = errors.New("name already exists in host scene")
	// ErrNoReply marks a call whose request may have reached the host but
	// whose reply never arrived.
	ErrNoReply = errors.New("host reply not received")
)

// OutcomeUnknown reports whether err leaves it open whether the host applied
// the call: the reply was lost, or the caller stopped waiting for it.
func OutcomeUnknown(err error) bool {
	return errors.Is(err, ErrNoReply) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Builder is the host scene capability. Every datablock is created inside a
// workspace, which stays invisible until Commit moves it into the host's
// global namespace in one step. Rollback removes a workspace and everything
// still allocated in it, and is safe to call more than once. A handle with
// no ID is resolved by name, first among open workspaces and then among
// committed scenes; callers use this to undo a call whose reply was lost.
type Builder interface {
	CreateWorkspace(ctx context.Context, name string) (Handle, error)
	CreateMaterial(ctx context.Context, ws Handle, cfg MaterialConfig) (Handle, error)
	CreateObject(ctx context.Context, ws Handle, cfg ObjectConfig) (Handle, error)
	CreateLight(ctx context.Context, ws Handle, cfg LightConfig) (Handle, error)
	CreateCamera(ctx context.Context, ws Handle, cfg CameraConfig) (Handle, error)
	// Release frees a single datablock.
	Release(ctx context.Context, ws Handle, h Handle) error
	// Commit renames the workspace to its final name and returns it.
	Commit(ctx context.Context, ws Handle, name string) (string, error)
	Rollback(ctx context.Context, ws Handle) error
}
