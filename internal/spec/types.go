// Package spec defines the scene specification: the wire document that is
// validated, and the typed model the executor builds from.
package spec

import "regexp"

// Domain is a named ruleset profile.
type Domain string

const (
	DomainProceduralDungeon Domain = "procedural_dungeon"
	DomainFilmInterior      Domain = "film_interior"
)

// Domains lists every accepted domain.
var Domains = []Domain{DomainProceduralDungeon, DomainFilmInterior}

// ObjectType is the discriminator of SceneObject and its properties variant.
type ObjectType string

const (
	TypeCube            ObjectType = "cube"
	TypePlane           ObjectType = "plane"
	TypeCylinder        ObjectType = "cylinder"
	TypeCorridorSegment ObjectType = "corridor_segment"
	TypeRoom            ObjectType = "room"
	TypeDoor            ObjectType = "door"
	TypeStair           ObjectType = "stair"
	TypePropInstance    ObjectType = "prop_instance"
)

// ObjectTypes lists every accepted object type.
var ObjectTypes = []ObjectType{
	TypeCube, TypePlane, TypeCylinder, TypeCorridorSegment,
	TypeRoom, TypeDoor, TypeStair, TypePropInstance,
}

var (
	LightTypes         = []string{"sun", "point", "area", "spot"}
	QualityModes       = []string{"lite", "balanced", "high"}
	CollectionPurposes = []string{"geometry", "props", "lighting", "physics"}
	Units              = []string{"meters"}
)

var (
	VersionPattern   = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	ASCIISafePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-]+$`)
)

// Limits of the v1 contract.
const (
	MinCellSize         = 0.25
	MaxCellSize         = 5.0
	MinGridDimension    = 5
	MaxGridDimension    = 200
	MaxLightIntensity   = 10000.0
	MinFOV              = 20.0
	MaxFOV              = 120.0
	DefaultFOV          = 60.0
	MinPathLengthFloor  = 5
	MinPolycountFloor   = 1000
	RecommendedGridArea = 50
	WideFOVThreshold    = 100.0
	DefaultQualityMode  = "balanced"
	DefaultCellSize     = 1.0
	DefaultUnits        = "meters"
)

// Vec3 is an [x, y, z] triple.
type Vec3 [3]float64

// SceneSpec is the root of a scene specification.
type SceneSpec struct {
	Version          string       `json:"version"`
	Domain           Domain       `json:"domain"`
	Units            string       `json:"units,omitempty"`
	Seed             int64        `json:"seed"`
	Metadata         *Metadata    `json:"metadata,omitempty"`
	Grid             *Grid        `json:"grid,omitempty"`
	Materials        []Material   `json:"materials,omitempty"`
	Collections      []Collection `json:"collections,omitempty"`
	Objects          []Object     `json:"objects"`
	Lighting         []Light      `json:"lighting"`
	Camera           Camera       `json:"camera"`
	Constraints      *Constraints `json:"constraints,omitempty"`
	TraversableCells []CellPair   `json:"traversable_cells,omitempty"`
}

// Metadata carries non-geometric hints.
type Metadata struct {
	QualityMode     string `json:"quality_mode,omitempty"`
	HardwareProfile string `json:"hardware_profile,omitempty"`
	Notes           string `json:"notes,omitempty"`
	ForceFail       bool   `json:"force_fail,omitempty"`
}

// Grid is the dungeon layout grid.
type Grid struct {
	CellSizeM  float64        `json:"cell_size_m"`
	Dimensions GridDimensions `json:"dimensions"`
}

// GridDimensions is the size of the grid in cells.
type GridDimensions struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// GridCell is an integer (col, row) address.
type GridCell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// CellPair is a [col, row] pair as used by traversable_cells.
type CellPair [2]int

// Material is a named PBR material.
type Material struct {
	Name string `json:"name"`
	PBR  *PBR   `json:"pbr,omitempty"`
}

// PBR is the physically based shading sub-record of a material.
type PBR struct {
	BaseColor *Vec3    `json:"base_color,omitempty"`
	Metallic  *float64 `json:"metallic,omitempty"`
	Roughness *float64 `json:"roughness,omitempty"`
	NormalTex string   `json:"normal_tex,omitempty"`
}

// Collection groups objects in the host scene.
type Collection struct {
	Name    string `json:"name"`
	Purpose string `json:"purpose,omitempty"`
}

// Light is a scene light.
type Light struct {
	Type          string  `json:"type"`
	Position      Vec3    `json:"position"`
	RotationEuler *Vec3   `json:"rotation_euler,omitempty"`
	Intensity     float64 `json:"intensity"`
	ColorRGB      *Vec3   `json:"color_rgb,omitempty"`
}

// Color returns the light color, white when unset.
func (l Light) Color() Vec3 {
	if l.ColorRGB == nil {
		return Vec3{1, 1, 1}
	}
	return *l.ColorRGB
}

// Camera is the single scene camera.
type Camera struct {
	Position      Vec3     `json:"position"`
	RotationEuler Vec3     `json:"rotation_euler"`
	FOVDeg        *float64 `json:"fov_deg,omitempty"`
}

// FOV returns the field of view in degrees, DefaultFOV when unset.
func (c Camera) FOV() float64 {
	if c.FOVDeg == nil {
		return DefaultFOV
	}
	return *c.FOVDeg
}

// Constraints are soft and hard generation limits.
type Constraints struct {
	MinPathLengthCells            *int  `json:"min_path_length_cells,omitempty"`
	RequireTraversableStartToGoal *bool `json:"require_traversable_start_to_goal,omitempty"`
	MaxPolycount                  *int  `json:"max_polycount,omitempty"`
}

// WalkableArea whitelists a rectangle of cells for traversal.
type WalkableArea struct {
	Type   string         `json:"type"`
	Bounds WalkableBounds `json:"bounds"`
}

// WalkableBounds is half-open: [MinCol, MaxCol) x [MinRow, MaxRow).
type WalkableBounds struct {
	MinCol int `json:"min_col"`
	MaxCol int `json:"max_col"`
	MinRow int `json:"min_row"`
	MaxRow int `json:"max_row"`
}

// RequiresTraversal reports whether start-to-goal traversability is a hard
// requirement for this spec.
func (s *SceneSpec) RequiresTraversal() bool {
	if s.Constraints != nil && s.Constraints.RequireTraversableStartToGoal != nil {
		return *s.Constraints.RequireTraversableStartToGoal
	}
	return s.Domain == DomainProceduralDungeon
}

// MinPathLength returns constraints.min_path_length_cells, or 0 when unset.
func (s *SceneSpec) MinPathLength() int {
	if s.Constraints == nil || s.Constraints.MinPathLengthCells == nil {
		return 0
	}
	return *s.Constraints.MinPathLengthCells
}

// CellSize returns the grid cell size, DefaultCellSize without a grid.
func (s *SceneSpec) CellSize() float64 {
	if s.Grid == nil || s.Grid.CellSizeM <= 0 {
		return DefaultCellSize
	}
	return s.Grid.CellSizeM
}

// QualityMode returns metadata.quality_mode with its default applied.
func (s *SceneSpec) QualityMode() string {
	if s.Metadata == nil || s.Metadata.QualityMode == "" {
		return DefaultQualityMode
	}
	return s.Metadata.QualityMode
}

// ForceFail reports the failure-injection flag.
func (s *SceneSpec) ForceFail() bool {
	return s.Metadata != nil && s.Metadata.ForceFail
}
