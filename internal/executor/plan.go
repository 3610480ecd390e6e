package executor

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/spec"
)

// Placement constants, in cell sizes unless noted.
const (
	jitterMeters    = 0.05
	sharedCellNudge = 0.25
	doorWidth       = 0.8
	doorDepth       = 0.2
	doorHeight      = 2.0
)

var (
	defaultBaseColor = scenebuilder.Vec3{0.8, 0.8, 0.8}
	unitScale        = scenebuilder.Vec3{1, 1, 1}
)

const defaultRoughness = 0.5

// Side names a wall of a room or corridor.
type Side string

const (
	SideNorth Side = "North"
	SideSouth Side = "South"
	SideEast  Side = "East"
	SideWest  Side = "West"
)

func sideOf(d spec.Direction) Side {
	switch d {
	case spec.North:
		return SideNorth
	case spec.South:
		return SideSouth
	case spec.West:
		return SideWest
	default:
		return SideEast
	}
}

// Plan is the ordered set of datablocks a spec realizes into. Building
// a plan touches no host state, so the same spec and seed always yield the
// same plan.
type Plan struct {
	Materials []scenebuilder.MaterialConfig
	Objects   []scenebuilder.ObjectConfig
	Lights    []scenebuilder.LightConfig
	Camera    scenebuilder.CameraConfig
	// ForceFail injects a build failure after the objects are created.
	ForceFail bool
}

// Len counts the datablocks in the plan.
func (p Plan) Len() int {
	return len(p.Materials) + len(p.Objects) + len(p.Lights) + 1
}

// ObjectName is the host name of a spec object.
func ObjectName(id string) string { return "Obj_" + id }

// WallName is the host name of one wall of a room or corridor.
func WallName(id string, side Side) string { return ObjectName(id) + "_Wall_" + string(side) }

// CameraName is the host name of the scene camera.
const CameraName = "Camera_Main"

// NewPlan lays out every datablock of s. rng drives the only randomized
// choice, the placement jitter of free-standing objects on a grid.
func NewPlan(s *spec.SceneSpec, rng *rand.Rand) Plan {
	p := Plan{
		ForceFail: s.Metadata != nil && s.Metadata.ForceFail,
	}

	quality := spec.DefaultQualityMode
	if s.Metadata != nil && s.Metadata.QualityMode != "" {
		quality = s.Metadata.QualityMode
	}
	for _, m := range s.Materials {
		p.Materials = append(p.Materials, materialConfig(m, quality))
	}

	if s.Domain == spec.DomainProceduralDungeon && s.Grid != nil {
		l := newLayout(s)
		for _, o := range s.Objects {
			p.Objects = append(p.Objects, l.place(o, rng)...)
		}
	} else {
		for _, o := range s.Objects {
			p.Objects = append(p.Objects, freeObject(o))
		}
	}

	for i, light := range s.Lighting {
		p.Lights = append(p.Lights, scenebuilder.LightConfig{
			Name:      lightName(i),
			Type:      light.Type,
			Transform: transform(light.Position, light.RotationEuler, nil),
			Intensity: light.Intensity,
			Color:     scenebuilder.Vec3(light.Color()),
		})
	}

	p.Camera = scenebuilder.CameraConfig{
		Name:      CameraName,
		Transform: transform(s.Camera.Position, &s.Camera.RotationEuler, nil),
		FOVDeg:    s.Camera.FOV(),
	}
	return p
}

func lightName(i int) string {
	return "Light_" + strconv.Itoa(i+1)
}

func materialConfig(m spec.Material, quality string) scenebuilder.MaterialConfig {
	cfg := scenebuilder.MaterialConfig{
		Name:      m.Name,
		BaseColor: defaultBaseColor,
		Roughness: defaultRoughness,
		Quality:   quality,
	}
	if m.PBR == nil {
		return cfg
	}
	if m.PBR.BaseColor != nil {
		cfg.BaseColor = scenebuilder.Vec3(*m.PBR.BaseColor)
	}
	if m.PBR.Metallic != nil {
		cfg.Metallic = *m.PBR.Metallic
	}
	if m.PBR.Roughness != nil {
		cfg.Roughness = *m.PBR.Roughness
	}
	cfg.NormalTex = m.PBR.NormalTex
	return cfg
}

func transform(pos spec.Vec3, rot, scale *spec.Vec3) scenebuilder.Transform {
	t := scenebuilder.Transform{Location: scenebuilder.Vec3(pos), Scale: unitScale}
	if rot != nil {
		t.Rotation = scenebuilder.Vec3(*rot)
	}
	if scale != nil {
		t.Scale = scenebuilder.Vec3(*scale)
	}
	return t
}

// freeObject uses the explicit transform of the spec.
func freeObject(o spec.Object) scenebuilder.ObjectConfig {
	var pos spec.Vec3
	if o.Position != nil {
		pos = *o.Position
	}
	return scenebuilder.ObjectConfig{
		Name:       ObjectName(o.ID),
		Type:       string(o.Type),
		Transform:  transform(pos, o.RotationEuler, o.Scale),
		Dimensions: unitScale,
		Material:   o.Material,
		Collection: o.Collection,
		SourceID:   o.ID,
	}
}

// layout places objects on the dungeon grid.
type layout struct {
	cs    float64
	doors []spec.Object
	used  map[[2]int]struct{}
}

func newLayout(s *spec.SceneSpec) *layout {
	l := &layout{
		cs:   s.Grid.CellSizeM,
		used: make(map[[2]int]struct{}),
	}
	if l.cs <= 0 {
		l.cs = spec.DefaultCellSize
	}
	for _, o := range s.Objects {
		if _, ok := o.Door(); ok && o.GridCell != nil {
			l.doors = append(l.doors, o)
		}
	}
	return l
}

func (l *layout) place(o spec.Object, rng *rand.Rand) []scenebuilder.ObjectConfig {
	switch o.Type {
	case spec.TypeRoom, spec.TypeCorridorSegment:
		if o.GridCell != nil {
			return l.enclosure(o)
		}
	case spec.TypeDoor:
		if o.GridCell != nil {
			return []scenebuilder.ObjectConfig{l.door(o)}
		}
	}
	return []scenebuilder.ObjectConfig{l.snapped(o, rng)}
}

// bounds is a world-space rectangle [x0, x1) x [y0, y1) on the floor.
type bounds struct {
	x0, x1, y0, y1 float64
}

func (l *layout) footprintBounds(cells []spec.GridCell) bounds {
	minC, maxC := cells[0].Col, cells[0].Col
	minR, maxR := cells[0].Row, cells[0].Row
	for _, c := range cells[1:] {
		minC, maxC = min(minC, c.Col), max(maxC, c.Col)
		minR, maxR = min(minR, c.Row), max(maxR, c.Row)
	}
	return bounds{
		x0: float64(minC) * l.cs, x1: float64(maxC+1) * l.cs,
		y0: float64(minR) * l.cs, y1: float64(maxR+1) * l.cs,
	}
}

// enclosure builds a floor slab and its walls. Rooms get four walls;
// corridors get the two walls running along their direction.
func (l *layout) enclosure(o spec.Object) []scenebuilder.ObjectConfig {
	cells := o.Footprint()
	b := l.footprintBounds(cells)
	occupied := make(map[spec.GridCell]struct{}, len(cells))
	for _, c := range cells {
		occupied[c] = struct{}{}
	}

	floor := scenebuilder.ObjectConfig{
		Name: ObjectName(o.ID),
		Type: string(o.Type),
		Transform: scenebuilder.Transform{
			Location: scenebuilder.Vec3{(b.x0 + b.x1) / 2, (b.y0 + b.y1) / 2, 0},
			Scale:    unitScale,
		},
		Dimensions: scenebuilder.Vec3{b.x1 - b.x0, b.y1 - b.y0, 0},
		Material:   o.Material,
		Collection: o.Collection,
		SourceID:   o.ID,
	}
	out := []scenebuilder.ObjectConfig{floor}

	sides := []Side{SideSouth, SideNorth, SideWest, SideEast}
	if c, ok := o.Corridor(); ok {
		if c.Direction == spec.North || c.Direction == spec.South {
			sides = []Side{SideWest, SideEast}
		} else {
			sides = []Side{SideSouth, SideNorth}
		}
	}
	for _, side := range sides {
		out = append(out, l.wall(o, side, b, occupied))
	}
	return out
}

func (l *layout) wall(o spec.Object, side Side, b bounds, occupied map[spec.GridCell]struct{}) scenebuilder.ObjectConfig {
	thick := max(0.05, 0.1*l.cs)
	height := max(2.0, 2.5*l.cs)

	var loc, dims scenebuilder.Vec3
	var length, start float64
	alongX := side == SideSouth || side == SideNorth
	switch side {
	case SideSouth:
		loc = scenebuilder.Vec3{(b.x0 + b.x1) / 2, b.y0, height / 2}
	case SideNorth:
		loc = scenebuilder.Vec3{(b.x0 + b.x1) / 2, b.y1, height / 2}
	case SideWest:
		loc = scenebuilder.Vec3{b.x0, (b.y0 + b.y1) / 2, height / 2}
	case SideEast:
		loc = scenebuilder.Vec3{b.x1, (b.y0 + b.y1) / 2, height / 2}
	}
	if alongX {
		length, start = b.x1-b.x0, b.x0
		dims = scenebuilder.Vec3{length, thick, height}
	} else {
		length, start = b.y1-b.y0, b.y0
		dims = scenebuilder.Vec3{thick, length, height}
	}

	var openings []scenebuilder.Opening
	for _, d := range l.doors {
		props, _ := d.Door()
		if sideOf(props.Direction) != side {
			continue
		}
		inside, ok := wallCell(*d.GridCell, props.Direction, occupied)
		if !ok {
			continue
		}
		centre := (float64(inside.Row) + 0.5) * l.cs
		if alongX {
			centre = (float64(inside.Col) + 0.5) * l.cs
		}
		width := min(props.OpeningWidth(l.cs), length)
		offset := clamp(centre-start-width/2, 0, length-width)
		openings = append(openings, scenebuilder.Opening{Offset: offset, Width: width, DoorID: d.ID})
	}
	slices.SortStableFunc(openings, func(a, b scenebuilder.Opening) int {
		return cmp.Compare(a.Offset, b.Offset)
	})

	return scenebuilder.ObjectConfig{
		Name:       WallName(o.ID, side),
		Type:       "wall",
		Transform:  scenebuilder.Transform{Location: loc, Scale: unitScale},
		Dimensions: dims,
		Material:   o.Material,
		Collection: o.Collection,
		SourceID:   o.ID,
		Openings:   openings,
	}
}

// wallCell returns the footprint cell whose dir-facing wall a door at cell
// opens. The door may sit on that cell or just outside the wall.
func wallCell(cell spec.GridCell, dir spec.Direction, occupied map[spec.GridCell]struct{}) (spec.GridCell, bool) {
	dc, dr := dir.Delta()
	inside := cell
	if _, ok := occupied[inside]; !ok {
		inside = spec.GridCell{Col: cell.Col - dc, Row: cell.Row - dr}
		if _, ok := occupied[inside]; !ok {
			return spec.GridCell{}, false
		}
	}
	// The wall only exists where the footprint ends.
	if _, ok := occupied[spec.GridCell{Col: inside.Col + dc, Row: inside.Row + dr}]; ok {
		return spec.GridCell{}, false
	}
	return inside, true
}

func (l *layout) door(o spec.Object) scenebuilder.ObjectConfig {
	props, _ := o.Door()
	rot := scenebuilder.Vec3{}
	if props.Direction == spec.East || props.Direction == spec.West {
		rot[2] = math.Pi / 2
	}
	x, y := l.cellCentre(*o.GridCell)
	return scenebuilder.ObjectConfig{
		Name: ObjectName(o.ID),
		Type: string(o.Type),
		Transform: scenebuilder.Transform{
			Location: scenebuilder.Vec3{x, y, doorHeight * l.cs / 2},
			Rotation: rot,
			Scale:    unitScale,
		},
		Dimensions: scenebuilder.Vec3{doorWidth * l.cs, doorDepth * l.cs, doorHeight * l.cs},
		Material:   o.Material,
		Collection: o.Collection,
		SourceID:   o.ID,
	}
}

func (l *layout) cellCentre(c spec.GridCell) (float64, float64) {
	return (float64(c.Col) + 0.5) * l.cs, (float64(c.Row) + 0.5) * l.cs
}

// snapped places a free-standing object at the centre of its cell, nudged
// off cells already taken and jittered by rng.
func (l *layout) snapped(o spec.Object, rng *rand.Rand) scenebuilder.ObjectConfig {
	var x, y, z float64
	switch {
	case o.GridCell != nil:
		x, y = l.cellCentre(*o.GridCell)
	case o.Position != nil:
		x = math.Round(o.Position[0]/l.cs) * l.cs
		y = math.Round(o.Position[1]/l.cs) * l.cs
	}
	if o.Position != nil {
		z = max(0, o.Position[2])
	}

	key := [2]int{int(math.Round(x / l.cs)), int(math.Round(y / l.cs))}
	if _, taken := l.used[key]; taken {
		x += sharedCellNudge * l.cs
		y += sharedCellNudge * l.cs
	}
	l.used[key] = struct{}{}

	x += (rng.Float64()*2 - 1) * jitterMeters
	y += (rng.Float64()*2 - 1) * jitterMeters

	cfg := freeObject(o)
	cfg.Transform.Location = scenebuilder.Vec3{x, y, z}
	return cfg
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
