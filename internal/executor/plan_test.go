package executor

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/scenegrid/internal/scenebuilder"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeTree(t *testing.T, tree map[string]any) *spec.SceneSpec {
	t.Helper()
	doc, err := spec.Parse(testutil.MustJSON(t, tree))
	require.NoError(t, err)
	s, err := doc.Decode()
	require.NoError(t, err)
	return s
}

func objectByName(p Plan, name string) (scenebuilder.ObjectConfig, bool) {
	for _, o := range p.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return scenebuilder.ObjectConfig{}, false
}

func TestNewPlan_DungeonOrderAndNames(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := decodeTree(t, testutil.DungeonSpec())

	// --- Act ---
	p := NewPlan(s, newRand(s.Seed))

	// --- Assert ---
	var names []string
	for _, o := range p.Objects {
		names = append(names, o.Name)
	}
	want := []string{
		"Obj_room_a", "Obj_room_a_Wall_South", "Obj_room_a_Wall_North", "Obj_room_a_Wall_West", "Obj_room_a_Wall_East",
		"Obj_corridor_1", "Obj_corridor_1_Wall_South", "Obj_corridor_1_Wall_North",
		"Obj_door_1",
		"Obj_room_b", "Obj_room_b_Wall_South", "Obj_room_b_Wall_North", "Obj_room_b_Wall_West", "Obj_room_b_Wall_East",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("object names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 18, p.Len())
	require.Len(t, p.Lights, 2)
	assert.Equal(t, "Light_1", p.Lights[0].Name)
	assert.Equal(t, scenebuilder.Vec3{1, 1, 1}, p.Lights[0].Color)
	assert.Equal(t, scenebuilder.Vec3{1.0, 0.9, 0.8}, p.Lights[1].Color)
	assert.Equal(t, CameraName, p.Camera.Name)
	assert.Equal(t, 60.0, p.Camera.FOVDeg)
	assert.False(t, p.ForceFail)
}

func TestNewPlan_RoomGeometry(t *testing.T) {
	t.Parallel()

	s := decodeTree(t, testutil.DungeonSpec())
	p := NewPlan(s, newRand(s.Seed))

	// room_a spans cells (0..2, 0..2) at 2m per cell.
	floor, ok := objectByName(p, "Obj_room_a")
	require.True(t, ok)
	assert.Equal(t, scenebuilder.Vec3{3, 3, 0}, floor.Transform.Location)
	assert.Equal(t, scenebuilder.Vec3{6, 6, 0}, floor.Dimensions)
	assert.Equal(t, "stone_floor", floor.Material)
	assert.Equal(t, "geometry", floor.Collection)

	east, ok := objectByName(p, "Obj_room_a_Wall_East")
	require.True(t, ok)
	assert.Equal(t, scenebuilder.Vec3{6, 3, 2.5}, east.Transform.Location)
	assert.Equal(t, scenebuilder.Vec3{0.2, 6, 5}, east.Dimensions)
	require.Len(t, east.Openings, 1)
	// The door sits just outside row 1 of the east wall: centred 3m along it.
	assert.InDelta(t, 2.2, east.Openings[0].Offset, 1e-9)
	assert.InDelta(t, 1.6, east.Openings[0].Width, 1e-9)

	west, _ := objectByName(p, "Obj_room_a_Wall_West")
	assert.Empty(t, west.Openings)

	corridor, _ := objectByName(p, "Obj_corridor_1")
	assert.Equal(t, scenebuilder.Vec3{9, 3, 0}, corridor.Transform.Location)
	assert.Equal(t, scenebuilder.Vec3{6, 2, 0}, corridor.Dimensions)
}

func TestNewPlan_DoorBox(t *testing.T) {
	t.Parallel()

	s := decodeTree(t, testutil.DungeonSpec())
	p := NewPlan(s, newRand(s.Seed))

	door, ok := objectByName(p, "Obj_door_1")
	require.True(t, ok)
	assert.Equal(t, scenebuilder.Vec3{7, 3, 2}, door.Transform.Location)
	assert.InDelta(t, math.Pi/2, door.Transform.Rotation[2], 1e-12)
	assert.InDelta(t, 1.6, door.Dimensions[0], 1e-9)
	assert.InDelta(t, 0.4, door.Dimensions[1], 1e-9)
	assert.InDelta(t, 4.0, door.Dimensions[2], 1e-9)
}

func TestNewPlan_DoorOpensCorridorSideWall(t *testing.T) {
	t.Parallel()

	// A north-facing door in the middle of an east-running corridor opens
	// its north wall.
	tree := testutil.DungeonSpec()
	door := testutil.Object(tree, 2)
	door["grid_cell"] = map[string]any{"col": 4, "row": 1}
	door["properties"] = map[string]any{"direction": "north", "width_m": 1.0}
	s := decodeTree(t, tree)

	p := NewPlan(s, newRand(s.Seed))

	north, _ := objectByName(p, "Obj_corridor_1_Wall_North")
	require.Len(t, north.Openings, 1)
	// Corridor starts at x=6; cell 4 is centred at x=9.
	assert.InDelta(t, 2.5, north.Openings[0].Offset, 1e-9)
	assert.InDelta(t, 1.0, north.Openings[0].Width, 1e-9)
	south, _ := objectByName(p, "Obj_corridor_1_Wall_South")
	assert.Empty(t, south.Openings)
	east, _ := objectByName(p, "Obj_room_a_Wall_East")
	assert.Empty(t, east.Openings)
}

func TestNewPlan_SnappedPropsAreJitteredAndNudged(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	tree["objects"] = append(tree["objects"].([]any),
		map[string]any{"id": "barrel", "type": "prop_instance", "grid_cell": map[string]any{"col": 1, "row": 1}},
		map[string]any{"id": "crate", "type": "prop_instance", "grid_cell": map[string]any{"col": 1, "row": 1}},
		map[string]any{"id": "torch", "type": "cylinder", "position": []any{8.7, 4.2, -1}},
	)
	s := decodeTree(t, tree)

	// --- Act ---
	p1 := NewPlan(s, newRand(s.Seed))
	p2 := NewPlan(s, newRand(s.Seed))
	p3 := NewPlan(s, newRand(s.Seed+1))

	// --- Assert ---
	barrel, _ := objectByName(p1, "Obj_barrel")
	crate, _ := objectByName(p1, "Obj_crate")
	torch, _ := objectByName(p1, "Obj_torch")

	assert.InDelta(t, 3.0, barrel.Transform.Location[0], jitterMeters)
	assert.InDelta(t, 3.0, barrel.Transform.Location[1], jitterMeters)
	assert.InDelta(t, 3.5, crate.Transform.Location[0], jitterMeters)
	assert.InDelta(t, 3.5, crate.Transform.Location[1], jitterMeters)
	// Free positions snap to the nearest cell multiple and never sink below the floor.
	assert.InDelta(t, 8.0, torch.Transform.Location[0], jitterMeters)
	assert.InDelta(t, 4.0, torch.Transform.Location[1], jitterMeters)
	assert.Equal(t, 0.0, torch.Transform.Location[2])

	if diff := cmp.Diff(p1, p2); diff != "" {
		t.Errorf("same seed produced different plans (-first +second):\n%s", diff)
	}
	assert.NotEqual(t, p1.Objects, p3.Objects)
}

func TestNewPlan_FilmInteriorUsesExplicitTransforms(t *testing.T) {
	t.Parallel()

	s := decodeTree(t, testutil.FilmSpec())

	p := NewPlan(s, newRand(s.Seed))

	require.Len(t, p.Objects, 2)
	sofa := p.Objects[0]
	assert.Equal(t, "Obj_sofa", sofa.Name)
	assert.Equal(t, scenebuilder.Vec3{1, 2, 0}, sofa.Transform.Location)
	assert.Equal(t, scenebuilder.Vec3{2, 1, 1}, sofa.Transform.Scale)
	lamp := p.Objects[1]
	assert.Equal(t, scenebuilder.Vec3{1, 1, 1}, lamp.Transform.Scale)
	assert.Empty(t, p.Materials)
	assert.Equal(t, 60.0, p.Camera.FOVDeg)
}

func TestNewPlan_MaterialDefaults(t *testing.T) {
	t.Parallel()

	tree := testutil.FilmSpec()
	tree["materials"] = []any{
		map[string]any{"name": "plain"},
		map[string]any{"name": "chrome", "pbr": map[string]any{"metallic": 1.0, "normal_tex": "chrome_n.png"}},
	}
	tree["metadata"] = map[string]any{"quality_mode": "high", "force_fail": true}
	s := decodeTree(t, tree)

	p := NewPlan(s, newRand(s.Seed))

	want := []scenebuilder.MaterialConfig{
		{Name: "plain", BaseColor: scenebuilder.Vec3{0.8, 0.8, 0.8}, Roughness: 0.5, Quality: "high"},
		{Name: "chrome", BaseColor: scenebuilder.Vec3{0.8, 0.8, 0.8}, Metallic: 1, Roughness: 0.5, NormalTex: "chrome_n.png", Quality: "high"},
	}
	if diff := cmp.Diff(want, p.Materials); diff != "" {
		t.Errorf("materials mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, p.ForceFail)
}
