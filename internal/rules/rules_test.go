package rules

import (
	"errors"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/specialistvlad/scenegrid/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, tree map[string]any) *spec.SceneSpec {
	t.Helper()
	doc, err := spec.FromValue(tree)
	require.NoError(t, err)
	s, err := doc.Decode()
	require.NoError(t, err)
	return s
}

func TestValidate_DungeonFixturePasses(t *testing.T) {
	t.Parallel()

	res := Validate(decode(t, testutil.DungeonSpec()))

	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestValidate_DanglingDoorNamesItsID(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	testutil.Object(tree, 2)["id"] = "door_far"
	testutil.Object(tree, 2)["grid_cell"] = map[string]any{"col": 8, "row": 8}

	// --- Act ---
	res := Validate(decode(t, tree))

	// --- Assert ---
	require.Len(t, res.Errors, 1)
	is := res.Errors[0]
	assert.Equal(t, "$.objects[2]", is.Path)
	assert.Equal(t, "door_far", is.ObjectID)
	assert.Equal(t, validation.CodeCrossConstraint, is.Code)
	assert.Equal(t, validation.KindDomainRule, is.Kind)
	assert.Contains(t, is.Message, "door_far")
	assert.True(t, errors.Is(res.Err(), validation.ErrDomainRule))
}

func TestValidate_DoorAdjacency(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cell map[string]any
		ok   bool
	}{
		{name: "inside room footprint", cell: map[string]any{"col": 2, "row": 2}, ok: true},
		{name: "neighbour of corridor tail", cell: map[string]any{"col": 5, "row": 2}, ok: true},
		{name: "diagonal only", cell: map[string]any{"col": 3, "row": 3}, ok: false},
		{name: "far away", cell: map[string]any{"col": 0, "row": 9}, ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			tree := testutil.DungeonSpec()
			// Drop room_b so its footprint does not mask the cases.
			tree["objects"] = tree["objects"].([]any)[:3]
			testutil.Object(tree, 2)["grid_cell"] = tc.cell

			// --- Act ---
			res := Validate(decode(t, tree))

			// --- Assert ---
			assert.Equal(t, tc.ok, res.OK(), "%v", res.Errors)
		})
	}
}

func TestValidate_DoorWithoutGridCell(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	delete(testutil.Object(tree, 2), "grid_cell")

	res := Validate(decode(t, tree))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "door_1", res.Errors[0].ObjectID)
}

func TestValidate_Directions(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	testutil.Object(tree, 1)["properties"].(map[string]any)["direction"] = "up"
	testutil.Object(tree, 2)["properties"].(map[string]any)["direction"] = "sideways"

	// --- Act ---
	res := Validate(decode(t, tree))

	// --- Assert ---
	var paths []string
	for _, is := range res.Errors {
		assert.Equal(t, validation.CodeEnum, is.Code)
		paths = append(paths, is.Path)
	}
	assert.ElementsMatch(t, []string{
		"$.objects[1].properties.direction",
		"$.objects[2].properties.direction",
	}, paths)
}

func TestValidate_MissingCorridorDirection(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	delete(testutil.Object(tree, 1)["properties"].(map[string]any), "direction")

	res := Validate(decode(t, tree))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "corridor_1", res.Errors[0].ObjectID)
}

func TestValidate_GridCellOutOfBounds(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	testutil.Object(tree, 3)["grid_cell"] = map[string]any{"col": 10, "row": 0}

	res := Validate(decode(t, tree))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "$.objects[3].grid_cell", res.Errors[0].Path)
	assert.Equal(t, validation.CodeRange, res.Errors[0].Code)
}

func TestValidate_FootprintOutOfBounds(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		index int
		props map[string]any
		want  string
	}{
		{name: "room spills past last column", index: 3, props: map[string]any{"width_cells": 5, "height_cells": 4}, want: "room_b"},
		{name: "corridor runs off south edge", index: 1, props: map[string]any{"length_cells": 3, "direction": "south"}, want: "corridor_1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			tree := testutil.DungeonSpec()
			testutil.Object(tree, tc.index)["properties"] = tc.props

			// --- Act ---
			res := Validate(decode(t, tree))

			// --- Assert ---
			var found bool
			for _, is := range res.Errors {
				if is.ObjectID == tc.want && is.Path == objectPath(tc.index)+".properties" {
					found = true
					assert.Equal(t, validation.CodeRange, is.Code)
					assert.Contains(t, is.Message, "outside the 10x10 grid")
				}
			}
			assert.True(t, found, "%v", res.Errors)
		})
	}
}

func TestValidate_FootprintAtGridEdgeIsInside(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	testutil.Object(tree, 3)["properties"] = map[string]any{"width_cells": 4, "height_cells": 10}

	res := Validate(decode(t, tree))

	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestValidate_FilmInteriorHasNoRules(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.FilmSpec()
	tree["objects"] = append(tree["objects"].([]any), map[string]any{
		"id": "stray_door", "type": "door", "grid_cell": map[string]any{"col": 50, "row": 50},
	})

	// --- Act ---
	res := Validate(decode(t, tree))

	// --- Assert ---
	assert.True(t, res.OK())
	assert.Empty(t, Default().Rules(spec.DomainFilmInterior))
}

func TestRegistry_CustomRule(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	r := New()
	calls := 0
	r.Register(spec.DomainFilmInterior, RuleFunc{RuleName: "count", Fn: func(s *spec.SceneSpec, res *validation.Result) {
		calls++
		res.Warnf("$.objects", validation.CodeHint, "checked")
	}})

	// --- Act ---
	res := r.Validate(decode(t, testutil.FilmSpec()))

	// --- Assert ---
	assert.Equal(t, 1, calls)
	assert.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "count", r.Rules(spec.DomainFilmInterior)[0].Name())
}
