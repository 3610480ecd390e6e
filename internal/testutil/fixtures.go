package testutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// DungeonSpec returns a fresh, valid procedural_dungeon spec as a JSON tree:
// two rooms joined by an east-running corridor with a door at its mouth on
// a 10x10 grid. Callers may mutate the returned map freely.
func DungeonSpec() map[string]any {
	return map[string]any{
		"version": "1.0.0",
		"domain":  "procedural_dungeon",
		"units":   "meters",
		"seed":    42,
		"metadata": map[string]any{
			"quality_mode": "balanced",
			"notes":        "two rooms, one corridor",
		},
		"grid": map[string]any{
			"cell_size_m": 2.0,
			"dimensions":  map[string]any{"cols": 10, "rows": 10},
		},
		"materials": []any{
			map[string]any{
				"name": "stone_floor",
				"pbr": map[string]any{
					"base_color": []any{0.5, 0.5, 0.5},
					"metallic":   0.0,
					"roughness":  0.9,
				},
			},
		},
		"collections": []any{
			map[string]any{"name": "geometry", "purpose": "geometry"},
		},
		"objects": []any{
			map[string]any{
				"id": "room_a", "type": "room", "material": "stone_floor", "collection": "geometry",
				"grid_cell":  map[string]any{"col": 0, "row": 0},
				"properties": map[string]any{"width_cells": 3, "height_cells": 3},
			},
			map[string]any{
				"id": "corridor_1", "type": "corridor_segment", "material": "stone_floor",
				"grid_cell":  map[string]any{"col": 3, "row": 1},
				"properties": map[string]any{"length_cells": 3, "direction": "east"},
			},
			map[string]any{
				"id": "door_1", "type": "door",
				"grid_cell":  map[string]any{"col": 3, "row": 1},
				"properties": map[string]any{"direction": "east"},
			},
			map[string]any{
				"id": "room_b", "type": "room", "material": "stone_floor", "collection": "geometry",
				"grid_cell":  map[string]any{"col": 6, "row": 0},
				"properties": map[string]any{"width_cells": 4, "height_cells": 4},
			},
		},
		"lighting": []any{
			map[string]any{"type": "sun", "position": []any{0, 0, 20}, "intensity": 3.0},
			map[string]any{"type": "point", "position": []any{10, 4, 3}, "intensity": 500.0, "color_rgb": []any{1.0, 0.9, 0.8}},
		},
		"camera": map[string]any{
			"position":       []any{10, -12, 14},
			"rotation_euler": []any{1.0, 0, 0},
			"fov_deg":        60,
		},
		"constraints": map[string]any{
			"min_path_length_cells":             5,
			"require_traversable_start_to_goal": true,
		},
	}
}

// FilmSpec returns a minimal valid film_interior spec with no grid.
func FilmSpec() map[string]any {
	return map[string]any{
		"version": "1.0.0",
		"domain":  "film_interior",
		"seed":    7,
		"objects": []any{
			map[string]any{"id": "sofa", "type": "cube", "position": []any{1, 2, 0}, "scale": []any{2, 1, 1}},
			map[string]any{"id": "lamp", "type": "cylinder", "position": []any{-1, 0, 0}},
		},
		"lighting": []any{
			map[string]any{"type": "area", "position": []any{0, 0, 3}, "intensity": 200.0},
			map[string]any{"type": "point", "position": []any{2, 2, 2}, "intensity": 50.0},
		},
		"camera": map[string]any{
			"position":       []any{0, -5, 2},
			"rotation_euler": []any{1.2, 0, 0},
		},
	}
}

// Object returns the i-th object map of a spec tree.
func Object(tree map[string]any, i int) map[string]any {
	return tree["objects"].([]any)[i].(map[string]any)
}

// MustJSON marshals a spec tree.
func MustJSON(t *testing.T, tree any) []byte {
	t.Helper()
	raw, err := json.Marshal(tree)
	require.NoError(t, err)
	return raw
}
