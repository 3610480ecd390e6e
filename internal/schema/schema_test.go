package schema

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/specialistvlad/scenegrid/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, tree any) *spec.Document {
	t.Helper()
	doc, err := spec.FromValue(tree)
	require.NoError(t, err)
	return doc
}

func findIssue(issues []validation.Issue, path string) (validation.Issue, bool) {
	for _, is := range issues {
		if is.Path == path {
			return is, true
		}
	}
	return validation.Issue{}, false
}

func TestValidate_FixturesAreValid(t *testing.T) {
	t.Parallel()

	for name, tree := range map[string]map[string]any{
		"dungeon": testutil.DungeonSpec(),
		"film":    testutil.FilmSpec(),
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			res := Validate(mustDoc(t, tree))
			assert.True(t, res.OK(), "unexpected errors: %v", res.Errors)
		})
	}
}

func TestValidate_GridDimensionBoundaries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		cols  int
		valid bool
	}{
		{cols: 4, valid: false},
		{cols: 5, valid: true},
		{cols: 200, valid: true},
		{cols: 201, valid: false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("cols=%d", tc.cols), func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			tree := testutil.DungeonSpec()
			tree["grid"].(map[string]any)["dimensions"] = map[string]any{"cols": tc.cols, "rows": 10}

			// --- Act ---
			res := Validate(mustDoc(t, tree))

			// --- Assert ---
			if tc.valid {
				assert.True(t, res.OK(), "cols=%d: %v", tc.cols, res.Errors)
				return
			}
			require.False(t, res.OK())
			is, ok := findIssue(res.Errors, "$.grid.dimensions.cols")
			require.True(t, ok, "cols=%d: %v", tc.cols, res.Errors)
			assert.Equal(t, validation.CodeRange, is.Code)
		})
	}
}

func TestValidate_MissingGridForDungeon(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	delete(tree, "grid")

	// --- Act ---
	res := Validate(mustDoc(t, tree))

	// --- Assert ---
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "$.grid", res.Errors[0].Path)
	assert.Equal(t, validation.CodeRequired, res.Errors[0].Code)
	assert.Contains(t, res.Errors[0].Message, "grid")
}

func TestValidate_TraversalFlagNeedsGrid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		flag    any
		wantErr bool
	}{
		{name: "flag set", flag: true, wantErr: true},
		{name: "flag cleared", flag: false, wantErr: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			tree := testutil.FilmSpec()
			tree["constraints"] = map[string]any{"require_traversable_start_to_goal": tc.flag}

			// --- Act ---
			res := Validate(mustDoc(t, tree))

			// --- Assert ---
			if !tc.wantErr {
				assert.Empty(t, res.Errors)
				return
			}
			require.Len(t, res.Errors, 1)
			assert.Equal(t, "$.grid", res.Errors[0].Path)
			assert.Equal(t, validation.CodeRequired, res.Errors[0].Code)
			assert.Contains(t, res.Errors[0].Message, "require_traversable_start_to_goal")
		})
	}
}

func TestValidate_NullIsAbsent(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	tree["grid"] = nil

	res := Validate(mustDoc(t, tree))

	_, ok := findIssue(res.Errors, "$.grid")
	assert.True(t, ok)
}

func TestValidate_DuplicateObjectIDsNameBothIndices(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	testutil.Object(tree, 2)["id"] = "room_a"

	// --- Act ---
	res := Validate(mustDoc(t, tree))

	// --- Assert ---
	is, ok := findIssue(res.Errors, "$.objects[2].id")
	require.True(t, ok, "%v", res.Errors)
	assert.Equal(t, validation.CodeUnique, is.Code)
	assert.Contains(t, is.Message, "$.objects[0]")
	assert.Contains(t, is.Message, "$.objects[2]")
}

func TestValidate_NamespacesAreIndependent(t *testing.T) {
	t.Parallel()

	// A material, a collection and an object may share a name.
	tree := testutil.DungeonSpec()
	testutil.Object(tree, 0)["id"] = "geometry"

	res := Validate(mustDoc(t, tree))

	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestValidate_CollectsEveryIssue(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	tree["version"] = "1.0"
	tree["seed"] = -1
	tree["units"] = "feet"
	tree["lighting"] = []any{}
	testutil.Object(tree, 0)["id"] = "room a"
	testutil.Object(tree, 1)["material"] = "marble"
	testutil.Object(tree, 3)["type"] = "tower"
	tree["camera"].(map[string]any)["fov_deg"] = 150
	tree["materials"] = append(tree["materials"].([]any), map[string]any{"name": "stone_floor"})

	// --- Act ---
	res := Validate(mustDoc(t, tree))

	// --- Assert ---
	want := map[string]validation.Code{
		"$.version":             validation.CodeFormat,
		"$.seed":                validation.CodeMinimum,
		"$.units":               validation.CodeEnum,
		"$.lighting":            validation.CodeMinItems,
		"$.objects[0].id":       validation.CodeASCII,
		"$.objects[1].material": validation.CodeReference,
		"$.objects[3].type":     validation.CodeEnum,
		"$.camera.fov_deg":      validation.CodeRange,
		"$.materials[1].name":   validation.CodeUnique,
	}
	for path, code := range want {
		is, ok := findIssue(res.Errors, path)
		if assert.True(t, ok, "missing issue at %s", path) {
			assert.Equal(t, code, is.Code, path)
		}
	}
	for _, is := range res.Errors {
		assert.Equal(t, validation.KindStructural, is.Kind)
	}
}

func TestValidate_RequiredKeysReportedAtRoot(t *testing.T) {
	t.Parallel()

	res := Validate(mustDoc(t, map[string]any{"version": "1.0.0"}))

	var missing []string
	for _, is := range res.Errors {
		if is.Path == "$" && is.Code == validation.CodeRequired {
			missing = append(missing, is.Message)
		}
	}
	assert.Len(t, missing, 5)
}

func TestValidate_NonObjectRoot(t *testing.T) {
	t.Parallel()

	doc, err := spec.Parse([]byte(`[1, 2, 3]`))
	require.NoError(t, err)

	res := Validate(doc)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "$", res.Errors[0].Path)
	assert.Equal(t, validation.CodeType, res.Errors[0].Code)
}

func TestValidate_Warnings(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	tree := testutil.DungeonSpec()
	tree["grid"].(map[string]any)["dimensions"] = map[string]any{"cols": 5, "rows": 5}
	tree["lighting"] = tree["lighting"].([]any)[:1]
	tree["camera"].(map[string]any)["fov_deg"] = 110
	testutil.Object(tree, 0)["properties"].(map[string]any)["length_cells"] = 2

	// --- Act ---
	res := Validate(mustDoc(t, tree))

	// --- Assert ---
	require.True(t, res.OK(), "%v", res.Errors)
	want := map[string]validation.Code{
		"$.grid.dimensions":                    validation.CodeWarning,
		"$.lighting":                           validation.CodeHint,
		"$.camera.fov_deg":                     validation.CodeHint,
		"$.objects[0].properties.length_cells": validation.CodeUnknownProperty,
	}
	for path, code := range want {
		is, ok := findIssue(res.Warnings, path)
		if assert.True(t, ok, "missing warning at %s", path) {
			assert.Equal(t, code, is.Code)
			assert.Equal(t, validation.SeverityWarning, is.Severity)
		}
	}
}

func TestValidate_PropertiesAreTypedByVariant(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	testutil.Object(tree, 0)["properties"] = map[string]any{"width_cells": 0, "height_cells": "3", "blocked": "yes"}
	testutil.Object(tree, 2)["properties"] = map[string]any{"width_m": -1}

	res := Validate(mustDoc(t, tree))

	want := map[string]validation.Code{
		"$.objects[0].properties.width_cells":  validation.CodeMinimum,
		"$.objects[0].properties.height_cells": validation.CodeType,
		"$.objects[0].properties.blocked":      validation.CodeType,
		"$.objects[2].properties.width_m":      validation.CodeMinimum,
	}
	for path, code := range want {
		is, ok := findIssue(res.Errors, path)
		if assert.True(t, ok, "missing issue at %s", path) {
			assert.Equal(t, code, is.Code)
		}
	}
}

func TestValidate_FootprintSizesAreCapped(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	testutil.Object(tree, 0)["properties"] = map[string]any{"width_cells": 201, "height_cells": 200}
	testutil.Object(tree, 1)["properties"].(map[string]any)["length_cells"] = 1e10

	res := Validate(mustDoc(t, tree))

	for path, code := range map[string]validation.Code{
		"$.objects[0].properties.width_cells":  validation.CodeRange,
		"$.objects[1].properties.length_cells": validation.CodeRange,
	} {
		is, ok := findIssue(res.Errors, path)
		if assert.True(t, ok, "missing issue at %s", path) {
			assert.Equal(t, code, is.Code)
		}
	}
	_, ok := findIssue(res.Errors, "$.objects[0].properties.height_cells")
	assert.False(t, ok, "200 is within the cap")
}

func TestValidate_WalkableAreaAndCells(t *testing.T) {
	t.Parallel()

	tree := testutil.DungeonSpec()
	tree["traversable_cells"] = []any{[]any{1, 1}, []any{1}}
	testutil.Object(tree, 0)["walkable_area"] = map[string]any{
		"type":   "circle",
		"bounds": map[string]any{"min_col": 4, "max_col": 2, "min_row": 0, "max_row": 1},
	}

	res := Validate(mustDoc(t, tree))

	_, ok := findIssue(res.Errors, "$.traversable_cells[1]")
	assert.True(t, ok)
	_, ok = findIssue(res.Errors, "$.traversable_cells[0]")
	assert.False(t, ok)
	_, ok = findIssue(res.Errors, "$.objects[0].walkable_area.type")
	assert.True(t, ok)
	is, ok := findIssue(res.Errors, "$.objects[0].walkable_area.bounds")
	require.True(t, ok)
	assert.Equal(t, validation.CodeRange, is.Code)
}

func TestValidate_IntegralFloatsAreIntegers(t *testing.T) {
	t.Parallel()

	doc, err := spec.Parse([]byte(strings.Replace(string(testutil.MustJSON(t, testutil.DungeonSpec())), `"seed":42`, `"seed":42.0`, 1)))
	require.NoError(t, err)

	s, err := AssertValid(doc)

	require.NoError(t, err)
	assert.Equal(t, int64(42), s.Seed)
}

func TestVersionGating(t *testing.T) {
	t.Parallel()

	constraint, err := ParseVersionConstraint(">= 1.0.0, < 2.0.0")
	require.NoError(t, err)
	_, err = ParseVersionConstraint("not a constraint")
	require.Error(t, err)

	testCases := []struct {
		name     string
		version  string
		opts     []Option
		mismatch bool
	}{
		{name: "no gate", version: "9.9.9"},
		{name: "exact match", version: "1.0.0", opts: []Option{WithExpectVersion("1.0.0")}},
		{name: "exact mismatch", version: "1.0.1", opts: []Option{WithExpectVersion("1.0.0")}, mismatch: true},
		{name: "constraint satisfied", version: "1.4.2", opts: []Option{WithVersionConstraint(constraint)}},
		{name: "constraint violated", version: "2.0.0", opts: []Option{WithVersionConstraint(constraint)}, mismatch: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			tree := testutil.DungeonSpec()
			tree["version"] = tc.version

			// --- Act ---
			_, err := AssertValid(mustDoc(t, tree), tc.opts...)

			// --- Assert ---
			if !tc.mismatch {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, validation.ErrVersionMismatch))
			assert.False(t, errors.Is(err, validation.ErrStructural))
		})
	}
}

func TestAssertValid_RoundTripValidatesIdentically(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	first, err := AssertValid(mustDoc(t, testutil.DungeonSpec()))
	require.NoError(t, err)

	// --- Act ---
	again := mustDoc(t, first)
	res := Validate(again)
	second, err := AssertValid(again)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, Validate(mustDoc(t, testutil.DungeonSpec())).Warnings, res.Warnings)
	assert.Equal(t, first, second)
}
