package preview

import (
	"context"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/testutil"
	"github.com/specialistvlad/scenegrid/internal/traverse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dungeon(t *testing.T, extra ...map[string]any) *spec.SceneSpec {
	t.Helper()
	tree := testutil.DungeonSpec()
	for _, o := range extra {
		tree["objects"] = append(tree["objects"].([]any), o)
	}
	doc, err := spec.Parse(testutil.MustJSON(t, tree))
	require.NoError(t, err)
	s, err := doc.Decode()
	require.NoError(t, err)
	return s
}

func newScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	return screen
}

func TestMap_LayoutWithoutReport(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	pillar := map[string]any{
		"id": "pillar", "type": "prop_instance",
		"grid_cell":  map[string]any{"col": 5, "row": 5},
		"properties": map[string]any{"blocked": true},
	}
	s := dungeon(t, pillar)

	// --- Act ---
	m, err := Map(s, nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, m, 10)
	assert.Len(t, m[0], 10)
	assert.Equal(t, GlyphRoom, m[0][0])
	assert.Equal(t, GlyphDoor, m[1][3])
	assert.Equal(t, GlyphCorridor, m[1][4])
	assert.Equal(t, GlyphRoom, m[3][9])
	assert.Equal(t, GlyphBlocked, m[5][5])
	assert.Equal(t, GlyphOpen, m[9][0])
}

func TestMap_DrawsPath(t *testing.T) {
	t.Parallel()

	s := dungeon(t)
	report := traverse.Check(s)
	require.True(t, report.Traversable)

	m, err := Map(s, &report)

	require.NoError(t, err)
	assert.Equal(t, GlyphStart, m[0][0])
	assert.Equal(t, GlyphGoal, m[9][9])
	var pathCells int
	for _, row := range m {
		pathCells += strings.Count(string(row), string(GlyphPath))
	}
	assert.Equal(t, len(report.Path)-2, pathCells)
}

func TestText(t *testing.T) {
	t.Parallel()

	s := dungeon(t)
	report := traverse.Check(s)

	out, err := Text(s, &report)

	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[0], "S"))
	assert.Equal(t, "traversable: path length 18 (min 5)", lines[10])
}

func TestText_NoGrid(t *testing.T) {
	t.Parallel()

	doc, err := spec.Parse(testutil.MustJSON(t, testutil.FilmSpec()))
	require.NoError(t, err)
	s, err := doc.Decode()
	require.NoError(t, err)

	_, err = Text(s, nil)

	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "traversal not checked", Status(nil))
	assert.Equal(t, "not traversable: goal (9,9) is blocked", Status(&traverse.Report{Reason: "goal (9,9) is blocked"}))
}

func TestDraw(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	screen := newScreen(t)
	s := dungeon(t)

	// --- Act ---
	err := Draw(screen, s, nil)

	// --- Assert ---
	require.NoError(t, err)
	door, _, style, _ := screen.GetContent(3, 1)
	assert.Equal(t, GlyphDoor, door)
	assert.Equal(t, glyphStyles[GlyphDoor], style)
	status := make([]rune, 0, 21)
	for x := 0; x < 21; x++ {
		r, _, _, _ := screen.GetContent(x, 11)
		status = append(status, r)
	}
	assert.Equal(t, "traversal not checked", string(status))
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("quits on q", func(t *testing.T) {
		t.Parallel()
		screen := newScreen(t)
		screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

		err := Run(context.Background(), screen, dungeon(t), nil)

		require.NoError(t, err)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		t.Parallel()
		screen := newScreen(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Run(ctx, screen, dungeon(t), nil)

		require.ErrorIs(t, err, context.Canceled)
	})
}
