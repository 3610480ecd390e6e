package traverse

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/validation"
)

// Report is the outcome of a traversability check.
type Report struct {
	Traversable bool            `json:"traversable"`
	PathLength  int             `json:"path_length"`
	Path        []spec.GridCell `json:"path,omitempty"`
	Reason      string          `json:"reason"`
	Start       spec.GridCell   `json:"start"`
	Goal        spec.GridCell   `json:"goal"`
	Blocked     []spec.GridCell `json:"blocked,omitempty"`
	MinLength   int             `json:"min_length"`
}

// Option configures a traversability check.
type Option func(*options)

type options struct {
	start, goal      *spec.GridCell
	minLength        *int
	defaultMinLength int
}

// WithStart overrides the default start cell (0,0).
func WithStart(c spec.GridCell) Option {
	return func(o *options) { o.start = &c }
}

// WithGoal overrides the default goal cell (cols-1, rows-1).
func WithGoal(c spec.GridCell) Option {
	return func(o *options) { o.goal = &c }
}

// WithMinLength forces the minimum path length, ignoring the spec.
func WithMinLength(n int) Option {
	return func(o *options) { o.minLength = &n }
}

// WithDefaultMinLength sets the minimum applied when neither the caller nor
// the spec's constraints name one. Zero disables the minimum.
func WithDefaultMinLength(n int) Option {
	return func(o *options) { o.defaultMinLength = n }
}

// BuildGrid derives the occupancy grid of a spec. Objects flagged blocked
// close their anchor cell; doors, traversable_cells and walkable_area
// rectangles then force cells open.
func BuildGrid(s *spec.SceneSpec) (*Grid, error) {
	if s.Grid == nil {
		return nil, fmt.Errorf("spec has no grid")
	}
	g := NewGrid(s.Grid.Dimensions.Cols, s.Grid.Dimensions.Rows)

	for _, o := range s.Objects {
		if o.GridCell != nil && o.Blocked() && o.Type != spec.TypeDoor {
			g.Block(*o.GridCell)
		}
	}

	openPairs := func(cells []spec.CellPair) {
		for _, p := range cells {
			g.Open(spec.GridCell{Col: p[0], Row: p[1]})
		}
	}
	openPairs(s.TraversableCells)
	for _, o := range s.Objects {
		if o.Type == spec.TypeDoor && o.GridCell != nil {
			g.Open(*o.GridCell)
		}
		openPairs(o.TraversableCells)
		if wa := o.WalkableArea; wa != nil {
			b := wa.Bounds
			for row := max(b.MinRow, 0); row < min(b.MaxRow, g.Rows); row++ {
				for col := max(b.MinCol, 0); col < min(b.MaxCol, g.Cols); col++ {
					g.Open(spec.GridCell{Col: col, Row: row})
				}
			}
		}
	}
	return g, nil
}

// Check reports whether the spec's grid has a path from start to goal that
// is at least the minimum length.
func Check(s *spec.SceneSpec, opts ...Option) Report {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := Report{PathLength: -1, MinLength: o.defaultMinLength}
	switch {
	case o.minLength != nil:
		r.MinLength = *o.minLength
	case s.MinPathLength() > 0:
		r.MinLength = s.MinPathLength()
	}

	g, err := BuildGrid(s)
	if err != nil {
		r.Reason = err.Error()
		return r
	}
	r.Start = spec.GridCell{}
	r.Goal = spec.GridCell{Col: g.Cols - 1, Row: g.Rows - 1}
	if o.start != nil {
		r.Start = *o.start
	}
	if o.goal != nil {
		r.Goal = *o.goal
	}
	r.Blocked = g.BlockedCells()

	for _, end := range []struct {
		name string
		cell spec.GridCell
	}{{"start", r.Start}, {"goal", r.Goal}} {
		if !g.InBounds(end.cell) {
			r.Reason = fmt.Sprintf("%s %s is outside the %dx%d grid", end.name, formatCell(end.cell), g.Cols, g.Rows)
			return r
		}
		if g.Blocked(end.cell) {
			r.Reason = fmt.Sprintf("%s %s is blocked", end.name, formatCell(end.cell))
			return r
		}
	}

	path, ok := g.ShortestPath(r.Start, r.Goal)
	if !ok {
		r.Reason = fmt.Sprintf("no path from %s to %s", formatCell(r.Start), formatCell(r.Goal))
		return r
	}
	r.Path = path
	r.PathLength = len(path) - 1
	if r.PathLength < r.MinLength {
		r.Reason = fmt.Sprintf("shortest path length %d is below the minimum of %d", r.PathLength, r.MinLength)
		return r
	}
	r.Traversable = true
	r.Reason = "ok"
	return r
}

// Validate applies the traversability contract: when the spec requires a
// start-to-goal path, a failed check is a blocking error. The report is
// returned either way.
func Validate(s *spec.SceneSpec, opts ...Option) (validation.Result, Report) {
	var res validation.Result
	if !s.RequiresTraversal() {
		return res, Report{PathLength: -1, Reason: "traversal not required"}
	}
	r := Check(s, opts...)
	if !r.Traversable {
		res.Errorf(validation.KindTraversability, "$.grid", validation.CodeTraversability,
			fmt.Sprintf("%s (start %s, goal %s, blocked %s)", r.Reason, formatCell(r.Start), formatCell(r.Goal), formatCells(r.Blocked)))
	}
	return res, r
}

func formatCell(c spec.GridCell) string {
	return fmt.Sprintf("(%d,%d)", c.Col, c.Row)
}

func formatCells(cells []spec.GridCell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = formatCell(c)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
