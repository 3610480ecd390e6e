// Package traverse is the grid and traversability engine: blocked-cell
// derivation from a scene spec, and a deterministic A* search between two
// cells on a 4-connected grid with unit edge costs.
package traverse

import (
	"github.com/specialistvlad/scenegrid/internal/spec"
)

// Grid is a cols x rows occupancy grid stored as a flat row-major slice.
type Grid struct {
	Cols, Rows int
	blocked    []bool
}

// NewGrid returns an all-open grid.
func NewGrid(cols, rows int) *Grid {
	return &Grid{Cols: cols, Rows: rows, blocked: make([]bool, cols*rows)}
}

// InBounds reports whether c addresses a cell of the grid.
func (g *Grid) InBounds(c spec.GridCell) bool {
	return c.Col >= 0 && c.Col < g.Cols && c.Row >= 0 && c.Row < g.Rows
}

func (g *Grid) index(c spec.GridCell) int { return c.Row*g.Cols + c.Col }

func (g *Grid) cell(idx int) spec.GridCell {
	return spec.GridCell{Col: idx % g.Cols, Row: idx / g.Cols}
}

// Block marks c as impassable. Out-of-bounds cells are ignored.
func (g *Grid) Block(c spec.GridCell) {
	if g.InBounds(c) {
		g.blocked[g.index(c)] = true
	}
}

// Open marks c as passable. Out-of-bounds cells are ignored.
func (g *Grid) Open(c spec.GridCell) {
	if g.InBounds(c) {
		g.blocked[g.index(c)] = false
	}
}

// Blocked reports whether c is impassable. Out-of-bounds cells count as
// blocked.
func (g *Grid) Blocked(c spec.GridCell) bool {
	return !g.InBounds(c) || g.blocked[g.index(c)]
}

// BlockedCells lists blocked cells in row-major order.
func (g *Grid) BlockedCells() []spec.GridCell {
	var out []spec.GridCell
	for idx, b := range g.blocked {
		if b {
			out = append(out, g.cell(idx))
		}
	}
	return out
}

// Neighbour order is fixed so equal-cost searches always expand the same way.
var neighbourDeltas = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// ShortestPath runs A* with the Manhattan heuristic from start to goal and
// returns the path including both endpoints. The result is identical for
// identical blocked sets.
func (g *Grid) ShortestPath(start, goal spec.GridCell) ([]spec.GridCell, bool) {
	if g.Blocked(start) || g.Blocked(goal) {
		return nil, false
	}
	size := g.Cols * g.Rows
	startIdx, goalIdx := g.index(start), g.index(goal)

	gScore := make([]int, size)
	for i := range gScore {
		gScore[i] = -1
	}
	cameFrom := make([]int, size)
	closed := make([]bool, size)

	open := make(minHeap, 0, size/4+1)
	seq := 0
	h0 := manhattan(start, goal)
	gScore[startIdx] = 0
	cameFrom[startIdx] = -1
	open.push(heapEntry{idx: startIdx, f: h0, h: h0, seq: seq})

	for len(open) > 0 {
		e := open.pop()
		if closed[e.idx] {
			continue
		}
		if e.idx == goalIdx {
			return g.reconstruct(cameFrom, goalIdx), true
		}
		closed[e.idx] = true

		cur := g.cell(e.idx)
		for _, d := range neighbourDeltas {
			n := spec.GridCell{Col: cur.Col + d[0], Row: cur.Row + d[1]}
			if g.Blocked(n) {
				continue
			}
			nIdx := g.index(n)
			if closed[nIdx] {
				continue
			}
			tentative := gScore[e.idx] + 1
			if gScore[nIdx] >= 0 && tentative >= gScore[nIdx] {
				continue
			}
			gScore[nIdx] = tentative
			cameFrom[nIdx] = e.idx
			h := manhattan(n, goal)
			seq++
			open.push(heapEntry{idx: nIdx, f: tentative + h, h: h, seq: seq})
		}
	}
	return nil, false
}

func (g *Grid) reconstruct(cameFrom []int, goalIdx int) []spec.GridCell {
	var rev []spec.GridCell
	for idx := goalIdx; idx >= 0; idx = cameFrom[idx] {
		rev = append(rev, g.cell(idx))
	}
	path := make([]spec.GridCell, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

func manhattan(a, b spec.GridCell) int {
	return abs(a.Col-b.Col) + abs(a.Row-b.Row)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
