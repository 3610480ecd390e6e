package rules

import (
	"fmt"

	"github.com/specialistvlad/scenegrid/internal/spec"
	"github.com/specialistvlad/scenegrid/internal/validation"
)

// RegisterDungeonRules installs the procedural_dungeon rule set.
func RegisterDungeonRules(r *Registry) {
	d := spec.DomainProceduralDungeon
	r.Register(d, RuleFunc{RuleName: "grid_cell_bounds", Fn: checkGridBounds})
	r.Register(d, RuleFunc{RuleName: "grid_footprint_bounds", Fn: checkFootprintBounds})
	r.Register(d, RuleFunc{RuleName: "corridor_direction", Fn: checkCorridorDirection})
	r.Register(d, RuleFunc{RuleName: "door_direction", Fn: checkDoorDirection})
	r.Register(d, RuleFunc{RuleName: "door_adjacency", Fn: checkDoorAdjacency})
}

func objectPath(i int) string { return fmt.Sprintf("$.objects[%d]", i) }

func violation(res *validation.Result, path string, code validation.Code, objectID, msg string) {
	res.Add(validation.Issue{
		Path:     path,
		Message:  msg,
		Code:     code,
		Severity: validation.SeverityError,
		Kind:     validation.KindDomainRule,
		ObjectID: objectID,
	})
}

func checkGridBounds(s *spec.SceneSpec, res *validation.Result) {
	if s.Grid == nil {
		return
	}
	cols, rows := s.Grid.Dimensions.Cols, s.Grid.Dimensions.Rows
	for i, o := range s.Objects {
		if o.GridCell == nil {
			continue
		}
		c := *o.GridCell
		if c.Col < 0 || c.Col >= cols || c.Row < 0 || c.Row >= rows {
			violation(res, objectPath(i)+".grid_cell", validation.CodeRange, o.ID,
				fmt.Sprintf("grid_cell (%d,%d) is outside the %dx%d grid", c.Col, c.Row, cols, rows))
		}
	}
}

// checkFootprintBounds requires a room or corridor anchored inside the grid
// to stay inside it. Out-of-bounds anchors are reported by checkGridBounds.
func checkFootprintBounds(s *spec.SceneSpec, res *validation.Result) {
	if s.Grid == nil {
		return
	}
	cols, rows := s.Grid.Dimensions.Cols, s.Grid.Dimensions.Rows
	inside := func(c spec.GridCell) bool {
		return c.Col >= 0 && c.Col < cols && c.Row >= 0 && c.Row < rows
	}
	for i, o := range s.Objects {
		if o.GridCell == nil || !inside(*o.GridCell) {
			continue
		}
		if o.Type != spec.TypeRoom && o.Type != spec.TypeCorridorSegment {
			continue
		}
		for _, c := range o.Footprint() {
			if !inside(c) {
				violation(res, objectPath(i)+".properties", validation.CodeRange, o.ID,
					fmt.Sprintf("%s %q reaches cell (%d,%d), outside the %dx%d grid", o.Type, o.ID, c.Col, c.Row, cols, rows))
				break
			}
		}
	}
}

func checkCorridorDirection(s *spec.SceneSpec, res *validation.Result) {
	for i, o := range s.Objects {
		p, ok := o.Corridor()
		if !ok || p.Direction.Valid() {
			continue
		}
		violation(res, objectPath(i)+".properties.direction", validation.CodeEnum, o.ID,
			"corridor_segment.properties.direction must be one of {'north','south','east','west'}")
	}
}

func checkDoorDirection(s *spec.SceneSpec, res *validation.Result) {
	for i, o := range s.Objects {
		p, ok := o.Door()
		if !ok || p.Direction == "" || p.Direction.Valid() {
			continue
		}
		violation(res, objectPath(i)+".properties.direction", validation.CodeEnum, o.ID,
			"door.properties.direction must be one of {'north','south','east','west'}")
	}
}

// checkDoorAdjacency requires every door to share a cell with, or be a
// 4-neighbour of, a cell covered by a room or corridor footprint.
func checkDoorAdjacency(s *spec.SceneSpec, res *validation.Result) {
	occupied := OccupiedCells(s)
	for i, o := range s.Objects {
		if o.Type != spec.TypeDoor {
			continue
		}
		if o.GridCell == nil {
			violation(res, objectPath(i), validation.CodeCrossConstraint, o.ID,
				fmt.Sprintf("door %q has no grid_cell", o.ID))
			continue
		}
		if !touches(occupied, *o.GridCell) {
			violation(res, objectPath(i), validation.CodeCrossConstraint, o.ID,
				fmt.Sprintf("door %q at (%d,%d) must be adjacent to a room or corridor cell", o.ID, o.GridCell.Col, o.GridCell.Row))
		}
	}
}

// OccupiedCells returns the union of room and corridor footprints.
func OccupiedCells(s *spec.SceneSpec) map[spec.GridCell]struct{} {
	cells := make(map[spec.GridCell]struct{})
	for _, o := range s.Objects {
		if o.Type != spec.TypeRoom && o.Type != spec.TypeCorridorSegment {
			continue
		}
		for _, c := range o.Footprint() {
			cells[c] = struct{}{}
		}
	}
	return cells
}

func touches(occupied map[spec.GridCell]struct{}, c spec.GridCell) bool {
	candidates := [...]spec.GridCell{
		c,
		{Col: c.Col + 1, Row: c.Row},
		{Col: c.Col - 1, Row: c.Row},
		{Col: c.Col, Row: c.Row + 1},
		{Col: c.Col, Row: c.Row - 1},
	}
	for _, n := range candidates {
		if _, ok := occupied[n]; ok {
			return true
		}
	}
	return false
}
