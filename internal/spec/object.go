package spec

import (
	"encoding/json"
	"fmt"
)

// Direction is a cardinal direction on the layout grid. North grows the
// row index, east grows the column index.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// Directions lists the cardinal directions.
var Directions = []Direction{North, South, East, West}

// Valid reports whether d is cardinal.
func (d Direction) Valid() bool {
	switch d {
	case North, South, East, West:
		return true
	}
	return false
}

// Delta returns the (col, row) step of one cell in direction d.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return 0, 1
	case South:
		return 0, -1
	case West:
		return -1, 0
	default:
		return 1, 0
	}
}

// Object is a placed scene element.
type Object struct {
	ID               string        `json:"id"`
	Type             ObjectType    `json:"type"`
	Position         *Vec3         `json:"position,omitempty"`
	RotationEuler    *Vec3         `json:"rotation_euler,omitempty"`
	Scale            *Vec3         `json:"scale,omitempty"`
	GridCell         *GridCell     `json:"grid_cell,omitempty"`
	Material         string        `json:"material,omitempty"`
	Collection       string        `json:"collection,omitempty"`
	Properties       Properties    `json:"properties,omitempty"`
	TraversableCells []CellPair    `json:"traversable_cells,omitempty"`
	WalkableArea     *WalkableArea `json:"walkable_area,omitempty"`
}

type objectWire struct {
	ID               string          `json:"id"`
	Type             ObjectType      `json:"type"`
	Position         *Vec3           `json:"position,omitempty"`
	RotationEuler    *Vec3           `json:"rotation_euler,omitempty"`
	Scale            *Vec3           `json:"scale,omitempty"`
	GridCell         *GridCell       `json:"grid_cell,omitempty"`
	Material         string          `json:"material,omitempty"`
	Collection       string          `json:"collection,omitempty"`
	Properties       json.RawMessage `json:"properties,omitempty"`
	TraversableCells []CellPair      `json:"traversable_cells,omitempty"`
	WalkableArea     *WalkableArea   `json:"walkable_area,omitempty"`
}

// UnmarshalJSON decodes the properties bag into the variant selected by
// the object type.
func (o *Object) UnmarshalJSON(data []byte) error {
	var w objectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	props := NewProperties(w.Type)
	if len(w.Properties) > 0 && string(w.Properties) != "null" {
		if err := json.Unmarshal(w.Properties, props); err != nil {
			return fmt.Errorf("object %q: invalid %s properties: %w", w.ID, w.Type, err)
		}
	}
	*o = Object{
		ID:               w.ID,
		Type:             w.Type,
		Position:         w.Position,
		RotationEuler:    w.RotationEuler,
		Scale:            w.Scale,
		GridCell:         w.GridCell,
		Material:         w.Material,
		Collection:       w.Collection,
		Properties:       props,
		TraversableCells: w.TraversableCells,
		WalkableArea:     w.WalkableArea,
	}
	return nil
}

// Blocked reports the generic pathfinding flag.
func (o Object) Blocked() bool {
	return o.Properties != nil && o.Properties.IsBlocked()
}

// Room returns the room variant, if o is a room.
func (o Object) Room() (*RoomProperties, bool) {
	p, ok := o.Properties.(*RoomProperties)
	return p, ok
}

// Corridor returns the corridor variant, if o is a corridor segment.
func (o Object) Corridor() (*CorridorProperties, bool) {
	p, ok := o.Properties.(*CorridorProperties)
	return p, ok
}

// Door returns the door variant, if o is a door.
func (o Object) Door() (*DoorProperties, bool) {
	p, ok := o.Properties.(*DoorProperties)
	return p, ok
}

// Footprint returns the grid cells the object occupies, anchored at its
// grid_cell. Rooms span width x height, corridors extend length cells in
// their direction, everything else occupies its anchor cell only.
func (o Object) Footprint() []GridCell {
	if o.GridCell == nil {
		return nil
	}
	anchor := *o.GridCell
	switch p := o.Properties.(type) {
	case *RoomProperties:
		w, h := p.Width(), p.Height()
		cells := make([]GridCell, 0, w*h)
		for r := 0; r < h; r++ {
			for c := 0; c < w; c++ {
				cells = append(cells, GridCell{Col: anchor.Col + c, Row: anchor.Row + r})
			}
		}
		return cells
	case *CorridorProperties:
		dc, dr := p.Direction.Delta()
		n := p.Length()
		cells := make([]GridCell, 0, n)
		for i := 0; i < n; i++ {
			cells = append(cells, GridCell{Col: anchor.Col + i*dc, Row: anchor.Row + i*dr})
		}
		return cells
	default:
		return []GridCell{anchor}
	}
}
