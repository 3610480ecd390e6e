package spec

// Properties is the type-specific bag of an Object. Each variant carries
// only the fields legal for its object type.
type Properties interface {
	IsBlocked() bool
	Keys() []string
}

// Common holds the flag every variant accepts.
type Common struct {
	Blocked bool `json:"blocked,omitempty"`
}

// IsBlocked reports whether the object blocks its grid cell.
func (c Common) IsBlocked() bool { return c.Blocked }

type RoomProperties struct {
	Common
	WidthCells  int `json:"width_cells,omitempty"`
	HeightCells int `json:"height_cells,omitempty"`
}

func (p *RoomProperties) Keys() []string { return []string{"blocked", "width_cells", "height_cells"} }

// Width returns width_cells, at least 1.
func (p *RoomProperties) Width() int { return max(p.WidthCells, 1) }

// Height returns height_cells, at least 1.
func (p *RoomProperties) Height() int { return max(p.HeightCells, 1) }

type CorridorProperties struct {
	Common
	LengthCells int       `json:"length_cells,omitempty"`
	Direction   Direction `json:"direction,omitempty"`
}

func (p *CorridorProperties) Keys() []string { return []string{"blocked", "length_cells", "direction"} }

// Length returns length_cells, at least 1.
func (p *CorridorProperties) Length() int { return max(p.LengthCells, 1) }

type DoorProperties struct {
	Common
	Direction  Direction `json:"direction,omitempty"`
	WidthM     float64   `json:"width_m,omitempty"`
	WidthCells int       `json:"width_cells,omitempty"`
}

func (p *DoorProperties) Keys() []string {
	return []string{"blocked", "direction", "width_m", "width_cells"}
}

// OpeningWidth returns the opening width in meters for a given cell size.
func (p *DoorProperties) OpeningWidth(cellSize float64) float64 {
	switch {
	case p.WidthM > 0:
		return p.WidthM
	case p.WidthCells > 0:
		return float64(p.WidthCells) * cellSize
	default:
		return 0.8 * cellSize
	}
}

type PropProperties struct {
	Common
	Variant string `json:"variant,omitempty"`
}

func (p *PropProperties) Keys() []string { return []string{"blocked", "variant"} }

// PrimitiveProperties covers cube, plane, cylinder and stair.
type PrimitiveProperties struct {
	Common
}

func (p *PrimitiveProperties) Keys() []string { return []string{"blocked"} }

// NewProperties returns an empty variant for the object type.
func NewProperties(t ObjectType) Properties {
	switch t {
	case TypeRoom:
		return &RoomProperties{}
	case TypeCorridorSegment:
		return &CorridorProperties{}
	case TypeDoor:
		return &DoorProperties{}
	case TypePropInstance:
		return &PropProperties{}
	default:
		return &PrimitiveProperties{}
	}
}
