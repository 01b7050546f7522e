package elsa

import "maps"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (r Rect) Union(o Rect) Rect {
	if r.Width <= 0 && r.Height <= 0 {
		return o
	}
	minX, minY := min(r.X, o.X), min(r.Y, o.Y)
	maxX := max(r.X+r.Width, o.X+o.Width)
	maxY := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Record is the flat serialized form of a shape. Pages persist arrays of
// records and the clipboard carries them.
type Record struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	X            float64        `json:"x"`
	Y            float64        `json:"y"`
	Width        float64        `json:"width"`
	Height       float64        `json:"height"`
	Container    string         `json:"container"`
	Text         string         `json:"text,omitempty"`
	FromShape    string         `json:"fromShape,omitempty"`
	ToShape      string         `json:"toShape,omitempty"`
	Points       []Point        `json:"points,omitempty"`
	Shared       bool           `json:"shared,omitempty"`
	PasteSession string         `json:"pasteSession,omitempty"`
	Fields       map[string]any `json:"fields,omitempty"`
}

func (r Record) clone() Record {
	out := r
	if r.Points != nil {
		out.Points = append([]Point(nil), r.Points...)
	}
	if r.Fields != nil {
		out.Fields = maps.Clone(r.Fields)
	}
	return out
}

// State is the snapshot of one shape taken before or after a mutation.
type State struct {
	Exists    bool
	X, Y      float64
	Width     float64
	Height    float64
	Container string
	Index     int
	Text      string
	Points    []Point
	Record    Record
}

func (s State) equal(o State) bool {
	if s.Exists != o.Exists {
		return false
	}
	if !s.Exists {
		return true
	}
	if s.X != o.X || s.Y != o.Y || s.Width != o.Width || s.Height != o.Height {
		return false
	}
	if s.Container != o.Container || s.Index != o.Index || s.Text != o.Text {
		return false
	}
	if len(s.Points) != len(o.Points) {
		return false
	}
	for i := range s.Points {
		if s.Points[i] != o.Points[i] {
			return false
		}
	}
	return true
}

// Change pairs the pre and post state of one affected shape.
type Change struct {
	ShapeID string
	Pre     State
	Post    State
}

func (c Change) changed() bool {
	return !c.Pre.equal(c.Post)
}

// ConnectorRole tells the interaction pipeline what dragging a connector does.
type ConnectorRole int

const (
	RoleResize ConnectorRole = iota
	RoleLink
	RolePoint
)

// Connector is a named attachment point on a shape.
type Connector struct {
	Name string
	X, Y float64
	Role ConnectorRole
	// DX and DY give the resize direction of a handle (-1, 0 or 1).
	DX, DY int
	// Index is the free-line point a RolePoint connector drags.
	Index int
}
