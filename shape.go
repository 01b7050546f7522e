package elsa

import "slices"

// Shape is one drawable element of a page. Containers are shapes whose
// behaviour reports IsContainer; they own an ordered list of child ids.
// Links to other shapes (Container, FromShape, ToShape) are ids resolved
// through the page.
type Shape struct {
	ID           string
	Type         string
	X, Y         float64
	Width        float64
	Height       float64
	Container    string
	Text         string
	FromShape    string
	ToShape      string
	Points       []Point
	Shared       bool
	PasteSession string
	Fields       map[string]any

	page       *Page
	behavior   Behavior
	children   []string
	connectors []Connector
	selected   bool
	removed    bool
}

func (s *Shape) Page() *Page             { return s.page }
func (s *Shape) Behavior() Behavior      { return s.behavior }
func (s *Shape) IsContainer() bool       { return s.behavior.IsContainer() }
func (s *Shape) IsSelected() bool        { return s.selected }
func (s *Shape) Removed() bool           { return s.removed }
func (s *Shape) Movable() bool           { return s.behavior.Movable(s) }
func (s *Shape) Resizable() bool         { return s.behavior.Resizable(s) }
func (s *Shape) Deletable() bool         { return s.behavior.Deletable(s) }
func (s *Shape) Selectable() bool        { return s.behavior.Selectable(s) }
func (s *Shape) Copyable() bool          { return s.behavior.Copyable(s) }
func (s *Shape) Linkable() bool          { return s.behavior.Linkable(s) }
func (s *Shape) Connectors() []Connector { return s.connectors }

func (s *Shape) Bounds() Rect {
	return Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}
}

// ChildIDs returns the container's children in z-order.
func (s *Shape) ChildIDs() []string {
	return slices.Clone(s.children)
}

// Children resolves the child ids. Ids that no longer resolve are skipped.
func (s *Shape) Children() []*Shape {
	out := make([]*Shape, 0, len(s.children))
	for _, id := range s.children {
		if c, ok := s.page.shapes[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ChildAllowed applies the container's containment policy.
func (s *Shape) ChildAllowed(child *Shape) bool {
	return s.behavior.IsContainer() && s.behavior.ChildAllowed(s, child)
}

// GetContainer resolves the owning container. A root shape returns nil.
func (s *Shape) GetContainer() (*Shape, error) {
	if s.Container == "" {
		return nil, nil
	}
	c, ok := s.page.shapes[s.Container]
	if !ok {
		return nil, &DanglingReferenceError{From: s.ID, Field: "container", ID: s.Container}
	}
	return c, nil
}

// Select adds the shape to the page focus.
func (s *Shape) Select() {
	if s.selected || s.removed || !s.Selectable() {
		return
	}
	s.selected = true
	s.page.focused = append(s.page.focused, s.ID)
	s.page.events.emit(Event{Name: EventFocusChanged, Shapes: []*Shape{s}})
}

func (s *Shape) UnSelect() {
	if !s.selected {
		return
	}
	s.selected = false
	s.page.focused = slices.DeleteFunc(s.page.focused, func(id string) bool { return id == s.ID })
	s.page.events.emit(Event{Name: EventFocusChanged, Shapes: []*Shape{s}})
}

// MoveTo places the shape at x, y. Descendants keep their offset to it.
func (s *Shape) MoveTo(x, y float64) {
	dx, dy := x-s.X, y-s.Y
	if dx == 0 && dy == 0 {
		return
	}
	s.translate(dx, dy)
	s.page.events.emit(Event{Name: EventShapeMoved, Shapes: []*Shape{s}})
	s.page.relayout(s.parent())
}

// Resize sets width and height, clamped to the minimum size.
func (s *Shape) Resize(w, h float64) {
	w, h = max(w, minShapeWidth), max(h, minShapeHeight)
	if w == s.Width && h == s.Height {
		return
	}
	s.Width, s.Height = w, h
	s.refresh()
	s.page.events.emit(Event{Name: EventShapeResized, Shapes: []*Shape{s}})
	if s.IsContainer() {
		s.page.relayout(s)
	} else {
		s.page.relayout(s.parent())
	}
}

// Remove detaches the shape from the page, removing owned children and
// attached lines first. It returns every shape actually removed; removing an
// already removed shape returns nil.
func (s *Shape) Remove(source string) []*Shape {
	if s.removed || s.page.shapes[s.ID] != s {
		return nil
	}
	var removed []*Shape
	// removing a child also removes its lines, which may be siblings
	children := slices.Clone(s.children)
	for i := len(children) - 1; i >= 0; i-- {
		if c, ok := s.page.shapes[children[i]]; ok {
			removed = append(removed, c.Remove(source)...)
		}
	}
	for _, line := range s.page.attachedLines(s.ID) {
		removed = append(removed, line.Remove(source)...)
	}

	parent := s.parent()
	s.page.detach(s)
	s.UnSelect()
	delete(s.page.shapes, s.ID)
	s.removed = true
	removed = append(removed, s)

	s.page.log.Debug().Str("shape", s.ID).Str("source", source).Msg("shape removed")
	s.page.events.emit(Event{Name: EventShapeRemoved, Shapes: []*Shape{s}, Source: source})
	s.page.relayout(parent)
	return removed
}

// Record serializes the shape. Fields outside the behaviour's allow-list are
// dropped.
func (s *Shape) Record() Record {
	r := Record{
		ID:           s.ID,
		Type:         s.Type,
		X:            s.X,
		Y:            s.Y,
		Width:        s.Width,
		Height:       s.Height,
		Container:    s.Container,
		Text:         s.Text,
		FromShape:    s.FromShape,
		ToShape:      s.ToShape,
		Shared:       s.Shared,
		PasteSession: s.PasteSession,
	}
	if len(s.Points) > 0 {
		r.Points = slices.Clone(s.Points)
	}
	for _, key := range s.behavior.SerializedFields() {
		if v, ok := s.Fields[key]; ok {
			if r.Fields == nil {
				r.Fields = make(map[string]any)
			}
			r.Fields[key] = v
		}
	}
	return r
}

func (s *Shape) snapshot() State {
	return State{
		Exists:    true,
		X:         s.X,
		Y:         s.Y,
		Width:     s.Width,
		Height:    s.Height,
		Container: s.Container,
		Index:     s.page.indexOf(s),
		Text:      s.Text,
		Points:    slices.Clone(s.Points),
		Record:    s.Record(),
	}
}

// load copies init data onto a freshly created shape.
func (s *Shape) load(r Record, x, y float64) {
	s.Width, s.Height = r.Width, r.Height
	s.Text = r.Text
	s.FromShape, s.ToShape = r.FromShape, r.ToShape
	s.Shared = r.Shared
	s.PasteSession = r.PasteSession
	if len(r.Points) > 0 {
		dx, dy := x-r.X, y-r.Y
		s.Points = make([]Point, len(r.Points))
		for i, p := range r.Points {
			s.Points[i] = Point{X: p.X + dx, Y: p.Y + dy}
		}
	}
	allowed := s.behavior.SerializedFields()
	for k, v := range r.Fields {
		if slices.Contains(allowed, k) {
			if s.Fields == nil {
				s.Fields = make(map[string]any)
			}
			s.Fields[k] = v
		}
	}
}

func (s *Shape) parent() *Shape {
	if s.Container == "" {
		return nil
	}
	return s.page.shapes[s.Container]
}

// translate moves the shape and its descendants without relayout.
func (s *Shape) translate(dx, dy float64) {
	s.X += dx
	s.Y += dy
	for i := range s.Points {
		s.Points[i].X += dx
		s.Points[i].Y += dy
	}
	s.refresh()
	for _, c := range s.Children() {
		c.translate(dx, dy)
	}
}

// setGeometry is the raw setter used by layout and history.
func (s *Shape) setGeometry(x, y, w, h float64) {
	if s.X == x && s.Y == y && s.Width == w && s.Height == h {
		return
	}
	dx, dy := x-s.X, y-s.Y
	s.X, s.Y, s.Width, s.Height = x, y, w, h
	for i := range s.Points {
		s.Points[i].X += dx
		s.Points[i].Y += dy
	}
	s.refresh()
}

// fitPoints derives the bounding box of a point list.
func (s *Shape) fitPoints() {
	if len(s.Points) == 0 {
		return
	}
	minX, minY := s.Points[0].X, s.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	s.X, s.Y, s.Width, s.Height = minX, minY, maxX-minX, maxY-minY
}

func (s *Shape) refresh() {
	s.refreshConnectors()
	if s.page != nil && !s.removed {
		s.page.refreshLinks(s)
	}
}
