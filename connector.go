package elsa

import (
	"fmt"
	"math"
)

// linkOffset keeps link anchors clear of the resize handles on the same edge.
const linkOffset = 12

var resizeHandles = []struct {
	name   string
	dx, dy int
}{
	{"nw", -1, -1}, {"n", 0, -1}, {"ne", 1, -1}, {"e", 1, 0},
	{"se", 1, 1}, {"s", 0, 1}, {"sw", -1, 1}, {"w", -1, 0},
}

// refreshConnectors recomputes attachment points from the current geometry.
func (s *Shape) refreshConnectors() {
	s.connectors = nil
	if s.behavior == nil {
		return
	}
	if s.Type == TypeLine {
		return
	}
	if s.Type == TypeFreeLine {
		for i, p := range s.Points {
			s.connectors = append(s.connectors, Connector{
				Name:  fmt.Sprintf("point-%d", i),
				X:     p.X,
				Y:     p.Y,
				Role:  RolePoint,
				Index: i,
			})
		}
		return
	}
	cx, cy := s.X+s.Width/2, s.Y+s.Height/2
	if s.Resizable() {
		for _, h := range resizeHandles {
			s.connectors = append(s.connectors, Connector{
				Name: h.name,
				X:    cx + float64(h.dx)*s.Width/2,
				Y:    cy + float64(h.dy)*s.Height/2,
				Role: RoleResize,
				DX:   h.dx,
				DY:   h.dy,
			})
		}
	}
	if s.Linkable() {
		s.connectors = append(s.connectors,
			Connector{Name: "top", X: cx, Y: s.Y - linkOffset, Role: RoleLink},
			Connector{Name: "right", X: s.X + s.Width + linkOffset, Y: cy, Role: RoleLink},
			Connector{Name: "bottom", X: cx, Y: s.Y + s.Height + linkOffset, Role: RoleLink},
			Connector{Name: "left", X: s.X - linkOffset, Y: cy, Role: RoleLink},
		)
	}
}

// ConnectorAt returns the connector within tol of x, y.
func (s *Shape) ConnectorAt(x, y, tol float64) (Connector, bool) {
	for _, c := range s.connectors {
		if math.Abs(c.X-x) <= tol && math.Abs(c.Y-y) <= tol {
			return c, true
		}
	}
	return Connector{}, false
}

// Connector looks a connector up by name.
func (s *Shape) Connector(name string) (Connector, bool) {
	for _, c := range s.connectors {
		if c.Name == name {
			return c, true
		}
	}
	return Connector{}, false
}

// resizeBy applies a handle drag of total dx, dy to the start rectangle.
func resizeBy(start Rect, c Connector, dx, dy float64) Rect {
	r := start
	switch c.DX {
	case -1:
		w := max(start.Width-dx, minShapeWidth)
		r.X = start.X + start.Width - w
		r.Width = w
	case 1:
		r.Width = max(start.Width+dx, minShapeWidth)
	}
	switch c.DY {
	case -1:
		h := max(start.Height-dy, minShapeHeight)
		r.Y = start.Y + start.Height - h
		r.Height = h
	case 1:
		r.Height = max(start.Height+dy, minShapeHeight)
	}
	return r
}
