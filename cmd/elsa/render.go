package main

import (
	"math"
	"strings"

	"elsa"
)

// One terminal cell covers cellWidth x cellHeight page units.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

type grid [][]rune

func newGrid(w, h int) grid {
	g := make(grid, h)
	for y := range g {
		g[y] = []rune(strings.Repeat(" ", w))
	}
	return g
}

func (g grid) set(x, y int, r rune) {
	if y >= 0 && y < len(g) && x >= 0 && x < len(g[y]) {
		g[y][x] = r
	}
}

func (g grid) String() string {
	lines := make([]string, len(g))
	for i, row := range g {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

// toCell maps a page coordinate onto the terminal.
func toCell(v elsa.Viewport, x, y float64) (int, int) {
	cx, cy := v.ToClient(x, y)
	return int(math.Floor(cx / cellWidth)), int(math.Floor(cy / cellHeight))
}

// render draws the page in z-order, later shapes over earlier ones.
func render(p *elsa.Page, v elsa.Viewport, w, h int) grid {
	g := newGrid(w, h)
	for _, s := range p.Shapes() {
		switch s.Type {
		case elsa.TypeLine, elsa.TypeFreeLine:
			drawPolyline(g, v, s.Points)
		case elsa.TypeText:
			x, y := toCell(v, s.X, s.Y)
			drawLines(g, s.Text, x, y, -1)
		default:
			drawBox(g, v, s)
		}
	}
	return g
}

func drawBox(g grid, v elsa.Viewport, s *elsa.Shape) {
	x0, y0 := toCell(v, s.X, s.Y)
	x1, y1 := toCell(v, s.X+s.Width, s.Y+s.Height)
	x1, y1 = max(x1-1, x0+1), max(y1-1, y0+1)

	corner, horizontal, vertical := '+', '-', '|'
	if s.IsSelected() {
		corner, horizontal, vertical = '#', '#', '#'
	}
	for x := x0; x <= x1; x++ {
		g.set(x, y0, horizontal)
		g.set(x, y1, horizontal)
	}
	for y := y0; y <= y1; y++ {
		g.set(x0, y, vertical)
		g.set(x1, y, vertical)
	}
	for _, c := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		g.set(c[0], c[1], corner)
	}

	label := s.Text
	if label == "" && s.IsContainer() {
		label = "[" + s.Type + "]"
	}
	if label != "" {
		drawLines(g, label, x0+1, y0+1, x1-x0-1)
	}
}

// drawLines writes text starting at x, y. A non-negative limit truncates
// each line.
func drawLines(g grid, text string, x, y, limit int) {
	for i, line := range strings.Split(text, "\n") {
		runes := []rune(line)
		if limit >= 0 && len(runes) > limit {
			runes = runes[:limit]
		}
		for j, r := range runes {
			g.set(x+j, y+i, r)
		}
	}
}

func drawPolyline(g grid, v elsa.Viewport, pts []elsa.Point) {
	if len(pts) == 1 {
		x, y := toCell(v, pts[0].X, pts[0].Y)
		g.set(x, y, '*')
		return
	}
	for i := 0; i+1 < len(pts); i++ {
		x0, y0 := toCell(v, pts[i].X, pts[i].Y)
		x1, y1 := toCell(v, pts[i+1].X, pts[i+1].Y)
		drawSegment(g, x0, y0, x1, y1)
	}
}

func drawSegment(g grid, x0, y0, x1, y1 int) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	r := '.'
	switch {
	case dy == 0:
		r = '-'
	case dx == 0:
		r = '|'
	}
	err := dx + dy
	for {
		g.set(x0, y0, r)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
