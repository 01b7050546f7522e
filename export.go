package elsa

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

// Character cell size in page units. Text shapes size themselves with it and
// the terminal host maps one cell onto it.
const (
	charWidth  = 8.0
	charHeight = 16.0
)

const exportPadding = 16.0

// RenderPNG rasterises shapes, in the order given, as a generic box, line and
// text drawing.
func RenderPNG(w io.Writer, shapes []*Shape) error {
	var bounds Rect
	for _, s := range shapes {
		bounds = bounds.Union(s.Bounds())
	}
	if len(shapes) == 0 || (bounds.Width <= 0 && bounds.Height <= 0) {
		return ErrNothingToExport
	}
	minX, minY := bounds.X-exportPadding, bounds.Y-exportPadding
	width := int(math.Ceil(bounds.Width + 2*exportPadding))
	height := int(math.Ceil(bounds.Height + 2*exportPadding))

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(ttf, &truetype.Options{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	}))

	for _, s := range shapes {
		switch s.Type {
		case TypeLine, TypeFreeLine:
			drawPolylinePNG(dc, s.Points, minX, minY)
			if s.Type == TypeLine && s.Fields["arrow"] == true && len(s.Points) > 1 {
				n := len(s.Points)
				drawArrowPNG(dc, s.Points[n-2], s.Points[n-1], minX, minY)
			}
		case TypeText:
			drawLinesPNG(dc, s.Text, s.X-minX, s.Y-minY)
		default:
			drawBoxPNG(dc, s, minX, minY)
		}
	}
	return dc.EncodePNG(w)
}

// ExportPNG writes the whole page to filename.
func (p *Page) ExportPNG(filename string) error {
	var buf bytes.Buffer
	if err := RenderPNG(&buf, p.Shapes()); err != nil {
		return err
	}
	return os.WriteFile(filename, buf.Bytes(), 0o644)
}

func drawPolylinePNG(dc *gg.Context, pts []Point, minX, minY float64) {
	if len(pts) < 2 {
		return
	}
	dc.SetLineWidth(1)
	dc.MoveTo(pts[0].X-minX, pts[0].Y-minY)
	for _, pt := range pts[1:] {
		dc.LineTo(pt.X-minX, pt.Y-minY)
	}
	dc.Stroke()
}

func drawArrowPNG(dc *gg.Context, from, to Point, minX, minY float64) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	const size, spread = 6.0, 0.5
	tx, ty := to.X-minX, to.Y-minY
	dc.MoveTo(tx, ty)
	dc.LineTo(tx-size*dx+size*dy*spread, ty-size*dy-size*dx*spread)
	dc.LineTo(tx-size*dx-size*dy*spread, ty-size*dy+size*dx*spread)
	dc.ClosePath()
	dc.Fill()
}

func drawBoxPNG(dc *gg.Context, s *Shape, minX, minY float64) {
	x, y := s.X-minX, s.Y-minY
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, s.Width, s.Height)
	dc.Stroke()

	text := s.Text
	if s.Type == TypeTable {
		var rows []string
		for _, r := range tableRows(s.Fields["rows"]) {
			rows = append(rows, strings.Join(r, " | "))
		}
		text = strings.Join(rows, "\n")
	}
	if text != "" {
		drawLinesPNG(dc, text, x+charWidth/2, y)
	}
}

func drawLinesPNG(dc *gg.Context, text string, x, y float64) {
	for i, line := range strings.Split(text, "\n") {
		dc.DrawString(line, x, y+float64(i+1)*charHeight-4)
	}
}
