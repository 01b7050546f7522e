package elsa

// Viewport describes how the canvas element maps device coordinates onto
// page coordinates.
type Viewport struct {
	Zoom float64
	// ScrollX and ScrollY are the page coordinates shown at the element's
	// top-left corner.
	ScrollX, ScrollY float64
	// Left and Top are the element's origin in client coordinates.
	Left, Top float64
	// CSSWidth/CSSHeight is the element's layout size and RectWidth/RectHeight
	// its rendered size; they differ when the element is scaled.
	CSSWidth, CSSHeight   float64
	RectWidth, RectHeight float64
}

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

func (v Viewport) scale() (float64, float64) {
	sx, sy := 1.0, 1.0
	if v.CSSWidth > 0 && v.RectWidth > 0 {
		sx = v.CSSWidth / v.RectWidth
	}
	if v.CSSHeight > 0 && v.RectHeight > 0 {
		sy = v.CSSHeight / v.RectHeight
	}
	return sx, sy
}

// ToPage corrects a client coordinate for element scaling, zoom and scroll.
func (v Viewport) ToPage(clientX, clientY float64) (float64, float64) {
	sx, sy := v.scale()
	z := v.zoom()
	return (clientX-v.Left)*sx/z + v.ScrollX, (clientY-v.Top)*sy/z + v.ScrollY
}

// ToClient is the inverse of ToPage.
func (v Viewport) ToClient(x, y float64) (float64, float64) {
	sx, sy := v.scale()
	z := v.zoom()
	return (x-v.ScrollX)*z/sx + v.Left, (y-v.ScrollY)*z/sy + v.Top
}

// Pan scrolls by a page-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.ScrollX += dx
	v.ScrollY += dy
}

// ZoomAt changes the zoom keeping the page point under clientX, clientY fixed.
func (v *Viewport) ZoomAt(zoom, clientX, clientY float64) {
	if zoom <= 0 {
		return
	}
	x, y := v.ToPage(clientX, clientY)
	v.Zoom = zoom
	nx, ny := v.ToPage(clientX, clientY)
	v.ScrollX += x - nx
	v.ScrollY += y - ny
}
