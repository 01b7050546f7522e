package elsa

import (
	"fmt"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Page is the arena of shapes of one editor. Shapes reference each other by
// id; removing a shape drops it from the arena.
type Page struct {
	ID string

	cfg     *Config
	log     zerolog.Logger
	kinds   *Kinds
	shapes  map[string]*Shape
	roots   []string
	focused []string
	history *History
	events  *Bus
	newID   func() string

	// layingOut guards size propagation against re-entry.
	layingOut map[string]bool
}

// NewPage creates an empty page. A nil config uses DefaultConfig.
func NewPage(cfg *Config) *Page {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := &Page{
		ID:        uuid.NewString(),
		cfg:       cfg,
		log:       zerolog.Nop(),
		kinds:     DefaultKinds(),
		shapes:    make(map[string]*Shape),
		events:    NewBus(),
		newID:     uuid.NewString,
		layingOut: make(map[string]bool),
	}
	p.history = NewHistory(p, cfg.HistoryLimit)
	return p
}

func (p *Page) SetLogger(l zerolog.Logger) {
	p.log = l.With().Str("page", p.ID).Logger()
	p.history.log = p.log
}

// SetIDGenerator replaces the uuid generator, mostly for tests.
func (p *Page) SetIDGenerator(fn func() string) { p.newID = fn }

func (p *Page) Config() *Config        { return p.cfg }
func (p *Page) Kinds() *Kinds          { return p.kinds }
func (p *Page) History() *History      { return p.history }
func (p *Page) Events() *Bus           { return p.events }
func (p *Page) Logger() zerolog.Logger { return p.log }
func (p *Page) Len() int               { return len(p.shapes) }

func (p *Page) Shape(id string) (*Shape, bool) {
	s, ok := p.shapes[id]
	return s, ok
}

// Shapes returns every shape in render order: roots in z-order, each
// container followed by its descendants.
func (p *Page) Shapes() []*Shape {
	out := make([]*Shape, 0, len(p.shapes))
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, id := range ids {
			s, ok := p.shapes[id]
			if !ok {
				continue
			}
			out = append(out, s)
			walk(s.children)
		}
	}
	walk(p.roots)
	return out
}

type createOptions struct {
	id          string
	parent      string
	data        *Record
	ignoreLimit bool
	index       int
}

type CreateOption func(*createOptions)

func WithID(id string) CreateOption { return func(o *createOptions) { o.id = id } }

func WithParent(id string) CreateOption { return func(o *createOptions) { o.parent = id } }

// WithData copies r onto the shape before its Initialize hook runs.
func WithData(r Record) CreateOption {
	return func(o *createOptions) {
		rc := r.clone()
		o.data = &rc
	}
}

func IgnoreLimit() CreateOption { return func(o *createOptions) { o.ignoreLimit = true } }

func atIndex(i int) CreateOption { return func(o *createOptions) { o.index = i } }

// CreateShape is the only way a shape enters a page. It does not record
// history; see AddShape.
func (p *Page) CreateShape(typ string, x, y float64, opts ...CreateOption) (*Shape, error) {
	o := createOptions{index: -1}
	for _, opt := range opts {
		opt(&o)
	}
	b, err := p.kinds.Lookup(typ)
	if err != nil {
		return nil, err
	}
	if !o.ignoreLimit && p.cfg.ShapeLimit > 0 && len(p.shapes) >= p.cfg.ShapeLimit {
		return nil, fmt.Errorf("create %s: %w (%d)", typ, ErrShapeLimit, p.cfg.ShapeLimit)
	}
	id := o.id
	if id == "" {
		id = p.newID()
	}
	if _, exists := p.shapes[id]; exists {
		return nil, fmt.Errorf("create %s: id %q already in use", typ, id)
	}

	s := &Shape{ID: id, Type: typ, X: x, Y: y, page: p, behavior: b}
	if o.data != nil {
		s.load(*o.data, x, y)
	}
	b.Initialize(s)

	var parent *Shape
	if o.parent != "" {
		c, ok := p.shapes[o.parent]
		if !ok {
			return nil, &DanglingReferenceError{From: id, Field: "container", ID: o.parent}
		}
		if !c.ChildAllowed(s) {
			return nil, fmt.Errorf("%w: %s does not accept %s", ErrChildRejected, c.Type, typ)
		}
		parent = c
	} else if !b.RootAllowed() {
		return nil, fmt.Errorf("%w: %s cannot live on the page root", ErrChildRejected, typ)
	}

	p.shapes[id] = s
	p.attach(s, parent, o.index)
	s.refresh()
	if typ == TypeLine {
		p.refreshLine(s)
	}

	p.log.Debug().Str("shape", id).Str("type", typ).Str("container", s.Container).Msg("shape created")
	p.events.emit(Event{Name: EventShapeAdded, Shapes: []*Shape{s}})
	p.relayout(parent)
	return s, nil
}

// AddShape creates a shape and records it as one addShape command.
func (p *Page) AddShape(typ string, x, y float64, opts ...CreateOption) (*Shape, error) {
	s, err := p.CreateShape(typ, x, y, opts...)
	if err != nil {
		return nil, err
	}
	p.RecordCommand(KindAddShape, []Change{{ShapeID: s.ID, Post: s.snapshot()}})
	return s, nil
}

// Reparent moves s into the container with the given id ("" for the page
// root). The shape keeps its page coordinates.
func (p *Page) Reparent(s *Shape, containerID string) error {
	if s.Container == containerID {
		return nil
	}
	var parent *Shape
	if containerID != "" {
		c, ok := p.shapes[containerID]
		if !ok {
			return &DanglingReferenceError{From: s.ID, Field: "container", ID: containerID}
		}
		if !c.ChildAllowed(s) {
			return fmt.Errorf("%w: %s does not accept %s", ErrChildRejected, c.Type, s.Type)
		}
		for a := c; a != nil; a = a.parent() {
			if a == s {
				return fmt.Errorf("%w: %s cannot contain itself", ErrChildRejected, s.ID)
			}
		}
		parent = c
	} else if !s.behavior.RootAllowed() {
		return fmt.Errorf("%w: %s cannot live on the page root", ErrChildRejected, s.Type)
	}
	old := s.parent()
	p.detach(s)
	p.attach(s, parent, -1)
	p.relayout(old)
	p.relayout(parent)
	return nil
}

func (p *Page) attach(s *Shape, parent *Shape, index int) {
	insert := func(list []string) []string {
		if index < 0 || index > len(list) {
			return append(list, s.ID)
		}
		return slices.Insert(list, index, s.ID)
	}
	if parent == nil {
		s.Container = ""
		p.roots = insert(p.roots)
		return
	}
	s.Container = parent.ID
	parent.children = insert(parent.children)
}

// detach removes s from its owner's list. The Container id is kept so a
// removed shape still remembers where it lived.
func (p *Page) detach(s *Shape) {
	drop := func(list []string) []string {
		return slices.DeleteFunc(list, func(id string) bool { return id == s.ID })
	}
	if c := s.parent(); c != nil {
		c.children = drop(c.children)
		return
	}
	p.roots = drop(p.roots)
}

func (p *Page) indexOf(s *Shape) int {
	if c := s.parent(); c != nil {
		return slices.Index(c.children, s.ID)
	}
	return slices.Index(p.roots, s.ID)
}

// relayout recomputes derived geometry from c up the container chain within
// the current call. Each container is visited at most once per pass.
func (p *Page) relayout(c *Shape) {
	if c == nil {
		return
	}
	visited := make(map[string]bool)
	for c != nil && !c.removed {
		if visited[c.ID] || p.layingOut[c.ID] {
			return
		}
		visited[c.ID] = true
		p.layingOut[c.ID] = true
		oldH := c.Height
		changed := p.arrange(c)
		delete(p.layingOut, c.ID)
		if !changed {
			return
		}
		p.events.emit(Event{
			Name:        EventSizeChanged,
			Shapes:      []*Shape{c},
			DeltaHeight: c.Height - oldH,
			NewWidth:    c.Width,
		})
		c = c.parent()
	}
}

// arrange docks the children of c, cascading down into child containers whose
// geometry changed, and applies the derived size. It reports whether the
// size of c changed. A child container resized by the cascade docks the
// children of c once more.
func (p *Page) arrange(c *Shape) bool {
	children := c.Children()
	before := make([]Rect, len(children))
	var w, h float64
	var ok bool
	for pass := 0; pass < 2; pass++ {
		for i, ch := range children {
			before[i] = ch.Bounds()
		}
		w, h, ok = c.behavior.Arrange(c, children)
		resized := false
		for i, ch := range children {
			if !ch.IsContainer() || ch.Bounds() == before[i] || p.layingOut[ch.ID] {
				continue
			}
			docked := ch.Bounds()
			p.layingOut[ch.ID] = true
			p.arrange(ch)
			delete(p.layingOut, ch.ID)
			if ch.Width != docked.Width || ch.Height != docked.Height {
				resized = true
			}
		}
		if !resized {
			break
		}
	}
	if !ok || (w == c.Width && h == c.Height) {
		return false
	}
	c.Width, c.Height = w, h
	c.refresh()
	return true
}

// attachedLines returns lines whose ends reference id.
func (p *Page) attachedLines(id string) []*Shape {
	var out []*Shape
	for _, s := range p.shapes {
		if s.Type == TypeLine && s.ID != id && (s.FromShape == id || s.ToShape == id) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b *Shape) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// refreshLinks re-routes every line attached to s.
func (p *Page) refreshLinks(s *Shape) {
	if s.Type == TypeLine {
		return
	}
	for _, line := range p.attachedLines(s.ID) {
		p.refreshLine(line)
	}
}

// refreshLine places the line ends on the facing anchors of its shapes,
// horizontally when the centres are further apart in x than in y.
func (p *Page) refreshLine(line *Shape) {
	from, fok := p.shapes[line.FromShape]
	to, tok := p.shapes[line.ToShape]
	if !fok && !tok {
		return
	}
	if len(line.Points) < 2 {
		line.Points = []Point{{line.X, line.Y}, {line.X + line.Width, line.Y + line.Height}}
	}
	start, end := line.Points[0], line.Points[len(line.Points)-1]
	if fok && tok {
		start, end = facingPoints(from.Bounds(), to.Bounds())
	} else if fok {
		start = nearestEdgePoint(from.Bounds(), end)
	} else {
		end = nearestEdgePoint(to.Bounds(), start)
	}
	line.Points = []Point{start, end}
	line.fitPoints()
	line.refreshConnectors()
}

func facingPoints(a, b Rect) (Point, Point) {
	acx, acy := a.X+a.Width/2, a.Y+a.Height/2
	bcx, bcy := b.X+b.Width/2, b.Y+b.Height/2
	if math.Abs(acx-bcx) > math.Abs(acy-bcy) {
		if acx < bcx {
			return Point{a.X + a.Width, acy}, Point{b.X, bcy}
		}
		return Point{a.X, acy}, Point{b.X + b.Width, bcy}
	}
	if acy < bcy {
		return Point{acx, a.Y + a.Height}, Point{bcx, b.Y}
	}
	return Point{acx, a.Y}, Point{bcx, b.Y + b.Height}
}

func nearestEdgePoint(r Rect, p Point) Point {
	cx := min(max(p.X, r.X), r.X+r.Width)
	cy := min(max(p.Y, r.Y), r.Y+r.Height)
	best := Point{r.X, cy}
	dist := math.Abs(p.X - r.X)
	if d := math.Abs(p.X - (r.X + r.Width)); d < dist {
		dist, best = d, Point{r.X + r.Width, cy}
	}
	if d := math.Abs(p.Y - r.Y); d < dist {
		dist, best = d, Point{cx, r.Y}
	}
	if d := math.Abs(p.Y - (r.Y + r.Height)); d < dist {
		best = Point{cx, r.Y + r.Height}
	}
	return best
}

// ShapeAt returns the topmost shape under x, y that accepts the filter.
func (p *Page) ShapeAt(x, y float64, accept func(*Shape) bool) *Shape {
	tol := p.cfg.HandleTolerance
	shapes := p.Shapes()
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if accept != nil && !accept(s) {
			continue
		}
		if s.hit(x, y, tol) {
			return s
		}
	}
	return nil
}

func (s *Shape) hit(x, y, tol float64) bool {
	if s.Type == TypeLine || s.Type == TypeFreeLine {
		for i := 0; i+1 < len(s.Points); i++ {
			if segmentDistance(s.Points[i], s.Points[i+1], Point{x, y}) <= tol {
				return true
			}
		}
		return len(s.Points) == 1 && math.Hypot(s.Points[0].X-x, s.Points[0].Y-y) <= tol
	}
	return s.Bounds().Contains(x, y)
}

func segmentDistance(a, b, p Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / (dx*dx + dy*dy)
	t = min(max(t, 0), 1)
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// MouseDownShape decides which shape claims a press: a connector of a focused
// shape first, then the topmost selectable shape.
func (p *Page) MouseDownShape(x, y float64) (*Shape, *Connector) {
	tol := p.cfg.HandleTolerance
	for i := len(p.focused) - 1; i >= 0; i-- {
		s, ok := p.shapes[p.focused[i]]
		if !ok {
			continue
		}
		if c, ok := s.ConnectorAt(x, y, tol); ok {
			return s, &c
		}
	}
	return p.ShapeAt(x, y, (*Shape).Selectable), nil
}

// GetFocusedShapes returns the selection in selection order.
func (p *Page) GetFocusedShapes() []*Shape {
	out := make([]*Shape, 0, len(p.focused))
	for _, id := range p.focused {
		if s, ok := p.shapes[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (p *Page) ClearFocus() {
	for _, s := range p.GetFocusedShapes() {
		s.UnSelect()
	}
}

// Focus replaces the selection.
func (p *Page) Focus(shapes ...*Shape) {
	p.ClearFocus()
	for _, s := range shapes {
		s.Select()
	}
}

// removalSet lists, in removal order, what s.Remove would remove.
func (p *Page) removalSet(s *Shape, seen map[string]bool) []*Shape {
	if seen[s.ID] {
		return nil
	}
	seen[s.ID] = true
	var out []*Shape
	for i := len(s.children) - 1; i >= 0; i-- {
		if c, ok := p.shapes[s.children[i]]; ok {
			out = append(out, p.removalSet(c, seen)...)
		}
	}
	for _, line := range p.attachedLines(s.ID) {
		out = append(out, p.removalSet(line, seen)...)
	}
	return append(out, s)
}

// DeleteShapes removes the deletable shapes and records one command of the
// given kind. Shapes that are not deletable are left in place.
func (p *Page) DeleteShapes(kind CommandKind, shapes []*Shape) *Command {
	seen := make(map[string]bool)
	var doomed []*Shape
	for _, s := range shapes {
		if s.removed || !s.Deletable() {
			continue
		}
		doomed = append(doomed, p.removalSet(s, seen)...)
	}
	if len(doomed) == 0 {
		return nil
	}
	changes := make([]Change, len(doomed))
	for i, s := range doomed {
		changes[i] = Change{ShapeID: s.ID, Pre: s.snapshot()}
	}
	for _, s := range doomed {
		s.Remove(string(kind))
	}
	return p.RecordCommand(kind, changes)
}

// Nudge moves the movable focused shapes by dx, dy. Consecutive nudges merge
// into one command until the batch is cleared.
func (p *Page) Nudge(dx, dy float64) *Command {
	moving := topLevel(filterShapes(p.GetFocusedShapes(), (*Shape).Movable))
	if len(moving) == 0 {
		return nil
	}
	tracked := trackSubtrees(moving)
	pre := make([]State, len(tracked))
	for i, s := range tracked {
		pre[i] = s.snapshot()
	}
	for _, s := range moving {
		s.MoveTo(s.X+dx, s.Y+dy)
	}
	changes := make([]Change, len(tracked))
	for i, s := range tracked {
		changes[i] = Change{ShapeID: s.ID, Pre: pre[i], Post: s.snapshot()}
	}
	cmd := p.buildCommand(KindPosition, changes)
	if cmd == nil {
		return nil
	}
	cmd.BatchNo = p.history.BatchNo()
	return p.history.Push(cmd)
}

// SetText replaces the text of s as one text command. Text shapes are
// resized to fit.
func (p *Page) SetText(s *Shape, text string) *Command {
	if s.removed || s.Text == text {
		return nil
	}
	pre := s.snapshot()
	s.Text = text
	if s.Type == TypeText {
		s.Width, s.Height = 0, 0
		s.behavior.Initialize(s)
	}
	s.refresh()
	p.events.emit(Event{Name: EventShapeResized, Shapes: []*Shape{s}})
	p.relayout(s.parent())
	p.history.ClearBatchNo()
	return p.RecordCommand(KindText, []Change{{ShapeID: s.ID, Pre: pre, Post: s.snapshot()}})
}

func filterShapes(shapes []*Shape, keep func(*Shape) bool) []*Shape {
	var out []*Shape
	for _, s := range shapes {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// topLevel drops shapes whose ancestor is also in the list.
func topLevel(shapes []*Shape) []*Shape {
	in := make(map[string]bool, len(shapes))
	for _, s := range shapes {
		in[s.ID] = true
	}
	var out []*Shape
	for _, s := range shapes {
		nested := false
		for a := s.parent(); a != nil; a = a.parent() {
			if in[a.ID] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, s)
		}
	}
	return out
}

// trackSubtrees expands shapes with their descendants, containers first.
func trackSubtrees(shapes []*Shape) []*Shape {
	var out []*Shape
	var walk func(s *Shape)
	walk = func(s *Shape) {
		out = append(out, s)
		for _, c := range s.Children() {
			walk(c)
		}
	}
	for _, s := range shapes {
		walk(s)
	}
	return out
}
