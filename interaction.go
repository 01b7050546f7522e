package elsa

import (
	"math"
	"time"
)

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. Hosts that own a UI loop marshal f onto it.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// TimerScheduler uses time.AfterFunc and hands each due callback to Post,
// which must run it on the goroutine that owns the page. Post is required.
type TimerScheduler struct {
	Post func(func())
}

func (s TimerScheduler) AfterFunc(d time.Duration, f func()) Timer {
	if s.Post == nil {
		panic("elsa: TimerScheduler without Post")
	}
	return time.AfterFunc(d, func() { s.Post(f) })
}

// QueueScheduler parks due callbacks until the owning goroutine collects them
// with RunDue. It is the default for editors built without a scheduler.
type QueueScheduler struct {
	due chan func()
}

func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{due: make(chan func(), dueQueueSize)}
}

func (q *QueueScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() {
		select {
		case q.due <- f:
		default:
		}
	})
}

// Due delivers parked callbacks, for hosts that select on it.
func (q *QueueScheduler) Due() <-chan func() { return q.due }

// RunDue runs every parked callback on the calling goroutine and reports how
// many ran.
func (q *QueueScheduler) RunDue() int {
	n := 0
	for {
		select {
		case f := <-q.due:
			f()
			n++
		default:
			return n
		}
	}
}

// PointerEvent is a device event already reduced to a position. Mouse
// events use PointerID 0, touches their own ids.
type PointerEvent struct {
	Type      PointerEventType
	PointerID int
	ClientX   float64
	ClientY   float64
	Time      time.Time
	Shift     bool
}

// Interaction turns pointer events into shape mutations and commands.
type Interaction struct {
	Viewport Viewport

	page  *Page
	sched Scheduler
	tool  Tool

	state   PointerState
	pointer int
	gesture *Gesture
	timer   Timer
	nextID  uint64
}

func NewInteraction(p *Page, sched Scheduler) *Interaction {
	if sched == nil {
		sched = NewQueueScheduler()
	}
	return &Interaction{page: p, sched: sched, Viewport: Viewport{Zoom: 1}}
}

func (in *Interaction) State() PointerState { return in.state }
func (in *Interaction) Gesture() *Gesture   { return in.gesture }
func (in *Interaction) Tool() Tool          { return in.tool }

// SetTool switches the drawing tool. An active gesture is cancelled.
func (in *Interaction) SetTool(t Tool) {
	if in.gesture != nil {
		in.cancel()
	}
	in.tool = t
}

// Handle feeds one device event through the state machine.
func (in *Interaction) Handle(ev PointerEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	switch ev.Type {
	case PointerDown:
		in.down(ev)
	case PointerMove:
		in.move(ev)
	case PointerUp:
		in.up(ev)
	case PointerCancel, PointerLeave:
		if in.gesture != nil && ev.PointerID == in.pointer {
			in.cancel()
		}
	}
}

func (in *Interaction) down(ev PointerEvent) {
	if in.state != StateIdle {
		// a second finger while one gesture runs only kills the long press
		in.stopTimer()
		return
	}
	x, y := in.Viewport.ToPage(ev.ClientX, ev.ClientY)
	in.page.history.ClearBatchNo()
	in.nextID++
	g := newGesture(in.nextID, x, y, ev.Time)
	if in.tool == ToolSelect {
		g.Target, g.Handle = in.page.MouseDownShape(x, y)
	}
	in.gesture = g
	in.pointer = ev.PointerID
	in.state = StateDown

	id := g.ID
	in.timer = in.sched.AfterFunc(in.page.cfg.LongPress(), func() { in.longPress(id) })
}

func (in *Interaction) move(ev PointerEvent) {
	g := in.gesture
	if g == nil || ev.PointerID != in.pointer {
		return
	}
	x, y := in.Viewport.ToPage(ev.ClientX, ev.ClientY)
	dx, dy := x-g.LastX, y-g.LastY
	if dx == 0 && dy == 0 {
		return
	}
	g.moved = max(g.moved, math.Hypot(x-g.StartX, y-g.StartY))
	if g.moved > in.page.cfg.MoveThreshold {
		in.stopTimer()
	}
	if in.state == StateDown {
		in.state = StateDragging
		in.beginDrag(g, ev)
	}
	in.drag(g, x, y, dx, dy)
	g.LastX, g.LastY = x, y
}

func (in *Interaction) up(ev PointerEvent) {
	g := in.gesture
	if g == nil || ev.PointerID != in.pointer {
		return
	}
	in.stopTimer()
	x, y := in.Viewport.ToPage(ev.ClientX, ev.ClientY)
	if in.state == StateDragging && (x != g.LastX || y != g.LastY) {
		in.drag(g, x, y, x-g.LastX, y-g.LastY)
		g.LastX, g.LastY = x, y
	}
	if g.Kind == KindAddShape && g.linkFrom != nil {
		in.finishLink(g, x, y)
	}
	in.gesture = nil
	in.state = StateIdle

	if g.Kind == "" {
		if !g.longPressed && ev.Time.Sub(g.Start) < in.page.cfg.ClickThreshold() {
			in.click(g, ev)
		}
		return
	}
	cmd := in.page.buildCommand(g.Kind, g.changes(in.page))
	if cmd == nil {
		return
	}
	if !g.applied {
		if err := cmd.Execute(); err != nil {
			in.page.log.Error().Err(err).Str("kind", string(cmd.Kind)).Msg("gesture command failed")
			return
		}
	}
	in.page.history.Push(cmd)
}

// cancel discards the gesture. Live mutations are rolled back so nothing
// changes without an undo entry.
func (in *Interaction) cancel() {
	in.stopTimer()
	g := in.gesture
	in.gesture = nil
	in.state = StateIdle
	if g != nil && g.applied {
		g.rollback(in.page)
	}
	in.page.events.emit(Event{Name: EventInvalidate})
}

func (in *Interaction) stopTimer() {
	if in.timer != nil {
		in.timer.Stop()
		in.timer = nil
	}
}

// longPress fires from the scheduler. A callback for a gesture that has
// already ended, or one that moved too far, does nothing.
func (in *Interaction) longPress(id uint64) {
	g := in.gesture
	if g == nil || g.ID != id || g.moved > in.page.cfg.MoveThreshold {
		return
	}
	in.timer = nil
	g.longPressed = true
	var shapes []*Shape
	if g.Target != nil {
		shapes = []*Shape{g.Target}
	}
	in.page.events.emit(Event{Name: EventLongClick, Shapes: shapes, Point: Point{g.StartX, g.StartY}})
}

func (in *Interaction) click(g *Gesture, ev PointerEvent) {
	p := in.page
	t := g.Target
	switch {
	case t == nil:
		p.ClearFocus()
	case ev.Shift:
		if t.IsSelected() {
			t.UnSelect()
		} else {
			t.Select()
		}
	default:
		p.Focus(t)
	}
	var shapes []*Shape
	if t != nil {
		shapes = []*Shape{t}
	}
	p.events.emit(Event{Name: EventClick, Shapes: shapes, Point: Point{g.StartX, g.StartY}})
}

// beginDrag lets the claimed shape or the active tool decide what the drag
// does and which command kind it produces.
func (in *Interaction) beginDrag(g *Gesture, ev PointerEvent) {
	p := in.page
	switch in.tool {
	case ToolEraser:
		g.SetKind(KindEraser)
		in.erase(g, g.StartX, g.StartY)
		return
	case ToolFreeLine:
		s, err := p.CreateShape(TypeFreeLine, g.StartX, g.StartY)
		if err != nil {
			p.log.Warn().Err(err).Msg("free line not started")
			return
		}
		g.trackNew(s)
		g.drawing = s
		g.applied = true
		g.SetKind(KindAddShape)
		return
	}

	t := g.Target
	if t == nil {
		return
	}
	if h := g.Handle; h != nil {
		switch h.Role {
		case RoleResize:
			g.Track(t)
			g.startBox = t.Bounds()
			g.SetKind(KindResize)
		case RolePoint:
			g.Track(t)
			g.SetKind(KindUpdateFreeLine)
		case RoleLink:
			g.linkFrom = t
			g.linkTo = Point{g.StartX, g.StartY}
			g.SetKind(KindAddShape)
		}
		return
	}
	if !t.Movable() {
		return
	}
	if !t.IsSelected() {
		if ev.Shift {
			t.Select()
		} else {
			p.Focus(t)
		}
	}
	g.moving = topLevel(filterShapes(p.GetFocusedShapes(), (*Shape).Movable))
	for _, s := range trackSubtrees(g.moving) {
		g.Track(s)
	}
	g.SetKind(KindPosition)
}

func (in *Interaction) drag(g *Gesture, x, y, dx, dy float64) {
	p := in.page
	switch g.Kind {
	case KindPosition:
		for _, s := range g.moving {
			s.MoveTo(s.X+dx, s.Y+dy)
		}
		g.applied = true
	case KindResize:
		r := resizeBy(g.startBox, *g.Handle, x-g.StartX, y-g.StartY)
		t := g.Target
		if r != t.Bounds() {
			// children stay put; only a docking container moves them
			t.setGeometry(r.X, r.Y, r.Width, r.Height)
			p.events.emit(Event{Name: EventShapeResized, Shapes: []*Shape{t}})
			if t.IsContainer() {
				p.relayout(t)
			} else {
				p.relayout(t.parent())
			}
		}
		g.applied = true
	case KindUpdateFreeLine:
		t := g.Target
		i := g.Handle.Index
		if i < len(t.Points) {
			t.Points[i].X += dx
			t.Points[i].Y += dy
			t.fitPoints()
			t.refresh()
			p.events.emit(Event{Name: EventShapeResized, Shapes: []*Shape{t}})
		}
		g.applied = true
	case KindAddShape:
		if s := g.drawing; s != nil {
			s.Points = append(s.Points, Point{x, y})
			s.fitPoints()
			s.refresh()
			p.events.emit(Event{Name: EventInvalidate, Shapes: []*Shape{s}})
		} else if g.linkFrom != nil {
			g.linkTo = Point{x, y}
			p.events.emit(Event{Name: EventInvalidate, Shapes: []*Shape{g.linkFrom}, Point: g.linkTo})
		}
	case KindEraser:
		in.erase(g, x, y)
	}
}

// erase marks the shape under x, y and everything its removal would take
// along. Removal happens when the gesture ends.
func (in *Interaction) erase(g *Gesture, x, y float64) {
	p := in.page
	hit := p.ShapeAt(x, y, func(s *Shape) bool { return s.Deletable() && !g.tracked(s.ID) })
	if hit == nil {
		return
	}
	for _, s := range p.removalSet(hit, make(map[string]bool)) {
		if !g.tracked(s.ID) {
			g.markRemoved(s)
		}
	}
	p.events.emit(Event{Name: EventInvalidate, Shapes: []*Shape{hit}})
}

// finishLink connects the link source to the linkable shape under the
// release point.
func (in *Interaction) finishLink(g *Gesture, x, y float64) {
	p := in.page
	from := g.linkFrom
	to := p.ShapeAt(x, y, func(s *Shape) bool { return s != from && s.Linkable() })
	if to == nil {
		p.events.emit(Event{Name: EventInvalidate})
		return
	}
	line, err := p.CreateShape(TypeLine, from.X, from.Y, WithData(Record{FromShape: from.ID, ToShape: to.ID}))
	if err != nil {
		p.log.Warn().Err(err).Msg("link not created")
		return
	}
	g.trackNew(line)
	g.applied = true
}
