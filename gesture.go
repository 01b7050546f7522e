package elsa

import "time"

// Gesture is the state of one pointer interaction from press to release.
type Gesture struct {
	ID     uint64
	Kind   CommandKind
	Target *Shape
	Handle *Connector

	StartX, StartY float64
	LastX, LastY   float64
	Start          time.Time

	// applied is set once the drag handler mutated shapes live.
	applied     bool
	longPressed bool
	moved       float64

	order []string
	pre   map[string]State
	post  map[string]State

	// drag-specific state
	moving   []*Shape
	drawing  *Shape
	linkFrom *Shape
	linkTo   Point
	startBox Rect
}

func newGesture(id uint64, x, y float64, at time.Time) *Gesture {
	return &Gesture{
		ID:     id,
		StartX: x,
		StartY: y,
		LastX:  x,
		LastY:  y,
		Start:  at,
		pre:    make(map[string]State),
		post:   make(map[string]State),
	}
}

// SetKind assigns the command kind the first time one is determined.
func (g *Gesture) SetKind(k CommandKind) {
	if g.Kind == "" {
		g.Kind = k
	}
}

// Track records the pre state of s the first time it is touched.
func (g *Gesture) Track(s *Shape) {
	if _, ok := g.pre[s.ID]; ok {
		return
	}
	g.order = append(g.order, s.ID)
	g.pre[s.ID] = s.snapshot()
}

// trackNew records a shape created by the gesture.
func (g *Gesture) trackNew(s *Shape) {
	if _, ok := g.pre[s.ID]; ok {
		return
	}
	g.order = append(g.order, s.ID)
	g.pre[s.ID] = State{}
}

// markRemoved fixes the post state of s to "gone" without removing it yet.
func (g *Gesture) markRemoved(s *Shape) {
	g.Track(s)
	g.post[s.ID] = State{}
}

func (g *Gesture) tracked(id string) bool {
	_, ok := g.pre[id]
	return ok
}

// changes pairs each tracked pre state with its post state. Unless fixed
// explicitly, the post state is the shape's current state.
func (g *Gesture) changes(p *Page) []Change {
	out := make([]Change, 0, len(g.order))
	for _, id := range g.order {
		post, fixed := g.post[id]
		if !fixed {
			if s, ok := p.shapes[id]; ok {
				post = s.snapshot()
			}
		}
		out = append(out, Change{ShapeID: id, Pre: g.pre[id], Post: post})
	}
	return out
}

// rollback restores every tracked shape to its pre state.
func (g *Gesture) rollback(p *Page) {
	changes := g.changes(p)
	for i := len(changes) - 1; i >= 0; i-- {
		if err := p.applyState(changes[i].ShapeID, changes[i].Pre); err != nil {
			p.log.Warn().Err(err).Str("shape", changes[i].ShapeID).Msg("gesture rollback")
		}
	}
	p.settle(changes, func(ch Change) State { return ch.Pre })
}
