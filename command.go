package elsa

import "fmt"

// Command is one undoable unit: a kind and the pre/post state of every shape
// it touched.
type Command struct {
	Kind    CommandKind
	Changes []Change
	BatchNo int

	page *Page
}

// ShapeIDs lists the affected shapes in change order.
func (c *Command) ShapeIDs() []string {
	ids := make([]string, len(c.Changes))
	for i, ch := range c.Changes {
		ids[i] = ch.ShapeID
	}
	return ids
}

// Execute applies the post state in change order. Applying it while already
// in the post state changes nothing.
func (c *Command) Execute() error {
	for _, ch := range c.Changes {
		if err := c.page.applyState(ch.ShapeID, ch.Post); err != nil {
			return fmt.Errorf("%s: apply %s: %w", c.Kind, ch.ShapeID, err)
		}
	}
	c.page.settle(c.Changes, func(ch Change) State { return ch.Post })
	return nil
}

// Undo applies the pre state in reverse change order.
func (c *Command) Undo() error {
	for i := len(c.Changes) - 1; i >= 0; i-- {
		ch := c.Changes[i]
		if err := c.page.applyState(ch.ShapeID, ch.Pre); err != nil {
			return fmt.Errorf("undo %s: apply %s: %w", c.Kind, ch.ShapeID, err)
		}
	}
	c.page.settle(c.Changes, func(ch Change) State { return ch.Pre })
	return nil
}

// merge folds a later command of the same batch into c, keeping the earliest
// pre state and the latest post state per shape.
func (c *Command) merge(next *Command) {
	for _, ch := range next.Changes {
		found := false
		for i := range c.Changes {
			if c.Changes[i].ShapeID == ch.ShapeID {
				c.Changes[i].Post = ch.Post
				found = true
				break
			}
		}
		if !found {
			c.Changes = append(c.Changes, ch)
		}
	}
	kept := c.Changes[:0]
	for _, ch := range c.Changes {
		if ch.changed() {
			kept = append(kept, ch)
		}
	}
	c.Changes = kept
}

// buildCommand keeps only effective changes. It returns nil when nothing
// changed.
func (p *Page) buildCommand(kind CommandKind, changes []Change) *Command {
	var kept []Change
	for _, ch := range changes {
		if ch.changed() {
			kept = append(kept, ch)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return &Command{Kind: kind, Changes: kept, page: p}
}

// RecordCommand pushes a command for the effective changes. Nothing is
// recorded, and nil returned, when every pre state equals its post state.
func (p *Page) RecordCommand(kind CommandKind, changes []Change) *Command {
	cmd := p.buildCommand(kind, changes)
	if cmd == nil {
		return nil
	}
	cmd.BatchNo = p.history.batchNo
	return p.history.Push(cmd)
}

// applyState makes the shape match st, creating or removing it as needed.
func (p *Page) applyState(id string, st State) error {
	s, exists := p.shapes[id]
	if !st.Exists {
		if exists {
			s.Remove("history")
		}
		return nil
	}
	if !exists {
		rec := st.Record
		_, err := p.CreateShape(rec.Type, rec.X, rec.Y,
			WithID(id), WithData(rec), WithParent(st.Container), atIndex(st.Index), IgnoreLimit())
		return err
	}
	if s.Container != st.Container {
		if err := p.Reparent(s, st.Container); err != nil {
			return err
		}
	}
	if idx := p.indexOf(s); st.Index >= 0 && idx != st.Index {
		p.detach(s)
		p.attach(s, s.parent(), st.Index)
	}
	s.Text = st.Text
	if st.Points != nil {
		s.Points = append([]Point(nil), st.Points...)
	}
	moved := s.X != st.X || s.Y != st.Y
	resized := s.Width != st.Width || s.Height != st.Height
	s.X, s.Y, s.Width, s.Height = st.X, st.Y, st.Width, st.Height
	s.refresh()
	if moved {
		p.events.emit(Event{Name: EventShapeMoved, Shapes: []*Shape{s}, Source: "history"})
	}
	if resized {
		p.events.emit(Event{Name: EventShapeResized, Shapes: []*Shape{s}, Source: "history"})
	}
	return nil
}

// settle relayouts the containers touched by a command and asks the view to
// redraw.
func (p *Page) settle(changes []Change, state func(Change) State) {
	var shapes []*Shape
	done := make(map[string]bool)
	for _, ch := range changes {
		if s, ok := p.shapes[ch.ShapeID]; ok {
			shapes = append(shapes, s)
			if s.IsContainer() && !done[s.ID] {
				done[s.ID] = true
				p.relayout(s)
			}
		}
		if c := state(ch).Container; c != "" && !done[c] {
			done[c] = true
			if parent, ok := p.shapes[c]; ok {
				p.relayout(parent)
			}
		}
	}
	p.events.emit(Event{Name: EventInvalidate, Shapes: shapes})
}
