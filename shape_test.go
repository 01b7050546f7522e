package elsa

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateShape(t *testing.T) {
	p := newTestPage(t)

	s := mustCreate(t, p, TypeRectangle, 10, 20)
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 100, Height: 60}, s.Bounds())
	assert.Empty(t, s.Container)

	named := mustCreate(t, p, TypeRectangle, 0, 0, WithID("fixed"))
	assert.Equal(t, "fixed", named.ID)

	_, err := p.CreateShape(TypeRectangle, 0, 0, WithID("fixed"))
	assert.Error(t, err)

	_, err = p.CreateShape("hexagon", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.Equal(t, 0, p.History().Len(), "CreateShape records nothing")
}

func TestCreateShapeCopiesDataBeforeInitialize(t *testing.T) {
	p := newTestPage(t)

	s := mustCreate(t, p, TypeText, 0, 0, WithData(Record{Text: "hello\nworld!"}))
	assert.Equal(t, float64(len("world!")+2)*charWidth, s.Width)
	assert.Equal(t, 2*charHeight, s.Height)

	sized := mustCreate(t, p, TypeRectangle, 0, 0, WithData(Record{Width: 30, Height: 40}))
	assert.Equal(t, 30.0, sized.Width)
	assert.Equal(t, 40.0, sized.Height)

	img := mustCreate(t, p, TypeImage, 0, 0, WithData(Record{Fields: map[string]any{"src": "a.png", "secret": 1}}))
	assert.Equal(t, map[string]any{"src": "a.png"}, img.Fields)
}

func TestShapeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShapeLimit = 2
	p := NewPage(cfg)

	mustCreate(t, p, TypeRectangle, 0, 0)
	mustCreate(t, p, TypeRectangle, 0, 0)
	_, err := p.CreateShape(TypeRectangle, 0, 0)
	assert.ErrorIs(t, err, ErrShapeLimit)

	_, err = p.CreateShape(TypeRectangle, 0, 0, IgnoreLimit())
	assert.NoError(t, err)
}

func TestContainmentRules(t *testing.T) {
	tests := []struct {
		name      string
		container string
		child     string
		ok        bool
	}{
		{"group takes rectangle", TypeGroup, TypeRectangle, true},
		{"group takes group", TypeGroup, TypeGroup, true},
		{"group rejects field", TypeGroup, TypeField, false},
		{"class takes field", TypeClass, TypeField, true},
		{"class rejects rectangle", TypeClass, TypeRectangle, false},
		{"section takes section", TypeSection, TypeSection, true},
		{"section rejects text", TypeSection, TypeText, false},
		{"rectangle holds nothing", TypeRectangle, TypeRectangle, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPage(t)
			c := mustCreate(t, p, tt.container, 0, 0)
			_, err := p.CreateShape(tt.child, 0, 0, WithParent(c.ID))
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrChildRejected)
				assert.Empty(t, c.ChildIDs())
			}
			requireContainment(t, p)
		})
	}
}

func TestFieldNeedsClass(t *testing.T) {
	p := newTestPage(t)
	_, err := p.CreateShape(TypeField, 0, 0)
	assert.ErrorIs(t, err, ErrChildRejected)
	assert.Equal(t, 0, p.Len())
}

func TestCreateUnderMissingParent(t *testing.T) {
	p := newTestPage(t)
	_, err := p.CreateShape(TypeRectangle, 0, 0, WithParent("ghost"))
	var dangling *DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, "ghost", dangling.ID)
}

func TestRemoveContainerRemovesChildren(t *testing.T) {
	p := newTestPage(t)
	k := mustCreate(t, p, TypeGroup, 0, 0, WithData(Record{Width: 200, Height: 200}))
	a := mustCreate(t, p, TypeRectangle, 10, 10, WithParent(k.ID))

	removed := k.Remove("test")
	assert.Equal(t, []*Shape{a, k}, removed)
	assert.True(t, a.Removed())
	assert.Equal(t, 0, p.Len())

	_, err := a.GetContainer()
	var dangling *DanglingReferenceError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, k.ID, dangling.ID)

	assert.Empty(t, k.Remove("test"), "second remove is a no-op")
}

func TestRemoveTakesAttachedLines(t *testing.T) {
	p := newTestPage(t)
	a := mustCreate(t, p, TypeRectangle, 0, 0)
	b := mustCreate(t, p, TypeRectangle, 300, 0)
	line := mustCreate(t, p, TypeLine, 0, 0, WithData(Record{FromShape: a.ID, ToShape: b.ID}))

	removed := b.Remove("test")
	assert.Equal(t, []*Shape{line, b}, removed)
	_, ok := p.Shape(line.ID)
	assert.False(t, ok)
}

func TestRemoveContainerHoldingLineBetweenChildren(t *testing.T) {
	p := newTestPage(t)
	g := mustCreate(t, p, TypeGroup, 0, 0, WithData(Record{Width: 400, Height: 200}))
	a := mustCreate(t, p, TypeRectangle, 10, 10)
	b := mustCreate(t, p, TypeRectangle, 300, 10)
	line := mustCreate(t, p, TypeLine, 0, 0, WithParent(g.ID), WithData(Record{FromShape: a.ID, ToShape: b.ID}))
	require.NoError(t, p.Reparent(a, g.ID))
	require.Equal(t, []string{line.ID, a.ID}, g.ChildIDs())

	removed := g.Remove("test")
	assert.Equal(t, []*Shape{line, a, g}, removed)
	assert.Equal(t, 1, p.Len())
	_, ok := p.Shape(b.ID)
	assert.True(t, ok)
	requireContainment(t, p)
}

func TestMoveContainerMovesDescendants(t *testing.T) {
	p := newTestPage(t)
	g := mustCreate(t, p, TypeGroup, 0, 0)
	inner := mustCreate(t, p, TypeGroup, 10, 10, WithParent(g.ID), WithData(Record{Width: 80, Height: 80}))
	leaf := mustCreate(t, p, TypeRectangle, 20, 20, WithParent(inner.ID), WithData(Record{Width: 10, Height: 10}))

	g.MoveTo(50, 100)
	assert.Equal(t, Point{60, 110}, Point{inner.X, inner.Y})
	assert.Equal(t, Point{70, 120}, Point{leaf.X, leaf.Y})
}

func TestResizeClampsAndRefreshesConnectors(t *testing.T) {
	p := newTestPage(t)
	s := mustCreate(t, p, TypeRectangle, 0, 0)

	s.Resize(1, 1)
	assert.Equal(t, float64(minShapeWidth), s.Width)
	assert.Equal(t, float64(minShapeHeight), s.Height)

	s.Resize(40, 20)
	se, ok := s.Connector("se")
	require.True(t, ok)
	assert.Equal(t, 40.0, se.X)
	assert.Equal(t, 20.0, se.Y)
}

func TestLineFollowsShapes(t *testing.T) {
	p := newTestPage(t)
	a := mustCreate(t, p, TypeRectangle, 0, 0)
	b := mustCreate(t, p, TypeRectangle, 300, 0)
	line := mustCreate(t, p, TypeLine, 0, 0, WithData(Record{FromShape: a.ID, ToShape: b.ID}))

	require.Len(t, line.Points, 2)
	assert.Equal(t, Point{100, 30}, line.Points[0])
	assert.Equal(t, Point{300, 30}, line.Points[1])
	assert.False(t, line.Movable())

	b.MoveTo(300, 300)
	assert.Equal(t, Point{50, 60}, line.Points[0])
	assert.Equal(t, Point{350, 300}, line.Points[1])
}

func TestClassAutoSizesFromFields(t *testing.T) {
	p := newTestPage(t)
	rec := record(p, EventSizeChanged)
	class := mustCreate(t, p, TypeClass, 0, 0)

	f1 := mustCreate(t, p, TypeField, 0, 0, WithParent(class.ID))
	f2 := mustCreate(t, p, TypeField, 0, 0, WithParent(class.ID))

	assert.Equal(t, 48.0, class.Height)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 200, Height: 24}, f1.Bounds())
	assert.Equal(t, Rect{X: 0, Y: 24, Width: 200, Height: 24}, f2.Bounds())
	require.NotZero(t, rec.count(EventSizeChanged))

	f1.Remove("test")
	assert.Equal(t, 24.0, class.Height)
	assert.Equal(t, 0.0, f2.Y)
}

func TestNestedSectionsPropagateInOneCall(t *testing.T) {
	p := newTestPage(t)
	top := mustCreate(t, p, TypeSection, 0, 0)
	mid := mustCreate(t, p, TypeSection, 0, 0, WithParent(top.ID))
	leaf := mustCreate(t, p, TypeSection, 0, 0, WithParent(mid.ID))

	// an empty section is its padding plus the minimum height
	empty := float64(minShapeHeight) + 2*sectionPadding
	require.Equal(t, empty, leaf.Height)
	require.Equal(t, empty+2*sectionPadding, mid.Height)
	require.Equal(t, mid.Height+2*sectionPadding, top.Height)

	var deltas []float64
	p.Events().Subscribe(EventSizeChanged, func(ev Event) {
		deltas = append(deltas, ev.DeltaHeight)
	})
	before := top.Height
	mustCreate(t, p, TypeSection, 0, 0, WithParent(leaf.ID))

	const grow = 16.0
	assert.Equal(t, before+grow, top.Height)
	assert.Equal(t, []float64{grow, grow, grow}, deltas, "leaf, mid and top each report once")
	assert.Equal(t, leaf.Y+leaf.Height+sectionPadding, mid.Y+mid.Height)
	requireContainment(t, p)
}

func TestTopLevelSectionIsNotDeletable(t *testing.T) {
	p := newTestPage(t)
	top := mustCreate(t, p, TypeSection, 0, 0)
	child := mustCreate(t, p, TypeSection, 0, 0, WithParent(top.ID))

	assert.False(t, top.Deletable())
	assert.True(t, child.Deletable())

	assert.Nil(t, p.DeleteShapes(KindDeleteShape, []*Shape{top}))
	assert.Equal(t, 2, p.Len())
}

func TestReparentRejectsCycles(t *testing.T) {
	p := newTestPage(t)
	outer := mustCreate(t, p, TypeGroup, 0, 0)
	inner := mustCreate(t, p, TypeGroup, 0, 0, WithParent(outer.ID))

	err := p.Reparent(outer, inner.ID)
	assert.ErrorIs(t, err, ErrChildRejected)
	requireContainment(t, p)

	free := mustCreate(t, p, TypeRectangle, 0, 0)
	require.NoError(t, p.Reparent(free, inner.ID))
	assert.Equal(t, inner.ID, free.Container)
	requireContainment(t, p)
}

func TestSelection(t *testing.T) {
	p := newTestPage(t)
	rec := record(p, EventFocusChanged)
	a := mustCreate(t, p, TypeRectangle, 0, 0)
	b := mustCreate(t, p, TypeRectangle, 200, 0)

	a.Select()
	b.Select()
	a.Select()
	assert.Equal(t, []*Shape{a, b}, p.GetFocusedShapes())

	p.Focus(b)
	assert.Equal(t, []*Shape{b}, p.GetFocusedShapes())
	assert.False(t, a.IsSelected())

	b.Remove("test")
	assert.Empty(t, p.GetFocusedShapes())
	assert.Equal(t, 6, rec.count(EventFocusChanged))
}

func TestShapesRenderOrder(t *testing.T) {
	p := newTestPage(t)
	g := mustCreate(t, p, TypeGroup, 0, 0)
	a := mustCreate(t, p, TypeRectangle, 0, 0, WithParent(g.ID))
	b := mustCreate(t, p, TypeRectangle, 0, 0)

	assert.Equal(t, []*Shape{g, a, b}, p.Shapes())
	assert.Equal(t, b, p.ShapeAt(10, 10, nil))
	assert.Equal(t, a, p.ShapeAt(10, 10, func(s *Shape) bool { return s != b }))
}

func TestBusSubscriptionRemove(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub := bus.Subscribe(EventInvalidate, func(Event) { calls++ })
	bus.emit(Event{Name: EventInvalidate})
	sub.Remove()
	sub.Remove()
	bus.emit(Event{Name: EventInvalidate})
	assert.Equal(t, 1, calls)
}
