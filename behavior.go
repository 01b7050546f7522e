package elsa

import (
	"fmt"
	"sort"
	"strings"
)

// Behavior is the per-type policy of a shape. Concrete types embed Base and
// override what differs.
type Behavior interface {
	Type() string
	IsContainer() bool
	Movable(s *Shape) bool
	Resizable(s *Shape) bool
	Deletable(s *Shape) bool
	Selectable(s *Shape) bool
	Copyable(s *Shape) bool
	Linkable(s *Shape) bool
	// RootAllowed reports whether the type may live directly on the page.
	RootAllowed() bool
	// DefaultContainer names the container type created to host a pasted
	// root of this type when it cannot live where it lands.
	DefaultContainer() string
	ChildAllowed(c, child *Shape) bool
	// Arrange docks children and returns the container's derived size. ok is
	// false when the container does not auto-size.
	Arrange(c *Shape, children []*Shape) (w, h float64, ok bool)
	Initialize(s *Shape)
	SerializedFields() []string
}

// PasteHandler is implemented by behaviours that take over pasting of the
// internal shape format while one of their shapes is focused.
type PasteHandler interface {
	HandlePaste(s *Shape, payload *Payload) bool
}

// Base is the default behaviour: everything allowed, nothing contained.
type Base struct {
	Name   string
	Fields []string
}

func (b Base) Type() string                                      { return b.Name }
func (b Base) IsContainer() bool                                 { return false }
func (b Base) Movable(*Shape) bool                               { return true }
func (b Base) Resizable(*Shape) bool                             { return true }
func (b Base) Deletable(*Shape) bool                             { return true }
func (b Base) Selectable(*Shape) bool                            { return true }
func (b Base) Copyable(*Shape) bool                              { return true }
func (b Base) Linkable(*Shape) bool                              { return true }
func (b Base) RootAllowed() bool                                 { return true }
func (b Base) DefaultContainer() string                          { return "" }
func (b Base) ChildAllowed(*Shape, *Shape) bool                  { return false }
func (b Base) Arrange(*Shape, []*Shape) (float64, float64, bool) { return 0, 0, false }
func (b Base) SerializedFields() []string                        { return b.Fields }

func (b Base) Initialize(s *Shape) {
	if s.Width <= 0 {
		s.Width = 100
	}
	if s.Height <= 0 {
		s.Height = 60
	}
}

type textBehavior struct{ Base }

// Initialize sizes the shape from its longest line.
func (textBehavior) Initialize(s *Shape) {
	lines := strings.Split(s.Text, "\n")
	if s.Width <= 0 {
		width := float64(minShapeWidth)
		for _, line := range lines {
			if w := float64(len(line)+2) * charWidth; w > width {
				width = w
			}
		}
		s.Width = width
	}
	if s.Height <= 0 {
		s.Height = float64(len(lines)) * charHeight
	}
}

type lineBehavior struct{ Base }

func (lineBehavior) Resizable(*Shape) bool { return false }
func (lineBehavior) Linkable(*Shape) bool  { return false }

// Movable is false once either end is attached; the line follows its shapes.
func (lineBehavior) Movable(s *Shape) bool {
	return s.FromShape == "" && s.ToShape == ""
}

func (lineBehavior) Initialize(s *Shape) {
	if len(s.Points) == 0 {
		s.Points = []Point{{s.X, s.Y}, {s.X + s.Width, s.Y + s.Height}}
	}
	s.fitPoints()
}

type freeLineBehavior struct{ Base }

func (freeLineBehavior) Resizable(*Shape) bool { return false }
func (freeLineBehavior) Linkable(*Shape) bool  { return false }

func (freeLineBehavior) Initialize(s *Shape) {
	if len(s.Points) == 0 {
		s.Points = []Point{{s.X, s.Y}}
	}
	s.fitPoints()
}

type imageBehavior struct{ Base }

type tableBehavior struct{ Base }

func (tableBehavior) Initialize(s *Shape) {
	rows := tableRows(s.Fields["rows"])
	cols := 0
	for _, r := range rows {
		cols = max(cols, len(r))
	}
	if s.Width <= 0 {
		s.Width = float64(max(cols, 1)) * 80
	}
	if s.Height <= 0 {
		s.Height = float64(max(len(rows), 1)) * 24
	}
}

type fieldBehavior struct{ Base }

func (fieldBehavior) RootAllowed() bool        { return false }
func (fieldBehavior) DefaultContainer() string { return TypeClass }

func (fieldBehavior) Initialize(s *Shape) {
	if s.Width <= 0 {
		s.Width = 160
	}
	if s.Height <= 0 {
		s.Height = 24
	}
}

// ContainerBehavior adds child ownership to Base. Allow decides containment;
// Dock stacks children vertically and AutoSize derives the height from them.
type ContainerBehavior struct {
	Base
	Allow    func(child *Shape) bool
	Dock     bool
	AutoSize bool
	Padding  float64
	// TopLevelFixed makes a root-level instance undeletable.
	TopLevelFixed bool
}

func (c ContainerBehavior) IsContainer() bool { return true }

func (c ContainerBehavior) ChildAllowed(_ *Shape, child *Shape) bool {
	if child == nil {
		return false
	}
	if c.Allow == nil {
		return true
	}
	return c.Allow(child)
}

func (c ContainerBehavior) Deletable(s *Shape) bool {
	return !(c.TopLevelFixed && s.Container == "")
}

func (c ContainerBehavior) Arrange(s *Shape, children []*Shape) (float64, float64, bool) {
	if !c.Dock && !c.AutoSize {
		return 0, 0, false
	}
	pad := c.Padding
	y := s.Y + pad
	width := s.Width
	for _, child := range children {
		if c.Dock {
			child.setGeometry(s.X+pad, y, s.Width-2*pad, child.Height)
		} else {
			width = max(width, child.X+child.Width-s.X+pad)
		}
		y += child.Height + pad
	}
	if !c.AutoSize {
		return s.Width, s.Height, true
	}
	return width, max(y-s.Y, float64(minShapeHeight)+2*pad), true
}

func (c ContainerBehavior) Initialize(s *Shape) {
	if s.Width <= 0 {
		s.Width = 200
	}
	if s.Height <= 0 {
		s.Height = 200
	}
}

// Kinds maps type names to behaviours.
type Kinds struct {
	byType map[string]Behavior
}

// DefaultKinds returns the built-in shape types.
func DefaultKinds() *Kinds {
	k := &Kinds{byType: make(map[string]Behavior)}
	k.Register(Base{Name: TypeRectangle})
	k.Register(textBehavior{Base{Name: TypeText}})
	k.Register(imageBehavior{Base{Name: TypeImage, Fields: []string{"src", "mime"}}})
	k.Register(tableBehavior{Base{Name: TypeTable, Fields: []string{"rows"}}})
	k.Register(lineBehavior{Base{Name: TypeLine, Fields: []string{"arrow"}}})
	k.Register(freeLineBehavior{Base{Name: TypeFreeLine, Fields: []string{"stroke"}}})
	k.Register(fieldBehavior{Base{Name: TypeField}})
	k.Register(ContainerBehavior{
		Base:  Base{Name: TypeGroup},
		Allow: func(child *Shape) bool { return child.Type != TypeSection && child.Type != TypeField },
	})
	k.Register(ContainerBehavior{
		Base:     Base{Name: TypeClass},
		Allow:    func(child *Shape) bool { return child.Type == TypeField },
		Dock:     true,
		AutoSize: true,
	})
	k.Register(ContainerBehavior{
		Base:          Base{Name: TypeSection, Fields: []string{"title"}},
		Allow:         func(child *Shape) bool { return child.Type == TypeSection },
		Dock:          true,
		AutoSize:      true,
		Padding:       sectionPadding,
		TopLevelFixed: true,
	})
	return k
}

func (k *Kinds) Register(b Behavior) {
	k.byType[b.Type()] = b
}

func (k *Kinds) Lookup(typ string) (Behavior, error) {
	b, ok := k.byType[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return b, nil
}

func (k *Kinds) Types() []string {
	out := make([]string, 0, len(k.byType))
	for t := range k.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
