package elsa

// EventName identifies an engine event the view layer can subscribe to.
type EventName string

const (
	EventShapeAdded      EventName = "shapeAdded"
	EventShapeRemoved    EventName = "shapeRemoved"
	EventShapeMoved      EventName = "shapeMoved"
	EventShapeResized    EventName = "shapeResized"
	EventSizeChanged     EventName = "sizeChanged"
	EventFocusChanged    EventName = "focusChanged"
	EventClick           EventName = "click"
	EventLongClick       EventName = "longClick"
	EventInvalidate      EventName = "invalidate"
	EventCommandRecorded EventName = "commandRecorded"
)

// Event payloads carry shape references, never device events.
type Event struct {
	Name    EventName
	Shapes  []*Shape
	Command *Command
	Point   Point
	Source  string

	// Set for EventSizeChanged.
	DeltaHeight float64
	NewWidth    float64
}

type eventHandler struct {
	id uint32
	fn func(Event)
}

// Bus dispatches events synchronously in subscription order.
type Bus struct {
	handlers map[EventName][]eventHandler
	nextID   uint32
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[EventName][]eventHandler)}
}

// Subscription removes a handler registered with Subscribe.
type Subscription struct {
	bus  *Bus
	name EventName
	id   uint32
}

func (b *Bus) Subscribe(name EventName, fn func(Event)) Subscription {
	b.nextID++
	b.handlers[name] = append(b.handlers[name], eventHandler{id: b.nextID, fn: fn})
	return Subscription{bus: b, name: name, id: b.nextID}
}

// Remove unregisters the handler. Removing twice is a no-op.
func (s Subscription) Remove() {
	if s.bus == nil {
		return
	}
	hs := s.bus.handlers[s.name]
	for i := range hs {
		if hs[i].id == s.id {
			copy(hs[i:], hs[i+1:])
			hs[len(hs)-1] = eventHandler{}
			s.bus.handlers[s.name] = hs[:len(hs)-1]
			return
		}
	}
}

func (b *Bus) emit(ev Event) {
	if b == nil {
		return
	}
	hs := b.handlers[ev.Name]
	if len(hs) == 0 {
		return
	}
	// handlers may unsubscribe while running
	snapshot := append([]eventHandler(nil), hs...)
	for _, h := range snapshot {
		h.fn(ev)
	}
}
