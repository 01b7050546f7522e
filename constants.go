package elsa

import "time"

// CommandKind names one undoable unit.
type CommandKind string

const (
	KindPosition       CommandKind = "position"
	KindResize         CommandKind = "resize"
	KindAddShape       CommandKind = "addShape"
	KindEraser         CommandKind = "eraser"
	KindUpdateFreeLine CommandKind = "updateFreeLine"
	KindDeleteShape    CommandKind = "deleteShape"
	KindText           CommandKind = "text"
)

// Tool is the active drawing tool of an interaction pipeline.
type Tool int

const (
	ToolSelect Tool = iota
	ToolFreeLine
	ToolEraser
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolFreeLine:
		return "freeLine"
	case ToolEraser:
		return "eraser"
	default:
		return "unknown"
	}
}

// PointerState is the per-pointer interaction state.
type PointerState int

const (
	StateIdle PointerState = iota
	StateDown
	StateDragging
)

func (s PointerState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateDown:
		return "DOWN"
	case StateDragging:
		return "DRAGGING"
	default:
		return "UNKNOWN"
	}
}

// PointerEventType classifies device input after normalisation.
type PointerEventType int

const (
	PointerDown PointerEventType = iota
	PointerMove
	PointerUp
	PointerCancel
	PointerLeave
)

// Built-in shape types.
const (
	TypeRectangle = "rectangle"
	TypeText      = "text"
	TypeImage     = "image"
	TypeTable     = "table"
	TypeLine      = "line"
	TypeFreeLine  = "freeLine"
	TypeGroup     = "group"
	TypeClass     = "class"
	TypeField     = "field"
	TypeSection   = "section"
)

// Clipboard format tags in dispatch priority order.
const (
	FormatShapes = "application/x-elsa-shapes"
	FormatGrid   = "text/html"
	FormatText   = "text/plain"
	FormatImage  = "image/png"
)

const (
	defaultLongPress       = 750 * time.Millisecond
	defaultClickThreshold  = 100 * time.Millisecond
	defaultMoveThreshold   = 4.0
	defaultHandleTolerance = 4.0
	defaultPasteOffset     = 10.0
	defaultHistoryLimit    = 200
	defaultShapeLimit      = 5000

	dueQueueSize = 16

	minShapeWidth  = 8
	minShapeHeight = 8

	sectionPadding = 8
)
