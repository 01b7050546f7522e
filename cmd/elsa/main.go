package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"elsa"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

func main() {
	cfgPath := elsa.DefaultConfigPath()
	cfg, err := elsa.LoadConfig(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	// the terminal belongs to the UI, so only log when a file is configured
	logger, closeLog, err := elsa.NewLogger(cfg, io.Discard)
	if err != nil {
		log.Fatal(err)
	}
	defer closeLog()

	filename := "untitled.json"
	if len(os.Args) > 1 {
		filename = os.Args[1]
	}

	var prog *tea.Program
	sched := elsa.TimerScheduler{Post: func(f func()) { prog.Send(runMsg(f)) }}
	m := newModel(cfg, logger, sched, filename)
	prog = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		err := elsa.WatchConfig(ctx, cfgPath,
			func(c *elsa.Config) { prog.Send(configMsg{c}) },
			func(err error) { logger.Warn().Err(err).Msg("config reload") })
		if err != nil {
			logger.Warn().Err(err).Msg("config watch disabled")
		}
	}()

	if _, err := prog.Run(); err != nil {
		log.Fatal(err)
	}
}

// runMsg carries a scheduler callback onto the UI loop.
type runMsg func()

type configMsg struct{ cfg *elsa.Config }

type model struct {
	editor   *elsa.Editor
	registry *elsa.Registry
	system   elsa.ClipboardData
	cfg      *elsa.Config
	log      zerolog.Logger

	filename      string
	width, height int
	mouseX        int
	mouseY        int
	status        string
	failed        bool
}

func newModel(cfg *elsa.Config, logger zerolog.Logger, sched elsa.Scheduler, filename string) *model {
	m := &model{
		editor:   elsa.NewEditor(cfg, logger, sched),
		registry: &elsa.Registry{},
		system:   elsa.NewSystemClipboard(),
		cfg:      cfg,
		log:      logger,
		filename: filename,
	}
	m.registry.AttachCopyPaste(m.editor)
	m.editor.Pointer.Viewport = elsa.Viewport{Zoom: 1}

	if path := cfg.GetSavePath(filename); fileExists(path) {
		if err := m.editor.Page.LoadFromFile(path); err != nil {
			m.fail(err)
		} else {
			m.status = "Opened " + path
		}
	}

	events := m.editor.Page.Events()
	events.Subscribe(elsa.EventLongClick, func(ev elsa.Event) {
		if len(ev.Shapes) > 0 {
			m.status = fmt.Sprintf("Long press on %s", ev.Shapes[0].Type)
		} else {
			m.status = "Long press"
		}
	})
	events.Subscribe(elsa.EventCommandRecorded, func(ev elsa.Event) {
		m.status = fmt.Sprintf("%s (%d shapes)", ev.Command.Kind, len(ev.Command.Changes))
		m.failed = false
	})
	return m
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (m *model) fail(err error) {
	m.status = err.Error()
	m.failed = true
	m.log.Error().Err(err).Msg("command failed")
}

func (m *model) Init() tea.Cmd {
	return nil
}

// pointerEvent converts a terminal cell into the client pixel at its centre.
func (m *model) pointerEvent(t elsa.PointerEventType, msg tea.MouseMsg) elsa.PointerEvent {
	m.mouseX, m.mouseY = msg.X, msg.Y
	return elsa.PointerEvent{
		Type:    t,
		ClientX: float64(msg.X)*cellWidth + cellWidth/2,
		ClientY: float64(msg.Y)*cellHeight + cellHeight/2,
		Time:    time.Now(),
		Shift:   msg.Shift,
	}
}

// pagePoint is the page position under the last mouse cell.
func (m *model) pagePoint() (float64, float64) {
	v := m.editor.Pointer.Viewport
	return v.ToPage(float64(m.mouseX)*cellWidth, float64(m.mouseY)*cellHeight)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	page := m.editor.Page
	pointer := m.editor.Pointer

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case runMsg:
		msg()
		return m, nil

	case configMsg:
		*m.cfg = *msg.cfg
		m.status = "Config reloaded"
		return m, nil

	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseLeft:
			if pointer.State() == elsa.StateIdle {
				pointer.Handle(m.pointerEvent(elsa.PointerDown, msg))
			} else {
				pointer.Handle(m.pointerEvent(elsa.PointerMove, msg))
			}
		case tea.MouseMotion:
			pointer.Handle(m.pointerEvent(elsa.PointerMove, msg))
		case tea.MouseRelease:
			pointer.Handle(m.pointerEvent(elsa.PointerUp, msg))
		case tea.MouseWheelUp:
			pointer.Viewport.Pan(0, -cellHeight*3)
		case tea.MouseWheelDown:
			pointer.Viewport.Pan(0, cellHeight*3)
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "down", "left", "right":
		default:
			page.History().ClearBatchNo()
		}

		switch key {
		case "ctrl+c", "q":
			m.registry.DetachCopyPaste(m.editor)
			return m, tea.Quit
		case "esc":
			pointer.Handle(elsa.PointerEvent{Type: elsa.PointerCancel})
			page.ClearFocus()
		case "u":
			if ok, err := page.History().Undo(); err != nil {
				m.fail(err)
			} else if !ok {
				m.status = "Nothing to undo"
			}
		case "U":
			if ok, err := page.History().Redo(); err != nil {
				m.fail(err)
			} else if !ok {
				m.status = "Nothing to redo"
			}
		case "c":
			m.clipboard("Copied", m.registry.Copy)
		case "x":
			m.clipboard("Cut", m.registry.Cut)
		case "p":
			m.clipboard("Pasted", m.registry.Paste)
		case "b":
			m.add(elsa.TypeRectangle, elsa.Record{})
		case "t":
			m.add(elsa.TypeText, elsa.Record{Text: "text"})
		case "g":
			m.add(elsa.TypeGroup, elsa.Record{})
		case "a":
			m.add(elsa.TypeClass, elsa.Record{Text: "Class"})
		case "f":
			m.addField()
		case "d", "delete", "backspace":
			page.DeleteShapes(elsa.KindDeleteShape, page.GetFocusedShapes())
		case "1":
			pointer.SetTool(elsa.ToolSelect)
		case "2":
			pointer.SetTool(elsa.ToolFreeLine)
		case "3":
			pointer.SetTool(elsa.ToolEraser)
		case "up":
			page.Nudge(0, -cellHeight)
		case "down":
			page.Nudge(0, cellHeight)
		case "left":
			page.Nudge(-cellWidth, 0)
		case "right":
			page.Nudge(cellWidth, 0)
		case "H":
			pointer.Viewport.Pan(-cellWidth*4, 0)
		case "L":
			pointer.Viewport.Pan(cellWidth*4, 0)
		case "K":
			pointer.Viewport.Pan(0, -cellHeight*2)
		case "J":
			pointer.Viewport.Pan(0, cellHeight*2)
		case "s":
			path := m.cfg.GetSavePath(m.filename)
			if err := page.SaveToFile(path); err != nil {
				m.fail(err)
			} else {
				m.status = "Saved " + path
			}
		case "e":
			path := m.cfg.GetSavePath(strings.TrimSuffix(m.filename, filepath.Ext(m.filename)) + ".png")
			if err := page.ExportPNG(path); err != nil {
				m.fail(err)
			} else {
				m.status = "Exported " + path
			}
		}
	}
	return m, nil
}

func (m *model) clipboard(done string, op func(elsa.ClipboardData) (bool, error)) {
	handled, err := op(m.system)
	switch {
	case err != nil:
		m.fail(err)
	case handled:
		m.status = done
	}
}

func (m *model) add(typ string, data elsa.Record) {
	x, y := m.pagePoint()
	if _, err := m.editor.Page.AddShape(typ, x, y, elsa.WithData(data)); err != nil {
		m.fail(err)
	}
}

// addField appends a field to the focused class.
func (m *model) addField() {
	page := m.editor.Page
	for _, s := range page.GetFocusedShapes() {
		if s.Type != elsa.TypeClass {
			continue
		}
		if _, err := page.AddShape(elsa.TypeField, s.X, s.Y+s.Height, elsa.WithParent(s.ID), elsa.WithData(elsa.Record{Text: "field"})); err != nil {
			m.fail(err)
		}
		return
	}
	m.status = "Select a class first"
}

var (
	statusStyle = lipgloss.NewStyle().Background(lipgloss.Color("236")).Foreground(lipgloss.Color("255"))
	errorStyle  = lipgloss.NewStyle().Background(lipgloss.Color("52")).Foreground(lipgloss.Color("255"))
	toolStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

func (m *model) View() string {
	w, h := max(m.width, 1), max(m.height-1, 1)
	canvas := render(m.editor.Page, m.editor.Pointer.Viewport, w, h)

	hist := m.editor.Page.History()
	left := fmt.Sprintf(" %s  %s  %d shapes  history %d/%d ",
		toolStyle.Render(m.editor.Pointer.Tool().String()),
		m.filename, m.editor.Page.Len(), hist.Cursor(), hist.Len())
	style := statusStyle
	if m.failed {
		style = errorStyle
	}
	line := style.Width(w).Render(left + m.status)
	return canvas.String() + "\n" + line
}
