package elsa

import (
	"sync"

	"github.com/rs/zerolog"
)

// Editor bundles one page with its interaction pipeline and clipboard.
type Editor struct {
	Page      *Page
	Pointer   *Interaction
	Clipboard *Clipboard
}

// NewEditor wires a fresh page. A nil scheduler parks long-press callbacks
// in a QueueScheduler for the caller to run.
func NewEditor(cfg *Config, log zerolog.Logger, sched Scheduler) *Editor {
	p := NewPage(cfg)
	p.SetLogger(log)
	return &Editor{
		Page:      p,
		Pointer:   NewInteraction(p, sched),
		Clipboard: NewClipboard(p),
	}
}

// Registry routes host clipboard events to exactly one editor, the one that
// last attached.
type Registry struct {
	mu     sync.Mutex
	active *Editor
}

func (r *Registry) AttachCopyPaste(e *Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = e
}

// DetachCopyPaste releases e. Detaching an editor that is not active does
// nothing.
func (r *Registry) DetachCopyPaste(e *Editor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == e {
		r.active = nil
	}
}

func (r *Registry) Active() *Editor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Copy writes the active editor's selection to data. It reports whether an
// editor handled the event.
func (r *Registry) Copy(data ClipboardData) (bool, error) {
	e := r.Active()
	if e == nil {
		return false, nil
	}
	shapes := e.Page.GetFocusedShapes()
	if len(shapes) == 0 {
		return true, nil
	}
	return true, e.Clipboard.WriteTo(data, e.Clipboard.Copy(shapes))
}

// Cut is Copy followed by deleting the selection as one command.
func (r *Registry) Cut(data ClipboardData) (bool, error) {
	e := r.Active()
	if e == nil {
		return false, nil
	}
	shapes := e.Page.GetFocusedShapes()
	if len(shapes) == 0 {
		return true, nil
	}
	_, err := e.Clipboard.Cut(data, shapes)
	return true, err
}

func (r *Registry) Paste(data ClipboardData) (bool, error) {
	e := r.Active()
	if e == nil {
		return false, nil
	}
	_, err := e.Clipboard.HandlePaste(data)
	return true, err
}
