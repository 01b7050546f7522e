package elsa

import "github.com/rs/zerolog"

// History is a linear command log with one cursor. Commands before the
// cursor are applied; commands after it can be redone until the next push.
type History struct {
	commands []*Command
	cursor   int
	limit    int

	batchNo   int
	lastBatch int

	page *Page
	log  zerolog.Logger
}

func NewHistory(p *Page, limit int) *History {
	return &History{page: p, limit: limit, log: zerolog.Nop()}
}

// Push records an already applied command. Any redoable tail is dropped
// first. A command sharing the open batch token and kind with the tail is
// merged into it instead of appended.
func (h *History) Push(c *Command) *Command {
	if c == nil {
		return nil
	}
	h.commands = h.commands[:h.cursor]
	if c.BatchNo != 0 && h.cursor > 0 {
		last := h.commands[h.cursor-1]
		if last.BatchNo == c.BatchNo && last.Kind == c.Kind {
			last.merge(c)
			if len(last.Changes) == 0 {
				h.commands = h.commands[:h.cursor-1]
				h.cursor--
				return nil
			}
			h.emit(last)
			return last
		}
	}
	h.commands = append(h.commands, c)
	h.cursor++
	if h.limit > 0 && len(h.commands) > h.limit {
		drop := len(h.commands) - h.limit
		h.commands = append([]*Command(nil), h.commands[drop:]...)
		h.cursor -= drop
	}
	h.log.Debug().Str("kind", string(c.Kind)).Int("shapes", len(c.Changes)).Int("cursor", h.cursor).Msg("command recorded")
	h.emit(c)
	return c
}

func (h *History) emit(c *Command) {
	if h.page != nil {
		h.page.events.emit(Event{Name: EventCommandRecorded, Command: c})
	}
}

func (h *History) CanUndo() bool { return h.cursor > 0 }

func (h *History) CanRedo() bool { return h.cursor < len(h.commands) }

// Undo reverts the command before the cursor. It reports false when there is
// nothing to undo.
func (h *History) Undo() (bool, error) {
	if !h.CanUndo() {
		return false, nil
	}
	h.ClearBatchNo()
	c := h.commands[h.cursor-1]
	if err := c.Undo(); err != nil {
		return false, err
	}
	h.cursor--
	h.log.Debug().Str("kind", string(c.Kind)).Int("cursor", h.cursor).Msg("undo")
	return true, nil
}

// Redo re-applies the command at the cursor.
func (h *History) Redo() (bool, error) {
	if !h.CanRedo() {
		return false, nil
	}
	h.ClearBatchNo()
	c := h.commands[h.cursor]
	if err := c.Execute(); err != nil {
		return false, err
	}
	h.cursor++
	h.log.Debug().Str("kind", string(c.Kind)).Int("cursor", h.cursor).Msg("redo")
	return true, nil
}

// BatchNo returns the open batch token, opening a new batch when none is.
func (h *History) BatchNo() int {
	if h.batchNo == 0 {
		h.lastBatch++
		h.batchNo = h.lastBatch
	}
	return h.batchNo
}

// ClearBatchNo closes the open batch so the next command starts a new entry.
func (h *History) ClearBatchNo() { h.batchNo = 0 }

// RemoveLastCommand drops the command just before the cursor when its kind
// matches. An empty kind matches anything. The model is left as is.
func (h *History) RemoveLastCommand(kind CommandKind) *Command {
	if h.cursor == 0 {
		return nil
	}
	c := h.commands[h.cursor-1]
	if kind != "" && c.Kind != kind {
		return nil
	}
	h.commands = append(h.commands[:h.cursor-1], h.commands[h.cursor:]...)
	h.cursor--
	return c
}

// Len is the number of commands in the log, including redoable ones.
func (h *History) Len() int { return len(h.commands) }

func (h *History) Cursor() int { return h.cursor }

// Commands returns the log in chronological order.
func (h *History) Commands() []*Command {
	return append([]*Command(nil), h.commands...)
}

// Clear empties the log.
func (h *History) Clear() {
	h.commands = nil
	h.cursor = 0
	h.batchNo = 0
}
