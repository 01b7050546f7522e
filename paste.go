package elsa

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Clipboard converts between shapes of one page and clipboard formats.
type Clipboard struct {
	page *Page
	log  zerolog.Logger
}

func NewClipboard(p *Page) *Clipboard {
	return &Clipboard{page: p, log: p.log.With().Str("component", "clipboard").Logger()}
}

// Copy serializes shapes with their descendants. Shapes that are not
// copyable are left out together with their subtrees. Lines are included
// when both of their ends are.
func (c *Clipboard) Copy(shapes []*Shape) *Payload {
	session := uuid.NewString()
	payload := &Payload{Type: FormatShapes, Session: session}
	seen := make(map[string]bool)
	var add func(s *Shape)
	add = func(s *Shape) {
		if seen[s.ID] || s.removed || !s.Copyable() {
			return
		}
		seen[s.ID] = true
		r := s.Record()
		r.PasteSession = session
		payload.Data = append(payload.Data, r)
		for _, ch := range s.Children() {
			add(ch)
		}
	}
	for _, s := range shapes {
		add(s)
	}
	for _, r := range payload.Data {
		for _, line := range c.page.attachedLines(r.ID) {
			if seen[line.FromShape] && seen[line.ToShape] {
				add(line)
			}
		}
	}
	payload.Data = sortContainerFirst(payload.Data)
	return payload
}

// WriteTo puts the payload on data in every format: the rendered image, the
// plain text of the shapes and the internal format.
func (c *Clipboard) WriteTo(data ClipboardData, payload *Payload) error {
	var shapes []*Shape
	var texts []string
	for _, r := range payload.Data {
		if s, ok := c.page.shapes[r.ID]; ok {
			shapes = append(shapes, s)
		}
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	var png bytes.Buffer
	if err := RenderPNG(&png, shapes); err == nil {
		if err := data.SetData(FormatImage, png.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", FormatImage, err)
		}
	} else if !errors.Is(err, ErrNothingToExport) {
		c.log.Warn().Err(err).Msg("image format skipped")
	}
	if len(texts) > 0 {
		if err := data.SetData(FormatText, []byte(strings.Join(texts, "\n"))); err != nil {
			return fmt.Errorf("write %s: %w", FormatText, err)
		}
	}
	raw, err := payload.Encode()
	if err != nil {
		return err
	}
	if err := data.SetData(FormatShapes, raw); err != nil {
		return fmt.Errorf("write %s: %w", FormatShapes, err)
	}
	return nil
}

// Cut writes shapes to data and deletes them as one deleteShape command.
// Nothing is deleted when writing fails.
func (c *Clipboard) Cut(data ClipboardData, shapes []*Shape) (*Payload, error) {
	payload := c.Copy(shapes)
	if err := c.WriteTo(data, payload); err != nil {
		return nil, err
	}
	c.page.DeleteShapes(KindDeleteShape, shapes)
	return payload, nil
}

// sortContainerFirst orders records so every container precedes its
// children. It walks from the roots, records whose container is not part of
// the payload, appending each record's children after it.
func sortContainerFirst(records []Record) []Record {
	ids := make(map[string]bool, len(records))
	for _, r := range records {
		ids[r.ID] = true
	}
	children := make(map[string][]int)
	var roots []int
	for i, r := range records {
		if r.Container != "" && r.Container != r.ID && ids[r.Container] {
			children[r.Container] = append(children[r.Container], i)
		} else {
			roots = append(roots, i)
		}
	}
	out := make([]Record, 0, len(records))
	done := make(map[string]bool, len(records))
	var walk func(i int)
	walk = func(i int) {
		r := records[i]
		if done[r.ID] {
			return
		}
		done[r.ID] = true
		out = append(out, r)
		for _, ci := range children[r.ID] {
			walk(ci)
		}
	}
	for _, i := range roots {
		walk(i)
	}
	return out
}

// Paste inserts the payload shifted by the configured paste offset.
func (c *Clipboard) Paste(payload *Payload, hint *Shape) ([]*Shape, error) {
	off := c.page.cfg.PasteOffset
	return c.paste(payload, hint, off, off)
}

// PasteAt inserts the payload so that its top-left corner lands on x, y.
func (c *Clipboard) PasteAt(payload *Payload, hint *Shape, x, y float64) ([]*Shape, error) {
	if len(payload.Data) == 0 {
		return nil, nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, r := range payload.Data {
		minX, minY = min(minX, r.X), min(minY, r.Y)
	}
	return c.paste(payload, hint, x-minX, y-minY)
}

func (c *Clipboard) paste(payload *Payload, hint *Shape, dx, dy float64) ([]*Shape, error) {
	p := c.page
	records := sortContainerFirst(payload.Data)
	if len(records) == 0 {
		return nil, nil
	}

	// assign ids first so every reference can be rewritten in one pass
	ids := make(map[string]string, len(records))
	shared := make(map[string]bool)
	skip := make(map[string]bool)
	for _, r := range records {
		if r.Shared || shared[r.Container] {
			shared[r.ID] = true
			ids[r.ID] = r.ID
			if _, exists := p.shapes[r.ID]; exists {
				skip[r.ID] = true
			}
			continue
		}
		ids[r.ID] = p.newID()
	}
	resolve := func(ref string) string {
		if ref == "" {
			return ""
		}
		if id, ok := ids[ref]; ok {
			return id
		}
		if _, ok := p.shapes[ref]; ok {
			return ref
		}
		return ""
	}

	session := uuid.NewString()
	wrappers := make(map[string]string)
	var created []*Shape
	for _, r := range records {
		if skip[r.ID] {
			continue
		}
		rec := r.clone()
		rec.ID = ids[r.ID]
		rec.Shared = shared[r.ID]
		rec.PasteSession = session
		rec.FromShape = resolve(r.FromShape)
		rec.ToShape = resolve(r.ToShape)
		rec.Container = ""

		parent, err := c.parentFor(r, ids, hint, wrappers, dx, dy, &created)
		if err != nil {
			c.log.Warn().Err(err).Str("shape", r.ID).Msg("record not pasted")
			continue
		}
		s, err := p.CreateShape(rec.Type, r.X+dx, r.Y+dy, WithID(rec.ID), WithData(rec), WithParent(parent))
		if err != nil {
			c.log.Warn().Err(err).Str("shape", r.ID).Msg("record not pasted")
			continue
		}
		created = append(created, s)
	}
	if len(created) == 0 {
		return nil, nil
	}

	in := make(map[string]bool, len(created))
	for _, s := range created {
		in[s.ID] = true
		if s.Type == TypeLine {
			p.refreshLine(s)
		}
	}
	var roots []*Shape
	changes := make([]Change, len(created))
	for i, s := range created {
		if !in[s.Container] {
			roots = append(roots, s)
		}
		changes[i] = Change{ShapeID: s.ID, Post: s.snapshot()}
	}
	p.Focus(roots...)
	p.history.ClearBatchNo()
	p.RecordCommand(KindAddShape, changes)
	p.events.emit(Event{Name: EventInvalidate, Shapes: created})
	c.log.Debug().Int("shapes", len(created)).Int("roots", len(roots)).Msg("pasted")
	return created, nil
}

// parentFor picks the container a pasted record lands in. Records whose
// container was pasted with them follow it. Roots go into the hint when it
// accepts them, onto the page when their type allows, and otherwise into a
// container of the type's default container kind created once per session.
func (c *Clipboard) parentFor(r Record, ids map[string]string, hint *Shape, wrappers map[string]string, dx, dy float64, created *[]*Shape) (string, error) {
	p := c.page
	if id, ok := ids[r.Container]; ok && r.Container != "" {
		if _, live := p.shapes[id]; live {
			return id, nil
		}
	} else if r.Shared && r.Container != "" {
		if _, live := p.shapes[r.Container]; live {
			return r.Container, nil
		}
	}
	b, err := p.kinds.Lookup(r.Type)
	if err != nil {
		return "", err
	}
	probe := &Shape{ID: r.ID, Type: r.Type, page: p, behavior: b}
	if hint != nil && !hint.removed && hint.ChildAllowed(probe) {
		return hint.ID, nil
	}
	if b.RootAllowed() {
		return "", nil
	}
	wrapType := b.DefaultContainer()
	if wrapType == "" {
		return "", fmt.Errorf("%w: %s has no place to land", ErrChildRejected, r.Type)
	}
	key := r.PasteSession
	if id, ok := wrappers[key]; ok {
		if w, ok := p.shapes[id]; ok && w.ChildAllowed(probe) {
			return id, nil
		}
	}
	w, err := p.CreateShape(wrapType, r.X+dx, r.Y+dy)
	if err != nil {
		return "", err
	}
	*created = append(*created, w)
	wrappers[key] = w.ID
	return w.ID, nil
}

// HandlePaste dispatches a clipboard event to the first matching format:
// the internal format, then a grid, then plain text, then an image. A format
// that fails to decode falls through to the next one.
func (c *Clipboard) HandlePaste(data ClipboardData) ([]*Shape, error) {
	hint := c.hint()
	if raw, ok := data.Data(FormatShapes); ok {
		payload, err := DecodePayload(raw)
		if err == nil {
			for _, s := range c.page.GetFocusedShapes() {
				if h, ok := s.behavior.(PasteHandler); ok && h.HandlePaste(s, payload) {
					return nil, nil
				}
			}
			return c.Paste(payload, hint)
		}
		c.log.Warn().Err(err).Msg("internal format ignored")
	}
	if raw, ok := data.Data(FormatGrid); ok && isGrid(string(raw)) {
		rows, err := parseGrid(string(raw))
		if err == nil {
			return c.insert(hint, Record{Type: TypeTable, Fields: map[string]any{"rows": rows}})
		}
		c.log.Warn().Err(err).Msg("grid format ignored")
	}
	if raw, ok := data.Data(FormatText); ok {
		if text := cleanClipboardText(string(raw)); strings.TrimSpace(text) != "" {
			return c.insert(hint, Record{Type: TypeText, Text: text})
		}
	}
	if raw, ok := data.Data(FormatImage); ok {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
		if err == nil {
			mime := "image/" + format
			return c.insert(hint, Record{
				Type:   TypeImage,
				Width:  float64(cfg.Width),
				Height: float64(cfg.Height),
				Fields: map[string]any{
					"src":  "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw),
					"mime": mime,
				},
			})
		}
		c.log.Warn().Err(err).Msg("image format ignored")
	}
	return nil, nil
}

// hint is the container pasted roots should land in: the focused container,
// or the container of the focused shape.
func (c *Clipboard) hint() *Shape {
	focused := c.page.GetFocusedShapes()
	if len(focused) == 0 {
		return nil
	}
	s := focused[len(focused)-1]
	if s.IsContainer() {
		return s
	}
	return s.parent()
}

// insert pastes a single new record near the hint.
func (c *Clipboard) insert(hint *Shape, r Record) ([]*Shape, error) {
	off := c.page.cfg.PasteOffset
	r.ID = c.page.newID()
	r.X, r.Y = off, off
	if hint != nil {
		r.X, r.Y = hint.X+off, hint.Y+off
	}
	payload := &Payload{Type: FormatShapes, Session: uuid.NewString(), Data: []Record{r}}
	return c.paste(payload, hint, 0, 0)
}
