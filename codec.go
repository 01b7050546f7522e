package elsa

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const documentVersion = 1

// Document is the persisted form of a page.
type Document struct {
	Version int      `json:"version"`
	Page    string   `json:"page"`
	Shapes  []Record `json:"shapes"`
}

var cborDecMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

var cborEncMode, _ = cbor.CoreDetEncOptions().EncMode()

// Records serializes every shape, containers before their children.
func (p *Page) Records() []Record {
	shapes := p.Shapes()
	out := make([]Record, len(shapes))
	for i, s := range shapes {
		out[i] = s.Record()
	}
	return out
}

// LoadRecords replaces the page content. History and focus are reset. Records
// that cannot be placed are skipped and reported in the returned error.
func (p *Page) LoadRecords(records []Record) error {
	for _, id := range append([]string(nil), p.roots...) {
		if s, ok := p.shapes[id]; ok {
			s.Remove("load")
		}
	}
	p.history.Clear()

	var failed []string
	var lines []*Shape
	for _, r := range sortContainerFirst(records) {
		s, err := p.CreateShape(r.Type, r.X, r.Y, WithID(r.ID), WithData(r), WithParent(r.Container), IgnoreLimit())
		if err != nil {
			p.log.Warn().Err(err).Str("shape", r.ID).Msg("record skipped")
			failed = append(failed, r.ID)
			continue
		}
		if s.Type == TypeLine {
			lines = append(lines, s)
		}
	}
	for _, line := range lines {
		p.refreshLine(line)
	}
	p.events.emit(Event{Name: EventInvalidate})
	if len(failed) > 0 {
		return fmt.Errorf("%d records skipped: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

// Marshal encodes the page as JSON, or as CBOR when binary is set.
func (p *Page) Marshal(binary bool) ([]byte, error) {
	doc := Document{Version: documentVersion, Page: p.ID, Shapes: p.Records()}
	if binary {
		return cborEncMode.Marshal(doc)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal loads a document produced by Marshal.
func (p *Page) Unmarshal(data []byte, binary bool) error {
	var doc Document
	var err error
	if binary {
		err = cborDecMode.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if doc.Version > documentVersion {
		return fmt.Errorf("document version %d is newer than %d", doc.Version, documentVersion)
	}
	if doc.Page != "" {
		p.ID = doc.Page
	}
	return p.LoadRecords(doc.Shapes)
}

func isBinaryDocument(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".cbor")
}

// SaveToFile writes the page; a .cbor extension selects the binary codec.
func (p *Page) SaveToFile(filename string) error {
	data, err := p.Marshal(isBinaryDocument(filename))
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return err
	}
	p.log.Info().Str("file", filename).Int("shapes", len(p.shapes)).Msg("page saved")
	return nil
}

func (p *Page) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	if err := p.Unmarshal(data, isBinaryDocument(filename)); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	p.log.Info().Str("file", filename).Int("shapes", len(p.shapes)).Msg("page loaded")
	return nil
}
