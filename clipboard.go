package elsa

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Payload is the internal clipboard format: a flat record list whose
// hierarchy is carried by Container back-references.
type Payload struct {
	Type    string   `json:"type"`
	Session string   `json:"session"`
	Data    []Record `json:"data"`
}

const payloadSchemaURL = "elsa://clipboard/payload.schema.json"

const payloadSchema = `{
  "type": "object",
  "required": ["type", "data"],
  "properties": {
    "type": {"const": "` + FormatShapes + `"},
    "session": {"type": "string"},
    "data": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "x", "y"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "width": {"type": "number", "minimum": 0},
          "height": {"type": "number", "minimum": 0},
          "container": {"type": "string"},
          "fromShape": {"type": "string"},
          "toShape": {"type": "string"},
          "points": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["x", "y"],
              "properties": {"x": {"type": "number"}, "y": {"type": "number"}}
            }
          },
          "shared": {"type": "boolean"},
          "pasteSession": {"type": "string"},
          "fields": {"type": "object"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func payloadValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(payloadSchemaURL, strings.NewReader(payloadSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(payloadSchemaURL)
	})
	return schema, schemaErr
}

// DecodePayload parses and validates the internal clipboard format.
func DecodePayload(data []byte) (*Payload, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	v, err := payloadValidator()
	if err != nil {
		return nil, fmt.Errorf("compile payload schema: %w", err)
	}
	if err := v.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &p, nil
}

// Encode renders the payload in the internal clipboard format.
func (p *Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// ClipboardData is one clipboard event's content, keyed by format tag.
type ClipboardData interface {
	Data(format string) ([]byte, bool)
	SetData(format string, data []byte) error
}

// MemoryClipboard holds every format in memory. Hosts that receive native
// clipboard events fill one per event.
type MemoryClipboard struct {
	formats map[string][]byte
}

func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{formats: make(map[string][]byte)}
}

func (m *MemoryClipboard) Data(format string) ([]byte, bool) {
	d, ok := m.formats[format]
	return d, ok && len(d) > 0
}

func (m *MemoryClipboard) SetData(format string, data []byte) error {
	m.formats[format] = data
	return nil
}

// SystemClipboard bridges to the operating system clipboard, which only
// carries text. The internal format travels as its JSON text and the image
// format is dropped.
type SystemClipboard struct {
	read  func() (string, error)
	write func(string) error
}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{read: readClipboardText, write: clipboard.WriteAll}
}

func (c *SystemClipboard) Data(format string) ([]byte, bool) {
	text, err := c.read()
	if err != nil || text == "" {
		return nil, false
	}
	switch format {
	case FormatShapes:
		trimmed := strings.TrimSpace(text)
		if !strings.HasPrefix(trimmed, "{") || !strings.Contains(trimmed, FormatShapes) {
			return nil, false
		}
		return []byte(trimmed), true
	case FormatGrid:
		if !isGrid(text) {
			return nil, false
		}
		return []byte(text), true
	case FormatText:
		return []byte(text), true
	}
	return nil, false
}

func (c *SystemClipboard) SetData(format string, data []byte) error {
	switch format {
	case FormatShapes, FormatText:
		return c.write(string(data))
	}
	return nil
}
