package elsa

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPNG(t *testing.T) {
	p := newTestPage(t)
	mustCreate(t, p, TypeRectangle, 0, 0, WithData(Record{Text: "box"}))
	mustCreate(t, p, TypeText, 150, 10, WithData(Record{Text: "label"}))
	mustCreate(t, p, TypeFreeLine, 0, 0, WithData(Record{Points: []Point{{0, 100}, {50, 150}, {90, 110}}}))
	mustCreate(t, p, TypeTable, 0, 200, WithData(Record{Fields: map[string]any{"rows": [][]string{{"a", "b"}}}}))

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, p.Shapes()))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	b := img.Bounds()
	assert.Equal(t, int(206+2*exportPadding), b.Dx())
	assert.Equal(t, int(224+2*exportPadding), b.Dy())

	assert.ErrorIs(t, RenderPNG(&buf, nil), ErrNothingToExport)
}

func TestExportPNG(t *testing.T) {
	p := newTestPage(t)
	path := filepath.Join(t.TempDir(), "page.png")
	assert.ErrorIs(t, p.ExportPNG(path), ErrNothingToExport)

	mustCreate(t, p, TypeLine, 0, 0, WithData(Record{Points: []Point{{0, 0}, {40, 30}}, Fields: map[string]any{"arrow": true}}))
	require.NoError(t, p.ExportPNG(path))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40+2*int(exportPadding), cfg.Width)
}
