package elsa

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	return NewEditor(nil, zerolog.Nop(), &fakeScheduler{})
}

func TestRegistryRoutesToActiveEditor(t *testing.T) {
	var reg Registry
	first, second := newTestEditor(t), newTestEditor(t)
	data := NewMemoryClipboard()

	handled, err := reg.Paste(data)
	require.NoError(t, err)
	assert.False(t, handled, "no editor attached")

	reg.AttachCopyPaste(first)
	reg.AttachCopyPaste(second)
	assert.Same(t, second, reg.Active())

	s, err := second.Page.AddShape(TypeRectangle, 0, 0)
	require.NoError(t, err)
	second.Page.Focus(s)

	handled, err = reg.Copy(data)
	require.NoError(t, err)
	assert.True(t, handled)
	_, ok := data.Data(FormatShapes)
	assert.True(t, ok)

	reg.DetachCopyPaste(first)
	assert.Same(t, second, reg.Active(), "detaching an inactive editor changes nothing")

	handled, err = reg.Paste(data)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, 2, second.Page.Len())
	assert.Equal(t, 0, first.Page.Len())

	reg.DetachCopyPaste(second)
	assert.Nil(t, reg.Active())
}

func TestRegistryCut(t *testing.T) {
	var reg Registry
	e := newTestEditor(t)
	reg.AttachCopyPaste(e)
	data := NewMemoryClipboard()

	handled, err := reg.Cut(data)
	require.NoError(t, err)
	assert.True(t, handled)
	_, ok := data.Data(FormatShapes)
	assert.False(t, ok, "nothing selected, nothing written")

	s, err := e.Page.AddShape(TypeRectangle, 0, 0)
	require.NoError(t, err)
	e.Page.Focus(s)
	_, err = reg.Cut(data)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Page.Len())
	assert.Equal(t, KindDeleteShape, e.Page.History().Commands()[1].Kind)
}
