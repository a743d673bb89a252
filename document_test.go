package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentDefaults(t *testing.T) {
	d, err := New(4, 3, ColorModeRGB, 8)
	require.NoError(t, err)

	assert.Equal(t, uint16(3), d.Header().Channels)
	assert.Equal(t, 4, d.Header().Width())
	assert.Equal(t, 3, d.Header().Height())
	assert.True(t, d.IsUpdated())
	assert.Empty(t, d.Layers())
}

func TestNewDocumentRejectsBadSize(t *testing.T) {
	_, err := New(0, 10, ColorModeRGB, 8)
	require.Error(t, err)
}

func TestNewDocumentRejectsUnsupportedMode(t *testing.T) {
	_, err := New(10, 10, ColorMode(99), 8)
	require.Error(t, err)
}

func TestDocumentLayerMutators(t *testing.T) {
	d, err := New(10, 10, ColorModeRGB, 8)
	require.NoError(t, err)
	d.ClearWarnings()

	a := sampleLayer("A")
	b := sampleLayer("B")
	d.AppendLayer(a)
	d.AppendLayer(b)
	require.Len(t, d.Layers(), 2)
	assert.Equal(t, 2, len(d.Root().Children()))

	require.NoError(t, d.InsertLayer(1, sampleLayer("Mid")))
	require.Len(t, d.Layers(), 3)
	assert.Equal(t, "Mid", d.Layers()[1].Name)

	require.NoError(t, d.MoveLayerUp(0))
	assert.Equal(t, "Mid", d.Layers()[0].Name)

	popped, err := d.PopLayer()
	require.NoError(t, err)
	assert.Equal(t, "B", popped.Name)

	require.NoError(t, d.RemoveLayer(0))
	require.Len(t, d.Layers(), 1)

	d.ClearLayers()
	assert.Empty(t, d.Layers())
}

func TestDocumentMutatorBoundsChecks(t *testing.T) {
	d, err := New(10, 10, ColorModeRGB, 8)
	require.NoError(t, err)

	assert.Error(t, d.InsertLayer(5, sampleLayer("X")))
	assert.Error(t, d.RemoveLayer(0))
	_, err = d.PopLayer()
	assert.Error(t, err)
	assert.Error(t, d.MoveLayerUp(0))
}

func TestDocumentSaveClearsDirtyFlag(t *testing.T) {
	d, err := New(2, 2, ColorModeRGB, 8)
	require.NoError(t, err)
	d.AppendLayer(rgbLayer("Solid", Rectangle{Top: 0, Left: 0, Bottom: 2, Right: 2}, 1, 2, 3))

	buf := newBufferWriter()
	require.NoError(t, d.Save(buf, nil))
	assert.False(t, d.IsUpdated())
	assert.NotEmpty(t, buf.Bytes())
}

func TestDocumentOpenRoundTrip(t *testing.T) {
	d, err := New(2, 2, ColorModeRGB, 8)
	require.NoError(t, err)

	buf := newBufferWriter()
	require.NoError(t, d.Save(buf, &WriteOptions{SkipPreviewRegeneration: true}))

	reopened, err := Open(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, d.Header().Width(), reopened.Header().Width())
	assert.Equal(t, d.Header().Height(), reopened.Header().Height())
	assert.False(t, reopened.IsUpdated())
}
