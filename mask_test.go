package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerMaskDataAbsent(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	m, err := ReadLayerMaskData(r, 0)
	require.NoError(t, err)
	assert.False(t, m.Present)
}

func TestLayerMaskDataSimple20ByteRoundTrip(t *testing.T) {
	m := &LayerMaskData{
		Present:      true,
		Bounds:       Rectangle{Top: 1, Left: 2, Bottom: 3, Right: 4},
		DefaultColor: 255,
		Flags:        maskFlagDisabled,
	}

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, writeLayerMaskData(w, m))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	size, err := r.ReadUint32()
	require.NoError(t, err)

	got, err := ReadLayerMaskData(r, size)
	require.NoError(t, err)
	assert.True(t, got.Present)
	assert.Equal(t, m.Bounds, got.Bounds)
	assert.Equal(t, m.DefaultColor, got.DefaultColor)
	assert.True(t, got.Disabled())
	assert.False(t, got.HasRealMask)
}

func TestLayerMaskDataRealMaskRoundTrip(t *testing.T) {
	m := &LayerMaskData{
		Present:     true,
		Bounds:      Rectangle{Top: 0, Left: 0, Bottom: 10, Right: 10},
		HasRealMask: true,
		RealFlags:   1,
		RealDefault: 0,
		RealBounds:  Rectangle{Top: 1, Left: 1, Bottom: 9, Right: 9},
	}

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, writeLayerMaskData(w, m))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	size, err := r.ReadUint32()
	require.NoError(t, err)

	got, err := ReadLayerMaskData(r, size)
	require.NoError(t, err)
	assert.True(t, got.HasRealMask)
	assert.Equal(t, m.RealBounds, got.RealBounds)
}
