package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayerMaskSectionRoundTrip(t *testing.T) {
	h := &Header{Version: 1, Channels: 3, Rows: 30, Cols: 40, Depth: 8, Mode: ColorModeRGB}
	layer := sampleLayer("Only")
	layer.ChannelData = []ChannelImage{
		{Compression: CompressionRaw, Raw: []byte{1, 2}},
		{Compression: CompressionRaw, Raw: []byte{3, 4}},
		{Compression: CompressionRaw, Raw: []byte{5, 6}},
	}
	for i := range layer.Channels {
		layer.Channels[i].Length = uint64(2 + len(layer.ChannelData[i].Raw))
		layer.ChannelData[i].Info = layer.Channels[i]
	}

	sec := &LayerMaskSection{
		Layers: []*Layer{layer},
		GlobalMask: &GlobalLayerMask{
			OverlayColorSpace: 0,
			ColorComponents:   [4]uint16{1, 2, 3, 4},
			Opacity:           50,
			Kind:              1,
		},
	}

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, writeLayerMaskSection(w, sec, h))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := ReadLayerMaskSection(r, h)
	require.NoError(t, err)

	require.Len(t, got.Layers, 1)
	assert.Equal(t, "Only", got.Layers[0].Name)
	require.NotNil(t, got.GlobalMask)
	assert.Equal(t, uint16(50), got.GlobalMask.Opacity)
	assert.Equal(t, [4]uint16{1, 2, 3, 4}, got.GlobalMask.ColorComponents)
}

func TestLayerMaskSectionEmpty(t *testing.T) {
	h := &Header{Version: 1, Channels: 3, Rows: 1, Cols: 1, Depth: 8, Mode: ColorModeRGB}
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteUint32(0))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := ReadLayerMaskSection(r, h)
	require.NoError(t, err)
	assert.Empty(t, got.Layers)
	assert.Nil(t, got.GlobalMask)
}

func TestEnhanceLayerMaskSectionDecodesPatternsAndLinks(t *testing.T) {
	encoded, err := WritePatterns([]*Pattern{samplePattern(ColorModeRGB, false)})
	require.NoError(t, err)

	sec := &LayerMaskSection{TaggedBlocks: []TaggedBlock{
		{Key: "Patt", Data: encoded},
	}}

	require.NoError(t, EnhanceLayerMaskSection(sec))
	require.Len(t, sec.Patterns, 1)
	assert.Equal(t, "Swatch", sec.Patterns[0].Name)
}

func TestEnhanceLayerMaskSectionIgnoresUnknownBlocks(t *testing.T) {
	sec := &LayerMaskSection{TaggedBlocks: []TaggedBlock{{Key: "zzzz", Data: []byte{1, 2, 3}}}}
	require.NoError(t, EnhanceLayerMaskSection(sec))
	assert.Empty(t, sec.Patterns)
	assert.Empty(t, sec.LinkedLayers)
}
