package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLayer(name string) *Layer {
	return &Layer{
		Bounds:    Rectangle{Top: 10, Left: 20, Bottom: 30, Right: 40},
		Channels:  []ChannelInfo{{ID: 0, Length: 2}, {ID: 1, Length: 2}, {ID: 2, Length: 2}},
		BlendMode: "norm",
		Opacity:   255,
		Clipping:  0,
		Flags:     0,
		Name:      name,
	}
}

func TestLayerRecordRoundTrip(t *testing.T) {
	l := sampleLayer("Background")

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, WriteLayerRecord(w, l, false))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := ReadLayerRecord(r, false)
	require.NoError(t, err)

	assert.Equal(t, l.Bounds, got.Bounds)
	assert.Equal(t, l.BlendMode, got.BlendMode)
	assert.Equal(t, l.Opacity, got.Opacity)
	assert.Equal(t, l.Name, got.Name)
	assert.Equal(t, 20, got.Width())
	assert.Equal(t, 20, got.Height())
	assert.True(t, got.Visible())
	assert.Equal(t, "Background", got.UnicodeName) // falls back to legacy name
}

func TestLayerVisibility(t *testing.T) {
	l := sampleLayer("Hidden")
	l.Flags = layerFlagHidden
	assert.False(t, l.Visible())
}

func TestLayerNodeTypeFromSectionDivider(t *testing.T) {
	l := sampleLayer("Group")
	l.SectionDivider = &SectionDividerInfo{Type: SectionDividerOpenFolder}
	assert.Equal(t, NodeTypeGroup, l.NodeType())
	assert.True(t, l.IsFolderOpen())

	l.SectionDivider.Type = SectionDividerBoundingSection
	assert.Equal(t, NodeTypeGroupEnd, l.NodeType())

	l.SectionDivider = nil
	assert.Equal(t, NodeTypeLayer, l.NodeType())
}

func TestParseSectionDividerWithBlendMode(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteInt32(1)) // open folder
	_, err := w.Write([]byte("8BIMnorm"))
	require.NoError(t, err)

	info, err := parseSectionDivider(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, SectionDividerOpenFolder, info.Type)
	assert.Equal(t, "norm", info.BlendMode)
}

func TestSectionDividerTypeString(t *testing.T) {
	assert.Equal(t, "open folder", SectionDividerOpenFolder.String())
	assert.Equal(t, "closed folder", SectionDividerClosedFolder.String())
	assert.Equal(t, "bounding section", SectionDividerBoundingSection.String())
	assert.Equal(t, "layer", SectionDividerOther.String())
}

func TestParseFillOpacityBlockDefault(t *testing.T) {
	opacity, err := parseFillOpacityBlock(nil)
	require.NoError(t, err)
	assert.Equal(t, byte(255), opacity)

	opacity, err = parseFillOpacityBlock([]byte{128})
	require.NoError(t, err)
	assert.Equal(t, byte(128), opacity)
}

func TestLayerChannelDataRoundTrip(t *testing.T) {
	l := sampleLayer("Pixels")
	l.Channels = []ChannelInfo{{ID: 0, Length: 0}}
	l.ChannelData = []ChannelImage{{
		Info:        l.Channels[0],
		Compression: CompressionRaw,
		Raw:         []byte{1, 2, 3, 4},
	}}
	// channel length must reflect the 2-byte compression id plus the raw data
	l.Channels[0].Length = uint64(2 + len(l.ChannelData[0].Raw))
	l.ChannelData[0].Info = l.Channels[0]

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, WriteLayerChannelData(w, l))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got := &Layer{Channels: l.Channels}
	require.NoError(t, ReadLayerChannelData(r, got, 8, false))
	require.Len(t, got.ChannelData, 1)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.ChannelData[0].Raw)
}

func TestLayerToImage(t *testing.T) {
	l := sampleLayer("RGB")
	l.Bounds = Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 2}
	l.Channels = []ChannelInfo{{ID: 0}, {ID: 1}, {ID: 2}}
	l.ChannelData = []ChannelImage{
		{Compression: CompressionRaw, Raw: []byte{10, 20}, width: 2, height: 1, depth: 8},
		{Compression: CompressionRaw, Raw: []byte{30, 40}, width: 2, height: 1, depth: 8},
		{Compression: CompressionRaw, Raw: []byte{50, 60}, width: 2, height: 1, depth: 8},
	}

	img, err := l.ToImage(false)
	require.NoError(t, err)
	require.NotNil(t, img)
	px := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(10), px.R)
	assert.Equal(t, uint8(30), px.G)
	assert.Equal(t, uint8(50), px.B)
	assert.Equal(t, uint8(255), px.A)
}

func TestLayerToImageNoColorChannels(t *testing.T) {
	l := sampleLayer("Empty")
	l.Bounds = Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}
	l.Channels = []ChannelInfo{{ID: -2}}
	l.ChannelData = []ChannelImage{{Compression: CompressionRaw, Raw: []byte{1}, width: 1, height: 1, depth: 8}}

	_, err := l.ToImage(false)
	require.Error(t, err)
}
