package psd

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbLayer(name string, bounds Rectangle, r, g, b byte) *Layer {
	w := int(bounds.Right - bounds.Left)
	h := int(bounds.Bottom - bounds.Top)
	n := w * h
	mk := func(v byte) []byte {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = v
		}
		return buf
	}
	l := plainLayer(name, bounds)
	l.Channels = []ChannelInfo{{ID: 0}, {ID: 1}, {ID: 2}}
	l.ChannelData = []ChannelImage{
		{Compression: CompressionRaw, Raw: mk(r), width: w, height: h, depth: 8},
		{Compression: CompressionRaw, Raw: mk(g), width: w, height: h, depth: 8},
		{Compression: CompressionRaw, Raw: mk(b), width: w, height: h, depth: 8},
	}
	return l
}

func TestRendererSingleOpaqueLayer(t *testing.T) {
	bounds := Rectangle{Top: 0, Left: 0, Bottom: 2, Right: 2}
	layer := rgbLayer("Solid", bounds, 200, 100, 50)

	tree := BuildTree([]*Layer{layer}, 2, 2)
	root := tree.Root()

	img, err := NewRenderer(&root).Render()
	require.NoError(t, err)

	px := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(200), px.R)
	assert.Equal(t, uint8(100), px.G)
	assert.Equal(t, uint8(50), px.B)
	assert.Equal(t, uint8(255), px.A)
}

func TestRendererSkipsHiddenLayer(t *testing.T) {
	bounds := Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}
	hidden := rgbLayer("Hidden", bounds, 9, 9, 9)
	hidden.Flags = layerFlagHidden

	tree := BuildTree([]*Layer{hidden}, 1, 1)
	root := tree.Root()

	img, err := NewRenderer(&root).Render()
	require.NoError(t, err)

	px := img.RGBAAt(0, 0)
	assert.Equal(t, color.RGBA{}, px)
}

func TestRendererGroupComposites(t *testing.T) {
	layers := []*Layer{
		groupLayer("Group", SectionDividerOpenFolder),
		rgbLayer("A", Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}, 10, 20, 30),
		groupLayer("bounding", SectionDividerBoundingSection),
	}
	tree := BuildTree(layers, 1, 1)
	root := tree.Root()

	img, err := NewRenderer(&root).Render()
	require.NoError(t, err)

	px := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(10), px.R)
	assert.Equal(t, uint8(20), px.G)
	assert.Equal(t, uint8(30), px.B)
}

func TestNodeToPNG(t *testing.T) {
	bounds := Rectangle{Top: 0, Left: 0, Bottom: 1, Right: 1}
	layer := rgbLayer("Solid", bounds, 1, 2, 3)
	tree := BuildTree([]*Layer{layer}, 1, 1)

	img, err := tree.Root().ToPNG()
	require.NoError(t, err)
	require.NotNil(t, img)
}
