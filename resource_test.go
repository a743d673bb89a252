package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceSectionRoundTrip(t *testing.T) {
	section := &ResourceSection{Resources: []Resource{
		{ID: ResIDGuides, Name: "", Data: []byte{1, 2, 3}}, // odd length, exercises padding
		{ID: ResIDSlices, Name: "slices", Data: []byte{9, 9, 9, 9}},
	}}

	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, section.Write(w))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := ParseResourceSection(r)
	require.NoError(t, err)
	require.Len(t, got.Resources, 2)
	assert.Equal(t, []byte{1, 2, 3}, got.Resources[0].Data)
	assert.Equal(t, "slices", got.Resources[1].Name)

	found, ok := got.ByID(ResIDSlices)
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 9, 9}, found.Data)

	_, ok = got.ByID(ResIDXMPMetadata)
	assert.False(t, ok)
}

func TestParseResourceSectionEmpty(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteUint32(0))

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := ParseResourceSection(r)
	require.NoError(t, err)
	assert.Empty(t, got.Resources)
}

func TestParseGuides(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WritePad(12)) // version + grid info
	require.NoError(t, w.WriteUint32(2))
	require.NoError(t, w.WriteInt32(100))
	require.NoError(t, w.WriteByte(0)) // horizontal
	require.NoError(t, w.WriteInt32(50))
	require.NoError(t, w.WriteByte(1)) // vertical

	section := &ResourceSection{Resources: []Resource{{ID: ResIDGuides, Data: buf.Bytes()}}}
	guides, err := section.ParseGuides()
	require.NoError(t, err)
	require.Len(t, guides.Guides, 2)
	assert.Equal(t, Guide{Position: 100, IsHorizontal: true}, guides.Guides[0])
	assert.Equal(t, Guide{Position: 50, IsHorizontal: false}, guides.Guides[1])
}

func TestParseGuidesAbsent(t *testing.T) {
	section := &ResourceSection{}
	guides, err := section.ParseGuides()
	require.NoError(t, err)
	assert.Empty(t, guides.Guides)
}

func TestParseSlicesV6(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteUint32(6)) // version
	require.NoError(t, w.WriteInt32(0))  // bounds top
	require.NoError(t, w.WriteInt32(0))  // left
	require.NoError(t, w.WriteInt32(100))
	require.NoError(t, w.WriteInt32(100))
	require.NoError(t, w.WriteUnicodeString("doc"))
	require.NoError(t, w.WriteUint32(1)) // slice count

	require.NoError(t, w.WriteInt32(1)) // id
	require.NoError(t, w.WriteInt32(0)) // group id
	require.NoError(t, w.WriteInt32(0)) // origin (not 1, no associated layer id)
	require.NoError(t, w.WriteUnicodeString("slice1"))
	require.NoError(t, w.WriteInt32(0)) // type
	require.NoError(t, w.WriteInt32(0))
	require.NoError(t, w.WriteInt32(0))
	require.NoError(t, w.WriteInt32(10))
	require.NoError(t, w.WriteInt32(10))
	require.NoError(t, w.WriteUnicodeString(""))  // url
	require.NoError(t, w.WriteUnicodeString(""))  // target
	require.NoError(t, w.WriteUnicodeString(""))  // message
	require.NoError(t, w.WriteUnicodeString(""))  // alt
	require.NoError(t, w.WriteUint32(0))          // html flag
	require.NoError(t, w.WriteUnicodeString(""))  // cell text
	require.NoError(t, w.WriteInt32(0))           // horz align
	require.NoError(t, w.WriteInt32(0))           // vert align
	require.NoError(t, w.WritePad(4))             // argb color

	section := &ResourceSection{Resources: []Resource{{ID: ResIDSlices, Data: buf.Bytes()}}}
	slices, err := section.ParseSlices()
	require.NoError(t, err)
	assert.Equal(t, int32(6), slices.Version)
	assert.Equal(t, "doc", slices.Name)
	require.Len(t, slices.Slices, 1)
	assert.Equal(t, "slice1", slices.Slices[0].Name)
	assert.Equal(t, Rectangle{Top: 0, Left: 0, Bottom: 10, Right: 10}, slices.Slices[0].Bounds)
}

func TestParseSlicesAbsentDefaultsToV6(t *testing.T) {
	section := &ResourceSection{}
	slices, err := section.ParseSlices()
	require.NoError(t, err)
	assert.Equal(t, int32(6), slices.Version)
	assert.Empty(t, slices.Slices)
}

func TestLayerCompsAbsent(t *testing.T) {
	section := &ResourceSection{}
	comps, err := section.LayerComps()
	require.NoError(t, err)
	assert.Nil(t, comps)
}
