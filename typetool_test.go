package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emptyTestDescriptor() []byte {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 0)
	return buf.Bytes()
}

func textTestDescriptor(text string) []byte {
	buf := new(bytes.Buffer)
	descriptorHeader(buf, "", "Test", 1)
	writeTestKey(buf, "Txt ")
	buf.WriteString("TEXT")
	writeTestUnicodeString(buf, text)
	return buf.Bytes()
}

func TestParseTypeToolInfo(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)

	require.NoError(t, w.WriteInt16(1)) // version
	for _, v := range []float64{1, 0, 0, 1, 5, 10} {
		require.NoError(t, w.WriteFloat64(v))
	}
	require.NoError(t, w.WriteInt16(50)) // text version
	require.NoError(t, w.WriteInt32(50)) // text descriptor version
	_, err := w.Write(textTestDescriptor("Hello"))
	require.NoError(t, err)

	require.NoError(t, w.WriteInt16(1)) // warp version
	require.NoError(t, w.WriteInt32(50))
	_, err = w.Write(emptyTestDescriptor())
	require.NoError(t, err)

	for _, v := range []float64{0, 0, 100, 20} { // left, top, right, bottom
		require.NoError(t, w.WriteFloat64(v))
	}

	info, err := ParseTypeToolInfo(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int16(1), info.Version)
	assert.Equal(t, Transform{XX: 1, XY: 0, YX: 0, YY: 1, TX: 5, TY: 10}, info.Transform)
	assert.Equal(t, "Hello", info.Text())
	assert.True(t, info.HasTextContent())
	assert.Equal(t, Rectangle{Top: 0, Left: 0, Bottom: 20, Right: 100}, info.Bounds)
}

func TestTypeToolInfoNoTextContent(t *testing.T) {
	info := &TypeToolInfo{}
	assert.Equal(t, "", info.Text())
	assert.False(t, info.HasTextContent())
}
