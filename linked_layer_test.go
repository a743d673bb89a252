package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLinkedLayerBody(t *testing.T) []byte {
	buf := newBufferWriter()
	w := NewWriter(buf)
	_, err := w.Write([]byte(LinkedLayerData))
	require.NoError(t, err)
	require.NoError(t, w.WriteUint32(2)) // version
	require.NoError(t, w.WritePascalString("abc", 1))
	require.NoError(t, w.WriteUnicodeString("smart.psb"))
	_, err = w.Write([]byte("8BPS"))
	require.NoError(t, err)
	_, err = w.Write([]byte("8BIM"))
	require.NoError(t, err)

	data := []byte{1, 2, 3, 4}
	require.NoError(t, w.WriteUint64(uint64(len(data))))
	require.NoError(t, w.WriteByte(0)) // no open-file descriptor
	_, err = w.Write(data)
	require.NoError(t, err)

	return buf.Bytes()
}

func TestParseLinkedLayersEmbeddedData(t *testing.T) {
	body := buildLinkedLayerBody(t)

	outer := newBufferWriter()
	w := NewWriter(outer)
	require.NoError(t, w.WriteUint64(uint64(len(body))))
	_, err := w.Write(body)
	require.NoError(t, err)
	pad := (4 - (8+len(body))%4) % 4
	require.NoError(t, w.WritePad(pad))

	layers, err := ParseLinkedLayers(outer.Bytes())
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, LinkedLayerData, layers[0].Kind)
	assert.Equal(t, "smart.psb", layers[0].Filename)
	assert.Equal(t, "8BPS", layers[0].FileType)
	assert.Equal(t, []byte{1, 2, 3, 4}, layers[0].Data)
}

func TestParseLinkedLayersUnknownKind(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	_, err := w.Write([]byte("liFZ"))
	require.NoError(t, err)
	require.NoError(t, w.WriteUint32(1))
	require.NoError(t, w.WritePascalString("", 1))
	require.NoError(t, w.WriteUnicodeString(""))
	_, err = w.Write([]byte("8BPS8BIM"))
	require.NoError(t, err)
	require.NoError(t, w.WriteUint64(0))
	require.NoError(t, w.WriteByte(0))

	_, err = parseLinkedLayer(buf.Bytes())
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}
