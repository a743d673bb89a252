package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrightnessContrast(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteUint16(50))  // brightness
	require.NoError(t, w.WriteUint16(25))  // contrast
	require.NoError(t, w.WriteUint16(128)) // mean
	require.NoError(t, w.WriteByte(1))     // lab only
	require.NoError(t, w.WritePad(1))

	adj, err := ParseAdjustment("brit", buf.Bytes())
	require.NoError(t, err)
	bc, ok := adj.(BrightnessContrast)
	require.True(t, ok)
	assert.Equal(t, int16(50), bc.Brightness)
	assert.Equal(t, int16(25), bc.Contrast)
	assert.True(t, bc.LabOnly)
}

func TestParsePosterizeAndThreshold(t *testing.T) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	require.NoError(t, w.WriteUint16(4))
	adj, err := ParseAdjustment("post", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Posterize{Levels: 4}, adj)

	buf2 := newBufferWriter()
	w2 := NewWriter(buf2)
	require.NoError(t, w2.WriteUint16(128))
	adj2, err := ParseAdjustment("thrs", buf2.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Threshold{Level: 128}, adj2)
}

func TestParseInvertHasNoPayload(t *testing.T) {
	adj, err := ParseAdjustment("nvrt", nil)
	require.NoError(t, err)
	assert.Equal(t, Invert{}, adj)
}

func TestParseCurvUnsupported(t *testing.T) {
	_, err := ParseAdjustment("curv", []byte{0, 0})
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}

func TestParseAdjustmentUnknownKey(t *testing.T) {
	_, err := ParseAdjustment("zzzz", nil)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}
