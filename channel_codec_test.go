package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows(width, height, depth int) []byte {
	rowBytes := channelRowBytes(width, depth)
	rows := make([]byte, rowBytes*height)
	for i := range rows {
		rows[i] = byte((i*37 + 11) % 256)
	}
	return rows
}

func TestChannelCodecRoundTrip(t *testing.T) {
	dims := [][2]int{{1, 1}, {3, 3}, {16, 16}}
	depths := []int{8, 16, 32}
	comps := []Compression{CompressionRaw, CompressionRLE, CompressionZIP, CompressionZIPPrediction}

	for _, comp := range comps {
		for _, depth := range depths {
			for _, d := range dims {
				width, height := d[0], d[1]
				rows := sampleRows(width, height, depth)

				encoded, err := EncodeChannel(comp, rows, width, height, depth, false)
				require.NoErrorf(t, err, "encode comp=%v depth=%d dims=%v", comp, depth, d)

				decoded, err := DecodeChannel(comp, encoded, width, height, depth, false)
				require.NoErrorf(t, err, "decode comp=%v depth=%d dims=%v", comp, depth, d)

				assert.Equalf(t, rows, decoded, "round trip mismatch comp=%v depth=%d dims=%v", comp, depth, d)
			}
		}
	}
}

// TestChannelCodec16BitPredictionTrueCarry pins down the true-u16 delta
// semantics: sample0=0x00FF, delta=0x0001 must decode to sample1=0x0100,
// not 0x0000 (which is what a byte-wise-at-stride-2 filter would yield).
func TestChannelCodec16BitPredictionTrueCarry(t *testing.T) {
	row := []byte{0x00, 0xFF, 0x00, 0x01}
	undeltaPrediction(row, 2, 1, 16)
	assert.Equal(t, []byte{0x00, 0xFF, 0x01, 0x00}, row)
}

func TestChannelCodec16BitPredictionRoundTrip(t *testing.T) {
	original := []byte{0x12, 0x34, 0xFF, 0xFF, 0x00, 0x01, 0x80, 0x00}
	row := append([]byte(nil), original...)

	deltaPrediction(row, 4, 1, 16)
	undeltaPrediction(row, 4, 1, 16)

	assert.Equal(t, original, row)
}

func TestDecodePackBitsLiteralRunOverrunRejected(t *testing.T) {
	// control byte 5 claims a 6-byte literal run, but only 4 bytes of
	// declared output remain.
	src := []byte{5, 1, 2, 3, 4, 5, 6}
	_, err := decodePackBits(src, 4)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestDecodePackBitsRepeatRunOverrunRejected(t *testing.T) {
	// control byte -10 claims 11 repeats of the following byte, far more
	// than the declared 3-byte output.
	src := []byte{byte(int8(-10)), 0xAB}
	_, err := decodePackBits(src, 3)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestDecodePackBitsLiteralRunSourceOverrun(t *testing.T) {
	// control byte claims 5 literal bytes but the source only has 2.
	src := []byte{4, 1, 2}
	_, err := decodePackBits(src, 10)
	require.Error(t, err)
}

func TestDecodePackBitsBasic(t *testing.T) {
	// literal run "AB" (n=1 -> 2 bytes), then repeat run of 'C' x4 (n=-3).
	src := []byte{1, 'A', 'B', byte(int8(-3)), 'C'}
	out, err := decodePackBits(src, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABCCCC"), out)
}

func TestDecodePackBitsUnderrunZeroPads(t *testing.T) {
	src := []byte{0, 'X'}
	out, err := decodePackBits(src, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{'X', 0, 0, 0}, out)
}

func TestEncodeDecodePackBitsRoundTrip(t *testing.T) {
	rows := []byte{1, 1, 1, 1, 1, 2, 3, 4, 9, 9, 9}
	packed := encodePackBits(rows)
	out, err := decodePackBits(packed, len(rows))
	require.NoError(t, err)
	assert.Equal(t, rows, out)
}

func TestDecodeChannelRawTooShort(t *testing.T) {
	_, err := DecodeChannel(CompressionRaw, []byte{1, 2}, 4, 1, 8, false)
	require.Error(t, err)
}

func TestDecodeChannelUnknownCompression(t *testing.T) {
	_, err := DecodeChannel(Compression(99), nil, 1, 1, 8, false)
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
}

func TestDecodeRLEChannelBigAndSmallCounts(t *testing.T) {
	width, height := 4, 2
	rows := sampleRows(width, height, 8)

	encodedSmall, err := EncodeChannel(CompressionRLE, rows, width, height, 8, false)
	require.NoError(t, err)
	decodedSmall, err := DecodeChannel(CompressionRLE, encodedSmall, width, height, 8, false)
	require.NoError(t, err)
	assert.Equal(t, rows, decodedSmall)

	encodedBig, err := EncodeChannel(CompressionRLE, rows, width, height, 8, true)
	require.NoError(t, err)
	decodedBig, err := DecodeChannel(CompressionRLE, encodedBig, width, height, 8, true)
	require.NoError(t, err)
	assert.Equal(t, rows, decodedBig)
}
