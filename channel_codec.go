package psd

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Compression identifies how a single channel's (or the merged image's)
// raster data is encoded on disk.
type Compression uint16

const (
	CompressionRaw Compression = iota
	CompressionRLE
	CompressionZIP
	CompressionZIPPrediction
)

func (c Compression) String() string {
	switch c {
	case CompressionRaw:
		return "raw"
	case CompressionRLE:
		return "rle"
	case CompressionZIP:
		return "zip"
	case CompressionZIPPrediction:
		return "zip-prediction"
	default:
		return "unknown"
	}
}

// DecodeChannel decompresses raw on-disk channel bytes into `rows*rowBytes`
// bytes of scanline data, dispatching on compression and, for the
// prediction variant, on depth. width/height are in pixels; depth is bits
// per sample (1, 8, 16, or 32).
func DecodeChannel(comp Compression, data []byte, width, height, depth int, big bool) ([]byte, error) {
	rowBytes := channelRowBytes(width, depth)
	want := rowBytes * height

	switch comp {
	case CompressionRaw:
		if len(data) < want {
			return nil, newParseError(ErrKindTruncated, "channel", 0, errors.Errorf("raw channel needs %d bytes, has %d", want, len(data)))
		}
		return data[:want], nil

	case CompressionRLE:
		return decodeRLEChannel(data, rowBytes, height, big)

	case CompressionZIP:
		out, err := zlibInflate(data)
		if err != nil {
			return nil, wrapf(err, "zip channel")
		}
		if len(out) < want {
			return nil, newParseError(ErrKindTruncated, "channel", 0, errors.Errorf("zip channel needs %d bytes, has %d", want, len(out)))
		}
		return out[:want], nil

	case CompressionZIPPrediction:
		out, err := zlibInflate(data)
		if err != nil {
			return nil, wrapf(err, "zip+prediction channel")
		}
		if len(out) < want {
			return nil, newParseError(ErrKindTruncated, "channel", 0, errors.Errorf("zip+prediction channel needs %d bytes, has %d", want, len(out)))
		}
		out = out[:want]
		undeltaPrediction(out, width, height, depth)
		return out, nil

	default:
		return nil, newParseError(ErrKindUnsupported, "channel", 0, errors.Errorf("unknown compression %d", comp))
	}
}

// EncodeChannel compresses rows of scanline data (as produced by
// DecodeChannel) back into on-disk bytes for the given compression kind.
func EncodeChannel(comp Compression, rows []byte, width, height, depth int, big bool) ([]byte, error) {
	switch comp {
	case CompressionRaw:
		return rows, nil
	case CompressionRLE:
		return encodeRLEChannel(rows, channelRowBytes(width, depth), height, big)
	case CompressionZIP:
		return zlibDeflate(rows)
	case CompressionZIPPrediction:
		buf := append([]byte(nil), rows...)
		deltaPrediction(buf, width, height, depth)
		return zlibDeflate(buf)
	default:
		return nil, newParseError(ErrKindUnsupported, "channel", 0, errors.Errorf("unknown compression %d", comp))
	}
}

// channelRowBytes is the number of bytes one scanline of a single channel
// occupies at the given bit depth. 1-bit data is packed 8 samples/byte;
// everything else is sample-aligned.
func channelRowBytes(width, depth int) int {
	switch depth {
	case 1:
		return (width + 7) / 8
	case 8:
		return width
	case 16:
		return width * 2
	case 32:
		return width * 4
	default:
		return width
	}
}

// decodeRLEChannel reads the per-row byte-count table (u16 for PSD, u32 for
// PSB, per spec.md) followed by that many PackBits-compressed bytes per
// row, and unpacks each row to rowBytes bytes.
func decodeRLEChannel(data []byte, rowBytes, height int, big bool) ([]byte, error) {
	r := bytes.NewReader(data)
	counts := make([]uint32, height)
	for i := range counts {
		if big {
			var v uint32
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, newParseError(ErrKindTruncated, "rle-table", int64(i), err)
			}
			counts[i] = v
		} else {
			var v uint16
			if err := binary.Read(r, binary.BigEndian, &v); err != nil {
				return nil, newParseError(ErrKindTruncated, "rle-table", int64(i), err)
			}
			counts[i] = uint32(v)
		}
	}

	out := make([]byte, 0, rowBytes*height)
	for i, n := range counts {
		rowCompressed := make([]byte, n)
		if _, err := io.ReadFull(r, rowCompressed); err != nil {
			return nil, newParseError(ErrKindTruncated, "rle-row", int64(i), err)
		}
		row, err := decodePackBits(rowCompressed, rowBytes)
		if err != nil {
			return nil, wrapf(err, "rle row %d", i)
		}
		out = append(out, row...)
	}
	return out, nil
}

func encodeRLEChannel(rows []byte, rowBytes, height int, big bool) ([]byte, error) {
	var header bytes.Buffer
	var body bytes.Buffer
	for i := 0; i < height; i++ {
		start := i * rowBytes
		end := start + rowBytes
		if end > len(rows) {
			end = len(rows)
		}
		packed := encodePackBits(rows[start:end])
		if big {
			binary.Write(&header, binary.BigEndian, uint32(len(packed)))
		} else {
			binary.Write(&header, binary.BigEndian, uint16(len(packed)))
		}
		body.Write(packed)
	}
	return append(header.Bytes(), body.Bytes()...), nil
}

// decodePackBits decodes Adobe's PackBits variant: signed control byte n;
// n in [0,127] copies the next n+1 literal bytes; n in [-127,-1] repeats
// the following single byte (-n)+1 times; n == -128 is a no-op. A run that
// would produce more than `want` bytes of output is rejected outright
// (ErrKindMalformed) rather than clamped, since a crafted control byte
// claiming far more output than the channel declares is exactly the
// malicious-overrun case this decoder must refuse, not silently truncate.
func decodePackBits(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	i := 0
	for i < len(src) && len(out) < want {
		n := int8(src[i])
		i++
		switch {
		case n >= 0:
			count := int(n) + 1
			if i+count > len(src) {
				return nil, errors.Errorf("packbits literal run overruns source")
			}
			if count > want-len(out) {
				return nil, newParseError(ErrKindMalformed, "packbits", int64(i), errors.Errorf("literal run of %d bytes overruns declared output of %d bytes", count, want))
			}
			out = append(out, src[i:i+count]...)
			i += count
		case n > -128:
			count := int(-n) + 1
			if i >= len(src) {
				return nil, errors.Errorf("packbits repeat run missing byte")
			}
			b := src[i]
			i++
			if count > want-len(out) {
				return nil, newParseError(ErrKindMalformed, "packbits", int64(i), errors.Errorf("repeat run of %d bytes overruns declared output of %d bytes", count, want))
			}
			for j := 0; j < count; j++ {
				out = append(out, b)
			}
		default:
			// -128: no-op per the PackBits spec.
		}
	}
	if len(out) < want {
		out = append(out, make([]byte, want-len(out))...)
	}
	return out, nil
}

// encodePackBits is a simple, correct (not optimal) PackBits encoder: runs
// of 3+ identical bytes are repeat-encoded, everything else goes out as a
// literal run capped at 128 bytes.
func encodePackBits(src []byte) []byte {
	var out bytes.Buffer
	i := 0
	for i < len(src) {
		runLen := 1
		for i+runLen < len(src) && src[i+runLen] == src[i] && runLen < 128 {
			runLen++
		}
		if runLen >= 3 {
			out.WriteByte(byte(int8(-(runLen - 1))))
			out.WriteByte(src[i])
			i += runLen
			continue
		}
		// Gather a literal run up to the next qualifying repeat or 128 bytes.
		litStart := i
		i++
		for i < len(src) && i-litStart < 128 {
			if i+2 < len(src) && src[i] == src[i+1] && src[i+1] == src[i+2] {
				break
			}
			i++
		}
		lit := src[litStart:i]
		out.WriteByte(byte(len(lit) - 1))
		out.Write(lit)
	}
	return out.Bytes()
}

func zlibInflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapf(err, "zlib header")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, wrapf(err, "zlib inflate")
	}
	return out, nil
}

func zlibDeflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// undeltaPrediction reverses the horizontal word/dword delta filter applied
// before deflate for compression id 3. At 8-bit depth each byte in a row is
// the difference from its predecessor. At 16-bit depth a row is big-endian
// u16 samples and the delta is a true 16-bit cumulative sum mod 2^16 (the
// carry from the low byte into the high byte matters — this is not two
// independent byte-planes), and at 32-bit depth Photoshop stores each row
// as four separate per-byte planes (most significant byte plane first)
// before delta-encoding each plane — an undocumented layout that both
// libpsd and psd-tools replicate.
func undeltaPrediction(data []byte, width, height, depth int) {
	switch depth {
	case 8:
		rowBytes := width
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			for i := 1; i < len(row); i++ {
				row[i] += row[i-1]
			}
		}
	case 16:
		rowBytes := width * 2
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			for i := 2; i < len(row); i += 2 {
				prev := binary.BigEndian.Uint16(row[i-2 : i])
				cur := binary.BigEndian.Uint16(row[i : i+2])
				binary.BigEndian.PutUint16(row[i:i+2], cur+prev)
			}
		}
	case 32:
		rowBytes := width * 4
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			undeltaPlanar32(row, width)
		}
	}
}

func deltaPrediction(data []byte, width, height, depth int) {
	switch depth {
	case 8:
		rowBytes := width
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			for i := len(row) - 1; i > 0; i-- {
				row[i] -= row[i-1]
			}
		}
	case 16:
		rowBytes := width * 2
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			for i := len(row) - 2; i >= 2; i -= 2 {
				prev := binary.BigEndian.Uint16(row[i-2 : i])
				cur := binary.BigEndian.Uint16(row[i : i+2])
				binary.BigEndian.PutUint16(row[i:i+2], cur-prev)
			}
		}
	case 32:
		rowBytes := width * 4
		for y := 0; y < height; y++ {
			row := data[y*rowBytes : y*rowBytes+rowBytes]
			deltaPlanar32(row, width)
		}
	}
}

// The 32-bit row layout is four consecutive byte-planes (all the MSBs,
// then all the next bytes, and so on), each independently delta-decoded,
// then re-interleaved into big-endian 4-byte samples.
func undeltaPlanar32(row []byte, width int) {
	for p := 0; p < 4; p++ {
		plane := row[p*width : p*width+width]
		for i := 1; i < len(plane); i++ {
			plane[i] += plane[i-1]
		}
	}
	deinterleavePlanes32(row, width)
}

func deltaPlanar32(row []byte, width int) {
	interleavePlanes32(row, width)
	for p := 0; p < 4; p++ {
		plane := row[p*width : p*width+width]
		for i := len(plane) - 1; i > 0; i-- {
			plane[i] -= plane[i-1]
		}
	}
}

// deinterleavePlanes32 rewrites row in place from [p0...][p1...][p2...][p3...]
// byte-plane order into big-endian interleaved sample order.
func deinterleavePlanes32(row []byte, width int) {
	out := make([]byte, len(row))
	for x := 0; x < width; x++ {
		for p := 0; p < 4; p++ {
			out[x*4+p] = row[p*width+x]
		}
	}
	copy(row, out)
}

func interleavePlanes32(row []byte, width int) {
	out := make([]byte, len(row))
	for x := 0; x < width; x++ {
		for p := 0; p < 4; p++ {
			out[p*width+x] = row[x*4+p]
		}
	}
	copy(row, out)
}
