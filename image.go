package psd

import (
	"compress/zlib"
	"io"

	"github.com/pkg/errors"
)

// MergedImage is the final, flattened preview image stored at the end of
// the container (component J): one compression method followed by one
// channel's worth of scanlines per header channel, in channel order.
// Generalized beyond the teacher's RGB(3ch)/Grayscale(1ch)-only handling
// to any channel count and bit depth the header declares (CMYK,
// Multichannel, Lab, plus an optional trailing alpha channel).
type MergedImage struct {
	Width, Height int
	Depth         int
	Mode          ColorMode
	Compression   Compression

	// Channels holds one decoded plane per header channel, each
	// Width*Height samples (packed per channelRowBytes rules for 1-bit
	// depth).
	Channels [][]byte
}

// ReadMergedImage parses the trailing merged-image section using the
// already-parsed header for geometry, channel count, depth, and version.
func ReadMergedImage(r *Reader, h *Header) (*MergedImage, error) {
	compID, err := r.ReadUint16()
	if err != nil {
		return nil, wrapf(err, "merged image compression")
	}
	comp := Compression(compID)

	img := &MergedImage{
		Width:       h.Width(),
		Height:      h.Height(),
		Depth:       int(h.Depth),
		Mode:        h.Mode,
		Compression: comp,
	}

	channels := int(h.Channels)
	img.Channels = make([][]byte, channels)
	rowBytes := channelRowBytes(img.Width, img.Depth)
	planeBytes := rowBytes * img.Height

	switch comp {
	case CompressionRaw:
		for ch := 0; ch < channels; ch++ {
			raw, err := r.ReadBytes(planeBytes)
			if err != nil {
				return nil, wrapf(err, "merged image channel %d", ch)
			}
			img.Channels[ch] = raw
		}

	case CompressionZIP, CompressionZIPPrediction:
		// Unlike per-layer channels, the merged image's ZIP streams carry
		// no explicit byte length: each channel's zlib stream is
		// self-terminating, so it is read straight off the shared Reader
		// (which implements io.ByteReader, keeping flate's internal
		// buffering from over-consuming into the next channel's stream).
		for ch := 0; ch < channels; ch++ {
			plane, err := readZlibPlane(r, planeBytes)
			if err != nil {
				return nil, wrapf(err, "merged image channel %d", ch)
			}
			if comp == CompressionZIPPrediction {
				undeltaPrediction(plane, img.Width, img.Height, img.Depth)
			}
			img.Channels[ch] = plane
		}

	case CompressionRLE:
		byteCounts := make([][]uint16, channels)
		for ch := 0; ch < channels; ch++ {
			byteCounts[ch] = make([]uint16, img.Height)
			for row := 0; row < img.Height; row++ {
				count, err := r.ReadUint16()
				if err != nil {
					return nil, wrapf(err, "merged image row length ch=%d row=%d", ch, row)
				}
				byteCounts[ch][row] = count
			}
		}
		for ch := 0; ch < channels; ch++ {
			var total int
			for _, c := range byteCounts[ch] {
				total += int(c)
			}
			raw, err := r.ReadBytes(total)
			if err != nil {
				return nil, wrapf(err, "merged image channel %d data", ch)
			}
			decoded, err := decodeRLERows(raw, byteCounts[ch], rowBytes)
			if err != nil {
				return nil, wrapf(err, "merged image channel %d decode", ch)
			}
			img.Channels[ch] = decoded
		}

	default:
		return nil, newParseError(ErrKindUnsupported, "merged-image", r.Tell(), errors.Errorf("unsupported compression %d", comp))
	}

	return img, nil
}

// readZlibPlane decompresses exactly one zlib member off r, reading all
// the way to the member's own EOF (which also consumes its Adler32
// trailer) so the stream is left positioned exactly at the next channel.
func readZlibPlane(r *Reader, planeBytes int) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, wrapf(err, "zlib header")
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, wrapf(err, "zlib inflate")
	}
	if len(out) < planeBytes {
		out = append(out, make([]byte, planeBytes-len(out))...)
	}
	return out[:planeBytes], nil
}

// decodeRLERows unpacks a single channel's concatenated PackBits rows
// given each row's compressed length, producing rowBytes*len(byteCounts)
// bytes.
func decodeRLERows(data []byte, byteCounts []uint16, rowBytes int) ([]byte, error) {
	out := make([]byte, 0, rowBytes*len(byteCounts))
	pos := 0
	for i, n := range byteCounts {
		end := pos + int(n)
		if end > len(data) {
			return nil, newParseError(ErrKindTruncated, "rle-row", int64(i), errors.Errorf("row %d overruns channel data", i))
		}
		row, err := decodePackBits(data[pos:end], rowBytes)
		if err != nil {
			return nil, wrapf(err, "rle row %d", i)
		}
		out = append(out, row...)
		pos = end
	}
	return out, nil
}

// RGBA returns an interleaved 8-bit-per-sample RGBA rendering of the
// merged image, converting from the document's native channel layout.
// This is the one pixel-producing helper kept at the core-package level
// (the rest of compositing lives in renderer.go and blend_modes.go) because
// every caller that just wants "a displayable preview" needs it without
// pulling in the full blend-mode machinery.
func (img *MergedImage) RGBA() []byte {
	out := make([]byte, img.Width*img.Height*4)
	sample := func(ch int, i int) byte {
		if ch >= len(img.Channels) || img.Channels[ch] == nil {
			return 0
		}
		if img.Depth == 8 {
			if i < len(img.Channels[ch]) {
				return img.Channels[ch][i]
			}
			return 0
		}
		return downsampleTo8(img.Channels[ch], i, img.Depth)
	}

	baseChannels := channelCountFor(img.Mode)

	for i := 0; i < img.Width*img.Height; i++ {
		var r, g, b, a byte = 0, 0, 0, 255
		switch {
		case img.Mode == ColorModeRGB && len(img.Channels) >= 3:
			r, g, b = sample(0, i), sample(1, i), sample(2, i)
		case img.Mode == ColorModeCMYK && len(img.Channels) >= 4:
			c, m, y, k := sample(0, i), sample(1, i), sample(2, i), sample(3, i)
			r = 255 - min8(255, addSat(c, k))
			g = 255 - min8(255, addSat(m, k))
			b = 255 - min8(255, addSat(y, k))
		default: // Grayscale, Bitmap, Duotone, Lab (L only), Multichannel, Indexed
			r = sample(0, i)
			g, b = r, r
		}
		if len(img.Channels) > baseChannels {
			a = sample(baseChannels, i)
		}
		out[i*4+0] = r
		out[i*4+1] = g
		out[i*4+2] = b
		out[i*4+3] = a
	}
	return out
}

func channelCountFor(m ColorMode) int {
	switch m {
	case ColorModeRGB, ColorModeLab, ColorModeMultichannel:
		return 3
	case ColorModeCMYK:
		return 4
	default: // Bitmap, Grayscale, Indexed, Duotone
		return 1
	}
}

func downsampleTo8(plane []byte, sampleIndex, depth int) byte {
	switch depth {
	case 16:
		off := sampleIndex * 2
		if off+1 >= len(plane) {
			return 0
		}
		v := uint16(plane[off])<<8 | uint16(plane[off+1])
		return byte(v >> 8)
	case 32:
		off := sampleIndex * 4
		if off+3 >= len(plane) {
			return 0
		}
		bits := uint32(plane[off])<<24 | uint32(plane[off+1])<<16 | uint32(plane[off+2])<<8 | uint32(plane[off+3])
		f := mathFloat32frombits(bits)
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		return byte(f * 255)
	case 1:
		byteIdx := sampleIndex / 8
		if byteIdx >= len(plane) {
			return 0
		}
		bit := 7 - uint(sampleIndex%8)
		if plane[byteIdx]>>bit&1 == 1 {
			return 0
		}
		return 255
	default:
		return 0
	}
}

func min8(a, b byte) byte {
	if a < b {
		return a
	}
	return b
}

func addSat(a, b byte) byte {
	sum := int(a) + int(b)
	if sum > 255 {
		return 255
	}
	return byte(sum)
}
