package psd

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Pattern is a single embedded pattern swatch from a "Patt"/"Pat2"/"Pat3"
// tagged block or the global patterns image resource. Grounded on
// original_source/src/psd_tools/psd/patterns.py.
type Pattern struct {
	Version    int32
	ImageMode  ColorMode
	PointY     int16
	PointX     int16
	Name       string
	PatternID  string
	ColorTable [][3]byte // only set when ImageMode == ColorModeIndexed
	Data       *PatternData
}

// PatternData is the VirtualMemoryArrayList wrapping a pattern's channels.
type PatternData struct {
	Version   int32
	Rectangle [4]int32 // top, left, bottom, right
	Channels  []*PatternChannel
}

// PatternChannel is one VirtualMemoryArray: a single channel's compressed
// pixels plus the geometry needed to decompress them.
type PatternChannel struct {
	Written     bool
	Depth       int32
	Rectangle   [4]int32
	PixelDepth  uint16
	Compression Compression
	Data        []byte
}

// ParsePatterns decodes a "Patt"/"Pat2"/"Pat3" tagged block body: a run of
// individually length-prefixed (u32, padded to 4 bytes) Pattern records
// running to the end of data.
func ParsePatterns(data []byte) ([]*Pattern, error) {
	r := NewReader(bytes.NewReader(data))
	var patterns []*Pattern
	for {
		length, err := r.ReadLength(false)
		if err != nil {
			if err == io.EOF {
				break
			}
			return patterns, nil
		}
		body, err := r.ReadBytes(int(length))
		if err != nil {
			return patterns, wrapf(err, "pattern body")
		}
		if pad := int(length) % 4; pad != 0 {
			if err := r.Skip(int64(4 - pad)); err != nil {
				break
			}
		}
		p, err := parsePattern(body)
		if err != nil {
			return patterns, wrapf(err, "pattern")
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func parsePattern(body []byte) (*Pattern, error) {
	r := NewReader(bytes.NewReader(body))
	p := &Pattern{}

	version, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "version")
	}
	if version != 1 {
		return nil, newParseError(ErrKindMalformed, "pattern", r.Tell(), errors.Errorf("invalid pattern version %d", version))
	}
	p.Version = version

	mode, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "image mode")
	}
	p.ImageMode = ColorMode(mode)

	if p.PointY, err = r.ReadInt16(); err != nil {
		return nil, wrapf(err, "point y")
	}
	if p.PointX, err = r.ReadInt16(); err != nil {
		return nil, wrapf(err, "point x")
	}

	if p.Name, err = r.ReadUnicodeString(); err != nil {
		return nil, wrapf(err, "name")
	}
	if p.PatternID, err = r.ReadPascalString(1); err != nil {
		return nil, wrapf(err, "pattern id")
	}

	if p.ImageMode == ColorModeIndexed {
		table := make([][3]byte, 256)
		for i := range table {
			row, err := r.ReadBytes(3)
			if err != nil {
				return nil, wrapf(err, "color table row %d", i)
			}
			table[i] = [3]byte{row[0], row[1], row[2]}
		}
		if err := r.Skip(4); err != nil {
			return nil, wrapf(err, "color table padding")
		}
		p.ColorTable = table
	}

	p.Data, err = parsePatternData(r)
	if err != nil {
		return nil, wrapf(err, "virtual memory array list")
	}
	return p, nil
}

func parsePatternData(r *Reader) (*PatternData, error) {
	version, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "version")
	}
	if version != 3 {
		return nil, newParseError(ErrKindMalformed, "pattern-data", r.Tell(), errors.Errorf("invalid virtual memory array list version %d", version))
	}

	length, err := r.ReadLength(false)
	if err != nil {
		return nil, wrapf(err, "length")
	}
	body, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, wrapf(err, "body")
	}
	br := NewReader(bytes.NewReader(body))

	pd := &PatternData{Version: version}
	for i := range pd.Rectangle {
		v, err := br.ReadInt32()
		if err != nil {
			return nil, wrapf(err, "rectangle")
		}
		pd.Rectangle[i] = v
	}
	numChannels, err := br.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "channel count")
	}
	// Photoshop always stores two extra channels (a transparency mask and
	// a user mask slot) beyond the color channels the mode implies.
	for i := 0; i < int(numChannels)+2; i++ {
		ch, err := parsePatternChannel(br)
		if err != nil {
			return nil, wrapf(err, "channel %d", i)
		}
		pd.Channels = append(pd.Channels, ch)
	}
	return pd, nil
}

func parsePatternChannel(r *Reader) (*PatternChannel, error) {
	written, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "is-written flag")
	}
	ch := &PatternChannel{Written: written != 0}
	if written == 0 {
		return ch, nil
	}

	length, err := r.ReadLength(false)
	if err != nil {
		return nil, wrapf(err, "length")
	}
	if length == 0 {
		return ch, nil
	}

	depth, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "depth")
	}
	ch.Depth = depth
	for i := range ch.Rectangle {
		v, err := r.ReadInt32()
		if err != nil {
			return nil, wrapf(err, "rectangle")
		}
		ch.Rectangle[i] = v
	}
	pixelDepth, err := r.ReadUint16()
	if err != nil {
		return nil, wrapf(err, "pixel depth")
	}
	ch.PixelDepth = pixelDepth
	compID, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "compression")
	}
	ch.Compression = Compression(compID)

	// 23 = 4(depth) + 16(rectangle) + 2(pixel depth) + 1(compression).
	remaining := int(length) - 23
	if remaining < 0 {
		return nil, newParseError(ErrKindMalformed, "pattern-channel", r.Tell(), errors.Errorf("channel length %d too small for its own header", length))
	}
	ch.Data, err = r.ReadBytes(remaining)
	if err != nil {
		return nil, wrapf(err, "data")
	}
	return ch, nil
}

// Decode decompresses a pattern channel's stored bytes into packed
// scanline data, reusing the same channel compression codecs the merged
// image and per-layer channels use. Pattern rectangles are always
// written with a zero top-left origin, so width/height are read
// straight from rectangle[3]/rectangle[2] rather than a left/top
// difference, matching how the reference implementation's own
// get_data/set_data pair treats the field.
func (c *PatternChannel) Decode() ([]byte, error) {
	if !c.Written {
		return nil, nil
	}
	width := int(c.Rectangle[3])
	height := int(c.Rectangle[2])
	return DecodeChannel(c.Compression, c.Data, width, height, int(c.Depth), false)
}

// WritePatterns serializes a slice of Pattern back into a "Patt" tagged
// block body, length-prefixing and 4-byte-padding each record exactly as
// ParsePatterns expects to read it back.
func WritePatterns(patterns []*Pattern) ([]byte, error) {
	buf := newBufferWriter()
	w := NewWriter(buf)
	for _, p := range patterns {
		if err := w.LengthBlock(false, func() error { return writePattern(w, p) }); err != nil {
			return nil, err
		}
		if pad := int(w.Tell()) % 4; pad != 0 {
			if err := w.WritePad(4 - pad); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func writePattern(w *Writer, p *Pattern) error {
	if err := w.WriteInt32(1); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(p.ImageMode)); err != nil {
		return err
	}
	if err := w.WriteInt16(p.PointY); err != nil {
		return err
	}
	if err := w.WriteInt16(p.PointX); err != nil {
		return err
	}
	if err := w.WriteUnicodeString(p.Name); err != nil {
		return err
	}
	if err := w.WritePascalString(p.PatternID, 1); err != nil {
		return err
	}
	if p.ImageMode == ColorModeIndexed && p.ColorTable != nil {
		for _, row := range p.ColorTable {
			if _, err := w.Write(row[:]); err != nil {
				return err
			}
		}
		if err := w.WritePad(4); err != nil {
			return err
		}
	}
	return writePatternData(w, p.Data)
}

func writePatternData(w *Writer, pd *PatternData) error {
	if err := w.WriteInt32(3); err != nil {
		return err
	}
	return w.LengthBlock(false, func() error {
		for _, v := range pd.Rectangle {
			if err := w.WriteInt32(v); err != nil {
				return err
			}
		}
		if err := w.WriteInt32(int32(len(pd.Channels)) - 2); err != nil {
			return err
		}
		for _, ch := range pd.Channels {
			if err := writePatternChannel(w, ch); err != nil {
				return err
			}
		}
		return nil
	})
}

func writePatternChannel(w *Writer, ch *PatternChannel) error {
	if !ch.Written {
		return w.WriteInt32(0)
	}
	if err := w.WriteInt32(1); err != nil {
		return err
	}
	if ch.Depth == 0 {
		return w.WriteInt32(0)
	}
	return w.LengthBlock(false, func() error {
		if err := w.WriteInt32(ch.Depth); err != nil {
			return err
		}
		for _, v := range ch.Rectangle {
			if err := w.WriteInt32(v); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(ch.PixelDepth); err != nil {
			return err
		}
		if err := w.WriteByte(byte(ch.Compression)); err != nil {
			return err
		}
		_, err := w.Write(ch.Data)
		return err
	})
}
