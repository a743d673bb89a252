package psd

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ChannelInfo is one channel's id and compressed-data length, as listed in
// a layer record before the per-channel pixel data itself.
type ChannelInfo struct {
	ID     int16 // 0=R/Gray,1=G,2=B,-1=transparency mask,-2=user mask,-3=real user mask
	Length uint64
}

// ChannelImage is one channel's on-disk (still compressed) bytes plus the
// compression kind they were stored under, which WriteLayerChannelData
// writes back unchanged; Decode decompresses them on demand.
type ChannelImage struct {
	Info        ChannelInfo
	Compression Compression
	Raw         []byte // on-disk bytes, compressed
	decoded     []byte // lazily populated by Decode
	width       int
	height      int
	depth       int
}

// Decode lazily decompresses the channel into width*height (depth-aware)
// bytes of scanline data, caching the result.
func (c *ChannelImage) Decode(big bool) ([]byte, error) {
	if c.decoded != nil {
		return c.decoded, nil
	}
	out, err := DecodeChannel(c.Compression, c.Raw, c.width, c.height, c.depth, big)
	if err != nil {
		return nil, err
	}
	c.decoded = out
	return out, nil
}

// BlendingRange is one (black-in, white-in) / (black-out, white-out) pair
// of the layer's gray or per-channel blend range sliders.
type BlendingRange struct {
	BlackIn, WhiteIn   [2]byte
	BlackOut, WhiteOut [2]byte
}

// Layer is one entry of the flat layer record list (component I). The
// nested group structure is a separate projection built by tree.go.
type Layer struct {
	Bounds   Rectangle
	Channels []ChannelInfo

	BlendMode string // 4-byte blend-mode key, e.g. "norm", "mul "
	Opacity   byte
	Clipping  byte // 0=base, 1=non-base
	Flags     byte

	Mask *LayerMaskData

	GrayBlendingRange BlendingRange
	ChannelRanges     []BlendingRange

	Name string // legacy Pascal name (Mac Roman, <=31 bytes)

	TaggedBlocks []TaggedBlock

	// Decoded convenience fields, populated from TaggedBlocks by
	// EnhanceLayer (layer_info.go).
	UnicodeName    string
	LayerID        int32
	FillOpacity    byte
	SectionDivider *SectionDividerInfo
	VectorMaskInfo *VectorMask
	TypeTool       *TypeToolInfo
	Effects        *LayerEffects
	Adjustment     Adjustment

	// ChannelData holds the compressed channel pixel streams, populated by
	// ReadLayerChannelData once channel lengths are known.
	ChannelData []ChannelImage
}

func (l *Layer) Width() int  { return int(l.Bounds.Right - l.Bounds.Left) }
func (l *Layer) Height() int { return int(l.Bounds.Bottom - l.Bounds.Top) }

func (l *Layer) Visible() bool { return l.Flags&layerFlagHidden == 0 }

const (
	layerFlagTransparencyProtected = 1 << 0
	layerFlagHidden                = 1 << 1
	layerFlagObsoleteBit4          = 1 << 2
	layerFlagPixelDataIrrelevant   = 1 << 3 // only meaningful if bit4 also set
)

// ReadLayerRecord parses one layer record (bounds, channel list, blend
// fields, mask, blending ranges, name, and additional layer info).
func ReadLayerRecord(r *Reader, big bool) (*Layer, error) {
	l := &Layer{}

	top, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "layer top")
	}
	left, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "layer left")
	}
	bottom, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "layer bottom")
	}
	right, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "layer right")
	}
	l.Bounds = Rectangle{Top: top, Left: left, Bottom: bottom, Right: right}

	numChannels, err := r.ReadUint16()
	if err != nil {
		return nil, wrapf(err, "layer channel count")
	}
	l.Channels = make([]ChannelInfo, numChannels)
	for i := range l.Channels {
		id, err := r.ReadInt16()
		if err != nil {
			return nil, wrapf(err, "channel %d id", i)
		}
		length, err := r.ReadLength(big)
		if err != nil {
			return nil, wrapf(err, "channel %d length", i)
		}
		l.Channels[i] = ChannelInfo{ID: id, Length: length}
	}

	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "layer", r.Tell(), errors.Errorf("bad blend signature %q", sig))
	}

	blendMode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	l.BlendMode = string(blendMode)

	opacity, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	l.Opacity = opacity

	clipping, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	l.Clipping = clipping

	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	l.Flags = flags

	if _, err := r.ReadByte(); err != nil { // filler, must be zero
		return nil, err
	}

	extraLen, err := r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "layer extra data length")
	}
	extraEnd := r.Tell() + int64(extraLen)

	maskSize, err := r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "layer mask size")
	}
	mask, err := ReadLayerMaskData(r, maskSize)
	if err != nil {
		return nil, wrapf(err, "layer mask data")
	}
	l.Mask = mask

	blendRangeSize, err := r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "blending ranges size")
	}
	if err := readBlendingRanges(r, l, blendRangeSize); err != nil {
		return nil, wrapf(err, "blending ranges")
	}

	name, err := r.ReadPascalString(4)
	if err != nil {
		return nil, wrapf(err, "layer name")
	}
	l.Name = name

	if remaining := extraEnd - r.Tell(); remaining > 0 {
		blocks, err := ReadTaggedBlocks(r, extraEnd, big)
		if err != nil {
			return nil, wrapf(err, "layer additional info")
		}
		l.TaggedBlocks = blocks
	}

	if pos := r.Tell(); pos < extraEnd {
		if err := r.Skip(extraEnd - pos); err != nil {
			return nil, err
		}
	}

	if err := EnhanceLayer(l); err != nil {
		return nil, wrapf(err, "layer additional info decode")
	}

	return l, nil
}

func readBlendingRanges(r *Reader, l *Layer, size uint32) error {
	if size == 0 {
		return nil
	}
	end := r.Tell() + int64(size)

	readRange := func() (BlendingRange, error) {
		var br BlendingRange
		for _, dst := range []*[2]byte{&br.BlackIn, &br.WhiteIn, &br.BlackOut, &br.WhiteOut} {
			b, err := r.ReadBytes(2)
			if err != nil {
				return br, err
			}
			dst[0], dst[1] = b[0], b[1]
		}
		return br, nil
	}

	gray, err := readRange()
	if err != nil {
		return err
	}
	l.GrayBlendingRange = gray

	for r.Tell() < end {
		cr, err := readRange()
		if err != nil {
			return err
		}
		l.ChannelRanges = append(l.ChannelRanges, cr)
	}
	return nil
}

// ReadLayerChannelData reads every channel's compression id and compressed
// pixel bytes for the layer, in channel-info order, recording the
// widths/heights derived from the layer's own bounds for a later Decode.
func ReadLayerChannelData(r *Reader, l *Layer, depth int, big bool) error {
	l.ChannelData = make([]ChannelImage, len(l.Channels))
	width, height := l.Width(), l.Height()

	for i, info := range l.Channels {
		if info.Length < 2 {
			l.ChannelData[i] = ChannelImage{Info: info, width: width, height: height, depth: depth}
			if info.Length > 0 {
				if err := r.Skip(int64(info.Length)); err != nil {
					return err
				}
			}
			continue
		}
		compID, err := r.ReadUint16()
		if err != nil {
			return wrapf(err, "channel %d compression id", i)
		}
		dataLen := int64(info.Length) - 2
		data, err := r.ReadBytes(int(dataLen))
		if err != nil {
			return wrapf(err, "channel %d data", i)
		}
		l.ChannelData[i] = ChannelImage{
			Info:        info,
			Compression: Compression(compID),
			Raw:         data,
			width:       width,
			height:      height,
			depth:       depth,
		}
	}
	return nil
}

// WriteLayerRecord is the write-side inverse of ReadLayerRecord.
func WriteLayerRecord(w *Writer, l *Layer, big bool) error {
	if err := w.WriteInt32(l.Bounds.Top); err != nil {
		return err
	}
	if err := w.WriteInt32(l.Bounds.Left); err != nil {
		return err
	}
	if err := w.WriteInt32(l.Bounds.Bottom); err != nil {
		return err
	}
	if err := w.WriteInt32(l.Bounds.Right); err != nil {
		return err
	}

	if err := w.WriteUint16(uint16(len(l.Channels))); err != nil {
		return err
	}
	for _, ch := range l.Channels {
		if err := w.WriteInt16(ch.ID); err != nil {
			return err
		}
		if err := w.WriteLength(big, ch.Length); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(l.BlendMode)); err != nil {
		return err
	}
	if err := w.WriteByte(l.Opacity); err != nil {
		return err
	}
	if err := w.WriteByte(l.Clipping); err != nil {
		return err
	}
	if err := w.WriteByte(l.Flags); err != nil {
		return err
	}
	if err := w.WritePad(1); err != nil { // filler
		return err
	}

	return w.LengthBlock(false, func() error {
		if err := writeLayerMaskData(w, l.Mask); err != nil {
			return err
		}
		if err := writeBlendingRanges(w, l); err != nil {
			return err
		}
		if err := w.WritePascalString(l.Name, 4); err != nil {
			return err
		}
		return WriteTaggedBlocks(w, l.TaggedBlocks, big)
	})
}

func writeLayerMaskData(w *Writer, m *LayerMaskData) error {
	if m == nil || !m.Present {
		return w.WriteUint32(0)
	}
	return w.LengthBlock(false, func() error {
		if err := w.WriteInt32(m.Bounds.Top); err != nil {
			return err
		}
		if err := w.WriteInt32(m.Bounds.Left); err != nil {
			return err
		}
		if err := w.WriteInt32(m.Bounds.Bottom); err != nil {
			return err
		}
		if err := w.WriteInt32(m.Bounds.Right); err != nil {
			return err
		}
		if err := w.WriteByte(m.DefaultColor); err != nil {
			return err
		}
		if err := w.WriteByte(m.Flags); err != nil {
			return err
		}
		if !m.HasRealMask {
			return w.WritePad(2) // pad the 20-byte record out
		}
		if err := w.WriteByte(m.RealFlags); err != nil {
			return err
		}
		if err := w.WriteByte(m.RealDefault); err != nil {
			return err
		}
		if err := w.WriteInt32(m.RealBounds.Top); err != nil {
			return err
		}
		if err := w.WriteInt32(m.RealBounds.Left); err != nil {
			return err
		}
		if err := w.WriteInt32(m.RealBounds.Bottom); err != nil {
			return err
		}
		if err := w.WriteInt32(m.RealBounds.Right); err != nil {
			return err
		}
		if m.Flags&maskFlagParamsPresent == 0 {
			return nil
		}
		var bits byte
		if m.UserMaskDensity != nil {
			bits |= 1
		}
		if m.UserMaskFeather != nil {
			bits |= 2
		}
		if m.RealMaskDensity != nil {
			bits |= 4
		}
		if m.RealMaskFeather != nil {
			bits |= 8
		}
		if err := w.WriteByte(bits); err != nil {
			return err
		}
		if m.UserMaskDensity != nil {
			if err := w.WriteFloat64(float64(*m.UserMaskDensity)); err != nil {
				return err
			}
		}
		if m.UserMaskFeather != nil {
			if err := w.WriteFloat64(*m.UserMaskFeather); err != nil {
				return err
			}
		}
		if m.RealMaskDensity != nil {
			if err := w.WriteFloat64(float64(*m.RealMaskDensity)); err != nil {
				return err
			}
		}
		if m.RealMaskFeather != nil {
			if err := w.WriteFloat64(*m.RealMaskFeather); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeBlendingRanges(w *Writer, l *Layer) error {
	return w.LengthBlock(false, func() error {
		writeRange := func(br BlendingRange) error {
			for _, pair := range [][2]byte{br.BlackIn, br.WhiteIn, br.BlackOut, br.WhiteOut} {
				if _, err := w.Write(pair[:]); err != nil {
					return err
				}
			}
			return nil
		}
		if err := writeRange(l.GrayBlendingRange); err != nil {
			return err
		}
		for _, cr := range l.ChannelRanges {
			if err := writeRange(cr); err != nil {
				return err
			}
		}
		return nil
	})
}

// ToImage decodes the layer's channel data into an 8-bit RGBA image for
// the best-effort preview compositor (raster rendering is otherwise out
// of this library's scope, per spec.md's Non-goals). Only 8-bit-per-
// channel data is supported; any other depth yields an error, which the
// renderer passes on to its caller. Channels 0, 1 and 2 are read as red,
// green and blue (a lone channel 0 as gray); the document's color mode is
// not consulted.
func (l *Layer) ToImage(big bool) (*image.RGBA, error) {
	width, height := l.Width(), l.Height()
	if width <= 0 || height <= 0 {
		return nil, nil
	}

	var red, green, blue, alpha []byte
	for i, info := range l.Channels {
		if i >= len(l.ChannelData) {
			break
		}
		if d := l.ChannelData[i].depth; d != 8 {
			return nil, errors.Errorf("layer channel %d: %d-bit depth is not supported for rendering", info.ID, d)
		}
		plane, err := l.ChannelData[i].Decode(big)
		if err != nil {
			return nil, wrapf(err, "layer channel %d", info.ID)
		}
		switch info.ID {
		case 0:
			red = plane
		case 1:
			green = plane
		case 2:
			blue = plane
		case -1, -2:
			if alpha == nil {
				alpha = plane
			}
		}
	}
	if red == nil {
		return nil, errors.New("layer has no color channel data to render")
	}
	if green == nil {
		green = red
	}
	if blue == nil {
		blue = red
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := y*width + x
			a := byte(255)
			if alpha != nil && off < len(alpha) {
				a = alpha[off]
			}
			var r, g, b byte
			if off < len(red) {
				r = red[off]
			}
			if off < len(green) {
				g = green[off]
			}
			if off < len(blue) {
				b = blue[off]
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: a})
		}
	}
	return img, nil
}

// WriteLayerChannelData is the write-side inverse of ReadLayerChannelData.
func WriteLayerChannelData(w *Writer, l *Layer) error {
	for _, ci := range l.ChannelData {
		if ci.Raw == nil {
			continue
		}
		if err := w.WriteUint16(uint16(ci.Compression)); err != nil {
			return err
		}
		if _, err := w.Write(ci.Raw); err != nil {
			return err
		}
	}
	return nil
}
