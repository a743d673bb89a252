package psd

import (
	"github.com/pkg/errors"
)

// ColorMode is the document's canonical color mode, as stored in the
// header. Only the eight modes Adobe documents are recognized; anything
// else is kept as the raw numeric value and named "Unknown" by
// ModeName, matching the Non-goal against inventing undocumented modes.
type ColorMode uint16

const (
	ColorModeBitmap ColorMode = iota
	ColorModeGrayscale
	ColorModeIndexed
	ColorModeRGB
	ColorModeCMYK
	colorModeReserved5
	colorModeReserved6
	ColorModeMultichannel
	ColorModeDuotone
	ColorModeLab
)

var colorModeNames = map[ColorMode]string{
	ColorModeBitmap:       "Bitmap",
	ColorModeGrayscale:    "Grayscale",
	ColorModeIndexed:      "Indexed",
	ColorModeRGB:          "RGB",
	ColorModeCMYK:         "CMYK",
	ColorModeMultichannel: "Multichannel",
	ColorModeDuotone:      "Duotone",
	ColorModeLab:          "Lab",
}

func (m ColorMode) String() string {
	if name, ok := colorModeNames[m]; ok {
		return name
	}
	return "Unknown"
}

// Header is the 26-byte fixed document header (component C).
type Header struct {
	Version  uint16 // 1 = PSD, 2 = PSB
	Channels uint16 // 1-56
	Rows     uint32 // height in pixels
	Cols     uint32 // width in pixels
	Depth    uint16 // bits per channel: 1, 8, 16, or 32
	Mode     ColorMode

	// ColorModeData is the raw color-mode table that follows the header:
	// a 256-entry RGB palette for Indexed mode, or duotone curve/ink
	// parameters for Duotone mode. Kept opaque since interpreting the
	// palette is a rasterization concern outside this library's scope.
	ColorModeData []byte
}

// Width returns the document width in pixels.
func (h *Header) Width() int { return int(h.Cols) }

// Height returns the document height in pixels.
func (h *Header) Height() int { return int(h.Rows) }

// ModeName returns the human-readable color mode name.
func (h *Header) ModeName() string { return h.Mode.String() }

// IsBig reports whether this is a PSB (large document format) container,
// which changes several length-field widths throughout the rest of the
// stream (components H, I, J, K).
func (h *Header) IsBig() bool { return h.Version == 2 }

func (h *Header) IsRGB() bool  { return h.Mode == ColorModeRGB }
func (h *Header) IsCMYK() bool { return h.Mode == ColorModeCMYK }

// maxDimension is the documented maximum for each container version:
// 30,000 for PSD, 300,000 for PSB.
func (h *Header) maxDimension() uint32 {
	if h.IsBig() {
		return 300000
	}
	return 30000
}

// ParseHeader reads the fixed 26-byte header plus the color-mode-data
// block that follows it.
func ParseHeader(r *Reader) (*Header, error) {
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapf(err, "header signature")
	}
	if string(sig) != "8BPS" {
		return nil, newParseError(ErrKindMalformed, "header", r.Tell(), errors.Errorf("bad signature %q", sig))
	}

	version, err := r.ReadUint16()
	if err != nil {
		return nil, wrapf(err, "header version")
	}
	if version != 1 && version != 2 {
		return nil, newParseError(ErrKindMalformed, "header", r.Tell(), errors.Errorf("unsupported version %d", version))
	}

	if err := r.Skip(6); err != nil { // reserved, must be zero
		return nil, wrapf(err, "header reserved")
	}

	h := &Header{Version: version}

	if h.Channels, err = r.ReadUint16(); err != nil {
		return nil, wrapf(err, "header channels")
	}
	if h.Channels < 1 || h.Channels > 56 {
		return nil, newParseError(ErrKindMalformed, "header", r.Tell(), errors.Errorf("channel count %d out of [1,56]", h.Channels))
	}

	if h.Rows, err = r.ReadUint32(); err != nil {
		return nil, wrapf(err, "header rows")
	}
	if h.Cols, err = r.ReadUint32(); err != nil {
		return nil, wrapf(err, "header cols")
	}

	if h.Depth, err = r.ReadUint16(); err != nil {
		return nil, wrapf(err, "header depth")
	}
	switch h.Depth {
	case 1, 8, 16, 32:
	default:
		return nil, newParseError(ErrKindMalformed, "header", r.Tell(), errors.Errorf("unsupported depth %d", h.Depth))
	}

	mode, err := r.ReadUint16()
	if err != nil {
		return nil, wrapf(err, "header mode")
	}
	h.Mode = ColorMode(mode)

	if max := h.maxDimension(); h.Rows > max || h.Cols > max {
		return nil, newParseError(ErrKindMalformed, "header", r.Tell(), errors.Errorf("dimensions %dx%d exceed max %d", h.Cols, h.Rows, max))
	}

	colorDataLen, err := r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "color mode data length")
	}
	if colorDataLen > 0 {
		if h.ColorModeData, err = r.ReadBytes(int(colorDataLen)); err != nil {
			return nil, wrapf(err, "color mode data")
		}
	}

	return h, nil
}

// Write serializes the header and its color-mode-data block.
func (h *Header) Write(w *Writer) error {
	if _, err := w.Write([]byte("8BPS")); err != nil {
		return err
	}
	if err := w.WriteUint16(h.Version); err != nil {
		return err
	}
	if err := w.WritePad(6); err != nil {
		return err
	}
	if err := w.WriteUint16(h.Channels); err != nil {
		return err
	}
	if err := w.WriteUint32(h.Rows); err != nil {
		return err
	}
	if err := w.WriteUint32(h.Cols); err != nil {
		return err
	}
	if err := w.WriteUint16(h.Depth); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(h.Mode)); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(h.ColorModeData))); err != nil {
		return err
	}
	_, err := w.Write(h.ColorModeData)
	return err
}
