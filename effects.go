package psd

import (
	"bytes"

	"github.com/pkg/errors"
)

// EffectColor is a tagged color-space sample, as used throughout the
// legacy effects-layer records (component: layer effects). Grounded on
// original_source/src/psd_tools/psd/color.py's Color struct: an id
// naming the space (0 RGB, 1 HSB, 2 CMYK, 7 Lab, 8 Grayscale) followed
// by four 16-bit components (signed for Lab, unsigned otherwise).
type EffectColor struct {
	Space  uint16
	Values [4]int16
}

func readEffectColor(r *Reader) (EffectColor, error) {
	space, err := r.ReadUint16()
	if err != nil {
		return EffectColor{}, err
	}
	c := EffectColor{Space: space}
	for i := range c.Values {
		v, err := r.ReadUint16()
		if err != nil {
			return EffectColor{}, err
		}
		c.Values[i] = int16(v)
	}
	return c, nil
}

func writeEffectColor(w *Writer, c EffectColor) error {
	if err := w.WriteUint16(c.Space); err != nil {
		return err
	}
	for _, v := range c.Values {
		if err := w.WriteUint16(uint16(v)); err != nil {
			return err
		}
	}
	return nil
}

// LayerEffects is the decoded "lrFX"/"lfx2" tagged block: the legacy,
// pre-descriptor encoding of a layer's effect stack (drop shadow, inner
// shadow, outer/inner glow, bevel, solid fill). Photoshop keeps writing
// this alongside the modern descriptor-based "Layer Style Properties"
// for backward compatibility, which is why it is still worth decoding.
// Grounded on original_source/src/psd_tools/psd/effects_layer.py's
// EffectsLayer and per-effect record types.
type LayerEffects struct {
	Version int16

	CommonState *EffectCommonState
	DropShadow  *EffectShadow
	InnerShadow *EffectShadow
	OuterGlow   *EffectGlow
	InnerGlow   *EffectGlow
	Bevel       *EffectBevel
	SolidFill   *EffectSolidFill
}

// EffectCommonState is the "cmnS" record shared by every effect.
type EffectCommonState struct {
	Version int32
	Visible bool
}

// EffectShadow is the "dsdw" (drop shadow) / "isdw" (inner shadow)
// record.
type EffectShadow struct {
	Version         int32
	Blur            int32
	Intensity       int32
	Angle           int32
	Distance        int32
	Color           EffectColor
	BlendMode       string
	Enabled         bool
	UseGlobalAngle  bool
	Opacity         byte
	NativeColor     EffectColor
}

// EffectGlow is the "oglw" (outer glow) / "iglw" (inner glow) record.
// Invert and NativeColor are only present for version >= 2; HasV2
// reports whether they were read.
type EffectGlow struct {
	Version     int32
	Blur        int32
	Intensity   int32
	Color       EffectColor
	BlendMode   string
	Enabled     bool
	Opacity     byte
	HasV2       bool
	Invert      bool
	NativeColor EffectColor
}

// EffectBevel is the "bevl" record. RealHighlightColor/RealShadowColor
// are only present for version == 2.
type EffectBevel struct {
	Version             int32
	Angle               int32
	Depth               int32
	Blur                int32
	HighlightBlendMode  string
	ShadowBlendMode     string
	HighlightColor      EffectColor
	ShadowColor         EffectColor
	BevelStyle          byte
	HighlightOpacity    byte
	ShadowOpacity       byte
	Enabled             bool
	UseGlobalAngle      bool
	Direction           byte
	HasV2               bool
	RealHighlightColor  EffectColor
	RealShadowColor     EffectColor
}

// EffectSolidFill is the "sofi" record (a solid color overlay effect).
type EffectSolidFill struct {
	Version     int32
	BlendMode   string
	Color       EffectColor
	Opacity     byte
	Enabled     bool
	NativeColor EffectColor
}

// ParseLayerEffects decodes an "lrFX"/"lfx2" tagged block body: a 2-byte
// version, a 2-byte effect count, then that many (OSType-tagged,
// length-prefixed) effect records.
func ParseLayerEffects(data []byte) (*LayerEffects, error) {
	r := NewReader(bytes.NewReader(data))
	effects := &LayerEffects{}

	version, err := r.ReadInt16()
	if err != nil {
		return nil, wrapf(err, "effects version")
	}
	effects.Version = version

	count, err := r.ReadInt16()
	if err != nil {
		return nil, wrapf(err, "effects count")
	}

	for i := int16(0); i < count; i++ {
		sig, err := r.ReadBytes(4)
		if err != nil {
			return nil, wrapf(err, "effect %d signature", i)
		}
		if string(sig) != "8BIM" {
			return nil, newParseError(ErrKindMalformed, "layer-effects", r.Tell(), errors.Errorf("bad effect signature %q", sig))
		}
		osType, err := r.ReadBytes(4)
		if err != nil {
			return nil, wrapf(err, "effect %d type", i)
		}
		length, err := r.ReadUint32()
		if err != nil {
			return nil, wrapf(err, "effect %d length", i)
		}
		body, err := r.ReadBytes(int(length))
		if err != nil {
			return nil, wrapf(err, "effect %d body", i)
		}
		if err := parseOneEffect(effects, string(osType), body); err != nil {
			return nil, wrapf(err, "effect %d (%s)", i, osType)
		}
	}

	return effects, nil
}

func parseOneEffect(effects *LayerEffects, osType string, body []byte) error {
	r := NewReader(bytes.NewReader(body))
	switch osType {
	case "cmnS":
		version, err := r.ReadInt32()
		if err != nil {
			return err
		}
		visible, err := r.ReadBool()
		if err != nil {
			return err
		}
		if err := r.Skip(2); err != nil { // 2 unused pad bytes
			return err
		}
		effects.CommonState = &EffectCommonState{Version: version, Visible: visible}

	case "dsdw", "isdw":
		shadow, err := readEffectShadow(r)
		if err != nil {
			return err
		}
		if osType == "dsdw" {
			effects.DropShadow = shadow
		} else {
			effects.InnerShadow = shadow
		}

	case "oglw", "iglw":
		glow, err := readEffectGlow(r)
		if err != nil {
			return err
		}
		if osType == "oglw" {
			effects.OuterGlow = glow
		} else {
			effects.InnerGlow = glow
		}

	case "bevl":
		bevel, err := readEffectBevel(r)
		if err != nil {
			return err
		}
		effects.Bevel = bevel

	case "sofi":
		fill, err := readEffectSolidFill(r)
		if err != nil {
			return err
		}
		effects.SolidFill = fill

	default:
		// Unknown/obsolete effect record (e.g. a future Photoshop
		// addition); tolerated since the block's own length already
		// bounds it.
	}
	return nil
}

func readEffectShadow(r *Reader) (*EffectShadow, error) {
	s := &EffectShadow{}
	var err error
	if s.Version, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if s.Blur, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if s.Intensity, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if s.Angle, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if s.Distance, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if s.Color, err = readEffectColor(r); err != nil {
		return nil, err
	}
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "shadow-effect", r.Tell(), errors.Errorf("bad signature %q", sig))
	}
	mode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	s.BlendMode = string(mode)
	if s.Enabled, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if s.UseGlobalAngle, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if s.Opacity, err = r.ReadByte(); err != nil {
		return nil, err
	}
	// native_color is absent in the oldest (v0/v1) shadow records; a
	// short read here just leaves it zero.
	if native, err := readEffectColor(r); err == nil {
		s.NativeColor = native
	}
	return s, nil
}

func readEffectGlow(r *Reader) (*EffectGlow, error) {
	g := &EffectGlow{}
	var err error
	if g.Version, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if g.Blur, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if g.Intensity, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if g.Color, err = readEffectColor(r); err != nil {
		return nil, err
	}
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "glow-effect", r.Tell(), errors.Errorf("bad signature %q", sig))
	}
	mode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	g.BlendMode = string(mode)
	if g.Enabled, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if g.Opacity, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if g.Version >= 2 {
		invert, err := r.ReadBool()
		if err != nil {
			return g, nil // tolerate truncated v2 tail
		}
		native, err := readEffectColor(r)
		if err != nil {
			return g, nil
		}
		g.HasV2 = true
		g.Invert = invert
		g.NativeColor = native
	}
	return g, nil
}

func readEffectBevel(r *Reader) (*EffectBevel, error) {
	b := &EffectBevel{}
	var err error
	if b.Version, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if b.Angle, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if b.Depth, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	if b.Blur, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	sig1, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	highlightMode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	sig2, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	shadowMode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig1) != "8BIM" || string(sig2) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "bevel-effect", r.Tell(), errors.New("bad blend mode signature"))
	}
	b.HighlightBlendMode = string(highlightMode)
	b.ShadowBlendMode = string(shadowMode)
	if b.HighlightColor, err = readEffectColor(r); err != nil {
		return nil, err
	}
	if b.ShadowColor, err = readEffectColor(r); err != nil {
		return nil, err
	}
	if b.BevelStyle, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if b.HighlightOpacity, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if b.ShadowOpacity, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if b.Enabled, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if b.UseGlobalAngle, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if b.Direction, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if b.Version == 2 {
		highlight, err := readEffectColor(r)
		if err != nil {
			return b, nil
		}
		shadow, err := readEffectColor(r)
		if err != nil {
			return b, nil
		}
		b.HasV2 = true
		b.RealHighlightColor = highlight
		b.RealShadowColor = shadow
	}
	return b, nil
}

func readEffectSolidFill(r *Reader) (*EffectSolidFill, error) {
	f := &EffectSolidFill{}
	var err error
	if f.Version, err = r.ReadInt32(); err != nil {
		return nil, err
	}
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "solid-fill-effect", r.Tell(), errors.Errorf("bad signature %q", sig))
	}
	mode, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	f.BlendMode = string(mode)
	if f.Color, err = readEffectColor(r); err != nil {
		return nil, err
	}
	if f.Opacity, err = r.ReadByte(); err != nil {
		return nil, err
	}
	if f.Enabled, err = r.ReadBool(); err != nil {
		return nil, err
	}
	if f.NativeColor, err = readEffectColor(r); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteLayerEffects serializes a LayerEffects back into an "lrFX" tagged
// block body. Only the effect slots actually present are written. The
// body is not padded to a multiple of 4 bytes: its only padding is the
// single byte the tagged-block writer adds after an odd-length body.
func WriteLayerEffects(effects *LayerEffects) ([]byte, error) {
	buf := newBufferWriter()
	w := NewWriter(buf)

	if err := w.WriteInt16(effects.Version); err != nil {
		return nil, err
	}

	type entry struct {
		key  string
		body func(*Writer) error
	}
	var entries []entry
	if effects.CommonState != nil {
		cs := effects.CommonState
		entries = append(entries, entry{"cmnS", func(w *Writer) error {
			if err := w.WriteInt32(cs.Version); err != nil {
				return err
			}
			if err := w.WriteBool(cs.Visible); err != nil {
				return err
			}
			return w.WritePad(2)
		}})
	}
	if effects.DropShadow != nil {
		entries = append(entries, entry{"dsdw", func(w *Writer) error { return writeEffectShadow(w, effects.DropShadow) }})
	}
	if effects.InnerShadow != nil {
		entries = append(entries, entry{"isdw", func(w *Writer) error { return writeEffectShadow(w, effects.InnerShadow) }})
	}
	if effects.OuterGlow != nil {
		entries = append(entries, entry{"oglw", func(w *Writer) error { return writeEffectGlow(w, effects.OuterGlow) }})
	}
	if effects.InnerGlow != nil {
		entries = append(entries, entry{"iglw", func(w *Writer) error { return writeEffectGlow(w, effects.InnerGlow) }})
	}
	if effects.Bevel != nil {
		entries = append(entries, entry{"bevl", func(w *Writer) error { return writeEffectBevel(w, effects.Bevel) }})
	}
	if effects.SolidFill != nil {
		entries = append(entries, entry{"sofi", func(w *Writer) error { return writeEffectSolidFill(w, effects.SolidFill) }})
	}

	if err := w.WriteInt16(int16(len(entries))); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if _, err := w.Write([]byte("8BIM")); err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(e.key)); err != nil {
			return nil, err
		}
		if err := w.LengthBlock(false, func() error { return e.body(w) }); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeEffectShadow(w *Writer, s *EffectShadow) error {
	if err := w.WriteInt32(s.Version); err != nil {
		return err
	}
	if err := w.WriteInt32(s.Blur); err != nil {
		return err
	}
	if err := w.WriteInt32(s.Intensity); err != nil {
		return err
	}
	if err := w.WriteInt32(s.Angle); err != nil {
		return err
	}
	if err := w.WriteInt32(s.Distance); err != nil {
		return err
	}
	if err := writeEffectColor(w, s.Color); err != nil {
		return err
	}
	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(padBlendMode(s.BlendMode))); err != nil {
		return err
	}
	if err := w.WriteBool(s.Enabled); err != nil {
		return err
	}
	if err := w.WriteBool(s.UseGlobalAngle); err != nil {
		return err
	}
	if err := w.WriteByte(s.Opacity); err != nil {
		return err
	}
	return writeEffectColor(w, s.NativeColor)
}

func writeEffectGlow(w *Writer, g *EffectGlow) error {
	if err := w.WriteInt32(g.Version); err != nil {
		return err
	}
	if err := w.WriteInt32(g.Blur); err != nil {
		return err
	}
	if err := w.WriteInt32(g.Intensity); err != nil {
		return err
	}
	if err := writeEffectColor(w, g.Color); err != nil {
		return err
	}
	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(padBlendMode(g.BlendMode))); err != nil {
		return err
	}
	if err := w.WriteBool(g.Enabled); err != nil {
		return err
	}
	if err := w.WriteByte(g.Opacity); err != nil {
		return err
	}
	if g.HasV2 {
		if err := w.WriteBool(g.Invert); err != nil {
			return err
		}
		return writeEffectColor(w, g.NativeColor)
	}
	return nil
}

func writeEffectBevel(w *Writer, b *EffectBevel) error {
	if err := w.WriteInt32(b.Version); err != nil {
		return err
	}
	if err := w.WriteInt32(b.Angle); err != nil {
		return err
	}
	if err := w.WriteInt32(b.Depth); err != nil {
		return err
	}
	if err := w.WriteInt32(b.Blur); err != nil {
		return err
	}
	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(padBlendMode(b.HighlightBlendMode))); err != nil {
		return err
	}
	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(padBlendMode(b.ShadowBlendMode))); err != nil {
		return err
	}
	if err := writeEffectColor(w, b.HighlightColor); err != nil {
		return err
	}
	if err := writeEffectColor(w, b.ShadowColor); err != nil {
		return err
	}
	if err := w.WriteByte(b.BevelStyle); err != nil {
		return err
	}
	if err := w.WriteByte(b.HighlightOpacity); err != nil {
		return err
	}
	if err := w.WriteByte(b.ShadowOpacity); err != nil {
		return err
	}
	if err := w.WriteBool(b.Enabled); err != nil {
		return err
	}
	if err := w.WriteBool(b.UseGlobalAngle); err != nil {
		return err
	}
	if err := w.WriteByte(b.Direction); err != nil {
		return err
	}
	if b.HasV2 {
		if err := writeEffectColor(w, b.RealHighlightColor); err != nil {
			return err
		}
		return writeEffectColor(w, b.RealShadowColor)
	}
	return nil
}

func writeEffectSolidFill(w *Writer, f *EffectSolidFill) error {
	if err := w.WriteInt32(f.Version); err != nil {
		return err
	}
	if _, err := w.Write([]byte("8BIM")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(padBlendMode(f.BlendMode))); err != nil {
		return err
	}
	if err := writeEffectColor(w, f.Color); err != nil {
		return err
	}
	if err := w.WriteByte(f.Opacity); err != nil {
		return err
	}
	if err := w.WriteBool(f.Enabled); err != nil {
		return err
	}
	return writeEffectColor(w, f.NativeColor)
}

// padBlendMode ensures a 4-byte blend-mode OSType code, padding with
// spaces the way Adobe's own terminology keys are space-padded (e.g.
// "norm" is already 4 bytes, but defend against a caller-constructed
// effects record carrying a shorter string).
func padBlendMode(mode string) string {
	for len(mode) < 4 {
		mode += " "
	}
	return mode[:4]
}
