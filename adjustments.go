package psd

import (
	"bytes"

	"github.com/pkg/errors"
)

// Adjustment is the closed set of fixed-layout adjustment-layer records
// (component: adjustment layers) — the legacy, non-descriptor tagged
// blocks Photoshop still writes for Brightness/Contrast, Levels, and the
// rest. Curves ("curv") is not part of the set: ParseAdjustment reports it
// as unsupported. (Newer adjustments such as Black & White, Gradient/
// Pattern Fill, and Vibrance are descriptor-based and surface instead as
// a plain Descriptor through FindTaggedBlock, the same way the rest of
// this library treats "Objc"-shaped blocks.)
//
// Grounded on original_source/src/psd_tools/psd/adjustments.py.
type Adjustment interface{ isAdjustment() }

// BrightnessContrast is the "brit" record.
type BrightnessContrast struct {
	Brightness int16
	Contrast   int16
	Mean       int16
	LabOnly    bool
}

func (BrightnessContrast) isAdjustment() {}

// ColorBalance is the "blnc" record: shadow/midtone/highlight cyan-red,
// magenta-green, yellow-blue adjustments, plus whether luminosity is
// preserved.
type ColorBalance struct {
	Shadows     [3]int16
	Midtones    [3]int16
	Highlights  [3]int16
	Luminosity  bool
}

func (ColorBalance) isAdjustment() {}

// ChannelMixer is the "mixr" record.
type ChannelMixer struct {
	Version    int16
	Monochrome int16
	Data       [5]int16 // red, green, blue, constant, (unused)
}

func (ChannelMixer) isAdjustment() {}

// Exposure is the "expA" record.
type Exposure struct {
	Version  int16
	Exposure float32
	Offset   float32
	Gamma    float32
}

func (Exposure) isAdjustment() {}

// HueSaturationRange is one of the six hue bands (or the master band) of
// a HueSaturation adjustment: a 4-value falloff range plus the
// hue/saturation/lightness deltas applied within it.
type HueSaturationRange struct {
	Range    [4]int16
	Settings [3]int16
}

// HueSaturation is the "hue2" (new, per-band) / "hue " (old, global-only)
// record.
type HueSaturation struct {
	Version      int16
	Enable       bool
	Colorization [3]int16
	Master       [3]int16
	Bands        []HueSaturationRange // 6 entries for "hue2"; empty for "hue "
}

func (HueSaturation) isAdjustment() {}

// LevelRecord is one channel's input/output range and gamma within a
// Levels adjustment.
type LevelRecord struct {
	InputFloor    uint16
	InputCeiling  uint16
	OutputFloor   uint16
	OutputCeiling uint16
	Gamma         uint16 // 10..999, representing 0.1..9.99
}

// Levels is the "levl" record: 29 fixed channel records (composite, then
// R/G/B or equivalent, depending on color mode), optionally extended
// with per-extra-channel records by a trailing "Lvls" marker.
type Levels struct {
	Version      int16
	Records      []LevelRecord
	ExtraVersion int16 // 0 if the "Lvls" extension block was absent
}

func (Levels) isAdjustment() {}

// PhotoFilter is the "phfl" record.
type PhotoFilter struct {
	Version          int16
	XYZ              [3]int32  // present only when Version == 3
	ColorSpace       uint16    // present only when Version == 2
	ColorComponents  [4]uint16 // present only when Version == 2
	HasXYZ           bool
	Density          uint32
	PreserveLuminosity bool
}

func (PhotoFilter) isAdjustment() {}

// SelectiveColor is the "selc" record: 10 CMYK-relative-adjustment
// plates (red, yellow, green, cyan, blue, magenta, white, neutral,
// black, + one reserved), each a 4-tuple of C/M/Y/K deltas.
type SelectiveColor struct {
	Version int16
	Method  int16 // 0=relative, 1=absolute
	Plates  [10][4]int16
}

func (SelectiveColor) isAdjustment() {}

// Posterize is the "post" record.
type Posterize struct{ Levels uint16 }

func (Posterize) isAdjustment() {}

// Threshold is the "thrs" record.
type Threshold struct{ Level uint16 }

func (Threshold) isAdjustment() {}

// Invert is the "nvrt" record; it carries no data, its mere presence is
// the adjustment.
type Invert struct{}

func (Invert) isAdjustment() {}

// GradientMapStop is a color stop within a GradientMap's gradient.
type GradientMapStop struct {
	Location  int32
	Midpoint  int32
	Mode      uint16
	Color     [4]uint16
}

// GradientMapTransparencyStop is an opacity stop within a GradientMap's
// gradient.
type GradientMapTransparencyStop struct {
	Location int32
	Midpoint int32
	Opacity  uint16
}

// GradientMap is the "grdm" record.
type GradientMap struct {
	Version            int16
	Reversed           bool
	Dithered           bool
	Name               string
	ColorStops         []GradientMapStop
	TransparencyStops  []GradientMapTransparencyStop
	Interpolation      uint16
	Mode               uint16
	RandomSeed         uint32
	ShowTransparency   bool
	UseVectorColor     bool
	Roughness          uint32
	ColorModel         uint16
	MinimumColor       [4]uint16
	MaximumColor       [4]uint16
}

func (GradientMap) isAdjustment() {}

// ParseAdjustment decodes a fixed-layout adjustment tagged block body
// given its 4-byte key.
func ParseAdjustment(key string, data []byte) (Adjustment, error) {
	r := NewReader(bytes.NewReader(data))
	switch key {
	case "brit":
		return parseBrightnessContrast(r)
	case "blnc":
		return parseColorBalance(r)
	case "mixr":
		return parseChannelMixer(r)
	case "expA":
		return parseExposure(r)
	case "hue ", "hue2":
		return parseHueSaturation(r, key == "hue2")
	case "levl":
		return parseLevels(r)
	case "phfl":
		return parsePhotoFilter(r)
	case "selc":
		return parseSelectiveColor(r)
	case "post":
		v, err := r.ReadUint16()
		return Posterize{Levels: v}, err
	case "thrs":
		v, err := r.ReadUint16()
		return Threshold{Level: v}, err
	case "nvrt":
		return Invert{}, nil
	case "grdm":
		return parseGradientMap(r)
	case "curv":
		return nil, newParseError(ErrKindUnsupported, "adjustment", r.Tell(), errors.New("curv: undocumented lookup-table layout, not decoded"))
	default:
		return nil, newParseError(ErrKindUnsupported, "adjustment", r.Tell(), errors.Errorf("unknown adjustment key %q", key))
	}
}

func parseBrightnessContrast(r *Reader) (Adjustment, error) {
	b, c, m, err := read3uint16(r)
	if err != nil {
		return nil, err
	}
	labOnly, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	return BrightnessContrast{
		Brightness: int16(b), Contrast: int16(c), Mean: int16(m),
		LabOnly: labOnly != 0,
	}, nil
}

func read3uint16(r *Reader) (uint16, uint16, uint16, error) {
	a, err := r.ReadUint16()
	if err != nil {
		return 0, 0, 0, err
	}
	b, err := r.ReadUint16()
	if err != nil {
		return 0, 0, 0, err
	}
	c, err := r.ReadUint16()
	return a, b, c, err
}

func read3int16(r *Reader) ([3]int16, error) {
	var out [3]int16
	for i := range out {
		v, err := r.ReadUint16()
		if err != nil {
			return out, err
		}
		out[i] = int16(v)
	}
	return out, nil
}

func parseColorBalance(r *Reader) (Adjustment, error) {
	var cb ColorBalance
	var err error
	if cb.Shadows, err = read3int16(r); err != nil {
		return nil, err
	}
	if cb.Midtones, err = read3int16(r); err != nil {
		return nil, err
	}
	if cb.Highlights, err = read3int16(r); err != nil {
		return nil, err
	}
	lum, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	cb.Luminosity = lum != 0
	return cb, nil
}

func parseChannelMixer(r *Reader) (Adjustment, error) {
	var cm ChannelMixer
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	cm.Version = int16(v)
	mono, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	cm.Monochrome = int16(mono)
	for i := range cm.Data {
		d, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		cm.Data[i] = int16(d)
	}
	return cm, nil
}

func parseExposure(r *Reader) (Adjustment, error) {
	var e Exposure
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	e.Version = int16(v)
	f, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	e.Exposure = mathFloat32frombits(f)
	f, err = r.ReadUint32()
	if err != nil {
		return nil, err
	}
	e.Offset = mathFloat32frombits(f)
	f, err = r.ReadUint32()
	if err != nil {
		return nil, err
	}
	e.Gamma = mathFloat32frombits(f)
	return e, nil
}

func parseHueSaturation(r *Reader, v2 bool) (Adjustment, error) {
	var hs HueSaturation
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	hs.Version = int16(v)
	enable, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	hs.Enable = enable != 0
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	if hs.Colorization, err = read3int16(r); err != nil {
		return nil, err
	}
	if hs.Master, err = read3int16(r); err != nil {
		return nil, err
	}
	if !v2 {
		return hs, nil
	}
	hs.Bands = make([]HueSaturationRange, 6)
	for i := range hs.Bands {
		var band HueSaturationRange
		for j := range band.Range {
			v, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			band.Range[j] = int16(v)
		}
		for j := range band.Settings {
			v, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			band.Settings[j] = int16(v)
		}
		hs.Bands[i] = band
	}
	return hs, nil
}

func parseLevels(r *Reader) (Adjustment, error) {
	var l Levels
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	l.Version = int16(v)
	l.Records = make([]LevelRecord, 29)
	for i := range l.Records {
		rec, err := parseLevelRecord(r)
		if err != nil {
			return nil, wrapf(err, "level record %d", i)
		}
		l.Records[i] = rec
	}
	// A trailing "Lvls" marker extends the record list to cover
	// per-spot-channel levels; tolerated as absent on short streams.
	sig, err := r.ReadBytes(4)
	if err != nil {
		return l, nil
	}
	if string(sig) != "Lvls" {
		return l, nil
	}
	extraVersion, err := r.ReadUint16()
	if err != nil {
		return l, nil
	}
	l.ExtraVersion = int16(extraVersion)
	count, err := r.ReadUint16()
	if err != nil {
		return l, nil
	}
	for i := 29; i < int(count); i++ {
		rec, err := parseLevelRecord(r)
		if err != nil {
			return l, nil
		}
		l.Records = append(l.Records, rec)
	}
	return l, nil
}

func parseLevelRecord(r *Reader) (LevelRecord, error) {
	var rec LevelRecord
	var err error
	if rec.InputFloor, err = r.ReadUint16(); err != nil {
		return rec, err
	}
	if rec.InputCeiling, err = r.ReadUint16(); err != nil {
		return rec, err
	}
	if rec.OutputFloor, err = r.ReadUint16(); err != nil {
		return rec, err
	}
	if rec.OutputCeiling, err = r.ReadUint16(); err != nil {
		return rec, err
	}
	rec.Gamma, err = r.ReadUint16()
	return rec, err
}

func parsePhotoFilter(r *Reader) (Adjustment, error) {
	var pf PhotoFilter
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	pf.Version = int16(v)
	if pf.Version == 3 {
		pf.HasXYZ = true
		for i := range pf.XYZ {
			x, err := r.ReadUint32()
			if err != nil {
				return nil, err
			}
			pf.XYZ[i] = int32(x)
		}
	} else {
		if pf.ColorSpace, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		for i := range pf.ColorComponents {
			c, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			pf.ColorComponents[i] = c
		}
	}
	if pf.Density, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	lum, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	pf.PreserveLuminosity = lum != 0
	return pf, nil
}

func parseSelectiveColor(r *Reader) (Adjustment, error) {
	var sc SelectiveColor
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	sc.Version = int16(v)
	m, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	sc.Method = int16(m)
	for i := range sc.Plates {
		for j := range sc.Plates[i] {
			v, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			sc.Plates[i][j] = int16(v)
		}
	}
	return sc, nil
}

func parseGradientMap(r *Reader) (Adjustment, error) {
	var gm GradientMap
	v, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	gm.Version = int16(v)
	rev, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	gm.Reversed = rev != 0
	dith, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	gm.Dithered = dith != 0
	gm.Name, err = r.ReadUnicodeString()
	if err != nil {
		return nil, err
	}

	colorCount, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	gm.ColorStops = make([]GradientMapStop, colorCount)
	for i := range gm.ColorStops {
		var s GradientMapStop
		loc, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		s.Location = int32(loc)
		mid, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		s.Midpoint = int32(mid)
		if s.Mode, err = r.ReadUint16(); err != nil {
			return nil, err
		}
		for j := range s.Color {
			if s.Color[j], err = r.ReadUint16(); err != nil {
				return nil, err
			}
		}
		if err := r.Skip(2); err != nil {
			return nil, err
		}
		gm.ColorStops[i] = s
	}

	transCount, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	gm.TransparencyStops = make([]GradientMapTransparencyStop, transCount)
	for i := range gm.TransparencyStops {
		loc, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		mid, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		op, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		gm.TransparencyStops[i] = GradientMapTransparencyStop{
			Location: int32(loc), Midpoint: int32(mid), Opacity: op,
		}
	}

	if _, err := r.ReadUint16(); err != nil { // expansion, always 2
		return nil, err
	}
	if gm.Interpolation, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if _, err := r.ReadUint16(); err != nil { // length, always 32
		return nil, err
	}
	if gm.Mode, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	if gm.RandomSeed, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	showT, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	gm.ShowTransparency = showT != 0
	useV, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	gm.UseVectorColor = useV != 0
	if gm.Roughness, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	if gm.ColorModel, err = r.ReadUint16(); err != nil {
		return nil, err
	}
	for i := range gm.MinimumColor {
		if gm.MinimumColor[i], err = r.ReadUint16(); err != nil {
			return nil, err
		}
	}
	for i := range gm.MaximumColor {
		if gm.MaximumColor[i], err = r.ReadUint16(); err != nil {
			return nil, err
		}
	}
	return gm, nil
}
