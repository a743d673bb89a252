package psd

// LayerMaskData is the per-layer mask record (component I / spec.md §3.5):
// either a 20-byte "user mask" alone, or a 36+-byte record that also
// carries a "real" (pre-effects) mask plus optional feather/density
// parameters. The teacher only ever parsed the 20-byte case; this adds
// the real-mask and parameter variants.
type LayerMaskData struct {
	Present bool

	Bounds       Rectangle
	DefaultColor byte
	Flags        byte

	// Present only when the 36+-byte layout is used.
	HasRealMask    bool
	RealFlags      byte
	RealDefault    byte
	RealBounds     Rectangle
	UserMaskDensity *byte
	UserMaskFeather *float64
	RealMaskDensity *byte
	RealMaskFeather *float64
}

const (
	maskFlagPositionRelative = 1 << 0
	maskFlagDisabled         = 1 << 1
	maskFlagInvert           = 1 << 2 // obsolete, tolerated
	maskFlagFromRenderedData = 1 << 3
	maskFlagParamsPresent    = 1 << 4
)

func (m *LayerMaskData) Disabled() bool { return m.Flags&maskFlagDisabled != 0 }
func (m *LayerMaskData) Relative() bool { return m.Flags&maskFlagPositionRelative != 0 }

// ReadLayerMaskData decodes the mask sub-record of a layer record. size 0
// means no mask is present at all.
func ReadLayerMaskData(r *Reader, size uint32) (*LayerMaskData, error) {
	if size == 0 {
		return &LayerMaskData{}, nil
	}
	start := r.Tell()
	end := start + int64(size)

	m := &LayerMaskData{Present: true}
	top, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "mask top")
	}
	left, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "mask left")
	}
	bottom, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "mask bottom")
	}
	right, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "mask right")
	}
	m.Bounds = Rectangle{Top: top, Left: left, Bottom: bottom, Right: right}

	defaultColor, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "mask default color")
	}
	m.DefaultColor = defaultColor

	flags, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "mask flags")
	}
	m.Flags = flags

	if size == 20 {
		if err := r.Skip(end - r.Tell()); err != nil {
			return nil, err
		}
		return m, nil
	}

	// 36-byte-or-more layout: the real-mask record (flags, default color,
	// bounds) always follows, then the density/feather parameters when the
	// mask flags have the parameters bit set.
	m.HasRealMask = true
	realFlags, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "real mask flags")
	}
	m.RealFlags = realFlags

	realDefault, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "real mask default")
	}
	m.RealDefault = realDefault

	rtop, _ := r.ReadInt32()
	rleft, _ := r.ReadInt32()
	rbottom, _ := r.ReadInt32()
	rright, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "real mask bounds")
	}
	m.RealBounds = Rectangle{Top: rtop, Left: rleft, Bottom: rbottom, Right: rright}

	if m.Flags&maskFlagParamsPresent != 0 {
		paramBits, err := r.ReadByte()
		if err != nil {
			return nil, wrapf(err, "mask parameter bits")
		}
		if paramBits&1 != 0 {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			m.UserMaskDensity = new(byte)
			*m.UserMaskDensity = byte(v)
		}
		if paramBits&2 != 0 {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			m.UserMaskFeather = &v
		}
		if paramBits&4 != 0 {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			m.RealMaskDensity = new(byte)
			*m.RealMaskDensity = byte(v)
		}
		if paramBits&8 != 0 {
			v, err := r.ReadFloat64()
			if err != nil {
				return nil, err
			}
			m.RealMaskFeather = &v
		}
	}

	// Consume anything left (undocumented padding some writers emit).
	if remaining := end - r.Tell(); remaining > 0 {
		if err := r.Skip(remaining); err != nil {
			return nil, err
		}
	}
	return m, nil
}
