package psd

import "bytes"

// Transform is the layer's 2D affine text transform matrix.
type Transform struct {
	XX, XY, YX, YY, TX, TY float64
}

// TypeToolInfo is the decoded "TySh" tagged block (component text-layer
// data): a transform, a text descriptor (carrying the string content and
// its EngineData markup), a warp descriptor, and the text layer's
// rendered bounds. Grounded on
// original_source/src/psd_tools/psd/layer_and_mask.py's TypeToolObjectSetting.
type TypeToolInfo struct {
	Version   int16
	Transform Transform

	TextVersion       int16
	TextDescriptor    *Descriptor
	EngineData        *EngineDict
	WarpVersion       int16
	WarpDescriptor    *Descriptor
	Bounds            Rectangle
}

// ParseTypeToolInfo decodes a "TySh" tagged block body.
func ParseTypeToolInfo(data []byte) (*TypeToolInfo, error) {
	r := NewReader(bytes.NewReader(data))
	info := &TypeToolInfo{}

	v, err := r.ReadInt16()
	if err != nil {
		return nil, wrapf(err, "type tool version")
	}
	info.Version = v

	vals := make([]float64, 6)
	for i := range vals {
		f, err := r.ReadFloat64()
		if err != nil {
			return nil, wrapf(err, "type tool transform")
		}
		vals[i] = f
	}
	info.Transform = Transform{XX: vals[0], XY: vals[1], YX: vals[2], YY: vals[3], TX: vals[4], TY: vals[5]}

	textVersion, err := r.ReadInt16()
	if err != nil {
		return nil, wrapf(err, "text version")
	}
	info.TextVersion = textVersion

	if _, err := r.ReadInt32(); err != nil { // descriptor version, always 50
		return nil, wrapf(err, "text descriptor version")
	}
	textDesc, err := ReadDescriptor(r)
	if err != nil {
		return nil, wrapf(err, "text descriptor")
	}
	info.TextDescriptor = textDesc

	if raw, ok := textDesc.Get("EngineData"); ok {
		if rd, ok := raw.(VRawData); ok {
			if ed, err := ParseEngineData([]byte(rd)); err == nil {
				info.EngineData = ed
			}
		}
	}

	warpVersion, err := r.ReadInt16()
	if err != nil {
		return nil, wrapf(err, "warp version")
	}
	info.WarpVersion = warpVersion

	if _, err := r.ReadInt32(); err != nil { // warp descriptor version
		return nil, wrapf(err, "warp descriptor version")
	}
	warpDesc, err := ReadDescriptor(r)
	if err != nil {
		return nil, wrapf(err, "warp descriptor")
	}
	info.WarpDescriptor = warpDesc

	left, err := r.ReadFloat64()
	if err != nil {
		return nil, wrapf(err, "text bounds left")
	}
	top, err := r.ReadFloat64()
	if err != nil {
		return nil, wrapf(err, "text bounds top")
	}
	right, err := r.ReadFloat64()
	if err != nil {
		return nil, wrapf(err, "text bounds right")
	}
	bottom, err := r.ReadFloat64()
	if err != nil {
		return nil, wrapf(err, "text bounds bottom")
	}
	info.Bounds = Rectangle{Top: int32(top), Left: int32(left), Bottom: int32(bottom), Right: int32(right)}

	return info, nil
}

// Text returns the text layer's string content, stored under the "Txt "
// key of the text descriptor.
func (t *TypeToolInfo) Text() string {
	if t.TextDescriptor == nil {
		return ""
	}
	if v, ok := t.TextDescriptor.Get("Txt "); ok {
		if s, ok := v.(VString); ok {
			return string(s)
		}
	}
	return ""
}

// HasTextContent reports whether this type-tool record carries non-empty
// text.
func (t *TypeToolInfo) HasTextContent() bool { return t.Text() != "" }
