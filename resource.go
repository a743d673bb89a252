package psd

import (
	"bytes"

	"github.com/pkg/errors"
)

// Well-known image resource ids (component D). Only a representative
// subset of Adobe's ~100-entry catalog gets a typed accessor; everything
// else still round-trips through Resource.Data.
const (
	ResIDLayerState       uint16 = 1024
	ResIDLayerGroupInfo   uint16 = 1026
	ResIDGuides           uint16 = 1032
	ResIDGridGuides       uint16 = 1037
	ResIDThumbnailResPS4  uint16 = 1033
	ResIDThumbnail        uint16 = 1036
	ResIDICCProfile       uint16 = 1039
	ResIDLayerSelectionID uint16 = 1045
	ResIDSlices           uint16 = 1050
	ResIDWorkflowURL      uint16 = 1051
	ResIDAlphaIdentifiers uint16 = 1053
	ResIDURLList          uint16 = 1054
	ResIDVersionInfo      uint16 = 1057
	ResIDEXIFData1        uint16 = 1058
	ResIDXMPMetadata      uint16 = 1060
	ResIDLayerComps       uint16 = 1065
	ResIDMeasurementScale uint16 = 1077
	ResIDPrintInfo        uint16 = 1082
	ResIDPrintStyle       uint16 = 1083
)

// Resource is one entry of the image resources block: a 4-byte "8BIM"
// signature, a 2-byte id, a Pascal name, and a length-prefixed data blob.
// Data is always kept, even for ids this library understands, so an
// unmodified resource round-trips byte-for-byte.
type Resource struct {
	ID   uint16
	Name string
	Data []byte
}

// ResourceSection is the parsed image resources block (component D).
type ResourceSection struct {
	Resources []Resource
}

// ByID returns the first resource with the given id.
func (r *ResourceSection) ByID(id uint16) (*Resource, bool) {
	for i := range r.Resources {
		if r.Resources[i].ID == id {
			return &r.Resources[i], true
		}
	}
	return nil, false
}

// ParseResourceSection reads the length-prefixed image resources block.
func ParseResourceSection(r *Reader) (*ResourceSection, error) {
	length, err := r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "resources length")
	}
	section := &ResourceSection{}
	if length == 0 {
		return section, nil
	}

	end := r.Tell() + int64(length)
	for r.Tell() < end {
		res, err := parseResource(r)
		if err != nil {
			return nil, wrapf(err, "image resource")
		}
		section.Resources = append(section.Resources, *res)
	}
	return section, nil
}

func parseResource(r *Reader) (*Resource, error) {
	sig, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	if string(sig) != "8BIM" {
		return nil, newParseError(ErrKindMalformed, "resource", r.Tell(), errors.Errorf("bad resource signature %q", sig))
	}

	id, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	name, err := r.ReadPascalString(2)
	if err != nil {
		return nil, err
	}

	dataLen, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	data, err := r.ReadBytes(int(dataLen))
	if err != nil {
		return nil, err
	}
	if dataLen%2 != 0 {
		if err := r.Skip(1); err != nil {
			return nil, err
		}
	}

	return &Resource{ID: id, Name: name, Data: data}, nil
}

// Write serializes the resources section back out.
func (r *ResourceSection) Write(w *Writer) error {
	return w.LengthBlock(false, func() error {
		for _, res := range r.Resources {
			if _, err := w.Write([]byte("8BIM")); err != nil {
				return err
			}
			if err := w.WriteUint16(res.ID); err != nil {
				return err
			}
			if err := w.WritePascalString(res.Name, 2); err != nil {
				return err
			}
			if err := w.WriteUint32(uint32(len(res.Data))); err != nil {
				return err
			}
			if _, err := w.Write(res.Data); err != nil {
				return err
			}
			if len(res.Data)%2 != 0 {
				if err := w.WritePad(1); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Rectangle is a top/left/bottom/right bounding box, as used throughout
// the slices, guides, and layer bounds structures.
type Rectangle struct {
	Top, Left, Bottom, Right int32
}

// Slice describes one clickable/export region defined by the Slices tool.
type Slice struct {
	ID                int32
	GroupID           int32
	Origin            int32
	AssociatedLayerID int32
	Name              string
	Type              int32
	Bounds            Rectangle
	URL               string
	Target            string
	Message           string
	Alt               string
	CellTextIsHTML    bool
	CellText          string
	HorizontalAlign   int32
	VerticalAlign     int32
}

// SlicesResource is resource id 1050, in either its legacy v6 binary
// layout or its v7/8 descriptor-based layout.
type SlicesResource struct {
	Version int32
	Bounds  Rectangle
	Name    string
	Slices  []Slice
}

// ParseSlices decodes resource 1050 if present.
func (r *ResourceSection) ParseSlices() (*SlicesResource, error) {
	res, ok := r.ByID(ResIDSlices)
	if !ok || len(res.Data) == 0 {
		return &SlicesResource{Version: 6}, nil
	}

	sr := NewReader(bytes.NewReader(res.Data))
	version, err := sr.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "slices version")
	}
	result := &SlicesResource{Version: int32(version)}

	if version == 6 {
		if err := readSlicesV6(sr, result); err != nil {
			return nil, wrapf(err, "slices v6 body")
		}
		return result, nil
	}

	// v7/v8: a descriptor-version field, then a single top-level Descriptor.
	if _, err := sr.ReadUint32(); err != nil {
		return nil, wrapf(err, "slices descriptor version")
	}
	desc, err := ReadDescriptor(sr)
	if err != nil {
		return nil, wrapf(err, "slices descriptor")
	}
	normalizeSlicesDescriptor(desc, result)
	return result, nil
}

func readSlicesV6(sr *Reader, result *SlicesResource) error {
	top, err := sr.ReadInt32()
	if err != nil {
		return err
	}
	left, err := sr.ReadInt32()
	if err != nil {
		return err
	}
	bottom, err := sr.ReadInt32()
	if err != nil {
		return err
	}
	right, err := sr.ReadInt32()
	if err != nil {
		return err
	}
	result.Bounds = Rectangle{Top: top, Left: left, Bottom: bottom, Right: right}

	name, err := sr.ReadUnicodeString()
	if err != nil {
		return err
	}
	result.Name = name

	count, err := sr.ReadUint32()
	if err != nil {
		return err
	}
	result.Slices = make([]Slice, count)
	for i := range result.Slices {
		s := &result.Slices[i]
		var err error
		if s.ID, err = sr.ReadInt32(); err != nil {
			return err
		}
		if s.GroupID, err = sr.ReadInt32(); err != nil {
			return err
		}
		if s.Origin, err = sr.ReadInt32(); err != nil {
			return err
		}
		if s.Origin == 1 {
			if s.AssociatedLayerID, err = sr.ReadInt32(); err != nil {
				return err
			}
		}
		if s.Name, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		if s.Type, err = sr.ReadInt32(); err != nil {
			return err
		}
		top, _ := sr.ReadInt32()
		left, _ := sr.ReadInt32()
		bottom, _ := sr.ReadInt32()
		right, err := sr.ReadInt32()
		if err != nil {
			return err
		}
		s.Bounds = Rectangle{Top: top, Left: left, Bottom: bottom, Right: right}

		if s.URL, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		if s.Target, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		if s.Message, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		if s.Alt, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		htmlFlag, err := sr.ReadUint32()
		if err != nil {
			return err
		}
		s.CellTextIsHTML = htmlFlag != 0
		if s.CellText, err = sr.ReadUnicodeString(); err != nil {
			return err
		}
		if s.HorizontalAlign, err = sr.ReadInt32(); err != nil {
			return err
		}
		if s.VerticalAlign, err = sr.ReadInt32(); err != nil {
			return err
		}
		if err := sr.Skip(4); err != nil { // ARGB color
			return err
		}
	}
	return nil
}

func normalizeSlicesDescriptor(desc *Descriptor, result *SlicesResource) {
	if v, ok := desc.Get("bounds"); ok {
		if b, ok := v.(VDescriptor); ok {
			result.Bounds = descriptorBounds(b.Descriptor)
		}
	}
	if v, ok := desc.Get("baseName"); ok {
		if s, ok := v.(VString); ok {
			result.Name = string(s)
		}
	}
	v, ok := desc.Get("slices")
	if !ok {
		return
	}
	list, ok := v.(VList)
	if !ok {
		return
	}
	result.Slices = make([]Slice, 0, len(list))
	for _, item := range list {
		d, ok := item.(VDescriptor)
		if !ok {
			continue
		}
		result.Slices = append(result.Slices, normalizeSliceDescriptor(d.Descriptor))
	}
}

func descriptorBounds(d *Descriptor) Rectangle {
	var b Rectangle
	if v, ok := d.Get("Top "); ok {
		b.Top = descInt(v)
	}
	if v, ok := d.Get("Left"); ok {
		b.Left = descInt(v)
	}
	if v, ok := d.Get("Btom"); ok {
		b.Bottom = descInt(v)
	}
	if v, ok := d.Get("Rght"); ok {
		b.Right = descInt(v)
	}
	return b
}

func descInt(v Value) int32 {
	switch t := v.(type) {
	case VInteger:
		return int32(t)
	case VLargeInteger:
		return int32(t)
	case VDouble:
		return int32(t)
	case VUnitFloat:
		return int32(t.Value)
	default:
		return 0
	}
}

func descString(v Value) string {
	if s, ok := v.(VString); ok {
		return string(s)
	}
	return ""
}

func descBool(v Value) bool {
	b, _ := v.(VBool)
	return bool(b)
}

func normalizeSliceDescriptor(d *Descriptor) Slice {
	var s Slice
	if v, ok := d.Get("sliceID"); ok {
		s.ID = descInt(v)
	}
	if v, ok := d.Get("groupID"); ok {
		s.GroupID = descInt(v)
	}
	if v, ok := d.Get("origin"); ok {
		s.Origin = descInt(v)
	}
	if v, ok := d.Get("Type"); ok {
		s.Type = descInt(v)
	}
	if v, ok := d.Get("bounds"); ok {
		if b, ok := v.(VDescriptor); ok {
			s.Bounds = descriptorBounds(b.Descriptor)
		}
	}
	if v, ok := d.Get("url"); ok {
		s.URL = descString(v)
	}
	if v, ok := d.Get("Msge"); ok {
		s.Message = descString(v)
	}
	if v, ok := d.Get("altTag"); ok {
		s.Alt = descString(v)
	}
	if v, ok := d.Get("cellText"); ok {
		s.CellText = descString(v)
	}
	if v, ok := d.Get("cellTextIsHTML"); ok {
		s.CellTextIsHTML = descBool(v)
	}
	if v, ok := d.Get("horzAlign"); ok {
		s.HorizontalAlign = descInt(v)
	}
	if v, ok := d.Get("vertAlign"); ok {
		s.VerticalAlign = descInt(v)
	}
	return s
}

// Guide is a single ruler guide.
type Guide struct {
	Position     int32
	IsHorizontal bool
}

// GuidesResource is resource id 1032.
type GuidesResource struct {
	Guides []Guide
}

// ParseGuides decodes resource 1032 if present.
func (r *ResourceSection) ParseGuides() (*GuidesResource, error) {
	res, ok := r.ByID(ResIDGuides)
	if !ok || len(res.Data) == 0 {
		return &GuidesResource{}, nil
	}

	gr := NewReader(bytes.NewReader(res.Data))
	if err := gr.Skip(12); err != nil { // version (4) + grid info (8)
		return nil, err
	}
	count, err := gr.ReadUint32()
	if err != nil {
		return nil, err
	}
	result := &GuidesResource{Guides: make([]Guide, count)}
	for i := range result.Guides {
		pos, err := gr.ReadInt32()
		if err != nil {
			return nil, err
		}
		direction, err := gr.ReadByte()
		if err != nil {
			return nil, err
		}
		result.Guides[i] = Guide{Position: pos, IsHorizontal: direction == 0}
	}
	return result, nil
}

// LayerComp is one saved composition (visibility/position/appearance
// snapshot) from resource id 1065.
type LayerComp struct {
	ID      int32
	Name    string
	Comment string
	Applied bool
	Desc    *Descriptor
}

// LayerComps decodes resource 1065 if present. The teacher's version was a
// stub returning nil; this reads the descriptor-backed list per
// original_source's image_resources.py.
func (r *ResourceSection) LayerComps() ([]LayerComp, error) {
	res, ok := r.ByID(ResIDLayerComps)
	if !ok || len(res.Data) == 0 {
		return nil, nil
	}

	cr := NewReader(bytes.NewReader(res.Data))
	if _, err := cr.ReadUint32(); err != nil { // descriptor version
		return nil, wrapf(err, "layer comps descriptor version")
	}
	desc, err := ReadDescriptor(cr)
	if err != nil {
		return nil, wrapf(err, "layer comps descriptor")
	}

	v, ok := desc.Get("layerComps")
	if !ok {
		return nil, nil
	}
	list, ok := v.(VList)
	if !ok {
		return nil, nil
	}

	comps := make([]LayerComp, 0, len(list))
	for _, item := range list {
		d, ok := item.(VDescriptor)
		if !ok {
			continue
		}
		comp := LayerComp{Desc: d.Descriptor}
		if v, ok := d.Get("compID"); ok {
			comp.ID = descInt(v)
		}
		if v, ok := d.Get("Nm  "); ok {
			comp.Name = descString(v)
		}
		if v, ok := d.Get("Cmnt"); ok {
			comp.Comment = descString(v)
		}
		if v, ok := d.Get("capturedSettingsLayerVisibility"); ok {
			comp.Applied = descBool(v)
		}
		comps = append(comps, comp)
	}
	return comps, nil
}
