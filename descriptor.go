package psd

import (
	"github.com/pkg/errors"
)

// Descriptor is the self-describing recursive key/value structure used by
// every modern (descriptor-based) feature of the format: text layers,
// smart-object placement, v7/8 slices, layer comps, gradient/pattern fill
// parameters, and so on (component E).
//
// Unlike the teacher's map[string]interface{} approach, values are a
// closed, tagged variant (Value interface below) so a caller can switch on
// concrete type instead of type-asserting against Go's empty interface —
// matching the "recursive tagged union, not a dynamically-typed map" design
// note in the specification.
type Descriptor struct {
	Name    string // usually empty; present for Class-flavored descriptors
	ClassID string
	Items   []DescriptorItem
}

// DescriptorItem is one key/value pair of a Descriptor, in on-disk order
// (order is preserved since some consumers, notably EngineData-embedded
// descriptors, are sensitive to it for round-tripping).
type DescriptorItem struct {
	Key   string
	Value Value
}

// Get returns the value for key and whether it was present.
func (d *Descriptor) Get(key string) (Value, bool) {
	for _, it := range d.Items {
		if it.Key == key {
			return it.Value, true
		}
	}
	return nil, false
}

// Set replaces the value for key, appending a new item if key is absent.
func (d *Descriptor) Set(key string, v Value) {
	for i, it := range d.Items {
		if it.Key == key {
			d.Items[i].Value = v
			return
		}
	}
	d.Items = append(d.Items, DescriptorItem{Key: key, Value: v})
}

// Value is the closed set of descriptor leaf/composite variants. Only the
// types defined in this file implement it.
type Value interface {
	descriptorValue()
}

type (
	// VString is a 'TEXT' unicode string.
	VString string
	// VInteger is a 'long' signed 32-bit integer.
	VInteger int32
	// VLargeInteger is a 'comp' signed 64-bit integer.
	VLargeInteger int64
	// VDouble is a 'doub' IEEE-754 double.
	VDouble float64
	// VBool is a 'bool' single byte.
	VBool bool
	// VRawData is 'tdta' opaque length-prefixed bytes.
	VRawData []byte
	// VAlias is 'alis' opaque length-prefixed bytes (an Alias Manager
	// record on classic Mac OS, unparsed here since path resolution is a
	// filesystem concern outside this library).
	VAlias []byte
)

func (VString) descriptorValue()       {}
func (VInteger) descriptorValue()      {}
func (VLargeInteger) descriptorValue() {}
func (VDouble) descriptorValue()       {}
func (VBool) descriptorValue()         {}
func (VRawData) descriptorValue()      {}
func (VAlias) descriptorValue()        {}

// VUnitFloat is a 'UntF' unit-tagged double: an angle, distance, percent,
// or other measurement whose unit is one of the codes in unitTypes.
type VUnitFloat struct {
	Unit  string
	Value float64
}

func (VUnitFloat) descriptorValue() {}

// VEnum is an 'enum' pair of (type, value) terminology keys, e.g.
// type="textGridding" value="None".
type VEnum struct {
	Type  string
	Value string
}

func (VEnum) descriptorValue() {}

// VClass is a 'type'/'GlbC' class reference: a display name plus a
// terminology class id.
type VClass struct {
	Name    string
	ClassID string
}

func (VClass) descriptorValue() {}

// VList is a 'VlLs' ordered, heterogeneous list of values (no keys).
type VList []Value

func (VList) descriptorValue() {}

// VDescriptor wraps a nested Descriptor ('Objc') or a global object
// ('GlbO' — functionally identical, just semantically "not locally
// scoped"); Global distinguishes which OSType produced it so Write can
// round-trip the distinction.
type VDescriptor struct {
	*Descriptor
	Global bool
}

func (VDescriptor) descriptorValue() {}

// VObjectArray is 'ObAr': Photoshop's rarely-used homogeneous array of
// descriptors (seen in some gradient and pattern structures). The exact
// binary shape is undocumented by Adobe; this follows the same
// name+classID+items framing as a plain descriptor, repeated per element,
// which is how every open-source reader that supports it (including the
// Python reference this library was grounded on) treats it.
type VObjectArray struct {
	Items []*Descriptor
}

func (VObjectArray) descriptorValue() {}

// VReference is an 'obj ' reference: a path built of property/class/
// enumerated-reference/identifier/index/name/offset segments.
type VReference []ReferenceItem

func (VReference) descriptorValue() {}

// ReferenceItem is a tagged union over the seven reference segment kinds.
type ReferenceItem interface {
	referenceItem()
}

type (
	RefProperty struct {
		ClassID string
		KeyID   string
	}
	RefClass struct {
		Name    string
		ClassID string
	}
	RefEnumerated struct {
		ClassID string
		Type    string
		Value   string
	}
	RefIdentifier int32
	RefIndex      int32
	RefName       string
	RefOffset     int32
)

func (RefProperty) referenceItem()   {}
func (RefClass) referenceItem()      {}
func (RefEnumerated) referenceItem() {}
func (RefIdentifier) referenceItem() {}
func (RefIndex) referenceItem()      {}
func (RefName) referenceItem()       {}
func (RefOffset) referenceItem()     {}

// unitTypes maps the 4-byte UnitFloat unit code to its display name. The
// spec documents 11; this pack's teacher only recognized 8, so the three
// missing angle/density/none codes are filled in here from the reference
// implementation.
var unitTypes = map[string]string{
	"#Ang":  "Angle",
	"#Rsl":  "Density",
	"#Rlt":  "Distance",
	"#Nne":  "None",
	"#Prc":  "Percent",
	"#Pxl":  "Pixels",
	"#Mlm":  "Millimeters",
	"#Pnt":  "Points",
	"#Pica": "Picas",
	"#In ":  "Inches",
	"#Cm ":  "Centimeters",
}

// ReadDescriptor reads a full top-level descriptor: name, classID, item
// count, and items.
func ReadDescriptor(r *Reader) (*Descriptor, error) {
	name, err := r.ReadUnicodeString()
	if err != nil {
		return nil, wrapf(err, "descriptor name")
	}
	classID, err := readKey(r)
	if err != nil {
		return nil, wrapf(err, "descriptor classID")
	}
	d := &Descriptor{Name: name, ClassID: classID}
	if err := readDescriptorBody(r, d); err != nil {
		return nil, err
	}
	return d, nil
}

// readDescriptorBody reads the item-count + item list shared by a
// top-level descriptor and any nested Objc/GlbO value.
func readDescriptorBody(r *Reader, d *Descriptor) error {
	count, err := r.ReadUint32()
	if err != nil {
		return wrapf(err, "descriptor item count")
	}
	d.Items = make([]DescriptorItem, 0, count)
	for i := uint32(0); i < count; i++ {
		key, err := readKey(r)
		if err != nil {
			return wrapf(err, "descriptor item %d key", i)
		}
		val, err := readValue(r)
		if err != nil {
			return wrapf(err, "descriptor item %d (%s) value", i, key)
		}
		d.Items = append(d.Items, DescriptorItem{Key: key, Value: val})
	}
	return nil
}

// readKey implements the closed-terminology key convention: a u32 length
// of 0 means "the key is the following 4 raw bytes" (an OSType code drawn
// from Adobe's fixed terminology dictionary); any other length means "read
// that many bytes as a literal string". In practice every file in the
// wild uses the 4-byte form; the variable-length form exists for
// forward-compatibility and is still honored here.
func readKey(r *Reader) (string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		b, err := r.ReadBytes(4)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeKey(w *Writer, key string) error {
	if len(key) == 4 {
		if err := w.WriteUint32(0); err != nil {
			return err
		}
		_, err := w.Write([]byte(key))
		return err
	}
	if err := w.WriteUint32(uint32(len(key))); err != nil {
		return err
	}
	_, err := w.Write([]byte(key))
	return err
}

func readValue(r *Reader) (Value, error) {
	typ, err := r.ReadBytes(4)
	if err != nil {
		return nil, err
	}
	switch string(typ) {
	case "TEXT":
		s, err := r.ReadUnicodeString()
		return VString(s), err
	case "long":
		v, err := r.ReadInt32()
		return VInteger(v), err
	case "comp":
		v, err := r.ReadUint64()
		return VLargeInteger(int64(v)), err
	case "doub":
		v, err := r.ReadFloat64()
		return VDouble(v), err
	case "bool":
		v, err := r.ReadBool()
		return VBool(v), err
	case "tdta":
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(int(n))
		return VRawData(b), err
	case "alis":
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		b, err := r.ReadBytes(int(n))
		return VAlias(b), err
	case "UntF":
		unit, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		v, err := r.ReadFloat64()
		return VUnitFloat{Unit: string(unit), Value: v}, err
	case "enum":
		t, err := readKey(r)
		if err != nil {
			return nil, err
		}
		v, err := readKey(r)
		return VEnum{Type: t, Value: v}, err
	case "type", "GlbC":
		name, err := r.ReadUnicodeString()
		if err != nil {
			return nil, err
		}
		classID, err := readKey(r)
		return VClass{Name: name, ClassID: classID}, err
	case "VlLs":
		count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		items := make(VList, 0, count)
		for i := uint32(0); i < count; i++ {
			v, err := readValue(r)
			if err != nil {
				return nil, wrapf(err, "list item %d", i)
			}
			items = append(items, v)
		}
		return items, nil
	case "Objc", "GlbO":
		name, err := r.ReadUnicodeString()
		if err != nil {
			return nil, err
		}
		classID, err := readKey(r)
		if err != nil {
			return nil, err
		}
		d := &Descriptor{Name: name, ClassID: classID}
		if err := readDescriptorBody(r, d); err != nil {
			return nil, err
		}
		return VDescriptor{Descriptor: d, Global: string(typ) == "GlbO"}, nil
	case "ObAr":
		count, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		items := make([]*Descriptor, 0, count)
		for i := uint32(0); i < count; i++ {
			name, err := r.ReadUnicodeString()
			if err != nil {
				return nil, err
			}
			classID, err := readKey(r)
			if err != nil {
				return nil, err
			}
			d := &Descriptor{Name: name, ClassID: classID}
			if err := readDescriptorBody(r, d); err != nil {
				return nil, wrapf(err, "object array item %d", i)
			}
			items = append(items, d)
		}
		return VObjectArray{Items: items}, nil
	case "obj ":
		return readReference(r)
	default:
		return nil, newParseError(ErrKindUnsupported, "descriptor", r.Tell(), errors.Errorf("unknown value type %q", typ))
	}
}

func readReference(r *Reader) (VReference, error) {
	count, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	items := make(VReference, 0, count)
	for i := uint32(0); i < count; i++ {
		typ, err := r.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		switch string(typ) {
		case "prop":
			classID, err := readKey(r)
			if err != nil {
				return nil, err
			}
			keyID, err := readKey(r)
			if err != nil {
				return nil, err
			}
			items = append(items, RefProperty{ClassID: classID, KeyID: keyID})
		case "Clss":
			name, err := r.ReadUnicodeString()
			if err != nil {
				return nil, err
			}
			classID, err := readKey(r)
			if err != nil {
				return nil, err
			}
			items = append(items, RefClass{Name: name, ClassID: classID})
		case "Enmr":
			classID, err := readKey(r)
			if err != nil {
				return nil, err
			}
			t, err := readKey(r)
			if err != nil {
				return nil, err
			}
			v, err := readKey(r)
			if err != nil {
				return nil, err
			}
			items = append(items, RefEnumerated{ClassID: classID, Type: t, Value: v})
		case "Idnt":
			v, err := r.ReadInt32()
			if err != nil {
				return nil, err
			}
			items = append(items, RefIdentifier(v))
		case "indx":
			v, err := r.ReadInt32()
			if err != nil {
				return nil, err
			}
			items = append(items, RefIndex(v))
		case "name":
			s, err := r.ReadUnicodeString()
			if err != nil {
				return nil, err
			}
			items = append(items, RefName(s))
		case "rele":
			v, err := r.ReadInt32()
			if err != nil {
				return nil, err
			}
			items = append(items, RefOffset(v))
		default:
			return nil, newParseError(ErrKindUnsupported, "reference", r.Tell(), errors.Errorf("unknown reference item %q", typ))
		}
	}
	return items, nil
}

// WriteDescriptor writes a full top-level descriptor.
func WriteDescriptor(w *Writer, d *Descriptor) error {
	if err := w.WriteUnicodeString(d.Name); err != nil {
		return err
	}
	if err := writeKey(w, d.ClassID); err != nil {
		return err
	}
	return writeDescriptorBody(w, d)
}

func writeDescriptorBody(w *Writer, d *Descriptor) error {
	if err := w.WriteUint32(uint32(len(d.Items))); err != nil {
		return err
	}
	for _, it := range d.Items {
		if err := writeKey(w, it.Key); err != nil {
			return err
		}
		if err := writeValue(w, it.Value); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(w *Writer, v Value) error {
	switch val := v.(type) {
	case VString:
		if _, err := w.Write([]byte("TEXT")); err != nil {
			return err
		}
		return w.WriteUnicodeString(string(val))
	case VInteger:
		if _, err := w.Write([]byte("long")); err != nil {
			return err
		}
		return w.WriteInt32(int32(val))
	case VLargeInteger:
		if _, err := w.Write([]byte("comp")); err != nil {
			return err
		}
		return w.WriteUint64(uint64(val))
	case VDouble:
		if _, err := w.Write([]byte("doub")); err != nil {
			return err
		}
		return w.WriteFloat64(float64(val))
	case VBool:
		if _, err := w.Write([]byte("bool")); err != nil {
			return err
		}
		return w.WriteBool(bool(val))
	case VRawData:
		if _, err := w.Write([]byte("tdta")); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(len(val))); err != nil {
			return err
		}
		_, err := w.Write(val)
		return err
	case VAlias:
		if _, err := w.Write([]byte("alis")); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(len(val))); err != nil {
			return err
		}
		_, err := w.Write(val)
		return err
	case VUnitFloat:
		if _, err := w.Write([]byte("UntF")); err != nil {
			return err
		}
		if _, err := w.Write([]byte(val.Unit)); err != nil {
			return err
		}
		return w.WriteFloat64(val.Value)
	case VEnum:
		if _, err := w.Write([]byte("enum")); err != nil {
			return err
		}
		if err := writeKey(w, val.Type); err != nil {
			return err
		}
		return writeKey(w, val.Value)
	case VClass:
		if _, err := w.Write([]byte("type")); err != nil {
			return err
		}
		if err := w.WriteUnicodeString(val.Name); err != nil {
			return err
		}
		return writeKey(w, val.ClassID)
	case VList:
		if _, err := w.Write([]byte("VlLs")); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(len(val))); err != nil {
			return err
		}
		for _, item := range val {
			if err := writeValue(w, item); err != nil {
				return err
			}
		}
		return nil
	case VDescriptor:
		tag := "Objc"
		if val.Global {
			tag = "GlbO"
		}
		if _, err := w.Write([]byte(tag)); err != nil {
			return err
		}
		if err := w.WriteUnicodeString(val.Name); err != nil {
			return err
		}
		if err := writeKey(w, val.ClassID); err != nil {
			return err
		}
		return writeDescriptorBody(w, val.Descriptor)
	case VObjectArray:
		if _, err := w.Write([]byte("ObAr")); err != nil {
			return err
		}
		if err := w.WriteUint32(uint32(len(val.Items))); err != nil {
			return err
		}
		for _, d := range val.Items {
			if err := w.WriteUnicodeString(d.Name); err != nil {
				return err
			}
			if err := writeKey(w, d.ClassID); err != nil {
				return err
			}
			if err := writeDescriptorBody(w, d); err != nil {
				return err
			}
		}
		return nil
	case VReference:
		if _, err := w.Write([]byte("obj ")); err != nil {
			return err
		}
		return writeReference(w, val)
	default:
		return errors.Errorf("unknown descriptor value type %T", v)
	}
}

func writeReference(w *Writer, items VReference) error {
	if err := w.WriteUint32(uint32(len(items))); err != nil {
		return err
	}
	for _, item := range items {
		switch ref := item.(type) {
		case RefProperty:
			if _, err := w.Write([]byte("prop")); err != nil {
				return err
			}
			if err := writeKey(w, ref.ClassID); err != nil {
				return err
			}
			if err := writeKey(w, ref.KeyID); err != nil {
				return err
			}
		case RefClass:
			if _, err := w.Write([]byte("Clss")); err != nil {
				return err
			}
			if err := w.WriteUnicodeString(ref.Name); err != nil {
				return err
			}
			if err := writeKey(w, ref.ClassID); err != nil {
				return err
			}
		case RefEnumerated:
			if _, err := w.Write([]byte("Enmr")); err != nil {
				return err
			}
			if err := writeKey(w, ref.ClassID); err != nil {
				return err
			}
			if err := writeKey(w, ref.Type); err != nil {
				return err
			}
			if err := writeKey(w, ref.Value); err != nil {
				return err
			}
		case RefIdentifier:
			if _, err := w.Write([]byte("Idnt")); err != nil {
				return err
			}
			if err := w.WriteInt32(int32(ref)); err != nil {
				return err
			}
		case RefIndex:
			if _, err := w.Write([]byte("indx")); err != nil {
				return err
			}
			if err := w.WriteInt32(int32(ref)); err != nil {
				return err
			}
		case RefName:
			if _, err := w.Write([]byte("name")); err != nil {
				return err
			}
			if err := w.WriteUnicodeString(string(ref)); err != nil {
				return err
			}
		case RefOffset:
			if _, err := w.Write([]byte("rele")); err != nil {
				return err
			}
			if err := w.WriteInt32(int32(ref)); err != nil {
				return err
			}
		default:
			return errors.Errorf("unknown reference item type %T", item)
		}
	}
	return nil
}
