package psd

// Vector path records: 26-byte fixed knot/subpath-control records stored
// in the "vmsk"/"vsms" tagged blocks (component G). Grounded on
// original_source/src/psd_tools/psd/vector.py.

import "bytes"

// PathRecordType is the 2-byte selector at the start of every 26-byte
// path record.
type PathRecordType uint16

const (
	PathClosedSubpathLength  PathRecordType = 0
	PathClosedKnotLinked     PathRecordType = 1
	PathClosedKnotUnlinked   PathRecordType = 2
	PathOpenSubpathLength    PathRecordType = 3
	PathOpenKnotLinked       PathRecordType = 4
	PathOpenKnotUnlinked     PathRecordType = 5
	PathPathFillRule         PathRecordType = 6
	PathClipboard            PathRecordType = 7
	PathInitialFillRule      PathRecordType = 8
)

// fixedPointScale is the 8.24 fixed-point scale every path coordinate is
// stored at.
const fixedPointScale = float64(1 << 24)

func decodeFixedPoint(raw int32) float64 { return float64(raw) / fixedPointScale }
func encodeFixedPoint(v float64) int32   { return int32(v * fixedPointScale) }

// Point is a (y, x) coordinate pair in relative [0,1) document units, as
// every vector path coordinate is stored.
type Point struct {
	Y, X float64
}

// Knot is one Bezier control triple: the incoming control point, the
// anchor, and the outgoing control point.
type Knot struct {
	Preceding Point
	Anchor    Point
	Leaving   Point
	Linked    bool
}

// SubpathOperation is the boolean combination a subpath applies against
// the accumulated path when there is more than one subpath.
type SubpathOperation int32

const (
	SubpathOpOr SubpathOperation = iota + 1
	SubpathOpNotOr
	SubpathOpAnd
	SubpathOpXor SubpathOperation = 0
)

// Subpath is an ordered run of knots plus the boolean operation it
// contributes to the overall path.
type Subpath struct {
	Closed    bool
	Operation SubpathOperation
	Index     int32
	Knots     []Knot
}

// Path is the full vector mask/stroke outline: an initial fill rule flag
// followed by zero or more subpaths.
type Path struct {
	InitialFillIsAllPixels bool
	Subpaths               []Subpath
}

// ReadPath decodes recordCount consecutive 26-byte path records from r
// (ParseVectorMask derives the count from the bytes left after the
// vector mask's version and flags).
func ReadPath(r *Reader, recordCount int) (*Path, error) {
	p := &Path{}
	var current *Subpath

	for i := 0; i < recordCount; i++ {
		typ, err := r.ReadUint16()
		if err != nil {
			return nil, wrapf(err, "path record %d type", i)
		}
		switch PathRecordType(typ) {
		case PathClosedSubpathLength, PathOpenSubpathLength:
			length, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			op, err := r.ReadInt16()
			if err != nil {
				return nil, err
			}
			if _, err := r.ReadUint16(); err != nil { // unknown1
				return nil, err
			}
			if _, err := r.ReadUint32(); err != nil { // unknown2
				return nil, err
			}
			index, err := r.ReadInt32()
			if err != nil {
				return nil, err
			}
			if _, err := r.ReadBytes(10); err != nil { // unknown3
				return nil, err
			}
			sp := Subpath{
				Closed:    PathRecordType(typ) == PathClosedSubpathLength,
				Operation: SubpathOperation(op),
				Index:     index,
				Knots:     make([]Knot, 0, length),
			}
			p.Subpaths = append(p.Subpaths, sp)
			current = &p.Subpaths[len(p.Subpaths)-1]

		case PathClosedKnotLinked, PathClosedKnotUnlinked, PathOpenKnotLinked, PathOpenKnotUnlinked:
			knot, err := readKnot(r)
			if err != nil {
				return nil, err
			}
			knot.Linked = PathRecordType(typ) == PathClosedKnotLinked || PathRecordType(typ) == PathOpenKnotLinked
			if current != nil {
				current.Knots = append(current.Knots, knot)
			}

		case PathPathFillRule:
			if _, err := r.ReadBytes(24); err != nil {
				return nil, err
			}

		case PathInitialFillRule:
			rule, err := r.ReadUint16()
			if err != nil {
				return nil, err
			}
			if _, err := r.ReadBytes(22); err != nil {
				return nil, err
			}
			p.InitialFillIsAllPixels = rule == 1

		case PathClipboard:
			if _, err := r.ReadBytes(24); err != nil { // 5 fixed-point ints + 4 reserved
				return nil, err
			}

		default:
			if _, err := r.ReadBytes(24); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

func readKnot(r *Reader) (Knot, error) {
	var k Knot
	vals := make([]int32, 6)
	for i := range vals {
		v, err := r.ReadInt32()
		if err != nil {
			return k, err
		}
		vals[i] = v
	}
	k.Preceding = Point{Y: decodeFixedPoint(vals[0]), X: decodeFixedPoint(vals[1])}
	k.Anchor = Point{Y: decodeFixedPoint(vals[2]), X: decodeFixedPoint(vals[3])}
	k.Leaving = Point{Y: decodeFixedPoint(vals[4]), X: decodeFixedPoint(vals[5])}
	return k, nil
}

// WritePath is the write-side inverse of ReadPath.
func WritePath(w *Writer, p *Path) error {
	if err := w.WriteUint16(uint16(PathInitialFillRule)); err != nil {
		return err
	}
	rule := uint16(0)
	if p.InitialFillIsAllPixels {
		rule = 1
	}
	if err := w.WriteUint16(rule); err != nil {
		return err
	}
	if err := w.WritePad(22); err != nil {
		return err
	}

	for _, sp := range p.Subpaths {
		lengthType := PathOpenSubpathLength
		knotLinkedType := PathOpenKnotLinked
		knotUnlinkedType := PathOpenKnotUnlinked
		if sp.Closed {
			lengthType = PathClosedSubpathLength
			knotLinkedType = PathClosedKnotLinked
			knotUnlinkedType = PathClosedKnotUnlinked
		}
		if err := w.WriteUint16(uint16(lengthType)); err != nil {
			return err
		}
		if err := w.WriteUint16(uint16(len(sp.Knots))); err != nil {
			return err
		}
		if err := w.WriteInt16(int16(sp.Operation)); err != nil {
			return err
		}
		if err := w.WriteUint16(1); err != nil {
			return err
		}
		if err := w.WriteUint32(0); err != nil {
			return err
		}
		if err := w.WriteInt32(sp.Index); err != nil {
			return err
		}
		if err := w.WritePad(10); err != nil {
			return err
		}

		for _, k := range sp.Knots {
			typ := knotUnlinkedType
			if k.Linked {
				typ = knotLinkedType
			}
			if err := w.WriteUint16(uint16(typ)); err != nil {
				return err
			}
			vals := []int32{
				encodeFixedPoint(k.Preceding.Y), encodeFixedPoint(k.Preceding.X),
				encodeFixedPoint(k.Anchor.Y), encodeFixedPoint(k.Anchor.X),
				encodeFixedPoint(k.Leaving.Y), encodeFixedPoint(k.Leaving.X),
			}
			for _, v := range vals {
				if err := w.WriteInt32(v); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// VectorMask is the decoded "vmsk"/"vsms" tagged block: a version, flags,
// and the path itself.
type VectorMask struct {
	Version int32
	Flags   int32
	Path    *Path
}

func (m *VectorMask) Invert() bool  { return m.Flags&1 != 0 }
func (m *VectorMask) NotLink() bool { return m.Flags&2 != 0 }
func (m *VectorMask) Disable() bool { return m.Flags&4 != 0 }

// ParseVectorMask decodes a "vmsk"/"vsms" tagged block body.
func ParseVectorMask(data []byte) (*VectorMask, error) {
	r := NewReader(bytes.NewReader(data))
	version, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "vector mask version")
	}
	flags, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "vector mask flags")
	}
	remaining := len(data) - int(r.Tell())
	recordCount := remaining / 26
	path, err := ReadPath(r, recordCount)
	if err != nil {
		return nil, wrapf(err, "vector mask path")
	}
	return &VectorMask{Version: version, Flags: flags, Path: path}, nil
}
