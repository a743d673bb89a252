package psd

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// LinkedLayerKind is the "liFD"/"liFE"/"liFA" smart-object storage mode.
type LinkedLayerKind string

const (
	LinkedLayerData     LinkedLayerKind = "liFD" // embedded verbatim
	LinkedLayerExternal LinkedLayerKind = "liFE" // referenced external file
	LinkedLayerAlias    LinkedLayerKind = "liFA" // classic Mac alias record
)

// LinkedLayer is one entry of a "lnk2"/"lnkE"/"lnk3" tagged block: the
// smart-object source document a placed layer refers to, embedded or
// externally referenced. Grounded on
// original_source/src/psd_tools/psd/linked_layer.py.
type LinkedLayer struct {
	Kind     LinkedLayerKind
	Version  uint32
	UUID     string
	Filename string
	FileType string // 4-byte OSType, e.g. "8BPS"
	Creator  string // 4-byte OSType

	OpenFileDescriptor *Descriptor // present if the open_file flag was set

	// EXTERNAL-only.
	LinkedFileDescriptor *Descriptor
	Timestamp            []byte // raw 'I4Bd' record (year,month,day,hour,minute,seconds)
	FileSize             uint64

	Data []byte // embedded bytes (DATA kind, or EXTERNAL with version<=2/>2 cache)

	// Present from version>=5/6/7 respectively; zero value means absent.
	ChildID  string
	ModTime  float64
	HasModTime bool
	LockState  byte
	HasLockState bool
}

// ParseLinkedLayers decodes a "lnk2"/"lnkE"/"lnk3" tagged block body: a
// sequence of individually length-prefixed (u64, then padded to 4 bytes)
// LinkedLayer records running to the end of data.
func ParseLinkedLayers(data []byte) ([]*LinkedLayer, error) {
	r := NewReader(bytes.NewReader(data))
	var layers []*LinkedLayer
	for {
		length, err := r.ReadUint64()
		if err != nil {
			if err == io.EOF {
				break
			}
			return layers, nil
		}
		body, err := r.ReadBytes(int(length))
		if err != nil {
			return layers, wrapf(err, "linked layer body")
		}
		if pad := (4 - (8+int(length))%4) % 4; pad > 0 {
			if err := r.Skip(int64(pad)); err != nil {
				break
			}
		}
		layer, err := parseLinkedLayer(body)
		if err != nil {
			return layers, wrapf(err, "linked layer")
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func parseLinkedLayer(body []byte) (*LinkedLayer, error) {
	r := NewReader(bytes.NewReader(body))
	l := &LinkedLayer{}

	kind, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapf(err, "kind")
	}
	l.Kind = LinkedLayerKind(kind)

	l.Version, err = r.ReadUint32()
	if err != nil {
		return nil, wrapf(err, "version")
	}

	l.UUID, err = r.ReadPascalString(1)
	if err != nil {
		return nil, wrapf(err, "uuid")
	}
	l.Filename, err = r.ReadUnicodeString()
	if err != nil {
		return nil, wrapf(err, "filename")
	}

	fileType, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapf(err, "file type")
	}
	l.FileType = string(fileType)
	creator, err := r.ReadBytes(4)
	if err != nil {
		return nil, wrapf(err, "creator")
	}
	l.Creator = string(creator)

	dataSize, err := r.ReadUint64()
	if err != nil {
		return nil, wrapf(err, "data size")
	}
	hasOpenFile, err := r.ReadByte()
	if err != nil {
		return nil, wrapf(err, "open-file flag")
	}
	if hasOpenFile != 0 {
		desc, err := readVersionedDescriptor(r)
		if err != nil {
			return nil, wrapf(err, "open file descriptor")
		}
		l.OpenFileDescriptor = desc
	}

	switch l.Kind {
	case LinkedLayerExternal:
		desc, err := readVersionedDescriptor(r)
		if err != nil {
			return nil, wrapf(err, "linked file descriptor")
		}
		l.LinkedFileDescriptor = desc
		if l.Version > 3 {
			ts, err := r.ReadBytes(16) // 'I4Bd': u32 + 4 bytes + float64
			if err != nil {
				return nil, wrapf(err, "timestamp")
			}
			l.Timestamp = ts
		}
		l.FileSize, err = r.ReadUint64()
		if err != nil {
			return nil, wrapf(err, "file size")
		}
		if l.Version > 2 {
			l.Data, err = r.ReadBytes(int(dataSize))
			if err != nil {
				return nil, wrapf(err, "external data")
			}
		}
	case LinkedLayerAlias:
		if err := r.Skip(8); err != nil {
			return nil, wrapf(err, "alias padding")
		}
	case LinkedLayerData:
		l.Data, err = r.ReadBytes(int(dataSize))
		if err != nil {
			return nil, wrapf(err, "embedded data")
		}
	default:
		return nil, newParseError(ErrKindUnsupported, "linked-layer", r.Tell(), errors.Errorf("unknown linked layer kind %q", kind))
	}

	if l.Version >= 5 {
		if l.ChildID, err = r.ReadUnicodeString(); err != nil {
			return nil, wrapf(err, "child id")
		}
	}
	if l.Version >= 6 {
		if l.ModTime, err = r.ReadFloat64(); err != nil {
			return nil, wrapf(err, "mod time")
		}
		l.HasModTime = true
	}
	if l.Version >= 7 {
		if l.LockState, err = r.ReadByte(); err != nil {
			return nil, wrapf(err, "lock state")
		}
		l.HasLockState = true
	}
	if l.Kind == LinkedLayerExternal && l.Version == 2 {
		l.Data, err = r.ReadBytes(int(dataSize))
		if err != nil {
			return nil, wrapf(err, "external data (v2)")
		}
	}

	return l, nil
}

// readVersionedDescriptor reads a u32 version field (always 16 in
// practice) followed by a plain descriptor, the "DescriptorBlock"
// framing used throughout linked-layer and smart-object records.
func readVersionedDescriptor(r *Reader) (*Descriptor, error) {
	if _, err := r.ReadUint32(); err != nil {
		return nil, err
	}
	return ReadDescriptor(r)
}
