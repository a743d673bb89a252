package psd

import (
	"bytes"
)

// SectionDividerType distinguishes a plain layer from the bounding
// markers that bracket a group's member layers. Grounded on
// original_source/src/psd_tools/constants.py's SectionDivider enum.
type SectionDividerType int32

const (
	SectionDividerOther         SectionDividerType = 0
	SectionDividerOpenFolder    SectionDividerType = 1
	SectionDividerClosedFolder  SectionDividerType = 2
	SectionDividerBoundingSection SectionDividerType = 3
)

func (s SectionDividerType) String() string {
	switch s {
	case SectionDividerOpenFolder:
		return "open folder"
	case SectionDividerClosedFolder:
		return "closed folder"
	case SectionDividerBoundingSection:
		return "bounding section"
	default:
		return "layer"
	}
}

// SectionDividerInfo is the decoded "lsct"/"lsdk" tagged block: what kind
// of tree node this layer record represents, plus (for folders) the
// blend mode the group itself composites with.
type SectionDividerInfo struct {
	Type      SectionDividerType
	BlendMode string // only set when the block carries a signature+key
	SubType   int32  // 0=normal, 1=timeline group; only set on newer writers
}

func parseSectionDivider(data []byte) (*SectionDividerInfo, error) {
	r := NewReader(bytes.NewReader(data))
	typ, err := r.ReadInt32()
	if err != nil {
		return nil, wrapf(err, "section divider type")
	}
	info := &SectionDividerInfo{Type: SectionDividerType(typ)}
	if len(data) < 12 {
		return info, nil
	}
	sig, err := r.ReadBytes(4)
	if err != nil {
		return info, nil
	}
	if string(sig) != "8BIM" {
		return info, nil
	}
	blendKey, err := r.ReadBytes(4)
	if err != nil {
		return info, nil
	}
	info.BlendMode = string(blendKey)
	if len(data) >= 16 {
		if sub, err := r.ReadInt32(); err == nil {
			info.SubType = sub
		}
	}
	return info, nil
}

func parseUnicodeNameBlock(data []byte) (string, error) {
	r := NewReader(bytes.NewReader(data))
	return r.ReadUnicodeString()
}

func parseLayerIDBlock(data []byte) (int32, error) {
	r := NewReader(bytes.NewReader(data))
	return r.ReadInt32()
}

func parseFillOpacityBlock(data []byte) (byte, error) {
	if len(data) == 0 {
		return 255, nil
	}
	return data[0], nil
}

// EnhanceLayer decodes every tagged block EnhanceLayer understands into
// the convenience fields on l. Unknown blocks are left in l.TaggedBlocks
// for round-tripping and for callers that need the raw bytes (e.g.
// adjustments.go, linked_layer.go).
func EnhanceLayer(l *Layer) error {
	for _, b := range l.TaggedBlocks {
		var err error
		switch b.Key {
		case "luni":
			l.UnicodeName, err = parseUnicodeNameBlock(b.Data)
		case "lyid":
			l.LayerID, err = parseLayerIDBlock(b.Data)
		case "iOpa":
			l.FillOpacity, err = parseFillOpacityBlock(b.Data)
		case "lsct", "lsdk":
			l.SectionDivider, err = parseSectionDivider(b.Data)
		case "vmsk", "vsms":
			l.VectorMaskInfo, err = ParseVectorMask(b.Data)
		case "TySh":
			l.TypeTool, err = ParseTypeToolInfo(b.Data)
		case "lrFX", "lfx2":
			l.Effects, err = ParseLayerEffects(b.Data)
		case "brit", "blnc", "mixr", "expA", "hue ", "hue2", "levl",
			"phfl", "selc", "post", "thrs", "nvrt", "grdm":
			l.Adjustment, err = ParseAdjustment(b.Key, b.Data)
		default:
			continue
		}
		if err != nil {
			return wrapf(err, "tagged block %q", b.Key)
		}
	}
	if l.UnicodeName == "" {
		l.UnicodeName = l.Name
	}
	if l.FillOpacity == 0 {
		l.FillOpacity = 255
	}
	return nil
}

// NodeType classifies a layer record for logical-tree construction
// (component L, tree.go).
type NodeType int

const (
	NodeTypeLayer NodeType = iota
	NodeTypeGroup
	NodeTypeGroupEnd
)

// NodeType reports what kind of logical-tree node this record represents.
func (l *Layer) NodeType() NodeType {
	if l.SectionDivider == nil {
		return NodeTypeLayer
	}
	switch l.SectionDivider.Type {
	case SectionDividerOpenFolder, SectionDividerClosedFolder:
		return NodeTypeGroup
	case SectionDividerBoundingSection:
		return NodeTypeGroupEnd
	default:
		return NodeTypeLayer
	}
}

func (l *Layer) IsFolderOpen() bool {
	return l.SectionDivider != nil && l.SectionDivider.Type == SectionDividerOpenFolder
}

func (l *Layer) IsFolderClosed() bool {
	return l.SectionDivider != nil && l.SectionDivider.Type == SectionDividerClosedFolder
}
