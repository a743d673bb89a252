package psd

// LayerMaskSection is the layer-and-mask information section (component
// K): a layer count and per-layer records, followed by an optional
// global layer mask and a stream of document-wide tagged blocks.
// Grounded on the structure of the teacher's LayerMask.Parse, generalized
// to version-aware (PSB) length fields and the new tagged-block/mask
// machinery.
type LayerMaskSection struct {
	Layers []*Layer

	// AbsoluteAlpha records whether the first alpha channel of the merged
	// image holds true transparency data, signaled by a negative layer
	// count on disk.
	AbsoluteAlpha bool

	GlobalMask *GlobalLayerMask

	TaggedBlocks []TaggedBlock

	// Decoded convenience fields, populated from TaggedBlocks by
	// EnhanceLayerMaskSection. TaggedBlocks remains the source of truth
	// for Write.
	LinkedLayers []*LinkedLayer
	Patterns     []*Pattern
}

// EnhanceLayerMaskSection decodes the document-wide tagged blocks
// EnhanceLayer's per-layer counterpart doesn't see: smart-object linked
// layers and embedded pattern swatches, both of which live in the global
// additional layer information rather than on any one layer record.
func EnhanceLayerMaskSection(sec *LayerMaskSection) error {
	for _, b := range sec.TaggedBlocks {
		var err error
		switch b.Key {
		case "lnk2", "lnkE", "lnk3":
			var layers []*LinkedLayer
			layers, err = ParseLinkedLayers(b.Data)
			sec.LinkedLayers = append(sec.LinkedLayers, layers...)
		case "Patt", "Pat2", "Pat3":
			var patterns []*Pattern
			patterns, err = ParsePatterns(b.Data)
			sec.Patterns = append(sec.Patterns, patterns...)
		default:
			continue
		}
		if err != nil {
			return wrapf(err, "tagged block %q", b.Key)
		}
	}
	return nil
}

// GlobalLayerMask is the document-wide layer mask overlay descriptor that
// follows the layer records.
type GlobalLayerMask struct {
	OverlayColorSpace uint16
	ColorComponents   [4]uint16
	Opacity           uint16 // 0-100
	Kind              byte
}

// ReadLayerMaskSection parses the full layer-and-mask information section.
// h is needed for the document's channel depth/version when decoding
// per-layer channel data.
func ReadLayerMaskSection(r *Reader, h *Header) (*LayerMaskSection, error) {
	length, err := r.ReadLength(h.IsBig())
	if err != nil {
		return nil, wrapf(err, "layer and mask section length")
	}
	sec := &LayerMaskSection{}
	if length == 0 {
		return sec, nil
	}
	start := r.Tell()
	end := start + int64(length)

	if err := readLayerInfo(r, sec, h); err != nil {
		return nil, wrapf(err, "layer info")
	}

	if r.Tell() < end {
		if err := readGlobalLayerMask(r, sec); err != nil {
			return nil, wrapf(err, "global layer mask")
		}
	}

	if remaining := end - r.Tell(); remaining > 0 {
		blocks, err := ReadTaggedBlocks(r, end, h.IsBig())
		if err != nil {
			return nil, wrapf(err, "global additional layer info")
		}
		sec.TaggedBlocks = blocks
		if err := EnhanceLayerMaskSection(sec); err != nil {
			return nil, wrapf(err, "global additional layer info")
		}
	}

	if pos := r.Tell(); pos < end {
		if err := r.Skip(end - pos); err != nil {
			return nil, err
		}
	}

	return sec, nil
}

func readLayerInfo(r *Reader, sec *LayerMaskSection, h *Header) error {
	length, err := r.ReadLength(h.IsBig())
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	start := r.Tell()
	end := start + int64(length)

	count, err := r.ReadInt16()
	if err != nil {
		return wrapf(err, "layer count")
	}
	if count < 0 {
		sec.AbsoluteAlpha = true
		count = -count
	}

	sec.Layers = make([]*Layer, count)
	for i := int16(0); i < count; i++ {
		layer, err := ReadLayerRecord(r, h.IsBig())
		if err != nil {
			return wrapf(err, "layer record %d", i)
		}
		sec.Layers[i] = layer
	}

	for i, layer := range sec.Layers {
		if err := ReadLayerChannelData(r, layer, int(h.Depth), h.IsBig()); err != nil {
			return wrapf(err, "layer %d channel data", i)
		}
	}

	if pos := r.Tell(); pos < end {
		if err := r.Skip(end - pos); err != nil {
			return err
		}
	}
	return nil
}

func readGlobalLayerMask(r *Reader, sec *LayerMaskSection) error {
	length, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	end := r.Tell() + int64(length)

	g := &GlobalLayerMask{}
	g.OverlayColorSpace, err = r.ReadUint16()
	if err != nil {
		return err
	}
	for i := range g.ColorComponents {
		v, err := r.ReadUint16()
		if err != nil {
			return err
		}
		g.ColorComponents[i] = v
	}
	g.Opacity, err = r.ReadUint16()
	if err != nil {
		return err
	}
	kind, err := r.ReadByte()
	if err != nil {
		return err
	}
	g.Kind = kind
	sec.GlobalMask = g

	if pos := r.Tell(); pos < end {
		if err := r.Skip(end - pos); err != nil {
			return err
		}
	}
	return nil
}
