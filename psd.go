package psd

import "io"

// Container is the fully parsed five-section PSD/PSB document (component
// K): header, image resources, layer-and-mask info, and the merged
// preview image, in on-disk order.
type Container struct {
	Header    *Header
	Resources *ResourceSection
	LayerMask *LayerMaskSection
	Image     *MergedImage
}

// ReadContainer parses a complete PSD/PSB stream from rs.
func ReadContainer(rs io.ReadSeeker) (*Container, error) {
	r := NewReader(rs)

	header, err := ParseHeader(r)
	if err != nil {
		return nil, wrapf(err, "header")
	}

	resources, err := ParseResourceSection(r)
	if err != nil {
		return nil, wrapf(err, "image resources")
	}

	layerMask, err := ReadLayerMaskSection(r, header)
	if err != nil {
		return nil, wrapf(err, "layer and mask info")
	}

	image, err := ReadMergedImage(r, header)
	if err != nil {
		return nil, wrapf(err, "merged image")
	}

	return &Container{
		Header:    header,
		Resources: resources,
		LayerMask: layerMask,
		Image:     image,
	}, nil
}

// Write serializes the container back to ws in the same five-section
// order it was read in.
func (c *Container) Write(ws io.WriteSeeker) error {
	w := NewWriter(ws)

	if err := c.Header.Write(w); err != nil {
		return wrapf(err, "header")
	}
	if err := c.Resources.Write(w); err != nil {
		return wrapf(err, "image resources")
	}
	if err := writeLayerMaskSection(w, c.LayerMask, c.Header); err != nil {
		return wrapf(err, "layer and mask info")
	}
	if err := writeMergedImage(w, c.Image, c.Header); err != nil {
		return wrapf(err, "merged image")
	}
	return nil
}

// Tree builds the logical layer tree from the flat layer record list
// (component L), rooted at the document canvas.
func (c *Container) Tree() *Tree {
	return BuildTree(c.LayerMask.Layers, c.Header.Width(), c.Header.Height())
}

func writeLayerMaskSection(w *Writer, sec *LayerMaskSection, h *Header) error {
	return w.LengthBlock(h.IsBig(), func() error {
		if err := writeLayerInfo(w, sec, h); err != nil {
			return err
		}
		if err := writeGlobalLayerMask(w, sec.GlobalMask); err != nil {
			return err
		}
		return WriteTaggedBlocks(w, sec.TaggedBlocks, h.IsBig())
	})
}

func writeLayerInfo(w *Writer, sec *LayerMaskSection, h *Header) error {
	return w.LengthBlock(h.IsBig(), func() error {
		count := int16(len(sec.Layers))
		if sec.AbsoluteAlpha {
			count = -count
		}
		if err := w.WriteInt16(count); err != nil {
			return err
		}
		for _, l := range sec.Layers {
			if err := WriteLayerRecord(w, l, h.IsBig()); err != nil {
				return err
			}
		}
		for _, l := range sec.Layers {
			if err := WriteLayerChannelData(w, l); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeGlobalLayerMask(w *Writer, g *GlobalLayerMask) error {
	if g == nil {
		return w.WriteUint32(0)
	}
	return w.LengthBlock(false, func() error {
		if err := w.WriteUint16(g.OverlayColorSpace); err != nil {
			return err
		}
		for _, c := range g.ColorComponents {
			if err := w.WriteUint16(c); err != nil {
				return err
			}
		}
		if err := w.WriteUint16(g.Opacity); err != nil {
			return err
		}
		return w.WriteByte(g.Kind)
	})
}

func writeMergedImage(w *Writer, img *MergedImage, h *Header) error {
	if err := w.WriteUint16(uint16(img.Compression)); err != nil {
		return err
	}
	switch img.Compression {
	case CompressionRaw:
		for _, ch := range img.Channels {
			if _, err := w.Write(ch); err != nil {
				return err
			}
		}
		return nil
	case CompressionZIP, CompressionZIPPrediction:
		for _, ch := range img.Channels {
			plane := append([]byte(nil), ch...)
			if img.Compression == CompressionZIPPrediction {
				deltaPrediction(plane, img.Width, img.Height, img.Depth)
			}
			compressed, err := zlibDeflate(plane)
			if err != nil {
				return err
			}
			if _, err := w.Write(compressed); err != nil {
				return err
			}
		}
		return nil
	case CompressionRLE:
		rowBytes := channelRowBytes(img.Width, img.Depth)
		encoded := make([][]byte, len(img.Channels))
		rowLens := make([][]uint16, len(img.Channels))
		for i, ch := range img.Channels {
			packed, lens, err := encodeRLERows(ch, rowBytes, img.Height)
			if err != nil {
				return err
			}
			encoded[i] = packed
			rowLens[i] = lens
		}
		for _, lens := range rowLens {
			for _, l := range lens {
				if err := w.WriteUint16(l); err != nil {
					return err
				}
			}
		}
		for _, packed := range encoded {
			if _, err := w.Write(packed); err != nil {
				return err
			}
		}
		return nil
	default:
		return newParseError(ErrKindUnsupported, "merged-image", w.Tell(), nil)
	}
}

func encodeRLERows(rows []byte, rowBytes, height int) ([]byte, []uint16, error) {
	var out []byte
	lens := make([]uint16, height)
	for y := 0; y < height; y++ {
		start := y * rowBytes
		end := start + rowBytes
		if end > len(rows) {
			end = len(rows)
		}
		packed := encodePackBits(rows[start:end])
		lens[y] = uint16(len(packed))
		out = append(out, packed...)
	}
	return out, lens, nil
}
