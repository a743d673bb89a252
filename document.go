package psd

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ReadOptions configures Open. A nil *ReadOptions (or a nil Logger field)
// is equivalent to zap.NewNop(): the library never logs on the happy
// path, matching the teacher's silent-unless-asked posture.
type ReadOptions struct {
	Logger *zap.Logger
}

// WriteOptions configures Document.Save.
type WriteOptions struct {
	Logger *zap.Logger

	// SkipPreviewRegeneration disables the best-effort preview re-render
	// on save; the previous merged image is written back unchanged.
	SkipPreviewRegeneration bool
}

// Document is the top-level driver (component M): the parsed container
// plus the logical tree projected from it, dirty tracking, and a
// non-fatal warning channel. It is not internally synchronized; callers
// that mutate it from more than one goroutine must provide their own
// exclusion.
type Document struct {
	container *Container
	tree      *Tree

	logger   *zap.Logger
	warnings []error
	dirty    bool
}

func nopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Open parses a complete PSD/PSB stream and projects its logical tree.
func Open(rs io.ReadSeeker, opts *ReadOptions) (*Document, error) {
	var logger *zap.Logger
	if opts != nil {
		logger = opts.Logger
	}
	logger = nopLogger(logger)

	c, err := ReadContainer(rs)
	if err != nil {
		return nil, wrapf(err, "open")
	}

	d := &Document{container: c, logger: logger}
	d.tree = d.container.Tree()
	return d, nil
}

// New creates an empty document of the given pixel mode, size, and bit
// depth: a single-channel-count-appropriate header, no layers, and a
// blank raw merged image. It is the Go counterpart of the reference
// implementation's `new(mode, size, color, depth)` constructor, minus
// the background-fill-color convenience (callers set pixel data on the
// merged image directly since this library does no rasterization).
func New(width, height int, mode ColorMode, depth uint16) (*Document, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("new document: invalid size %dx%d", width, height)
	}
	channels, ok := defaultChannelCount(mode)
	if !ok {
		return nil, errors.Errorf("new document: unsupported color mode %s", mode)
	}

	h := &Header{
		Version:  1,
		Channels: channels,
		Rows:     uint32(height),
		Cols:     uint32(width),
		Depth:    depth,
		Mode:     mode,
	}

	planeBytes := channelRowBytes(width, int(depth)) * height
	planes := make([][]byte, channels)
	for i := range planes {
		planes[i] = make([]byte, planeBytes)
	}

	c := &Container{
		Header:    h,
		Resources: &ResourceSection{},
		LayerMask: &LayerMaskSection{},
		Image: &MergedImage{
			Width:       width,
			Height:      height,
			Depth:       int(depth),
			Mode:        mode,
			Compression: CompressionRaw,
			Channels:    planes,
		},
	}

	d := &Document{container: c, logger: zap.NewNop(), dirty: true}
	d.tree = d.container.Tree()
	return d, nil
}

func defaultChannelCount(mode ColorMode) (uint16, bool) {
	switch mode {
	case ColorModeBitmap, ColorModeGrayscale, ColorModeIndexed, ColorModeDuotone:
		return 1, true
	case ColorModeRGB:
		return 3, true
	case ColorModeCMYK:
		return 4, true
	case ColorModeLab:
		return 3, true
	default:
		return 0, false
	}
}

// Header returns the document's fixed header.
func (d *Document) Header() *Header { return d.container.Header }

// Resources returns the document's image-resource registry.
func (d *Document) Resources() *ResourceSection { return d.container.Resources }

// Tree returns the current logical tree projection. Every mutator rebuilds
// it immediately; callers should not cache a Tree across a mutation.
func (d *Document) Tree() *Tree { return d.tree }

// Root returns the tree's synthetic root node.
func (d *Document) Root() Node { return d.tree.Root() }

// Layers returns the flat on-disk layer record list (component I), in
// the order they will be written back.
func (d *Document) Layers() []*Layer { return d.container.LayerMask.Layers }

// TaggedBlocks returns the document-wide additional layer information
// blocks (linked layers, embedded patterns, and anything else this
// library doesn't decode into a typed accessor).
func (d *Document) TaggedBlocks() []TaggedBlock { return d.container.LayerMask.TaggedBlocks }

// IsUpdated reports whether the document has been mutated since it was
// opened, created, or last saved.
func (d *Document) IsUpdated() bool { return d.dirty }

// MarkDirty flags the document as having pending unsaved changes.
// Mutators call this automatically; exposed for callers that mutate a
// Layer's fields directly without going through a Document method.
func (d *Document) MarkDirty() { d.dirty = true }

// Warnings returns every non-fatal error accumulated since the document
// was opened (or since the last call to ClearWarnings).
func (d *Document) Warnings() []error { return d.warnings }

// ClearWarnings discards the accumulated warning log.
func (d *Document) ClearWarnings() { d.warnings = nil }

func (d *Document) warn(msg string, err error) {
	d.warnings = append(d.warnings, errors.Wrap(err, msg))
	d.logger.Warn(msg, zap.Error(err))
}

// AppendLayer appends a new flat layer record to the end of the layer
// list and marks the document dirty. The tree projection is rebuilt so
// the new layer is immediately visible via Tree/Root.
func (d *Document) AppendLayer(l *Layer) {
	d.container.LayerMask.Layers = append(d.container.LayerMask.Layers, l)
	d.rebuildTree()
}

// InsertLayer inserts l at position i of the flat layer list (0 is the
// bottom of the document, matching on-disk order).
func (d *Document) InsertLayer(i int, l *Layer) error {
	layers := d.container.LayerMask.Layers
	if i < 0 || i > len(layers) {
		return errors.Errorf("insert layer: index %d out of range [0,%d]", i, len(layers))
	}
	layers = append(layers, nil)
	copy(layers[i+1:], layers[i:])
	layers[i] = l
	d.container.LayerMask.Layers = layers
	d.rebuildTree()
	return nil
}

// RemoveLayer removes the flat layer record at position i.
func (d *Document) RemoveLayer(i int) error {
	layers := d.container.LayerMask.Layers
	if i < 0 || i >= len(layers) {
		return errors.Errorf("remove layer: index %d out of range [0,%d)", i, len(layers))
	}
	d.container.LayerMask.Layers = append(layers[:i], layers[i+1:]...)
	d.rebuildTree()
	return nil
}

// PopLayer removes and returns the last flat layer record.
func (d *Document) PopLayer() (*Layer, error) {
	layers := d.container.LayerMask.Layers
	if len(layers) == 0 {
		return nil, errors.New("pop layer: document has no layers")
	}
	last := layers[len(layers)-1]
	d.container.LayerMask.Layers = layers[:len(layers)-1]
	d.rebuildTree()
	return last, nil
}

// ClearLayers removes every layer record, leaving an empty canvas.
func (d *Document) ClearLayers() {
	d.container.LayerMask.Layers = nil
	d.rebuildTree()
}

// MoveLayerUp swaps the flat layer record at i with the one above it
// (towards the end of the slice, i.e. towards the top of the stack).
func (d *Document) MoveLayerUp(i int) error {
	return d.swapLayers(i, i+1)
}

// MoveLayerDown swaps the flat layer record at i with the one below it.
func (d *Document) MoveLayerDown(i int) error {
	return d.swapLayers(i, i-1)
}

func (d *Document) swapLayers(i, j int) error {
	layers := d.container.LayerMask.Layers
	if i < 0 || i >= len(layers) || j < 0 || j >= len(layers) {
		return errors.Errorf("move layer: index out of range [0,%d)", len(layers))
	}
	layers[i], layers[j] = layers[j], layers[i]
	d.rebuildTree()
	return nil
}

func (d *Document) rebuildTree() {
	d.tree = d.container.Tree()
	d.dirty = true
}

// Save re-serializes the document. On success it clears the dirty flag.
// A best-effort attempt to regenerate the merged preview image is made
// via this package's Renderer unless opts.SkipPreviewRegeneration is
// set; if rendering fails the previous preview is written unchanged and
// a warning is logged, per spec.md §4.M.
func (d *Document) Save(ws io.WriteSeeker, opts *WriteOptions) error {
	logger := d.logger
	skipPreview := false
	if opts != nil {
		if opts.Logger != nil {
			logger = opts.Logger
		}
		skipPreview = opts.SkipPreviewRegeneration
	}

	if !skipPreview {
		if err := d.regeneratePreview(); err != nil {
			d.warnings = append(d.warnings, errors.Wrap(err, "preview regeneration"))
			logger.Warn("preview regeneration failed, keeping previous preview", zap.Error(err))
		}
	}

	if err := d.container.Write(ws); err != nil {
		return wrapf(err, "save")
	}
	d.dirty = false
	return nil
}

// regeneratePreview best-effort re-renders the merged image from the
// current tree via the root node's Renderer, in RGB/8bpc raw form. Any
// document that is not 3-channel 8-bit RGB is reported up as an error for
// Save to turn into a warning rather than a fatal failure.
func (d *Document) regeneratePreview() error {
	if h := d.container.Header; h.Mode != ColorModeRGB || h.Depth != 8 || h.Channels != 3 {
		return errors.Errorf("%s %d-bit %d-channel document not supported", h.ModeName(), h.Depth, h.Channels)
	}
	root := d.Root()
	rendered, err := NewRenderer(&root).Render()
	if err != nil {
		return err
	}
	bounds := rendered.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	planes := make([][]byte, 3)
	for i := range planes {
		planes[i] = make([]byte, width*height)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := rendered.RGBAAt(x, y)
			off := y*width + x
			planes[0][off] = px.R
			planes[1][off] = px.G
			planes[2][off] = px.B
		}
	}

	d.container.Image = &MergedImage{
		Width:       width,
		Height:      height,
		Depth:       8,
		Mode:        ColorModeRGB,
		Compression: CompressionRaw,
		Channels:    planes,
	}
	return nil
}
