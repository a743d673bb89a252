package psd

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// Renderer is the best-effort preview compositor spec.md §4.M calls a
// "pluggable compositor": given a tree node it walks its subtree bottom
// to top and composites visible layers onto a single canvas using each
// layer's own blend mode. Pixel rasterization is explicitly out of this
// library's core scope; this exists so Document.Save has something to
// call when regenerating the merged preview image.
type Renderer struct {
	root   Node
	big    bool
	canvas *image.RGBA
}

// NewRenderer creates a renderer for the given node's subtree. big
// selects PSB (64-bit length) channel decoding, since the layer's
// channel data may not have been decoded yet.
func NewRenderer(root *Node) *Renderer {
	width := root.Width()
	height := root.Height()
	canvas := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	return &Renderer{root: *root, canvas: canvas}
}

// Render composites the node's subtree onto a fresh transparent canvas.
func (r *Renderer) Render() (*image.RGBA, error) {
	for y := 0; y < r.canvas.Bounds().Dy(); y++ {
		for x := 0; x < r.canvas.Bounds().Dx(); x++ {
			r.canvas.Set(x, y, color.RGBA{})
		}
	}
	if err := r.renderNode(r.root, 0, 0); err != nil {
		return nil, err
	}
	return r.canvas, nil
}

// renderNode recursively composites node and its subtree. Children are
// walked in on-disk order (bottom of the stack first) so later layers
// paint over earlier ones, matching Photoshop's compositing order.
func (r *Renderer) renderNode(node Node, offsetX, offsetY int32) error {
	if !node.Visible() {
		return nil
	}
	if node.IsLayer() {
		if layer := node.Layer(); layer != nil {
			return r.renderLayer(layer, node.Bounds(), offsetX, offsetY)
		}
		return nil
	}
	for _, child := range node.Children() {
		if err := r.renderNode(child, offsetX, offsetY); err != nil {
			return err
		}
	}
	return nil
}

// renderLayer composites a single layer's pixels onto the canvas using
// its own blend mode and opacity.
func (r *Renderer) renderLayer(layer *Layer, bounds Rectangle, offsetX, offsetY int32) error {
	if len(layer.ChannelData) == 0 {
		return nil
	}
	layerImg, err := layer.ToImage(r.big)
	if err != nil {
		return fmt.Errorf("failed to get layer image: %w", err)
	}
	if layerImg == nil {
		return nil
	}

	rootBounds := r.root.Bounds()
	canvasX := int(bounds.Left-rootBounds.Left) + int(offsetX)
	canvasY := int(bounds.Top-rootBounds.Top) + int(offsetY)

	blend := GetBlendFunc(layer.BlendMode)
	layerBounds := layerImg.Bounds()
	for y := layerBounds.Min.Y; y < layerBounds.Max.Y; y++ {
		for x := layerBounds.Min.X; x < layerBounds.Max.X; x++ {
			dstX, dstY := canvasX+x, canvasY+y
			if dstX < 0 || dstY < 0 || dstX >= r.canvas.Bounds().Dx() || dstY >= r.canvas.Bounds().Dy() {
				continue
			}
			srcColor := layerImg.At(x, y)
			dstColor := r.canvas.At(dstX, dstY)
			blended := blend(srcColor, dstColor, layer.Opacity)
			r.canvas.Set(dstX, dstY, blended)
		}
	}
	return nil
}

// ToPNG renders n's subtree to an RGBA image.
func (n Node) ToPNG() (*image.RGBA, error) {
	return NewRenderer(&n).Render()
}

// SaveAsPNG renders n's subtree and writes it to filename as a PNG.
func (n Node) SaveAsPNG(filename string) error {
	img, err := n.ToPNG()
	if err != nil {
		return fmt.Errorf("failed to render node: %w", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}
