package psd

import "image/color"

// BlendFunc composites a source pixel over a destination pixel at the
// given layer opacity (0-255).
//
// Pixel rasterization / blend-mode compositing is explicitly out of this
// library's core scope (spec.md §1 names it an external collaborator
// interface, not something to specify in full); what follows is the
// best-effort preview compositor spec.md §4.M calls for, not a complete
// re-implementation of Photoshop's ~30 blend modes. Normal-over handles
// the overwhelming majority of layers in the wild; multiply and screen
// are included since they're the next two most common modes a real
// document exercises. Anything else falls back to normal.
type BlendFunc func(src, dst color.Color, opacity uint8) color.RGBA

// GetBlendFunc returns the best-effort blend function for a layer's
// blend-mode key, recognizing both the long-form name a caller might
// construct a Layer with and the 4-byte OSType key read off disk.
func GetBlendFunc(blendMode string) BlendFunc {
	switch blendMode {
	case "multiply", "mul ":
		return blendMultiply
	case "screen", "scrn":
		return blendScreen
	default:
		return blendNormal
	}
}

// blendNormal is plain source-over alpha compositing, scaled by the
// layer's opacity.
func blendNormal(src, dst color.Color, opacity uint8) color.RGBA {
	sr, sg, sb, sa := toFloat(src)
	dr, dg, db, da := toFloat(dst)
	return compositeOver(sr, sg, sb, sa, dr, dg, db, da, sr, sg, sb, opacity)
}

// blendMultiply darkens by multiplying channel values, then composites
// the result over dst the same way blendNormal does.
func blendMultiply(src, dst color.Color, opacity uint8) color.RGBA {
	sr, sg, sb, sa := toFloat(src)
	dr, dg, db, da := toFloat(dst)
	return compositeOver(sr, sg, sb, sa, dr, dg, db, da, sr*dr, sg*dg, sb*db, opacity)
}

// blendScreen lightens by inverse-multiplying, then composites the
// result over dst the same way blendNormal does.
func blendScreen(src, dst color.Color, opacity uint8) color.RGBA {
	sr, sg, sb, sa := toFloat(src)
	dr, dg, db, da := toFloat(dst)
	blend := func(s, d float64) float64 { return 1 - (1-s)*(1-d) }
	return compositeOver(sr, sg, sb, sa, dr, dg, db, da, blend(sr, dr), blend(sg, dg), blend(sb, db), opacity)
}

func toFloat(c color.Color) (r, g, b, a float64) {
	r32, g32, b32, a32 := c.RGBA()
	return float64(r32) / 65535.0, float64(g32) / 65535.0, float64(b32) / 65535.0, float64(a32) / 65535.0
}

// compositeOver alpha-composites a (possibly mode-blended) source color
// over dst at the given layer opacity: C = (Cs*As + Cd*Ad*(1-As)) / Ao.
func compositeOver(sr, sg, sb, sa, dr, dg, db, da, blendR, blendG, blendB float64, opacity uint8) color.RGBA {
	alpha := float64(opacity) / 255.0 * sa
	if alpha == 0 {
		return color.RGBA{uint8(dr * 255), uint8(dg * 255), uint8(db * 255), uint8(da * 255)}
	}

	outAlpha := alpha + da*(1.0-alpha)
	if outAlpha == 0 {
		return color.RGBA{0, 0, 0, 0}
	}

	outR := (blendR*alpha + dr*da*(1.0-alpha)) / outAlpha
	outG := (blendG*alpha + dg*da*(1.0-alpha)) / outAlpha
	outB := (blendB*alpha + db*da*(1.0-alpha)) / outAlpha

	return color.RGBA{
		uint8(clamp(outR * 255.0)),
		uint8(clamp(outG * 255.0)),
		uint8(clamp(outB * 255.0)),
		uint8(clamp(outAlpha * 255.0)),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
