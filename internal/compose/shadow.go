package compose

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// ShadowOptions parameterises the procedural drop shadow.
type ShadowOptions struct {
	// Blur is the Gaussian sigma applied to the whole shadow canvas.
	Blur float64
	// Opacity scales the silhouette alpha, 0..1.
	Opacity float64
	// Scale enlarges the silhouette relative to the subject.
	Scale float64
	// X and Y offset the silhouette from centre.
	X, Y int
	// EdgeBuffer is the padding added around the scaled silhouette so the
	// blur has room to fade out.
	EdgeBuffer int
}

// DefaultShadowOptions returns the shadow used for generated shadow assets.
func DefaultShadowOptions() ShadowOptions {
	return ShadowOptions{Blur: 10, Opacity: 0.6, Scale: 1.0, EdgeBuffer: 60}
}

// ShadowSize returns the canvas size ShadowLayer produces for a w×h subject.
func (o ShadowOptions) ShadowSize(w, h int) (int, int) {
	scale := o.Scale
	if scale <= 0 {
		scale = 1
	}
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	return sw + o.EdgeBuffer, sh + o.EdgeBuffer
}

// ShadowLayer renders only the shadow of img: a darkened, scaled silhouette
// placed on a transparent canvas of ShadowSize and blurred.
func ShadowLayer(img image.Image, opts ShadowOptions) *image.NRGBA {
	opacity := math.Max(0, math.Min(1, opts.Opacity))
	silhouette := imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{A: uint8(math.Round(float64(c.A) * opacity))}
	})

	b := img.Bounds()
	cw, ch := opts.ShadowSize(b.Dx(), b.Dy())
	sw, sh := cw-opts.EdgeBuffer, ch-opts.EdgeBuffer
	if sw != b.Dx() || sh != b.Dy() {
		silhouette = imaging.Resize(silhouette, sw, sh, imaging.Linear)
	}

	canvas := imaging.New(cw, ch, color.NRGBA{})
	off := centreOffset(canvas.Rect, silhouette.Rect).Add(image.Pt(opts.X, opts.Y))
	canvas = imaging.Overlay(canvas, silhouette, off, 1.0)
	if opts.Blur > 0 {
		canvas = imaging.Blur(canvas, opts.Blur)
	}
	return canvas
}

// Shadow gives img a soft drop shadow without blurring the subject: the
// shadow layer is rendered and the sharp original is composited centred on top.
// The result is larger than img by the shadow's edge buffer.
func Shadow(img image.Image, opts ShadowOptions) *image.NRGBA {
	layer := ShadowLayer(img, opts)
	off := centreOffset(layer.Rect, img.Bounds())
	return CompositeOver(layer, img, off.X, off.Y)
}

// CompositeShadowRendered centres img over a pre-rendered shadow asset. The
// canvas takes the larger of the two sizes on each axis.
func CompositeShadowRendered(img, shadow image.Image) *image.NRGBA {
	ib, sb := img.Bounds(), shadow.Bounds()
	canvas := imaging.New(max(ib.Dx(), sb.Dx()), max(ib.Dy(), sb.Dy()), color.NRGBA{})

	so := centreOffset(canvas.Rect, sb)
	canvas = imaging.Overlay(canvas, shadow, so, 1.0)
	io := centreOffset(canvas.Rect, ib)
	return imaging.Overlay(canvas, img, io, 1.0)
}
