package compose

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// SquareEdgeInset is how far inside each corner the patch colour is sampled.
	SquareEdgeInset = 10
	// SquareEdgeBlock is the side of the opaque block stamped into each corner.
	SquareEdgeBlock = 18
)

// ForceSquareEdges squares off art exported with transparent rounded corners.
// If the top-left pixel is fully opaque the input is returned unchanged.
// Otherwise a colour sampled just inside each corner is stamped as an opaque
// block beneath that corner of the original.
func ForceSquareEdges(img image.Image) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	if _, _, _, a := img.At(b.Min.X, b.Min.Y).RGBA(); a == 0xffff {
		return img
	}

	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	inset := min(SquareEdgeInset, (w-1)/2, (h-1)/2)
	block := min(SquareEdgeBlock, w, h)

	corners := []struct{ sample, at image.Point }{
		{image.Pt(inset, inset), image.Pt(0, 0)},
		{image.Pt(w-1-inset, inset), image.Pt(w-block, 0)},
		{image.Pt(inset, h-1-inset), image.Pt(0, h-block)},
		{image.Pt(w-1-inset, h-1-inset), image.Pt(w-block, h-block)},
	}

	canvas := imaging.New(w, h, color.NRGBA{})
	for _, c := range corners {
		fill := src.NRGBAAt(c.sample.X, c.sample.Y)
		fill.A = 0xff
		canvas = imaging.Paste(canvas, imaging.New(block, block, fill), c.at)
	}
	return imaging.Overlay(canvas, src, image.Pt(0, 0), 1.0)
}
