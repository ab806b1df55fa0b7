package compose

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

// MaskByAlpha clears every pixel of img where mask is fully transparent.
// A mask of a different size is scaled to img first.
func MaskByAlpha(img, mask image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Rect.Dx(), out.Rect.Dy()

	m := imaging.Clone(mask)
	if m.Rect.Dx() != w || m.Rect.Dy() != h {
		m = imaging.Resize(m, w, h, imaging.NearestNeighbor)
	}

	for y := range h {
		row := out.Pix[y*out.Stride:]
		mrow := m.Pix[y*m.Stride:]
		for x := range w {
			if mrow[x*4+3] == 0 {
				clear(row[x*4 : x*4+4])
			}
		}
	}
	return out
}

// RoundedMask renders a w×h mask whose opaque area is a rectangle with
// corners of the given radius.
func RoundedMask(w, h int, radius float64) *image.NRGBA {
	dc := gg.NewContext(w, h)
	dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), radius)
	dc.SetRGBA(1, 1, 1, 1)
	dc.Fill()
	return imaging.Clone(dc.Image())
}

// RoundCorners masks img with a procedurally rendered rounded rectangle.
func RoundCorners(img image.Image, radius float64) *image.NRGBA {
	b := img.Bounds()
	return MaskByAlpha(img, RoundedMask(b.Dx(), b.Dy(), radius))
}

// RadiusFor converts a radius expressed as a fraction of the shorter side to pixels.
func RadiusFor(w, h int, fraction float64) float64 {
	return float64(min(w, h)) * fraction
}
