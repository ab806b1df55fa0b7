package compose

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// SoftLightBlend blends overlay into base per RGB channel with the soft-light
// formula and mixes the result with base by strength (0 leaves base as is,
// 1 is the pure blend). Each overlay pixel's alpha further scales the mix.
// Base alpha is untouched. An overlay of a different size is scaled to base.
func SoftLightBlend(base, overlay image.Image, strength float64) *image.NRGBA {
	out := imaging.Clone(base)
	strength = math.Max(0, math.Min(1, strength))
	if strength == 0 {
		return out
	}

	w, h := out.Rect.Dx(), out.Rect.Dy()
	ov := imaging.Clone(FitTo(overlay, w, h))

	for y := range h {
		row := out.Pix[y*out.Stride:]
		orow := ov.Pix[y*ov.Stride:]
		for x := range w {
			i := x * 4
			mix := strength * float64(orow[i+3]) / 255
			if mix == 0 {
				continue
			}
			for c := range 3 {
				b := float64(row[i+c])
				row[i+c] = clamp(b + (softLight(b, float64(orow[i+c]))-b)*mix)
			}
		}
	}
	return out
}

// softLight applies the channel formula in 0..255 space.
func softLight(b, o float64) float64 {
	if o <= 128 {
		return b * o / 128
	}
	return 255 - (255-b)*(255-o)/128
}

func clamp(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// Contrast raises (or with a negative amount lowers) contrast. amount is a
// fraction, so 0.075 is a 7.5% boost.
func Contrast(img image.Image, amount float64) *image.NRGBA {
	return imaging.AdjustContrast(img, amount*100)
}
