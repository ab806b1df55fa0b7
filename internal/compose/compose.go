// Package compose provides the pixel-level operators the category processors
// are built from: sizing, compositing, corner masking, shadows, soft-light
// blending and corner patching.
//
// Every operator treats its inputs as read-only and returns a new image, so
// shared cached assets can be passed in freely.
package compose

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CoverFit scales and crops img to exactly w×h, preserving aspect ratio.
// Overflow is cropped around the centre; the result is never letterboxed.
// An image already at the target size is copied unchanged.
func CoverFit(img image.Image, w, h int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img)
	}
	return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
}

// FitTo stretches img to w×h. It is used to bring overlay and mask assets to
// the working canvas size and returns img itself when the size already matches.
func FitTo(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// CompositeOver alpha-composites overlay onto base with its top-left corner
// at (x, y). No resizing is performed.
func CompositeOver(base, overlay image.Image, x, y int) *image.NRGBA {
	return imaging.Overlay(base, overlay, image.Pt(x, y), 1.0)
}

// Recanvas redraws img onto a fresh transparent canvas of the same size.
func Recanvas(img image.Image) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.NRGBA{})
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

// centreOffset returns the offset that centres an inner rectangle in an outer one.
func centreOffset(outer, inner image.Rectangle) image.Point {
	return image.Pt((outer.Dx()-inner.Dx())/2, (outer.Dy()-inner.Dy())/2)
}
