package image

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// DefaultJPEGQuality is used when EncodeOptions.JPEGQuality is zero.
const DefaultJPEGQuality = 90

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// MIME returns the media type for the format.
func (f Format) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// EncodeOptions carries format specific encoder settings.
type EncodeOptions struct {
	JPEGQuality int
	// PNGCompression defaults to png.DefaultCompression.
	PNGCompression png.CompressionLevel
}

// Encode serialises img in the given format.
func Encode(img image.Image, format Format, opts EncodeOptions) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, &EncodeError{Format: format, Err: fmt.Errorf("empty image")}
	}

	var buf bytes.Buffer
	var err error

	switch format {
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(opts.PNGCompression))
	case FormatJPEG:
		quality := opts.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	default:
		err = fmt.Errorf("unsupported format")
	}
	if err != nil {
		return nil, &EncodeError{Format: format, Err: err}
	}

	return buf.Bytes(), nil
}
