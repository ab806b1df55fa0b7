package image

import (
	"errors"
	"fmt"
)

// ErrTooManyPixels marks a source whose declared dimensions are too large to decode.
var ErrTooManyPixels = errors.New("image dimensions too large")

// DecodeError reports source bytes that could not be turned into an image.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", shortSource(e.Source), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a raster that could not be serialised.
type EncodeError struct {
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// shortSource keeps data URIs out of log lines.
func shortSource(s string) string {
	const limit = 48
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
