// Package worker runs category pipelines away from the caller: in a pool of
// goroutines or in an isolated subprocess. Requests and responses are plain
// values with raster and encoded image payloads as opaque bytes.
package worker

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
)

// Raster is an uncompressed NRGBA image: 4 bytes per pixel, rows packed.
type Raster struct {
	Width  int
	Height int
	Pix    []byte
}

// RasterFrom copies img into a Raster.
func RasterFrom(img image.Image) Raster {
	n := imaging.Clone(img)
	return Raster{Width: n.Rect.Dx(), Height: n.Rect.Dy(), Pix: n.Pix}
}

// Image wraps the raster as an image without copying.
func (r Raster) Image() (*image.NRGBA, error) {
	if r.Width <= 0 || r.Height <= 0 || len(r.Pix) != r.Width*r.Height*4 {
		return nil, fmt.Errorf("malformed raster %dx%d with %d bytes", r.Width, r.Height, len(r.Pix))
	}
	return &image.NRGBA{Pix: r.Pix, Stride: r.Width * 4, Rect: image.Rect(0, 0, r.Width, r.Height)}, nil
}

// Request asks for one job to be rendered.
type Request struct {
	Token  uint64
	Job    processor.Job
	Source Raster
}

// Response carries the encoded result or the processing error text.
type Response struct {
	Token  uint64
	Format themerimage.Format
	Image  []byte
	Err    string
}

// OK reports whether the response carries an image.
func (r Response) OK() bool { return r.Err == "" && len(r.Image) > 0 }

// Worker renders requests. A returned error means the request never
// completed (cancelled, transport failure, worker closed); processing
// failures are reported in Response.Err.
type Worker interface {
	Render(ctx context.Context, req Request) (Response, error)
	Close() error
}

// Renderer executes a request in the current process.
type Renderer struct {
	proc *processor.Processor
	enc  themerimage.EncodeOptions
}

// NewRenderer returns a renderer over proc.
func NewRenderer(proc *processor.Processor, enc themerimage.EncodeOptions) *Renderer {
	return &Renderer{proc: proc, enc: enc}
}

// Render processes and encodes req.
func (r *Renderer) Render(ctx context.Context, req Request) Response {
	resp := Response{Token: req.Token, Format: processor.OutputFormat(req.Job.Category)}

	src, err := req.Source.Image()
	if err != nil {
		resp.Err = err.Error()
		return resp
	}
	out, err := r.proc.Process(ctx, req.Job, src)
	if err != nil {
		resp.Err = err.Error()
		return resp
	}
	data, err := themerimage.Encode(out, resp.Format, r.enc)
	if err != nil {
		resp.Err = err.Error()
		return resp
	}
	resp.Image = data
	return resp
}
