// Package preview renders interactive previews: requests are debounced per
// slot, rendered on a worker and only the newest result for a slot is kept.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/worker"
)

// Defaults for Options.
const (
	DefaultMaxSize   = 1024
	DefaultDebounce  = 300 * time.Millisecond
	DefaultCacheSize = 10
)

// ErrNoSource is reported for a slot previewed without an image.
var ErrNoSource = errors.New("slot has no image")

// Options tunes the orchestrator. Zero values select the defaults, except
// Debounce where a negative value disables debouncing.
type Options struct {
	MaxSize   int
	Debounce  time.Duration
	CacheSize int
	// OnResult is called with every result that is current when it arrives.
	OnResult func(Result)
}

// Result is the outcome of the newest finished request for a slot.
type Result struct {
	Token  uint64             `json:"token"`
	Slot   string             `json:"slot"`
	Format themerimage.Format `json:"format,omitempty"`
	Image  []byte             `json:"-"`
	Err    string             `json:"error,omitempty"`
}

// Available reports whether the result holds a displayable image.
func (r Result) Available() bool { return r.Err == "" && len(r.Image) > 0 }

// Orchestrator owns preview scheduling for one session.
type Orchestrator struct {
	worker  worker.Worker
	loader  themerimage.Loader
	sources *lru.Cache[string, *image.NRGBA]
	opts    Options
	logger  hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	next atomic.Uint64

	mu      sync.Mutex
	latest  map[string]uint64
	timers  map[string]*time.Timer
	results map[string]Result
}

// New returns an orchestrator rendering on w and reading sources through loader.
func New(w worker.Worker, loader themerimage.Loader, opts Options, logger hclog.Logger) (*Orchestrator, error) {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	sources, err := lru.New[string, *image.NRGBA](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		worker:  w,
		loader:  loader,
		sources: sources,
		opts:    opts,
		logger:  logger.Named("preview"),
		ctx:     ctx,
		cancel:  cancel,
		latest:  make(map[string]uint64),
		timers:  make(map[string]*time.Timer),
		results: make(map[string]Result),
	}, nil
}

// issue allocates the next token and records it as the slot's newest.
func (o *Orchestrator) issue(slot string) uint64 {
	token := o.next.Add(1)
	o.mu.Lock()
	o.latest[slot] = token
	o.mu.Unlock()
	return token
}

// Request schedules a preview of img for job's slot and returns its token.
// Requests for the same slot inside the debounce window replace each other;
// only the last is rendered.
func (o *Orchestrator) Request(job processor.Job, img *theme.Image) uint64 {
	slot := job.SlotID()
	token := o.issue(slot)

	if o.opts.Debounce < 0 {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.run(job, img, token)
		}()
		return token
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if t, ok := o.timers[slot]; ok && t.Stop() {
		o.wg.Done()
	}
	o.wg.Add(1)
	o.timers[slot] = time.AfterFunc(o.opts.Debounce, func() {
		defer o.wg.Done()
		o.mu.Lock()
		if o.timers[slot] != nil && o.latest[slot] == token {
			delete(o.timers, slot)
		}
		o.mu.Unlock()
		o.run(job, img, token)
	})
	return token
}

// Render previews synchronously, bypassing the debounce. The result is
// returned even if a newer request for the slot has since been issued.
func (o *Orchestrator) Render(ctx context.Context, job processor.Job, img *theme.Image) Result {
	slot := job.SlotID()
	token := o.issue(slot)
	res := o.render(ctx, job, img, token)
	o.deliver(res)
	return res
}

// Latest returns the current result for a slot.
func (o *Orchestrator) Latest(slot string) (Result, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	res, ok := o.results[slot]
	return res, ok
}

// Wait blocks until every scheduled and in-flight request has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close drops pending requests and waits for in-flight ones.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	for slot, t := range o.timers {
		if t.Stop() {
			o.wg.Done()
		}
		delete(o.timers, slot)
	}
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) run(job processor.Job, img *theme.Image, token uint64) {
	if !o.current(job.SlotID(), token) {
		o.logger.Debug("request superseded before dispatch", "slot", job.SlotID(), "token", token)
		return
	}
	o.deliver(o.render(o.ctx, job, img, token))
}

func (o *Orchestrator) current(slot string, token uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.latest[slot] == token
}

// render loads, downscales and renders one request.
func (o *Orchestrator) render(ctx context.Context, job processor.Job, img *theme.Image, token uint64) Result {
	res := Result{Token: token, Slot: job.SlotID()}
	if img == nil {
		res.Err = ErrNoSource.Error()
		return res
	}

	src, err := o.source(ctx, img.Source)
	if err != nil {
		o.logger.Warn("preview source failed", "slot", res.Slot, "token", token, "error", err)
		res.Err = err.Error()
		return res
	}

	resp, err := o.worker.Render(ctx, worker.Request{Token: token, Job: job, Source: worker.RasterFrom(src)})
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.Format, res.Image, res.Err = resp.Format, resp.Image, resp.Err
	if res.Err != "" {
		o.logger.Warn("preview render failed", "slot", res.Slot, "token", token, "error", res.Err)
	}
	return res
}

// deliver stores res if its token is still the newest for the slot.
func (o *Orchestrator) deliver(res Result) {
	o.mu.Lock()
	if o.latest[res.Slot] != res.Token {
		o.mu.Unlock()
		o.logger.Debug("stale preview discarded", "slot", res.Slot, "token", res.Token)
		return
	}
	o.results[res.Slot] = res
	o.mu.Unlock()

	if o.opts.OnResult != nil {
		o.opts.OnResult(res)
	}
}

// source returns the decoded, downscaled image for ref, from cache when possible.
func (o *Orchestrator) source(ctx context.Context, ref string) (*image.NRGBA, error) {
	if img, ok := o.sources.Get(ref); ok {
		return img, nil
	}
	img, err := o.loader.Load(ctx, ref)
	if err != nil {
		return nil, err
	}
	small := Downscale(img, o.opts.MaxSize)
	o.sources.Add(ref, small)
	return small, nil
}

// Downscale fits img inside a maxSize square, keeping aspect ratio. Images
// already inside the box are copied at their own size.
func Downscale(img image.Image, maxSize int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		scale = math.Min(float64(maxSize)/float64(w), float64(maxSize)/float64(h))
	}
	nw := max(1, int(math.Round(float64(w)*scale)))
	nh := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	if scale == 1 {
		draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Rect, img, b, draw.Src, nil)
	return dst
}
