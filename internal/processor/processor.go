package processor

import (
	"context"
	"fmt"
	"image"

	"github.com/hashicorp/go-hclog"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/compose"
)

// AssetGetter supplies auxiliary assets; *assets.Cache implements it.
type AssetGetter interface {
	Get(ctx context.Context, key assets.Key) (image.Image, error)
}

// Processor runs the category pipelines. It holds no per-request state and
// is safe for concurrent use.
type Processor struct {
	assets         AssetGetter
	tables         Tables
	smallCardWidth int
	logger         hclog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithTables replaces the default asset lookup tables.
func WithTables(t Tables) Option {
	return func(p *Processor) { p.tables = t }
}

// WithSmallCardWidth sets the source width that selects the small card size.
func WithSmallCardWidth(w int) Option {
	return func(p *Processor) {
		if w > 0 {
			p.smallCardWidth = w
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// New returns a processor reading assets from a. The lookup tables are
// validated here so a missing entry fails at startup rather than per call.
func New(a AssetGetter, opts ...Option) (*Processor, error) {
	p := &Processor{
		assets:         a,
		tables:         DefaultTables(),
		smallCardWidth: DefaultSmallCardWidth,
		logger:         hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid asset tables: %w", err)
	}
	p.logger = p.logger.Named("processor")
	return p, nil
}

// Tables returns the processor's lookup tables.
func (p *Processor) Tables() Tables { return p.tables }

// Process runs the pipeline job selects over src. src is not modified.
func (p *Processor) Process(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, &StageError{Category: job.Category, Slot: job.Slot, Stage: StageNormalize, Err: fmt.Errorf("empty source image")}
	}

	switch job.Category {
	case CategoryPlaymat:
		return p.Playmat(ctx, job, src)
	case CategoryMenu:
		return p.Menu(ctx, job, src)
	case CategoryMenuOverlay:
		return p.MenuOverlay(ctx, job, src)
	case CategoryCardBack:
		return p.CardBack(ctx, job, src)
	case CategoryDonCard:
		return p.DonCard(ctx, job, src)
	case CategoryCard:
		return p.Card(ctx, job, src)
	default:
		return nil, fmt.Errorf("unknown category %q", job.Category)
	}
}

// overlayOutcome is the explicit result of the best-effort overlay stage.
type overlayOutcome struct {
	img     image.Image
	applied int
	err     error
}

// applyOverlay runs ops over img. On failure the outcome carries the error
// and the untouched input.
func (p *Processor) applyOverlay(ctx context.Context, img image.Image, ops []OverlayOp) (out overlayOutcome) {
	out.img = img
	if len(ops) == 0 {
		return out
	}
	defer func() {
		if r := recover(); r != nil {
			out = overlayOutcome{img: img, err: fmt.Errorf("panic: %v", r)}
		}
	}()

	b := img.Bounds()
	cur := img
	for _, op := range ops {
		switch op.Kind {
		case OpContrast:
			cur = compose.Contrast(cur, op.Amount)
		case OpComposite, OpSoftLight:
			asset, err := p.assets.Get(ctx, op.Asset)
			if err != nil {
				return overlayOutcome{img: img, err: err}
			}
			asset = compose.FitTo(asset, b.Dx(), b.Dy())
			if op.Kind == OpComposite {
				cur = compose.CompositeOver(cur, asset, 0, 0)
			} else {
				cur = compose.SoftLightBlend(cur, asset, op.Amount)
			}
		default:
			return overlayOutcome{img: img, err: fmt.Errorf("unknown overlay op %d", op.Kind)}
		}
	}
	return overlayOutcome{img: cur, applied: len(ops)}
}

// overlay applies ops and degrades to the un-overlaid image on failure.
func (p *Processor) overlay(ctx context.Context, job Job, img image.Image, ops []OverlayOp) image.Image {
	res := p.applyOverlay(ctx, img, ops)
	if res.err != nil {
		p.logger.Warn("overlay skipped", "category", job.Category, "key", job.Slot, "stage", StageOverlay, "error", res.err)
		return img
	}
	if res.applied > 0 {
		p.logger.Debug("overlay applied", "category", job.Category, "key", job.Slot, "ops", res.applied)
	}
	return res.img
}

// mask applies the mask asset for key; an empty key skips the stage.
func (p *Processor) mask(ctx context.Context, job Job, img image.Image, key assets.Key) (image.Image, error) {
	if key == "" {
		return img, nil
	}
	m, err := p.assets.Get(ctx, key)
	if err != nil {
		return nil, &StageError{Category: job.Category, Slot: job.Slot, Stage: StageMask, Err: err}
	}
	return compose.MaskByAlpha(img, m), nil
}

// shadow composites the shadow asset for key behind img.
func (p *Processor) shadow(ctx context.Context, job Job, img image.Image, key assets.Key) (image.Image, error) {
	if key == "" {
		return nil, &StageError{Category: job.Category, Slot: job.Slot, Stage: StageShadow, Err: fmt.Errorf("no shadow asset")}
	}
	s, err := p.assets.Get(ctx, key)
	if err != nil {
		return nil, &StageError{Category: job.Category, Slot: job.Slot, Stage: StageShadow, Err: err}
	}
	return compose.CompositeShadowRendered(img, s), nil
}
