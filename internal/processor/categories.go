package processor

import (
	"context"
	"image"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/compose"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// Playmat: normalize, overlay, mask, shadow.
func (p *Processor) Playmat(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	style := job.Playmat
	var img image.Image = compose.CoverFit(src, PlaymatSize.W, PlaymatSize.H)

	img = p.overlay(ctx, job, img, p.tables.PlaymatOverlays[style.Overlay])

	img, err := p.mask(ctx, job, img, p.tables.PlaymatMasks[style.Edge])
	if err != nil {
		return nil, err
	}
	if style.Shadow {
		return p.shadow(ctx, job, img, p.tables.PlaymatShadows[style.Edge])
	}
	return img, nil
}

// Menu backgrounds are only resized.
func (p *Processor) Menu(_ context.Context, _ Job, src image.Image) (image.Image, error) {
	return compose.CoverFit(src, MenuSize.W, MenuSize.H), nil
}

// MenuOverlay resizes the background and lays the UI template for the menu
// named by job.Slot over it. It is used for previews only.
func (p *Processor) MenuOverlay(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	var img image.Image = compose.CoverFit(src, MenuSize.W, MenuSize.H)
	key, ok := p.tables.MenuOverlays[theme.MenuKey(job.Slot)]
	if !ok {
		return img, nil
	}
	return p.overlay(ctx, job, img, []OverlayOp{composite(key)}), nil
}

// CardBack redraws the source on a clean canvas, then normalize, overlay for
// the slot's back type, mask, shadow.
func (p *Processor) CardBack(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	style := job.CardBack
	var img image.Image = compose.CoverFit(compose.Recanvas(src), LargeCardSize.W, LargeCardSize.H)

	overlay := style.OverlayFor(theme.BackType(job.Slot))
	img = p.overlay(ctx, job, img, p.tables.CardBackOverlays[overlay])

	img, err := p.mask(ctx, job, img, p.tables.LargeCardMasks[style.Edge])
	if err != nil {
		return nil, err
	}
	if style.Shadow {
		return p.shadow(ctx, job, img, p.tables.LargeCardShadows[style.Edge])
	}
	return img, nil
}

// DonCard: normalize, overlay, mask, shadow, sharing the card back assets.
func (p *Processor) DonCard(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	style := job.Don
	var img image.Image = compose.CoverFit(src, LargeCardSize.W, LargeCardSize.H)

	img = p.overlay(ctx, job, img, p.tables.DonOverlays[style.Overlay])

	img, err := p.mask(ctx, job, img, p.tables.LargeCardMasks[style.Edge])
	if err != nil {
		return nil, err
	}
	if style.Shadow {
		return p.shadow(ctx, job, img, p.tables.LargeCardShadows[style.Edge])
	}
	return img, nil
}

// Card: normalize to the normal or small size, square off transparent
// corners, then mask and shadow. Cards have no overlay.
func (p *Processor) Card(ctx context.Context, job Job, src image.Image) (image.Image, error) {
	style := job.Card
	variant := CardVariant{Small: src.Bounds().Dx() == p.smallCardWidth, Edge: style.Edge}
	size := CardSize
	if variant.Small {
		size = SmallCardSize
	}

	var img image.Image = compose.CoverFit(src, size.W, size.H)
	img = compose.ForceSquareEdges(img)

	img, err := p.mask(ctx, job, img, p.tables.CardMasks[variant])
	if err != nil {
		return nil, err
	}
	if style.Shadow {
		return p.shadow(ctx, job, img, p.tables.CardShadows[variant])
	}
	return img, nil
}
