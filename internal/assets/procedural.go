package assets

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/compose"
)

// Kind is the sort of asset a recipe renders.
type Kind int

const (
	KindMask Kind = iota
	KindShadow
)

func (k Kind) String() string {
	switch k {
	case KindMask:
		return "mask"
	case KindShadow:
		return "shadow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Recipe describes how to synthesise one mask or shadow asset.
type Recipe struct {
	Key    Key
	Kind   Kind
	Width  int
	Height int
	// Radius is the corner radius in pixels; 0 is a square silhouette.
	Radius float64
	// Shadow is used by KindShadow recipes.
	Shadow compose.ShadowOptions
}

// Render produces the asset.
func (r Recipe) Render() image.Image {
	silhouette := imaging.New(r.Width, r.Height, color.NRGBA{A: 0xff})
	if r.Radius > 0 {
		silhouette = compose.RoundedMask(r.Width, r.Height, r.Radius)
	}
	if r.Kind == KindShadow {
		return compose.ShadowLayer(silhouette, r.Shadow)
	}
	return silhouette
}

// ProceduralSource renders masks and shadows from recipes instead of
// reading files. It never produces overlays.
type ProceduralSource struct {
	recipes map[Key]Recipe
}

// NewProceduralSource indexes recipes by key.
func NewProceduralSource(recipes []Recipe) *ProceduralSource {
	p := &ProceduralSource{recipes: make(map[Key]Recipe, len(recipes))}
	for _, r := range recipes {
		p.recipes[r.Key] = r
	}
	return p
}

// Load implements Source.
func (p *ProceduralSource) Load(ctx context.Context, key Key) (image.Image, error) {
	r, ok := p.recipes[key]
	if !ok {
		return nil, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Render(), nil
}
