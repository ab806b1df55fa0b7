package processor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/compose"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// OpKind is an overlay operation.
type OpKind int

const (
	// OpComposite alpha-composites the asset over the whole canvas.
	OpComposite OpKind = iota
	// OpSoftLight soft-light blends the asset at Amount strength.
	OpSoftLight
	// OpContrast adjusts contrast by Amount; it uses no asset.
	OpContrast
)

// OverlayOp is one step of an overlay style.
type OverlayOp struct {
	Kind   OpKind
	Asset  assets.Key
	Amount float64
}

func composite(k assets.Key) OverlayOp { return OverlayOp{Kind: OpComposite, Asset: k} }

// CardVariant indexes the card mask and shadow matrix.
type CardVariant struct {
	Small bool
	Edge  theme.CardEdge
}

// Tables maps every style value to the assets it uses. Square edges have no
// mask entry; every other edge has both a mask and a shadow.
type Tables struct {
	PlaymatMasks    map[theme.EdgeStyle]assets.Key
	PlaymatShadows  map[theme.EdgeStyle]assets.Key
	PlaymatOverlays map[theme.PlaymatOverlay][]OverlayOp

	MenuOverlays map[theme.MenuKey]assets.Key

	// Card backs and the don card share the large card masks and shadows.
	LargeCardMasks   map[theme.EdgeStyle]assets.Key
	LargeCardShadows map[theme.EdgeStyle]assets.Key
	CardBackOverlays map[theme.CardBackOverlay][]OverlayOp
	DonOverlays      map[theme.DonOverlay][]OverlayOp

	CardMasks   map[CardVariant]assets.Key
	CardShadows map[CardVariant]assets.Key

	// Radii are corner radii as a fraction of the shorter side, used when
	// masks are synthesised.
	Radii      map[theme.EdgeStyle]float64
	CardRadius float64

	Shadow      compose.ShadowOptions
	SmallShadow compose.ShadowOptions
}

// DefaultTables returns the lookup tables for the stock asset set.
func DefaultTables() Tables {
	return Tables{
		PlaymatMasks: map[theme.EdgeStyle]assets.Key{
			theme.EdgeRoundedSmall:  "playmatRoundedSmallMask",
			theme.EdgeRoundedMedium: "playmatRoundedMediumMask",
			theme.EdgeRoundedLarge:  "playmatRoundedLargeMask",
		},
		PlaymatShadows: map[theme.EdgeStyle]assets.Key{
			theme.EdgeSquare:        "playmatSquareShadow",
			theme.EdgeRoundedSmall:  "playmatRoundedSmallShadow",
			theme.EdgeRoundedMedium: "playmatRoundedMediumShadow",
			theme.EdgeRoundedLarge:  "playmatRoundedLargeShadow",
		},
		PlaymatOverlays: map[theme.PlaymatOverlay][]OverlayOp{
			theme.PlaymatOverlayNone:            nil,
			theme.PlaymatOverlayAreaMarkers:     {composite("playmatAreaMarkers")},
			theme.PlaymatOverlayAreaMarkersText: {composite("playmatAreaMarkersText")},
		},

		MenuOverlays: map[theme.MenuKey]assets.Key{
			theme.MenuHome:       "menuOverlayHome",
			theme.MenuDeckEditor: "menuOverlayDeckEditor",
		},

		LargeCardMasks: map[theme.EdgeStyle]assets.Key{
			theme.EdgeRoundedSmall:  "largeCardRoundedSmallMask",
			theme.EdgeRoundedMedium: "largeCardRoundedMediumMask",
			theme.EdgeRoundedLarge:  "largeCardRoundedLargeMask",
		},
		LargeCardShadows: map[theme.EdgeStyle]assets.Key{
			theme.EdgeSquare:        "largeCardSquareShadow",
			theme.EdgeRoundedSmall:  "largeCardRoundedSmallShadow",
			theme.EdgeRoundedMedium: "largeCardRoundedMediumShadow",
			theme.EdgeRoundedLarge:  "largeCardRoundedLargeShadow",
		},
		CardBackOverlays: map[theme.CardBackOverlay][]OverlayOp{
			theme.CardBackOverlayNone: nil,
			theme.CardBackOverlayOPText: {
				composite("cardBackOPText"),
				composite("cardBackLogoSoftBorder"),
			},
			theme.CardBackOverlayOPLogo: {
				{Kind: OpSoftLight, Asset: "cardBackOPLogo", Amount: 0.35},
				composite("cardBackLogoHardBorder"),
				{Kind: OpContrast, Amount: 0.075},
			},
			theme.CardBackOverlayDonSymbol:  {composite("cardBackDonSymbol")},
			theme.CardBackOverlayBorderOnly: {composite("cardBackBorder")},
		},
		DonOverlays: map[theme.DonOverlay][]OverlayOp{
			theme.DonOverlayNone:               nil,
			theme.DonOverlayDonSymbol:          {composite("donSymbol")},
			theme.DonOverlayDonSymbolText:      {composite("donSymbolWhiteText")},
			theme.DonOverlayFocusLines:         {composite("donFocusLines")},
			theme.DonOverlayFocusLinesText:     {composite("donFocusLinesWhiteText")},
			theme.DonOverlayBorderOnly:         {composite("donBorder")},
			theme.DonOverlayBorderOnlyWithText: {composite("donBorderWhiteText")},
		},

		CardMasks: map[CardVariant]assets.Key{
			{Small: false, Edge: theme.CardEdgeRounded}: "cardRoundedMask",
			{Small: true, Edge: theme.CardEdgeRounded}:  "cardSmallRoundedMask",
		},
		CardShadows: map[CardVariant]assets.Key{
			{Small: false, Edge: theme.CardEdgeSquare}:  "cardSquareShadow",
			{Small: false, Edge: theme.CardEdgeRounded}: "cardRoundedShadow",
			{Small: true, Edge: theme.CardEdgeSquare}:   "cardSmallSquareShadow",
			{Small: true, Edge: theme.CardEdgeRounded}:  "cardSmallRoundedShadow",
		},

		Radii: map[theme.EdgeStyle]float64{
			theme.EdgeRoundedSmall:  0.02,
			theme.EdgeRoundedMedium: 0.04,
			theme.EdgeRoundedLarge:  0.06,
		},
		CardRadius: 0.05,

		Shadow:      compose.DefaultShadowOptions(),
		SmallShadow: compose.ShadowOptions{Blur: 3, Opacity: 0.6, Scale: 1.0, EdgeBuffer: 16},
	}
}

func cardVariants() []CardVariant {
	var vs []CardVariant
	for _, small := range []bool{false, true} {
		for _, e := range theme.CardEdges {
			vs = append(vs, CardVariant{Small: small, Edge: e})
		}
	}
	return vs
}

// Validate checks that every enum value has its table entries.
func (t Tables) Validate() error {
	var errs []error
	missing := func(table string, v any) {
		errs = append(errs, fmt.Errorf("%s: no entry for %v", table, v))
	}

	for _, e := range theme.EdgeStyles {
		if e.Rounded() {
			if _, ok := t.PlaymatMasks[e]; !ok {
				missing("playmat masks", e)
			}
			if _, ok := t.LargeCardMasks[e]; !ok {
				missing("large card masks", e)
			}
			if t.Radii[e] <= 0 {
				missing("radii", e)
			}
		}
		if _, ok := t.PlaymatShadows[e]; !ok {
			missing("playmat shadows", e)
		}
		if _, ok := t.LargeCardShadows[e]; !ok {
			missing("large card shadows", e)
		}
	}
	for _, o := range theme.PlaymatOverlays {
		if _, ok := t.PlaymatOverlays[o]; !ok {
			missing("playmat overlays", o)
		}
	}
	for _, k := range theme.MenuKeys {
		if _, ok := t.MenuOverlays[k]; !ok {
			missing("menu overlays", k)
		}
	}
	for _, o := range theme.CardBackOverlays {
		if _, ok := t.CardBackOverlays[o]; !ok {
			missing("card back overlays", o)
		}
	}
	for _, o := range theme.DonOverlays {
		if _, ok := t.DonOverlays[o]; !ok {
			missing("don overlays", o)
		}
	}
	for _, v := range cardVariants() {
		if v.Edge == theme.CardEdgeRounded {
			if _, ok := t.CardMasks[v]; !ok {
				missing("card masks", v)
			}
		}
		if _, ok := t.CardShadows[v]; !ok {
			missing("card shadows", v)
		}
	}
	if t.CardRadius <= 0 {
		errs = append(errs, errors.New("card radius must be positive"))
	}
	return errors.Join(errs...)
}

// Recipes describes every mask and shadow in the tables so they can be
// synthesised when no pre-rendered asset is available.
func (t Tables) Recipes() []assets.Recipe {
	var out []assets.Recipe
	add := func(key assets.Key, kind assets.Kind, size Size, fraction float64, shadow compose.ShadowOptions) {
		out = append(out, assets.Recipe{
			Key:    key,
			Kind:   kind,
			Width:  size.W,
			Height: size.H,
			Radius: compose.RadiusFor(size.W, size.H, fraction),
			Shadow: shadow,
		})
	}

	for _, e := range theme.EdgeStyles {
		r := t.Radii[e]
		if k, ok := t.PlaymatMasks[e]; ok {
			add(k, assets.KindMask, PlaymatSize, r, t.Shadow)
		}
		if k, ok := t.PlaymatShadows[e]; ok {
			add(k, assets.KindShadow, PlaymatSize, r, t.Shadow)
		}
		if k, ok := t.LargeCardMasks[e]; ok {
			add(k, assets.KindMask, LargeCardSize, r, t.Shadow)
		}
		if k, ok := t.LargeCardShadows[e]; ok {
			add(k, assets.KindShadow, LargeCardSize, r, t.Shadow)
		}
	}
	for _, v := range cardVariants() {
		size, shadow := CardSize, t.Shadow
		if v.Small {
			size, shadow = SmallCardSize, t.SmallShadow
		}
		var r float64
		if v.Edge == theme.CardEdgeRounded {
			r = t.CardRadius
		}
		if k, ok := t.CardMasks[v]; ok {
			add(k, assets.KindMask, size, r, shadow)
		}
		if k, ok := t.CardShadows[v]; ok {
			add(k, assets.KindShadow, size, r, shadow)
		}
	}
	return out
}

// Keys lists every asset key the tables reference, sorted and de-duplicated.
func (t Tables) Keys() []assets.Key {
	var keys []assets.Key
	for _, m := range []map[theme.EdgeStyle]assets.Key{t.PlaymatMasks, t.PlaymatShadows, t.LargeCardMasks, t.LargeCardShadows} {
		for _, k := range m {
			keys = append(keys, k)
		}
	}
	for _, k := range t.MenuOverlays {
		keys = append(keys, k)
	}
	for _, m := range []map[CardVariant]assets.Key{t.CardMasks, t.CardShadows} {
		for _, k := range m {
			keys = append(keys, k)
		}
	}
	addOps := func(ops []OverlayOp) {
		for _, op := range ops {
			if op.Asset != "" {
				keys = append(keys, op.Asset)
			}
		}
	}
	for _, ops := range t.PlaymatOverlays {
		addOps(ops)
	}
	for _, ops := range t.CardBackOverlays {
		addOps(ops)
	}
	for _, ops := range t.DonOverlays {
		addOps(ops)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
