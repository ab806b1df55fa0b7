package processor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/disintegration/imaging"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

var overlayKeys = []assets.Key{
	"playmatAreaMarkers", "playmatAreaMarkersText",
	"menuOverlayHome", "menuOverlayDeckEditor",
	"cardBackOPText", "cardBackLogoSoftBorder", "cardBackOPLogo", "cardBackLogoHardBorder",
	"cardBackDonSymbol", "cardBackBorder",
	"donSymbol", "donSymbolWhiteText", "donFocusLines", "donFocusLinesWhiteText", "donBorder", "donBorderWhiteText",
}

// overlayFS returns small overlay assets: a white block in the top-left
// corner over transparency, so a composited overlay is easy to detect.
func overlayFS(t *testing.T, keys ...assets.Key) fstest.MapFS {
	t.Helper()
	img := imaging.New(20, 20, color.NRGBA{})
	img = imaging.Paste(img, imaging.New(10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255}), image.Pt(0, 0))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	fsys := fstest.MapFS{}
	for _, k := range keys {
		fsys[k.Filename()] = &fstest.MapFile{Data: buf.Bytes()}
	}
	return fsys
}

func newTestProcessor(t *testing.T, overlays fstest.MapFS, opts ...Option) *Processor {
	t.Helper()
	src := assets.ChainSource{
		assets.NewFSSource(overlays, "."),
		assets.NewProceduralSource(DefaultTables().Recipes()),
	}
	p, err := New(assets.NewCache(src, nil), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func source(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	return img
}

func TestDefaultTablesValid(t *testing.T) {
	tables := DefaultTables()
	if err := tables.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if n := len(tables.Recipes()); n != 20 {
		t.Errorf("Recipes() = %d, want 20", n)
	}
	keys := tables.Keys()
	for _, want := range []assets.Key{"cardBackOPLogo", "largeCardRoundedLargeMask", "cardSmallSquareShadow"} {
		found := false
		for _, k := range keys {
			found = found || k == want
		}
		if !found {
			t.Errorf("Keys() missing %s", want)
		}
	}
}

func TestNewRejectsIncompleteTables(t *testing.T) {
	tables := DefaultTables()
	delete(tables.DonOverlays, theme.DonOverlayFocusLines)
	delete(tables.PlaymatMasks, theme.EdgeRoundedLarge)

	_, err := New(assets.NewCache(assets.ChainSource{}, nil), WithTables(tables))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestPlaymatMatrix(t *testing.T) {
	p := newTestProcessor(t, overlayFS(t, overlayKeys...))
	src := source(200, 150)
	ctx := context.Background()

	for _, edge := range theme.EdgeStyles {
		for _, shadow := range []bool{false, true} {
			for _, overlay := range theme.PlaymatOverlays {
				job := Job{Category: CategoryPlaymat, Slot: "Red", Playmat: theme.PlaymatStyle{Overlay: overlay, Edge: edge, Shadow: shadow}}
				name := string(edge) + "/" + string(overlay)
				if shadow {
					name += "/shadow"
				}
				t.Run(name, func(t *testing.T) {
					out, err := p.Process(ctx, job, src)
					if err != nil {
						t.Fatalf("Process: %v", err)
					}
					want := image.Pt(1414, 1000)
					if shadow {
						want = image.Pt(1414+60, 1000+60)
					}
					if got := out.Bounds().Size(); got != want {
						t.Errorf("size = %v, want %v", got, want)
					}
				})
			}
		}
	}
}

func TestProcessDeterministic(t *testing.T) {
	job := Job{
		Category: CategoryPlaymat,
		Slot:     "Blue",
		Playmat:  theme.PlaymatStyle{Overlay: theme.PlaymatOverlayAreaMarkers, Edge: theme.EdgeRoundedMedium, Shadow: true},
	}
	src := source(300, 200)

	encode := func() []byte {
		p := newTestProcessor(t, overlayFS(t, overlayKeys...))
		out, err := p.Process(context.Background(), job, src)
		if err != nil {
			t.Fatal(err)
		}
		data, err := themerimage.Encode(out, themerimage.FormatPNG, themerimage.EncodeOptions{})
		if err != nil {
			t.Fatal(err)
		}
		return data
	}
	if !bytes.Equal(encode(), encode()) {
		t.Error("identical inputs should produce identical bytes")
	}
}

func TestOverlayFailureDegrades(t *testing.T) {
	p := newTestProcessor(t, fstest.MapFS{})
	src := source(200, 150)
	ctx := context.Background()

	plain := Job{Category: CategoryPlaymat, Playmat: theme.DefaultPlaymatStyle()}
	withOverlay := plain
	withOverlay.Playmat.Overlay = theme.PlaymatOverlayAreaMarkersText

	want, err := p.Process(ctx, plain, src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := p.Process(ctx, withOverlay, src)
	if err != nil {
		t.Fatalf("missing overlay asset should not fail the image: %v", err)
	}
	if !bytes.Equal(imaging.Clone(got).Pix, imaging.Clone(want).Pix) {
		t.Error("degraded output should equal the un-overlaid image")
	}
}

func TestOverlayApplied(t *testing.T) {
	p := newTestProcessor(t, overlayFS(t, overlayKeys...))
	src := imaging.New(100, 100, color.NRGBA{B: 200, A: 255})

	job := Job{Category: CategoryDonCard, Don: theme.DonStyle{Overlay: theme.DonOverlayBorderOnly, Edge: theme.EdgeSquare}}
	out, err := p.Process(context.Background(), job, src)
	if err != nil {
		t.Fatal(err)
	}
	img := imaging.Clone(out)
	if got := img.NRGBAAt(5, 5); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("overlay region = %v, want white", got)
	}
	if got := img.NRGBAAt(800, 1100); got != (color.NRGBA{B: 200, A: 255}) {
		t.Errorf("outside overlay = %v", got)
	}
}

func TestMaskFailureIsStageError(t *testing.T) {
	// No procedural fallback: the mask asset cannot be found.
	p, err := New(assets.NewCache(assets.NewFSSource(fstest.MapFS{}, "."), nil))
	if err != nil {
		t.Fatal(err)
	}
	job := Job{Category: CategoryCardBack, Slot: "DeckCards", CardBack: theme.CardBackStyle{Edge: theme.EdgeRoundedSmall}}
	_, err = p.Process(context.Background(), job, source(100, 140))

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("error = %v, want *StageError", err)
	}
	if stageErr.Stage != StageMask || stageErr.Category != CategoryCardBack {
		t.Errorf("StageError = %+v", stageErr)
	}
	var loadErr *assets.LoadError
	if !errors.As(err, &loadErr) || loadErr.Key != "largeCardRoundedSmallMask" {
		t.Errorf("expected LoadError for the large card mask, got %v", err)
	}
}

func TestCardBackOverlays(t *testing.T) {
	p := newTestProcessor(t, overlayFS(t, overlayKeys...))
	src := source(200, 280)

	for _, o := range theme.CardBackOverlays {
		t.Run(string(o), func(t *testing.T) {
			style := theme.DefaultCardBackStyle()
			style.DonOverlay = o
			style.Edge = theme.EdgeRoundedLarge
			out, err := p.Process(context.Background(), Job{Category: CategoryCardBack, Slot: "DonCards", CardBack: style}, src)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.Bounds().Size(); got != image.Pt(869, 1214) {
				t.Errorf("size = %v", got)
			}
			if a := imaging.Clone(out).NRGBAAt(0, 0).A; a != 0 {
				t.Errorf("rounded corner alpha = %d, want 0", a)
			}
		})
	}
}

func TestCardSizes(t *testing.T) {
	p := newTestProcessor(t, fstest.MapFS{}, WithSmallCardWidth(120))
	ctx := context.Background()

	tests := []struct {
		name   string
		src    image.Image
		style  theme.CardStyle
		want   image.Point
		corner uint8
	}{
		{"normal square", source(240, 335), theme.CardStyle{Edge: theme.CardEdgeSquare}, image.Pt(480, 671), 255},
		{"small detected by width", source(120, 170), theme.CardStyle{Edge: theme.CardEdgeSquare}, image.Pt(120, 167), 255},
		{"normal rounded", source(480, 671), theme.CardStyle{Edge: theme.CardEdgeRounded}, image.Pt(480, 671), 0},
		{"normal with shadow", source(480, 671), theme.CardStyle{Edge: theme.CardEdgeRounded, Shadow: true}, image.Pt(540, 731), 0},
		{"small with shadow", source(120, 167), theme.CardStyle{Edge: theme.CardEdgeSquare, Shadow: true}, image.Pt(136, 183), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := p.Process(ctx, Job{Category: CategoryCard, Slot: "OP01-001", Card: tt.style}, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if got := out.Bounds().Size(); got != tt.want {
				t.Errorf("size = %v, want %v", got, tt.want)
			}
			if a := imaging.Clone(out).NRGBAAt(0, 0).A; (a == 255) != (tt.corner == 255) {
				t.Errorf("corner alpha = %d", a)
			}
		})
	}
}

func TestCardSquaresTransparentCorners(t *testing.T) {
	p := newTestProcessor(t, fstest.MapFS{})
	src := imaging.New(480, 671, color.NRGBA{R: 90, A: 255})
	for y := range 4 {
		for x := range 4 {
			src.SetNRGBA(x, y, color.NRGBA{})
		}
	}
	out, err := p.Process(context.Background(), Job{Category: CategoryCard, Card: theme.DefaultCardStyle()}, src)
	if err != nil {
		t.Fatal(err)
	}
	if got := imaging.Clone(out).NRGBAAt(0, 0); got != (color.NRGBA{R: 90, A: 255}) {
		t.Errorf("corner = %v, want patched opaque", got)
	}
}

func TestMenu(t *testing.T) {
	p := newTestProcessor(t, overlayFS(t, overlayKeys...))
	src := source(400, 300)

	menu, err := p.Process(context.Background(), Job{Category: CategoryMenu, Slot: "Home"}, src)
	if err != nil {
		t.Fatal(err)
	}
	if got := menu.Bounds().Size(); got != image.Pt(1920, 1080) {
		t.Errorf("menu size = %v", got)
	}

	preview, err := p.Process(context.Background(), Job{Category: CategoryMenuOverlay, Slot: "DeckEditor"}, src)
	if err != nil {
		t.Fatal(err)
	}
	if got := imaging.Clone(preview).NRGBAAt(10, 10); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("menu overlay not applied: %v", got)
	}
	if OutputFormat(CategoryMenu) != themerimage.FormatJPEG || OutputFormat(CategoryCard) != themerimage.FormatPNG {
		t.Error("unexpected output formats")
	}
}

func TestSlotJob(t *testing.T) {
	cfg := theme.NewConfiguration()
	_ = cfg.SetPlaymat("Red", theme.NewImage("red.png", ""))
	_ = cfg.SetPlaymatEdge("rounded-small")
	_ = cfg.SetCard("OP01-001", theme.NewImage("c.png", ""))

	job, img, err := SlotJob(cfg, CategoryPlaymat, "Red")
	if err != nil || img == nil || img.Source != "red.png" {
		t.Fatalf("SlotJob = %v, %v", img, err)
	}
	if job.Playmat.Edge != theme.EdgeRoundedSmall || job.SlotID() != "playmat/Red" {
		t.Errorf("job = %+v", job)
	}

	if _, img, _ := SlotJob(cfg, CategoryPlaymat, "Blue"); img != nil {
		t.Error("empty slot should return nil image")
	}
	if _, img, _ := SlotJob(cfg, CategoryCard, "OP01-001"); img == nil {
		t.Error("card slot should resolve")
	}
	if _, _, err := SlotJob(cfg, CategoryMenu, "Lobby"); err == nil {
		t.Error("expected error for unknown menu key")
	}
}
