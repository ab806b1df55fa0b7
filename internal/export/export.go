// Package export renders every populated slot of a theme and packs the
// results into a zip archive laid out like a simulator install.
package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/hashicorp/go-hclog"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// Processor runs one category pipeline; *processor.Processor implements it.
type Processor interface {
	Process(ctx context.Context, job processor.Job, src image.Image) (image.Image, error)
}

// Progress is an advisory status update, sent before each item starts.
type Progress struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail"`
}

// Failure records an item or category that produced no entry.
type Failure struct {
	Category string
	// Key is empty when the whole category was aborted.
	Key string
	Err error
}

func (f Failure) String() string {
	if f.Key == "" {
		return fmt.Sprintf("%s: %v", f.Category, f.Err)
	}
	return fmt.Sprintf("%s/%s: %v", f.Category, f.Key, f.Err)
}

// Result is what an export produced. Entries are in archive order.
type Result struct {
	Entries  []Entry
	Failures []Failure
	// Skipped counts empty slots.
	Skipped int
}

// Exporter runs exports. It is safe to reuse across exports.
type Exporter struct {
	proc     Processor
	loader   themerimage.Loader
	enc      themerimage.EncodeOptions
	progress func(Progress)
	logger   hclog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithProgress sets the progress callback.
func WithProgress(fn func(Progress)) Option {
	return func(e *Exporter) { e.progress = fn }
}

// WithEncodeOptions sets encoder settings.
func WithEncodeOptions(opts themerimage.EncodeOptions) Option {
	return func(e *Exporter) { e.enc = opts }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an exporter.
func New(proc Processor, loader themerimage.Loader, opts ...Option) *Exporter {
	e := &Exporter{
		proc:   proc,
		loader: loader,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("export")
	return e
}

// item is one populated slot.
type item struct {
	key  string
	job  processor.Job
	img  *theme.Image
	path string
}

type category struct {
	name  string
	label string
	items func(cfg *theme.Configuration) (items []item, skipped int)
}

// categories is the fixed export order.
var categories = []category{
	{"playmats", "Playmats", playmatItems},
	{"menus", "Menus", menuItems},
	{"card-backs", "Card Backs", cardBackItems},
	{"don-card", "Don Card", donItems},
	{"cards", "Cards", cardItems},
}

func collect(cfg *theme.Configuration, cat processor.Category, keys []string, pathFor func(string) string) ([]item, int) {
	var items []item
	skipped := 0
	for _, k := range keys {
		job, img, err := processor.SlotJob(cfg, cat, k)
		if err != nil || img == nil {
			skipped++
			continue
		}
		items = append(items, item{key: k, job: job, img: img, path: pathFor(k)})
	}
	return items, skipped
}

func playmatItems(cfg *theme.Configuration) ([]item, int) {
	keys := make([]string, len(theme.LeaderColors))
	for i, c := range theme.LeaderColors {
		keys[i] = string(c)
	}
	return collect(cfg, processor.CategoryPlaymat, keys, func(k string) string {
		return PlaymatPath(theme.LeaderColor(k))
	})
}

func menuItems(cfg *theme.Configuration) ([]item, int) {
	keys := make([]string, len(theme.MenuKeys))
	for i, k := range theme.MenuKeys {
		keys[i] = string(k)
	}
	return collect(cfg, processor.CategoryMenu, keys, func(k string) string {
		return MenuPath(theme.MenuKey(k))
	})
}

func cardBackItems(cfg *theme.Configuration) ([]item, int) {
	keys := make([]string, len(theme.BackTypes))
	for i, k := range theme.BackTypes {
		keys[i] = string(k)
	}
	return collect(cfg, processor.CategoryCardBack, keys, func(k string) string {
		return CardBackPath(theme.BackType(k))
	})
}

func donItems(cfg *theme.Configuration) ([]item, int) {
	return collect(cfg, processor.CategoryDonCard, []string{"Don"}, func(string) string {
		return DonCardPath
	})
}

func cardItems(cfg *theme.Configuration) ([]item, int) {
	return collect(cfg, processor.CategoryCard, cfg.CardNames(), CardPath)
}

// Export renders every populated slot of cfg in the fixed category order.
// Item failures skip the item and category failures skip the rest of the
// category; both are recorded in the result and the export carries on.
// Cancellation is checked between categories and returns the partial result
// with ctx's error.
func (e *Exporter) Export(ctx context.Context, cfg *theme.Configuration) (*Result, error) {
	res := &Result{}
	for _, cat := range categories {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("export cancelled", "category", cat.name, "entries", len(res.Entries))
			return res, err
		}
		e.runCategory(ctx, cfg, cat, res)
	}
	e.logger.Info("export complete", "entries", len(res.Entries), "failures", len(res.Failures), "skipped", res.Skipped)
	return res, nil
}

// runCategory processes one category, converting a panic into a category failure.
func (e *Exporter) runCategory(ctx context.Context, cfg *theme.Configuration, cat category, res *Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("category aborted: %v", r)
			e.logger.Error("category failed", "category", cat.name, "error", err)
			res.Failures = append(res.Failures, Failure{Category: cat.name, Err: err})
		}
	}()

	items, skipped := cat.items(cfg)
	res.Skipped += skipped
	for i, it := range items {
		e.report(Progress{Stage: cat.label, Detail: fmt.Sprintf("%d/%d: %s", i+1, len(items), it.key)})

		data, err := e.renderItem(ctx, it)
		if err != nil {
			e.logger.Warn("item skipped", "category", cat.name, "key", it.key, "error", err)
			res.Failures = append(res.Failures, Failure{Category: cat.name, Key: it.key, Err: err})
			continue
		}
		res.Entries = append(res.Entries, Entry{Path: it.path, Data: data})
	}
}

func (e *Exporter) renderItem(ctx context.Context, it item) ([]byte, error) {
	src, err := e.loader.Load(ctx, it.img.Source)
	if err != nil {
		return nil, &processor.StageError{Category: it.job.Category, Slot: it.key, Stage: processor.StageDecode, Err: err}
	}
	out, err := e.proc.Process(ctx, it.job, src)
	if err != nil {
		return nil, err
	}
	data, err := themerimage.Encode(out, processor.OutputFormat(it.job.Category), e.enc)
	if err != nil {
		return nil, &processor.StageError{Category: it.job.Category, Slot: it.key, Stage: processor.StageEncode, Err: err}
	}
	return data, nil
}

func (e *Exporter) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}

// Archive exports cfg and writes the zip to w. The zip is written even when
// some items failed; on cancellation nothing is written.
func (e *Exporter) Archive(ctx context.Context, cfg *theme.Configuration, w io.Writer) (*Result, error) {
	res, err := e.Export(ctx, cfg)
	if err != nil {
		return res, err
	}
	e.report(Progress{Stage: "Archive", Detail: fmt.Sprintf("%d files", len(res.Entries))})
	if err := WriteZip(w, res.Entries); err != nil {
		return res, err
	}
	return res, nil
}

// ArchiveBytes is Archive into memory.
func (e *Exporter) ArchiveBytes(ctx context.Context, cfg *theme.Configuration) ([]byte, *Result, error) {
	var buf bytes.Buffer
	res, err := e.Archive(ctx, cfg, &buf)
	if err != nil {
		return nil, res, err
	}
	return buf.Bytes(), res, nil
}
