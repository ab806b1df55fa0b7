// Package processor implements the per-category image pipelines: each takes
// arbitrary source art and produces the finished raster for one theme slot.
package processor

import (
	"fmt"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

// Category selects a pipeline.
type Category string

const (
	CategoryPlaymat     Category = "playmat"
	CategoryMenu        Category = "menu"
	CategoryMenuOverlay Category = "menu-overlay"
	CategoryCardBack    Category = "card-back"
	CategoryDonCard     Category = "don-card"
	CategoryCard        Category = "card"
)

// Categories lists every pipeline.
var Categories = []Category{
	CategoryPlaymat, CategoryMenu, CategoryMenuOverlay,
	CategoryCardBack, CategoryDonCard, CategoryCard,
}

// ParseCategory validates a category name.
func ParseCategory(v string) (Category, error) {
	for _, c := range Categories {
		if string(c) == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", v)
}

// Size is a working canvas size in pixels.
type Size struct {
	W, H int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.W, s.H) }

// Working canvas sizes.
var (
	PlaymatSize   = Size{1414, 1000}
	MenuSize      = Size{1920, 1080}
	LargeCardSize = Size{869, 1214}
	CardSize      = Size{480, 671}
	SmallCardSize = Size{120, 167}
)

// DefaultSmallCardWidth is the source width that marks deck-editor sized card art.
const DefaultSmallCardWidth = 120

// Job selects a pipeline and carries the settings it reads. It is a plain
// value so it can cross a process boundary.
type Job struct {
	Category Category `json:"category"`
	// Slot is the slot key: leader colour, menu key, back type or card name.
	Slot     string              `json:"slot,omitempty"`
	Playmat  theme.PlaymatStyle  `json:"playmat"`
	CardBack theme.CardBackStyle `json:"card_back"`
	Don      theme.DonStyle      `json:"don"`
	Card     theme.CardStyle     `json:"card"`
}

// SlotID names the job's slot for logs and preview tracking, e.g. "playmat/Red".
func (j Job) SlotID() string {
	if j.Slot == "" {
		return string(j.Category)
	}
	return string(j.Category) + "/" + j.Slot
}

// OutputFormat is the encoding a category is exported in.
func OutputFormat(c Category) themerimage.Format {
	if c == CategoryMenu || c == CategoryMenuOverlay {
		return themerimage.FormatJPEG
	}
	return themerimage.FormatPNG
}

// SlotJob builds the job for one slot of cfg and returns the slot's image,
// which is nil when the slot is empty.
func SlotJob(cfg *theme.Configuration, cat Category, slot string) (Job, *theme.Image, error) {
	job := Job{
		Category: cat,
		Slot:     slot,
		Playmat:  cfg.PlaymatStyle(),
		CardBack: cfg.CardBackStyle(),
		Don:      cfg.DonStyle(),
		Card:     cfg.CardStyle(),
	}

	switch cat {
	case CategoryPlaymat:
		k, err := theme.ParseLeaderColor(slot)
		if err != nil {
			return job, nil, err
		}
		return job, cfg.Playmat(k), nil
	case CategoryMenu, CategoryMenuOverlay:
		k, err := theme.ParseMenuKey(slot)
		if err != nil {
			return job, nil, err
		}
		return job, cfg.Menu(k), nil
	case CategoryCardBack:
		k, err := theme.ParseBackType(slot)
		if err != nil {
			return job, nil, err
		}
		return job, cfg.CardBack(k), nil
	case CategoryDonCard:
		job.Slot = ""
		return job, cfg.Don(), nil
	case CategoryCard:
		return job, cfg.Card(slot), nil
	default:
		return job, nil, fmt.Errorf("unknown category %q", cat)
	}
}
