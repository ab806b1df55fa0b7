package theme

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
)

// File is the on-disk YAML shape of a theme configuration.
type File struct {
	Playmats struct {
		Overlay string            `yaml:"overlay"`
		Edge    string            `yaml:"edge"`
		Shadow  bool              `yaml:"shadow"`
		Images  map[string]string `yaml:"images"`
	} `yaml:"playmats"`
	Menus     map[string]string `yaml:"menus"`
	CardBacks struct {
		DeckOverlay string            `yaml:"deck_overlay"`
		DonOverlay  string            `yaml:"don_overlay"`
		Edge        string            `yaml:"edge"`
		Shadow      bool              `yaml:"shadow"`
		Images      map[string]string `yaml:"images"`
	} `yaml:"card_backs"`
	DonCard struct {
		Overlay string `yaml:"overlay"`
		Edge    string `yaml:"edge"`
		Shadow  bool   `yaml:"shadow"`
		Image   string `yaml:"image"`
	} `yaml:"don_card"`
	Cards struct {
		Edge   string            `yaml:"edge"`
		Shadow bool              `yaml:"shadow"`
		Dir    string            `yaml:"dir"`
		Images map[string]string `yaml:"images"`
	} `yaml:"cards"`
}

// LoadFile reads a theme YAML file into a fresh configuration. Relative image
// paths and cards.dir resolve against the file's directory.
func LoadFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme file: %w", err)
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("theme file %s: %w", path, err)
	}
	return cfg, nil
}

// ParseOption adjusts how Parse treats image sources.
type ParseOption func(*parseOptions)

type parseOptions struct {
	remoteOnly bool
}

// RemoteSourcesOnly rejects file path sources and cards.dir, leaving only
// http(s) URLs and data URIs.
func RemoteSourcesOnly() ParseOption {
	return func(o *parseOptions) { o.remoteOnly = true }
}

// Parse decodes theme YAML. Every setting goes through the validating setters
// and all invalid settings are reported together.
func Parse(data []byte, baseDir string, opts ...ParseOption) (*Configuration, error) {
	var po parseOptions
	for _, opt := range opts {
		opt(&po)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse theme YAML: %w", err)
	}

	cfg := NewConfiguration()
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	src := func(field, s string) *Image {
		if po.remoteOnly {
			if err := CheckRemoteSource(field, s); err != nil {
				errs = append(errs, err)
				return nil
			}
		}
		return NewImage(resolveSource(s, baseDir), "")
	}

	if f.Playmats.Overlay != "" {
		check(cfg.SetPlaymatOverlay(f.Playmats.Overlay))
	}
	if f.Playmats.Edge != "" {
		check(cfg.SetPlaymatEdge(f.Playmats.Edge))
	}
	cfg.SetPlaymatShadow(f.Playmats.Shadow)
	for color, s := range f.Playmats.Images {
		check(cfg.SetPlaymat(color, src("playmats.source", s)))
	}

	for key, s := range f.Menus {
		check(cfg.SetMenu(key, src("menus.source", s)))
	}

	if f.CardBacks.DeckOverlay != "" {
		check(cfg.SetCardBackOverlay(string(BackDeckCards), f.CardBacks.DeckOverlay))
	}
	if f.CardBacks.DonOverlay != "" {
		check(cfg.SetCardBackOverlay(string(BackDonCards), f.CardBacks.DonOverlay))
	}
	if f.CardBacks.Edge != "" {
		check(cfg.SetCardBackEdge(f.CardBacks.Edge))
	}
	cfg.SetCardBackShadow(f.CardBacks.Shadow)
	for back, s := range f.CardBacks.Images {
		check(cfg.SetCardBack(back, src("card_backs.source", s)))
	}

	if f.DonCard.Overlay != "" {
		check(cfg.SetDonOverlay(f.DonCard.Overlay))
	}
	if f.DonCard.Edge != "" {
		check(cfg.SetDonEdge(f.DonCard.Edge))
	}
	cfg.SetDonShadow(f.DonCard.Shadow)
	cfg.SetDon(src("don_card.source", f.DonCard.Image))

	if f.Cards.Edge != "" {
		check(cfg.SetCardEdge(f.Cards.Edge))
	}
	cfg.SetCardShadow(f.Cards.Shadow)
	switch {
	case f.Cards.Dir == "":
	case po.remoteOnly:
		check(&InvalidSettingError{Field: "cards.dir", Value: f.Cards.Dir})
	default:
		check(AddCardDir(cfg, resolveSource(f.Cards.Dir, baseDir)))
	}
	for name, s := range f.Cards.Images {
		if img := src("cards.source", s); img != nil {
			check(cfg.SetCard(name, img))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// AddCardDir populates the cards mapping from every image in dir, keyed by
// filename without extension.
func AddCardDir(cfg *Configuration, dir string) error {
	paths, err := themerimage.ScanDirectoryForImages(dir)
	if err != nil {
		return fmt.Errorf("failed to scan card directory: %w", err)
	}
	for _, p := range paths {
		if err := cfg.SetCard(filepath.Base(p), NewImage(p, "")); err != nil {
			return err
		}
	}
	return nil
}

// resolveSource makes relative file paths absolute against baseDir. URLs and
// data URIs pass through.
func resolveSource(s, baseDir string) string {
	s = strings.TrimSpace(s)
	if s == "" || baseDir == "" || filepath.IsAbs(s) ||
		strings.HasPrefix(s, "data:") || themerimage.IsRemote(s) {
		return s
	}
	return filepath.Join(baseDir, s)
}

// IsLocalSource reports whether s names a file rather than a URL or data URI.
func IsLocalSource(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.HasPrefix(s, "data:") && !themerimage.IsRemote(s)
}

// CheckRemoteSource rejects a file path source for field. Blank sources pass.
func CheckRemoteSource(field, s string) error {
	if IsLocalSource(s) {
		return &InvalidSettingError{Field: field, Value: s, Valid: []string{"http(s) URL", "data URI"}}
	}
	return nil
}
