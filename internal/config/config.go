// Package config loads themer settings from a YAML file and THEMER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THEMER_"

// Config holds application settings.
type Config struct {
	Assets  Assets  `yaml:"assets"`
	Sources Sources `yaml:"sources"`
	Preview Preview `yaml:"preview"`
	Export  Export  `yaml:"export"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
}

// Assets selects where masks, shadows and overlays come from. Dir and
// Bundle are consulted in that order; procedural masks and shadows fill
// any remaining gaps when Procedural is set.
type Assets struct {
	Dir        string `yaml:"dir"`
	Bundle     string `yaml:"bundle"`
	Procedural bool   `yaml:"procedural"`
}

// Sources controls loading of user art.
type Sources struct {
	// CacheDir keeps downloaded remote images; empty disables the disk cache.
	CacheDir string        `yaml:"cache_dir"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Preview tunes interactive previews.
type Preview struct {
	MaxSize   int           `yaml:"max_size"`
	Debounce  time.Duration `yaml:"debounce"`
	CacheSize int           `yaml:"cache_size"`
	Workers   int           `yaml:"workers"`
	// Isolated renders in a subprocess instead of in-process goroutines.
	Isolated bool `yaml:"isolated"`
}

// Export tunes exports.
type Export struct {
	JPEGQuality    int `yaml:"jpeg_quality"`
	SmallCardWidth int `yaml:"small_card_width"`
}

// Server configures the HTTP surface.
type Server struct {
	Listen string `yaml:"listen"`

	// AllowLocalSources lets API clients use server-side file paths as slot sources.
	AllowLocalSources bool `yaml:"allow_local_sources"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Assets:  Assets{Procedural: true},
		Sources: Sources{Timeout: 30 * time.Second},
		Preview: Preview{
			MaxSize:   1024,
			Debounce:  300 * time.Millisecond,
			CacheSize: 10,
			Workers:   2,
		},
		Export: Export{JPEGQuality: 90, SmallCardWidth: 120},
		Server: Server{Listen: "127.0.0.1:8080"},
		Log:    Log{Level: "info"},
	}
}

// Validate rejects settings no component can work with.
func (c Config) Validate() error {
	var errs []error
	if c.Preview.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("preview.max_size must be positive, got %d", c.Preview.MaxSize))
	}
	if c.Preview.Debounce < 0 {
		errs = append(errs, fmt.Errorf("preview.debounce must not be negative, got %s", c.Preview.Debounce))
	}
	if c.Preview.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("preview.cache_size must be positive, got %d", c.Preview.CacheSize))
	}
	if c.Preview.Workers <= 0 {
		errs = append(errs, fmt.Errorf("preview.workers must be positive, got %d", c.Preview.Workers))
	}
	if c.Export.JPEGQuality < 1 || c.Export.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("export.jpeg_quality must be within 1-100, got %d", c.Export.JPEGQuality))
	}
	if c.Export.SmallCardWidth <= 0 {
		errs = append(errs, fmt.Errorf("export.small_card_width must be positive, got %d", c.Export.SmallCardWidth))
	}
	if !c.Assets.Procedural && c.Assets.Dir == "" && c.Assets.Bundle == "" {
		errs = append(errs, errors.New("no asset source: set assets.dir, assets.bundle or assets.procedural"))
	}
	return errors.Join(errs...)
}

// Builder assembles a Config from defaults, an optional file and the environment.
type Builder struct {
	path   string
	useEnv bool
	lookup func(string) (string, bool)
}

// NewBuilder starts from the defaults.
func NewBuilder() *Builder {
	return &Builder{lookup: os.LookupEnv}
}

// WithFile reads settings from a YAML file. An empty path is ignored.
func (b *Builder) WithFile(path string) *Builder {
	b.path = path
	return b
}

// WithEnv applies THEMER_* environment overrides after the file.
func (b *Builder) WithEnv() *Builder {
	b.useEnv = true
	return b
}

// WithLookupEnv replaces the environment lookup.
func (b *Builder) WithLookupEnv(fn func(string) (string, bool)) *Builder {
	b.lookup = fn
	return b
}

// Build produces the validated configuration.
func (b *Builder) Build() (Config, error) {
	cfg := Default()

	if b.path != "" {
		data, err := os.ReadFile(b.path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", b.path, err)
		}
	}

	if b.useEnv {
		if err := b.applyEnv(&cfg); err != nil {
			return cfg, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (b *Builder) applyEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := b.lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := b.lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := b.lookup(EnvPrefix + name); ok {
			p, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = p
		}
	}
	duration := func(name string, dst *time.Duration) {
		if v, ok := b.lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("ASSETS_DIR", &cfg.Assets.Dir)
	str("ASSETS_BUNDLE", &cfg.Assets.Bundle)
	boolean("ASSETS_PROCEDURAL", &cfg.Assets.Procedural)
	str("SOURCES_CACHE_DIR", &cfg.Sources.CacheDir)
	duration("SOURCES_TIMEOUT", &cfg.Sources.Timeout)
	integer("PREVIEW_MAX_SIZE", &cfg.Preview.MaxSize)
	duration("PREVIEW_DEBOUNCE", &cfg.Preview.Debounce)
	integer("PREVIEW_CACHE_SIZE", &cfg.Preview.CacheSize)
	integer("PREVIEW_WORKERS", &cfg.Preview.Workers)
	boolean("PREVIEW_ISOLATED", &cfg.Preview.Isolated)
	integer("EXPORT_JPEG_QUALITY", &cfg.Export.JPEGQuality)
	integer("EXPORT_SMALL_CARD_WIDTH", &cfg.Export.SmallCardWidth)
	str("SERVER_LISTEN", &cfg.Server.Listen)
	boolean("SERVER_ALLOW_LOCAL_SOURCES", &cfg.Server.AllowLocalSources)
	str("LOG_LEVEL", &cfg.Log.Level)
	boolean("LOG_JSON", &cfg.Log.JSON)

	return errors.Join(errs...)
}
