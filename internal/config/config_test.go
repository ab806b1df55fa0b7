package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := NewBuilder().WithLookupEnv(env(nil)).WithEnv().Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.Preview.Debounce != 300*time.Millisecond || cfg.Preview.CacheSize != 10 || cfg.Preview.MaxSize != 1024 {
		t.Errorf("preview defaults = %+v", cfg.Preview)
	}
	if cfg.Server.Listen != "127.0.0.1:8080" || cfg.Server.AllowLocalSources {
		t.Errorf("server defaults = %+v, want loopback without local sources", cfg.Server)
	}
}

func TestFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themer.yaml")
	data := `
assets:
  dir: /srv/assets
preview:
  debounce: 150ms
  workers: 4
export:
  jpeg_quality: 80
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewBuilder().
		WithFile(path).
		WithLookupEnv(env(map[string]string{
			"THEMER_PREVIEW_WORKERS":            "1",
			"THEMER_PREVIEW_ISOLATED":           "true",
			"THEMER_SERVER_LISTEN":              "127.0.0.1:9000",
			"THEMER_SERVER_ALLOW_LOCAL_SOURCES": "true",
			"THEMER_EXPORT_SMALL_CARD_WIDTH":    "150",
		})).
		WithEnv().
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if cfg.Assets.Dir != "/srv/assets" || !cfg.Assets.Procedural {
		t.Errorf("assets = %+v", cfg.Assets)
	}
	if cfg.Preview.Debounce != 150*time.Millisecond {
		t.Errorf("debounce = %s", cfg.Preview.Debounce)
	}
	if cfg.Preview.Workers != 1 || !cfg.Preview.Isolated {
		t.Errorf("env should override file: %+v", cfg.Preview)
	}
	if cfg.Export.JPEGQuality != 80 || cfg.Export.SmallCardWidth != 150 {
		t.Errorf("export = %+v", cfg.Export)
	}
	if cfg.Server.Listen != "127.0.0.1:9000" || !cfg.Server.AllowLocalSources || cfg.Log.Level != "debug" {
		t.Errorf("server=%+v log=%+v", cfg.Server, cfg.Log)
	}
}

func TestEnvIgnoredWithoutWithEnv(t *testing.T) {
	cfg, err := NewBuilder().WithLookupEnv(env(map[string]string{"THEMER_LOG_LEVEL": "trace"})).Build()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"bad int", map[string]string{"THEMER_PREVIEW_WORKERS": "many"}, "THEMER_PREVIEW_WORKERS"},
		{"bad duration", map[string]string{"THEMER_PREVIEW_DEBOUNCE": "soon"}, "THEMER_PREVIEW_DEBOUNCE"},
		{"quality out of range", map[string]string{"THEMER_EXPORT_JPEG_QUALITY": "101"}, "jpeg_quality"},
		{"no asset source", map[string]string{"THEMER_ASSETS_PROCEDURAL": "false"}, "no asset source"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().WithLookupEnv(env(tt.vars)).WithEnv().Build()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := NewBuilder().WithFile(filepath.Join(t.TempDir(), "absent.yaml")).Build(); err == nil {
		t.Error("expected error for a missing config file")
	}
}
