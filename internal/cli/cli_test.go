package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/config"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/export"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/logging"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--quiet"))
	err := cmd.Execute()
	return out.String(), err
}

func writeTheme(t *testing.T, dir, body string) string {
	t.Helper()
	if err := imaging.Save(imaging.New(64, 48, color.NRGBA{R: 180, G: 30, B: 30, A: 255}), filepath.Join(dir, "red.png")); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "themer ") {
		t.Errorf("output = %q", out)
	}
}

func TestAssetsGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "assets")
	out, err := run(t, "assets", "generate", dir)
	if err != nil {
		t.Fatal(err)
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.png"))
	want := len(processor.DefaultTables().Recipes())
	if len(files) != want {
		t.Errorf("wrote %d files, want %d", len(files), want)
	}
	if !strings.Contains(out, "Wrote") {
		t.Errorf("output = %q", out)
	}
}

func TestAssetsList(t *testing.T) {
	out, err := run(t, "assets", "list")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"KEY", "mask", "shadow", "ok", "unavailable"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	themePath := writeTheme(t, dir, "playmats:\n  images:\n    Red: red.png\nmenus:\n  Home: red.png\n")
	zipPath := filepath.Join(dir, "out.zip")

	out, err := run(t, "export", themePath, "-o", zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote "+zipPath+" (2 files") {
		t.Errorf("output = %q", out)
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if !slices.Equal(names, []string{"Playmats/Red.png", "background.jpg"}) {
		t.Errorf("entries = %v", names)
	}
}

func TestExportCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	themePath := writeTheme(t, dir, "playmats:\n  images:\n    Red: red.png\n    Blue: missing.png\n")

	out, err := run(t, "export", themePath, "-o", filepath.Join(dir, "out.zip"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1 slot(s) were skipped") || !strings.Contains(out, "Blue") {
		t.Errorf("output = %q", out)
	}
}

func TestExportCommandEmptyTheme(t *testing.T) {
	dir := t.TempDir()
	themePath := writeTheme(t, dir, "menus: {}\n")
	zipPath := filepath.Join(dir, "out.zip")

	out, err := run(t, "export", themePath, "-o", zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Wrote "+zipPath+" (0 files") {
		t.Errorf("output = %q", out)
	}
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if len(zr.File) != 0 {
		t.Errorf("entries = %d, want 0", len(zr.File))
	}
}

func TestExportCommandAllFailed(t *testing.T) {
	dir := t.TempDir()
	themePath := writeTheme(t, dir, "playmats:\n  images:\n    Blue: missing.png\n")
	zipPath := filepath.Join(dir, "out.zip")

	out, err := run(t, "export", themePath, "-o", zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "(0 files") || !strings.Contains(out, "1 slot(s) were skipped") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(zipPath); err != nil {
		t.Errorf("archive not written: %v", err)
	}
}

func TestInstallCommand(t *testing.T) {
	var buf bytes.Buffer
	entries := []export.Entry{
		{Path: "Playmats/Red.png", Data: []byte("red")},
		{Path: "background.jpg", Data: []byte("bg")},
	}
	if err := export.WriteZip(&buf, entries); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	archive := filepath.Join(dir, "theme.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(dir, "sim")
	out, err := run(t, "install", archive, "--dir", target)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Installed 2 files") {
		t.Errorf("output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(target, "Playmats", "Red.png"))
	if err != nil || string(data) != "red" {
		t.Errorf("installed file = %q, %v", data, err)
	}
}

func TestProgressPrinterPlain(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	p.update(export.Progress{Stage: "Playmats", Detail: "1/2: Red"})
	p.update(export.Progress{Stage: "Archive", Detail: "2 files"})
	p.done()

	want := "Playmats   1/2: Red\nArchive    2 files\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestApplyLogFlags(t *testing.T) {
	cmd := NewRootCmd()
	if err := cmd.PersistentFlags().Parse([]string{"--log-level", "warn", "--log-json"}); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	applyLogFlags(cmd.PersistentFlags(), &globalFlags{logLevel: "warn", logJSON: true}, &cfg)
	if cfg.Log.Level != "warn" || !cfg.Log.JSON {
		t.Errorf("log = %+v", cfg.Log)
	}

	cfg = config.Default()
	applyLogFlags(cmd.PersistentFlags(), &globalFlags{logLevel: "warn", verbose: true}, &cfg)
	if cfg.Log.Level != "debug" {
		t.Errorf("verbose level = %q", cfg.Log.Level)
	}
}

func TestWatchRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, []string{dir}, 20*time.Millisecond, logging.Discard(),
			func(name string) bool { return filepath.Base(name) == "out.zip" },
			func() error {
				runs.Add(1)
				return nil
			})
	}()

	waitFor := func(n int32) {
		t.Helper()
		deadline := time.Now().Add(5 * time.Second)
		for runs.Load() < n {
			if time.Now().After(deadline) {
				t.Fatalf("runs = %d, want %d", runs.Load(), n)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitFor(1)
	// The initial run can race the watch registration, so keep touching
	// the file until a rebuild is observed.
	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		if err := os.WriteFile(filepath.Join(dir, "theme.yaml"), []byte("menus: {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	waitFor(2)

	cancel()
	if err := <-done; err != nil {
		t.Errorf("watch returned %v", err)
	}
}
