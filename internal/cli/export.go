package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/export"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/install"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

type exportFlags struct {
	output     string
	installDir string
	watch      bool
}

func newExportCmd(a *app) *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export THEME.yaml",
		Short: "Render a theme and write its zip archive",
		Long: `Render every populated slot of a theme and write the zip archive.

Slots whose image cannot be loaded or rendered are reported and left out;
the rest of the archive is still written.

Examples:
  themer export mytheme.yaml -o mytheme.zip
  themer export mytheme.yaml --install "C:/Games/OPTCGSim/Builds_Data/StreamingAssets"
  themer export mytheme.yaml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			themePath := args[0]
			build := func() error { return a.runExport(ctx, cmd.OutOrStdout(), themePath, flags) }
			if !flags.watch {
				return build()
			}

			out, err := filepath.Abs(flags.output)
			if err != nil {
				return err
			}
			ignore := func(name string) bool {
				abs, err := filepath.Abs(name)
				return err == nil && abs == out
			}
			return watch(ctx, []string{filepath.Dir(themePath)}, watchDebounce, a.logger, ignore, build)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "theme.zip", "archive to write")
	cmd.Flags().StringVar(&flags.installDir, "install", "", "also extract the archive into this simulator directory")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-export whenever the theme directory changes")
	return cmd
}

func (a *app) runExport(ctx context.Context, out io.Writer, themePath string, flags *exportFlags) error {
	cfg, err := theme.LoadFile(themePath)
	if err != nil {
		return err
	}
	a.logger.Info("theme loaded", "file", themePath, "theme", cfg.String())

	proc, _, err := a.newProcessor()
	if err != nil {
		return err
	}

	progress := newProgressPrinter(out)
	exp := export.New(proc, a.loader(),
		export.WithProgress(progress.update),
		export.WithEncodeOptions(a.encodeOptions()),
		export.WithLogger(a.logger),
	)
	data, res, err := exp.ArchiveBytes(ctx, cfg)
	progress.done()
	if err != nil {
		return err
	}
	if len(res.Entries) == 0 {
		a.logger.Warn("archive is empty", "theme", themePath, "failures", len(res.Failures))
	}

	if err := os.WriteFile(flags.output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	fmt.Fprintf(out, "Wrote %s (%d files, %s)\n", flags.output, len(res.Entries), humanize.Bytes(uint64(len(data))))
	printFailures(out, res.Failures)

	if flags.installDir != "" {
		written, err := install.New(flags.installDir, install.WithLogger(a.logger)).Install(ctx, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Installed %d files into %s\n", len(written), flags.installDir)
	}
	return nil
}

func printFailures(out io.Writer, failures []export.Failure) {
	if len(failures) == 0 {
		return
	}
	t := NewTable("CATEGORY", "SLOT", "ERROR")
	t.SetColumnMaxWidth(2, 60)
	for _, f := range failures {
		slot := f.Key
		if slot == "" {
			slot = "(all)"
		}
		t.AddRow(f.Category, slot, f.Err.Error())
	}
	fmt.Fprintf(out, "\n%d slot(s) were skipped:\n", len(failures))
	_ = t.Render(out)
}
