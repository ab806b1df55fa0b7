package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/preview"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/theme"
)

func newPreviewCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "preview THEME.yaml CATEGORY [SLOT]",
		Short: "Render a downscaled preview of one slot",
		Long: `Render one slot of a theme the way the editor previews it: the source is
downscaled before processing, so the result is quick but not export quality.

Categories: playmat, menu, menu-overlay, card-back, don-card, card.

Examples:
  themer preview mytheme.yaml playmat Red -o red.png
  themer preview mytheme.yaml card OP01-001 -o card.png
  themer preview mytheme.yaml don-card`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := theme.LoadFile(args[0])
			if err != nil {
				return err
			}
			cat, err := processor.ParseCategory(args[1])
			if err != nil {
				return err
			}
			slot := ""
			if len(args) == 3 {
				slot = args[2]
			}
			job, img, err := processor.SlotJob(cfg, cat, slot)
			if err != nil {
				return err
			}

			proc, _, err := a.newProcessor()
			if err != nil {
				return err
			}
			w, err := a.newWorker(proc)
			if err != nil {
				return err
			}
			defer w.Close()

			orch, err := preview.New(w, a.loader(), preview.Options{
				MaxSize:   a.cfg.Preview.MaxSize,
				Debounce:  -1,
				CacheSize: a.cfg.Preview.CacheSize,
			}, a.logger)
			if err != nil {
				return err
			}
			defer orch.Close()

			res := orch.Render(cmd.Context(), job, img)
			if !res.Available() {
				return fmt.Errorf("no preview available for %s: %s", job.SlotID(), res.Err)
			}

			path := output
			if path == "" {
				path = "preview" + res.Format.Extension()
			}
			if err := os.WriteFile(path, res.Image, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s preview to %s (%s)\n", job.SlotID(), path, humanize.Bytes(uint64(len(res.Image))))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default preview.png or preview.jpg)")
	return cmd
}
