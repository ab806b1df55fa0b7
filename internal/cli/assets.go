package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
)

func newAssetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect and generate masks, shadows and overlays",
	}
	cmd.AddCommand(newAssetsListCmd(a), newAssetsGenerateCmd(a))
	return cmd
}

func newAssetsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every asset the pipelines use and whether it resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			proc, cache, err := a.newProcessor()
			if err != nil {
				return err
			}

			kinds := make(map[assets.Key]string)
			for _, r := range proc.Tables().Recipes() {
				kinds[r.Key] = r.Kind.String()
			}

			t := NewTable("KEY", "KIND", "SIZE", "STATUS")
			missing := 0
			for _, key := range proc.Tables().Keys() {
				kind, ok := kinds[key]
				if !ok {
					kind = "overlay"
				}
				img, err := cache.Get(cmd.Context(), key)
				switch {
				case errors.Is(err, assets.ErrNotFound):
					missing++
					t.AddRow(string(key), kind, "", "missing")
				case err != nil:
					missing++
					t.AddRow(string(key), kind, "", "error: "+err.Error())
				default:
					b := img.Bounds()
					t.AddRow(string(key), kind, fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), "ok")
				}
			}

			out := cmd.OutOrStdout()
			if err := t.Render(out); err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d assets, %d unavailable\n", t.Len(), missing)
			return nil
		},
	}
}

func newAssetsGenerateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "generate DIR",
		Short: "Write the procedural masks and shadows as PNG files",
		Long: `Render every mask and shadow the pipelines can generate and write them to
DIR as <key>.png, ready to be edited and used as an assets directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recipes := processor.DefaultTables().Recipes()
			keys := make([]assets.Key, 0, len(recipes))
			for _, r := range recipes {
				keys = append(keys, r.Key)
			}

			cache := assets.NewCache(assets.NewProceduralSource(recipes), a.logger)
			missing, err := assets.WriteDir(cmd.Context(), cache, keys, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d assets to %s\n", len(keys)-len(missing), args[0])
			return nil
		},
	}
}
