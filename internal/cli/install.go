package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/install"
)

func newInstallCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "install THEME.zip",
		Short: "Extract an exported theme into the simulator directory",
		Long: `Extract an exported theme archive into the simulator's asset directory,
replacing files of the same name. The simulator must not be running.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			written, err := install.New(dir, install.WithLogger(a.logger)).Install(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %d files into %s\n", len(written), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "simulator asset directory")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
