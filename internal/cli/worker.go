package cli

import (
	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/worker"
)

// newWorkerCmd is the entry point of isolated preview workers. It speaks
// the plugin handshake on stdout and is not meant to be run by hand.
func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run a preview render worker",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			proc, _, err := a.newProcessor()
			if err != nil {
				return err
			}
			worker.Serve(worker.NewRenderer(proc, a.encodeOptions()), a.logger)
			return nil
		},
	}
}
