// Package cli provides the command-line interface for the themer.
package cli

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/config"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/logging"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/version"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool
	verbose    bool
	quiet      bool
}

// NewRootCmd builds the themer command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "themer",
		Short: "Build OPTCGSim theme packs from your own art",
		Long: `themer composites your artwork into the playmats, menu backgrounds,
card backs, DON!! card and card faces used by OPTCGSim, and packs the
result into a zip laid out like the simulator's install directory.

A theme is described by a YAML file naming the image for each slot and
the overlay, edge and shadow style of each category.`,
		Version:      version.Short(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd, flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "themer settings file (YAML)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.BoolVar(&flags.logJSON, "log-json", false, "emit JSON log lines")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "only log errors")

	cmd.SetVersionTemplate(version.String() + "\n")

	cmd.AddCommand(
		newVersionCmd(),
		newExportCmd(a),
		newPreviewCmd(a),
		newServeCmd(a),
		newAssetsCmd(a),
		newInstallCmd(a),
		newWorkerCmd(a),
	)
	return cmd
}

// init loads settings and builds the logger before any command runs.
func (a *app) init(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := config.NewBuilder().WithFile(flags.configPath).WithEnv().Build()
	if err != nil {
		return err
	}
	applyLogFlags(cmd.Flags(), flags, &cfg)

	a.cfg = cfg
	a.configPath = flags.configPath
	a.logger = logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	a.logger.Debug("configuration loaded", "file", flags.configPath, "assets_dir", cfg.Assets.Dir,
		"bundle", cfg.Assets.Bundle, "procedural", cfg.Assets.Procedural)
	return nil
}

// applyLogFlags lets explicit flags win over file and environment settings.
func applyLogFlags(fs *pflag.FlagSet, flags *globalFlags, cfg *config.Config) {
	if fs.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if fs.Changed("log-json") {
		cfg.Log.JSON = flags.logJSON
	}
	switch {
	case flags.verbose:
		cfg.Log.Level = hclog.Debug.String()
	case flags.quiet:
		cfg.Log.Level = hclog.Error.String()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build date, commit hash, and Go version.`,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
