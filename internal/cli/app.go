package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hashicorp/go-hclog"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/assets"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/compression"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/config"
	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/processor"
	httputil "github.com/Cxndr/optcgsim-themer-sub000/internal/util/http"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/worker"
)

// app carries what every command shares once settings are loaded.
type app struct {
	cfg        config.Config
	configPath string
	logger     hclog.Logger
}

// assetSource chains the configured asset sources in lookup order.
func (a *app) assetSource() (assets.Source, error) {
	var chain assets.ChainSource
	if a.cfg.Assets.Dir != "" {
		chain = append(chain, assets.NewDirSource(a.cfg.Assets.Dir))
	}
	if a.cfg.Assets.Bundle != "" {
		b, err := assets.LoadBundle(a.cfg.Assets.Bundle)
		if err != nil {
			return nil, err
		}
		a.logger.Debug("asset bundle loaded", "bundle", compression.GetArchiveBaseName(a.cfg.Assets.Bundle),
			"file", a.cfg.Assets.Bundle, "entries", len(b.Names()))
		chain = append(chain, b)
	}
	if a.cfg.Assets.Procedural {
		chain = append(chain, assets.NewProceduralSource(processor.DefaultTables().Recipes()))
	}
	return chain, nil
}

func (a *app) newProcessor() (*processor.Processor, *assets.Cache, error) {
	src, err := a.assetSource()
	if err != nil {
		return nil, nil, err
	}
	cache := assets.NewCache(src, a.logger)
	proc, err := processor.New(cache,
		processor.WithSmallCardWidth(a.cfg.Export.SmallCardWidth),
		processor.WithLogger(a.logger),
	)
	if err != nil {
		return nil, nil, err
	}
	return proc, cache, nil
}

func (a *app) loader() themerimage.Loader {
	opts := []themerimage.LoaderOption{
		themerimage.WithFetchOptions(httputil.FetchOptions{
			Timeout:  a.cfg.Sources.Timeout,
			MaxBytes: themerimage.MaxSourceBytes,
		}),
	}
	if a.cfg.Sources.CacheDir != "" {
		opts = append(opts, themerimage.WithDiskCache(a.cfg.Sources.CacheDir))
	}
	return themerimage.NewSmartLoader(opts...)
}

func (a *app) encodeOptions() themerimage.EncodeOptions {
	return themerimage.EncodeOptions{JPEGQuality: a.cfg.Export.JPEGQuality}
}

// newWorker returns the preview renderer: an in-process pool, or a worker
// subprocess when previews are isolated.
func (a *app) newWorker(proc *processor.Processor) (worker.Worker, error) {
	if !a.cfg.Preview.Isolated {
		return worker.NewPool(worker.NewRenderer(proc, a.encodeOptions()), a.cfg.Preview.Workers, a.logger), nil
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate themer binary: %w", err)
	}
	args := []string{"worker"}
	if a.configPath != "" {
		args = append(args, "--config", a.configPath)
	}
	return worker.NewPluginWorker(exec.Command(exe, args...), a.logger)
}
