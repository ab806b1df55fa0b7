package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/api"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/preview"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the theme editor API",
		Long: `Serve the HTTP API used by the theme editor. Each editor session holds one
theme; previews and export progress are pushed over a websocket at
/api/sessions/{id}/events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				a.cfg.Server.Listen = listen
			}
			if !a.logger.IsDebug() {
				gin.SetMode(gin.ReleaseMode)
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

			srv, err := api.New(api.Options{
				Worker:    w,
				Loader:    a.loader(),
				Processor: proc,
				Encode:    a.encodeOptions(),
				Preview: preview.Options{
					MaxSize:   a.cfg.Preview.MaxSize,
					Debounce:  a.cfg.Preview.Debounce,
					CacheSize: a.cfg.Preview.CacheSize,
				},
				Logger:            a.logger,
				AllowLocalSources: a.cfg.Server.AllowLocalSources,
			})
			if err != nil {
				return err
			}
			defer srv.Close()

			httpSrv := &http.Server{
				Addr:              a.cfg.Server.Listen,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "addr", httpSrv.Addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from settings, 127.0.0.1:8080)")
	return cmd
}
