package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/handlers"
	"github.com/blueturn/epicmirror/internal/metrics"
	"github.com/blueturn/epicmirror/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var port string
	var interval time.Duration
	var dryRun bool
	var auditDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the mirror in sync on a schedule",
		Long: `Runs an incremental sync right away and then every --interval, until
interrupted.

The process serves /healthcheck, the state of the last sync on /status and
the Prometheus counters of every sync since start on /metrics.`,
		Example: `  # Sync every six hours, serving on the default port 8888
  epicmirror serve

  # Sync hourly on a custom port
  epicmirror serve --interval 1h --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}

			opts := g.options()
			opts.AuditDir = auditDir
			cfg, err := config.Load(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			run := metrics.NewRun()
			deps, closeStore, err := wire(ctx, cfg, run)
			if err != nil {
				return err
			}
			defer closeStore()

			handler := handlers.New()

			mux := http.NewServeMux()
			mux.HandleFunc("/status", handler.HandleStatus)
			mux.HandleFunc("/healthcheck", handler.HandleHealthcheck)
			mux.Handle("/metrics", promhttp.HandlerFor(run.Registry, promhttp.HandlerOpts{}))

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Status available", "addr", addr, "url", "http://localhost"+addr+"/status")
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			loopCtx, stopLoop := context.WithCancel(ctx)
			loopDone := make(chan struct{})
			go func() {
				defer close(loopDone)
				syncEvery(loopCtx, interval, func(ctx context.Context) {
					handler.Started(time.Now())
					summary, err := reconcile.New(cfg, deps, dryRun).Run(ctx, reconcile.Mode{})
					handler.Finished(time.Now(), summary, err)
					if err != nil {
						slog.Warn("Sync interrupted", "error", err)
					}
				})
			}()

			select {
			case <-ctx.Done():
				err = nil
			case err = <-serverErr:
			}

			slog.Info("Shutting down server...")
			stopLoop()
			<-loopDone

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				slog.Error("Server shutdown failed", "err", serr)
				if err == nil {
					err = serr
				}
			}
			slog.Info("Server stopped")
			return err
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().DurationVar(&interval, "interval", 6*time.Hour, "Time between syncs")
	cmd.Flags().BoolVar(&dryRun, "dryrun", false, "Read and process but do not write to the bucket")
	cmd.Flags().StringVar(&auditDir, "audit-dir", "", "Directory for the alignment audits (default: temp dir)")

	return cmd
}

// syncEvery calls fn at once and then every interval until ctx is done. A
// sync that overruns the interval delays the next one instead of overlapping.
func syncEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
