package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blueturn/epicmirror/internal/catalog"
	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/images"
	"github.com/blueturn/epicmirror/internal/invalidation"
	"github.com/blueturn/epicmirror/internal/metrics"
	"github.com/blueturn/epicmirror/internal/models"
	"github.com/blueturn/epicmirror/internal/reconcile"
	"github.com/blueturn/epicmirror/internal/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose    bool
	dev        bool
	enhanced   bool
	configFile string
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "epicmirror",
		Short: "Mirror the NASA EPIC image catalog into blob storage",
		Long: `epicmirror keeps a copy of the DSCOVR EPIC daily catalogs and images in a
GCS or S3 bucket.

Each run compares the mirror with the EPIC API date by date, downloads the
images the mirror is missing, measures the Earth disc on every raster, uploads
the resized JPEGs and rewrites the daily catalogs and indexes.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			logLevel := slog.LevelInfo
			if g.verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
		},
	}

	cmd.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "Print debug messages")
	cmd.PersistentFlags().BoolVar(&g.dev, "dev", false, "Use the development bucket")
	cmd.PersistentFlags().BoolVar(&g.enhanced, "enhanced", false, "Mirror the enhanced color collection")
	cmd.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML file overriding the default settings")

	cmd.AddCommand(newSyncCmd(g))
	cmd.AddCommand(newPlanCmd(g))
	cmd.AddCommand(newGeometryCmd(g))
	cmd.AddCommand(newServeCmd(g))

	return cmd
}

func (g *globalFlags) options() config.Options {
	return config.Options{Dev: g.dev, Enhanced: g.enhanced, File: g.configFile}
}

// wire connects the engine's collaborators for cfg. The returned close
// function releases the store.
func wire(ctx context.Context, cfg *config.Config, run *metrics.Run) (reconcile.Deps, func(), error) {
	httpClient := catalog.NewHTTPClient(cfg.Retries, backoffPolicy(cfg), cfg.HTTPTimeout)

	store, err := storage.Open(ctx, cfg.Store, cfg.AWSRegion)
	if err != nil {
		return reconcile.Deps{}, nil, fmt.Errorf("failed to open store: %w", err)
	}
	closeStore := func() {
		if c, ok := store.(io.Closer); ok {
			if err := c.Close(); err != nil {
				slog.Warn("Failed to close store", "error", err)
			}
		}
	}

	var inv invalidation.Invalidator = invalidation.Log{}
	if cfg.CDNDistribution != "" {
		cf, err := invalidation.NewCloudFront(cfg.CDNDistribution, cfg.AWSRegion)
		if err != nil {
			closeStore()
			return reconcile.Deps{}, nil, err
		}
		inv = cf
	}

	return reconcile.Deps{
		Catalog:     catalog.NewClient(cfg.APIURL, httpClient),
		Archive:     images.NewFetcher(cfg.ArchiveURL, httpClient),
		Store:       store,
		Invalidator: inv,
		Metrics:     run,
	}, closeStore, nil
}

func backoffPolicy(cfg *config.Config) catalog.BackoffPolicy {
	if cfg.RetryBackoff == config.BackoffExponential {
		return catalog.ExponentialBackoff{InitialDelay: cfg.RetryDelay, Multiplier: 2, MaxDelay: cfg.RetryMaxDelay}
	}
	return catalog.FixedBackoff{Delay: cfg.RetryDelay}
}

// parseMode validates the --dates value before any work starts.
func parseMode(full bool, dates string) (reconcile.Mode, error) {
	mode := reconcile.Mode{Full: full}
	if dates == "" {
		return mode, nil
	}
	parsed, err := models.ParseDateList(dates)
	if err != nil {
		return mode, err
	}
	mode.Dates = parsed
	return mode, nil
}
