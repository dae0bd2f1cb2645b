package cmd

import (
	"fmt"
	"log/slog"

	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/metrics"
	"github.com/blueturn/epicmirror/internal/reconcile"
	"github.com/spf13/cobra"
)

func newSyncCmd(g *globalFlags) *cobra.Command {
	var full bool
	var dates string
	var dryRun bool
	var auditDir string
	var pushgateway string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Bring the mirror up to date with the EPIC API",
		Long: `Compare every date the EPIC API publishes with the mirror and process the
images the mirror lacks.

Images that fail to download or have no measurable disc are left out of the
catalog and retried on the next run. The alignment audit is always written
locally, also with --dryrun.`,
		Example: `  # Mirror whatever is new
  epicmirror sync

  # Reprocess two dates without touching images_latest.json
  epicmirror sync --dates 2016-07-05,2016-03-09

  # Exercise the whole pipeline without writing to the bucket
  epicmirror sync --full --dryrun --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(full, dates)
			if err != nil {
				return fmt.Errorf("invalid --dates: %w", err)
			}

			opts := g.options()
			opts.AuditDir = auditDir
			opts.Pushgateway = pushgateway
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

			summary, err := reconcile.New(cfg, deps, dryRun).Run(ctx, mode)
			if summary != nil && summary.AuditPath != "" {
				slog.Info("Audit written", "path", summary.AuditPath)
			}

			if cfg.Pushgateway != "" {
				if perr := run.Push(ctx, cfg.Pushgateway, "epicmirror_"+cfg.Collection); perr != nil {
					slog.Warn("Metrics not pushed", "error", perr)
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Reprocess every image of every date")
	cmd.Flags().StringVar(&dates, "dates", "", "Comma separated dates to reprocess (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&dryRun, "dryrun", false, "Read and process but do not write to the bucket")
	cmd.Flags().StringVar(&auditDir, "audit-dir", "", "Directory for the alignment audit (default: temp dir)")
	cmd.Flags().StringVar(&pushgateway, "pushgateway", "", "Prometheus Pushgateway URL for run metrics")

	cmd.MarkFlagsMutuallyExclusive("full", "dates")

	return cmd
}
