package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/reconcile"
	"github.com/spf13/cobra"
)

func newPlanCmd(g *globalFlags) *cobra.Command {
	var full bool
	var dates string
	var all bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a sync would do, without downloading or writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseMode(full, dates)
			if err != nil {
				return fmt.Errorf("invalid --dates: %w", err)
			}
			cfg, err := config.Load(g.options())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			deps, closeStore, err := wire(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			plans, err := reconcile.New(cfg, deps, true).Plan(ctx, mode)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), plans, all)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Plan a full reprocessing")
	cmd.Flags().StringVar(&dates, "dates", "", "Comma separated dates to plan (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "Also list dates that are up to date")
	cmd.MarkFlagsMutuallyExclusive("full", "dates")

	return cmd
}

func printPlan(w io.Writer, plans []reconcile.DatePlan, all bool) {
	fmt.Fprintf(w, "%-12s %-12s %7s %7s %6s\n", "DATE", "STATE", "REMOTE", "MIRROR", "DELTA")
	fmt.Fprintln(w, strings.Repeat("-", 48))

	counts := map[reconcile.State]int{}
	images := 0
	for _, p := range plans {
		counts[p.State]++
		images += len(p.Delta)
		if p.State == reconcile.StateUpToDate && !all {
			continue
		}
		fmt.Fprintf(w, "%-12s %-12s %7d %7d %6d\n", p.Date, p.State, p.Remote, p.Mirror, len(p.Delta))
	}

	fmt.Fprintln(w, strings.Repeat("-", 48))
	fmt.Fprintf(w, "%d dates: %d new, %d stale, %d up to date, %d unavailable; %d images to process\n",
		len(plans),
		counts[reconcile.StateNew],
		counts[reconcile.StateStale],
		counts[reconcile.StateUpToDate],
		counts[reconcile.StateUnknown],
		images)
}
