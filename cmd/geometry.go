package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/blueturn/epicmirror/internal/config"
	"github.com/blueturn/epicmirror/internal/geometry"
	"github.com/spf13/cobra"
)

func newGeometryCmd(g *globalFlags) *cobra.Command {
	var overlayPath string

	cmd := &cobra.Command{
		Use:   "geometry <image.png>",
		Short: "Measure the Earth disc on a local raster",
		Long: `Print the normalized circle and ellipse of the Earth disc in a local EPIC
PNG, in the form stored under "cache" in the daily catalogs, and optionally
write the debug overlay.`,
		Example: `  epicmirror geometry epic_1b_20150613110250.png --overlay debug.png`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.options())
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}

			x := geometry.NewExtractor(cfg.Dimension, cfg.Threshold)
			img, err := x.Decode(data)
			if err != nil {
				return err
			}
			if b := img.Bounds(); b.Dx() == b.Dy() && b.Dx() != cfg.Dimension {
				x = geometry.NewExtractor(b.Dx(), cfg.Threshold)
			}

			res, err := x.Extract(img)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res.Descriptor, "", "    ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if overlayPath != "" {
				overlay, err := x.RenderOverlay(img, res)
				if err != nil {
					return err
				}
				if err := os.WriteFile(overlayPath, overlay, 0644); err != nil {
					return fmt.Errorf("failed to write overlay: %w", err)
				}
				slog.Info("Wrote overlay", "path", overlayPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&overlayPath, "overlay", "", "Write the debug overlay PNG here")

	return cmd
}
