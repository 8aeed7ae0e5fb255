package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/engine"
)

// newRenderCommand creates the "render" subcommand that renders tile configurations without building.
func newRenderCommand(opts *Options) *cobra.Command {
	var toStdout bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render tile configurations without building tiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var w io.Writer
			if toStdout {
				w = cmd.OutOrStdout()
			}
			return renderTiles(cmd.Context(), opts.Settings, w)
		},
	}

	cmd.Flags().BoolVar(&toStdout, "stdout", false, "Print rendered configurations to stdout instead of writing tile directories")
	cmd.Flags().BoolVar(&opts.Settings.FailOnError, "fail-on-error", opts.Settings.FailOnError, "Exit non-zero when any tile failed to render")
	return cmd
}

// renderTiles runs the driver as a dry run. A nil w writes the tile
// directories; otherwise the configurations are streamed to w.
func renderTiles(ctx context.Context, s config.Settings, w io.Writer) error {
	logger := LoggerFromContext(ctx)
	if err := s.Validate(); err != nil {
		return err
	}
	inputs, err := loadInputs(s, logger)
	if err != nil {
		return err
	}
	driverOpts, err := driverOptions(s)
	if err != nil {
		return err
	}
	driverOpts.RenderOnly = true

	driver, err := engine.NewDriver(inputs.template, nil, driverOpts, logger)
	if err != nil {
		return err
	}

	var report *engine.Report
	if w != nil {
		report, err = driver.Render(ctx, inputs.features, w)
		if err != nil {
			return err
		}
	} else {
		report = driver.Run(ctx, inputs.features)
		logger.Info("rendered tile configurations", "rendered", report.Rendered, "failed", report.Failed, "output", driver.OutputDir())
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailOnError {
		return report.Err()
	}
	return nil
}
