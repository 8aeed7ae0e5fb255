package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/engine"
	"github.com/ciresdem/crmtiles/internal/ghoutput"
)

// newBuildCommand creates the "build" subcommand that renders and builds every tile.
func newBuildCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Render tile configurations and build every tile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), opts)
		},
	}
	addBuildFlags(cmd, &opts.Settings)
	return cmd
}

// addToolFlags registers the flags describing how tiles are dispatched.
func addToolFlags(f *pflag.FlagSet, s *config.Settings) {
	f.StringVar(&s.Tool, "tool", s.Tool, "External fetch tool invoked as '<tool> [tool-args] <config>'")
	f.StringArrayVar(&s.ToolArgs, "tool-arg", s.ToolArgs, "Extra argument passed to the fetch tool before the config path (repeatable)")
	f.StringVar(&s.ToolEnv, "tool-env", s.ToolEnv, "Additional tool environment in k=v,k2=v2 format")
	f.StringSliceVar(&s.EnvFiles, "env-file", s.EnvFiles, "Path to .env file merged into the tool environment (repeatable)")
	f.BoolVar(&s.InProcess, "in-process", s.InProcess, "Try a registered in-process recipe runner before the fetch tool")
	f.StringVar(&s.Runner, "runner", s.Runner, "Name of the in-process recipe runner to use")
}

// addBuildFlags registers the flags that only matter when tiles are built.
func addBuildFlags(cmd *cobra.Command, s *config.Settings) {
	f := cmd.Flags()
	f.IntVarP(&s.Concurrency, "concurrency", "j", s.Concurrency, "Number of tiles built at once")
	f.DurationVar(&s.TileTimeout, "tile-timeout", s.TileTimeout, "Maximum time per tile build (0 disables)")
	f.StringVar(&s.ReportPath, "report", s.ReportPath, "Write a YAML run report to this path")
	f.BoolVar(&s.FailOnError, "fail-on-error", s.FailOnError, "Exit non-zero when any tile failed")
}

func runBuild(ctx context.Context, opts *Options) error {
	logger := LoggerFromContext(ctx)
	s := opts.Settings

	if err := s.Validate(); err != nil {
		return err
	}
	inputs, err := loadInputs(s, logger)
	if err != nil {
		return err
	}
	dispatcher, err := newDispatcher(s, logger)
	if err != nil {
		return err
	}

	driverOpts, err := driverOptions(s)
	if err != nil {
		return err
	}
	driver, err := engine.NewDriver(inputs.template, dispatcher, driverOpts, logger)
	if err != nil {
		return err
	}

	logger.Info("building tiles", "count", len(inputs.features), "output", driver.OutputDir(), "concurrency", s.Concurrency)
	report := driver.Run(ctx, inputs.features)

	if s.ReportPath != "" {
		if err := report.WriteYAML(s.ReportPath); err != nil {
			return err
		}
		logger.Info("wrote run report", "path", s.ReportPath)
	}
	if err := ghoutput.Write(report.Outputs()); err != nil {
		logger.Warn("could not publish step outputs", "error", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailOnError {
		return report.Err()
	}
	return nil
}
