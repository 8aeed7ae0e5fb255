// Package cli defines the command-line interface for crmtiles.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/logging"
)

// Options stores global CLI options shared between commands.
type Options struct {
	Settings config.Settings
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(ctx context.Context, args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, slog.LevelInfo)
	}

	settings, err := config.LoadSettings()
	if err != nil {
		return err
	}
	rootOpts := &Options{Settings: settings}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(ctx)
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
// Running the root command without a subcommand builds all tiles.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crmtiles",
		Short: "crmtiles builds coastal relief model tiles from a GeoJSON tile index",
		Long: "crmtiles iterates over the polygons of a GeoJSON tile index, renders a fetch recipe " +
			"per tile from a template and builds each tile with an in-process runner or the fetchez tool.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(opts.Settings.LogLevel)
			if err != nil {
				return err
			}
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level.String())
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), opts)
		},
	}

	s := &opts.Settings
	pf := cmd.PersistentFlags()
	pf.StringVarP(&s.GeoJSONPath, "geojson", "g", s.GeoJSONPath, "Path to the GeoJSON tile index")
	pf.StringVarP(&s.TemplatePath, "template", "t", s.TemplatePath, "Path to the tile configuration template")
	pf.StringVar(&s.TemplateSyntax, "template-syntax", s.TemplateSyntax, "Template placeholder syntax (brace, go)")
	pf.StringVarP(&s.OutputDir, "output", "o", s.OutputDir, "Root directory for tile directories")
	pf.StringVar(&s.ConfigPrefix, "config-prefix", s.ConfigPrefix, "Prefix of the per-tile configuration file")
	pf.StringSliceVar(&s.Include, "include", s.Include, "Only build features whose properties match PATH=VALUE (gjson syntax)")
	pf.StringSliceVar(&s.Exclude, "exclude", s.Exclude, "Skip features whose properties match PATH=VALUE (gjson syntax)")
	pf.StringSliceVar(&s.Only, "only", s.Only, "Only build the named tiles (comma-separated)")
	pf.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level (debug, info, warn, error)")
	addToolFlags(pf, s)

	addBuildFlags(cmd, s)

	cmd.AddCommand(
		newBuildCommand(opts),
		newRenderCommand(opts),
		newDoctorCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, slog.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, slog.LevelInfo)
}
