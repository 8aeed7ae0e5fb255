package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/fetch"
	"github.com/ciresdem/crmtiles/internal/recipe"
)

// newDoctorCommand creates the "doctor" subcommand that runs preflight checks.
func newDoctorCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check inputs and the availability of the fetch tool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())
			if err := runDoctorChecks(cmd.Context(), logger, opts.Settings); err != nil {
				return err
			}
			logger.Info("doctor checks completed successfully")
			return nil
		},
	}
}

func runDoctorChecks(_ context.Context, logger *slog.Logger, s config.Settings) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := s.Validate(); err != nil {
		return err
	}

	var problems []string

	runner := inProcessRunner(s, logger)
	if runner != nil {
		logger.Info("doctor check ok", "check", "in-process runner", "registered", recipe.Runners())
	} else {
		logger.Info("no in-process runner registered; tiles are built with the fetch tool")
	}

	client := fetch.NewClient(s.Tool, s.ToolArgs, nil, logger)
	if path, err := client.LookPath(); err != nil {
		if runner == nil {
			logger.Error("doctor check failed: missing fetch tool", "tool", s.Tool, "error", err)
			problems = append(problems, fmt.Sprintf("fetch tool %q not found", s.Tool))
		} else {
			logger.Warn("fetch tool not found; failed in-process builds have no fallback", "tool", s.Tool)
		}
	} else {
		logger.Info("doctor check ok", "check", "fetch tool", "path", path)
	}

	if dispatcher, err := newDispatcher(s, logger); err != nil {
		logger.Error("doctor check failed: tool environment", "error", err)
		problems = append(problems, err.Error())
	} else {
		for i, st := range dispatcher.Strategies() {
			logger.Info("doctor check ok", "check", "strategy", "order", i+1, "strategy", st.Name(), "available", st.Available())
		}
	}

	if _, err := loadInputs(s, logger); err != nil {
		logger.Error("doctor check failed: inputs", "error", err)
		problems = append(problems, err.Error())
	} else {
		logger.Info("doctor check ok", "check", "inputs", "geojson", s.GeoJSONPath, "template", s.TemplatePath)
	}

	if info, err := os.Stat(s.OutputDir); err == nil && !info.IsDir() {
		logger.Error("doctor check failed: output path is not a directory", "output", s.OutputDir)
		problems = append(problems, fmt.Sprintf("output %q is not a directory", s.OutputDir))
	}

	if len(problems) > 0 {
		return fmt.Errorf("doctor found %d problem(s): %v", len(problems), problems)
	}
	return nil
}
