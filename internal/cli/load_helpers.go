package cli

import (
	"fmt"
	"log/slog"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/dispatch"
	"github.com/ciresdem/crmtiles/internal/engine"
	"github.com/ciresdem/crmtiles/internal/env"
	"github.com/ciresdem/crmtiles/internal/fetch"
	"github.com/ciresdem/crmtiles/internal/geo"
	"github.com/ciresdem/crmtiles/internal/recipe"
)

// runInputs are the documents loaded once per run.
type runInputs struct {
	features []geo.Feature
	template *config.Template
}

// loadInputs reads the template and the feature collection. Any error here is
// fatal for the run.
func loadInputs(s config.Settings, logger *slog.Logger) (runInputs, error) {
	syntax, err := config.ParseSyntax(s.TemplateSyntax)
	if err != nil {
		return runInputs{}, err
	}
	tmpl, err := config.LoadTemplate(s.TemplatePath, syntax)
	if err != nil {
		return runInputs{}, err
	}
	features, err := geo.LoadCollection(s.GeoJSONPath)
	if err != nil {
		return runInputs{}, err
	}
	logger.Info("found tiles to process", "count", len(features), "geojson", s.GeoJSONPath)
	return runInputs{features: features, template: tmpl}, nil
}

// toolEnv merges the process environment, env files and inline tool vars.
func toolEnv(s config.Settings) (env.Vars, error) {
	fileVars, err := env.LoadEnvFiles("", s.EnvFiles)
	if err != nil {
		return nil, err
	}
	inline, err := env.ParseInlineVars(s.ToolEnv)
	if err != nil {
		return nil, fmt.Errorf("parse tool env: %w", err)
	}
	return env.Merge(env.FromOS(), fileVars, inline), nil
}

// inProcessRunner returns the recipe runner selected by the settings, or nil.
func inProcessRunner(s config.Settings, logger *slog.Logger) recipe.Runner {
	if !s.InProcess {
		return nil
	}
	runner, ok := recipe.Lookup(s.Runner)
	if !ok {
		if s.Runner != "" {
			logger.Warn("in-process runner not registered, using fetch tool only", "runner", s.Runner, "registered", recipe.Runners())
		}
		return nil
	}
	return runner
}

// newDispatcher builds the strategy chain: in-process runner first, fetch tool second.
func newDispatcher(s config.Settings, logger *slog.Logger) (*dispatch.Dispatcher, error) {
	vars, err := toolEnv(s)
	if err != nil {
		return nil, err
	}
	client := fetch.NewClient(s.Tool, s.ToolArgs, vars, logger.With("component", "fetch"))

	return dispatch.New(logger,
		dispatch.NewRecipeStrategy(inProcessRunner(s, logger)),
		dispatch.NewCommandStrategy(client),
	), nil
}

// driverOptions converts settings into engine options.
func driverOptions(s config.Settings) (engine.Options, error) {
	include, err := geo.ParseMatches(s.Include)
	if err != nil {
		return engine.Options{}, fmt.Errorf("parse --include: %w", err)
	}
	exclude, err := geo.ParseMatches(s.Exclude)
	if err != nil {
		return engine.Options{}, fmt.Errorf("parse --exclude: %w", err)
	}
	return engine.Options{
		OutputDir:    s.OutputDir,
		ConfigPrefix: s.ConfigPrefix,
		Concurrency:  s.Concurrency,
		TileTimeout:  s.TileTimeout,
		Filter:       geo.Filter{Include: include, Exclude: exclude},
		Only:         s.Only,
	}, nil
}
