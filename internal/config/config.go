// Package config contains the run settings of crmtiles and the tile
// configuration template they point at.
package config

import (
	"fmt"
	"strings"
	"time"

	envparse "github.com/caarlos0/env/v11"

	"github.com/ciresdem/crmtiles/internal/logging"
)

const (
	// DefaultGeoJSONPath is the feature collection read when no path is given.
	DefaultGeoJSONPath = "crm_vol6_south.geojson"
	// DefaultTemplatePath is the configuration template read when no path is given.
	DefaultTemplatePath = "crm_vol6_config.yaml"
	// DefaultOutputDir is the root under which tile directories are created.
	DefaultOutputDir = "./crm_vol6_output_tiles"
	// DefaultConfigPrefix prefixes every persisted tile configuration file.
	DefaultConfigPrefix = "socal_"
	// DefaultTool is the external command used when no in-process runner is available.
	DefaultTool = "fetchez"
	// ConfigExt is the extension of persisted tile configuration files.
	ConfigExt = ".yaml"
)

// Settings describes one tile build run. Every field has a CRMTILES_* variable;
// command-line flags override the environment.
type Settings struct {
	// GeoJSONPath is the feature collection to iterate.
	GeoJSONPath string `env:"CRMTILES_GEOJSON" envDefault:"crm_vol6_south.geojson"`
	// TemplatePath is the tile configuration template.
	TemplatePath string `env:"CRMTILES_TEMPLATE" envDefault:"crm_vol6_config.yaml"`
	// TemplateSyntax selects the placeholder syntax ("brace" or "go").
	TemplateSyntax string `env:"CRMTILES_TEMPLATE_SYNTAX" envDefault:"brace"`
	// OutputDir is the root of the per-tile directories.
	OutputDir string `env:"CRMTILES_OUTPUT" envDefault:"./crm_vol6_output_tiles"`
	// ConfigPrefix prefixes the persisted configuration file of each tile.
	ConfigPrefix string `env:"CRMTILES_CONFIG_PREFIX" envDefault:"socal_"`
	// Tool is the external fetch command.
	Tool string `env:"CRMTILES_TOOL" envDefault:"fetchez"`
	// ToolArgs are inserted between the tool and the configuration path.
	ToolArgs []string `env:"CRMTILES_TOOL_ARGS" envSeparator:" "`
	// ToolEnv is a k=v,k2=v2 list added to the tool environment.
	ToolEnv string `env:"CRMTILES_TOOL_ENV"`
	// EnvFiles are .env files merged into the tool environment.
	EnvFiles []string `env:"CRMTILES_ENV_FILES" envSeparator:","`
	// Include keeps only features matching every PATH=VALUE statement.
	Include []string `env:"CRMTILES_INCLUDE" envSeparator:","`
	// Exclude drops features matching any PATH=VALUE statement.
	Exclude []string `env:"CRMTILES_EXCLUDE" envSeparator:","`
	// Only restricts the run to the named tiles.
	Only []string `env:"CRMTILES_ONLY" envSeparator:","`
	// Concurrency is the number of tiles built at once.
	Concurrency int `env:"CRMTILES_CONCURRENCY" envDefault:"1"`
	// TileTimeout bounds each tile's dispatch; zero means no limit.
	TileTimeout time.Duration `env:"CRMTILES_TILE_TIMEOUT"`
	// InProcess enables the registered in-process recipe runner.
	InProcess bool `env:"CRMTILES_IN_PROCESS" envDefault:"true"`
	// Runner names the in-process recipe runner to use.
	Runner string `env:"CRMTILES_RUNNER"`
	// ReportPath is an optional YAML file receiving the run report.
	ReportPath string `env:"CRMTILES_REPORT"`
	// FailOnError makes the run fail when any tile failed.
	FailOnError bool `env:"CRMTILES_FAIL_ON_ERROR"`
	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `env:"CRMTILES_LOG_LEVEL" envDefault:"info"`
}

// LoadSettings returns settings populated from defaults and CRMTILES_* variables.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := envparse.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse environment: %w", err)
	}
	return s, nil
}

// Validate checks the settings for values the driver cannot work with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.GeoJSONPath) == "" {
		return fmt.Errorf("geojson path is empty")
	}
	if strings.TrimSpace(s.TemplatePath) == "" {
		return fmt.Errorf("template path is empty")
	}
	if strings.TrimSpace(s.OutputDir) == "" {
		return fmt.Errorf("output directory is empty")
	}
	if _, err := ParseSyntax(s.TemplateSyntax); err != nil {
		return err
	}
	if strings.ContainsAny(s.ConfigPrefix, `/\`) {
		return fmt.Errorf("config prefix %q must not contain path separators", s.ConfigPrefix)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.TileTimeout < 0 {
		return fmt.Errorf("tile timeout must not be negative, got %s", s.TileTimeout)
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// ConfigFileName returns the persisted configuration file name for a tile.
func (s Settings) ConfigFileName(tile string) string {
	return FileName(s.ConfigPrefix, tile)
}

// FileName joins prefix, tile name and ConfigExt.
func FileName(prefix, tile string) string {
	return prefix + tile + ConfigExt
}
