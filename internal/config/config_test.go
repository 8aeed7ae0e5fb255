package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, DefaultGeoJSONPath, s.GeoJSONPath)
	require.Equal(t, DefaultTemplatePath, s.TemplatePath)
	require.Equal(t, DefaultOutputDir, s.OutputDir)
	require.Equal(t, DefaultConfigPrefix, s.ConfigPrefix)
	require.Equal(t, DefaultTool, s.Tool)
	require.Equal(t, string(DefaultSyntax), s.TemplateSyntax)
	require.Equal(t, 1, s.Concurrency)
	require.True(t, s.InProcess)
	require.NoError(t, s.Validate())
}

func TestLoadSettingsFromEnv(t *testing.T) {
	t.Setenv("CRMTILES_GEOJSON", "tiles.geojson")
	t.Setenv("CRMTILES_CONCURRENCY", "4")
	t.Setenv("CRMTILES_TILE_TIMEOUT", "90s")
	t.Setenv("CRMTILES_TOOL_ARGS", "--threads 2")
	t.Setenv("CRMTILES_INCLUDE", "zone=6,kind=crm")
	t.Setenv("CRMTILES_FAIL_ON_ERROR", "true")

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "tiles.geojson", s.GeoJSONPath)
	require.Equal(t, 4, s.Concurrency)
	require.Equal(t, 90*time.Second, s.TileTimeout)
	require.Equal(t, []string{"--threads", "2"}, s.ToolArgs)
	require.Equal(t, []string{"zone=6", "kind=crm"}, s.Include)
	require.True(t, s.FailOnError)
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	base := Settings{
		GeoJSONPath:  "a.geojson",
		TemplatePath: "t.yaml",
		OutputDir:    "out",
		Concurrency:  1,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.Concurrency = 0
	require.ErrorContains(t, bad.Validate(), "concurrency")

	bad = base
	bad.TemplateSyntax = "jinja"
	require.ErrorContains(t, bad.Validate(), "template syntax")

	bad = base
	bad.ConfigPrefix = "a/b"
	require.ErrorContains(t, bad.Validate(), "path separators")

	bad = base
	bad.OutputDir = " "
	require.Error(t, bad.Validate())

	bad = base
	bad.TileTimeout = -time.Second
	require.Error(t, bad.Validate())

	bad = base
	bad.LogLevel = "loud"
	require.ErrorContains(t, bad.Validate(), "unknown log level")
}

func TestConfigFileName(t *testing.T) {
	t.Parallel()

	s := Settings{ConfigPrefix: "socal_"}
	require.Equal(t, "socal_T1.yaml", s.ConfigFileName("T1"))
}
