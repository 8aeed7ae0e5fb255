package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/ghoutput"
	"github.com/ciresdem/crmtiles/internal/logging"
)

const indexGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"NAME": "T1"},
     "geometry": {"type": "Polygon", "coordinates": [[[-119.5, 33.0], [-118.25, 33.0], [-118.25, 34.25], [-119.5, 33.0]]]}},
    {"type": "Feature", "properties": {"ID": "T2"},
     "geometry": {"type": "Polygon", "coordinates": [[]]}},
    {"type": "Feature", "properties": {"ID": "T3"},
     "geometry": {"type": "Polygon", "coordinates": [[[-118.25, 32.0], [-117.0, 32.0], [-117.0, 33.0], [-118.25, 32.0]]]}}
  ]
}`

const braceTemplate = "project:\n  name: {name}\nregion: [{w:.2f}, {e:.2f}, {s:.2f}, {n:.2f}]\n"

type workspace struct {
	dir      string
	geojson  string
	template string
	output   string
	tool     string
	outputs  string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	ws := workspace{
		dir:      dir,
		geojson:  filepath.Join(dir, "index.geojson"),
		template: filepath.Join(dir, "crm.yaml"),
		output:   filepath.Join(dir, "tiles"),
		tool:     filepath.Join(dir, "fake-fetchez"),
		outputs:  filepath.Join(dir, "github_output"),
	}
	require.NoError(t, os.WriteFile(ws.geojson, []byte(indexGeoJSON), 0o600))
	require.NoError(t, os.WriteFile(ws.template, []byte(braceTemplate), 0o600))
	require.NoError(t, os.WriteFile(ws.tool, []byte("#!/bin/sh\necho \"$@\" > built.txt\n"), 0o755))

	t.Setenv(ghoutput.EnvVar, ws.outputs)
	return ws
}

func (ws workspace) args(cmd string, extra ...string) []string {
	args := []string{}
	if cmd != "" {
		args = append(args, cmd)
	}
	args = append(args,
		"--geojson", ws.geojson,
		"--template", ws.template,
		"--output", ws.output,
		"--log-level", "error",
	)
	return append(args, extra...)
}

func TestBuildEndToEnd(t *testing.T) {
	ws := newWorkspace(t)
	report := filepath.Join(ws.dir, "report.yaml")

	err := Execute(context.Background(), ws.args("build", "--tool", ws.tool, "--report", report), logging.Discard())
	require.NoError(t, err)

	entries, err := os.ReadDir(ws.output)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	cfg, err := os.ReadFile(filepath.Join(ws.output, "T1", "socal_T1.yaml"))
	require.NoError(t, err)
	require.Equal(t, "project:\n  name: T1\nregion: [-119.50, -118.25, 33.00, 34.25]\n", string(cfg))

	built, err := os.ReadFile(filepath.Join(ws.output, "T3", "built.txt"))
	require.NoError(t, err)
	require.Equal(t, "socal_T3.yaml\n", string(built))

	require.FileExists(t, report)
	outputs, err := os.ReadFile(ws.outputs)
	require.NoError(t, err)
	require.Contains(t, string(outputs), "tiles_failed=1\n")
	require.Contains(t, string(outputs), "tiles_succeeded=2\n")
}

func TestRootCommandBuildsByDefault(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), ws.args("", "--tool", ws.tool, "--tool-arg=--quiet"), logging.Discard())
	require.NoError(t, err)

	built, err := os.ReadFile(filepath.Join(ws.output, "T1", "built.txt"))
	require.NoError(t, err)
	require.Equal(t, "--quiet socal_T1.yaml\n", string(built))
}

func TestBuildDefaultSyntaxRendersBraceTemplate(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), []string{
		"build",
		"--geojson", ws.geojson,
		"--template", ws.template,
		"--output", ws.output,
		"--tool", ws.tool,
		"--log-level", "error",
	}, logging.Discard())
	require.NoError(t, err)

	cfg, err := os.ReadFile(filepath.Join(ws.output, "T1", "socal_T1.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(cfg), "-119.50")
	require.NotContains(t, string(cfg), "{name}")
}

func TestBuildGoSyntaxRejectsBraceTemplate(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), ws.args("build", "--tool", ws.tool, "--template-syntax", "go"), logging.Discard())
	require.ErrorIs(t, err, config.ErrSyntaxMismatch)
	require.NoDirExists(t, ws.output)
}

func TestBuildFailOnError(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), ws.args("build", "--tool", ws.tool, "--fail-on-error"), logging.Discard())
	require.ErrorContains(t, err, "1 of 3 tiles failed")
}

func TestBuildToolFailureDoesNotFailRun(t *testing.T) {
	ws := newWorkspace(t)
	failing := filepath.Join(ws.dir, "failing-fetchez")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 2\n"), 0o755))

	err := Execute(context.Background(), ws.args("build", "--tool", failing), logging.Discard())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(ws.output, "T1", "socal_T1.yaml"))
}

func TestBuildMissingInputsIsFatal(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.Remove(ws.geojson))

	err := Execute(context.Background(), ws.args("build", "--tool", ws.tool), logging.Discard())
	require.ErrorContains(t, err, "read feature collection")
	require.NoDirExists(t, ws.output)
}

func TestRenderWritesConfigsOnly(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), ws.args("render"), logging.Discard())
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(ws.output, "T1", "socal_T1.yaml"))
	require.NoFileExists(t, filepath.Join(ws.output, "T1", "built.txt"))
}

func TestRenderStdout(t *testing.T) {
	ws := newWorkspace(t)

	settings, err := config.LoadSettings()
	require.NoError(t, err)
	opts := &Options{Settings: settings}
	cmd := newRootCommand(opts, logging.Discard())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(ws.args("render", "--stdout", "--only", "T3"))
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.Contains(t, out.String(), "---\n# socal_T3.yaml\nproject:\n  name: T3\n")
	require.NotContains(t, out.String(), "T1")
	require.NoDirExists(t, ws.output)
}

func TestRenderParseFailuresMatchInBothModes(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.WriteFile(ws.template, []byte("- {name}\n"), 0o600))

	err := Execute(context.Background(), ws.args("render", "--fail-on-error"), logging.Discard())
	require.ErrorContains(t, err, "3 of 3 tiles failed")
	require.ErrorContains(t, err, "parse")

	settings, err := config.LoadSettings()
	require.NoError(t, err)
	cmd := newRootCommand(&Options{Settings: settings}, logging.Discard())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(ws.args("render", "--stdout", "--fail-on-error"))
	err = cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "3 of 3 tiles failed")
	require.ErrorContains(t, err, "parse")
	require.Empty(t, out.String())
}

func TestDoctor(t *testing.T) {
	ws := newWorkspace(t)

	err := Execute(context.Background(), ws.args("doctor", "--tool", ws.tool), logging.Discard())
	require.NoError(t, err)

	err = Execute(context.Background(), ws.args("doctor", "--tool", "crmtiles-definitely-missing-tool"), logging.Discard())
	require.ErrorContains(t, err, "not found")

	require.NoError(t, os.WriteFile(ws.template, []byte("x: {name"), 0o600))
	err = Execute(context.Background(), ws.args("doctor", "--tool", ws.tool), logging.Discard())
	require.ErrorContains(t, err, "unmatched")
}

func TestDoctorReportsStrategyChain(t *testing.T) {
	ws := newWorkspace(t)

	settings, err := config.LoadSettings()
	require.NoError(t, err)
	settings.GeoJSONPath = ws.geojson
	settings.TemplatePath = ws.template
	settings.OutputDir = ws.output
	settings.Tool = ws.tool

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	require.NoError(t, runDoctorChecks(context.Background(), logger, settings))

	require.Contains(t, logs.String(), "order=1 strategy=recipe available=false")
	require.Contains(t, logs.String(), "order=2 strategy=command available=true")
}
