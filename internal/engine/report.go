package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ciresdem/crmtiles/internal/geo"
)

// Status is the outcome of one tile.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusRendered  Status = "rendered"
)

// TileResult records what happened to one feature.
type TileResult struct {
	Index      int           `yaml:"index"`
	Name       string        `yaml:"name,omitempty"`
	Status     Status        `yaml:"status"`
	Region     *geo.Region   `yaml:"region,omitempty"`
	Dir        string        `yaml:"dir,omitempty"`
	ConfigPath string        `yaml:"config,omitempty"`
	Strategy   string        `yaml:"strategy,omitempty"`
	Elapsed    string        `yaml:"elapsed,omitempty"`
	Error      string        `yaml:"error,omitempty"`
	Duration   time.Duration `yaml:"-"`

	err      error
	rendered []byte
}

// Err returns the tile's *TileError, or nil.
func (r TileResult) Err() error { return r.err }

func (r *TileResult) finish(started time.Time) {
	r.Duration = time.Since(started)
	r.Elapsed = r.Duration.Round(time.Millisecond).String()
}

// Report summarizes a run.
type Report struct {
	Total     int          `yaml:"total"`
	Succeeded int          `yaml:"succeeded"`
	Failed    int          `yaml:"failed"`
	Skipped   int          `yaml:"skipped"`
	Rendered  int          `yaml:"rendered,omitempty"`
	Tiles     []TileResult `yaml:"tiles"`
}

func newReport(results []TileResult) *Report {
	r := &Report{Total: len(results), Tiles: results}
	for _, t := range results {
		switch t.Status {
		case StatusSucceeded:
			r.Succeeded++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		case StatusRendered:
			r.Rendered++
		}
	}
	return r
}

// Err joins the errors of every failed tile, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, t := range r.Tiles {
		if t.err != nil {
			errs = append(errs, t.err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d tiles failed: %w", r.Failed, r.Total, errors.Join(errs...))
}

// WriteYAML writes the report to path, creating parent directories.
func (r *Report) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}

// Outputs returns the summary counters as CI step outputs.
func (r *Report) Outputs() map[string]string {
	return map[string]string{
		"tiles_total":     strconv.Itoa(r.Total),
		"tiles_succeeded": strconv.Itoa(r.Succeeded),
		"tiles_failed":    strconv.Itoa(r.Failed),
		"tiles_skipped":   strconv.Itoa(r.Skipped),
	}
}
