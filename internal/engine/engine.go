// Package engine drives a tile build run: for every feature it derives the
// region and tile name, renders and persists the tile configuration, and hands
// the tile to the dispatcher. Failures are isolated per tile and collected in
// a Report.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ciresdem/crmtiles/internal/config"
	"github.com/ciresdem/crmtiles/internal/dispatch"
	"github.com/ciresdem/crmtiles/internal/geo"
	"github.com/ciresdem/crmtiles/internal/recipe"
)

// Dispatcher builds a tile from its persisted configuration.
type Dispatcher interface {
	Dispatch(ctx context.Context, job dispatch.Job) (string, error)
}

// Options configures a Driver.
type Options struct {
	// OutputDir is the root of the per-tile directories.
	OutputDir string
	// ConfigPrefix prefixes the persisted configuration file of each tile.
	ConfigPrefix string
	// Concurrency is the number of tiles processed at once; values below 1 mean 1.
	Concurrency int
	// TileTimeout bounds each tile's dispatch; zero means no limit.
	TileTimeout time.Duration
	// Filter selects features by property.
	Filter geo.Filter
	// Only restricts the run to the named tiles when non-empty.
	Only []string
	// RenderOnly stops after the configuration is persisted and parsed.
	RenderOnly bool
}

// Driver runs the per-tile pipeline.
type Driver struct {
	tmpl       *config.Template
	dispatcher Dispatcher
	opts       Options
	only       map[string]struct{}
	logger     *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*tileLock
}

// tileLock serializes features that resolve to the same tile name, since
// they share a directory and a configuration file.
type tileLock struct {
	mu    sync.Mutex
	owner int
}

// NewDriver constructs a Driver. The output directory is resolved to an
// absolute path so that tile directories do not depend on the working directory.
func NewDriver(tmpl *config.Template, dispatcher Dispatcher, opts Options, logger *slog.Logger) (*Driver, error) {
	if tmpl == nil {
		return nil, fmt.Errorf("template is nil")
	}
	if dispatcher == nil && !opts.RenderOnly {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory %q: %w", opts.OutputDir, err)
	}
	opts.OutputDir = root
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	var only map[string]struct{}
	for _, name := range opts.Only {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if only == nil {
			only = make(map[string]struct{})
		}
		only[name] = struct{}{}
	}

	return &Driver{
		tmpl:       tmpl,
		dispatcher: dispatcher,
		opts:       opts,
		only:       only,
		logger:     logger,
		locks:      make(map[string]*tileLock),
	}, nil
}

// OutputDir returns the absolute output root.
func (d *Driver) OutputDir() string {
	return d.opts.OutputDir
}

// Run processes features in collection order, running up to
// Options.Concurrency tiles at once. It always returns a report; tile failures
// never abort the run.
func (d *Driver) Run(ctx context.Context, features []geo.Feature) *Report {
	report := newReport(d.run(ctx, features, false))
	d.logSummary(report)
	return report
}

// Render is a dry run that writes every rendered configuration to w as a YAML
// stream, in collection order, instead of creating tile directories. Tiles go
// through the same steps as Run up to and including the structured parse.
func (d *Driver) Render(ctx context.Context, features []geo.Feature, w io.Writer) (*Report, error) {
	report := newReport(d.run(ctx, features, true))
	d.logSummary(report)
	for _, t := range report.Tiles {
		if t.Status != StatusRendered {
			continue
		}
		if _, err := fmt.Fprintf(w, "---\n# %s\n%s", t.ConfigPath, t.rendered); err != nil {
			return report, fmt.Errorf("write configuration of tile %s: %w", t.Name, err)
		}
	}
	return report, nil
}

func (d *Driver) run(ctx context.Context, features []geo.Feature, stream bool) []TileResult {
	results := make([]TileResult, len(features))

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for i, feat := range features {
		if !d.opts.Filter.Allows(feat) {
			results[i] = TileResult{Index: feat.Index, Name: geo.PropertyName(feat.Properties), Status: StatusSkipped}
			d.logger.Debug("feature filtered out", "index", feat.Index)
			continue
		}
		g.Go(func() error {
			results[i] = d.buildTile(ctx, feat, stream)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (d *Driver) logSummary(report *Report) {
	d.logger.Info("run complete",
		"total", report.Total,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"rendered", report.Rendered,
	)
}

// BuildTile runs the full pipeline for one feature and reports the outcome.
func (d *Driver) BuildTile(ctx context.Context, feat geo.Feature) TileResult {
	return d.buildTile(ctx, feat, false)
}

// buildTile runs the pipeline for one feature. When stream is set the
// configuration is kept in the result instead of being written to disk and
// nothing is dispatched.
func (d *Driver) buildTile(ctx context.Context, feat geo.Feature, stream bool) TileResult {
	started := time.Now()
	res := TileResult{Index: feat.Index, Name: geo.PropertyName(feat.Properties)}

	fail := func(step Step, err error) TileResult {
		tileErr := &TileError{Index: feat.Index, Name: res.Name, Step: step, Err: err}
		res.Status = StatusFailed
		res.Error = tileErr.Error()
		res.err = tileErr
		res.finish(started)
		d.logger.Error("tile failed", "tile", tileErr.label(), "step", string(step), "error", err)
		return res
	}

	if d.only != nil && res.Name != "" {
		if early, err := geo.SanitizeName(res.Name); err == nil && !d.selected(early) {
			res.Status = StatusSkipped
			return res
		}
	}
	if err := ctx.Err(); err != nil {
		return fail(StepCanceled, err)
	}

	region, err := geo.BoundsOf(feat.Geometry)
	if err != nil {
		return fail(StepBounds, err)
	}
	res.Region = &region

	name, err := geo.TileName(feat.Properties, region)
	if err != nil {
		return fail(StepName, err)
	}
	res.Name = name
	if !d.selected(name) {
		res.Status = StatusSkipped
		return res
	}

	var dir string
	if !stream {
		unlock := d.lockTile(name, feat.Index)
		defer unlock()

		d.logger.Info("starting tile", "tile", name, "region", region.String())

		dir = filepath.Join(d.opts.OutputDir, name)
		res.Dir = dir
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail(StepMkdir, fmt.Errorf("create tile directory %q: %w", dir, err))
		}
	}

	rendered, err := d.tmpl.Render(config.Values{Name: name, Region: region})
	if err != nil {
		return fail(StepRender, err)
	}
	configFile := config.FileName(d.opts.ConfigPrefix, name)

	if stream {
		res.ConfigPath = configFile
		if _, err := recipe.Parse(rendered); err != nil {
			return fail(StepParse, err)
		}
		res.rendered = rendered
		res.Status = StatusRendered
		res.finish(started)
		return res
	}

	configPath := filepath.Join(dir, configFile)
	res.ConfigPath = configPath
	if err := os.WriteFile(configPath, rendered, 0o644); err != nil {
		return fail(StepWrite, fmt.Errorf("write tile configuration %q: %w", configPath, err))
	}
	d.logger.Info("saved configuration", "tile", name, "path", configPath)

	cfg, err := recipe.Parse(rendered)
	if err != nil {
		return fail(StepParse, err)
	}

	if d.opts.RenderOnly {
		res.Status = StatusRendered
		res.finish(started)
		return res
	}

	runCtx := ctx
	if d.opts.TileTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.opts.TileTimeout)
		defer cancel()
	}

	strategy, err := d.dispatcher.Dispatch(runCtx, dispatch.Job{
		Tile:       name,
		Dir:        dir,
		ConfigPath: configFile,
		Config:     cfg,
	})
	if err != nil {
		return fail(StepDispatch, err)
	}
	res.Strategy = strategy
	res.Status = StatusSucceeded
	res.finish(started)

	d.logger.Info("finished tile", "tile", name, "strategy", strategy, "elapsed", res.Duration.Round(time.Millisecond))
	return res
}

// lockTile blocks until no other feature with the same tile name is being
// built and returns the matching unlock function.
func (d *Driver) lockTile(name string, index int) func() {
	d.locksMu.Lock()
	l, ok := d.locks[name]
	if !ok {
		l = &tileLock{owner: index}
		d.locks[name] = l
	}
	d.locksMu.Unlock()

	if ok && l.owner != index {
		d.logger.Warn("tile name shared by several features, later ones overwrite earlier ones",
			"tile", name, "index", index, "first_index", l.owner)
	}
	l.mu.Lock()
	return l.mu.Unlock
}

func (d *Driver) selected(name string) bool {
	if d.only == nil {
		return true
	}
	_, ok := d.only[name]
	return ok
}
