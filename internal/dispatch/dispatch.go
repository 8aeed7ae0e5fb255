// Package dispatch builds a tile through an ordered chain of execution
// strategies: the first available strategy that succeeds wins.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ciresdem/crmtiles/internal/recipe"
)

// ErrNoStrategy is returned when no strategy in the chain was available.
var ErrNoStrategy = errors.New("no execution strategy available")

// Job describes one tile build request.
type Job struct {
	// Tile is the tile name.
	Tile string
	// Dir is the tile working directory.
	Dir string
	// ConfigPath is the persisted configuration file, relative to Dir.
	ConfigPath string
	// Config is the parsed configuration.
	Config recipe.Config
}

// Strategy is one way of building a tile.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// Available reports whether the strategy can run in this process.
	Available() bool
	// Build produces the tile and blocks until it is done.
	Build(ctx context.Context, job Job) error
}

// Dispatcher tries its strategies in order.
type Dispatcher struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New constructs a Dispatcher over strategies, tried in the given order.
func New(logger *slog.Logger, strategies ...Strategy) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{strategies: strategies, logger: logger}
}

// Strategies returns the configured chain.
func (d *Dispatcher) Strategies() []Strategy {
	return d.strategies
}

// Dispatch runs the chain for job and returns the name of the strategy that
// built the tile. A failing strategy hands over to the next one; when every
// strategy fails the last error is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (string, error) {
	var lastErr error
	for _, s := range d.strategies {
		if !s.Available() {
			d.logger.Debug("strategy unavailable, skipping", "tile", job.Tile, "strategy", s.Name())
			continue
		}

		err := s.Build(ctx, job)
		if err == nil {
			return s.Name(), nil
		}
		lastErr = fmt.Errorf("%s: %w", s.Name(), err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", lastErr
		}
		d.logger.Warn("strategy failed, trying next", "tile", job.Tile, "strategy", s.Name(), "error", err)
	}
	if lastErr == nil {
		return "", ErrNoStrategy
	}
	return "", lastErr
}
