package dispatch

import (
	"context"
	"fmt"

	"github.com/ciresdem/crmtiles/internal/fetch"
	"github.com/ciresdem/crmtiles/internal/recipe"
)

// RecipeStrategy runs the parsed configuration through an in-process runner.
type RecipeStrategy struct {
	runner recipe.Runner
}

// NewRecipeStrategy wraps runner. A nil runner yields an unavailable strategy.
func NewRecipeStrategy(runner recipe.Runner) *RecipeStrategy {
	return &RecipeStrategy{runner: runner}
}

// Name implements Strategy.
func (s *RecipeStrategy) Name() string { return "recipe" }

// Available implements Strategy.
func (s *RecipeStrategy) Available() bool { return s.runner != nil }

// Build implements Strategy. A panicking runner is reported as an error.
func (s *RecipeStrategy) Build(ctx context.Context, job Job) (err error) {
	if s.runner == nil {
		return ErrNoStrategy
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recipe runner panicked: %v", r)
		}
	}()
	return s.runner.Run(ctx, job.Config, job.Dir)
}

// CommandStrategy runs the external fetch tool on the persisted configuration.
type CommandStrategy struct {
	client *fetch.Client
}

// NewCommandStrategy wraps client.
func NewCommandStrategy(client *fetch.Client) *CommandStrategy {
	return &CommandStrategy{client: client}
}

// Name implements Strategy.
func (s *CommandStrategy) Name() string { return "command" }

// Available implements Strategy. The command is always attempted; a missing
// tool surfaces as a Build error.
func (s *CommandStrategy) Available() bool { return s.client != nil }

// Build implements Strategy.
func (s *CommandStrategy) Build(ctx context.Context, job Job) error {
	return s.client.Run(ctx, job.Dir, job.ConfigPath)
}
