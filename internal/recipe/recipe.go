// Package recipe holds the structured form of a rendered tile configuration and
// the registry of in-process runners able to execute it.
package recipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a rendered configuration is not a YAML mapping.
var ErrNotMapping = errors.New("recipe configuration must be a YAML mapping")

// Config is a parsed tile configuration, keyed by top-level recipe section.
type Config map[string]any

// Parse decodes rendered configuration text. The document must be a single
// YAML mapping.
func Parse(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var node yaml.Node
	if err := dec.Decode(&node); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: document is empty", ErrNotMapping)
		}
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	if len(node.Content) == 0 || node.Content[0].Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode recipe: %w", err)
	}
	return cfg, nil
}

// Runner executes a parsed recipe in-process. Run blocks until the tile is built.
type Runner interface {
	Run(ctx context.Context, cfg Config, workDir string) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cfg Config, workDir string) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, cfg Config, workDir string) error {
	return f(ctx, cfg, workDir)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Runner)
)

// Register makes a runner available under name. Registering the same name twice panics.
func Register(name string, r Runner) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if r == nil {
		panic("recipe: Register runner is nil")
	}
	if _, dup := registry[name]; dup {
		panic("recipe: Register called twice for runner " + name)
	}
	registry[name] = r
}

// Unregister removes a runner. It is intended for tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Lookup returns the runner registered under name. An empty name selects the
// only registered runner, if exactly one exists.
func Lookup(name string) (Runner, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if name != "" {
		r, ok := registry[name]
		return r, ok
	}
	if len(registry) != 1 {
		return nil, false
	}
	for _, r := range registry {
		return r, true
	}
	return nil, false
}

// Runners lists the registered runner names in sorted order.
func Runners() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
