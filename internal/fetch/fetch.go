// Package fetch runs the external geospatial data fetching tool against a
// persisted tile configuration.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ciresdem/crmtiles/internal/env"
	"github.com/ciresdem/crmtiles/internal/logging"
)

// ErrToolNotFound is returned when the configured tool is not on PATH.
var ErrToolNotFound = errors.New("fetch tool not found")

// Client wraps execution of the fetch tool with fixed extra arguments and environment.
type Client struct {
	// Tool is the executable name or path.
	Tool string
	// Args are passed before the configuration path.
	Args []string
	// Env is the complete environment of the child process; nil inherits the current one.
	Env env.Vars
	// Logger receives the tool's stdout and stderr line by line.
	Logger *slog.Logger
}

// NewClient constructs a client for tool. A relative tool path such as
// ./bin/fetchez is made absolute here, because Run starts the tool from the
// tile directory.
func NewClient(tool string, args []string, vars env.Vars, logger *slog.Logger) *Client {
	return &Client{
		Tool:   resolveTool(tool),
		Args:   args,
		Env:    vars,
		Logger: logger,
	}
}

// LookPath resolves the tool on PATH.
func (c *Client) LookPath() (string, error) {
	if strings.TrimSpace(c.Tool) == "" {
		return "", fmt.Errorf("%w: tool name is empty", ErrToolNotFound)
	}
	path, err := exec.LookPath(c.Tool)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrToolNotFound, err)
	}
	return path, nil
}

// Run executes "<tool> [args...] <configPath>" with dir as the working
// directory and returns an error on a non-zero exit status.
func (c *Client) Run(ctx context.Context, dir, configPath string) error {
	args := make([]string, 0, len(c.Args)+1)
	args = append(args, c.Args...)
	args = append(args, configPath)

	cmd := exec.CommandContext(ctx, c.Tool, args...)
	cmd.Dir = dir
	if c.Env != nil {
		cmd.Env = c.Env.Environ()
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout := logging.NewWriter(logger.With("stream", "stdout"), c.Tool)
	stderr := logging.NewWriter(logger.With("stream", "stderr"), c.Tool)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("running fetch tool", "tool", c.Tool, "args", args, "dir", dir)
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s %v: %w: %v", c.Tool, args, ErrToolNotFound, err)
		}
		return fmt.Errorf("%s %v failed: %w", c.Tool, args, err)
	}
	return nil
}

// resolveTool anchors a relative path to the current working directory. Bare
// names are left for the PATH lookup.
func resolveTool(tool string) string {
	if tool == "" || filepath.IsAbs(tool) || !strings.ContainsAny(tool, "/"+string(filepath.Separator)) {
		return tool
	}
	abs, err := filepath.Abs(tool)
	if err != nil {
		return tool
	}
	return abs
}
