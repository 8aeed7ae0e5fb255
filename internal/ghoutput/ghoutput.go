// Package ghoutput publishes run counters as GitHub Actions step outputs.
package ghoutput

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvVar names the file GitHub Actions reads step outputs from.
const EnvVar = "GITHUB_OUTPUT"

// Write appends values to the file named by GITHUB_OUTPUT. It is a no-op
// outside of GitHub Actions.
func Write(values map[string]string) error {
	return WriteFile(strings.TrimSpace(os.Getenv(EnvVar)), values)
}

// WriteFile appends values as sorted key=value lines to path. An empty path or
// empty values do nothing.
func WriteFile(path string, values map[string]string) error {
	if path == "" || len(values) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open step output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, escape(values[key])); err != nil {
			return fmt.Errorf("write step output %q: %w", key, err)
		}
	}
	return nil
}

func escape(value string) string {
	return strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A").Replace(value)
}
