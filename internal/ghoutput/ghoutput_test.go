package ghoutput

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFileAppendsSorted(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(path, []byte("existing=1\n"), 0o600))

	err := WriteFile(path, map[string]string{
		"tiles_failed": "1",
		"tiles_total":  "3",
		"":             "ignored",
		"note":         "a\nb 100%",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "existing=1\nnote=a%0Ab 100%25\ntiles_failed=1\ntiles_total=3\n", string(data))
}

func TestWriteWithoutEnvIsNoop(t *testing.T) {
	t.Setenv(EnvVar, "")
	require.NoError(t, Write(map[string]string{"a": "b"}))
	require.NoError(t, WriteFile("", map[string]string{"a": "b"}))
}
