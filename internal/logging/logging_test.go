package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"debug+2": slog.LevelDebug + 2,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, "input %q", in)
		require.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseLevel("bogus")
	require.ErrorContains(t, err, "unknown log level")
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "tile", "T1")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "shown")
	require.Contains(t, out, "tile=T1")
}

func TestWriterSplitsLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := NewWriter(logger, "fetchez")

	_, err := w.Write([]byte("first\nsec"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ond\r\n\nthird"))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(buf.String(), "msg=fetchez"))

	w.Flush()
	out := buf.String()
	require.Equal(t, 3, strings.Count(out, "msg=fetchez"))
	require.Contains(t, out, "line=first")
	require.Contains(t, out, "line=second")
	require.Contains(t, out, "line=third")
}
