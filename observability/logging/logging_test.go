package logging

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWritesRotatingFileWithRedaction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jackpotd.log")
	logger := Setup("jackpotd", "test", Options{File: path, Level: slog.LevelDebug})
	logger.Info("admin login", "secret", "hunter2", "round", 3)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var line map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
	require.Equal(t, "admin login", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "jackpotd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["secret"])
	require.EqualValues(t, 3, line["round"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
