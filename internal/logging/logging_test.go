package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modstage/modstage/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.LevelDebug, logging.ParseLevel("debug"))
	assert.Equal(t, logging.LevelWarn, logging.ParseLevel("warn"))
	assert.Equal(t, logging.LevelError, logging.ParseLevel("error"))
	assert.Equal(t, logging.LevelInfo, logging.ParseLevel("bogus"))
}

func TestLoggerWritesRotatingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lmm.log")

	lg := logging.New(logging.Config{Level: logging.LevelInfo, FilePath: path, Color: "never"})
	lg.Info("deploy finished", logging.F("deployer", "main"), logging.F("mods", 3))
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "deploy finished")
	assert.Contains(t, string(data), "deployer=main")
	assert.Contains(t, string(data), "mods=3")
}

func TestLoggerFiltersBelowConfiguredLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lmm.log")

	lg := logging.New(logging.Config{Level: logging.LevelWarn, FilePath: path, Color: "never"})
	lg.Debug("should not appear")
	lg.Info("should not appear either")
	lg.Error("this one appears")
	require.NoError(t, lg.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
	assert.Contains(t, string(data), "this one appears")
}

func TestNewOperationIDIsUnique(t *testing.T) {
	a := logging.NewOperationID()
	b := logging.NewOperationID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestCloseWithoutFileIsNoop(t *testing.T) {
	lg := logging.New(logging.Config{Level: logging.LevelInfo, Color: "never"})
	assert.NoError(t, lg.Close())
}
