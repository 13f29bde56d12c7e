package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "levels")

	logger.Info("hidden")
	logger.Warn("shown", "lvl", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "levels")
	assert.Contains(t, out, "lvl=3")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.Equal(t, log.FatalLevel, logger.GetLevel())
	logger.Error("dropped")
}

func TestNewUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "loud", "")
	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.log")
	logger, closer, err := File(path, "info", "")
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
