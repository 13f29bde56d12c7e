package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "levels_save.json", cfg.SavePath)
	assert.Empty(t, cfg.HistoryPath)
	assert.Equal(t, "levels.log", cfg.LogFile)
	assert.Equal(t, ":8080", cfg.RelayAddr)
	assert.Equal(t, ":2222", cfg.SSHAddr)
	assert.Equal(t, 8, cfg.JournalSize)
	assert.Equal(t, 100*time.Millisecond, cfg.PublishEvery)
	assert.NotZero(t, cfg.Seed)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LEVELS_SAVE_PATH", "/tmp/p.json")
	t.Setenv("LEVELS_SEED", "42")
	t.Setenv("LEVELS_JOURNAL_SIZE", "-1")
	t.Setenv("LEVELS_RELAY_URL", "ws://localhost:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/p.json", cfg.SavePath)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 8, cfg.JournalSize)
	assert.Equal(t, "ws://localhost:8080", cfg.RelayURL)
}

func TestLoadError(t *testing.T) {
	t.Setenv("LEVELS_SEED", "soon")

	_, err := Load()
	assert.ErrorContains(t, err, "parse env:")
}
