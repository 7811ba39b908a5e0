package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Iterations)
	assert.False(t, cfg.GetBatch())
	assert.Equal(t, "resources/", cfg.ResourceBase)
	assert.Equal(t, 60, cfg.FPS)
	assert.Equal(t, 50*time.Millisecond, cfg.GetPollInterval())
	assert.True(t, cfg.HasReporter("console"))
	assert.True(t, cfg.IsDefault())
}

func TestGettersWithNilPointers(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.GetBatch())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.Equal(t, 50*time.Millisecond, cfg.GetPollInterval())
}

func TestFindAndLoadConfig(t *testing.T) {
	t.Run("no file returns defaults", func(t *testing.T) {
		cfg, err := FindAndLoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.True(t, cfg.IsDefault())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"iterations": 5, "batch": true, "fps": 120, "historyDB": "runs.db"}`
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".hitbench.config.json"), []byte(content), 0644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Iterations)
		assert.True(t, cfg.GetBatch())
		assert.Equal(t, 120, cfg.FPS)
		assert.Equal(t, "runs.db", cfg.HistoryDB)
		assert.Equal(t, "resources/", cfg.ResourceBase)
		assert.False(t, cfg.IsDefault())
	})

	t.Run("rc file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".hitbenchrc"), []byte(`{"noColor": true}`), 0644))

		cfg, err := FindAndLoadConfig(dir)
		require.NoError(t, err)
		assert.True(t, cfg.GetNoColor())
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "hitbench.config.json"), []byte(`{`), 0644))

		_, err := FindAndLoadConfig(dir)
		assert.Error(t, err)
	})

	t.Run("negative values rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "hitbench.config.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"iterations": -1}`), 0644))

		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "iterations")
	})
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Iterations: 3,
		Batch:      BoolPtr(true),
		Reporters:  []string{"json"},
	}

	merged := base.Merge(override)
	assert.Equal(t, 3, merged.Iterations)
	assert.True(t, merged.GetBatch())
	assert.Equal(t, 60, merged.FPS)
	assert.Equal(t, []string{"json"}, merged.Reporters)
	assert.False(t, merged.GetVerbose())

	// Base is untouched
	assert.Equal(t, 1, base.Iterations)
	assert.False(t, base.GetBatch())

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hitbench.config.json")
	cfg := DefaultConfig().Merge(&Config{Iterations: 7, Verbose: BoolPtr(true)})
	require.NoError(t, cfg.SaveConfig(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Iterations)
	assert.True(t, loaded.GetVerbose())
}
