package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gatherly-backend/internal/config"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TABLE_NAME", "gatherly-test")
	t.Setenv("PORT", "9090")
	t.Setenv("CAS_MAX_ATTEMPTS", "6")
	t.Setenv("REQUEST_TIMEOUT", "2s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.Production, cfg.Environment)
	assert.Equal(t, "gatherly-test", cfg.TableName)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 6, cfg.CASMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TABLE_NAME", "gatherly-test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.Development, cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4, cfg.CASMaxAttempts)
	assert.Equal(t, 4, cfg.SyncParallelism)
	assert.True(t, cfg.Features.EnableMetrics)
}

func TestLoadRequiresTableName(t *testing.T) {
	t.Setenv("TABLE_NAME", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TABLE_NAME")
}

func TestYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cas_max_attempts: 8\nsync_parallelism: 16\n"), 0o644))

	t.Setenv("TABLE_NAME", "gatherly-test")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.CASMaxAttempts)
	assert.Equal(t, 16, cfg.SyncParallelism)
	assert.Equal(t, "gatherly-test", cfg.TableName, "environment values survive the overlay")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := &config.Config{TableName: "t", Port: 8080, CASMaxAttempts: 0}
	assert.Error(t, cfg.Validate())

	cfg = &config.Config{TableName: "t", Port: 0, CASMaxAttempts: 4}
	assert.Error(t, cfg.Validate())
}

func TestWatcherReloadSwapsConfigAndNotifies(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cas_max_attempts: 4\n"), 0o644))

	t.Setenv("ENVIRONMENT", "production") // no file watching, reload on demand
	t.Setenv("TABLE_NAME", "gatherly-test")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	w, err := config.NewWatcher(cfg, path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	var got *config.Config
	w.OnChange(func(c *config.Config) { got = c })

	require.NoError(t, os.WriteFile(path, []byte("cas_max_attempts: 7\nsync_parallelism: 9\n"), 0o644))
	w.Reload()

	require.NotNil(t, got)
	assert.Equal(t, 7, got.CASMaxAttempts)
	assert.Equal(t, 9, got.SyncParallelism)
	assert.Equal(t, 7, w.Current().CASMaxAttempts)
}

func TestWatcherReloadRejectsInvalidOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cas_max_attempts: 4\n"), 0o644))

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("TABLE_NAME", "gatherly-test")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	w, err := config.NewWatcher(cfg, path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	notified := false
	w.OnChange(func(*config.Config) { notified = true })

	require.NoError(t, os.WriteFile(path, []byte("cas_max_attempts: 0\n"), 0o644))
	w.Reload()

	assert.False(t, notified, "invalid overlay must not reach callbacks")
	assert.Equal(t, 4, w.Current().CASMaxAttempts, "active config keeps the last valid values")
}
