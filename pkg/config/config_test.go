package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, StateDriverFile, cfg.State.Driver)
	assert.Equal(t, int64(5*1024*1024), cfg.Import.MaxFileSizeBytes)
	assert.Equal(t, 30, cfg.Import.HeaderScanRows)
	assert.Equal(t, "צוות", cfg.Import.DefaultTeacher)
	assert.Equal(t, 15*time.Second, cfg.Sync.Timeout)
	assert.False(t, cfg.Sync.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STATE_DRIVER", "Redis")
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("SYNC_URL", "https://example.test/exec")
	t.Setenv("SYNC_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, ,https://b.test")
	t.Setenv("IMPORT_MAX_FILE_SIZE", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StateDriverRedis, cfg.State.Driver)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, "https://example.test/exec", cfg.Sync.URL)
	assert.Equal(t, 15*time.Second, cfg.Sync.Timeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, int64(5*1024*1024), cfg.Import.MaxFileSizeBytes)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
