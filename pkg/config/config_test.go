package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dreamer0iQ/0x40-cloud/internal/bytesize"
	"github.com/Dreamer0iQ/0x40-cloud/pkg/vfs/store"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)

	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, store.DatabaseTypeSQLite, cfg.Database.Type)

	assert.Equal(t, BackendFS, cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.Path)

	assert.Equal(t, 2*bytesize.GiB, cfg.Upload.MaxFileSize)
	assert.Equal(t, 10*bytesize.GiB, cfg.Quota.DefaultLimit)

	assert.True(t, cfg.PreviewCache.IsEnabled())
	assert.Equal(t, time.Hour, cfg.PreviewCache.Cache.TTL)

	assert.Equal(t, "0x40-cloud", cfg.Auth.Issuer)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)

	assert.Equal(t, 8080, cfg.API.Port)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
logging:
  level: debug
  format: json
database:
  type: sqlite
  sqlite:
    path: /tmp/test-catalog.db
storage:
  backend: fs
  path: /tmp/test-blobs
upload:
  max_file_size: 100Mi
quota:
  default_limit: 1Gi
auth:
  secret: test-secret-key-that-is-at-least-32-characters-long
api:
  port: 9999
  request_timeout: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "/tmp/test-catalog.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "/tmp/test-blobs", cfg.Storage.Path)
	assert.Equal(t, 100*bytesize.MiB, cfg.Upload.MaxFileSize)
	assert.Equal(t, 1*bytesize.GiB, cfg.Quota.DefaultLimit)
	assert.Equal(t, 9999, cfg.API.Port)
	assert.Equal(t, 45*time.Second, cfg.API.RequestTimeout)

	// Unspecified values fall back to defaults.
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "0x40-cloud", cfg.Auth.Issuer)
}

func TestLoadRejectsShortSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
auth:
  secret: too-short
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret")
}

func TestLoadRejectsS3WithoutBucket(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
storage:
  backend: s3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.API.Port = 9191
	cfg.Database.SQLite.Path = "/tmp/roundtrip.db"

	require.NoError(t, SaveConfig(cfg, path))

	// File has restricted permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, loaded.API.Port)
	assert.Equal(t, "/tmp/roundtrip.db", loaded.Database.SQLite.Path)
}

func TestMustLoadMissingExplicitFile(t *testing.T) {
	_, err := MustLoad(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cloud40 init")
}
