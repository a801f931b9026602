package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/electripro/electripro/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "electripro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, remote.DriverNone, cfg.Remote.Driver)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.Interval)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Serve.Port)
	assert.Equal(t, 5*time.Minute, cfg.Serve.ReloadInterval)
	assert.Equal(t, "electripro_", cfg.Remote.DynamoDB.TablePrefix)
	assert.Equal(t, filepath.Join(cfg.DataDir, "cache.db"), cfg.CachePath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "inbox"), cfg.InboxDir())
	assert.False(t, cfg.S3Configured())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/electripro
remote:
  driver: postgres
  dsn: postgres://localhost/electripro
  timeout: 5s
backup:
  s3:
    bucket: backups
    endpoint: http://localhost:9000
    path_style: true
serve:
  port: 9090
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/electripro/cache.db", cfg.CachePath())
	assert.Equal(t, "/srv/electripro/backups", cfg.BackupDir())
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, 9090, cfg.Serve.Port)

	rc := cfg.RemoteStoreConfig([]string{"obras"})
	assert.Equal(t, remote.DriverPostgres, rc.Driver)
	assert.Equal(t, "postgres://localhost/electripro", rc.DSN)
	assert.Equal(t, []string{"obras"}, rc.Tables)

	require.True(t, cfg.S3Configured())
	s3 := cfg.S3TargetConfig()
	assert.Equal(t, "backups", s3.Bucket)
	assert.True(t, s3.PathStyle)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\nserve:\n  port: 9090\n")
	t.Setenv("ELECTRIPRO_LOG_LEVEL", "debug")
	t.Setenv("ELECTRIPRO_REMOTE_DRIVER", "dynamodb")
	t.Setenv("ELECTRIPRO_REMOTE_DYNAMODB_ENDPOINT", "http://localhost:8000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Serve.Port)
	assert.Equal(t, "http://localhost:8000", cfg.RemoteStoreConfig(nil).Dynamo.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "remote:\n  driver: mongo\n"))
	assert.ErrorContains(t, err, "unknown remote.driver")

	_, err = Load(writeConfig(t, "remote:\n  driver: libsql\n"))
	assert.ErrorContains(t, err, "remote.dsn is required")

	_, err = Load(writeConfig(t, "serve:\n  port: 70000\n"))
	assert.ErrorContains(t, err, "out of range")
}
