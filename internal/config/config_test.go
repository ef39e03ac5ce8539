package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/a.db", cfg.Database.Path)
	assert.Zero(t, cfg.Auth.BcryptCost)
	assert.False(t, cfg.Auth.EmailCaseSensitive)
	assert.True(t, cfg.Auth.EqualizeLoginTiming)
	assert.Equal(t, "session_id", cfg.Auth.SessionCookie)
	assert.Contains(t, cfg.Auth.ExcludedPaths, "/sessions")
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("AUTH_DATABASE_DRIVER", "memory")
	t.Setenv("AUTH_AUTH_BCRYPT_COST", "4")
	t.Setenv("AUTH_AUTH_EMAIL_CASE_SENSITIVE", "true")
	t.Setenv("AUTH_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.True(t, cfg.Auth.EmailCaseSensitive)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "auth.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  url: postgres://auth@localhost:5432/auth
auth:
  session_cookie: sid
  excluded_paths:
    - /
    - /public/*
metrics:
  enabled: false
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://auth@localhost:5432/auth", cfg.Database.URL)
	assert.Equal(t, "sid", cfg.Auth.SessionCookie)
	assert.Equal(t, []string{"/", "/public/*"}, cfg.Auth.ExcludedPaths)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(`
# local overrides
AUTH_DATABASE_DRIVER="memory"
AUTH_LOG_LEVEL=warn
=ignored
`), 0o600))
	t.Setenv("AUTH_LOG_LEVEL", "error")
	// Registered so the value loaded from .env is unset after the test.
	t.Setenv("AUTH_DATABASE_DRIVER", "")
	require.NoError(t, os.Unsetenv("AUTH_DATABASE_DRIVER"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "error", cfg.Log.Level, "process env wins over .env")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Database.Driver = DriverSQLite
		c.Database.Path = "a.db"
		c.Auth.SessionCookie = "session_id"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid sqlite", func(*Config) {}, ""},
		{"memory needs nothing", func(c *Config) { c.Database.Driver = DriverMemory; c.Database.Path = "" }, ""},
		{"sqlite without path", func(c *Config) { c.Database.Path = " " }, "database.path"},
		{"postgres without url", func(c *Config) { c.Database.Driver = DriverPostgres }, "database.url"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database.driver"},
		{"empty cookie name", func(c *Config) { c.Auth.SessionCookie = "" }, "session_cookie"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
