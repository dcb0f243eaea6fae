package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
database:
  host: localhost
  user: gomonitor
  dbname: gomonitor
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8060, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)

	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.False(t, cfg.Redis.Enabled)

	assert.Equal(t, 512, cfg.Health.MemoryLimitMB)
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")

	cfg, err := Load(writeConfig(t, `
database:
  host: localhost
  user: gomonitor
  password: ${TEST_DB_PASSWORD}
  dbname: gomonitor
`))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
debug: true
log_level: debug
server:
  host: 127.0.0.1
  port: 9000
database:
  host: db.internal
  port: 5433
  user: svc
  dbname: records
  sslmode: require
redis:
  enabled: true
  address: redis.internal:6379
health:
  memory_limit_mb: 1024
`))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 1024, cfg.Health.MemoryLimitMB)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing database host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing database user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"missing database name", func(c *Config) { c.Database.DBName = "" }, "database.dbname"},
		{"negative server port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"zero memory limit", func(c *Config) { c.Health.MemoryLimitMB = -5 }, "memory_limit_mb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Database: DatabaseConfig{Host: "localhost", User: "u", DBName: "d"},
			}
			cfg.setDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host: "db.internal", Port: 5433, User: "svc",
		Password: "pw", DBName: "records", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=records sslmode=require",
		cfg.DSN(),
	)
}
