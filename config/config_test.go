package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	os.Unsetenv("MODEL_BACKEND")
	os.Unsetenv("STORE_BACKEND")
	os.Unsetenv("NOTIFY_BACKEND")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModelBackendONNX, cfg.Model.Backend)
	assert.Equal(t, StoreBackendDynamoDB, cfg.Store.Backend)
	assert.Equal(t, NotifyBackendNone, cfg.Notify.Backend)
	assert.Equal(t, "models/distilbert-sentiment/", cfg.Model.Key)
	assert.False(t, cfg.Cache.Enabled())
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
log_level: debug
model:
  backend: vader
store:
  backend: sqlite
  sqlite_path: from-yaml.db
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "from-env.db")
	os.Unsetenv("MODEL_BACKEND")
	os.Unsetenv("STORE_BACKEND")
	os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModelBackendVader, cfg.Model.Backend)
	assert.Equal(t, StoreBackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "from-env.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Model:  ModelConfig{Backend: ModelBackendONNX},
			Store:  StoreConfig{Backend: StoreBackendDynamoDB},
			Notify: NotifyConfig{Backend: NotifyBackendNone},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown model backend", mutate: func(c *Config) { c.Model.Backend = "torch" }, wantErr: true},
		{name: "unknown store backend", mutate: func(c *Config) { c.Store.Backend = "mongo" }, wantErr: true},
		{name: "sns without topic", mutate: func(c *Config) { c.Notify.Backend = NotifyBackendSNS }, wantErr: true},
		{name: "sns with topic", mutate: func(c *Config) {
			c.Notify.Backend = NotifyBackendSNS
			c.Notify.SNSTopicARN = "arn:aws:sns:us-west-2:123456789012:batches"
		}},
		{name: "cache with zero ttl", mutate: func(c *Config) {
			c.Cache.Address = "localhost:6379"
			c.Cache.TTLSeconds = 0
		}, wantErr: true},
		{name: "cache with ttl", mutate: func(c *Config) {
			c.Cache.Address = "localhost:6379"
			c.Cache.TTLSeconds = 60
		}},
		{name: "zero ttl without cache", mutate: func(c *Config) { c.Cache.TTLSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
