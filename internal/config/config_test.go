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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "data/procuro.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 5, cfg.OpenAI.MaxPages)
	assert.Equal(t, 2*time.Minute, cfg.OpenAI.ExtractionTimeout)
	assert.Equal(t, "strict", cfg.Domain.VATPolicy)
	assert.Equal(t, []string{"pcs", "kg", "m", "l", "h", "set"}, cfg.Domain.Units)
	assert.False(t, cfg.Lark.Enabled)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: dynamodb
  dynamodb:
    table: requests
    endpoint: http://localhost:8000
openai:
  use_vision: true
  max_pages: 3
domain:
  vat_policy: advisory
  units: [pcs, box]
`)
	t.Setenv("PROCURO_SERVER_PORT", "9191")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, DriverDynamoDB, cfg.Database.Driver)
	assert.Equal(t, "requests", cfg.Database.DynamoDB.Table)
	assert.Equal(t, "http://localhost:8000", cfg.Database.DynamoDB.Endpoint)
	assert.True(t, cfg.OpenAI.UseVision)
	assert.Equal(t, 3, cfg.OpenAI.MaxPages)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.True(t, cfg.ExtractionEnabled())
	assert.Equal(t, "advisory", cfg.Domain.VATPolicy)
	assert.Equal(t, []string{"pcs", "box"}, cfg.Domain.Units)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: DriverSQLite, SQLite: SQLiteConfig{Path: "x.db"}},
			OpenAI:   OpenAIConfig{MaxPages: 1},
			Storage:  StorageConfig{Dir: "docs"},
			Domain:   DomainConfig{Units: []string{"pcs"}, VATPolicy: "strict"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"memory driver", func(c *Config) { c.Database.Driver = DriverMemory }, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "database.driver"},
		{"dynamodb without table", func(c *Config) { c.Database.Driver = DriverDynamoDB }, "database.dynamodb.table"},
		{"dynamodb half credentials", func(c *Config) {
			c.Database.Driver = DriverDynamoDB
			c.Database.DynamoDB.Table = "t"
			c.Database.DynamoDB.AccessKeyID = "AKIA"
		}, "set together"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"lark without credentials", func(c *Config) { c.Lark.Enabled = true }, "lark.app_id"},
		{"lark without receiver", func(c *Config) {
			c.Lark = LarkConfig{Enabled: true, AppID: "cli_x", AppSecret: "s"}
		}, "lark.receive_id"},
		{"bad vat policy", func(c *Config) { c.Domain.VATPolicy = "lenient" }, "domain.vat_policy"},
		{"no units", func(c *Config) { c.Domain.Units = nil }, "domain.units"},
		{"no storage", func(c *Config) { c.Storage.Dir = "" }, "storage.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
