package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	ceiling, err := cfg.Ceiling()
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(5000).Equal(ceiling))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errorString string
	}{
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid data backend",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			errorString: "invalid data backend 'postgres'",
		},
		{
			name:        "file backend missing path",
			mutate:      func(c *Config) { c.DataBackend = BackendFile; c.CSVPath = "" },
			errorString: "CSV_PATH cannot be empty",
		},
		{
			name:        "sheets backend missing credentials",
			mutate:      func(c *Config) { c.DataBackend = BackendSheets; c.GoogleSpreadsheetID = "abc" },
			errorString: "GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE",
		},
		{
			name:        "multi-user on file backend",
			mutate:      func(c *Config) { c.DataBackend = BackendFile; c.MultiUser = true },
			errorString: "multi-user mode needs the sqlite or memory backend",
		},
		{
			name:        "negative ceiling",
			mutate:      func(c *Config) { c.DefaultCeiling = "-1" },
			errorString: "invalid default ceiling '-1'",
		},
		{
			name:        "unknown timezone",
			mutate:      func(c *Config) { c.Timezone = "Mars/Olympus" },
			errorString: "invalid timezone 'Mars/Olympus'",
		},
		{
			name:        "bad amqp scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost" },
			errorString: "invalid AMQP URL scheme 'http'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := Default()
	cfg.Port = "0"
	cfg.DataBackend = "nope"
	cfg.LogLevel = "shout"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port 0")
	assert.Contains(t, err.Error(), "invalid data backend 'nope'")
	assert.Contains(t, err.Error(), "invalid log level 'shout'")
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9090"
data_backend = "file"
csv_path = "/tmp/hp.csv"
default_ceiling = "1200.50"
timezone = "Asia/Kolkata"
`), 0o644))

	cfg, err := LoadFile(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, BackendFile, cfg.DataBackend)
	assert.Equal(t, "web/templates", cfg.TemplateDir, "unset keys keep their defaults")

	env := map[string]string{"PORT": "7070", "MULTI_USER": "true", "ADMIN_USER": "root"}
	ApplyEnv(&cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	assert.Equal(t, "7070", cfg.Port)
	assert.True(t, cfg.MultiUser)
	assert.Equal(t, "root", cfg.AdminUser)
	assert.Equal(t, "/tmp/hp.csv", cfg.CSVPath)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadFile_MissingIsDefaults(t *testing.T) {
	cfg, err := LoadFile(Default(), filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.DataBackend = BackendMemory
	cfg.AdminPassword = "secret"
	require.NoError(t, Save(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret", "secrets are never written to disk")

	got, err := LoadFile(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, got.DataBackend)
}
