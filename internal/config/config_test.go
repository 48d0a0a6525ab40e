package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "funnel.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "https://api.monday.com/v2", cfg.Monday.APIURL)
	assert.InDelta(t, 5.0, cfg.Monday.RateLimit, 0.001)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "2024-10-01", cfg.Pipeline.IntroCutoff)
	assert.Equal(t, 52, cfg.Pipeline.Retention)
	assert.False(t, cfg.Pipeline.Strict)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Roster.Sellers)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/funnel
monday:
  board_id: "12345"
  accounts_board_id: "67890"
roster:
  sellers:
    - key: avery
      label: Avery Chen
    - key: blake
      label: Blake
pipeline:
  intro_cutoff: 2024-07-01
log:
  level: debug
  format: console
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "12345", cfg.Monday.BoardID)
	assert.Equal(t, "67890", cfg.Monday.AccountsBoardID)
	require.Len(t, cfg.Roster.Sellers, 2)
	assert.Equal(t, "avery", cfg.Roster.Sellers[0].Key)
	assert.Equal(t, "Avery Chen", cfg.Roster.Sellers[0].Label)
	assert.Equal(t, "2024-07-01", cfg.Pipeline.IntroCutoff)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 52, cfg.Pipeline.Retention)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("FUNNEL_STORE_DRIVER", "postgres")
	t.Setenv("FUNNEL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("FUNNEL_MONDAY_TOKEN", "tok-123")
	t.Setenv("FUNNEL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.Monday.Token)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Pipeline.IntroCutoff = "2024-10-01"
	cfg.Pipeline.Retention = 52
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSync_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Monday.Token = "tok"
	cfg.Monday.BoardID = "12345"

	assert.NoError(t, cfg.Validate("sync"))
}

func TestValidateSync_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monday.token is required")
	assert.Contains(t, err.Error(), "monday.board_id is required")
}

func TestValidateAsk(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("ask")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("ask"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateCutoffFormat(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.IntroCutoff = "October 2024"

	err := cfg.Validate("import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intro_cutoff")
}

func TestValidateRetention(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.Retention = 0

	err := cfg.Validate("snapshots")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retention must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
