package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies the zero-file path yields the documented
// defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 100, cfg.Race.DefaultMaxProgress)
	require.Equal(t, 1, cfg.Race.DefaultIncrement)
	require.Equal(t, 500*time.Millisecond, cfg.Race.DefaultDelay())
	require.Equal(t, "memory", cfg.DB.Provider)
	require.Equal(t, "none", cfg.Notify.Provider)
	require.Equal(t, 250*time.Millisecond, cfg.Progress.FlushInterval())
	require.Equal(t, 5*time.Second, cfg.Progress.SinkTimeout())
	require.False(t, cfg.Logging.Development)
}

// TestLoadFromFile verifies YAML values override defaults.
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pacer.yaml")
	payload := []byte(`
server:
  port: 9090
race:
  default_delay_ms: 100
db:
  provider: postgres
  dsn: postgres://localhost/pacer
logging:
  development: true
`)
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 100*time.Millisecond, cfg.Race.DefaultDelay())
	require.Equal(t, "postgres", cfg.DB.Provider)
	require.True(t, cfg.Logging.Development)
	// Untouched sections keep their defaults.
	require.Equal(t, 1, cfg.Race.DefaultIncrement)
}

// TestLoadMissingFile verifies a bad path surfaces a read error.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

// TestValidateRejections walks the validation failure modes.
func TestValidateRejections(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(*Config){
		"bad port":             func(c *Config) { c.Server.Port = 0 },
		"zero max progress":    func(c *Config) { c.Race.DefaultMaxProgress = 0 },
		"zero increment":       func(c *Config) { c.Race.DefaultIncrement = 0 },
		"negative delay":       func(c *Config) { c.Race.DefaultDelayMs = -1 },
		"zero max runners":     func(c *Config) { c.Race.MaxRunners = 0 },
		"unknown db provider":  func(c *Config) { c.DB.Provider = "oracle" },
		"postgres without dsn": func(c *Config) { c.DB.Provider = "postgres"; c.DB.DSN = "" },
		"unknown notifier":     func(c *Config) { c.Notify.Provider = "carrier-pigeon" },
		"pubsub without topic": func(c *Config) { c.Notify.Provider = "pubsub"; c.Notify.ProjectID = "p" },
	}
	for name, mutate := range cases {
		cfg := base()
		mutate(&cfg)
		require.Error(t, cfg.Validate(), name)
	}
}
