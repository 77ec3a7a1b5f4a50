package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/browser"
	"mend/internal/harness"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0644)
	require.NoError(t, err)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	tempDir := t.TempDir()

	loaded, err := LoadConfig(tempDir)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.Equal(t, "scenarios", loaded.Scenarios.Path)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, `
scenarios:
  path: e2e/scenarios
ui:
  base_url: https://app.example.com
  browser: firefox
  headless: false
  healing:
    timeout: 8s
    fallback_timeout: 3s
api:
  base_url: https://api.example.com
  timeout: 10s
  retries: 3
history:
  path: /tmp/mend-history.db
serve:
  metrics_address: ":9090"
`)

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "e2e/scenarios", loaded.Scenarios.Path)
	assert.Equal(t, "https://app.example.com", loaded.UI.BaseURL)
	assert.Equal(t, "https://api.example.com", loaded.API.BaseURL)
	assert.Equal(t, 10*time.Second, loaded.API.Timeout.Std())
	assert.Equal(t, 3, loaded.API.Retries)
	assert.Equal(t, "/tmp/mend-history.db", loaded.History.Path)
	assert.Equal(t, ":9090", loaded.Serve.MetricsAddress)

	require.NotNil(t, loaded.UI.Healing)
	assert.Equal(t, 8*time.Second, loaded.UI.Healing.Timeout.Std())
	assert.Equal(t, 3*time.Second, loaded.UI.Healing.FallbackTimeout.Std())

	// File sections not present keep their defaults.
	assert.Equal(t, "screenshots", loaded.Report.Screenshots)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, "scenarios: [not: a: mapping")

	_, err := LoadConfig(tempDir)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	tempDir := t.TempDir()
	writeConfigFile(t, tempDir, `
ui:
  base_url: https://file.example.com
api:
  auth_token: from-file
`)

	t.Setenv(UIBaseURLEnvVar, "https://env.example.com")
	t.Setenv(AuthTokenEnvVar, "from-env")
	t.Setenv(HistoryDBEnvVar, "/tmp/env-history.db")

	loaded, err := LoadConfig(tempDir)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", loaded.UI.BaseURL)
	assert.Equal(t, "from-env", loaded.API.AuthToken)
	assert.Equal(t, "/tmp/env-history.db", loaded.History.Path)
}

func TestUIConfig_BrowserConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := UIConfig{}.BrowserConfig()
		assert.Equal(t, browser.BrowserChromium, cfg.Browser)
		assert.True(t, cfg.Headless)
		assert.Equal(t, browser.DefaultNavigationTimeout, cfg.NavigationTimeout)
	})

	t.Run("overrides", func(t *testing.T) {
		headed := false
		ui := UIConfig{
			Browser:           "chrome",
			Headless:          &headed,
			SlowMo:            durationOf(t, "250ms"),
			NavigationTimeout: durationOf(t, "45s"),
		}
		cfg := ui.BrowserConfig()
		assert.Equal(t, browser.BrowserChromium, cfg.Browser, "chrome alias normalizes to chromium")
		assert.False(t, cfg.Headless)
		assert.Equal(t, 250*time.Millisecond, cfg.SlowMo)
		assert.Equal(t, 45*time.Second, cfg.NavigationTimeout)
	})
}

func durationOf(t *testing.T, s string) harness.Duration {
	t.Helper()
	parsed, err := time.ParseDuration(s)
	require.NoError(t, err)
	return harness.Duration(parsed)
}
