package config

import (
	"mend/internal/browser"
	"mend/internal/harness"
)

// MendConfig is the top-level configuration structure for mend.
type MendConfig struct {
	Scenarios ScenariosConfig   `yaml:"scenarios,omitempty"`
	UI        UIConfig          `yaml:"ui,omitempty"`
	API       harness.APIConfig `yaml:"api,omitempty"`
	Report    ReportConfig      `yaml:"report,omitempty"`
	History   HistoryConfig     `yaml:"history,omitempty"`
	Serve     ServeConfig       `yaml:"serve,omitempty"`
}

// ScenariosConfig locates the scenario files.
type ScenariosConfig struct {
	Path string `yaml:"path,omitempty"` // Directory walked for *.yaml scenarios (default: scenarios)
}

// UIConfig carries the browser-side defaults applied to scenarios that do
// not override them.
type UIConfig struct {
	BaseURL           string                 `yaml:"base_url,omitempty"`           // Prefix for relative navigate targets
	Browser           string                 `yaml:"browser,omitempty"`            // chromium, firefox, or webkit (default: chromium)
	Headless          *bool                  `yaml:"headless,omitempty"`           // Launch without a window (default: true)
	SlowMo            harness.Duration       `yaml:"slow_mo,omitempty"`            // Delay between protocol operations
	NavigationTimeout harness.Duration       `yaml:"navigation_timeout,omitempty"` // Bound on page navigations (default: 30s)
	Healing           *harness.HealingConfig `yaml:"healing,omitempty"`            // Locator self-healing defaults
}

// ReportConfig controls where run artifacts land.
type ReportConfig struct {
	Path        string `yaml:"path,omitempty"`        // Directory for JSON run reports
	Screenshots string `yaml:"screenshots,omitempty"` // Directory for screenshot action output
}

// HistoryConfig controls the sqlite run history. An empty path disables
// recording unless --history-db overrides it.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// ServeConfig carries serve-mode settings.
type ServeConfig struct {
	MetricsAddress string `yaml:"metrics_address,omitempty"` // Listen address for the prometheus endpoint (empty: disabled)
}

// BrowserConfig converts the UI defaults into a browser launch configuration.
func (u UIConfig) BrowserConfig() browser.Config {
	cfg := browser.DefaultConfig()
	if u.Browser != "" {
		cfg.Browser = browser.NormalizeBrowser(u.Browser)
	}
	if u.Headless != nil {
		cfg.Headless = *u.Headless
	}
	if u.SlowMo > 0 {
		cfg.SlowMo = u.SlowMo.Std()
	}
	if u.NavigationTimeout > 0 {
		cfg.NavigationTimeout = u.NavigationTimeout.Std()
	}
	return cfg
}
