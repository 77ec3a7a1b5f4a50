// Package fixture provides per-scenario environment management: one fresh
// API client per scenario, a browser page when the scenario drives the UI,
// and guaranteed release of both.
package fixture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mend/internal/apiclient"
	"mend/internal/browser"
	"mend/internal/harness"
	"mend/internal/metrics"
)

// Defaults carries the run-level environment configuration. Scenarios may
// override individual fields through their config block.
type Defaults struct {
	// UIBaseURL prefixes relative navigate targets.
	UIBaseURL string
	// Browser is the shared browser launch configuration.
	Browser browser.Config
	// API is the default API client configuration.
	API APIDefaults
}

// APIDefaults configures the API client handed to scenarios that do not
// override it.
type APIDefaults struct {
	// BaseURL prefixes relative request paths.
	BaseURL string
	// Timeout is the default per-request timeout.
	Timeout time.Duration
	// Retries is the default attempt budget per request.
	Retries int
	// AuthToken pre-installs a bearer token on every scenario client.
	AuthToken string
	// OAuth fetches a client-credentials token at scenario setup.
	OAuth *harness.OAuthConfig
}

// Manager implements harness.EnvironmentManager. The browser session is
// started lazily on the first scenario that needs it and shared across
// scenarios; pages are isolated per scenario, as is the API client, so auth
// headers set by one scenario can never leak into another.
type Manager struct {
	defaults Defaults

	mu        sync.Mutex
	shared    *browser.Session
	providers map[string]*apiclient.ClientCredentialsProvider
}

// NewManager creates an environment manager with the given defaults.
func NewManager(defaults Defaults) *Manager {
	return &Manager{
		defaults:  defaults,
		providers: make(map[string]*apiclient.ClientCredentialsProvider),
	}
}

// Acquire prepares the environment for one scenario. The returned release
// function closes the scenario's page; shared resources live until Close.
func (m *Manager) Acquire(ctx context.Context, scenario harness.Scenario, recorder metrics.Recorder, logger harness.Logger) (*harness.Environment, func(), error) {
	env := &harness.Environment{}

	client, err := m.buildClient(ctx, scenario, recorder, logger)
	if err != nil {
		return nil, func() {}, err
	}
	env.API = client

	release := func() {}
	if harness.NeedsBrowser(scenario) {
		page, pageRelease, err := m.acquirePage(ctx, scenario, logger)
		if err != nil {
			return nil, func() {}, err
		}
		env.Page = page
		env.BaseURL = m.uiBaseURL(scenario)
		release = pageRelease
	}

	return env, release, nil
}

// WarmBrowser starts the shared browser session eagerly. Without it the
// session starts lazily on the first UI scenario; the run command warms it
// up front so the launch cost lands before the first scenario timer starts.
func (m *Manager) WarmBrowser(ctx context.Context) error {
	_, err := m.sharedSession(ctx)
	return err
}

// Close tears down the shared browser session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil {
		m.shared.Stop()
		m.shared = nil
	}
	return nil
}

// buildClient constructs the scenario's API client from the merged defaults
// and installs its auth token.
func (m *Manager) buildClient(ctx context.Context, scenario harness.Scenario, recorder metrics.Recorder, logger harness.Logger) (*apiclient.Client, error) {
	cfg := m.apiConfig(scenario)

	client := apiclient.New(apiclient.Config{
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
		Retries:  cfg.Retries,
		Recorder: recorder,
		Logger:   logger,
	})

	switch {
	case cfg.OAuth != nil:
		token, err := m.providerFor(cfg.OAuth).Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain oauth token for scenario %q: %w", scenario.Name, err)
		}
		client.SetAuthToken(token)
	case cfg.AuthToken != "":
		client.SetAuthToken(cfg.AuthToken)
	}

	return client, nil
}

type resolvedAPI struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	AuthToken string
	OAuth     *harness.OAuthConfig
}

// apiConfig merges a scenario's API overrides onto the defaults. A scenario
// that sets a literal auth token drops an inherited oauth block; a scenario
// oauth block wins over everything.
func (m *Manager) apiConfig(scenario harness.Scenario) resolvedAPI {
	out := resolvedAPI{
		BaseURL:   m.defaults.API.BaseURL,
		Timeout:   m.defaults.API.Timeout,
		Retries:   m.defaults.API.Retries,
		AuthToken: m.defaults.API.AuthToken,
		OAuth:     m.defaults.API.OAuth,
	}

	if scenario.Config == nil || scenario.Config.API == nil {
		return out
	}
	api := scenario.Config.API

	if api.BaseURL != "" {
		out.BaseURL = api.BaseURL
	}
	if api.Timeout > 0 {
		out.Timeout = api.Timeout.Std()
	}
	if api.Retries > 0 {
		out.Retries = api.Retries
	}
	if api.AuthToken != "" {
		out.AuthToken = api.AuthToken
		out.OAuth = nil
	}
	if api.OAuth != nil {
		out.OAuth = api.OAuth
	}
	return out
}

// providerFor returns the cached token provider for the given oauth config,
// so repeated scenarios against the same endpoint reuse cached tokens.
func (m *Manager) providerFor(oauth *harness.OAuthConfig) *apiclient.ClientCredentialsProvider {
	key := oauth.TokenURL + "\x00" + oauth.ClientID

	m.mu.Lock()
	defer m.mu.Unlock()
	if provider, ok := m.providers[key]; ok {
		return provider
	}
	provider := apiclient.NewClientCredentialsProvider(oauth.TokenURL, oauth.ClientID, oauth.ClientSecret, oauth.Scopes)
	m.providers[key] = provider
	return provider
}

// acquirePage hands out a fresh page for the scenario. Scenarios overriding
// the engine or headless mode get a dedicated session torn down with the
// page; everything else shares the lazily started default session.
func (m *Manager) acquirePage(ctx context.Context, scenario harness.Scenario, logger harness.Logger) (*browser.Page, func(), error) {
	cfg, dedicated := m.browserConfig(scenario)

	if dedicated {
		session := browser.NewSession(cfg)
		if err := session.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to start browser for scenario %q: %w", scenario.Name, err)
		}
		page, err := session.NewPage(ctx)
		if err != nil {
			session.Stop()
			return nil, nil, fmt.Errorf("failed to open page for scenario %q: %w", scenario.Name, err)
		}
		return page, func() {
			if err := page.Close(); err != nil {
				logger.Warn("Failed to close page for scenario %q: %v", scenario.Name, err)
			}
			session.Stop()
		}, nil
	}

	session, err := m.sharedSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	page, err := session.NewPage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open page for scenario %q: %w", scenario.Name, err)
	}
	return page, func() {
		if err := page.Close(); err != nil {
			logger.Warn("Failed to close page for scenario %q: %v", scenario.Name, err)
		}
	}, nil
}

// browserConfig merges scenario UI overrides onto the default launch config.
// The second return value reports whether the merge changed the launch
// parameters, which forces a dedicated session.
func (m *Manager) browserConfig(scenario harness.Scenario) (browser.Config, bool) {
	cfg := m.defaults.Browser
	ui := scenarioUI(scenario)
	if ui == nil {
		return cfg, false
	}

	current := cfg.Browser
	if current == "" {
		current = browser.BrowserChromium
	}

	dedicated := false
	if ui.Browser != "" && browser.NormalizeBrowser(ui.Browser) != browser.NormalizeBrowser(current) {
		cfg.Browser = ui.Browser
		dedicated = true
	}
	if ui.Headless != nil && *ui.Headless != cfg.Headless {
		cfg.Headless = *ui.Headless
		dedicated = true
	}
	return cfg, dedicated
}

func (m *Manager) sharedSession(ctx context.Context) (*browser.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shared != nil {
		return m.shared, nil
	}

	session := browser.NewSession(m.defaults.Browser)
	if err := session.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	m.shared = session
	return session, nil
}

func (m *Manager) uiBaseURL(scenario harness.Scenario) string {
	if ui := scenarioUI(scenario); ui != nil && ui.BaseURL != "" {
		return ui.BaseURL
	}
	return m.defaults.UIBaseURL
}

func scenarioUI(scenario harness.Scenario) *harness.UIConfig {
	if scenario.Config == nil {
		return nil
	}
	return scenario.Config.UI
}
