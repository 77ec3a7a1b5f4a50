package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"mend/pkg/logging"
)

const (
	// DefaultNavigationTimeout bounds page.Goto when a step does not set its own.
	DefaultNavigationTimeout = 30 * time.Second

	// BrowserChromium is the default engine.
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Config controls the launched browser engine.
type Config struct {
	// Browser selects the engine: chromium, firefox, or webkit.
	Browser string `yaml:"browser,omitempty"`

	// Headless launches without a visible window. Defaults to true.
	Headless bool `yaml:"headless,omitempty"`

	// SlowMo inserts a delay between protocol operations, useful when
	// watching a headed run.
	SlowMo time.Duration `yaml:"slowMo,omitempty"`

	// NavigationTimeout bounds page navigations.
	NavigationTimeout time.Duration `yaml:"navigationTimeout,omitempty"`
}

// DefaultConfig returns a headless chromium configuration.
func DefaultConfig() Config {
	return Config{
		Browser:           BrowserChromium,
		Headless:          true,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.Browser == "" {
		c.Browser = BrowserChromium
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	return c
}

// Session owns the playwright driver and one launched browser. Pages are
// created per scenario and closed by the caller; Stop tears the whole
// session down.
type Session struct {
	cfg     Config
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewSession creates a session. Start must be called before NewPage.
func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg.withDefaults()}
}

// Start launches the playwright driver and the configured browser engine.
func (s *Session) Start(ctx context.Context) error {
	pw, err := await(ctx, func() (*playwright.Playwright, error) {
		return playwright.Run()
	})
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	s.pw = pw

	browserType, err := s.browserType()
	if err != nil {
		return err
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.cfg.Headless),
	}
	if s.cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(float64(s.cfg.SlowMo.Milliseconds()))
	}

	browser, err := await(ctx, func() (playwright.Browser, error) {
		return browserType.Launch(opts)
	})
	if err != nil {
		return fmt.Errorf("failed to launch %s: %w", s.cfg.Browser, err)
	}
	s.browser = browser

	logging.Debug("Browser", "Launched %s (headless=%t)", s.cfg.Browser, s.cfg.Headless)
	return nil
}

// NewPage opens a fresh page in the running browser.
func (s *Session) NewPage(ctx context.Context) (*Page, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("browser session not started")
	}

	page, err := await(ctx, func() (playwright.Page, error) {
		return s.browser.NewPage()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Page{
		page:              page,
		navigationTimeout: s.cfg.NavigationTimeout,
	}, nil
}

// Stop closes the browser and the playwright driver. Failures are logged
// rather than returned so teardown always completes.
func (s *Session) Stop() {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			logging.Warn("Browser", "Failed to close browser: %v", err)
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			logging.Warn("Browser", "Failed to stop playwright: %v", err)
		}
		s.pw = nil
	}
}

func (s *Session) browserType() (playwright.BrowserType, error) {
	switch NormalizeBrowser(s.cfg.Browser) {
	case BrowserChromium:
		return s.pw.Chromium, nil
	case BrowserFirefox:
		return s.pw.Firefox, nil
	case BrowserWebKit:
		return s.pw.WebKit, nil
	default:
		return nil, fmt.Errorf("unsupported browser %q (expected chromium, firefox, or webkit)", s.cfg.Browser)
	}
}

// NormalizeBrowser maps common aliases onto the three playwright engines.
// Unknown names are returned lower-cased so the caller can report them.
func NormalizeBrowser(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "chromium", "chrome":
		return BrowserChromium
	case "firefox":
		return BrowserFirefox
	case "webkit", "safari":
		return BrowserWebKit
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

// Install downloads the playwright driver plus the given browser engine.
// Run it once before the first headless run on a fresh machine.
func Install(browserName string) error {
	name := NormalizeBrowser(browserName)
	if name != BrowserChromium && name != BrowserFirefox && name != BrowserWebKit {
		return fmt.Errorf("unsupported browser %q (expected chromium, firefox, or webkit)", browserName)
	}
	return playwright.Install(&playwright.RunOptions{
		Browsers: []string{name},
	})
}

// await runs a blocking driver call in a goroutine so the wait honors
// context cancellation. The driver call keeps running until its own timeout
// if the context fires first.
func await[T any](ctx context.Context, op func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := op()
		done <- outcome{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func awaitErr(ctx context.Context, op func() error) error {
	_, err := await(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}
