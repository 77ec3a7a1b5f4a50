package locator

import (
	"context"
	"time"
)

// Default wait bounds. Both are tunable through Config; nothing in the
// resolver depends on these exact values.
const (
	// DefaultTimeout bounds the wait for the primary query.
	DefaultTimeout = 5 * time.Second
	// DefaultFallbackTimeout bounds each healing strategy's wait. It is
	// deliberately shorter than the primary timeout: a slow page deserves
	// the full primary wait, but spending that long on each of five
	// fallback strategies would make failing steps unacceptably slow.
	DefaultFallbackTimeout = 2 * time.Second
)

// ElementContext describes an element to be located when its primary
// selector fails. OriginalSelector is required and is only used for logging
// and error messages; the remaining fields are optional hints consumed by
// the healing strategies. An empty hint means "absent".
//
// Contexts are constructed per call site and never mutated or persisted.
type ElementContext struct {
	// OriginalSelector is the selector that failed, named in every healing
	// log line and error so a human can update the stale locator.
	OriginalSelector string
	// Role is the semantic ARIA role expected for the element ("button",
	// "link", ...).
	Role string
	// Text is the visible text content expected for the element.
	Text string
	// Placeholder is the placeholder text expected on a form input.
	Placeholder string
	// TestID is the value of the stable test-identifier attribute.
	TestID string
}

// Config tunes the healing behavior for one Resolve call. A nil Config means
// all defaults. Zero timeouts fall back to the package defaults; Enabled and
// LogWarnings are taken as given, so construct via DefaultConfig when the
// defaults (healing on, warnings on) are wanted.
type Config struct {
	// Enabled turns the fallback strategy chain on. When false, a primary
	// failure is immediately fatal.
	Enabled bool
	// Timeout bounds the primary-query wait.
	Timeout time.Duration
	// FallbackTimeout bounds each individual strategy's wait.
	FallbackTimeout time.Duration
	// LogWarnings controls the healing warning output. Errors are always
	// logged.
	LogWarnings bool
}

// DefaultConfig returns the standard healing configuration: enabled, 5s
// primary wait, 2s per-strategy wait, warnings on.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		Timeout:         DefaultTimeout,
		FallbackTimeout: DefaultFallbackTimeout,
		LogWarnings:     true,
	}
}

func (c *Config) withDefaults() Config {
	if c == nil {
		return *DefaultConfig()
	}
	out := *c
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.FallbackTimeout <= 0 {
		out.FallbackTimeout = DefaultFallbackTimeout
	}
	return out
}

// Query is a queryable element expression plus the element actions the step
// layer performs once resolution succeeds. Implementations are provided by
// the browser adapter; tests use fakes.
type Query interface {
	// WaitVisible blocks until the query's match is visible, the timeout
	// elapses, or ctx is cancelled.
	WaitVisible(ctx context.Context, timeout time.Duration) error
	// First narrows the query to its first match.
	First() Query
	// Click clicks the matched element.
	Click(ctx context.Context) error
	// Fill replaces the matched input's value.
	Fill(ctx context.Context, value string) error
	// Text returns the matched element's visible text.
	Text(ctx context.Context) (string, error)
	// Visible reports whether the matched element is currently visible.
	Visible(ctx context.Context) (bool, error)
}

// Handle is a resolved, actionable element. It is a Query that has already
// reported visible.
type Handle = Query

// Querier is the element query capability the resolver consumes. The browser
// adapter implements it over the playwright page.
type Querier interface {
	// Locate builds a query from a raw selector expression.
	Locate(selector string) Query
	// ByRole builds a query matching elements with the given ARIA role.
	ByRole(role string) Query
	// ByText builds a query matching elements by visible text, exactly or
	// by substring.
	ByText(text string, exact bool) Query
	// ByPlaceholder builds a query matching inputs by placeholder text.
	ByPlaceholder(text string) Query
	// ByTestID builds a query matching elements by test-identifier value.
	ByTestID(id string) Query
}

// Logger is the observational logging seam. Logging must never affect
// resolution control flow.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// Resolution is the outcome of a successful Resolve call.
type Resolution struct {
	// Element is the visible, actionable handle.
	Element Handle
	// Strategy names what found the element: "primary" or a healing
	// strategy name.
	Strategy string
	// Healed is true when a fallback strategy produced the element.
	Healed bool
	// Elapsed is the total resolution time including the failed primary
	// wait.
	Elapsed time.Duration
}
