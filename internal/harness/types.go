package harness

import (
	"context"
	"time"

	"mend/internal/apiclient"
	"mend/internal/locator"
	"mend/internal/metrics"
)

// Result represents the outcome of a scenario or step.
type Result string

const (
	// ResultPassed indicates the scenario or step passed.
	ResultPassed Result = "PASSED"
	// ResultFailed indicates an expectation was not met.
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the scenario was skipped.
	ResultSkipped Result = "SKIPPED"
	// ResultError indicates execution broke before expectations could be
	// checked (environment setup, template resolution, transport failure).
	ResultError Result = "ERROR"
)

// ExecutionMode represents how the harness is being driven.
type ExecutionMode string

const (
	// ExecutionModeCLI represents command line execution.
	ExecutionModeCLI ExecutionMode = "cli"
	// ExecutionModeMCPServer represents MCP server execution via stdio.
	ExecutionModeMCPServer ExecutionMode = "mcp-server"
)

// Logger provides centralized logging for scenario execution.
type Logger interface {
	// Debug logs debug-level messages (only shown when debug=true)
	Debug(format string, args ...interface{})
	// Info logs info-level messages (shown when verbose=true or debug=true)
	Info(format string, args ...interface{})
	// Warn logs warning-level messages (always shown; healing reports land here)
	Warn(format string, args ...interface{})
	// Error logs error-level messages (always shown)
	Error(format string, args ...interface{})
	// IsDebugEnabled returns whether debug logging is enabled
	IsDebugEnabled() bool
	// IsVerboseEnabled returns whether verbose logging is enabled
	IsVerboseEnabled() bool
}

// Configuration defines the overall run configuration.
type Configuration struct {
	// Timeout is the overall execution timeout applied per scenario unless
	// the scenario sets its own.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Suite filter for execution
	Suite string `yaml:"suite,omitempty" json:"suite,omitempty"`
	// Scenario filter for specific scenario execution
	Scenario string `yaml:"scenario,omitempty" json:"scenario,omitempty"`
	// Tags filters scenarios to those carrying every listed tag
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// FailFast stops execution on first failure
	FailFast bool `yaml:"fail_fast" json:"fail_fast"`
	// Verbose enables detailed output
	Verbose bool `yaml:"verbose" json:"verbose"`
	// Debug enables debug logging
	Debug bool `yaml:"debug" json:"debug"`
	// ScenarioPath is the path to scenario definitions
	ScenarioPath string `yaml:"scenario_path,omitempty" json:"scenario_path,omitempty"`
	// ReportPath is the directory to save detailed run reports
	ReportPath string `yaml:"report_path,omitempty" json:"report_path,omitempty"`
	// ScreenshotPath is the directory screenshot steps write to
	ScreenshotPath string `yaml:"screenshot_path,omitempty" json:"screenshot_path,omitempty"`
}

// Scenario defines a single executable scenario.
type Scenario struct {
	// Name is the unique identifier for the scenario
	Name string `yaml:"name" json:"name"`
	// Suite groups related scenarios for filtering
	Suite string `yaml:"suite,omitempty" json:"suite,omitempty"`
	// Description provides a human-readable summary
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Tags for additional categorization
	Tags []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	// Skip marks the scenario as skipped without removing it
	Skip bool `yaml:"skip,omitempty" json:"skip,omitempty"`
	// Timeout for this specific scenario
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Vars are scenario-level template variables, available as {{ .vars.* }}
	Vars map[string]interface{} `yaml:"vars,omitempty" json:"vars,omitempty"`
	// Config carries per-scenario environment overrides
	Config *ScenarioConfig `yaml:"config,omitempty" json:"config,omitempty"`
	// Steps define the execution steps
	Steps []Step `yaml:"steps" json:"steps"`
	// Cleanup defines teardown steps that always run
	Cleanup []Step `yaml:"cleanup,omitempty" json:"cleanup,omitempty"`
}

// ScenarioConfig overrides the environment defaults for one scenario.
type ScenarioConfig struct {
	// UI configures the browser surface. Scenarios without UI steps omit it.
	UI *UIConfig `yaml:"ui,omitempty" json:"ui,omitempty"`
	// API configures the HTTP client.
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty"`
}

// UIConfig configures the browser side of a scenario.
type UIConfig struct {
	// BaseURL prefixes relative navigate targets
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// Browser selects the engine: chromium, firefox, or webkit
	Browser string `yaml:"browser,omitempty" json:"browser,omitempty"`
	// Headless overrides the default headless launch
	Headless *bool `yaml:"headless,omitempty" json:"headless,omitempty"`
	// Healing configures locator self-healing
	Healing *HealingConfig `yaml:"healing,omitempty" json:"healing,omitempty"`
}

// HealingConfig tunes the locator healing engine for a scenario.
type HealingConfig struct {
	// Enabled toggles fallback strategies. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	// Timeout bounds the primary locator wait
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// FallbackTimeout bounds each individual fallback strategy wait
	FallbackTimeout Duration `yaml:"fallback_timeout,omitempty" json:"fallback_timeout,omitempty"`
}

// APIConfig configures the HTTP client side of a scenario.
type APIConfig struct {
	// BaseURL prefixes relative request paths
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// Timeout is the per-request timeout
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Retries is the total attempt budget per request (1 = no retry)
	Retries int `yaml:"retries,omitempty" json:"retries,omitempty"`
	// AuthToken pre-installs a bearer token on the scenario's client
	AuthToken string `yaml:"auth_token,omitempty" json:"auth_token,omitempty"`
	// OAuth fetches a client-credentials token before the first step
	OAuth *OAuthConfig `yaml:"oauth,omitempty" json:"oauth,omitempty"`
}

// OAuthConfig holds client-credentials grant settings.
type OAuthConfig struct {
	// TokenURL is the token endpoint
	TokenURL string `yaml:"token_url" json:"token_url"`
	// ClientID is the OAuth client identifier
	ClientID string `yaml:"client_id" json:"client_id"`
	// ClientSecret is the OAuth client secret
	ClientSecret string `yaml:"client_secret" json:"client_secret"`
	// Scopes are the requested scopes
	Scopes []string `yaml:"scopes,omitempty" json:"scopes,omitempty"`
}

// LocatorConfig converts the scenario healing settings into the resolver's
// configuration. A nil receiver yields the defaults.
func (h *HealingConfig) LocatorConfig() *locator.Config {
	cfg := locator.DefaultConfig()
	if h == nil {
		return cfg
	}
	if h.Enabled != nil {
		cfg.Enabled = *h.Enabled
	}
	if h.Timeout > 0 {
		cfg.Timeout = h.Timeout.Std()
	}
	if h.FallbackTimeout > 0 {
		cfg.FallbackTimeout = h.FallbackTimeout.Std()
	}
	return cfg
}

// Step defines a single step within a scenario.
type Step struct {
	// ID is the step identifier; results are registered under steps.<id>
	ID string `yaml:"id" json:"id"`
	// Description explains what the step does
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Action names the operation to perform (navigate, click, api_get, ...)
	Action string `yaml:"action" json:"action"`
	// Args are the action arguments as a map
	Args map[string]interface{} `yaml:"args,omitempty" json:"args,omitempty"`
	// Expected defines the expected outcome; nil means "must succeed"
	Expected *Expectation `yaml:"expected,omitempty" json:"expected,omitempty"`
	// Timeout for this specific step
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Expectation defines what outcome is expected from a step. When
// ErrorContains is set the step is expected to fail and every listed
// fragment must appear in the error text; otherwise the step must succeed
// and the remaining checks run against its response.
type Expectation struct {
	// Status is the expected HTTP status code for API steps
	Status int `yaml:"status,omitempty" json:"status,omitempty"`
	// Contains checks if the response contains specific text
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`
	// NotContains checks if the response does not contain specific text
	NotContains []string `yaml:"not_contains,omitempty" json:"not_contains,omitempty"`
	// JSONPath checks dotted paths into the response body, e.g. "user.id": 7
	JSONPath map[string]interface{} `yaml:"json_path,omitempty" json:"json_path,omitempty"`
	// ErrorContains checks if the step error contains specific text
	ErrorContains []string `yaml:"error_contains,omitempty" json:"error_contains,omitempty"`
}

// PageDriver is the browser surface a scenario drives. *browser.Page
// implements it; runner tests inject fakes.
type PageDriver interface {
	locator.Querier
	// Navigate loads a URL and waits for the DOM to be ready
	Navigate(ctx context.Context, url string) error
	// Press sends a key chord to the focused element
	Press(ctx context.Context, key string) error
	// Screenshot captures the full page as PNG
	Screenshot(ctx context.Context) ([]byte, error)
	// Close closes the page
	Close() error
}

// Environment bundles the per-scenario fixtures: one fresh API client per
// scenario so auth headers never leak across scenarios, plus a browser page
// when the scenario has UI steps.
type Environment struct {
	// Page is the browser surface, nil for API-only scenarios
	Page PageDriver
	// API is the scenario's HTTP client
	API *apiclient.Client
	// BaseURL is the resolved UI base URL for relative navigation
	BaseURL string
}

// EnvironmentManager acquires and releases scenario environments.
type EnvironmentManager interface {
	// Acquire prepares the environment for one scenario. The returned
	// release function must always be called and is safe to call once.
	Acquire(ctx context.Context, scenario Scenario, recorder metrics.Recorder, logger Logger) (*Environment, func(), error)
	// Close tears down shared resources (the browser session)
	Close() error
}

// HealingEvent records one healed locator so reports can point at the stale
// selector that needs updating.
type HealingEvent struct {
	// StepID is the step whose selector was healed
	StepID string `json:"step_id"`
	// Selector is the original selector that no longer matches
	Selector string `json:"selector"`
	// Strategy is the fallback strategy that found the element
	Strategy string `json:"strategy"`
}

// SuiteResult represents the overall result of a run.
type SuiteResult struct {
	// RunID uniquely identifies this run
	RunID string `json:"run_id"`
	// StartTime when execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of execution
	Duration time.Duration `json:"duration"`
	// TotalScenarios is the total number of scenarios executed
	TotalScenarios int `json:"total_scenarios"`
	// PassedScenarios is the number of scenarios that passed
	PassedScenarios int `json:"passed_scenarios"`
	// FailedScenarios is the number of scenarios that failed
	FailedScenarios int `json:"failed_scenarios"`
	// SkippedScenarios is the number of scenarios that were skipped
	SkippedScenarios int `json:"skipped_scenarios"`
	// ErrorScenarios is the number of scenarios that had errors
	ErrorScenarios int `json:"error_scenarios"`
	// ScenarioResults contains individual scenario results
	ScenarioResults []ScenarioResult `json:"scenario_results"`
	// Configuration used for this run
	Configuration Configuration `json:"configuration"`
	// APIMetrics summarizes response times across all API steps in the run
	APIMetrics metrics.Summary `json:"api_metrics"`
}

// ScenarioResult represents the result of a single scenario.
type ScenarioResult struct {
	// Scenario is the scenario that was executed
	Scenario Scenario `json:"scenario"`
	// Result is the overall result of the scenario
	Result Result `json:"result"`
	// StartTime when scenario execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when scenario execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of scenario execution
	Duration time.Duration `json:"duration"`
	// StepResults contains individual step results
	StepResults []StepResult `json:"step_results"`
	// Error message if the scenario failed or had an error
	Error string `json:"error,omitempty"`
	// Healings lists locators that only resolved via a fallback strategy
	Healings []HealingEvent `json:"healings,omitempty"`
}

// StepResult represents the result of a single step.
type StepResult struct {
	// Step is the step that was executed
	Step Step `json:"step"`
	// Result is the result of the step
	Result Result `json:"result"`
	// StartTime when step execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when step execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of step execution
	Duration time.Duration `json:"duration"`
	// Response is the registered step output (API response data, element text, ...)
	Response interface{} `json:"response,omitempty"`
	// Error message if the step failed
	Error string `json:"error,omitempty"`
	// Healed indicates the step's locator resolved via a fallback strategy
	Healed bool `json:"healed,omitempty"`
	// Strategy names the fallback strategy that healed the locator
	Strategy string `json:"strategy,omitempty"`
}

// Runner is the scenario execution engine.
type Runner interface {
	// Run executes scenarios according to the configuration
	Run(ctx context.Context, config Configuration, scenarios []Scenario) (*SuiteResult, error)
}

// ScenarioLoader defines how scenarios are loaded from disk.
type ScenarioLoader interface {
	// LoadScenarios loads scenarios from the given path
	LoadScenarios(path string) ([]Scenario, error)
	// FilterScenarios filters scenarios based on the configuration
	FilterScenarios(scenarios []Scenario, config Configuration) []Scenario
}

// Reporter defines how results are reported.
type Reporter interface {
	// ReportStart is called when execution begins
	ReportStart(config Configuration)
	// ReportScenarioStart is called when a scenario begins
	ReportScenarioStart(scenario Scenario)
	// ReportStepResult is called when a step completes
	ReportStepResult(stepResult StepResult)
	// ReportScenarioResult is called when a scenario completes
	ReportScenarioResult(scenarioResult ScenarioResult)
	// ReportSuiteResult is called when the run completes
	ReportSuiteResult(suiteResult SuiteResult)
}

// StructuredReporter extends Reporter with methods for structured data
// access. It is used in MCP server mode where results are queried
// programmatically instead of printed.
type StructuredReporter interface {
	Reporter
	// GetCurrentSuiteResult returns the current suite result
	GetCurrentSuiteResult() *SuiteResult
	// GetCurrentResults returns the scenario results so far
	GetCurrentResults() []ScenarioResult
	// GetResultsAsJSON returns the current results as JSON
	GetResultsAsJSON() (string, error)
}
