package harness

import (
	"encoding/json"
	"fmt"
	"sync"
)

// structuredReporter collects results in memory for programmatic access,
// used in MCP server mode where stdout belongs to the protocol.
type structuredReporter struct {
	mu              sync.RWMutex
	currentSuite    *SuiteResult
	scenarioResults []ScenarioResult
}

// NewStructuredReporter creates a reporter that accumulates results instead
// of printing them.
func NewStructuredReporter() StructuredReporter {
	return &structuredReporter{}
}

func (r *structuredReporter) ReportStart(config Configuration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentSuite = nil
	r.scenarioResults = nil
}

func (r *structuredReporter) ReportScenarioStart(scenario Scenario) {}

func (r *structuredReporter) ReportStepResult(stepResult StepResult) {}

func (r *structuredReporter) ReportScenarioResult(scenarioResult ScenarioResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarioResults = append(r.scenarioResults, scenarioResult)
}

func (r *structuredReporter) ReportSuiteResult(suiteResult SuiteResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentSuite = &suiteResult
}

// GetCurrentSuiteResult returns the most recent completed suite result, or
// nil if no run has finished yet.
func (r *structuredReporter) GetCurrentSuiteResult() *SuiteResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentSuite
}

// GetCurrentResults returns the scenario results collected so far, including
// those from a run still in progress.
func (r *structuredReporter) GetCurrentResults() []ScenarioResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make([]ScenarioResult, len(r.scenarioResults))
	copy(results, r.scenarioResults)
	return results
}

// GetResultsAsJSON returns the current suite result serialized as JSON.
func (r *structuredReporter) GetResultsAsJSON() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.currentSuite == nil {
		return "", fmt.Errorf("no completed run available")
	}

	jsonBytes, err := json.MarshalIndent(r.currentSuite, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(jsonBytes), nil
}
