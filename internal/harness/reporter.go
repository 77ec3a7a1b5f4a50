package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// consoleReporter implements the Reporter interface for CLI mode
type consoleReporter struct {
	verbose    bool
	debug      bool
	reportPath string
}

// NewConsoleReporter creates a new console reporter
func NewConsoleReporter(verbose, debug bool, reportPath string) Reporter {
	return &consoleReporter{
		verbose:    verbose,
		debug:      debug,
		reportPath: reportPath,
	}
}

// ReportStart is called when execution begins
func (r *consoleReporter) ReportStart(config Configuration) {
	fmt.Printf("🧪 Starting mend scenario run\n")

	if r.verbose {
		fmt.Printf("\n⚙️  Configuration:\n")
		fmt.Printf("   • Suite: %s\n", stringOrDefault(config.Suite, "all"))
		fmt.Printf("   • Scenario: %s\n", stringOrDefault(config.Scenario, "all"))
		if len(config.Tags) > 0 {
			fmt.Printf("   • Tags: %s\n", strings.Join(config.Tags, ", "))
		}
		fmt.Printf("   • Fail fast: %t\n", config.FailFast)
		fmt.Printf("   • Debug mode: %t\n", r.debug)
		fmt.Printf("   • Timeout: %v\n", config.Timeout)
		if config.ScenarioPath != "" {
			fmt.Printf("   • Scenario path: %s\n", config.ScenarioPath)
		}
		if config.ReportPath != "" {
			fmt.Printf("   • Report path: %s\n", config.ReportPath)
		}
		fmt.Printf("\n")
	}
}

// ReportScenarioStart is called when a scenario begins
func (r *consoleReporter) ReportScenarioStart(scenario Scenario) {
	if r.verbose {
		fmt.Printf("🎯 Starting scenario: %s", scenario.Name)
		if scenario.Suite != "" {
			fmt.Printf(" (suite: %s)", scenario.Suite)
		}
		fmt.Printf("\n")
		if scenario.Description != "" {
			fmt.Printf("   📝 Description: %s\n", scenario.Description)
		}
		if len(scenario.Tags) > 0 {
			fmt.Printf("   🏷️  Tags: %s\n", strings.Join(scenario.Tags, ", "))
		}
		fmt.Printf("   📋 Steps: %d\n", len(scenario.Steps))
		if len(scenario.Cleanup) > 0 {
			fmt.Printf("   🧹 Cleanup steps: %d\n", len(scenario.Cleanup))
		}
		if scenario.Timeout > 0 {
			fmt.Printf("   ⏱️  Timeout: %v\n", scenario.Timeout)
		}
		fmt.Printf("\n")
	} else {
		fmt.Printf("🎯 %s... ", scenario.Name)
	}
}

// ReportStepResult is called when a step completes
func (r *consoleReporter) ReportStepResult(stepResult StepResult) {
	if !r.verbose {
		return
	}

	symbol := resultSymbol(stepResult.Result)
	fmt.Printf("   %s Step: %s (%v)\n", symbol, stepResult.Step.ID, stepResult.Duration)

	if stepResult.Step.Description != "" {
		fmt.Printf("      📝 Description: %s\n", stepResult.Step.Description)
	}

	fmt.Printf("      🔧 Action: %s\n", stepResult.Step.Action)

	if stepResult.Healed {
		fmt.Printf("      🩹 Healed via strategy: %s\n", stepResult.Strategy)
	}

	if len(stepResult.Step.Args) > 0 {
		fmt.Printf("      📥 Arguments:\n")
		for key, value := range stepResult.Step.Args {
			fmt.Printf("         • %s: %s\n", key, formatValue(value))
		}
	}

	if stepResult.Response != nil {
		fmt.Printf("      📤 Response:\n")
		if responseStr := formatResponse(stepResult.Response); responseStr != "" {
			fmt.Printf("%s\n", indentText(responseStr, "         "))
		}
	}

	if stepResult.Step.Expected != nil {
		expected := stepResult.Step.Expected
		fmt.Printf("      🎯 Expectations:\n")
		if expected.Status > 0 {
			fmt.Printf("         • Status: %d\n", expected.Status)
		}
		if len(expected.Contains) > 0 {
			fmt.Printf("         • Contains: %s\n", strings.Join(expected.Contains, ", "))
		}
		if len(expected.NotContains) > 0 {
			fmt.Printf("         • Not contains: %s\n", strings.Join(expected.NotContains, ", "))
		}
		if len(expected.JSONPath) > 0 {
			fmt.Printf("         • JSON path checks: %d\n", len(expected.JSONPath))
		}
		if len(expected.ErrorContains) > 0 {
			fmt.Printf("         • Error contains: %s\n", strings.Join(expected.ErrorContains, ", "))
		}
	}

	if stepResult.Error != "" {
		fmt.Printf("      ❌ Error: %s\n", stepResult.Error)
	}

	fmt.Printf("\n")
}

// ReportScenarioResult is called when a scenario completes
func (r *consoleReporter) ReportScenarioResult(scenarioResult ScenarioResult) {
	symbol := resultSymbol(scenarioResult.Result)

	if r.verbose {
		fmt.Printf("%s Scenario completed: %s (%v)\n",
			symbol, scenarioResult.Scenario.Name, scenarioResult.Duration)

		if scenarioResult.Error != "" {
			fmt.Printf("   ❌ Scenario Error: %s\n", scenarioResult.Error)
		}

		passed, failed, errored := 0, 0, 0
		for _, stepResult := range scenarioResult.StepResults {
			switch stepResult.Result {
			case ResultPassed:
				passed++
			case ResultFailed:
				failed++
			case ResultError:
				errored++
			}
		}

		fmt.Printf("   📊 Step Summary: %d total", len(scenarioResult.StepResults))
		if passed > 0 {
			fmt.Printf(", %d ✅ passed", passed)
		}
		if failed > 0 {
			fmt.Printf(", %d ❌ failed", failed)
		}
		if errored > 0 {
			fmt.Printf(", %d 💥 errors", errored)
		}
		fmt.Printf("\n")

		if failed > 0 || errored > 0 {
			fmt.Printf("   🔍 Failed Steps:\n")
			for _, stepResult := range scenarioResult.StepResults {
				if stepResult.Result == ResultFailed || stepResult.Result == ResultError {
					fmt.Printf("      %s %s: %s\n",
						resultSymbol(stepResult.Result), stepResult.Step.ID, stepResult.Error)
				}
			}
		}

		r.reportHealings(scenarioResult)
		fmt.Printf("\n")
	} else {
		fmt.Printf("%s (%v)\n", symbol, scenarioResult.Duration)
		r.reportHealings(scenarioResult)
	}
}

// reportHealings lists healed locators so stale selectors get fixed instead
// of silently passing forever.
func (r *consoleReporter) reportHealings(scenarioResult ScenarioResult) {
	for _, healing := range scenarioResult.Healings {
		fmt.Printf("   🩹 Step %s: selector %q healed via %q - update the scenario\n",
			healing.StepID, healing.Selector, healing.Strategy)
	}
}

// ReportSuiteResult is called when the run completes
func (r *consoleReporter) ReportSuiteResult(suiteResult SuiteResult) {
	fmt.Printf("\n🏁 Run Complete\n")
	fmt.Printf("⏱️  Duration: %v\n", suiteResult.Duration)
	fmt.Printf("📊 Results:\n")
	fmt.Printf("   ✅ Passed: %d\n", suiteResult.PassedScenarios)

	if suiteResult.FailedScenarios > 0 {
		fmt.Printf("   ❌ Failed: %d\n", suiteResult.FailedScenarios)
	}
	if suiteResult.ErrorScenarios > 0 {
		fmt.Printf("   💥 Errors: %d\n", suiteResult.ErrorScenarios)
	}
	if suiteResult.SkippedScenarios > 0 {
		fmt.Printf("   ⏭️  Skipped: %d\n", suiteResult.SkippedScenarios)
	}
	fmt.Printf("   📈 Total: %d\n", suiteResult.TotalScenarios)

	successRate := 0.0
	if suiteResult.TotalScenarios > 0 {
		successRate = float64(suiteResult.PassedScenarios) / float64(suiteResult.TotalScenarios) * 100
	}
	fmt.Printf("   📏 Success Rate: %.1f%%\n", successRate)

	if suiteResult.APIMetrics.Count > 0 {
		fmt.Printf("🌐 API timings: %d requests, mean %s, p95 %s\n",
			suiteResult.APIMetrics.Count,
			suiteResult.APIMetrics.Mean.Round(time.Millisecond),
			suiteResult.APIMetrics.P95.Round(time.Millisecond))
	}

	healed := 0
	for _, scenarioResult := range suiteResult.ScenarioResults {
		healed += len(scenarioResult.Healings)
	}
	if healed > 0 {
		fmt.Printf("🩹 Healed locators: %d (see scenario output for stale selectors)\n", healed)
	}

	if suiteResult.FailedScenarios == 0 && suiteResult.ErrorScenarios == 0 {
		fmt.Printf("\n🎉 All scenarios passed!\n")
	} else {
		fmt.Printf("\n💔 Some scenarios failed\n")
	}

	if r.reportPath != "" {
		if path, err := SaveReport(suiteResult, r.reportPath); err != nil {
			fmt.Printf("⚠️  Failed to save report: %v\n", err)
		} else {
			fmt.Printf("📄 Report saved to: %s\n", path)
		}
	}
}

// SaveReport writes a timestamped JSON report into the given directory and
// returns the full path.
func SaveReport(suiteResult SuiteResult, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("mend-report-%s.json", timestamp))

	jsonData, err := json.MarshalIndent(suiteResult, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}

	return path, nil
}

// resultSymbol returns an appropriate symbol for the result
func resultSymbol(result Result) string {
	switch result {
	case ResultPassed:
		return "✅"
	case ResultFailed:
		return "❌"
	case ResultSkipped:
		return "⏭️"
	case ResultError:
		return "💥"
	default:
		return "❓"
	}
}

// formatValue formats an argument value for display
func formatValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", v)
	case map[string]interface{}, []interface{}:
		if jsonBytes, err := json.Marshal(v); err == nil {
			return string(jsonBytes)
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatResponse formats response data for display
func formatResponse(response interface{}) string {
	if response == nil {
		return ""
	}

	switch v := response.(type) {
	case map[string]interface{}, []interface{}:
		if jsonBytes, err := json.MarshalIndent(v, "", "  "); err == nil {
			return string(jsonBytes)
		}
	}

	responseStr := fmt.Sprintf("%v", response)
	const maxLength = 200
	if len(responseStr) > maxLength {
		return responseStr[:maxLength] + "..."
	}
	return responseStr
}

// indentText adds indentation to each line of text
func indentText(text, indent string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	indented := make([]string, 0, len(lines))
	for _, line := range lines {
		indented = append(indented, indent+line)
	}
	return strings.Join(indented, "\n")
}

// stringOrDefault returns the string if not empty, otherwise the default
func stringOrDefault(s, defaultValue string) string {
	if s == "" {
		return defaultValue
	}
	return s
}

// NewQuietReporter creates a reporter that only outputs essential
// information, for CI pipelines.
func NewQuietReporter() Reporter {
	return &quietReporter{}
}

type quietReporter struct{}

func (r *quietReporter) ReportStart(config Configuration) {}

func (r *quietReporter) ReportScenarioStart(scenario Scenario) {}

func (r *quietReporter) ReportStepResult(stepResult StepResult) {}

func (r *quietReporter) ReportScenarioResult(scenarioResult ScenarioResult) {
	if scenarioResult.Result == ResultFailed || scenarioResult.Result == ResultError {
		fmt.Printf("%s %s: %s\n",
			resultSymbol(scenarioResult.Result), scenarioResult.Scenario.Name, scenarioResult.Error)
	}
}

func (r *quietReporter) ReportSuiteResult(suiteResult SuiteResult) {
	if suiteResult.FailedScenarios == 0 && suiteResult.ErrorScenarios == 0 {
		fmt.Printf("✅ All %d scenarios passed (%v)\n", suiteResult.TotalScenarios, suiteResult.Duration)
	} else {
		fmt.Printf("❌ %d/%d scenarios failed (%v)\n",
			suiteResult.FailedScenarios+suiteResult.ErrorScenarios,
			suiteResult.TotalScenarios,
			suiteResult.Duration)
	}
}

// NewJSONReporter creates a reporter that prints the entire suite result as
// JSON on completion, for machine consumption.
func NewJSONReporter() Reporter {
	return &jsonReporter{}
}

type jsonReporter struct{}

func (r *jsonReporter) ReportStart(config Configuration) {}

func (r *jsonReporter) ReportScenarioStart(scenario Scenario) {}

func (r *jsonReporter) ReportStepResult(stepResult StepResult) {}

func (r *jsonReporter) ReportScenarioResult(scenarioResult ScenarioResult) {}

func (r *jsonReporter) ReportSuiteResult(suiteResult SuiteResult) {
	jsonBytes, _ := json.MarshalIndent(suiteResult, "", "  ")
	fmt.Println(string(jsonBytes))
}
