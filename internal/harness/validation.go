package harness

import (
	"fmt"
	"regexp"
	"strings"

	"mend/internal/template"
)

// ScenarioValidationResult holds validation findings for a single scenario.
type ScenarioValidationResult struct {
	ScenarioName string   `json:"scenario_name" yaml:"scenario_name"`
	Suite        string   `json:"suite,omitempty" yaml:"suite,omitempty"`
	Valid        bool     `json:"valid" yaml:"valid"`
	Errors       []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ValidationResults aggregates validation across all loaded scenarios.
type ValidationResults struct {
	TotalScenarios   int                        `json:"total_scenarios" yaml:"total_scenarios"`
	ValidScenarios   int                        `json:"valid_scenarios" yaml:"valid_scenarios"`
	InvalidScenarios int                        `json:"invalid_scenarios" yaml:"invalid_scenarios"`
	TotalErrors      int                        `json:"total_errors" yaml:"total_errors"`
	TotalWarnings    int                        `json:"total_warnings" yaml:"total_warnings"`
	Results          []ScenarioValidationResult `json:"results" yaml:"results"`
}

// requiredStepArgs lists the arguments each action cannot run without.
// Values that may arrive via templates still count as present.
var requiredStepArgs = map[string][]string{
	ActionNavigate:      {"url"},
	ActionClick:         {"selector"},
	ActionFill:          {"selector", "value"},
	ActionPress:         {"key"},
	ActionAssertVisible: {"selector"},
	ActionAssertText:    {"selector", "text"},
	ActionWait:          {"duration"},
	ActionAPIGet:        {"path"},
	ActionAPIPost:       {"path"},
	ActionAPIPut:        {"path"},
	ActionAPIPatch:      {"path"},
	ActionAPIDelete:     {"path"},
	ActionAPISetToken:   {"token"},
}

var stepReferencePattern = regexp.MustCompile(`\.steps\.([A-Za-z0-9_-]+)`)

// ValidateScenarios performs static validation of loaded scenarios without
// executing them: required arguments, template syntax, and step result
// references are all checked up front.
func ValidateScenarios(scenarios []Scenario) ValidationResults {
	results := ValidationResults{
		TotalScenarios: len(scenarios),
	}

	engine := template.New()

	for _, scenario := range scenarios {
		result := validateScenarioStatic(scenario, engine)
		if result.Valid {
			results.ValidScenarios++
		} else {
			results.InvalidScenarios++
		}
		results.TotalErrors += len(result.Errors)
		results.TotalWarnings += len(result.Warnings)
		results.Results = append(results.Results, result)
	}

	return results
}

func validateScenarioStatic(scenario Scenario, engine *template.Engine) ScenarioValidationResult {
	result := ScenarioValidationResult{
		ScenarioName: scenario.Name,
		Suite:        scenario.Suite,
	}

	if scenario.Skip {
		result.Warnings = append(result.Warnings, "scenario is marked as skipped")
	}

	usesBrowser := NeedsBrowser(scenario)
	hasUIBase := scenario.Config != nil && scenario.Config.UI != nil && scenario.Config.UI.BaseURL != ""
	hasAPIBase := scenario.Config != nil && scenario.Config.API != nil && scenario.Config.API.BaseURL != ""

	// IDs a step may legally reference: everything defined before it.
	// Cleanup steps run last and may reference any main step.
	seen := map[string]bool{}

	validateSteps := func(steps []Step, phase string) {
		for _, step := range steps {
			prefix := fmt.Sprintf("%sstep %q", phase, step.ID)

			for _, arg := range requiredStepArgs[step.Action] {
				if _, ok := step.Args[arg]; !ok {
					result.Errors = append(result.Errors,
						fmt.Sprintf("%s: action %q requires argument %q", prefix, step.Action, arg))
				}
			}

			if err := engine.Validate(step.Args); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: %v", prefix, err))
			}

			for _, ref := range collectStepReferences(step.Args) {
				if !seen[ref] {
					result.Errors = append(result.Errors,
						fmt.Sprintf("%s: references result of step %q which is not defined before it", prefix, ref))
				}
			}

			if step.Action == ActionNavigate {
				if url, ok := step.Args["url"].(string); ok && !isAbsoluteURL(url) && !hasUIBase && !strings.Contains(url, "{{") {
					result.Errors = append(result.Errors,
						fmt.Sprintf("%s: relative url %q needs config.ui.base_url", prefix, url))
				}
			}

			if isAPIAction(step.Action) && step.Action != ActionAPISetToken && step.Action != ActionAPIClearToken {
				if path, ok := step.Args["path"].(string); ok && !isAbsoluteURL(path) && !hasAPIBase && !strings.Contains(path, "{{") {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("%s: relative path %q with no config.api.base_url", prefix, path))
				}
			}

			if step.Expected != nil {
				validateExpectation(step.Expected, prefix, &result)
			}

			seen[step.ID] = true
		}
	}

	validateSteps(scenario.Steps, "")
	validateSteps(scenario.Cleanup, "cleanup ")

	if usesBrowser && scenario.Config != nil && scenario.Config.UI != nil && scenario.Config.UI.Browser != "" {
		if !isSupportedBrowser(scenario.Config.UI.Browser) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("browser %q is not a known engine, will fall back to lower-cased name", scenario.Config.UI.Browser))
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func validateExpectation(expected *Expectation, prefix string, result *ScenarioValidationResult) {
	if expected.Status != 0 && (expected.Status < 100 || expected.Status > 599) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: expected status %d is outside the HTTP range", prefix, expected.Status))
	}
	for _, fragment := range expected.ErrorContains {
		if strings.TrimSpace(fragment) == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: empty error_contains fragment matches everything", prefix))
		}
	}
	if len(expected.ErrorContains) > 0 && expected.Status != 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: error_contains and status are both set, status is ignored when an error is expected", prefix))
	}
}

// collectStepReferences extracts the step IDs referenced by templates in the
// given arguments.
func collectStepReferences(value interface{}) []string {
	var refs []string
	switch v := value.(type) {
	case string:
		for _, match := range stepReferencePattern.FindAllStringSubmatch(v, -1) {
			refs = append(refs, match[1])
		}
	case map[string]interface{}:
		for _, item := range v {
			refs = append(refs, collectStepReferences(item)...)
		}
	case []interface{}:
		for _, item := range v {
			refs = append(refs, collectStepReferences(item)...)
		}
	}
	return refs
}

func isAbsoluteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func isAPIAction(action string) bool {
	return strings.HasPrefix(action, "api_")
}

func isSupportedBrowser(name string) bool {
	switch strings.ToLower(name) {
	case "chromium", "chrome", "firefox", "webkit", "safari":
		return true
	}
	return false
}

// FormatValidationResults renders validation results for terminal output.
func FormatValidationResults(results ValidationResults, verbose bool) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("🔍 Validated %d scenarios\n\n", results.TotalScenarios))

	for _, result := range results.Results {
		if result.Valid && !verbose && len(result.Warnings) == 0 {
			continue
		}

		symbol := "✅"
		if !result.Valid {
			symbol = "❌"
		}
		output.WriteString(fmt.Sprintf("%s %s", symbol, result.ScenarioName))
		if result.Suite != "" {
			output.WriteString(fmt.Sprintf(" (suite: %s)", result.Suite))
		}
		output.WriteString("\n")

		for _, errMsg := range result.Errors {
			output.WriteString(fmt.Sprintf("   ❌ %s\n", errMsg))
		}
		for _, warning := range result.Warnings {
			output.WriteString(fmt.Sprintf("   ⚠️  %s\n", warning))
		}
	}

	output.WriteString("\n📊 Summary:\n")
	output.WriteString(fmt.Sprintf("   ✅ Valid: %d\n", results.ValidScenarios))
	if results.InvalidScenarios > 0 {
		output.WriteString(fmt.Sprintf("   ❌ Invalid: %d\n", results.InvalidScenarios))
	}
	if results.TotalErrors > 0 {
		output.WriteString(fmt.Sprintf("   💥 Errors: %d\n", results.TotalErrors))
	}
	if results.TotalWarnings > 0 {
		output.WriteString(fmt.Sprintf("   ⚠️  Warnings: %d\n", results.TotalWarnings))
	}

	if results.InvalidScenarios == 0 {
		output.WriteString("\n🎉 All scenarios are valid!\n")
	}

	return output.String()
}
