package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScenariosAllValid(t *testing.T) {
	scenarios := []Scenario{{
		Name: "ok",
		Config: &ScenarioConfig{
			UI:  &UIConfig{BaseURL: "https://app.example.com"},
			API: &APIConfig{BaseURL: "https://api.example.com"},
		},
		Steps: []Step{
			{ID: "open", Action: ActionNavigate, Args: map[string]interface{}{"url": "/login"}},
			{ID: "fetch", Action: ActionAPIGet, Args: map[string]interface{}{"path": "/v1/me"}},
		},
	}}

	results := ValidateScenarios(scenarios)
	assert.Equal(t, 1, results.TotalScenarios)
	assert.Equal(t, 1, results.ValidScenarios)
	assert.Zero(t, results.InvalidScenarios)
	assert.Zero(t, results.TotalErrors)
}

func TestValidateScenariosMissingRequiredArg(t *testing.T) {
	scenarios := []Scenario{{
		Name: "incomplete",
		Steps: []Step{
			{ID: "fill", Action: ActionFill, Args: map[string]interface{}{"selector": "#user"}},
		},
	}}

	results := ValidateScenarios(scenarios)
	assert.Equal(t, 1, results.InvalidScenarios)
	require.Len(t, results.Results, 1)
	require.Len(t, results.Results[0].Errors, 1)
	assert.Contains(t, results.Results[0].Errors[0], `requires argument "value"`)
}

func TestValidateScenariosBadTemplateSyntax(t *testing.T) {
	scenarios := []Scenario{{
		Name: "broken-template",
		Steps: []Step{
			{ID: "fetch", Action: ActionAPIGet, Args: map[string]interface{}{
				"path": "/v1/{{ .vars.id",
			}},
		},
	}}

	results := ValidateScenarios(scenarios)
	assert.Equal(t, 1, results.InvalidScenarios)
	assert.Equal(t, 1, results.TotalErrors)
}

func TestValidateScenariosForwardStepReference(t *testing.T) {
	scenarios := []Scenario{{
		Name: "forward-ref",
		Steps: []Step{
			{ID: "use", Action: ActionAPIGet, Args: map[string]interface{}{
				"path": "/v1/items/{{ .steps.create.body.id }}",
			}},
			{ID: "create", Action: ActionAPIPost, Args: map[string]interface{}{"path": "/v1/items"}},
		},
	}}

	results := ValidateScenarios(scenarios)
	require.Len(t, results.Results, 1)
	require.NotEmpty(t, results.Results[0].Errors)
	assert.Contains(t, results.Results[0].Errors[0], `references result of step "create"`)
}

func TestValidateScenariosCleanupMayReferenceMainSteps(t *testing.T) {
	scenarios := []Scenario{{
		Name: "cleanup-ref",
		Steps: []Step{
			{ID: "create", Action: ActionAPIPost, Args: map[string]interface{}{"path": "/v1/items"}},
		},
		Cleanup: []Step{
			{ID: "delete", Action: ActionAPIDelete, Args: map[string]interface{}{
				"path": "/v1/items/{{ .steps.create.body.id }}",
			}},
		},
	}}

	results := ValidateScenarios(scenarios)
	assert.Equal(t, 1, results.ValidScenarios)
	assert.Zero(t, results.TotalErrors)
}

func TestValidateScenariosRelativeNavigateNeedsBaseURL(t *testing.T) {
	scenarios := []Scenario{{
		Name: "no-base",
		Steps: []Step{
			{ID: "open", Action: ActionNavigate, Args: map[string]interface{}{"url": "/login"}},
		},
	}}

	results := ValidateScenarios(scenarios)
	require.NotEmpty(t, results.Results[0].Errors)
	assert.Contains(t, results.Results[0].Errors[0], "needs config.ui.base_url")
}

func TestValidateScenariosAbsoluteNavigateNeedsNoBase(t *testing.T) {
	scenarios := []Scenario{{
		Name: "absolute",
		Steps: []Step{
			{ID: "open", Action: ActionNavigate, Args: map[string]interface{}{"url": "https://example.com"}},
		},
	}}

	results := ValidateScenarios(scenarios)
	assert.Equal(t, 1, results.ValidScenarios)
}

func TestValidateScenariosWarnings(t *testing.T) {
	scenarios := []Scenario{{
		Name: "warny",
		Skip: true,
		Steps: []Step{
			{
				ID:     "fetch",
				Action: ActionAPIGet,
				Args:   map[string]interface{}{"path": "https://api.example.com/v1/x"},
				Expected: &Expectation{
					Status:        999,
					ErrorContains: []string{"boom"},
				},
			},
		},
	}}

	results := ValidateScenarios(scenarios)
	require.Len(t, results.Results, 1)
	result := results.Results[0]
	assert.True(t, result.Valid, "warnings alone do not invalidate")
	assert.Contains(t, result.Warnings, "scenario is marked as skipped")

	var sawStatusRange, sawIgnoredStatus bool
	for _, warning := range result.Warnings {
		switch {
		case strings.Contains(warning, "outside the HTTP range"):
			sawStatusRange = true
		case strings.Contains(warning, "status is ignored"):
			sawIgnoredStatus = true
		}
	}
	assert.True(t, sawStatusRange)
	assert.True(t, sawIgnoredStatus)
}

func TestFormatValidationResults(t *testing.T) {
	results := ValidationResults{
		TotalScenarios:   2,
		ValidScenarios:   1,
		InvalidScenarios: 1,
		TotalErrors:      1,
		Results: []ScenarioValidationResult{
			{ScenarioName: "good", Valid: true},
			{ScenarioName: "bad", Valid: false, Errors: []string{"something is off"}},
		},
	}

	output := FormatValidationResults(results, false)
	assert.Contains(t, output, "Validated 2 scenarios")
	assert.Contains(t, output, "❌ bad")
	assert.Contains(t, output, "something is off")
	assert.NotContains(t, output, "✅ good", "valid scenarios are hidden unless verbose")

	verbose := FormatValidationResults(results, true)
	assert.Contains(t, verbose, "✅ good")
}
