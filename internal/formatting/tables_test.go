package formatting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mend/internal/harness"
	"mend/internal/history"
)

func TestRenderScenarios(t *testing.T) {
	scenarios := []harness.Scenario{
		{
			Name:  "login-flow",
			Suite: "auth",
			Tags:  []string{"smoke", "ui"},
			Steps: []harness.Step{{ID: "a"}, {ID: "b"}},
		},
		{
			Name:  "flaky-checkout",
			Suite: "shop",
			Skip:  true,
			Steps: []harness.Step{{ID: "a"}},
		},
	}

	var buf bytes.Buffer
	RenderScenarios(&buf, scenarios, false)
	out := buf.String()

	assert.Contains(t, out, "login-flow")
	assert.Contains(t, out, "auth")
	assert.Contains(t, out, "smoke, ui")
	assert.Contains(t, out, "flaky-checkout (skip)")
	assert.NotContains(t, out, "DESCRIPTION", "description column is wide-only")
}

func TestRenderScenarios_Wide(t *testing.T) {
	scenarios := []harness.Scenario{
		{
			Name:        "login-flow",
			Description: "Sign in with valid credentials",
			Timeout:     harness.Duration(90 * time.Second),
		},
		{
			Name: "checkout-flow",
			Description: "Adds three items to the cart, applies a discount code,\n" +
				"pays with a stored card and verifies the confirmation mail trigger",
		},
	}

	var buf bytes.Buffer
	RenderScenarios(&buf, scenarios, true)
	out := buf.String()

	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "Sign in with valid credentials")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "...", "long descriptions are truncated")
	assert.NotContains(t, out, "trigger", "truncation drops the tail")
}

func TestRenderScenarios_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderScenarios(&buf, nil, false)
	assert.Contains(t, buf.String(), "No scenarios found")
}

func TestRenderRuns(t *testing.T) {
	runs := []history.Run{
		{
			RunID:     "0b5fa1f2-8f07-4c5e-9a6d-0123456789ab",
			StartedAt: time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC),
			Duration:  92*time.Second + 150*time.Millisecond,
			Total:     12,
			Passed:    10,
			Failed:    1,
			Skipped:   1,
		},
	}

	var buf bytes.Buffer
	RenderRuns(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "0b5fa1f2", "run IDs are shortened")
	assert.NotContains(t, out, "0b5fa1f2-8f07")
	assert.Contains(t, out, "1m32.15s")
	assert.Contains(t, out, "12")
}

func TestRenderStaleSelectors(t *testing.T) {
	selectors := []history.SelectorCount{
		{Selector: "#login-btn", Strategy: "role", Count: 7},
		{Selector: ".old-banner", Strategy: "exact-text", Count: 2},
	}

	var buf bytes.Buffer
	RenderStaleSelectors(&buf, selectors)
	out := buf.String()

	assert.Contains(t, out, "#login-btn")
	assert.Contains(t, out, "role")
	assert.Contains(t, out, "7")
}

func TestPrettyJSON(t *testing.T) {
	out := PrettyJSON(map[string]interface{}{"name": "test", "value": 42})
	assert.Contains(t, out, "\"name\": \"test\"")
	assert.Contains(t, out, "\"value\": 42")
	assert.True(t, strings.HasPrefix(out, "{"))
}

func TestPrettyYAML(t *testing.T) {
	out := PrettyYAML(map[string]string{"name": "test"})
	assert.Contains(t, out, "name: test")
}
