package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlainStringPassesThrough(t *testing.T) {
	engine := New()

	result, err := engine.Render("no placeholders here", nil)

	require.NoError(t, err)
	assert.Equal(t, "no placeholders here", result)
}

func TestRenderSubstitutesVariables(t *testing.T) {
	engine := New()
	data := map[string]interface{}{
		"vars": map[string]interface{}{
			"user": "alice",
		},
	}

	result, err := engine.Render("hello {{ .vars.user }}", data)

	require.NoError(t, err)
	assert.Equal(t, "hello alice", result)
}

func TestRenderNestedStepResult(t *testing.T) {
	engine := New()
	data := map[string]interface{}{
		"steps": map[string]interface{}{
			"login": map[string]interface{}{
				"status": 201,
				"body": map[string]interface{}{
					"token": "abc123",
				},
			},
		},
	}

	result, err := engine.Render("Bearer {{ .steps.login.body.token }}", data)

	require.NoError(t, err)
	assert.Equal(t, "Bearer abc123", result)
}

func TestRenderSprigFunctions(t *testing.T) {
	engine := New()
	data := map[string]interface{}{
		"vars": map[string]interface{}{
			"name": "checkout",
		},
	}

	result, err := engine.Render("{{ upper .vars.name }}", data)

	require.NoError(t, err)
	assert.Equal(t, "CHECKOUT", result)
}

func TestRenderMissingVariableFails(t *testing.T) {
	engine := New()

	_, err := engine.Render("{{ .vars.unknown }}", map[string]interface{}{
		"vars": map[string]interface{}{},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to render template")
}

func TestRenderInvalidSyntaxFails(t *testing.T) {
	engine := New()

	_, err := engine.Render("{{ .unclosed", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid template")
}

func TestReplaceWalksMapsAndSlices(t *testing.T) {
	engine := New()
	data := map[string]interface{}{
		"vars": map[string]interface{}{
			"base": "https://api.example",
			"id":   "42",
		},
	}
	input := map[string]interface{}{
		"url": "{{ .vars.base }}/posts",
		"headers": map[string]interface{}{
			"X-Request-Id": "{{ .vars.id }}",
		},
		"tags":  []interface{}{"static", "{{ .vars.id }}"},
		"count": 3,
	}

	result, err := engine.Replace(input, data)

	require.NoError(t, err)
	resolved, ok := result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "https://api.example/posts", resolved["url"])
	headers := resolved["headers"].(map[string]interface{})
	assert.Equal(t, "42", headers["X-Request-Id"])
	tags := resolved["tags"].([]interface{})
	assert.Equal(t, []interface{}{"static", "42"}, tags)
	assert.Equal(t, 3, resolved["count"])
}

func TestReplaceReportsFailingKey(t *testing.T) {
	engine := New()
	input := map[string]interface{}{
		"body": map[string]interface{}{
			"token": "{{ .steps.missing.body.token }}",
		},
	}

	_, err := engine.Replace(input, map[string]interface{}{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), `error in key "body"`)
	assert.Contains(t, err.Error(), `error in key "token"`)
}

func TestReplaceReportsFailingIndex(t *testing.T) {
	engine := New()
	input := []interface{}{"ok", "{{ .vars.gone }}"}

	_, err := engine.Replace(input, map[string]interface{}{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "error at index 1")
}

func TestValidateAcceptsWellFormedTemplates(t *testing.T) {
	engine := New()
	input := map[string]interface{}{
		"url":  "{{ .vars.base }}/health",
		"tags": []interface{}{"{{ lower .vars.env }}"},
	}

	assert.NoError(t, engine.Validate(input))
}

func TestValidateRejectsBrokenTemplate(t *testing.T) {
	engine := New()
	input := map[string]interface{}{
		"url": "{{ .vars.base ",
	}

	err := engine.Validate(input)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `error in key "url"`)
}

func TestMergeDataLaterLayersWin(t *testing.T) {
	defaults := map[string]interface{}{"env": "staging", "retries": 1}
	overrides := map[string]interface{}{"env": "production"}

	merged := MergeData(defaults, overrides)

	assert.Equal(t, "production", merged["env"])
	assert.Equal(t, 1, merged["retries"])
}
