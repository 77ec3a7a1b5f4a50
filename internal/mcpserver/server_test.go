package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/fixture"
)

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return tc.Text
}

func newTestServer(t *testing.T, scenarioPath string, defaults fixture.Defaults) *Server {
	t.Helper()
	s := New(Options{
		Version:      "test",
		ScenarioPath: scenarioPath,
		Defaults:     defaults,
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHandleListScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "login.yaml", `name: login
suite: auth
tags: [smoke]
steps:
  - id: s1
    action: wait
    args:
      duration: 1ms
`)
	writeScenario(t, dir, "checkout.yaml", `name: checkout
suite: shop
steps:
  - id: s1
    action: wait
    args:
      duration: 1ms
`)

	s := newTestServer(t, dir, fixture.Defaults{})

	result, err := s.handleListScenarios(context.Background(), toolRequest("mend_list_scenarios", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &listed))
	assert.Len(t, listed, 2)

	names := []string{listed[0]["name"].(string), listed[1]["name"].(string)}
	assert.ElementsMatch(t, []string{"login", "checkout"}, names)
}

func TestHandleListScenarios_SuiteFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "login.yaml", "name: login\nsuite: auth\nsteps:\n  - id: s1\n    action: wait\n    args:\n      duration: 1ms\n")
	writeScenario(t, dir, "checkout.yaml", "name: checkout\nsuite: shop\nsteps:\n  - id: s1\n    action: wait\n    args:\n      duration: 1ms\n")

	s := newTestServer(t, dir, fixture.Defaults{})

	result, err := s.handleListScenarios(context.Background(), toolRequest("mend_list_scenarios", map[string]interface{}{
		"suite": "auth",
	}))
	require.NoError(t, err)

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "login", listed[0]["name"])
}

func TestHandleValidateScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "good.yaml", `name: good
steps:
  - id: s1
    action: navigate
    args:
      url: https://app.example.com/
`)
	writeScenario(t, dir, "bad.yaml", `name: bad
steps:
  - id: s1
    action: click
`)

	s := newTestServer(t, dir, fixture.Defaults{})

	result, err := s.handleValidateScenarios(context.Background(), toolRequest("mend_validate_scenarios", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &report))
	assert.EqualValues(t, 2, report["total_scenarios"])
	assert.EqualValues(t, 1, report["invalid_scenarios"])
}

func TestHandleGetResults_NoneYet(t *testing.T) {
	s := newTestServer(t, t.TempDir(), fixture.Defaults{})

	result, err := s.handleGetResults(context.Background(), toolRequest("mend_get_results", nil))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "No results available")
}

func TestHandleRunScenarios_APIOnly(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer backend.Close()

	dir := t.TempDir()
	writeScenario(t, dir, "health.yaml", `name: health
steps:
  - id: check
    action: api_get
    args:
      path: /health
    expected:
      status: 200
      json_path:
        status: ok
`)

	s := newTestServer(t, dir, fixture.Defaults{
		API: fixture.APIDefaults{BaseURL: backend.URL},
	})

	result, err := s.handleRunScenarios(context.Background(), toolRequest("mend_run_scenarios", map[string]interface{}{
		"scenario": "health",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "run failed: %s", textContent(t, result))

	var suite map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &suite))
	assert.EqualValues(t, 1, suite["total_scenarios"])
	assert.EqualValues(t, 1, suite["passed_scenarios"])

	// The follow-up results tool now returns the same run.
	getResult, err := s.handleGetResults(context.Background(), toolRequest("mend_get_results", nil))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, getResult), "health")
}

func TestHandleRunScenarios_NoMatches(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "login.yaml", "name: login\nsteps:\n  - id: s1\n    action: wait\n    args:\n      duration: 1ms\n")

	s := newTestServer(t, dir, fixture.Defaults{})

	result, err := s.handleRunScenarios(context.Background(), toolRequest("mend_run_scenarios", map[string]interface{}{
		"scenario": "does-not-exist",
	}))
	require.NoError(t, err)
	assert.Contains(t, textContent(t, result), "No scenarios found")
}

func TestHandleAPIRequest(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7}`))
	}))
	defer backend.Close()

	s := newTestServer(t, t.TempDir(), fixture.Defaults{})

	result, err := s.handleAPIRequest(context.Background(), toolRequest("mend_api_request", map[string]interface{}{
		"method": "post",
		"url":    backend.URL + "/things",
		"body":   `{"name":"widget"}`,
		"token":  "tok-123",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "request failed: %s", textContent(t, result))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &resp))
	assert.EqualValues(t, 201, resp["status"])
}

func TestHandleAPIRequest_MissingMethod(t *testing.T) {
	s := newTestServer(t, t.TempDir(), fixture.Defaults{})

	result, err := s.handleAPIRequest(context.Background(), toolRequest("mend_api_request", map[string]interface{}{
		"url": "https://api.example.com/things",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
