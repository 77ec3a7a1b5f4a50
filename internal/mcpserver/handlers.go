package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"mend/internal/apiclient"
	"mend/internal/harness"
)

// handleRunScenarios handles the mend_run_scenarios MCP tool.
func (s *Server) handleRunScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	config := harness.DefaultConfiguration()
	config.Verbose = true // Always verbose for MCP
	config.Debug = s.debug
	config.ScenarioPath = s.scenarioPath

	if scenario, ok := args["scenario"].(string); ok {
		config.Scenario = scenario
	}

	if suite, ok := args["suite"].(string); ok {
		config.Suite = suite
	}

	if tags, ok := args["tags"].(string); ok && tags != "" {
		config.Tags = splitTags(tags)
	}

	if scenarioPath, ok := args["scenario_path"].(string); ok && scenarioPath != "" {
		config.ScenarioPath = scenarioPath
	}

	if failFast, ok := args["fail_fast"].(bool); ok {
		config.FailFast = failFast
	}

	if timeoutSeconds, ok := args["timeout_seconds"].(float64); ok {
		if timeoutSeconds < 1 {
			return mcp.NewToolResultError("timeout_seconds must be at least 1"), nil
		}
		config.Timeout = time.Duration(timeoutSeconds * float64(time.Second))
	}

	scenarios, err := harness.LoadAndFilterScenarios(config.ScenarioPath, config, s.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load scenarios: %v", err)), nil
	}

	if len(scenarios) == 0 {
		scenarioPath := harness.GetScenarioPath(config.ScenarioPath)
		return mcp.NewToolResultText(fmt.Sprintf("No scenarios found in %s", scenarioPath)), nil
	}

	// Run with timeout protection so a hung browser cannot wedge the MCP call.
	timeoutCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	resultChan := make(chan *harness.SuiteResult, 1)
	errorChan := make(chan error, 1)

	go func() {
		result, err := s.runner.Run(timeoutCtx, config, scenarios)
		if err != nil {
			errorChan <- err
			return
		}
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		// Store result for later retrieval
		s.setLastResult(result)

		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(jsonData)), nil

	case err := <-errorChan:
		return mcp.NewToolResultError(fmt.Sprintf("Scenario execution failed: %v", err)), nil

	case <-timeoutCtx.Done():
		return mcp.NewToolResultError(fmt.Sprintf("Scenario execution timed out after %v", config.Timeout)), nil
	}
}

// handleListScenarios handles the mend_list_scenarios MCP tool.
func (s *Server) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	config := harness.DefaultConfiguration()
	config.Verbose = true
	config.Debug = s.debug
	config.ScenarioPath = s.scenarioPath

	if scenarioPath, ok := args["scenario_path"].(string); ok && scenarioPath != "" {
		config.ScenarioPath = scenarioPath
	}

	if suite, ok := args["suite"].(string); ok {
		config.Suite = suite
	}

	if tags, ok := args["tags"].(string); ok && tags != "" {
		config.Tags = splitTags(tags)
	}

	filteredScenarios, err := harness.LoadAndFilterScenarios(config.ScenarioPath, config, s.logger)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load scenarios: %v", err)), nil
	}

	// Format scenarios for output
	type ScenarioInfo struct {
		Name         string   `json:"name"`
		Suite        string   `json:"suite,omitempty"`
		Description  string   `json:"description,omitempty"`
		StepCount    int      `json:"step_count"`
		CleanupCount int      `json:"cleanup_count"`
		Tags         []string `json:"tags,omitempty"`
		Skip         bool     `json:"skip,omitempty"`
		Timeout      string   `json:"timeout,omitempty"`
	}

	scenarioList := make([]ScenarioInfo, len(filteredScenarios))
	for i, scenario := range filteredScenarios {
		info := ScenarioInfo{
			Name:         scenario.Name,
			Suite:        scenario.Suite,
			Description:  scenario.Description,
			StepCount:    len(scenario.Steps),
			CleanupCount: len(scenario.Cleanup),
			Tags:         scenario.Tags,
			Skip:         scenario.Skip,
		}

		if scenario.Timeout > 0 {
			info.Timeout = scenario.Timeout.Std().String()
		}

		scenarioList[i] = info
	}

	jsonData, err := json.MarshalIndent(scenarioList, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format scenarios: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleValidateScenarios handles the mend_validate_scenarios MCP tool.
func (s *Server) handleValidateScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	scenarioPath := s.scenarioPath
	if path, ok := args["scenario_path"].(string); ok && path != "" {
		scenarioPath = path
	}

	actualPath := harness.GetScenarioPath(scenarioPath)
	scenarios, err := s.loader.LoadScenarios(actualPath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scenario loading failed: %v", err)), nil
	}

	results := harness.ValidateScenarios(scenarios)

	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format validation results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleGetResults handles the mend_get_results MCP tool.
func (s *Server) handleGetResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.structured != nil {
		if current := s.structured.GetCurrentSuiteResult(); current != nil {
			jsonData, err := s.structured.GetResultsAsJSON()
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("Failed to get structured results: %v", err)), nil
			}
			return mcp.NewToolResultText(jsonData), nil
		}
	}

	// Fallback to lastResult if nothing is in flight
	lastResult := s.getLastResult()
	if lastResult == nil {
		return mcp.NewToolResultText("No results available. Run mend_run_scenarios first."), nil
	}

	jsonData, err := json.MarshalIndent(lastResult, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

// handleAPIRequest handles the mend_api_request MCP tool.
func (s *Server) handleAPIRequest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	method, err := request.RequireString("method")
	if err != nil {
		return mcp.NewToolResultError("method parameter is required"), nil
	}

	targetURL, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	args := request.GetArguments()

	cfg := apiclient.Config{
		BaseURL:  s.apiBaseURL(),
		Recorder: s.recorder,
		Logger:   s.logger,
	}

	if timeoutSeconds, ok := args["timeout_seconds"].(float64); ok && timeoutSeconds > 0 {
		cfg.Timeout = time.Duration(timeoutSeconds * float64(time.Second))
	}

	if retries, ok := args["retries"].(float64); ok {
		if retries < 1 {
			return mcp.NewToolResultError("retries must be at least 1 (total attempts)"), nil
		}
		cfg.Retries = int(retries)
	}

	client := apiclient.New(cfg)

	if token, ok := args["token"].(string); ok && token != "" {
		client.SetAuthToken(token)
	}

	opts := &apiclient.RequestOptions{}
	if body, ok := args["body"].(string); ok && body != "" {
		// Send parsed JSON when the body is JSON so the client encodes it
		// with the right content type; fall back to the raw string.
		var parsed interface{}
		if err := json.Unmarshal([]byte(body), &parsed); err == nil {
			opts.Body = parsed
		} else {
			opts.Body = body
		}
	}

	response, err := client.Do(ctx, strings.ToUpper(method), targetURL, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Request failed: %v", err)), nil
	}

	jsonData, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(jsonData)), nil
}

func splitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
