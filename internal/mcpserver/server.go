// Package mcpserver exposes the scenario harness over the Model Context
// Protocol so coding agents can run, list, and validate scenarios and issue
// ad-hoc API requests through mend's retrying client. The server speaks
// stdio, which is why serve mode keeps stdout free of console reporting.
package mcpserver

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"mend/internal/fixture"
	"mend/internal/harness"
	"mend/internal/metrics"
)

// Server wraps the harness and exposes it via MCP.
type Server struct {
	mcpServer    *server.MCPServer
	scenarioPath string
	debug        bool
	defaults     fixture.Defaults

	envs       harness.EnvironmentManager
	runner     harness.Runner
	loader     harness.ScenarioLoader
	structured harness.StructuredReporter
	logger     harness.Logger

	recorder metrics.Recorder

	mu         sync.Mutex
	lastResult *harness.SuiteResult
}

func (s *Server) setLastResult(result *harness.SuiteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = result
}

func (s *Server) getLastResult() *harness.SuiteResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// apiBaseURL is the configured API base for ad-hoc requests. Absolute URLs
// in tool calls bypass it.
func (s *Server) apiBaseURL() string {
	return s.defaults.API.BaseURL
}

// Options configures the MCP server.
type Options struct {
	// Version is reported in the MCP handshake.
	Version string

	// ScenarioPath is the default scenario directory for tool calls that
	// do not pass their own.
	ScenarioPath string

	// Defaults seed the environments handed to scenarios.
	Defaults fixture.Defaults

	// Debug enables debug logging (to stderr, never stdout).
	Debug bool

	// Recorder receives API response timings. Nil means no recording.
	Recorder metrics.Recorder
}

// New creates an MCP server that runs scenarios on demand. The browser is
// launched lazily on the first tool call that needs one and shared across
// calls until Close.
func New(opts Options) *Server {
	mcpServer := server.NewMCPServer(
		"mend",
		opts.Version,
		server.WithToolCapabilities(false), // No tool notifications needed
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.Nop()
	}

	config := harness.DefaultConfiguration()
	config.Verbose = true // structured results carry everything; verbosity only affects logging
	config.Debug = opts.Debug
	if opts.ScenarioPath != "" {
		config.ScenarioPath = opts.ScenarioPath
	}

	envs := fixture.NewManager(opts.Defaults)
	framework := harness.NewFrameworkForMode(harness.ExecutionModeMCPServer, config, envs, recorder)

	s := &Server{
		mcpServer:    mcpServer,
		scenarioPath: config.ScenarioPath,
		debug:        opts.Debug,
		defaults:     opts.Defaults,
		envs:         envs,
		runner:       framework.Runner,
		loader:       framework.Loader,
		structured:   framework.Structured,
		logger:       framework.Logger,
		recorder:     recorder,
	}

	s.registerTools()

	return s
}

// Serve serves MCP over stdio until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer)
}

// Close releases the shared browser session, if one was started.
func (s *Server) Close() error {
	return s.envs.Close()
}

// registerTools registers all mend MCP tools.
func (s *Server) registerTools() {
	runScenariosTool := mcp.NewTool("mend_run_scenarios",
		mcp.WithDescription("Execute test scenarios and return structured results"),
		mcp.WithString("scenario",
			mcp.Description("Run a specific scenario by name"),
		),
		mcp.WithString("suite",
			mcp.Description("Filter by suite name"),
		),
		mcp.WithString("tags",
			mcp.Description("Filter by tags, comma-separated (scenario must carry all of them)"),
		),
		mcp.WithString("scenario_path",
			mcp.Description("Path to scenario files"),
		),
		mcp.WithBoolean("fail_fast",
			mcp.Description("Stop on first failure"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Overall run timeout in seconds (default 300)"),
		),
	)
	s.mcpServer.AddTool(runScenariosTool, s.handleRunScenarios)

	listScenariosTool := mcp.NewTool("mend_list_scenarios",
		mcp.WithDescription("List available test scenarios with filtering"),
		mcp.WithString("scenario_path",
			mcp.Description("Path to scenario files"),
		),
		mcp.WithString("suite",
			mcp.Description("Filter by suite name"),
		),
		mcp.WithString("tags",
			mcp.Description("Filter by tags, comma-separated"),
		),
	)
	s.mcpServer.AddTool(listScenariosTool, s.handleListScenarios)

	validateScenariosTool := mcp.NewTool("mend_validate_scenarios",
		mcp.WithDescription("Validate scenario files for structural problems without executing them"),
		mcp.WithString("scenario_path",
			mcp.Description("Path to scenario file or directory"),
		),
	)
	s.mcpServer.AddTool(validateScenariosTool, s.handleValidateScenarios)

	getResultsTool := mcp.NewTool("mend_get_results",
		mcp.WithDescription("Retrieve results from the last scenario execution"),
	)
	s.mcpServer.AddTool(getResultsTool, s.handleGetResults)

	apiRequestTool := mcp.NewTool("mend_api_request",
		mcp.WithDescription("Issue a single HTTP request through mend's retrying API client"),
		mcp.WithString("method",
			mcp.Required(),
			mcp.Description("HTTP method (GET, POST, PUT, PATCH, DELETE)"),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute URL, or a path resolved against the configured API base URL"),
		),
		mcp.WithString("body",
			mcp.Description("Request body, sent as JSON when it parses, raw otherwise"),
		),
		mcp.WithString("token",
			mcp.Description("Bearer token for this request"),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Per-request timeout in seconds (default 30)"),
		),
		mcp.WithNumber("retries",
			mcp.Description("Total attempts on transport errors (default 1, no retry)"),
		),
	)
	s.mcpServer.AddTool(apiRequestTool, s.handleAPIRequest)
}
