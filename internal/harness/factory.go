package harness

import (
	"fmt"
	"time"

	"mend/internal/metrics"
)

// Framework bundles the collaborators for one execution mode.
type Framework struct {
	// Runner executes scenarios
	Runner Runner
	// Loader loads and filters scenario definitions
	Loader ScenarioLoader
	// Reporter receives execution events
	Reporter Reporter
	// Structured is set in MCP server mode for programmatic result access
	Structured StructuredReporter
	// Logger is the mode-appropriate logger
	Logger Logger
}

// DefaultConfiguration returns the default run configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		Timeout:      5 * time.Minute,
		FailFast:     false,
		Verbose:      false,
		Debug:        false,
		ScenarioPath: GetDefaultScenarioPath(),
	}
}

// NewFrameworkForMode wires logger, reporter, loader and runner for the
// given execution mode. CLI mode prints to the console; MCP server mode is
// silent on stdout and collects structured results instead, because stdout
// belongs to the protocol there.
func NewFrameworkForMode(mode ExecutionMode, config Configuration, envs EnvironmentManager, recorder metrics.Recorder) *Framework {
	switch mode {
	case ExecutionModeMCPServer:
		logger := NewSilentLogger(config.Verbose, config.Debug)
		structured := NewStructuredReporter()
		loader := NewScenarioLoaderWithLogger(config.Debug, logger)
		runner := NewRunnerWithRecorder(envs, loader, structured, config.Debug, logger, recorder)
		return &Framework{
			Runner:     runner,
			Loader:     loader,
			Reporter:   structured,
			Structured: structured,
			Logger:     logger,
		}
	default:
		logger := NewStdoutLogger(config.Verbose, config.Debug)
		reporter := NewConsoleReporter(config.Verbose, config.Debug, config.ReportPath)
		loader := NewScenarioLoaderWithLogger(config.Debug, logger)
		runner := NewRunnerWithRecorder(envs, loader, reporter, config.Debug, logger, recorder)
		return &Framework{
			Runner:   runner,
			Loader:   loader,
			Reporter: reporter,
			Logger:   logger,
		}
	}
}

// ValidateConfiguration checks a run configuration for obvious mistakes
// before any scenario executes.
func ValidateConfiguration(config Configuration) error {
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}
	if config.Timeout < time.Second {
		return fmt.Errorf("timeout %v is too short, scenarios need at least 1s", config.Timeout)
	}
	return nil
}
