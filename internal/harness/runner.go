package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mend/internal/locator"
	"mend/internal/metrics"
)

// runner implements the Runner interface
type runner struct {
	envs     EnvironmentManager
	loader   ScenarioLoader
	reporter Reporter
	recorder metrics.Recorder
	debug    bool
	logger   Logger
}

// NewRunner creates a new scenario runner
func NewRunner(envs EnvironmentManager, loader ScenarioLoader, reporter Reporter, debug bool) Runner {
	return &runner{
		envs:     envs,
		loader:   loader,
		reporter: reporter,
		debug:    debug,
		logger:   NewStdoutLogger(false, debug),
	}
}

// NewRunnerWithLogger creates a new scenario runner with custom logger
func NewRunnerWithLogger(envs EnvironmentManager, loader ScenarioLoader, reporter Reporter, debug bool, logger Logger) Runner {
	return &runner{
		envs:     envs,
		loader:   loader,
		reporter: reporter,
		debug:    debug,
		logger:   logger,
	}
}

// NewRunnerWithRecorder creates a runner that additionally forwards API
// response times to the given recorder (for example a Prometheus exporter).
func NewRunnerWithRecorder(envs EnvironmentManager, loader ScenarioLoader, reporter Reporter, debug bool, logger Logger, recorder metrics.Recorder) Runner {
	return &runner{
		envs:     envs,
		loader:   loader,
		reporter: reporter,
		recorder: recorder,
		debug:    debug,
		logger:   logger,
	}
}

// Run executes scenarios sequentially according to the configuration.
func (r *runner) Run(ctx context.Context, config Configuration, scenarios []Scenario) (*SuiteResult, error) {
	collector := metrics.NewCollector()
	recorder := metrics.Recorder(collector)
	if r.recorder != nil {
		recorder = metrics.Fanout(collector, r.recorder)
	}

	result := &SuiteResult{
		RunID:           uuid.New().String(),
		StartTime:       time.Now(),
		ScenarioResults: make([]ScenarioResult, 0, len(scenarios)),
		Configuration:   config,
	}

	r.reporter.ReportStart(config)

	filtered := r.loader.FilterScenarios(scenarios, config)
	result.TotalScenarios = len(filtered)

	for _, scenario := range filtered {
		if ctx.Err() != nil {
			break
		}

		scenarioResult := r.runScenario(ctx, scenario, config, recorder)
		result.ScenarioResults = append(result.ScenarioResults, scenarioResult)
		r.updateCounters(result, scenarioResult)
		r.reporter.ReportScenarioResult(scenarioResult)

		if config.FailFast && (scenarioResult.Result == ResultFailed || scenarioResult.Result == ResultError) {
			break
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.APIMetrics = collector.Snapshot()

	r.reporter.ReportSuiteResult(*result)

	return result, nil
}

// runScenario executes a single scenario end to end: acquire the
// environment, run steps until the first failure, then always run cleanup.
func (r *runner) runScenario(ctx context.Context, scenario Scenario, config Configuration, recorder metrics.Recorder) ScenarioResult {
	result := ScenarioResult{
		Scenario:    scenario,
		StartTime:   time.Now(),
		StepResults: make([]StepResult, 0, len(scenario.Steps)),
		Result:      ResultPassed,
	}

	r.reporter.ReportScenarioStart(scenario)

	if scenario.Skip {
		result.Result = ResultSkipped
		return r.finalizeScenario(result)
	}

	timeout := scenario.Timeout.Std()
	if timeout <= 0 {
		timeout = config.Timeout
	}
	scenarioCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		scenarioCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if r.debug {
		r.logger.Debug("🏗️  Preparing environment for scenario: %s\n", scenario.Name)
	}

	env, release, err := r.envs.Acquire(scenarioCtx, scenario, recorder, r.logger)
	if err != nil {
		result.Result = ResultError
		result.Error = fmt.Sprintf("failed to prepare environment: %v", err)
		return r.finalizeScenario(result)
	}
	defer release()

	exec := &execution{
		scenario: scenario,
		config:   config,
		env:      env,
		healing:  scenario.healingConfig().LocatorConfig(),
		rctx:     NewRunContext(scenario.Vars),
		logger:   r.logger,
	}
	if env.Page != nil {
		exec.resolver = locator.New(env.Page, r.logger)
	}

	for _, step := range scenario.Steps {
		stepResult := r.runStep(scenarioCtx, step, exec)
		result.StepResults = append(result.StepResults, stepResult)
		r.recordHealing(&result, stepResult)
		r.reporter.ReportStepResult(stepResult)

		if stepResult.Result == ResultFailed || stepResult.Result == ResultError {
			result.Result = stepResult.Result
			result.Error = stepResult.Error
			break
		}
	}

	// Cleanup always runs, on a fresh deadline when the scenario budget is
	// already spent.
	if len(scenario.Cleanup) > 0 {
		cleanupCtx := scenarioCtx
		if scenarioCtx.Err() != nil {
			var cancel context.CancelFunc
			cleanupCtx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
		}

		for _, cleanupStep := range scenario.Cleanup {
			stepResult := r.runStep(cleanupCtx, cleanupStep, exec)
			result.StepResults = append(result.StepResults, stepResult)
			r.recordHealing(&result, stepResult)
			r.reporter.ReportStepResult(stepResult)

			if stepResult.Result == ResultFailed || stepResult.Result == ResultError {
				if result.Result == ResultPassed {
					result.Result = stepResult.Result
					result.Error = stepResult.Error
				}
			}
		}
	}

	return r.finalizeScenario(result)
}

func (r *runner) finalizeScenario(result ScenarioResult) ScenarioResult {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

// runStep executes a single step: resolve templates, dispatch the action,
// register the response, then check expectations.
func (r *runner) runStep(ctx context.Context, step Step, exec *execution) StepResult {
	result := StepResult{
		Step:      step,
		StartTime: time.Now(),
		Result:    ResultPassed,
	}

	stepCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout.Std())
		defer cancel()
	}

	resolvedArgs, err := NewArgResolver(exec.rctx).ResolveArgs(step.Args)
	if err != nil {
		result.Result = ResultError
		result.Error = fmt.Sprintf("template resolution failed: %v", err)
		return r.finalizeStep(result)
	}

	response, resolution, execErr := exec.execute(stepCtx, step, resolvedArgs)

	result.Response = response
	if resolution != nil {
		result.Healed = resolution.Healed
		result.Strategy = resolution.Strategy
	}
	if response != nil {
		exec.rctx.RegisterStepResult(step.ID, response)
	}

	if expErr := checkExpectation(step.Expected, response, execErr); expErr != nil {
		result.Result = ResultFailed
		if execErr != nil && !expectsError(step.Expected) {
			result.Result = classifyError(execErr)
		}
		result.Error = expErr.Error()
	}

	return r.finalizeStep(result)
}

func (r *runner) finalizeStep(result StepResult) StepResult {
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	return result
}

// recordHealing collects healed locators so the scenario report can point
// at stale selectors.
func (r *runner) recordHealing(result *ScenarioResult, stepResult StepResult) {
	if !stepResult.Healed {
		return
	}
	result.Healings = append(result.Healings, HealingEvent{
		StepID:   stepResult.Step.ID,
		Selector: responseSelector(stepResult.Response, stepResult.Step),
		Strategy: stepResult.Strategy,
	})
}

// responseSelector pulls the resolved selector out of a registered element
// response, falling back to the raw step argument.
func responseSelector(response interface{}, step Step) string {
	if data, ok := response.(map[string]interface{}); ok {
		if selector, ok := data["selector"].(string); ok {
			return selector
		}
	}
	return optionalStringArg(step.Args, "selector")
}

// updateCounters updates the result counters based on a scenario result
func (r *runner) updateCounters(suiteResult *SuiteResult, scenarioResult ScenarioResult) {
	switch scenarioResult.Result {
	case ResultPassed:
		suiteResult.PassedScenarios++
	case ResultFailed:
		suiteResult.FailedScenarios++
	case ResultSkipped:
		suiteResult.SkippedScenarios++
	case ResultError:
		suiteResult.ErrorScenarios++
	}
}

// expectsError reports whether the expectation anticipates a step error.
func expectsError(expected *Expectation) bool {
	return expected != nil && len(expected.ErrorContains) > 0
}

// classifyError maps an execution error to FAILED or ERROR. Locator misses
// and assertion mismatches are test failures; everything else (transport,
// environment, cancellation) is an execution error.
func classifyError(err error) Result {
	var notFound *locator.NotFoundError
	var healFailed *locator.HealFailedError
	var assertion *assertionError
	if errors.As(err, &notFound) || errors.As(err, &healFailed) || errors.As(err, &assertion) {
		return ResultFailed
	}
	return ResultError
}

// healingConfig returns the scenario's healing settings, if any.
func (s Scenario) healingConfig() *HealingConfig {
	if s.Config == nil || s.Config.UI == nil {
		return nil
	}
	return s.Config.UI.Healing
}
