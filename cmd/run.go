package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mend/internal/browser"
	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/fixture"
	"mend/internal/harness"
	"mend/internal/history"
	"mend/internal/metrics"
	"mend/internal/watcher"
	"mend/pkg/logging"
)

var (
	runTimeout        time.Duration
	runVerbose        bool
	runDebug          bool
	runSuite          string
	runScenario       string
	runTags           []string
	runFailFast       bool
	runScenarioPath   string
	runReportPath     string
	runScreenshotPath string
	runBaseURL        string
	runAPIBaseURL     string
	runBrowserName    string
	runHeadless       bool
	runHistoryDB      string
	runWatch          bool
	runConfigPath     string
)

// completeScenarioFlag provides shell completion for the scenario flag by loading available scenarios
func completeScenarioFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	scenarios, err := harness.LoadScenariosForCompletion(runScenarioPath)
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveDefault
	}

	var scenarioNames []string
	for _, scenario := range scenarios {
		scenarioNames = append(scenarioNames, scenario.Name)
	}

	return scenarioNames, cobra.ShellCompDirectiveDefault
}

// completeSuiteFlag provides shell completion for the suite flag from the
// suites present in the scenario files
func completeSuiteFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	scenarios, err := harness.LoadScenariosForCompletion(runScenarioPath)
	if err != nil {
		return []string{}, cobra.ShellCompDirectiveDefault
	}

	seen := make(map[string]bool)
	var suites []string
	for _, scenario := range scenarios {
		if scenario.Suite != "" && !seen[scenario.Suite] {
			seen[scenario.Suite] = true
			suites = append(suites, scenario.Suite)
		}
	}

	return suites, cobra.ShellCompDirectiveDefault
}

// completeBrowserFlag provides shell completion for the browser flag
func completeBrowserFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return []string{browser.BrowserChromium, browser.BrowserFirefox, browser.BrowserWebKit}, cobra.ShellCompDirectiveDefault
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute test scenarios against a browser and HTTP APIs",
	Long: `The run command loads YAML scenarios and executes them sequentially.
UI steps drive a real browser through Playwright and resolve elements via the
self-healing locator engine; API steps go through the retrying HTTP client.

Scenario selection:
1. Full run (default): every scenario under the scenario directory
2. Suite-based: run one suite (--suite)
3. Tag-based: run scenarios carrying any of the given tags (--tags)
4. Single scenario: run one scenario by name (--scenario)

Configuration precedence is flag > environment > config file > default.
Environment overrides: MEND_BASE_URL, MEND_API_BASE_URL, MEND_AUTH_TOKEN,
MEND_HISTORY_DB.

Example usage:
  mend run                                 # Run all scenarios
  mend run --suite=checkout                # Run the checkout suite
  mend run --tags=smoke,regression         # Run scenarios tagged smoke or regression
  mend run --scenario=login-happy-path     # Run a single scenario
  mend run --verbose --debug               # Detailed output and debugging
  mend run --fail-fast                     # Stop on first failure
  mend run --headless=false                # Watch the browser work
  mend run --watch                         # Re-run on scenario file changes
  mend run --report=reports/               # Save a JSON report
  mend run --history-db=mend.db            # Record the run in sqlite history

Each run gets a unique run ID. When a history database is configured the
run summary and every healed locator are recorded there; inspect them with
'mend history'.

Exit code is 0 when all scenarios pass, 1 when any fail or error.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Run execution configuration
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 5*time.Minute, "Per-scenario timeout for scenarios that do not set their own")
	runCmd.Flags().BoolVar(&runFailFast, "fail-fast", false, "Stop execution on first failed scenario")
	runCmd.Flags().BoolVar(&runWatch, "watch", false, "Watch the scenario directory and re-run on changes")

	// Output and debugging
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Enable verbose step-by-step output")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging")

	// Scenario selection and filtering
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Run a specific scenario by name")
	runCmd.Flags().StringVar(&runSuite, "suite", "", "Run scenarios of a specific suite")
	runCmd.Flags().StringSliceVar(&runTags, "tags", nil, "Run scenarios carrying any of these tags")

	// Target endpoints
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "Base URL for relative navigate targets")
	runCmd.Flags().StringVar(&runAPIBaseURL, "api-base-url", "", "Base URL for relative API request paths")

	// Browser configuration
	runCmd.Flags().StringVar(&runBrowserName, "browser", "", "Browser engine (chromium, firefox, webkit)")
	runCmd.Flags().BoolVar(&runHeadless, "headless", true, "Run the browser without a visible window")

	// Paths and artifacts
	runCmd.Flags().StringVar(&runScenarioPath, "scenarios", "", "Path to the scenario directory (default: scenarios)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Directory for JSON run reports (default: stdout only)")
	runCmd.Flags().StringVar(&runScreenshotPath, "screenshots", "", "Directory for screenshot action output")
	runCmd.Flags().StringVar(&runHistoryDB, "history-db", "", "Path to the sqlite run history database")
	runCmd.Flags().StringVar(&runConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")

	// Shell completion for run flags
	_ = runCmd.RegisterFlagCompletionFunc("scenario", completeScenarioFlag)
	_ = runCmd.RegisterFlagCompletionFunc("suite", completeSuiteFlag)
	_ = runCmd.RegisterFlagCompletionFunc("browser", completeBrowserFlag)

	// A single named scenario already pins the selection
	runCmd.MarkFlagsMutuallyExclusive("scenario", "suite")
	runCmd.MarkFlagsMutuallyExclusive("scenario", "tags")

	// Validate flag sanity before any work happens
	runCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if err := harness.ValidateConfiguration(harness.Configuration{Timeout: runTimeout}); err != nil {
			return cli.NewConfigError(err)
		}
		return nil
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logFilterLevel(runVerbose, runDebug), os.Stdout)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupts gracefully
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, stopping scenarios gracefully...")
		cancel()
	}()

	cfg, err := config.LoadConfig(runConfigPath)
	if err != nil {
		return cli.NewConfigError(err)
	}
	applyRunFlagOverrides(cmd, &cfg)

	runConfig := harness.Configuration{
		Timeout:        runTimeout,
		Suite:          runSuite,
		Scenario:       runScenario,
		Tags:           runTags,
		FailFast:       runFailFast,
		Verbose:        runVerbose,
		Debug:          runDebug,
		ScenarioPath:   harness.GetScenarioPath(cfg.Scenarios.Path),
		ReportPath:     cfg.Report.Path,
		ScreenshotPath: cfg.Report.Screenshots,
	}

	if runWatch {
		return runWatchLoop(ctx, runConfig, cfg)
	}

	passed, err := executeRun(ctx, runConfig, cfg)
	if err != nil {
		return err
	}

	// Set exit code based on results
	if !passed {
		os.Exit(ExitCodeError)
	}

	return nil
}

// executeRun performs one complete scenario run and reports whether every
// scenario passed.
func executeRun(ctx context.Context, runConfig harness.Configuration, cfg config.MendConfig) (bool, error) {
	envs := fixture.NewManager(fixtureDefaults(cfg))
	defer envs.Close()

	framework := harness.NewFrameworkForMode(harness.ExecutionModeCLI, runConfig, envs, metrics.Nop())

	scenarios, err := framework.Loader.LoadScenarios(runConfig.ScenarioPath)
	if err != nil {
		return false, fmt.Errorf("failed to load scenarios: %w", err)
	}
	applyHealingDefaults(scenarios, cfg.UI.Healing)

	if len(scenarios) == 0 {
		fmt.Printf("⚠️  No scenarios found in %s\n", runConfig.ScenarioPath)
		fmt.Printf("💡 Scenario files are YAML documents, for example:\n")
		fmt.Printf("   • scenarios/login.yaml\n")
		fmt.Printf("   • scenarios/checkout/purchase.yaml\n")
		return true, nil
	}

	// Browser startup takes a few seconds. Doing it before the first
	// scenario keeps the launch cost out of that scenario's timing, and the
	// spinner shows why nothing is happening yet.
	if selectionNeedsBrowser(framework.Loader.FilterScenarios(scenarios, runConfig)) {
		progress := cli.NewProgress(fmt.Sprintf("Starting %s...", cfg.UI.BrowserConfig().Browser))
		if err := envs.WarmBrowser(ctx); err != nil {
			progress.Fail(fmt.Sprintf("Browser failed to start: %v", err))
			return false, cli.ClassifyConnectionError(err, "browser")
		}
		progress.Done()
	}

	result, err := framework.Runner.Run(ctx, runConfig, scenarios)
	if err != nil {
		return false, fmt.Errorf("scenario execution failed: %w", err)
	}

	recordRunHistory(cfg, result)

	return result.FailedScenarios == 0 && result.ErrorScenarios == 0, nil
}

// runWatchLoop runs the suite, then re-runs it whenever a scenario file
// changes, until the context is cancelled.
func runWatchLoop(ctx context.Context, runConfig harness.Configuration, cfg config.MendConfig) error {
	// Buffered so a change arriving mid-run is not lost; further changes
	// during the same run coalesce into the pending one.
	changes := make(chan struct{}, 1)
	w := watcher.New(watcher.Config{
		Dir: runConfig.ScenarioPath,
		OnChange: func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		},
	})
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start scenario watcher: %w", err)
	}
	defer w.Stop()

	for {
		if _, err := executeRun(ctx, runConfig, cfg); err != nil {
			// A broken run in watch mode is feedback, not a reason to exit.
			fmt.Printf("%s\n", cli.FormatError(err))
		}

		fmt.Printf("\n👀 Watching %s for changes (Ctrl+C to stop)...\n", runConfig.ScenarioPath)

		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			fmt.Printf("\n🔄 Scenario files changed, re-running...\n\n")
		}
	}
}

// applyRunFlagOverrides layers explicitly set command line flags over the
// loaded configuration, so config file values survive invocations that do
// not mention them.
func applyRunFlagOverrides(cmd *cobra.Command, cfg *config.MendConfig) {
	if cmd.Flags().Changed("scenarios") {
		cfg.Scenarios.Path = runScenarioPath
	}
	if cmd.Flags().Changed("base-url") {
		cfg.UI.BaseURL = runBaseURL
	}
	if cmd.Flags().Changed("api-base-url") {
		cfg.API.BaseURL = runAPIBaseURL
	}
	if cmd.Flags().Changed("browser") {
		cfg.UI.Browser = runBrowserName
	}
	if cmd.Flags().Changed("headless") {
		cfg.UI.Headless = &runHeadless
	}
	if cmd.Flags().Changed("report") {
		cfg.Report.Path = runReportPath
	}
	if cmd.Flags().Changed("screenshots") {
		cfg.Report.Screenshots = runScreenshotPath
	}
	if cmd.Flags().Changed("history-db") {
		cfg.History.Path = runHistoryDB
	}
}

// applyHealingDefaults pushes the global healing configuration into every
// scenario that does not carry its own. Healing settings are read from the
// scenario during execution, so the merge happens at load time.
func applyHealingDefaults(scenarios []harness.Scenario, healing *harness.HealingConfig) {
	if healing == nil {
		return
	}
	for i := range scenarios {
		if scenarios[i].Config == nil {
			scenarios[i].Config = &harness.ScenarioConfig{}
		}
		if scenarios[i].Config.UI == nil {
			scenarios[i].Config.UI = &harness.UIConfig{}
		}
		if scenarios[i].Config.UI.Healing == nil {
			scenarios[i].Config.UI.Healing = healing
		}
	}
}

// selectionNeedsBrowser reports whether any scenario in the selection has a
// UI step. API-only runs never pay for a browser launch.
func selectionNeedsBrowser(scenarios []harness.Scenario) bool {
	for _, scenario := range scenarios {
		if harness.NeedsBrowser(scenario) {
			return true
		}
	}
	return false
}

// fixtureDefaults converts the loaded configuration into the per-scenario
// environment defaults.
func fixtureDefaults(cfg config.MendConfig) fixture.Defaults {
	return fixture.Defaults{
		UIBaseURL: cfg.UI.BaseURL,
		Browser:   cfg.UI.BrowserConfig(),
		API: fixture.APIDefaults{
			BaseURL:   cfg.API.BaseURL,
			Timeout:   cfg.API.Timeout.Std(),
			Retries:   cfg.API.Retries,
			AuthToken: cfg.API.AuthToken,
			OAuth:     cfg.API.OAuth,
		},
	}
}

// recordRunHistory writes the run into the sqlite history when one is
// configured. History failures never fail the run itself.
func recordRunHistory(cfg config.MendConfig, result *harness.SuiteResult) {
	if cfg.History.Path == "" {
		return
	}

	store, err := history.New(cfg.History.Path)
	if err != nil {
		fmt.Printf("%s\n", cli.FormatWarning(fmt.Sprintf("Could not open history database: %v", err)))
		return
	}
	defer store.Close()

	if err := store.WriteRun(result, cfg.Report.Path); err != nil {
		fmt.Printf("%s\n", cli.FormatWarning(fmt.Sprintf("Could not record run history: %v", err)))
		return
	}

	logging.Debug("Run", "Recorded run %s in history database %s", result.RunID, cfg.History.Path)
}

// logFilterLevel maps the shared verbosity flags onto the logging filter.
func logFilterLevel(verbose, debug bool) logging.LogLevel {
	switch {
	case debug:
		return logging.LevelDebug
	case verbose:
		return logging.LevelInfo
	default:
		return logging.LevelWarn
	}
}
