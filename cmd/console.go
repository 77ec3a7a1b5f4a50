package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/console"
	"mend/internal/harness"
	"mend/pkg/logging"
)

var (
	consoleVerbose      bool
	consoleDebug        bool
	consoleScenarioPath string
	consoleBaseURL      string
	consoleAPIBaseURL   string
	consoleBrowserName  string
	consoleHeadless     bool
	consoleConfigPath   string
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive console for exploring pages and APIs",
	Long: `The console command starts an interactive prompt for trying out selectors
and API calls before committing them to a scenario file.

UI commands drive a live browser session through the same self-healing
locator engine the runner uses, so 'resolve' shows exactly which strategy
would rescue a stale selector. API commands share one client with request
history, so 'metrics' reports the timings of everything sent so far.

Available commands:
  open <url>              - Open a page (starts the browser on first use)
  resolve <selector> ...  - Resolve an element, with optional healing hints
  click / fill / text     - Interact with resolved elements
  screenshot [file]       - Capture the current page
  get/post/put/... <path> - Issue API requests
  token <value>           - Set the bearer token for API requests
  scenarios / scenario    - List or run scenario files
  metrics                 - Show API timing statistics
  help                    - Full command reference

Example usage:
  mend console
  mend console --base-url=https://staging.example.com
  mend console --headless=false       # Watch the browser while you explore

Command history is kept across sessions. Exit with 'exit' or Ctrl+D.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().BoolVar(&consoleVerbose, "verbose", false, "Enable verbose output")
	consoleCmd.Flags().BoolVar(&consoleDebug, "debug", false, "Enable debug logging")
	consoleCmd.Flags().StringVar(&consoleScenarioPath, "scenarios", "", "Path to the scenario directory (default: scenarios)")
	consoleCmd.Flags().StringVar(&consoleBaseURL, "base-url", "", "Base URL for relative open targets")
	consoleCmd.Flags().StringVar(&consoleAPIBaseURL, "api-base-url", "", "Base URL for relative API request paths")
	consoleCmd.Flags().StringVar(&consoleBrowserName, "browser", "", "Browser engine (chromium, firefox, webkit)")
	consoleCmd.Flags().BoolVar(&consoleHeadless, "headless", true, "Run the browser without a visible window")
	consoleCmd.Flags().StringVar(&consoleConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")

	_ = consoleCmd.RegisterFlagCompletionFunc("browser", completeBrowserFlag)
}

func runConsole(cmd *cobra.Command, args []string) error {
	logging.InitForCLI(logFilterLevel(consoleVerbose, consoleDebug), os.Stdout)

	// Create context with signal handling. Ctrl+C at the prompt is handled
	// by the console itself; this covers SIGTERM from outside.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cfg, err := config.LoadConfig(consoleConfigPath)
	if err != nil {
		return cli.NewConfigError(err)
	}
	if cmd.Flags().Changed("base-url") {
		cfg.UI.BaseURL = consoleBaseURL
	}
	if cmd.Flags().Changed("api-base-url") {
		cfg.API.BaseURL = consoleAPIBaseURL
	}
	if cmd.Flags().Changed("browser") {
		cfg.UI.Browser = consoleBrowserName
	}
	if cmd.Flags().Changed("headless") {
		cfg.UI.Headless = &consoleHeadless
	}
	scenarioPath := cfg.Scenarios.Path
	if cmd.Flags().Changed("scenarios") {
		scenarioPath = consoleScenarioPath
	}

	c := console.New(console.Options{
		UIBaseURL:    cfg.UI.BaseURL,
		Browser:      cfg.UI.BrowserConfig(),
		API:          fixtureDefaults(cfg).API,
		Healing:      cfg.UI.Healing.LocatorConfig(),
		ScenarioPath: harness.GetScenarioPath(scenarioPath),
		Verbose:      consoleVerbose,
		Debug:        consoleDebug,
	})

	if err := c.Run(ctx); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
