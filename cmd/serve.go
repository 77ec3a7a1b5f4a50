package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/harness"
	"mend/internal/mcpserver"
	"mend/internal/metrics"
	"mend/pkg/logging"
)

// serveDebug enables debug logging. Serve logs always go to stderr because
// stdout carries the MCP protocol stream.
var serveDebug bool

// serveScenarioPath overrides the scenario directory that tool calls load
// scenarios from when they do not pass their own.
var serveScenarioPath string

// serveMetricsAddr exposes API timing metrics in prometheus format on this
// address. Empty disables the listener.
var serveMetricsAddr string

// serveConfigPath specifies the configuration directory.
var serveConfigPath string

// serveCmd defines the serve command structure. It turns mend into an MCP
// server over stdio so AI assistants can list, validate and run scenarios
// as tools.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run mend as an MCP server (stdio transport)",
	Long: `The serve command speaks the Model Context Protocol over stdio and exposes
scenario execution as tools:

  mend_run_scenarios      - Run scenarios with optional suite/scenario/tag filters
  mend_list_scenarios     - List available scenarios
  mend_validate_scenarios - Statically validate scenario files
  mend_get_results        - Structured results of the last run
  mend_api_request        - One ad-hoc HTTP request through the retrying client

It is designed for integration with AI assistants: configure it in the
assistant's MCP settings and the assistant can run and inspect scenarios on
demand. Results come back as structured JSON instead of console output, and
all logging goes to stderr so stdout stays clean for the protocol.

The browser is launched lazily on the first tool call that needs one and is
shared across calls until the server shuts down.

Example usage:
  mend serve
  mend serve --scenarios=./scenarios --debug
  mend serve --metrics-addr=:9090     # Expose prometheus API timing metrics

When started as a systemd service the server signals readiness via
sd_notify.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	logging.InitForServe(logFilterLevel(false, serveDebug))

	cfg, err := config.LoadConfig(serveConfigPath)
	if err != nil {
		return cli.NewConfigError(err)
	}

	scenarioPath := cfg.Scenarios.Path
	if cmd.Flags().Changed("scenarios") {
		scenarioPath = serveScenarioPath
	}
	metricsAddr := cfg.Serve.MetricsAddress
	if cmd.Flags().Changed("metrics-addr") {
		metricsAddr = serveMetricsAddr
	}

	// Without a metrics listener nobody consumes the timings.
	recorder := metrics.Recorder(metrics.Nop())
	if metricsAddr != "" {
		prom := metrics.NewPrometheusRecorder()
		recorder = prom

		mux := http.NewServeMux()
		mux.Handle("/metrics", prom.Handler())
		metricsServer := &http.Server{Addr: metricsAddr, Handler: mux}

		go func() {
			logging.Info("Serve", "Metrics listener on %s", metricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Serve", err, "Metrics listener failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	server := mcpserver.New(mcpserver.Options{
		Version:      GetVersion(),
		ScenarioPath: harness.GetScenarioPath(scenarioPath),
		Defaults:     fixtureDefaults(cfg),
		Debug:        serveDebug,
		Recorder:     recorder,
	})
	defer server.Close()

	// Under systemd Type=notify this marks the unit ready; anywhere else the
	// call is a no-op.
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Warn("Serve", "sd_notify failed: %v", err)
	}
	defer daemon.SdNotify(false, daemon.SdNotifyStopping)

	logging.Info("Serve", "Starting mend MCP server (stdio transport)")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return server.Serve(ctx)
}

// init registers the serve command and its flags with the root command.
func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Enable debug logging (stderr)")
	serveCmd.Flags().StringVar(&serveScenarioPath, "scenarios", "", "Path to the scenario directory (default: scenarios)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Listen address for prometheus metrics (e.g. :9090)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
}
