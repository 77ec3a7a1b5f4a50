package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"mend/internal/cli"
)

// Exit codes for CLI commands. These follow common conventions so scripts
// and CI pipelines can branch on the failure class.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error: failed scenarios, invalid
	// arguments, or a runtime fault.
	ExitCodeError = 1
	// ExitCodeConfig indicates a configuration problem (bad config file,
	// invalid flag combination).
	ExitCodeConfig = 2
	// ExitCodeConnection indicates the target (browser engine, API
	// endpoint, OAuth issuer) could not be reached.
	ExitCodeConnection = 3
)

// rootCmd represents the base command for the mend application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mend",
	Short: "Self-healing browser and API test automation",
	Long: `mend executes YAML test scenarios against a real browser and HTTP APIs.
UI steps resolve elements through a self-healing locator engine that falls
back to semantic strategies (role, text, placeholder, test id) when the
primary selector goes stale; API steps run through a retrying HTTP client
that measures every response.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main with
// the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command and exits with a semantic code when it
// fails. Called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mend version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var configErr *cli.ConfigError
	if errors.As(err, &configErr) {
		return ExitCodeConfig
	}

	var connectionErr *cli.ConnectionError
	if errors.As(err, &connectionErr) {
		return ExitCodeConnection
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
