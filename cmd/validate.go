package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/harness"
)

var (
	validateScenarioPath string
	validateSuite        string
	validateVerbose      bool
	validateConfigPath   string
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate scenario files without executing them",
	Long: `The validate command statically checks every scenario under the scenario
directory: YAML structure, required step arguments, template syntax, and
references to step results that do not exist yet.

Run it in CI before 'mend run' to catch broken scenarios without paying for
a browser launch.

Examples:
  mend validate
  mend validate --suite=checkout
  mend validate --verbose               # Show valid scenarios too

Exit code is 0 when every scenario is valid, 1 otherwise.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateScenarioPath, "scenarios", "", "Path to the scenario directory (default: scenarios)")
	validateCmd.Flags().StringVar(&validateSuite, "suite", "", "Only validate scenarios of this suite")
	validateCmd.Flags().BoolVar(&validateVerbose, "verbose", false, "Show valid scenarios in the output")
	validateCmd.Flags().StringVar(&validateConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")

	_ = validateCmd.RegisterFlagCompletionFunc("suite", completeSuiteFlag)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(validateConfigPath)
	if err != nil {
		return cli.NewConfigError(err)
	}

	scenarioPath := cfg.Scenarios.Path
	if cmd.Flags().Changed("scenarios") {
		scenarioPath = validateScenarioPath
	}

	filter := harness.Configuration{Suite: validateSuite}
	scenarios, err := harness.LoadAndFilterScenarios(scenarioPath, filter, nil)
	if err != nil {
		return err
	}

	if len(scenarios) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠️  No scenarios found in %s\n", harness.GetScenarioPath(scenarioPath))
		return nil
	}

	results := harness.ValidateScenarios(scenarios)
	fmt.Fprint(cmd.OutOrStdout(), harness.FormatValidationResults(results, validateVerbose))

	if results.InvalidScenarios > 0 {
		return fmt.Errorf("%d of %d scenarios are invalid", results.InvalidScenarios, results.TotalScenarios)
	}

	return nil
}
