package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/formatting"
	"mend/internal/harness"
)

var (
	listOutputFormat string
	listScenarioPath string
	listSuite        string
	listTags         []string
	listConfigPath   string
)

// completeOutputFlag provides shell completion for the output flag
func completeOutputFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return cli.OutputFormatCompletions(), cobra.ShellCompDirectiveDefault
}

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available test scenarios",
	Long: `List the scenarios found under the scenario directory.

Output formats:
  table   - Name, suite, step count and tags (default)
  wide    - Table plus timeout and description columns
  json    - Full scenario definitions as JSON
  yaml    - Full scenario definitions as YAML

Examples:
  mend list
  mend list --suite=checkout
  mend list --tags=smoke
  mend list --output wide
  mend list --output json

The default output format can also be set via the MEND_OUTPUT environment
variable.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOutputFormat, "output", "o", "", "Output format (table, wide, json, yaml)")
	listCmd.Flags().StringVar(&listScenarioPath, "scenarios", "", "Path to the scenario directory (default: scenarios)")
	listCmd.Flags().StringVar(&listSuite, "suite", "", "Only list scenarios of this suite")
	listCmd.Flags().StringSliceVar(&listTags, "tags", nil, "Only list scenarios carrying any of these tags")
	listCmd.Flags().StringVar(&listConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")

	_ = listCmd.RegisterFlagCompletionFunc("output", completeOutputFlag)
	_ = listCmd.RegisterFlagCompletionFunc("suite", completeSuiteFlag)
}

func runList(cmd *cobra.Command, args []string) error {
	format := cli.OutputFormat(listOutputFormat)
	if listOutputFormat == "" {
		format = cli.DefaultOutputFormat()
	} else if err := cli.ValidateOutputFormat(listOutputFormat); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(listConfigPath)
	if err != nil {
		return cli.NewConfigError(err)
	}

	scenarioPath := cfg.Scenarios.Path
	if cmd.Flags().Changed("scenarios") {
		scenarioPath = listScenarioPath
	}

	filter := harness.Configuration{Suite: listSuite, Tags: listTags}
	scenarios, err := harness.LoadAndFilterScenarios(scenarioPath, filter, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case cli.OutputFormatJSON:
		fmt.Fprintln(out, formatting.PrettyJSON(scenarios))
	case cli.OutputFormatYAML:
		fmt.Fprint(out, formatting.PrettyYAML(scenarios))
	default:
		formatting.RenderScenarios(out, scenarios, format == cli.OutputFormatWide)
	}

	return nil
}
