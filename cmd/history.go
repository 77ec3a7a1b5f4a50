package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mend/internal/cli"
	"mend/internal/config"
	"mend/internal/formatting"
	"mend/internal/history"
)

var (
	historyDB           string
	historyLimit        int
	historyStale        bool
	historyOutputFormat string
	historyConfigPath   string
)

// runDetail bundles a run with its healed locators for the machine-readable
// output formats.
type runDetail struct {
	Run      history.Run       `json:"run" yaml:"run"`
	Healings []history.Healing `json:"healings" yaml:"healings"`
}

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Inspect recorded runs and healed locators",
	Long: `The history command reads the sqlite run history written by 'mend run'
when a history database is configured.

Without arguments it lists recent runs, newest first. With a run ID (full
or unique prefix) it shows that run's summary and every locator that was
healed during it.

The --stale flag aggregates healings across all recorded runs into a
hotspot list: selectors that keep needing healing are selectors worth
fixing in the scenario files.

Examples:
  mend run --history-db=mend.db       # Record runs first
  mend history --db=mend.db           # Recent runs
  mend history 3f2a91c8 --db=mend.db  # One run with its healings
  mend history --stale --db=mend.db   # Most-healed selectors
  mend history --output json          # Machine-readable output

Without --db the database path comes from the config file, falling back to
the default under the user config directory. The MEND_HISTORY_DB
environment variable overrides the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyDB, "db", "", "Path to the history database")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of entries to show")
	historyCmd.Flags().BoolVar(&historyStale, "stale", false, "Show the most frequently healed selectors across all runs")
	historyCmd.Flags().StringVarP(&historyOutputFormat, "output", "o", "", "Output format (table, json, yaml)")
	historyCmd.Flags().StringVar(&historyConfigPath, "config", config.GetDefaultConfigPathOrPanic(), "Configuration directory")

	_ = historyCmd.RegisterFlagCompletionFunc("output", completeOutputFlag)

	historyCmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if historyStale && len(args) > 0 {
			return cli.NewConfigErrorf("--stale lists selectors across all runs and cannot be combined with a run ID")
		}
		return nil
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	format := cli.OutputFormat(historyOutputFormat)
	if historyOutputFormat == "" {
		format = cli.DefaultOutputFormat()
	} else if err := cli.ValidateOutputFormat(historyOutputFormat); err != nil {
		return err
	}

	dbPath, err := historyDBPath(cmd)
	if err != nil {
		return err
	}

	store, err := history.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open history database %s: %w", dbPath, err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if historyStale {
		selectors, err := store.StaleSelectors(historyLimit)
		if err != nil {
			return err
		}
		switch format {
		case cli.OutputFormatJSON:
			fmt.Fprintln(out, formatting.PrettyJSON(selectors))
		case cli.OutputFormatYAML:
			fmt.Fprint(out, formatting.PrettyYAML(selectors))
		default:
			formatting.RenderStaleSelectors(out, selectors)
		}
		return nil
	}

	if len(args) == 1 {
		return showRunDetail(cmd, store, args[0], format)
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	switch format {
	case cli.OutputFormatJSON:
		fmt.Fprintln(out, formatting.PrettyJSON(runs))
	case cli.OutputFormatYAML:
		fmt.Fprint(out, formatting.PrettyYAML(runs))
	default:
		formatting.RenderRuns(out, runs)
	}
	return nil
}

// showRunDetail prints one run's summary and its healed locators.
func showRunDetail(cmd *cobra.Command, store *history.Store, runID string, format cli.OutputFormat) error {
	run, err := resolveRun(store, runID)
	if err != nil {
		return err
	}

	healings, err := store.HealingsForRun(run.RunID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	switch format {
	case cli.OutputFormatJSON:
		fmt.Fprintln(out, formatting.PrettyJSON(runDetail{Run: *run, Healings: healings}))
	case cli.OutputFormatYAML:
		fmt.Fprint(out, formatting.PrettyYAML(runDetail{Run: *run, Healings: healings}))
	default:
		fmt.Fprintf(out, "Run %s\n", run.RunID)
		fmt.Fprintf(out, "  Started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  Duration: %s\n", run.Duration.Round(time.Millisecond))
		if run.Suite != "" {
			fmt.Fprintf(out, "  Suite:    %s\n", run.Suite)
		}
		fmt.Fprintf(out, "  Results:  %d total, %d passed, %d failed, %d skipped, %d errors\n",
			run.Total, run.Passed, run.Failed, run.Skipped, run.Errors)
		if run.ReportPath != "" {
			fmt.Fprintf(out, "  Report:   %s\n", run.ReportPath)
		}
		fmt.Fprintln(out)
		formatting.RenderHealings(out, healings)
	}
	return nil
}

// resolveRun looks a run up by full ID first, then by unique prefix so the
// shortened IDs from the listing work as arguments.
func resolveRun(store *history.Store, runID string) (*history.Run, error) {
	run, err := store.GetRun(runID)
	if err == nil {
		return run, nil
	}

	runs, listErr := store.ListRuns(1000)
	if listErr != nil {
		return nil, err
	}

	var matches []history.Run
	for _, candidate := range runs {
		if strings.HasPrefix(candidate.RunID, runID) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 1:
		return &matches[0], nil
	case 0:
		return nil, err
	default:
		return nil, fmt.Errorf("run ID %q is ambiguous, %d runs match", runID, len(matches))
	}
}

// historyDBPath resolves the database path: flag, then config file (with
// MEND_HISTORY_DB applied), then the default location.
func historyDBPath(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("db") {
		return historyDB, nil
	}

	cfg, err := config.LoadConfig(historyConfigPath)
	if err != nil {
		return "", cli.NewConfigError(err)
	}
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}

	return config.DefaultHistoryPath(), nil
}
