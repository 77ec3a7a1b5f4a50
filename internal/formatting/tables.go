// Package formatting renders mend's list-style command output: scenario
// listings, run history, and healing hotspots as go-pretty tables, plus
// JSON/YAML marshaling for the machine-readable output formats.
package formatting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mend/internal/harness"
	"mend/internal/history"
	pkgstrings "mend/pkg/strings"
)

// createTable creates a new table with standard styling.
func createTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

// EmptyMessage formats empty result messages.
func EmptyMessage(icon, message string) string {
	return fmt.Sprintf("%s %s\n", text.FgYellow.Sprint(icon), text.FgYellow.Sprint(message))
}

// RenderScenarios writes the scenario listing as a table. Wide mode adds
// description and timeout columns.
func RenderScenarios(out io.Writer, scenarios []harness.Scenario, wide bool) {
	if len(scenarios) == 0 {
		fmt.Fprint(out, EmptyMessage("📋", "No scenarios found"))
		return
	}

	t := createTable(out)
	header := table.Row{"NAME", "SUITE", "STEPS", "TAGS"}
	if wide {
		header = append(header, "TIMEOUT", "DESCRIPTION")
	}
	t.AppendHeader(header)

	for _, scenario := range scenarios {
		name := scenario.Name
		if scenario.Skip {
			name = name + " (skip)"
		}
		row := table.Row{
			name,
			scenario.Suite,
			len(scenario.Steps),
			strings.Join(scenario.Tags, ", "),
		}
		if wide {
			description := pkgstrings.TruncateDescription(scenario.Description, pkgstrings.DefaultDescriptionMaxLen)
			row = append(row, formatTimeout(scenario.Timeout), description)
		}
		t.AppendRow(row)
	}

	t.Render()
}

// RenderRuns writes recent history entries as a table, newest first.
func RenderRuns(out io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprint(out, EmptyMessage("📋", "No recorded runs"))
		return
	}

	t := createTable(out)
	t.AppendHeader(table.Row{"RUN", "STARTED", "DURATION", "TOTAL", "PASSED", "FAILED", "SKIPPED", "ERRORS"})

	for _, run := range runs {
		t.AppendRow(table.Row{
			shortRunID(run.RunID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond),
			run.Total,
			colorCount(run.Passed, text.FgGreen),
			colorCount(run.Failed, text.FgRed),
			run.Skipped,
			colorCount(run.Errors, text.FgRed),
		})
	}

	t.Render()
}

// RenderHealings writes the healed locators of a single run.
func RenderHealings(out io.Writer, healings []history.Healing) {
	if len(healings) == 0 {
		fmt.Fprint(out, EmptyMessage("📋", "No healed locators in this run"))
		return
	}

	t := createTable(out)
	t.AppendHeader(table.Row{"SCENARIO", "STEP", "SELECTOR", "STRATEGY"})

	for _, healing := range healings {
		selector := pkgstrings.TruncateDescription(healing.Selector, pkgstrings.DefaultDescriptionMaxLen)
		t.AppendRow(table.Row{healing.Scenario, healing.StepID, selector, healing.Strategy})
	}

	t.Render()
}

// RenderStaleSelectors writes the selectors that most often needed healing.
// A selector that keeps healing is a selector worth fixing in the scenario
// source.
func RenderStaleSelectors(out io.Writer, selectors []history.SelectorCount) {
	if len(selectors) == 0 {
		fmt.Fprint(out, EmptyMessage("📋", "No healed selectors recorded"))
		return
	}

	t := createTable(out)
	t.AppendHeader(table.Row{"SELECTOR", "LAST STRATEGY", "HEALS"})

	for _, sel := range selectors {
		t.AppendRow(table.Row{pkgstrings.TruncateDescription(sel.Selector, pkgstrings.DefaultDescriptionMaxLen), sel.Strategy, sel.Count})
	}

	t.Render()
}

func shortRunID(runID string) string {
	if len(runID) > 8 {
		return runID[:8]
	}
	return runID
}

func colorCount(n int, color text.Color) interface{} {
	if n == 0 {
		return n
	}
	return color.Sprint(n)
}

func formatTimeout(d harness.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Std().String()
}
