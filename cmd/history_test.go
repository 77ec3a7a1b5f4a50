package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mend/internal/cli"
	"mend/internal/harness"
	"mend/internal/history"
)

// writeHistoryRun records a fabricated run so the history command has
// something to read.
func writeHistoryRun(t *testing.T, dbPath, runID string, healings []harness.HealingEvent) {
	t.Helper()

	store, err := history.New(dbPath)
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	defer store.Close()

	result := &harness.SuiteResult{
		RunID:            runID,
		StartTime:        time.Now().Add(-time.Minute),
		Duration:         42 * time.Second,
		TotalScenarios:   3,
		PassedScenarios:  2,
		FailedScenarios:  1,
		Configuration:    harness.Configuration{Suite: "smoke"},
		ScenarioResults:  []harness.ScenarioResult{
			{
				Scenario: harness.Scenario{Name: "login-flow"},
				Healings: healings,
			},
		},
	}

	if err := store.WriteRun(result, ""); err != nil {
		t.Fatalf("Failed to write run: %v", err)
	}
}

// resetHistoryFlags restores the history command state mutated by a test.
func resetHistoryFlags() {
	historyCmd.Flags().Lookup("db").Changed = false
	historyDB = ""
	historyLimit = 20
	historyStale = false
	historyOutputFormat = ""
}

func useHistoryDB(t *testing.T, dbPath string) {
	t.Helper()
	if err := historyCmd.Flags().Set("db", dbPath); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
}

func TestHistoryCommand(t *testing.T) {
	if historyCmd.Use != "history [run-id]" {
		t.Errorf("Expected Use to be 'history [run-id]', got %s", historyCmd.Use)
	}

	if historyCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}

	for _, name := range []string{"db", "limit", "stale", "output"} {
		if historyCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected flag --%s to be registered", name)
		}
	}
}

func TestHistoryStaleRejectsRunID(t *testing.T) {
	defer resetHistoryFlags()

	historyStale = true
	err := historyCmd.PreRunE(historyCmd, []string{"3f2a91c8"})
	if err == nil {
		t.Fatal("Expected error for --stale with a run ID")
	}

	var configErr *cli.ConfigError
	if !errors.As(err, &configErr) {
		t.Errorf("Expected a ConfigError, got: %T", err)
	}
}

func TestRunHistoryEmptyDatabase(t *testing.T) {
	defer resetHistoryFlags()

	useHistoryDB(t, filepath.Join(t.TempDir(), "mend.db"))
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	if err := runHistory(historyCmd, []string{}); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	if !strings.Contains(buf.String(), "No recorded runs") {
		t.Errorf("Expected empty-database message. Got: %q", buf.String())
	}
}

func TestRunHistoryList(t *testing.T) {
	defer resetHistoryFlags()

	dbPath := filepath.Join(t.TempDir(), "mend.db")
	writeHistoryRun(t, dbPath, "3f2a91c8-0000-0000-0000-000000000001", nil)
	writeHistoryRun(t, dbPath, "77b0d4e2-0000-0000-0000-000000000002", nil)

	useHistoryDB(t, dbPath)
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	if err := runHistory(historyCmd, []string{}); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "3f2a91c8") {
		t.Errorf("Expected shortened run ID in listing. Got: %q", output)
	}
	if !strings.Contains(output, "77b0d4e2") {
		t.Errorf("Expected second run in listing. Got: %q", output)
	}
}

func TestRunHistoryDetailByPrefix(t *testing.T) {
	defer resetHistoryFlags()

	dbPath := filepath.Join(t.TempDir(), "mend.db")
	runID := "3f2a91c8-0000-0000-0000-000000000001"
	writeHistoryRun(t, dbPath, runID, []harness.HealingEvent{
		{StepID: "submit", Selector: "#old-submit", Strategy: "role:button"},
	})

	useHistoryDB(t, dbPath)
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	// The shortened ID from the listing must resolve to the full run
	if err := runHistory(historyCmd, []string{"3f2a91c8"}); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "Run "+runID) {
		t.Errorf("Expected full run ID in detail output. Got: %q", output)
	}
	if !strings.Contains(output, "3 total, 2 passed, 1 failed") {
		t.Errorf("Expected result summary. Got: %q", output)
	}
	if !strings.Contains(output, "#old-submit") {
		t.Errorf("Expected healed selector in output. Got: %q", output)
	}
	if !strings.Contains(output, "role:button") {
		t.Errorf("Expected healing strategy in output. Got: %q", output)
	}
}

func TestRunHistoryAmbiguousPrefix(t *testing.T) {
	defer resetHistoryFlags()

	dbPath := filepath.Join(t.TempDir(), "mend.db")
	writeHistoryRun(t, dbPath, "aaaa1111-0000-0000-0000-000000000001", nil)
	writeHistoryRun(t, dbPath, "aaaa2222-0000-0000-0000-000000000002", nil)

	useHistoryDB(t, dbPath)
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	err := runHistory(historyCmd, []string{"aaaa"})
	if err == nil {
		t.Fatal("Expected error for an ambiguous run ID prefix")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("Expected ambiguity error, got: %v", err)
	}
}

func TestRunHistoryUnknownRun(t *testing.T) {
	defer resetHistoryFlags()

	dbPath := filepath.Join(t.TempDir(), "mend.db")
	writeHistoryRun(t, dbPath, "3f2a91c8-0000-0000-0000-000000000001", nil)

	useHistoryDB(t, dbPath)
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	err := runHistory(historyCmd, []string{"deadbeef"})
	if err == nil {
		t.Fatal("Expected error for an unknown run ID")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not-found error, got: %v", err)
	}
}

func TestRunHistoryStaleSelectors(t *testing.T) {
	defer resetHistoryFlags()

	dbPath := filepath.Join(t.TempDir(), "mend.db")
	writeHistoryRun(t, dbPath, "3f2a91c8-0000-0000-0000-000000000001", []harness.HealingEvent{
		{StepID: "submit", Selector: "#old-submit", Strategy: "role:button"},
	})
	writeHistoryRun(t, dbPath, "77b0d4e2-0000-0000-0000-000000000002", []harness.HealingEvent{
		{StepID: "submit", Selector: "#old-submit", Strategy: "text"},
		{StepID: "login", Selector: "#user", Strategy: "placeholder"},
	})

	useHistoryDB(t, dbPath)
	historyStale = true
	historyOutputFormat = "table"

	var buf bytes.Buffer
	historyCmd.SetOut(&buf)

	if err := runHistory(historyCmd, []string{}); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "#old-submit") {
		t.Errorf("Expected repeatedly healed selector in output. Got: %q", output)
	}
	if !strings.Contains(output, "#user") {
		t.Errorf("Expected second selector in output. Got: %q", output)
	}
}
