package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"mend/internal/cli"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "mend" {
		t.Errorf("Expected Use to be 'mend', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestVersionTemplate(t *testing.T) {
	// A fresh command keeps the template assertion off the global rootCmd.
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	testCmd.SetVersionTemplate(`{{printf "mend version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	err := testCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	output := buf.String()
	expected := "mend version 1.0.0\n"
	if output != expected {
		t.Errorf("Expected version output %q, got %q", expected, output)
	}
}

func TestSubcommands(t *testing.T) {
	commands := rootCmd.Commands()

	expectedCommands := []string{
		"run", "list", "validate", "serve", "console",
		"history", "install", "version", "self-update",
	}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "generic error",
			err:  errors.New("something broke"),
			want: ExitCodeError,
		},
		{
			name: "config error",
			err:  cli.NewConfigErrorf("bad config"),
			want: ExitCodeConfig,
		},
		{
			name: "wrapped config error",
			err:  fmt.Errorf("loading: %w", cli.NewConfigErrorf("bad config")),
			want: ExitCodeConfig,
		},
		{
			name: "connection error",
			err:  cli.ClassifyConnectionError(errors.New("connection refused"), "http://localhost:9999"),
			want: ExitCodeConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRootCommandHelp(t *testing.T) {
	// A fresh command avoids mutating the global rootCmd output streams.
	var buf bytes.Buffer
	testRootCmd := &cobra.Command{
		Use:   "mend",
		Short: "Self-healing browser and API test automation",
		Long: `mend executes YAML test scenarios against a real browser and HTTP APIs.
UI steps resolve elements through a self-healing locator engine.`,
		SilenceUsage: true,
	}

	testRootCmd.SetOut(&buf)
	testRootCmd.SetArgs([]string{"--help"})

	err := testRootCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing help command: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "mend") {
		t.Errorf("Help output should contain 'mend'. Got: %q", output)
	}

	if !strings.Contains(output, "self-healing locator engine") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
