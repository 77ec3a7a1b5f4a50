package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewSelfUpdateCmd(t *testing.T) {
	cmd := newSelfUpdateCmd()

	if cmd.Use != "self-update" {
		t.Errorf("Expected Use to be 'self-update', got %s", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if cmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestSelfUpdateWithDevVersion(t *testing.T) {
	// Save the original version and restore it after the test
	originalVersion := rootCmd.Version
	defer func() {
		rootCmd.Version = originalVersion
	}()

	// Set development version
	rootCmd.Version = "dev"

	err := runSelfUpdate(nil, []string{})
	if err == nil {
		t.Error("Expected error for development version")
	}

	if !strings.Contains(err.Error(), "cannot self-update a development version") {
		t.Errorf("Expected development version error, got: %v", err)
	}
}

func TestSelfUpdateWithEmptyVersion(t *testing.T) {
	// Save the original version and restore it after the test
	originalVersion := rootCmd.Version
	defer func() {
		rootCmd.Version = originalVersion
	}()

	// Set empty version
	rootCmd.Version = ""

	err := runSelfUpdate(nil, []string{})
	if err == nil {
		t.Error("Expected error for empty version")
	}

	if !strings.Contains(err.Error(), "cannot self-update a development version") {
		t.Errorf("Expected development version error, got: %v", err)
	}
}

func TestSelfUpdateCommandHelp(t *testing.T) {
	cmd := newSelfUpdateCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("Error executing help: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "latest release") {
		t.Errorf("Help output should mention the latest release. Got: %q", output)
	}
}

func TestGithubRepoSlug(t *testing.T) {
	expected := "mend-sh/mend"
	if githubRepoSlug != expected {
		t.Errorf("Expected githubRepoSlug to be %s, got %s", expected, githubRepoSlug)
	}
}
