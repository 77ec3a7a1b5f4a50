package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()

	if cmd.Use != "version" {
		t.Errorf("Expected Use to be 'version', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("Expected Short and Long descriptions to be set")
	}
	if cmd.Run == nil {
		t.Error("Expected Run function to be set")
	}
}

func TestVersionCommandExecution(t *testing.T) {
	originalVersion := rootCmd.Version
	defer func() {
		rootCmd.Version = originalVersion
	}()

	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release version", version: "1.2.3-test", want: "mend version 1.2.3-test\n"},
		{name: "empty version", version: "", want: "mend version \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.Version = tt.version

			cmd := newVersionCmd()
			var buf bytes.Buffer
			cmd.SetOut(&buf)

			cmd.Run(cmd, []string{})

			if got := buf.String(); got != tt.want {
				t.Errorf("Expected output %q, got %q", tt.want, got)
			}
		})
	}
}

func TestVersionCommandHelp(t *testing.T) {
	cmd := newVersionCmd()

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Error executing help: %v", err)
	}

	if output := buf.String(); !strings.Contains(output, "All software has versions") {
		t.Errorf("Help output should contain the long description. Got: %q", output)
	}
}
