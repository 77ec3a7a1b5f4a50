package cli

import (
	"fmt"
	"os"
	"strings"
)

// OutputFormat represents the supported output formats for CLI commands.
type OutputFormat string

const (
	// OutputFormatTable renders a rounded table with the core columns.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide renders the table with every column.
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON renders indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML renders YAML.
	OutputFormatYAML OutputFormat = "yaml"
)

// OutputFormatEnvVar overrides the default output format for list-style
// commands when no --output flag is given.
const OutputFormatEnvVar = "MEND_OUTPUT"

// ValidOutputFormats contains all valid output format values.
var ValidOutputFormats = []OutputFormat{
	OutputFormatTable,
	OutputFormatWide,
	OutputFormatJSON,
	OutputFormatYAML,
}

// ValidateOutputFormat checks that format names a supported output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML:
		return nil
	default:
		names := make([]string, len(ValidOutputFormats))
		for i, f := range ValidOutputFormats {
			names[i] = string(f)
		}
		return NewConfigErrorf("invalid output format %q (valid: %s)", format, strings.Join(names, ", "))
	}
}

// DefaultOutputFormat returns the format to use when no flag is given: the
// MEND_OUTPUT environment variable if set and valid, otherwise table.
func DefaultOutputFormat() OutputFormat {
	if env := os.Getenv(OutputFormatEnvVar); env != "" {
		if ValidateOutputFormat(env) == nil {
			return OutputFormat(env)
		}
	}
	return OutputFormatTable
}

// OutputFormatCompletions returns the format names for shell completion.
func OutputFormatCompletions() []string {
	names := make([]string, len(ValidOutputFormats))
	for i, f := range ValidOutputFormats {
		names[i] = string(f)
	}
	return names
}

// FormatError renders an error line for terminal output.
func FormatError(err error) string {
	return fmt.Sprintf("Error: %v", err)
}

// FormatSuccess renders a success line with a check mark.
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}

// FormatWarning renders a warning line.
func FormatWarning(msg string) string {
	return fmt.Sprintf("⚠ %s", msg)
}
