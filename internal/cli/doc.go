// Package cli provides shared helpers for mend's command-line surface:
// typed errors that root maps to exit codes, output format validation for
// list-style commands, and spinner progress for long-running setup.
//
// # Exit-code errors
//
// Commands return *ConfigError for setup problems (malformed config, invalid
// flags, scenario files that fail validation) and *ConnectionError when a
// target cannot be reached (application under test, API base URL, token
// endpoint). ClassifyConnectionError categorizes raw transport errors into
// TLS, DNS, timeout, and network classes so the message tells the user what
// to check.
package cli
