// Package logging provides a structured logging system for mend built on
// Go's standard slog package.
//
// All log entries carry a level, a subsystem identifier and a formatted
// message. Two initialization modes exist:
//
//   - InitForCLI directs output to a caller-supplied writer (normally stdout)
//     and is used by the run/validate/list/history commands.
//   - InitForServe directs output to stderr so that stdout stays reserved for
//     the MCP protocol stream in serve mode.
//
// Usage:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Runner", "Executing %d scenarios", len(scenarios))
//	logging.Error("Browser", err, "Failed to launch browser")
//
// The harness and core packages do not call this package directly; they log
// through a narrow injected logger interface whose default implementation is
// backed by these functions. That keeps the locator engine and the API client
// testable without global state.
package logging
