package harness

import (
	"fmt"
	"io"
	"os"
)

// stdoutLogger implements Logger for CLI mode. Debug and info lines are
// gated by the verbosity flags, warnings always print, errors go to stderr.
type stdoutLogger struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	debug   bool
}

// NewStdoutLogger creates the CLI-mode logger.
func NewStdoutLogger(verbose, debug bool) Logger {
	return &stdoutLogger{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
		debug:   debug,
	}
}

func (l *stdoutLogger) Debug(format string, args ...interface{}) {
	if l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *stdoutLogger) Info(format string, args ...interface{}) {
	if l.verbose || l.debug {
		fmt.Fprintf(l.out, format, args...)
	}
}

func (l *stdoutLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(l.out, format, args...)
}

func (l *stdoutLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(l.errOut, format, args...)
}

func (l *stdoutLogger) IsDebugEnabled() bool   { return l.debug }
func (l *stdoutLogger) IsVerboseEnabled() bool { return l.verbose }

// silentLogger implements Logger for MCP server mode. It drops every line so
// nothing contaminates the stdio protocol stream, while still reporting the
// configured verbosity to callers that branch on it.
type silentLogger struct {
	verbose bool
	debug   bool
}

// NewSilentLogger creates the serve-mode logger.
func NewSilentLogger(verbose, debug bool) Logger {
	return &silentLogger{verbose: verbose, debug: debug}
}

func (l *silentLogger) Debug(format string, args ...interface{}) {}
func (l *silentLogger) Info(format string, args ...interface{})  {}
func (l *silentLogger) Warn(format string, args ...interface{})  {}
func (l *silentLogger) Error(format string, args ...interface{}) {}

func (l *silentLogger) IsDebugEnabled() bool   { return l.debug }
func (l *silentLogger) IsVerboseEnabled() bool { return l.verbose }
