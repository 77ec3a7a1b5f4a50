package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress wraps a terminal spinner for long-running setup work such as
// launching a browser. A nil Progress is valid and does nothing, so callers
// can pass one through unconditionally and only construct it when output is
// interactive.
type Progress struct {
	s *spinner.Spinner
}

// NewProgress starts a spinner with the given suffix message.
func NewProgress(message string) *Progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Start()
	return &Progress{s: s}
}

// Update swaps the suffix message while the spinner keeps running.
func (p *Progress) Update(message string) {
	if p == nil {
		return
	}
	p.s.Suffix = " " + message
}

// Done stops the spinner without a final message.
func (p *Progress) Done() {
	if p == nil {
		return
	}
	p.s.Stop()
}

// Fail stops the spinner and prints a red failure line to stderr.
func (p *Progress) Fail(message string) {
	if p == nil {
		return
	}
	p.s.Stop()
	fmt.Fprintf(os.Stderr, "%s\n", text.FgRed.Sprint(message))
}
