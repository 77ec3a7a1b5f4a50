// Package strings carries small text helpers for mend's terminal output.
package strings

import (
	"strings"
)

// DefaultDescriptionMaxLen is the column budget for free-form text in table
// output. Scenario descriptions and selectors both use it so the listings
// stay aligned.
const DefaultDescriptionMaxLen = 60

// MinTruncateLen is the smallest useful maxLen: one rune plus "...".
const MinTruncateLen = 4

// TruncateDescription flattens a string to a single line and truncates it to
// maxLen runes, appending "..." when anything was cut. Newlines, tabs and
// runs of spaces collapse to single spaces first, so multi-line scenario
// descriptions fit a table cell. Truncation counts runes, not bytes, and
// never splits a multi-byte character.
func TruncateDescription(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
