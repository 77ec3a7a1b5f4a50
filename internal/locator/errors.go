package locator

import (
	"fmt"
	"strings"
)

// NotFoundError reports a primary locator failure with healing disabled.
// Fatal to the calling step; the resolver never retries it.
type NotFoundError struct {
	// Selector is the original selector from the ElementContext.
	Selector string
	// Err is the underlying wait failure.
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("element not found for selector %q (healing disabled)", e.Selector)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// HealFailedError reports that the primary locator failed and every fallback
// strategy was exhausted without a visible match. It carries the original
// selector so the message can be surfaced verbatim in the report.
type HealFailedError struct {
	// Selector is the original selector from the ElementContext.
	Selector string
	// Strategies lists the strategy names tried, in order.
	Strategies []string
}

func (e *HealFailedError) Error() string {
	return fmt.Sprintf("healing failed for selector %q: all strategies exhausted (%s)",
		e.Selector, strings.Join(e.Strategies, ", "))
}
