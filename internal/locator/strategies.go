package locator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Strategy derives an alternate query from an ElementContext. Derive is pure:
// it builds a query and performs no waiting itself.
type Strategy struct {
	// Name identifies the strategy in logs and errors.
	Name string
	// Derive produces the strategy's query. When the required context hint
	// is absent it returns a null query that matches nothing on any page.
	Derive func(q Querier, ectx ElementContext) Query
}

// healingStrategies is the fixed fallback order, most to least specific:
// role queries are least likely to produce a false positive, partial text is
// the most permissive and therefore last. The slice is built once and never
// mutated during a run.
var healingStrategies = []Strategy{
	{
		Name: "role",
		Derive: func(q Querier, ectx ElementContext) Query {
			if ectx.Role == "" {
				return nullQuery{hint: "role"}
			}
			return q.ByRole(ectx.Role)
		},
	},
	{
		Name: "exact-text",
		Derive: func(q Querier, ectx ElementContext) Query {
			if ectx.Text == "" {
				return nullQuery{hint: "text"}
			}
			return q.ByText(ectx.Text, true)
		},
	},
	{
		Name: "placeholder",
		Derive: func(q Querier, ectx ElementContext) Query {
			if ectx.Placeholder == "" {
				return nullQuery{hint: "placeholder"}
			}
			return q.ByPlaceholder(ectx.Placeholder)
		},
	},
	{
		Name: "test-id",
		Derive: func(q Querier, ectx ElementContext) Query {
			if ectx.TestID == "" {
				return nullQuery{hint: "test_id"}
			}
			return q.ByTestID(ectx.TestID)
		},
	},
	{
		Name: "partial-text",
		Derive: func(q Querier, ectx ElementContext) Query {
			if ectx.Text == "" {
				return nullQuery{hint: "text"}
			}
			return q.ByText(ectx.Text, false)
		},
	},
}

// StrategyNames returns the fallback strategy names in their fixed order.
// Used by the validate command and the serve tools to describe the engine.
func StrategyNames() []string {
	names := make([]string, len(healingStrategies))
	for i, s := range healingStrategies {
		names[i] = s.Name
	}
	return names
}

// errNoMatch marks a query known to match zero elements.
var errNoMatch = errors.New("query matches no elements")

// nullQuery is the query derived when a strategy's required hint is absent.
// It matches nothing regardless of page contents, so a missing hint can
// never heal onto an unrelated element. Its waits fail without consuming
// the fallback timeout since the empty match set is known up front.
type nullQuery struct {
	hint string
}

func (n nullQuery) WaitVisible(context.Context, time.Duration) error {
	return n.err()
}

func (n nullQuery) err() error {
	return fmt.Errorf("context hint %q absent: %w", n.hint, errNoMatch)
}

func (n nullQuery) First() Query { return n }

func (n nullQuery) Click(context.Context) error { return n.err() }

func (n nullQuery) Fill(context.Context, string) error { return n.err() }

func (n nullQuery) Text(context.Context) (string, error) { return "", n.err() }

func (n nullQuery) Visible(context.Context) (bool, error) { return false, nil }
