// Package locator implements the self-healing locator resolution engine.
//
// A step that needs an element supplies a primary query (the selector the
// scenario author wrote) together with an ElementContext of semantic hints
// (ARIA role, visible text, placeholder, test id). The resolver waits for
// the primary query first; only when that wait fails does healing begin.
//
// Healing walks a fixed strategy chain, most to least specific:
//
//	role → exact-text → placeholder → test-id → partial-text
//
// Each strategy derives one query from the context hints and is tried
// exactly once, bounded by the fallback timeout. The first strategy whose
// query becomes visible wins and is returned together with a warning log
// that names the strategy and the original selector - the signal a human
// needs to fix the stale locator. A strategy whose hint is absent derives a
// null query that matches nothing, so missing hints can never heal onto an
// unrelated element.
//
// The engine is purely functional over its inputs: it holds no state between
// calls, performs no retries (ordered fallback only), and depends solely on
// the Querier capability implemented by the browser adapter. Concurrency is
// the caller's concern; all waits honor context cancellation.
package locator
