// Package apiclient implements the HTTP request client used by API test
// steps.
//
// All five verb methods route through a single internal request path that
// resolves the URL against the configured base (absolute URLs bypass it),
// merges per-request headers over the client defaults, dispatches through
// the injected transport, and normalizes whatever comes back into one
// Response shape: parsed-or-raw body, lower-cased header keys, measured
// response time.
//
// Retry semantics are deliberately narrow: only transport-level failures
// (connection refused, DNS, client-side timeout) are retried, with linear
// backoff. An HTTP error status is a legitimate server answer that test
// assertions need to inspect - it is returned as a value and never retried.
//
// A client instance owns its default header set, including the bearer token
// installed via SetAuthToken. Create one client per scenario execution;
// sharing an instance across concurrent scenarios leaks auth state between
// tests.
package apiclient
