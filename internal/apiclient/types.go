package apiclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is the default attempt budget. 1 means a single
	// attempt with no retry.
	DefaultRetries = 1

	// backoffUnit is the linear backoff base: the wait after attempt n is
	// n × backoffUnit.
	backoffUnit = 1 * time.Second
)

// Doer is the transport capability the client dispatches requests through.
// *http.Client satisfies it; tests inject fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the observational logging seam. Logging never affects request
// control flow.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// RequestOptions carries per-request overrides. The zero value means "use
// the client defaults" for every field.
type RequestOptions struct {
	// Headers overrides or extends the client default headers for this
	// request only.
	Headers map[string]string
	// Params is appended to the URL as query parameters, for all methods.
	Params map[string]string
	// Body is the request payload, transmitted only for POST, PUT and
	// PATCH. Strings and byte slices are sent as-is; any other value is
	// JSON-encoded.
	Body interface{}
	// Timeout overrides the client's per-request timeout.
	Timeout time.Duration
	// Retries overrides the client's attempt budget. The value counts
	// total attempts: 1 = no retry, 3 = up to three attempts.
	Retries int
}

// Response is the normalized outcome of a request. It is returned for every
// response the transport delivers, including 4xx/5xx statuses; only a
// transport-level failure (after exhausting retries) surfaces as an error
// instead of a Response.
type Response struct {
	// Status is the HTTP status code.
	Status int `json:"status"`
	// StatusText is the status line text ("OK", "Not Found", ...).
	StatusText string `json:"status_text"`
	// Body is the JSON-parsed response body when parsing succeeds,
	// otherwise the raw body text. It is never discarded.
	Body interface{} `json:"body"`
	// RawBody is the unparsed body text, always preserved.
	RawBody string `json:"raw_body"`
	// Headers holds the response headers with lower-cased keys.
	Headers map[string]string `json:"headers"`
	// Duration is the elapsed time from dispatch to fully-read body.
	Duration time.Duration `json:"duration"`
	// URL is the final request URL after base-URL resolution.
	URL string `json:"url"`
	// Method is the HTTP method used.
	Method string `json:"method"`
}

// OK reports whether the status is in the 2xx range. Assertions in the step
// layer use it; the client itself never branches on status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
