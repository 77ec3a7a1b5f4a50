package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"mend/internal/metrics"
)

// Config assembles a Client. Zero values fall back to package defaults.
type Config struct {
	// BaseURL is prepended to relative request paths. Absolute URLs passed
	// to a request bypass it.
	BaseURL string
	// Timeout is the default per-request timeout.
	Timeout time.Duration
	// Retries is the default attempt budget (total attempts).
	Retries int
	// Transport dispatches the requests. Defaults to a plain *http.Client;
	// the per-request timeout is enforced via context, not here.
	Transport Doer
	// Recorder receives one response-time observation per delivered
	// response. Defaults to a no-op recorder.
	Recorder metrics.Recorder
	// Logger receives debug/warn output. Defaults to a silent logger.
	Logger Logger
}

// Client issues HTTP requests for API test steps. It holds only per-instance
// default headers; the expected usage is one client per scenario execution
// so that auth tokens set by one scenario can never leak into another.
type Client struct {
	baseURL   string
	timeout   time.Duration
	retries   int
	transport Doer
	recorder  metrics.Recorder
	logger    Logger

	mu             sync.RWMutex
	defaultHeaders map[string]string

	// sleep is the backoff wait, split out so tests can observe delays
	// without waiting them out.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client from the given configuration.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:   cfg.BaseURL,
		timeout:   cfg.Timeout,
		retries:   cfg.Retries,
		transport: cfg.Transport,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		sleep: sleepContext,
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.retries <= 0 {
		c.retries = DefaultRetries
	}
	if c.transport == nil {
		c.transport = &http.Client{}
	}
	if c.recorder == nil {
		c.recorder = metrics.Nop()
	}
	if c.logger == nil {
		c.logger = nopLogger{}
	}
	return c
}

// SetAuthToken installs a bearer token sent with all subsequent requests
// from this client instance.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultHeaders["Authorization"] = "Bearer " + token
}

// ClearAuthToken removes a previously set bearer token.
func (c *Client) ClearAuthToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.defaultHeaders, "Authorization")
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodGet, path, opts)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPost, path, opts)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPut, path, opts)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodPatch, path, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.request(ctx, http.MethodDelete, path, opts)
}

// Do issues a request with an arbitrary method. The console and the serve
// tools route through it; the verb methods above are thin wrappers around
// the same internal path.
func (c *Client) Do(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.request(ctx, method, path, opts)
	default:
		return nil, fmt.Errorf("unsupported HTTP method %q", method)
	}
}

// request is the single dispatch path shared by all verbs.
func (c *Client) request(ctx context.Context, method, path string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	finalURL, err := c.resolveURL(path, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve request URL for %q: %w", path, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = c.retries
	}

	headers := c.mergedHeaders(opts.Headers)

	var body []byte
	if opts.Body != nil && methodAllowsBody(method) {
		body, err = encodeBody(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		resp, err := c.doOnce(ctx, method, finalURL, headers, body, timeout)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// The caller's context ended; retrying would spin on the
			// same cancellation.
			return nil, fmt.Errorf("%s %s aborted: %w", method, finalURL, ctx.Err())
		}

		if attempt < retries {
			delay := time.Duration(attempt) * backoffUnit
			c.logger.Warn("Transport failure on %s %s (attempt %d/%d): %v - retrying in %s", method, finalURL, attempt, retries, err, delay)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%s %s aborted during backoff: %w", method, finalURL, err)
			}
		}
	}

	return nil, fmt.Errorf("%s %s failed after %d attempt(s): %w", method, finalURL, retries, lastErr)
}

// doOnce performs a single transport dispatch and normalizes the response.
// Every error it returns is a transport-level failure; HTTP error statuses
// come back as a Response.
func (c *Client) doOnce(ctx context.Context, method, finalURL string, headers map[string]string, body []byte, timeout time.Duration) (*Response, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, finalURL, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := c.transport.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	elapsed := time.Since(start)

	c.recorder.RecordResponseTime(elapsed)
	c.logger.Debug("%s %s -> %d in %s", method, finalURL, httpResp.StatusCode, elapsed)

	return normalizeResponse(method, finalURL, httpResp, raw, elapsed), nil
}

// resolveURL applies the base URL to relative paths and appends query
// parameters. Absolute paths (scheme prefix) bypass the base URL entirely.
func (c *Client) resolveURL(path string, params map[string]string) (string, error) {
	target := path
	if !isAbsoluteURL(path) {
		base := strings.TrimSuffix(c.baseURL, "/")
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		target = base + path
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isAbsoluteURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// mergedHeaders snapshots the client defaults and overlays the per-request
// headers on top.
func (c *Client) mergedHeaders(extra map[string]string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]string, len(c.defaultHeaders)+len(extra))
	for k, v := range c.defaultHeaders {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func methodAllowsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(body)
	}
}

// normalizeResponse folds a raw transport response into the Response shape:
// JSON body parsing with raw-text fallback, lower-cased header keys, status
// copied verbatim.
func normalizeResponse(method, finalURL string, httpResp *http.Response, raw []byte, elapsed time.Duration) *Response {
	headers := make(map[string]string, len(httpResp.Header))
	for k, vals := range httpResp.Header {
		headers[strings.ToLower(k)] = strings.Join(vals, ", ")
	}

	var body interface{} = string(raw)
	if len(raw) > 0 {
		var parsed interface{}
		if err := json.Unmarshal(raw, &parsed); err == nil {
			body = parsed
		}
	}

	statusText := strings.TrimSpace(strings.TrimPrefix(httpResp.Status, strconv.Itoa(httpResp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(httpResp.StatusCode)
	}

	return &Response{
		Status:     httpResp.StatusCode,
		StatusText: statusText,
		Body:       body,
		RawBody:    string(raw),
		Headers:    headers,
		Duration:   elapsed,
		URL:        finalURL,
		Method:     method,
	}
}

// sleepContext waits for d or until ctx ends, whichever comes first. The
// backoff must be cancellable, not a fire-and-forget timer.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
