package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/metrics"
)

type recordedRequest struct {
	method  string
	url     string
	headers http.Header
	body    string
}

type fakeResult struct {
	status int
	body   string
	header http.Header
	err    error
}

// fakeDoer plays back scripted results in order (the last one repeats) and
// records every request it sees.
type fakeDoer struct {
	mu       sync.Mutex
	results  []fakeResult
	requests []recordedRequest
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body string
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		body = string(data)
	}
	f.requests = append(f.requests, recordedRequest{
		method:  req.Method,
		url:     req.URL.String(),
		headers: req.Header.Clone(),
		body:    body,
	})

	idx := len(f.requests) - 1
	if idx >= len(f.results) {
		idx = len(f.results) - 1
	}
	result := f.results[idx]
	if result.err != nil {
		return nil, result.err
	}

	header := result.header
	if header == nil {
		header = http.Header{"Content-Type": []string{"application/json"}}
	}
	return &http.Response{
		StatusCode: result.status,
		Status:     fmt.Sprintf("%d %s", result.status, http.StatusText(result.status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(result.body)),
	}, nil
}

func (f *fakeDoer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeDoer) request(i int) recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

// newTestClient wires a client to the fake transport and captures backoff
// delays instead of sleeping them.
func newTestClient(t *testing.T, doer *fakeDoer, cfg Config) (*Client, *[]time.Duration) {
	t.Helper()
	cfg.Transport = doer
	c := New(cfg)
	delays := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func TestErrorStatusIsAValueNotAnError(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{
		{status: 404, body: `{"error":"missing"}`},
	}}
	client, delays := newTestClient(t, doer, Config{BaseURL: "https://api.example", Retries: 3})

	resp, err := client.Get(context.Background(), "/nothing", nil)
	require.NoError(t, err)

	assert.Equal(t, 404, resp.Status)
	assert.Equal(t, "Not Found", resp.StatusText)
	assert.False(t, resp.OK())
	assert.Equal(t, map[string]interface{}{"error": "missing"}, resp.Body)

	// A 4xx is a returned result: exactly one attempt, no backoff.
	assert.Equal(t, 1, doer.callCount())
	assert.Empty(t, *delays)
}

func TestTransportRetryWithLinearBackoff(t *testing.T) {
	transportErr := errors.New("connection refused")
	doer := &fakeDoer{results: []fakeResult{
		{err: transportErr},
		{err: transportErr},
		{status: 200, body: `{"ok":true}`},
	}}
	client, delays := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Get(context.Background(), "/flaky", &RequestOptions{Retries: 3})
	require.NoError(t, err)

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, 3, doer.callCount())
	// Linear backoff: non-decreasing delays of attempt × 1s.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *delays)
}

func TestRetryExhaustionPropagatesLastError(t *testing.T) {
	transportErr := errors.New("dial tcp: connection refused")
	doer := &fakeDoer{results: []fakeResult{{err: transportErr}}}
	client, delays := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Get(context.Background(), "/down", &RequestOptions{Retries: 2})
	require.Error(t, err)
	assert.Nil(t, resp)

	assert.ErrorIs(t, err, transportErr)
	assert.Contains(t, err.Error(), "after 2 attempt(s)")
	// Exactly 2 attempts: not 1, not 3.
	assert.Equal(t, 2, doer.callCount())
	assert.Equal(t, []time.Duration{1 * time.Second}, *delays)
}

func TestDefaultRetriesIsSingleAttempt(t *testing.T) {
	transportErr := errors.New("boom")
	doer := &fakeDoer{results: []fakeResult{{err: transportErr}}}
	client, delays := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	_, err := client.Get(context.Background(), "/x", nil)
	require.Error(t, err)
	assert.Equal(t, 1, doer.callCount())
	assert.Empty(t, *delays)
}

func TestJSONParseFallback(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{
		{status: 200, body: `not-json{`},
		{status: 200, body: `{"a":1}`},
	}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Get(context.Background(), "/text", nil)
	require.NoError(t, err)
	assert.Equal(t, "not-json{", resp.Body)
	assert.Equal(t, "not-json{", resp.RawBody)

	resp, err = client.Get(context.Background(), "/json", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": float64(1)}, resp.Body)
	assert.Equal(t, `{"a":1}`, resp.RawBody)
}

func TestAbsoluteURLBypassesBaseURL(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Get(context.Background(), "https://other.example/x", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://other.example/x", doer.request(0).url)
	assert.Equal(t, "https://other.example/x", resp.URL)
}

func TestPostScenario(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{
		{status: 201, body: `{"id":101,"title":"t"}`},
	}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Post(context.Background(), "/posts", &RequestOptions{
		Body: map[string]interface{}{"title": "t", "userId": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, 201, resp.Status)
	assert.Equal(t, map[string]interface{}{"id": float64(101), "title": "t"}, resp.Body)
	assert.Equal(t, "POST", resp.Method)
	assert.Equal(t, "https://api.example/posts", resp.URL)

	sent := doer.request(0)
	assert.Equal(t, "POST", sent.method)
	assert.Equal(t, "application/json", sent.headers.Get("Content-Type"))
	assert.JSONEq(t, `{"title":"t","userId":1}`, sent.body)
}

func TestHeaderMergePerCallOverride(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	_, err := client.Get(context.Background(), "/x", &RequestOptions{
		Headers: map[string]string{
			"Accept":      "text/csv",
			"X-Trace-Id":  "trace-1",
			"X-Extra-Key": "v",
		},
	})
	require.NoError(t, err)

	sent := doer.request(0)
	// Per-call header overrides the client default; untouched defaults stay.
	assert.Equal(t, "text/csv", sent.headers.Get("Accept"))
	assert.Equal(t, "application/json", sent.headers.Get("Content-Type"))
	assert.Equal(t, "trace-1", sent.headers.Get("X-Trace-Id"))
}

func TestAuthTokenLifecycle(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	client.SetAuthToken("secret-token")
	_, err := client.Get(context.Background(), "/a", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret-token", doer.request(0).headers.Get("Authorization"))

	client.ClearAuthToken()
	_, err = client.Get(context.Background(), "/b", nil)
	require.NoError(t, err)
	assert.Empty(t, doer.request(1).headers.Get("Authorization"))
}

func TestAuthTokenIsPerInstance(t *testing.T) {
	doerA := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	doerB := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	clientA, _ := newTestClient(t, doerA, Config{BaseURL: "https://api.example"})
	clientB, _ := newTestClient(t, doerB, Config{BaseURL: "https://api.example"})

	clientA.SetAuthToken("token-a")

	_, err := clientA.Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	_, err = clientB.Get(context.Background(), "/x", nil)
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-a", doerA.request(0).headers.Get("Authorization"))
	assert.Empty(t, doerB.request(0).headers.Get("Authorization"))
}

func TestBodyOnlyForMutatingMethods(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	_, err := client.Get(context.Background(), "/x", &RequestOptions{
		Body: map[string]string{"ignored": "yes"},
	})
	require.NoError(t, err)
	assert.Empty(t, doer.request(0).body)

	_, err = client.Put(context.Background(), "/x", &RequestOptions{
		Body: map[string]string{"kept": "yes"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kept":"yes"}`, doer.request(1).body)
}

func TestQueryParamsAppended(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	_, err := client.Get(context.Background(), "/search?sort=asc", &RequestOptions{
		Params: map[string]string{"q": "healing locators", "page": "2"},
	})
	require.NoError(t, err)

	sent := doer.request(0)
	assert.Contains(t, sent.url, "q=healing+locators")
	assert.Contains(t, sent.url, "page=2")
	assert.Contains(t, sent.url, "sort=asc")
}

func TestResponseHeaderKeysLowerCased(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{
		status: 200,
		body:   `{}`,
		header: http.Header{
			"X-Request-Id": []string{"abc-123"},
			"Content-Type": []string{"application/json"},
		},
	}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Get(context.Background(), "/x", nil)
	require.NoError(t, err)

	assert.Equal(t, "abc-123", resp.Headers["x-request-id"])
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	_, upperPresent := resp.Headers["X-Request-Id"]
	assert.False(t, upperPresent)
}

func TestResponseTimeRecorded(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	collector := metrics.NewCollector()

	client := New(Config{BaseURL: "https://api.example", Transport: doer, Recorder: collector})

	resp, err := client.Get(context.Background(), "/timed", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, collector.Snapshot().Count)
	assert.GreaterOrEqual(t, resp.Duration, time.Duration(0))
}

func TestPerRequestTimeoutSetsDeadline(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	var sawDeadline bool
	checker := doerFunc(func(req *http.Request) (*http.Response, error) {
		_, sawDeadline = req.Context().Deadline()
		return doer.Do(req)
	})

	client := New(Config{BaseURL: "https://api.example", Transport: checker})
	_, err := client.Get(context.Background(), "/x", &RequestOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.True(t, sawDeadline)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestCancelledContextStopsRetrying(t *testing.T) {
	transportErr := errors.New("unreachable")
	doer := &fakeDoer{results: []fakeResult{{err: transportErr}}}
	client := New(Config{BaseURL: "https://api.example", Transport: doer})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := client.Get(ctx, "/x", &RequestOptions{Retries: 5})
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	// The cancelled context must short-circuit the backoff schedule.
	assert.Less(t, time.Since(start), time.Second)
}

func TestDoRejectsUnknownMethod(t *testing.T) {
	client, _ := newTestClient(t, &fakeDoer{results: []fakeResult{{status: 200}}}, Config{BaseURL: "https://api.example"})

	_, err := client.Do(context.Background(), "TRACE", "/x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported HTTP method")
}

func TestRelativePathWithoutLeadingSlash(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example/"})

	_, err := client.Get(context.Background(), "health", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example/health", doer.request(0).url)
}

func TestStringBodyPassedThrough(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 200, body: `{}`}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	_, err := client.Post(context.Background(), "/raw", &RequestOptions{Body: `{"pre":"encoded"}`})
	require.NoError(t, err)
	assert.Equal(t, `{"pre":"encoded"}`, doer.request(0).body)
}

func TestEmptyBodyStaysRawString(t *testing.T) {
	doer := &fakeDoer{results: []fakeResult{{status: 204, body: ""}}}
	client, _ := newTestClient(t, doer, Config{BaseURL: "https://api.example"})

	resp, err := client.Delete(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
	assert.Equal(t, "", resp.Body)
	assert.Equal(t, "", resp.RawBody)
}
