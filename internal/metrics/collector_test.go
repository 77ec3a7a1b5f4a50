package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorSnapshotEmpty(t *testing.T) {
	c := NewCollector()

	summary := c.Snapshot()

	assert.Equal(t, 0, summary.Count)
	assert.Equal(t, time.Duration(0), summary.Min)
	assert.Equal(t, time.Duration(0), summary.Max)
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
	} {
		c.RecordResponseTime(d)
	}

	summary := c.Snapshot()

	assert.Equal(t, 4, summary.Count)
	assert.Equal(t, 10*time.Millisecond, summary.Min)
	assert.Equal(t, 40*time.Millisecond, summary.Max)
	assert.Equal(t, 25*time.Millisecond, summary.Mean)
	assert.Equal(t, 40*time.Millisecond, summary.P95)
}

func TestCollectorSnapshotSingleSample(t *testing.T) {
	c := NewCollector()
	c.RecordResponseTime(7 * time.Millisecond)

	summary := c.Snapshot()

	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 7*time.Millisecond, summary.Min)
	assert.Equal(t, 7*time.Millisecond, summary.Max)
	assert.Equal(t, 7*time.Millisecond, summary.P95)
}

func TestCollectorConcurrentRecording(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordResponseTime(time.Millisecond)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Snapshot().Count)
}

func TestFanoutForwardsToAll(t *testing.T) {
	a := NewCollector()
	b := NewCollector()

	r := Fanout(a, nil, b)
	r.RecordResponseTime(5 * time.Millisecond)

	assert.Equal(t, 1, a.Snapshot().Count)
	assert.Equal(t, 1, b.Snapshot().Count)
}

func TestNopRecorder(t *testing.T) {
	// Must not panic and must not accumulate anything observable.
	Nop().RecordResponseTime(time.Second)
}

func TestPrometheusRecorderExposesMetrics(t *testing.T) {
	p := NewPrometheusRecorder()
	p.RecordResponseTime(250 * time.Millisecond)
	p.RecordResponseTime(500 * time.Millisecond)

	server := httptest.NewServer(p.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "mend_api_requests_total 2")
	assert.Contains(t, string(body), "mend_api_response_time_seconds_count 2")
}
