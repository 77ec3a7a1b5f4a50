package metrics

import (
	"sort"
	"sync"
	"time"
)

// Recorder receives response-time observations from the API client. It is
// fire-and-forget: implementations must never fail the caller.
//
// A recorder is always injected explicitly. The run orchestrator creates one
// collector per run and flushes it into the suite result at run end; nothing
// in mend reaches a recorder through package-level state.
type Recorder interface {
	RecordResponseTime(d time.Duration)
}

// Collector is the in-memory Recorder used for CLI runs. It is safe for
// concurrent use.
type Collector struct {
	mu      sync.Mutex
	samples []time.Duration
}

// NewCollector creates an empty in-memory collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordResponseTime stores one observation.
func (c *Collector) RecordResponseTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, d)
}

// Summary is the aggregated view of all recorded response times, embedded in
// the suite result and rendered in the run summary.
type Summary struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Mean  time.Duration `json:"mean"`
	P95   time.Duration `json:"p95"`
}

// Snapshot aggregates the recorded observations. It does not reset the
// collector; a collector lives exactly as long as one run.
func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.samples) == 0 {
		return Summary{}
	}

	sorted := make([]time.Duration, len(c.samples))
	copy(sorted, c.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, s := range sorted {
		total += s
	}

	// Nearest-rank percentile over the sorted samples.
	rank := (95*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}

	return Summary{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Mean:  total / time.Duration(len(sorted)),
		P95:   sorted[rank-1],
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordResponseTime(time.Duration) {}

// Nop returns a Recorder that discards all observations. Used where no
// caller consumes the timings, such as a serve session without a metrics
// listener.
func Nop() Recorder {
	return nopRecorder{}
}

type fanout []Recorder

func (f fanout) RecordResponseTime(d time.Duration) {
	for _, r := range f {
		r.RecordResponseTime(d)
	}
}

// Fanout combines several recorders into one, forwarding every observation
// to each of them. Serve mode uses this to feed the in-memory collector and
// the prometheus recorder from a single injection point.
func Fanout(recorders ...Recorder) Recorder {
	out := make(fanout, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
