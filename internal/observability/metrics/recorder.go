package metrics

import (
	"sync"
	"time"

	"github.com/vibolsen/campus-portal/internal/observability/statsd"
)

// Sample is one metric captured by Recorder.
type Sample struct {
	Kind  string
	Name  string
	Value float64
	Tags  map[string]string
}

// Recorder is an in-memory statsd.Sink for tests and diagnostics.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
}

var _ statsd.Sink = (*Recorder)(nil)

func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.add(Sample{Kind: "count", Name: name, Value: float64(value), Tags: CloneTags(tags)})
}

func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.add(Sample{Kind: "gauge", Name: name, Value: value, Tags: CloneTags(tags)})
}

func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.add(Sample{Kind: "timing", Name: name, Value: float64(value), Tags: CloneTags(tags)})
}

func (r *Recorder) add(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, s)
}

// Samples returns a copy of everything recorded so far.
func (r *Recorder) Samples() []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Sample(nil), r.samples...)
}

// Total sums count samples named name.
func (r *Recorder) Total(name string) int64 {
	var total int64
	for _, s := range r.Samples() {
		if s.Kind == "count" && s.Name == name {
			total += int64(s.Value)
		}
	}
	return total
}
