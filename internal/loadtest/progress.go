package loadtest

import (
	"sync"
	"sync/atomic"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// progress histogram bounds: 1ms to 1h, 3 significant figures.
const (
	progressHistMin = 1
	progressHistMax = 3_600_000
)

// Progress is a cheap live view of a running stage for periodic reporting.
// It keeps an HDR histogram of latencies alongside atomic counters, so a
// monitor goroutine can read approximate percentiles without touching the
// aggregator. The authoritative numbers remain the aggregator's snapshot;
// this view trades exactness for constant memory and lock-free counting.
type Progress struct {
	completed atomic.Int64
	failures  atomic.Int64

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

// ProgressSnapshot is a point-in-time reading for a progress line.
type ProgressSnapshot struct {
	Completed int64
	Failures  int64
	P50Millis int64
	P99Millis int64
}

func NewProgress() *Progress {
	return &Progress{
		hist: hdrhistogram.New(progressHistMin, progressHistMax, 3),
	}
}

// Observe records one outcome. Safe for concurrent use.
func (p *Progress) Observe(o Outcome) {
	p.completed.Add(1)
	if !o.Success {
		p.failures.Add(1)
	}

	ms := o.Latency.Milliseconds()
	if ms < progressHistMin {
		ms = progressHistMin
	}
	if ms > progressHistMax {
		ms = progressHistMax
	}

	p.mu.Lock()
	_ = p.hist.RecordValue(ms)
	p.mu.Unlock()
}

// Snapshot reads the current counters and approximate percentiles.
func (p *Progress) Snapshot() ProgressSnapshot {
	p.mu.Lock()
	p50 := p.hist.ValueAtQuantile(50)
	p99 := p.hist.ValueAtQuantile(99)
	p.mu.Unlock()

	return ProgressSnapshot{
		Completed: p.completed.Load(),
		Failures:  p.failures.Load(),
		P50Millis: p50,
		P99Millis: p99,
	}
}
