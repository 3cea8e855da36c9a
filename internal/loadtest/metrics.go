package loadtest

import (
	"sync"
	"time"
)

// Aggregator accumulates outcomes from all workers of one stage. Ingestion
// is O(1) under a mutex (append plus counter updates); the expensive work
// of sorting latencies happens in Snapshot on a private copy, outside any
// lock a worker could be waiting on.
//
// One Aggregator serves exactly one stage: created at stage start,
// finalized at stage end, then read for reporting.
type Aggregator struct {
	mu sync.Mutex

	startTime time.Time
	endTime   time.Time

	records []Outcome

	total        int
	successes    int
	latencySum   time.Duration
	costSum      float64
	inputTokens  int64
	outputTokens int64
}

func NewAggregator() *Aggregator {
	return &Aggregator{startTime: time.Now()}
}

// Ingest records one outcome. Safe for concurrent use; every call appends
// exactly one record and the running counters stay consistent with the
// record sequence.
func (a *Aggregator) Ingest(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = append(a.records, o)
	a.total++
	a.latencySum += o.Latency

	if o.Success {
		a.successes++
		a.costSum += o.Cost
		a.inputTokens += int64(o.InputTokens)
		a.outputTokens += int64(o.OutputTokens)
	}
}

// Count returns the number of ingested records so far.
func (a *Aggregator) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Totals is a live reading of the running counters, cheap enough to poll
// from a progress monitor without copying the record sequence.
type Totals struct {
	Requests     int
	Successes    int
	MeanLatency  time.Duration
	Cost         float64
	InputTokens  int64
	OutputTokens int64
}

// Totals returns the current counter values.
func (a *Aggregator) Totals() Totals {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := Totals{
		Requests:     a.total,
		Successes:    a.successes,
		Cost:         a.costSum,
		InputTokens:  a.inputTokens,
		OutputTokens: a.outputTokens,
	}
	if a.total > 0 {
		t.MeanLatency = a.latencySum / time.Duration(a.total)
	}
	return t
}

// Finalize marks the end of the collection window. Snapshots taken after
// Finalize use the frozen window for throughput computation.
func (a *Aggregator) Finalize() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.endTime = time.Now()
}

// Snapshot derives the stage statistics from everything ingested so far.
// It copies the record sequence under the lock and computes on the copy,
// so a snapshot taken while ingestion is still in flight sees a consistent
// prefix, never a torn record. The overall view and the per-label views
// come from the same copy.
func (a *Aggregator) Snapshot(concurrency int) StageStats {
	a.mu.Lock()
	records := make([]Outcome, len(a.records))
	copy(records, a.records)
	start := a.startTime
	end := a.endTime
	a.mu.Unlock()

	if end.IsZero() {
		end = time.Now()
	}
	elapsed := end.Sub(start)

	st := StageStats{
		Concurrency:     concurrency,
		DurationSeconds: elapsed.Seconds(),
		Overall:         computeStats(records, elapsed),
	}

	byLabel := make(map[string][]Outcome)
	for _, r := range records {
		byLabel[r.Label] = append(byLabel[r.Label], r)
	}
	if len(byLabel) > 0 {
		st.PerLabel = make(map[string]Stats, len(byLabel))
		for label, recs := range byLabel {
			st.PerLabel[label] = computeStats(recs, elapsed)
		}
	}

	return st
}
