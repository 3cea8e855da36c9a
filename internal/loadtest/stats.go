package loadtest

import (
	"math"
	"sort"
	"time"
)

// Stats contains the derived statistics for one set of outcomes. Latency
// figures cover every attempt's measured latency, successful or not: a
// timed-out request contributes its timeout-bounded latency, which is
// what a caller actually waited. All latency values are in seconds.
type Stats struct {
	TotalRequests     int     `json:"total_requests"`
	Successes         int     `json:"successful_requests"`
	Failures          int     `json:"failed_requests"`
	SuccessRate       float64 `json:"success_rate"`
	NoData            bool    `json:"no_data"`
	RequestsPerSecond float64 `json:"requests_per_second"`

	MinLatency  float64 `json:"min_latency_seconds"`
	MaxLatency  float64 `json:"max_latency_seconds"`
	MeanLatency float64 `json:"mean_latency_seconds"`
	P50Latency  float64 `json:"p50_latency_seconds"`
	P90Latency  float64 `json:"p90_latency_seconds"`
	P95Latency  float64 `json:"p95_latency_seconds"`
	P99Latency  float64 `json:"p99_latency_seconds"`

	// MeanTTFT is the mean time to first token in seconds, over the
	// streaming invocations that reported one. Zero when none did.
	MeanTTFT float64 `json:"mean_ttft_seconds,omitempty"`

	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalCost         float64 `json:"total_cost_usd"`

	ErrorBreakdown map[ErrorKind]int `json:"error_breakdown,omitempty"`
}

// StageStats is the finalized snapshot of one load stage: the overall view
// plus a per-label breakdown. Both views are always produced.
type StageStats struct {
	Concurrency     int              `json:"concurrency"`
	DurationSeconds float64          `json:"duration_seconds"`
	Failed          bool             `json:"failed,omitempty"`
	Overall         Stats            `json:"overall"`
	PerLabel        map[string]Stats `json:"per_label,omitempty"`
}

// ResultSet is the cross-stage result of one suite run: stage snapshots in
// execution order plus global totals. Percentiles are never merged across
// stages; each stage's distribution stands on its own. The structure is
// plain data so any reporting layer can serialize it.
type ResultSet struct {
	Suite            string       `json:"suite"`
	RunID            string       `json:"run_id"`
	StartedAt        time.Time    `json:"started_at"`
	WallClockSeconds float64      `json:"wall_clock_seconds"`
	Stages           []StageStats `json:"stages"`

	TotalRequests     int     `json:"total_requests"`
	TotalSuccesses    int     `json:"total_successes"`
	TotalCost         float64 `json:"total_cost_usd"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
}

// computeStats derives Stats from a slice of outcomes. The caller must
// pass a slice that no other goroutine is mutating; the latency sort
// happens on a private copy.
func computeStats(records []Outcome, elapsed time.Duration) Stats {
	s := Stats{ErrorBreakdown: make(map[ErrorKind]int)}
	s.TotalRequests = len(records)

	if s.TotalRequests == 0 {
		s.NoData = true
		s.ErrorBreakdown = nil
		return s
	}

	latencies := make([]float64, 0, len(records))
	var latencySum, ttftSum float64
	var ttftCount int
	for _, r := range records {
		latencies = append(latencies, r.Latency.Seconds())
		latencySum += r.Latency.Seconds()

		if r.Success {
			s.Successes++
			s.TotalInputTokens += int64(r.InputTokens)
			s.TotalOutputTokens += int64(r.OutputTokens)
			s.TotalCost += r.Cost
		} else {
			s.Failures++
			kind := r.ErrorKind
			if kind == "" {
				kind = ErrorKindUnknown
			}
			s.ErrorBreakdown[kind]++
		}

		if r.TTFT > 0 {
			ttftSum += r.TTFT.Seconds()
			ttftCount++
		}
	}

	s.SuccessRate = float64(s.Successes) / float64(s.TotalRequests)
	if len(s.ErrorBreakdown) == 0 {
		s.ErrorBreakdown = nil
	}

	sort.Float64s(latencies)
	s.MinLatency = latencies[0]
	s.MaxLatency = latencies[len(latencies)-1]
	s.MeanLatency = latencySum / float64(len(latencies))
	s.P50Latency = percentile(latencies, 50)
	s.P90Latency = percentile(latencies, 90)
	s.P95Latency = percentile(latencies, 95)
	s.P99Latency = percentile(latencies, 99)

	if ttftCount > 0 {
		s.MeanTTFT = ttftSum / float64(ttftCount)
	}

	if elapsed > 0 {
		s.RequestsPerSecond = float64(s.TotalRequests) / elapsed.Seconds()
	}

	return s
}

// percentile returns the p-th percentile of an ascending-sorted slice
// using the nearest-rank method: index ceil(p/100*n)-1, clamped.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// accumulateTotals folds the stage snapshots into the result set's global
// totals. Cost and token fields sum across stages; distributions do not.
func (rs *ResultSet) accumulateTotals() {
	rs.TotalRequests = 0
	rs.TotalSuccesses = 0
	rs.TotalCost = 0
	rs.TotalInputTokens = 0
	rs.TotalOutputTokens = 0
	for _, st := range rs.Stages {
		rs.TotalRequests += st.Overall.TotalRequests
		rs.TotalSuccesses += st.Overall.Successes
		rs.TotalCost += st.Overall.TotalCost
		rs.TotalInputTokens += st.Overall.TotalInputTokens
		rs.TotalOutputTokens += st.Overall.TotalOutputTokens
	}
}
