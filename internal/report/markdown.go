package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
)

// MarkdownReporter generates markdown reports
type MarkdownReporter struct {
	config *config.TestConfig
}

// NewMarkdownReporter creates a new markdown reporter. A nil config is
// allowed when re-rendering a saved report; the configuration section is
// then omitted.
func NewMarkdownReporter(cfg *config.TestConfig) *MarkdownReporter {
	return &MarkdownReporter{
		config: cfg,
	}
}

// Generate generates the full markdown report for one or more suite runs
func (m *MarkdownReporter) Generate(results []*loadtest.ResultSet) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# AWS Bedrock Load Test Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	// Test Configuration
	if m.config != nil {
		m.writeConfiguration(&sb)
	}

	// One section per suite run
	for _, rs := range results {
		m.writeSuite(&sb, rs)
	}

	return sb.String()
}

// writeConfiguration writes the test configuration section
func (m *MarkdownReporter) writeConfiguration(sb *strings.Builder) {
	lt := m.config.LoadTest

	sb.WriteString("## Test Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Region | %s |\n", m.config.AWS.Region))
	sb.WriteString(fmt.Sprintf("| Concurrency Levels | %v |\n", lt.ConcurrentUsers))
	sb.WriteString(fmt.Sprintf("| Duration per Level | %s |\n", lt.TestDuration.Std()))
	if lt.MaxRequests > 0 {
		sb.WriteString(fmt.Sprintf("| Max Requests per Level | %d |\n", lt.MaxRequests))
	}
	sb.WriteString(fmt.Sprintf("| Request Timeout | %s |\n", lt.RequestTimeout.Std()))
	sb.WriteString(fmt.Sprintf("| Request Delay | %s |\n", lt.RequestDelay.Std()))
	sb.WriteString(fmt.Sprintf("| Ramp-Up Time | %s |\n", lt.RampUpTime.Std()))
	sb.WriteString(fmt.Sprintf("| Max Retries | %d |\n", m.config.Retry.MaxRetries))
	sb.WriteString(fmt.Sprintf("| Backoff Factor | %.1f |\n", m.config.Retry.BackoffFactor))
	sb.WriteString(fmt.Sprintf("| Streaming Enabled | %t |\n\n", lt.Streaming))
}

// writeSuite writes every section for a single suite run
func (m *MarkdownReporter) writeSuite(sb *strings.Builder, rs *loadtest.ResultSet) {
	sb.WriteString(fmt.Sprintf("## Suite: %s\n\n", rs.Suite))
	sb.WriteString(fmt.Sprintf("Run `%s` started %s, wall clock %.1f seconds.\n\n",
		rs.RunID, rs.StartedAt.Format("2006-01-02 15:04:05"), rs.WallClockSeconds))

	m.writeSuiteSummary(sb, rs)
	m.writeStageResults(sb, rs)
	m.writeLatencyAnalysis(sb, rs)
	m.writeTTFTAnalysis(sb, rs)
	m.writePerTargetResults(sb, rs)
	m.writeErrorAnalysis(sb, rs)
}

// writeSuiteSummary writes the cross-stage totals for a suite
func (m *MarkdownReporter) writeSuiteSummary(sb *strings.Builder, rs *loadtest.ResultSet) {
	sb.WriteString("### Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Requests | %d |\n", rs.TotalRequests))
	sb.WriteString(fmt.Sprintf("| Successful Requests | %d (%.2f%%) |\n",
		rs.TotalSuccesses, successPercent(rs.TotalSuccesses, rs.TotalRequests)))
	sb.WriteString(fmt.Sprintf("| Failed Requests | %d |\n", rs.TotalRequests-rs.TotalSuccesses))
	sb.WriteString(fmt.Sprintf("| Input Tokens | %d |\n", rs.TotalInputTokens))
	sb.WriteString(fmt.Sprintf("| Output Tokens | %d |\n", rs.TotalOutputTokens))
	sb.WriteString(fmt.Sprintf("| Estimated Cost (USD) | %.4f |\n\n", rs.TotalCost))
}

// writeStageResults writes the per-concurrency-level results table
func (m *MarkdownReporter) writeStageResults(sb *strings.Builder, rs *loadtest.ResultSet) {
	sb.WriteString("### Results by Concurrency Level\n\n")

	sb.WriteString("| Concurrency | Requests | Success Rate | Req/s | Mean (s) | P50 (s) | P95 (s) | P99 (s) | Cost (USD) |\n")
	sb.WriteString("|-------------|----------|--------------|-------|----------|---------|---------|---------|------------|\n")

	var failed []int
	for _, st := range rs.Stages {
		if st.Failed {
			failed = append(failed, st.Concurrency)
			continue
		}
		s := st.Overall
		sb.WriteString(fmt.Sprintf("| %d | %d | %.2f%% | %.2f | %.3f | %.3f | %.3f | %.3f | %.4f |\n",
			st.Concurrency,
			s.TotalRequests,
			s.SuccessRate*100,
			s.RequestsPerSecond,
			s.MeanLatency,
			s.P50Latency,
			s.P95Latency,
			s.P99Latency,
			s.TotalCost,
		))
	}
	sb.WriteString("\n")

	for _, level := range failed {
		sb.WriteString(fmt.Sprintf("Stage at concurrency %d failed to run and is omitted above.\n\n", level))
	}
}

// writeLatencyAnalysis writes latency analysis section
func (m *MarkdownReporter) writeLatencyAnalysis(sb *strings.Builder, rs *loadtest.ResultSet) {
	sb.WriteString("### Latency Distribution by Concurrency Level\n\n")

	sb.WriteString("| Concurrency | Min (s) | Mean (s) | Max (s) | P50 (s) | P90 (s) | P95 (s) | P99 (s) |\n")
	sb.WriteString("|-------------|---------|----------|---------|---------|---------|---------|---------|\n")

	for _, st := range rs.Stages {
		s := st.Overall
		if s.NoData {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %d | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f | %.3f |\n",
			st.Concurrency,
			s.MinLatency,
			s.MeanLatency,
			s.MaxLatency,
			s.P50Latency,
			s.P90Latency,
			s.P95Latency,
			s.P99Latency,
		))
	}
	sb.WriteString("\n")
}

// writeTTFTAnalysis writes TTFT analysis section (if available)
func (m *MarkdownReporter) writeTTFTAnalysis(sb *strings.Builder, rs *loadtest.ResultSet) {
	// Check if any stage has TTFT data
	hasTTFT := false
	for _, st := range rs.Stages {
		if st.Overall.MeanTTFT > 0 {
			hasTTFT = true
			break
		}
	}

	if !hasTTFT {
		return
	}

	sb.WriteString("### Time to First Token by Concurrency Level (Streaming Mode)\n\n")

	sb.WriteString("| Concurrency | Mean TTFT (s) |\n")
	sb.WriteString("|-------------|---------------|\n")

	for _, st := range rs.Stages {
		if st.Overall.MeanTTFT > 0 {
			sb.WriteString(fmt.Sprintf("| %d | %.3f |\n", st.Concurrency, st.Overall.MeanTTFT))
		}
	}
	sb.WriteString("\n")
}

// writePerTargetResults writes the per-target breakdown table (only when
// a suite exercised more than one target)
func (m *MarkdownReporter) writePerTargetResults(sb *strings.Builder, rs *loadtest.ResultSet) {
	hasBreakdown := false
	for _, st := range rs.Stages {
		if len(st.PerLabel) > 1 {
			hasBreakdown = true
			break
		}
	}

	if !hasBreakdown {
		return
	}

	sb.WriteString("### Per-Target Results\n\n")
	sb.WriteString("| Concurrency | Target | Requests | Success Rate | P50 (s) | P99 (s) | Cost (USD) |\n")
	sb.WriteString("|-------------|--------|----------|--------------|---------|---------|------------|\n")

	for _, st := range rs.Stages {
		if len(st.PerLabel) < 2 {
			continue
		}
		for _, label := range sortedLabels(st.PerLabel) {
			s := st.PerLabel[label]
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %.2f%% | %.3f | %.3f | %.4f |\n",
				st.Concurrency,
				label,
				s.TotalRequests,
				s.SuccessRate*100,
				s.P50Latency,
				s.P99Latency,
				s.TotalCost,
			))
		}
	}
	sb.WriteString("\n")
}

// writeErrorAnalysis writes error analysis section
func (m *MarkdownReporter) writeErrorAnalysis(sb *strings.Builder, rs *loadtest.ResultSet) {
	// Aggregate errors across all stages
	allErrors := make(map[loadtest.ErrorKind]int)
	for _, st := range rs.Stages {
		for kind, count := range st.Overall.ErrorBreakdown {
			allErrors[kind] += count
		}
	}

	if len(allErrors) == 0 {
		sb.WriteString("### Error Analysis\n\n")
		sb.WriteString("No errors occurred during the test.\n\n")
		return
	}

	sb.WriteString("### Error Analysis\n\n")

	sb.WriteString("| Error Kind | Count |\n")
	sb.WriteString("|------------|-------|\n")

	for _, kind := range sortedErrorKinds(allErrors) {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", kind, allErrors[kind]))
	}
	sb.WriteString("\n")

	// Error breakdown by concurrency level
	sb.WriteString("#### Errors by Concurrency Level\n\n")
	sb.WriteString("| Concurrency | Total Errors | Error Kinds |\n")
	sb.WriteString("|-------------|--------------|-------------|\n")

	for _, st := range rs.Stages {
		if st.Overall.Failures == 0 {
			continue
		}
		kinds := []string{}
		for _, kind := range sortedErrorKinds(st.Overall.ErrorBreakdown) {
			kinds = append(kinds, fmt.Sprintf("%s(%d)", kind, st.Overall.ErrorBreakdown[kind]))
		}
		sb.WriteString(fmt.Sprintf("| %d | %d | %s |\n",
			st.Concurrency,
			st.Overall.Failures,
			strings.Join(kinds, ", "),
		))
	}
	sb.WriteString("\n")
}

// SaveToFile saves the report to a file
func (m *MarkdownReporter) SaveToFile(content string, filename string) error {
	return os.WriteFile(filename, []byte(content), 0644)
}
