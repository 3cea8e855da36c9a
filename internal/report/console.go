package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
)

// ConsoleReporter renders run configuration and results to a terminal.
type ConsoleReporter struct {
	out io.Writer

	title *color.Color
	good  *color.Color
	warn  *color.Color
	bad   *color.Color
}

// NewConsoleReporter creates a console reporter writing to out. Colors are
// enabled only when out is a terminal and NO_COLOR is unset.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	c := &ConsoleReporter{
		out:   out,
		title: color.New(color.FgCyan, color.Bold),
		good:  color.New(color.FgGreen),
		warn:  color.New(color.FgYellow),
		bad:   color.New(color.FgRed, color.Bold),
	}
	if colorEnabled(out) {
		c.title.EnableColor()
		c.good.EnableColor()
		c.warn.EnableColor()
		c.bad.EnableColor()
	} else {
		c.title.DisableColor()
		c.good.DisableColor()
		c.warn.DisableColor()
		c.bad.DisableColor()
	}
	return c
}

// colorEnabled reports whether w is a terminal that should receive ANSI
// color codes. NO_COLOR always wins.
func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintHeader prints the test header
func (c *ConsoleReporter) PrintHeader(cfg *config.TestConfig, targets []string) {
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	c.title.Fprintln(c.out, "AWS Bedrock Load Test")
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	fmt.Fprintf(c.out, "Region: %s\n", cfg.AWS.Region)
	fmt.Fprintf(c.out, "Targets: %s\n", strings.Join(targets, ", "))
	fmt.Fprintf(c.out, "Concurrency Levels: %v\n", cfg.LoadTest.ConcurrentUsers)
	fmt.Fprintf(c.out, "Duration per Level: %s\n", cfg.LoadTest.TestDuration.Std())
	if cfg.LoadTest.MaxRequests > 0 {
		fmt.Fprintf(c.out, "Max Requests per Level: %d\n", cfg.LoadTest.MaxRequests)
	}
	fmt.Fprintf(c.out, "Request Timeout: %s\n", cfg.LoadTest.RequestTimeout.Std())
	fmt.Fprintf(c.out, "Max Retries: %d (backoff factor %.1f)\n",
		cfg.Retry.MaxRetries, cfg.Retry.BackoffFactor)
	fmt.Fprintf(c.out, "Streaming: %t\n", cfg.LoadTest.Streaming)
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	fmt.Fprintln(c.out)
}

// PrintSection prints a section header
func (c *ConsoleReporter) PrintSection(title string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, strings.Repeat("-", 80))
	c.title.Fprintf(c.out, ">>> %s\n", title)
	fmt.Fprintln(c.out, strings.Repeat("-", 80))
	fmt.Fprintln(c.out)
}

// PrintResultSet prints every stage of a completed suite run followed by
// the run totals.
func (c *ConsoleReporter) PrintResultSet(rs *loadtest.ResultSet) {
	for _, st := range rs.Stages {
		c.PrintStageStats(st)
	}
	c.printRunSummary(rs)
}

// PrintStageStats prints detailed statistics for one completed stage
func (c *ConsoleReporter) PrintStageStats(st loadtest.StageStats) {
	fmt.Fprintf(c.out, "\n[Concurrency: %d]\n", st.Concurrency)

	if st.Failed {
		c.bad.Fprintln(c.out, "  Stage failed to run; no data collected.")
		return
	}

	s := st.Overall
	fmt.Fprintln(c.out, "Results:")
	fmt.Fprintln(c.out, strings.Repeat("─", 80))

	// General stats
	fmt.Fprintf(c.out, "  Total Requests:     %d\n", s.TotalRequests)
	fmt.Fprintf(c.out, "  Successful:         %s (%.2f%%)\n",
		c.good.Sprint(s.Successes), s.SuccessRate*100)
	failed := fmt.Sprint(s.Failures)
	if s.Failures > 0 {
		failed = c.bad.Sprint(s.Failures)
	}
	fmt.Fprintf(c.out, "  Failed:             %s\n", failed)
	fmt.Fprintf(c.out, "  Duration:           %.2fs\n", st.DurationSeconds)

	// Throughput
	fmt.Fprintln(c.out, "\n  Throughput:")
	fmt.Fprintf(c.out, "    Requests/sec:     %.2f\n", s.RequestsPerSecond)

	// Token stats
	fmt.Fprintln(c.out, "\n  Token Usage:")
	fmt.Fprintf(c.out, "    Input Tokens:     %d\n", s.TotalInputTokens)
	fmt.Fprintf(c.out, "    Output Tokens:    %d\n", s.TotalOutputTokens)
	fmt.Fprintf(c.out, "    Estimated Cost:   $%.4f\n", s.TotalCost)

	// Latency stats
	if !s.NoData {
		fmt.Fprintln(c.out, "\n  Latency (seconds):")
		fmt.Fprintf(c.out, "    Average:          %.3f\n", s.MeanLatency)
		fmt.Fprintf(c.out, "    Min:              %.3f\n", s.MinLatency)
		fmt.Fprintf(c.out, "    Max:              %.3f\n", s.MaxLatency)
		fmt.Fprintf(c.out, "    P50:              %.3f\n", s.P50Latency)
		fmt.Fprintf(c.out, "    P90:              %.3f\n", s.P90Latency)
		fmt.Fprintf(c.out, "    P95:              %.3f\n", s.P95Latency)
		fmt.Fprintf(c.out, "    P99:              %.3f\n", s.P99Latency)
	}

	// TTFT stats (if available)
	if s.MeanTTFT > 0 {
		fmt.Fprintln(c.out, "\n  Time to First Token (seconds):")
		fmt.Fprintf(c.out, "    Average:          %.3f\n", s.MeanTTFT)
	}

	// Error distribution
	if len(s.ErrorBreakdown) > 0 {
		fmt.Fprintln(c.out, "\n  Error Distribution:")
		for _, kind := range sortedErrorKinds(s.ErrorBreakdown) {
			fmt.Fprintf(c.out, "    %s: %d\n", kind, s.ErrorBreakdown[kind])
		}
	}

	// Per-target breakdown
	if len(st.PerLabel) > 1 {
		fmt.Fprintln(c.out, "\n  Per Target:")
		for _, label := range sortedLabels(st.PerLabel) {
			ls := st.PerLabel[label]
			fmt.Fprintf(c.out, "    %s: %d requests, %.2f%% success, p50 %.3fs\n",
				label, ls.TotalRequests, ls.SuccessRate*100, ls.P50Latency)
		}
	}

	fmt.Fprintln(c.out, strings.Repeat("─", 80))
}

// printRunSummary prints the cross-stage totals for a suite run.
func (c *ConsoleReporter) printRunSummary(rs *loadtest.ResultSet) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	c.title.Fprintf(c.out, "Run Summary: %s (run %s)\n", rs.Suite, rs.RunID)
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	fmt.Fprintf(c.out, "  Stages:             %d\n", len(rs.Stages))
	fmt.Fprintf(c.out, "  Total Requests:     %d\n", rs.TotalRequests)
	fmt.Fprintf(c.out, "  Successful:         %s (%.2f%%)\n",
		c.good.Sprint(rs.TotalSuccesses), successPercent(rs.TotalSuccesses, rs.TotalRequests))
	fmt.Fprintf(c.out, "  Input Tokens:       %d\n", rs.TotalInputTokens)
	fmt.Fprintf(c.out, "  Output Tokens:      %d\n", rs.TotalOutputTokens)
	fmt.Fprintf(c.out, "  Estimated Cost:     $%.4f\n", rs.TotalCost)
	fmt.Fprintf(c.out, "  Wall Clock:         %.1fs\n", rs.WallClockSeconds)
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
}

// PrintReportSaved prints a message indicating the report was saved
func (c *ConsoleReporter) PrintReportSaved(filename string) {
	fmt.Fprintf(c.out, "Report saved to: %s\n", filename)
}

// PrintWarning prints a warning message
func (c *ConsoleReporter) PrintWarning(msg string) {
	c.warn.Fprintf(c.out, "\n[WARN] %s\n", msg)
}

// PrintError prints an error message
func (c *ConsoleReporter) PrintError(err error) {
	c.bad.Fprintf(c.out, "\n[ERROR] %v\n", err)
}

func successPercent(successes, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(successes) / float64(total) * 100
}

func sortedErrorKinds(breakdown map[loadtest.ErrorKind]int) []loadtest.ErrorKind {
	kinds := make([]loadtest.ErrorKind, 0, len(breakdown))
	for k := range breakdown {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func sortedLabels(perLabel map[string]loadtest.Stats) []string {
	labels := make([]string, 0, len(perLabel))
	for label := range perLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
