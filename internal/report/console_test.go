package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsolePrintHeader(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)
	c.PrintHeader(sampleConfig(), []string{"foundation_model_claude", "knowledge_base"})

	out := buf.String()
	assert.Contains(t, out, "AWS Bedrock Load Test")
	assert.Contains(t, out, "Region: us-east-1")
	assert.Contains(t, out, "Targets: foundation_model_claude, knowledge_base")
	assert.Contains(t, out, "Concurrency Levels: [1 5 10]")
	assert.Contains(t, out, "Duration per Level: 1m0s")
	assert.Contains(t, out, "Max Retries: 3 (backoff factor 2.0)")
	assert.Contains(t, out, "Streaming: true")
}

func TestConsolePrintResultSet(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)
	c.PrintResultSet(sampleResultSet())

	out := buf.String()
	assert.Contains(t, out, "[Concurrency: 1]")
	assert.Contains(t, out, "Total Requests:     50")
	assert.Contains(t, out, "Successful:         50 (100.00%)")
	assert.Contains(t, out, "Requests/sec:     0.83")
	assert.Contains(t, out, "Estimated Cost:   $0.0125")
	assert.Contains(t, out, "P99:              2.100")

	assert.Contains(t, out, "Time to First Token (seconds):")
	assert.Contains(t, out, "Error Distribution:")
	assert.Contains(t, out, "throttled: 8")
	assert.Contains(t, out, "Per Target:")
	assert.Contains(t, out, "foundation_model_claude: 100 requests, 97.00% success, p50 1.300s")

	assert.Contains(t, out, "[Concurrency: 10]")
	assert.Contains(t, out, "Stage failed to run; no data collected.")

	assert.Contains(t, out, "Run Summary: foundation_models (run 7f3a2c90-4f0e-4d6a-9b1c-2a8d5e6f7a8b)")
	assert.Contains(t, out, "Total Requests:     250")
	assert.Contains(t, out, "Estimated Cost:     $0.0600")
	assert.Contains(t, out, "Wall Clock:         125.5s")
}

// A non-terminal writer must never receive ANSI escape sequences.
func TestConsoleNoColorForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)
	c.PrintHeader(sampleConfig(), []string{"foundation_model_claude"})
	c.PrintResultSet(sampleResultSet())
	c.PrintError(errors.New("boom"))

	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestConsoleSections(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsoleReporter(&buf)
	c.PrintSection("Foundation Model Load Test")
	c.PrintReportSaved("reports/loadtest_report.md")
	c.PrintWarning("run interrupted; results are partial")
	c.PrintError(errors.New("no targets enabled"))

	out := buf.String()
	assert.Contains(t, out, ">>> Foundation Model Load Test")
	assert.Contains(t, out, "Report saved to: reports/loadtest_report.md")
	assert.Contains(t, out, "[WARN] run interrupted; results are partial")
	assert.Contains(t, out, "[ERROR] no targets enabled")
}
