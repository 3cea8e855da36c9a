package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bedrock-loadtest/internal/report"
)

var (
	reportInput  string
	reportOutput string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render a saved JSON report",
	Long: `Report reloads a JSON export produced by a previous run and renders it to
the console. With --output it also regenerates the markdown report into the
given directory.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportInput, "input", "", "path to a saved JSON report")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "directory to regenerate the markdown report into")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportInput == "" {
		return errors.New("--input is required")
	}

	doc, err := report.ReadJSON(reportInput)
	if err != nil {
		return err
	}

	console := report.NewConsoleReporter(os.Stdout)
	for _, rs := range doc.Results {
		console.PrintSection("Suite: " + rs.Suite)
		console.PrintResultSet(rs)
	}

	if reportOutput == "" {
		return nil
	}
	if err := os.MkdirAll(reportOutput, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(reportOutput, fmt.Sprintf("loadtest_report_%s.md", time.Now().Format("20060102_150405")))
	md := report.NewMarkdownReporter(nil)
	if err := md.SaveToFile(md.Generate(doc.Results), path); err != nil {
		return fmt.Errorf("failed to save markdown report: %w", err)
	}
	console.PrintReportSaved(path)
	return nil
}
