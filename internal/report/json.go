package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"bedrock-loadtest/internal/loadtest"
)

// Export is the machine-readable report document. It carries the complete
// result sets so a saved file can be re-rendered later without re-running
// the test.
type Export struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Results     []*loadtest.ResultSet `json:"results"`
}

// WriteJSON saves the results as an indented JSON document
func WriteJSON(filename string, results []*loadtest.ResultSet) error {
	doc := Export{
		GeneratedAt: time.Now().UTC(),
		Results:     results,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}

// ReadJSON loads a previously saved JSON report
func ReadJSON(filename string) (*Export, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var doc Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", filename, err)
	}
	return &doc, nil
}
