package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"bedrock-loadtest/internal/loadtest"
)

func TestCapLevels(t *testing.T) {
	tests := []struct {
		name    string
		levels  []int
		limit   int
		want    []int
		clamped bool
	}{
		{"no limit", []int{1, 5, 10}, 0, []int{1, 5, 10}, false},
		{"below limit", []int{1, 5, 10}, 20, []int{1, 5, 10}, false},
		{"clamped tail collapses", []int{1, 5, 10, 20, 50}, 10, []int{1, 5, 10}, true},
		{"clamped mid ladder", []int{1, 5, 10}, 8, []int{1, 5, 8}, true},
		{"single level", []int{50}, 20, []int{20}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := capLevels(tt.levels, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.clamped, clamped)
		})
	}
}

func TestTargetLabels(t *testing.T) {
	fm := []loadtest.Target{
		{Label: "foundation_model_claude-3-haiku"},
		{Label: "foundation_model_titan-text-express"},
	}
	kb := []loadtest.Target{{Label: "knowledge_base"}}

	labels := targetLabels(fm, kb)
	assert.Equal(t, []string{
		"foundation_model_claude-3-haiku",
		"foundation_model_titan-text-express",
		"knowledge_base",
	}, labels)
}
