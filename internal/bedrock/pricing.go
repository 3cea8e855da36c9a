package bedrock

import "bedrock-loadtest/internal/config"

// EstimateTokens approximates the token count of a text when the service
// reports none: roughly 4 characters per token for English.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// ModelCost computes the cost of one invocation in USD from per-1000
// token pricing.
func ModelCost(p config.ModelPricing, inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
}

// KBCost computes the cost of one knowledge base query: generation
// tokens priced like a model invocation, plus the OCU charge for the
// retrieval.
func KBCost(p config.KBPricing, inputTokens, outputTokens int) float64 {
	tokenCost := float64(inputTokens)/1000*p.InputPer1K + float64(outputTokens)/1000*p.OutputPer1K
	return tokenCost + p.OCUPerQuery*p.OCUHourlyRate
}
