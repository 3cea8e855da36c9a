package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// InvokeParams are the generation parameters shared by all model families.
type InvokeParams struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// parsedResponse is the family-independent view of a model response.
type parsedResponse struct {
	text         string
	inputTokens  int
	outputTokens int
}

// adapter translates between the harness and one model family's wire
// format. buildRequest must produce a complete InvokeModel body;
// parseResponse must tolerate missing token counts (callers fall back to
// estimation).
type adapter interface {
	buildRequest(prompt string, p InvokeParams) ([]byte, error)
	parseResponse(body []byte) (parsedResponse, error)
}

// adapterFor selects the wire adapter for a model ID. Unrecognized models
// get the generic adapter, which speaks the common prompt/max_tokens
// dialect and scrapes the response for known completion fields.
func adapterFor(modelID string) adapter {
	switch {
	case isClaudeModel(modelID):
		return claudeAdapter{}
	case isTitanModel(modelID):
		return titanAdapter{}
	case isLlamaModel(modelID):
		return llamaAdapter{}
	case isMistralModel(modelID):
		return mistralAdapter{}
	default:
		return genericAdapter{}
	}
}

// isClaudeModel checks if the model is a Claude model
func isClaudeModel(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.Contains(id, "claude") || strings.Contains(id, "anthropic")
}

// isTitanModel checks if the model is a Titan text model
func isTitanModel(modelID string) bool {
	return strings.Contains(strings.ToLower(modelID), "titan")
}

// isLlamaModel checks if the model is a Llama model
func isLlamaModel(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.Contains(id, "llama") || strings.Contains(id, "meta")
}

// isMistralModel checks if the model is a Mistral model
func isMistralModel(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.Contains(id, "mistral") || strings.Contains(id, "mixtral")
}

// SupportsStreaming reports whether the harness can stream from the
// model. Streaming is wired for the Claude event format only.
func SupportsStreaming(modelID string) bool {
	return isClaudeModel(modelID)
}

type claudeAdapter struct{}

func (claudeAdapter) buildRequest(prompt string, p InvokeParams) ([]byte, error) {
	req := ClaudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        p.MaxTokens,
		Messages: []ClaudeMessage{
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	return json.Marshal(req)
}

func (claudeAdapter) parseResponse(body []byte) (parsedResponse, error) {
	var resp ClaudeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return parsedResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	out := parsedResponse{
		inputTokens:  resp.Usage.InputTokens,
		outputTokens: resp.Usage.OutputTokens,
	}
	if len(resp.Content) > 0 {
		out.text = resp.Content[0].Text
	}
	return out, nil
}

type titanAdapter struct{}

func (titanAdapter) buildRequest(prompt string, p InvokeParams) ([]byte, error) {
	req := TitanRequest{
		InputText: prompt,
		TextGenerationConfig: TitanGenerationConfig{
			MaxTokenCount: p.MaxTokens,
			Temperature:   p.Temperature,
			TopP:          p.TopP,
		},
	}
	return json.Marshal(req)
}

func (titanAdapter) parseResponse(body []byte) (parsedResponse, error) {
	var resp TitanResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return parsedResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	out := parsedResponse{inputTokens: resp.InputTextTokenCount}
	if len(resp.Results) > 0 {
		out.text = resp.Results[0].OutputText
		out.outputTokens = resp.Results[0].TokenCount
	}
	return out, nil
}

type llamaAdapter struct{}

func (llamaAdapter) buildRequest(prompt string, p InvokeParams) ([]byte, error) {
	req := LlamaRequest{
		Prompt:      prompt,
		MaxGenLen:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	return json.Marshal(req)
}

func (llamaAdapter) parseResponse(body []byte) (parsedResponse, error) {
	var resp LlamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return parsedResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return parsedResponse{
		text:         resp.Generation,
		inputTokens:  resp.PromptTokenCount,
		outputTokens: resp.GenerationTokenCount,
	}, nil
}

type mistralAdapter struct{}

func (mistralAdapter) buildRequest(prompt string, p InvokeParams) ([]byte, error) {
	req := MistralRequest{
		Prompt:      "<s>[INST] " + prompt + " [/INST]",
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	}
	return json.Marshal(req)
}

func (mistralAdapter) parseResponse(body []byte) (parsedResponse, error) {
	var resp MistralResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return parsedResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}

	var out parsedResponse
	if len(resp.Outputs) > 0 {
		out.text = resp.Outputs[0].Text
	}
	// Mistral reports no usage in the body; token counts come from the
	// invocation metrics when present.
	m := gjson.GetBytes(body, "amazon-bedrock-invocationMetrics")
	if m.Exists() {
		out.inputTokens = int(m.Get("inputTokenCount").Int())
		out.outputTokens = int(m.Get("outputTokenCount").Int())
	}
	return out, nil
}

// completionPaths are the known completion locations across model
// families, probed in order by the generic adapter.
var completionPaths = []string{
	"content.0.text",
	"results.0.outputText",
	"generation",
	"outputs.0.text",
	"choices.0.message.content",
	"completion",
	"completions.0.data.text",
	"generations.0.text",
	"text",
}

type genericAdapter struct{}

func (genericAdapter) buildRequest(prompt string, p InvokeParams) ([]byte, error) {
	req := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  p.MaxTokens,
		"temperature": p.Temperature,
	}
	return json.Marshal(req)
}

func (genericAdapter) parseResponse(body []byte) (parsedResponse, error) {
	if !gjson.ValidBytes(body) {
		return parsedResponse{}, fmt.Errorf("failed to parse response: invalid JSON")
	}

	var out parsedResponse
	for _, path := range completionPaths {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			out.text = v.String()
			break
		}
	}

	if usage := gjson.GetBytes(body, "usage"); usage.Exists() {
		out.inputTokens = int(firstInt(usage, "input_tokens", "prompt_tokens"))
		out.outputTokens = int(firstInt(usage, "output_tokens", "completion_tokens"))
	}
	if m := gjson.GetBytes(body, "amazon-bedrock-invocationMetrics"); m.Exists() {
		out.inputTokens = int(m.Get("inputTokenCount").Int())
		out.outputTokens = int(m.Get("outputTokenCount").Int())
	}
	if out.inputTokens == 0 {
		out.inputTokens = int(gjson.GetBytes(body, "prompt_token_count").Int())
	}
	if out.outputTokens == 0 {
		out.outputTokens = int(gjson.GetBytes(body, "generation_token_count").Int())
	}

	return out, nil
}

// firstInt returns the first existing integer among the given subpaths.
func firstInt(v gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if sub := v.Get(p); sub.Exists() {
			return sub.Int()
		}
	}
	return 0
}
