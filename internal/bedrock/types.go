package bedrock

// ClaudeRequest represents a request to Claude models
type ClaudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []ClaudeMessage `json:"messages"`
	Temperature      float64         `json:"temperature,omitempty"`
	TopP             float64         `json:"top_p,omitempty"`
}

// ClaudeMessage represents a message in Claude request
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse represents a response from Claude models
type ClaudeResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Role       string          `json:"role"`
	Content    []ClaudeContent `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
	Usage      ClaudeUsage     `json:"usage"`
}

// ClaudeContent represents content in Claude response
type ClaudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ClaudeUsage represents token usage in Claude response
type ClaudeUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ClaudeStreamEvent represents a streaming event from Claude
type ClaudeStreamEvent struct {
	Type         string             `json:"type"`
	Index        int                `json:"index,omitempty"`
	Delta        *ClaudeStreamDelta `json:"delta,omitempty"`
	ContentBlock *ClaudeContent     `json:"content_block,omitempty"`
	Message      *ClaudeResponse    `json:"message,omitempty"`
	Usage        *ClaudeUsage       `json:"usage,omitempty"`
}

// ClaudeStreamDelta represents a delta in streaming response
type ClaudeStreamDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// TitanRequest represents a request to Titan text models
type TitanRequest struct {
	InputText            string               `json:"inputText"`
	TextGenerationConfig TitanGenerationConfig `json:"textGenerationConfig"`
}

// TitanGenerationConfig holds the Titan generation parameters
type TitanGenerationConfig struct {
	MaxTokenCount int     `json:"maxTokenCount"`
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"topP"`
}

// TitanResponse represents a response from Titan text models
type TitanResponse struct {
	InputTextTokenCount int           `json:"inputTextTokenCount"`
	Results             []TitanResult `json:"results"`
}

// TitanResult is one generation in a Titan response
type TitanResult struct {
	TokenCount       int    `json:"tokenCount"`
	OutputText       string `json:"outputText"`
	CompletionReason string `json:"completionReason"`
}

// LlamaRequest represents a request to Llama models
type LlamaRequest struct {
	Prompt      string  `json:"prompt"`
	MaxGenLen   int     `json:"max_gen_len"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// LlamaResponse represents a response from Llama models
type LlamaResponse struct {
	Generation           string `json:"generation"`
	PromptTokenCount     int    `json:"prompt_token_count"`
	GenerationTokenCount int    `json:"generation_token_count"`
	StopReason           string `json:"stop_reason"`
}

// MistralRequest represents a request to Mistral models
type MistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// MistralResponse represents a response from Mistral models
type MistralResponse struct {
	Outputs []MistralOutput `json:"outputs"`
}

// MistralOutput is one generation in a Mistral response
type MistralOutput struct {
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}
