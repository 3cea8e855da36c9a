package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelsConfig is the target inventory loaded from models_config.yaml:
// the foundation models to drive plus the optional knowledge base.
type ModelsConfig struct {
	FoundationModels []FoundationModel   `yaml:"foundation_models"`
	KnowledgeBase    KnowledgeBaseConfig `yaml:"knowledge_base"`
}

// FoundationModel describes one invocable model and its pricing.
type FoundationModel struct {
	Name        string       `yaml:"name"`
	ModelID     string       `yaml:"model_id"`
	Enabled     bool         `yaml:"enabled"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature float64      `yaml:"temperature"`
	TopP        float64      `yaml:"top_p"`
	Pricing     ModelPricing `yaml:"pricing"`
}

// ModelPricing is the on-demand price per 1000 tokens, in USD.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// KnowledgeBaseConfig describes the retrieve-and-generate target.
type KnowledgeBaseConfig struct {
	Enabled         bool   `yaml:"enabled"`
	KnowledgeBaseID string `yaml:"kb_id"`
	ModelARN        string `yaml:"model_arn"`
	// MaxConcurrency caps the ladder levels applied to the knowledge
	// base, which throttles well before foundation models do.
	MaxConcurrency   int       `yaml:"max_concurrency"`
	SessionReuse     bool      `yaml:"session_reuse"`
	RetrievalResults int       `yaml:"retrieval_results"`
	Queries          []KBQuery `yaml:"queries"`
	Pricing          KBPricing `yaml:"pricing"`
}

// KBQuery is one retrieval query with an optional category for reporting.
type KBQuery struct {
	Text     string `yaml:"text"`
	Category string `yaml:"category"`
}

// KBPricing covers both sides of a knowledge base query: generation
// tokens priced per 1000, plus the OCU charge for the retrieval itself.
type KBPricing struct {
	InputPer1K    float64 `yaml:"input_per_1k"`
	OutputPer1K   float64 `yaml:"output_per_1k"`
	OCUPerQuery   float64 `yaml:"ocu_per_query"`
	OCUHourlyRate float64 `yaml:"ocu_hourly_rate"`
}

// LoadModelsConfig reads, defaults and validates the models configuration.
func LoadModelsConfig(path string) (*ModelsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models config file: %w", err)
	}

	var cfg ModelsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse models config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid models configuration: %w", err)
	}

	return &cfg, nil
}

func (c *ModelsConfig) applyDefaults() {
	for i := range c.FoundationModels {
		m := &c.FoundationModels[i]
		if m.MaxTokens <= 0 {
			m.MaxTokens = 4096
		}
		if m.Temperature == 0 {
			m.Temperature = 0.7
		}
		if m.TopP == 0 {
			m.TopP = 0.9
		}
	}

	kb := &c.KnowledgeBase
	if kb.MaxConcurrency <= 0 {
		kb.MaxConcurrency = 20
	}
	if kb.RetrievalResults <= 0 {
		kb.RetrievalResults = 5
	}
	if kb.Pricing.InputPer1K == 0 {
		kb.Pricing.InputPer1K = 0.0008
	}
	if kb.Pricing.OutputPer1K == 0 {
		kb.Pricing.OutputPer1K = 0.004
	}
	if kb.Pricing.OCUPerQuery == 0 {
		kb.Pricing.OCUPerQuery = 0.001
	}
	if kb.Pricing.OCUHourlyRate == 0 {
		kb.Pricing.OCUHourlyRate = 0.20
	}
}

// Validate checks if the models configuration is valid
func (c *ModelsConfig) Validate() error {
	if len(c.EnabledModels()) == 0 && !c.KnowledgeBase.Enabled {
		return fmt.Errorf("no foundation model enabled and knowledge base disabled: nothing to test")
	}
	for _, m := range c.FoundationModels {
		if !m.Enabled {
			continue
		}
		if m.Name == "" {
			return fmt.Errorf("foundation model with id %q has no name", m.ModelID)
		}
		if m.ModelID == "" {
			return fmt.Errorf("foundation model %q has no model_id", m.Name)
		}
		if m.Pricing.InputPer1K < 0 || m.Pricing.OutputPer1K < 0 {
			return fmt.Errorf("foundation model %q has negative pricing", m.Name)
		}
	}

	kb := c.KnowledgeBase
	if kb.Enabled {
		if kb.KnowledgeBaseID == "" {
			return fmt.Errorf("knowledge_base.kb_id is required when the knowledge base is enabled")
		}
		if kb.ModelARN == "" {
			return fmt.Errorf("knowledge_base.model_arn is required when the knowledge base is enabled")
		}
		if len(kb.Queries) == 0 {
			return fmt.Errorf("knowledge_base.queries must not be empty when the knowledge base is enabled")
		}
	}

	return nil
}

// EnabledModels returns the foundation models marked enabled, in file
// order.
func (c *ModelsConfig) EnabledModels() []FoundationModel {
	var out []FoundationModel
	for _, m := range c.FoundationModels {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}
