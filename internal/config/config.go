package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a bare number
// of seconds (60, 0.5) or a Go duration string ("30s", "1m30s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a standard time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TestConfig is the complete test configuration loaded from
// test_config.yaml.
type TestConfig struct {
	AWS        AWSConfig        `yaml:"aws"`
	LoadTest   LoadTestConfig   `yaml:"load_test"`
	Retry      RetryConfig      `yaml:"retry"`
	Prompts    []string         `yaml:"prompts"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
	Output     OutputConfig     `yaml:"output"`
}

// AWSConfig contains AWS credentials and region
type AWSConfig struct {
	Region          string `yaml:"region"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// LoadTestConfig contains the load shape: the concurrency ladder and the
// per-stage bounds.
type LoadTestConfig struct {
	ConcurrentUsers []int    `yaml:"concurrent_users"`
	TestDuration    Duration `yaml:"test_duration"`
	// MaxRequests caps each stage's total requests. Zero or omitted
	// means duration-bounded only.
	MaxRequests     int      `yaml:"max_requests"`
	RequestTimeout  Duration `yaml:"request_timeout"`
	RequestDelay    Duration `yaml:"request_delay"`
	RampUpTime      Duration `yaml:"ramp_up_time"`
	StageQuiescence Duration `yaml:"stage_quiescence"`
	Streaming       bool     `yaml:"streaming"`
}

// RetryConfig contains the retry policy for transient failures
type RetryConfig struct {
	MaxRetries    int     `yaml:"max_retries"`
	BackoffFactor float64 `yaml:"backoff_factor"`
}

// CloudWatchConfig controls metric publishing
type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// OutputConfig defines report output settings
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

// defaultPrompts covers a spread of prompt lengths and task kinds, used
// when the config file does not supply its own.
var defaultPrompts = []string{
	"What is artificial intelligence?",
	"Explain the concept of machine learning and how it differs from traditional programming. " +
		"Include examples of common algorithms and their applications in real-world scenarios.",
	"Write a comprehensive analysis of cloud computing technologies, covering infrastructure, " +
		"platform and software service models, serverless computing, multi-cloud strategies, " +
		"security considerations, cost optimization techniques and future trends including edge " +
		"computing. Please provide detailed explanations with practical examples and industry " +
		"best practices.",
	"Write a Python function that implements a binary search algorithm. Include error handling, " +
		"documentation, and unit tests.",
	"Write a short story about a robot that discovers emotions. The story should be engaging, " +
		"have a clear beginning, middle, and end, and explore themes of consciousness and humanity.",
}

// LoadTestConfigFile reads, defaults and validates the test configuration.
func LoadTestConfigFile(path string) (*TestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg TestConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *TestConfig) applyDefaults() {
	if len(c.LoadTest.ConcurrentUsers) == 0 {
		c.LoadTest.ConcurrentUsers = []int{1, 5, 10}
	}
	if c.LoadTest.TestDuration <= 0 {
		c.LoadTest.TestDuration = Duration(60 * time.Second)
	}
	if c.LoadTest.RequestTimeout <= 0 {
		c.LoadTest.RequestTimeout = Duration(30 * time.Second)
	}
	if c.Retry.BackoffFactor == 0 {
		c.Retry.BackoffFactor = 2
	}
	if len(c.Prompts) == 0 {
		c.Prompts = defaultPrompts
	}
	if c.CloudWatch.Namespace == "" {
		c.CloudWatch.Namespace = "BedrockLoadTest"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "reports"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"markdown", "json"}
	}
}

// Validate checks if the configuration is valid
func (c *TestConfig) Validate() error {
	if c.AWS.Region == "" {
		return fmt.Errorf("aws.region is required")
	}
	// access_key_id and secret_access_key are optional
	// if empty, the SDK will use profile or the default credential chain
	if len(c.LoadTest.ConcurrentUsers) == 0 {
		return fmt.Errorf("load_test.concurrent_users must not be empty")
	}
	for _, n := range c.LoadTest.ConcurrentUsers {
		if n <= 0 {
			return fmt.Errorf("load_test.concurrent_users must all be positive, got %d", n)
		}
	}
	if c.LoadTest.TestDuration <= 0 {
		return fmt.Errorf("load_test.test_duration must be positive")
	}
	if c.LoadTest.MaxRequests < 0 {
		return fmt.Errorf("load_test.max_requests must not be negative")
	}
	if c.LoadTest.RequestTimeout <= 0 {
		return fmt.Errorf("load_test.request_timeout must be positive")
	}
	if c.LoadTest.RequestDelay < 0 {
		return fmt.Errorf("load_test.request_delay must not be negative")
	}
	if c.LoadTest.RampUpTime < 0 {
		return fmt.Errorf("load_test.ramp_up_time must not be negative")
	}
	if c.LoadTest.StageQuiescence < 0 {
		return fmt.Errorf("load_test.stage_quiescence must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be >= 1")
	}
	if c.CloudWatch.Enabled && c.CloudWatch.Namespace == "" {
		return fmt.Errorf("cloudwatch.namespace is required when cloudwatch is enabled")
	}
	for _, f := range c.Output.Formats {
		if f != "markdown" && f != "json" {
			return fmt.Errorf("output.formats contains unknown format %q", f)
		}
	}

	return nil
}
