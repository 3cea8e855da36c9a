package bedrock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
)

// ClientConfig holds the AWS connection settings shared by every client
// this package creates.
type ClientConfig struct {
	Region          string
	Profile         string
	AccessKeyID     string
	SecretAccessKey string
}

// AWSConfig resolves the AWS configuration. Static credentials win when
// both are set, then a named profile; otherwise the default credential
// chain applies (env, shared credentials, IAM role, etc.).
func AWSConfig(ctx context.Context, cc ClientConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cc.Region),
	}
	if cc.AccessKeyID != "" && cc.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cc.AccessKeyID, cc.SecretAccessKey, ""),
		))
	} else if cc.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cc.Profile))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// RuntimeAPI captures the bedrockruntime client surface the invoker
// uses, so tests can substitute a fake.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
}

// NewRuntimeClient creates a Bedrock runtime client.
func NewRuntimeClient(ctx context.Context, cc ClientConfig) (*bedrockruntime.Client, error) {
	cfg, err := AWSConfig(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// Invoker issues requests against one foundation model. It satisfies the
// harness invoke contract: classified errors for failures it understands,
// measured latency around the API call, and costs from the model's
// pricing.
type Invoker struct {
	client    RuntimeAPI
	modelID   string
	adapter   adapter
	params    InvokeParams
	pricing   config.ModelPricing
	streaming bool
}

// NewInvoker binds a model to a runtime client. Streaming is honored only
// for model families the harness can stream from.
func NewInvoker(client RuntimeAPI, model config.FoundationModel, streaming bool) *Invoker {
	return &Invoker{
		client:  client,
		modelID: model.ModelID,
		adapter: adapterFor(model.ModelID),
		params: InvokeParams{
			MaxTokens:   model.MaxTokens,
			Temperature: model.Temperature,
			TopP:        model.TopP,
		},
		pricing:   model.Pricing,
		streaming: streaming && SupportsStreaming(model.ModelID),
	}
}

// Invoke sends one prompt to the model and returns the measured result.
func (iv *Invoker) Invoke(ctx context.Context, prompt string) (*loadtest.InvokeResult, error) {
	body, err := iv.adapter.buildRequest(prompt, iv.params)
	if err != nil {
		return nil, loadtest.NewClassifiedError(loadtest.ErrorKindValidation,
			fmt.Errorf("failed to prepare request: %w", err))
	}

	if iv.streaming {
		return iv.invokeStreaming(ctx, prompt, body)
	}
	return iv.invokeOnce(ctx, prompt, body)
}

func (iv *Invoker) invokeOnce(ctx context.Context, prompt string, body []byte) (*loadtest.InvokeResult, error) {
	input := &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(iv.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	start := time.Now()
	output, err := iv.client.InvokeModel(ctx, input)
	latency := time.Since(start)
	if err != nil {
		return nil, ClassifyError(err)
	}

	parsed, err := iv.adapter.parseResponse(output.Body)
	if err != nil {
		return nil, loadtest.NewClassifiedError(loadtest.ErrorKindService, err)
	}

	inputTokens, outputTokens := iv.resolveTokens(prompt, parsed)
	return &loadtest.InvokeResult{
		Latency:      latency,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         ModelCost(iv.pricing, inputTokens, outputTokens),
	}, nil
}

// resolveTokens prefers the counts the model reported and estimates from
// text length when it reported none.
func (iv *Invoker) resolveTokens(prompt string, parsed parsedResponse) (int, int) {
	inputTokens := parsed.inputTokens
	if inputTokens == 0 {
		inputTokens = EstimateTokens(prompt)
	}
	outputTokens := parsed.outputTokens
	if outputTokens == 0 && parsed.text != "" {
		outputTokens = EstimateTokens(parsed.text)
	}
	return inputTokens, outputTokens
}
