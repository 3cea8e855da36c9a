package bedrock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
)

type fakeRuntime struct {
	lastInput *bedrockruntime.InvokeModelInput
	response  []byte
	err       error
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.lastInput = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.response}, nil
}

func (f *fakeRuntime) InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error) {
	return nil, errors.New("streaming not supported by fake")
}

func testModel() config.FoundationModel {
	return config.FoundationModel{
		Name:        "claude-3-haiku",
		ModelID:     "anthropic.claude-3-haiku-20240307-v1:0",
		Enabled:     true,
		MaxTokens:   1024,
		Temperature: 0.5,
		TopP:        0.9,
		Pricing:     config.ModelPricing{InputPer1K: 0.00025, OutputPer1K: 0.00125},
	}
}

func TestInvokerSuccess(t *testing.T) {
	fake := &fakeRuntime{response: []byte(`{
		"content": [{"type": "text", "text": "Hi there"}],
		"usage": {"input_tokens": 1000, "output_tokens": 2000}
	}`)}
	iv := NewInvoker(fake, testModel(), false)

	res, err := iv.Invoke(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, 1000, res.InputTokens)
	assert.Equal(t, 2000, res.OutputTokens)
	assert.InDelta(t, 0.00275, res.Cost, 1e-9)
	assert.Greater(t, res.Latency, time.Duration(0))
	assert.Zero(t, res.TTFT)

	require.NotNil(t, fake.lastInput)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(fake.lastInput.ModelId))
	assert.Equal(t, "application/json", aws.ToString(fake.lastInput.ContentType))
	assert.Equal(t, "application/json", aws.ToString(fake.lastInput.Accept))
	assert.JSONEq(t, `{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens": 1024,
		"messages": [{"role": "user", "content": "Hello"}],
		"temperature": 0.5,
		"top_p": 0.9
	}`, string(fake.lastInput.Body))
}

func TestInvokerClassifiesAPIError(t *testing.T) {
	fake := &fakeRuntime{err: apiError("ThrottlingException")}
	iv := NewInvoker(fake, testModel(), false)

	res, err := iv.Invoke(context.Background(), "Hello")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, loadtest.ErrorKindThrottled, loadtest.Classify(err))
}

func TestInvokerBadResponseBody(t *testing.T) {
	fake := &fakeRuntime{response: []byte("<html>gateway error</html>")}
	iv := NewInvoker(fake, testModel(), false)

	_, err := iv.Invoke(context.Background(), "Hello")
	require.Error(t, err)
	assert.Equal(t, loadtest.ErrorKindService, loadtest.Classify(err))
}

func TestInvokerEstimatesMissingTokens(t *testing.T) {
	fake := &fakeRuntime{response: []byte(`{"content": [{"type": "text", "text": "0123456789abcdef"}]}`)}
	iv := NewInvoker(fake, testModel(), false)

	res, err := iv.Invoke(context.Background(), "01234567")
	require.NoError(t, err)

	assert.Equal(t, 2, res.InputTokens, "estimated from the prompt length")
	assert.Equal(t, 4, res.OutputTokens, "estimated from the completion length")
}

func TestNewInvokerStreamingOnlyWhereSupported(t *testing.T) {
	iv := NewInvoker(&fakeRuntime{}, testModel(), true)
	assert.True(t, iv.streaming)

	titan := testModel()
	titan.ModelID = "amazon.titan-text-express-v1"
	iv = NewInvoker(&fakeRuntime{}, titan, true)
	assert.False(t, iv.streaming, "streaming falls back to buffered invocation for non-Claude models")
}
