package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"bedrock-loadtest/internal/loadtest"
)

func (iv *Invoker) invokeStreaming(ctx context.Context, prompt string, body []byte) (*loadtest.InvokeResult, error) {
	input := &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(iv.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	}

	start := time.Now()
	output, err := iv.client.InvokeModelWithResponseStream(ctx, input)
	if err != nil {
		return nil, ClassifyError(err)
	}

	parsed, ttft, err := consumeClaudeStream(output.GetStream(), start)
	latency := time.Since(start)
	if err != nil {
		return nil, err
	}

	inputTokens, outputTokens := iv.resolveTokens(prompt, parsed)
	return &loadtest.InvokeResult{
		Latency:      latency,
		TTFT:         ttft,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         ModelCost(iv.pricing, inputTokens, outputTokens),
	}, nil
}

// consumeClaudeStream drains a Claude event stream, accumulating content
// and capturing usage. The first content delta marks the time to first
// token.
func consumeClaudeStream(stream *bedrockruntime.InvokeModelWithResponseStreamEventStream, start time.Time) (parsedResponse, time.Duration, error) {
	defer stream.Close()

	firstToken := true
	var ttft time.Duration
	var parsed parsedResponse
	var contentBuilder strings.Builder

	for event := range stream.Events() {
		chunk, ok := event.(*types.ResponseStreamMemberChunk)
		if !ok {
			continue
		}

		var streamEvent ClaudeStreamEvent
		if err := json.Unmarshal(chunk.Value.Bytes, &streamEvent); err != nil {
			return parsed, ttft, loadtest.NewClassifiedError(loadtest.ErrorKindService,
				fmt.Errorf("failed to parse stream event: %w", err))
		}

		if firstToken && streamEvent.Type == "content_block_delta" {
			ttft = time.Since(start)
			firstToken = false
		}

		if streamEvent.Delta != nil && streamEvent.Delta.Text != "" {
			contentBuilder.WriteString(streamEvent.Delta.Text)
		}

		if streamEvent.Type == "message_start" && streamEvent.Message != nil {
			parsed.inputTokens = streamEvent.Message.Usage.InputTokens
		}
		if streamEvent.Type == "message_delta" && streamEvent.Usage != nil {
			parsed.outputTokens = streamEvent.Usage.OutputTokens
		}
	}

	if err := stream.Err(); err != nil && err != io.EOF {
		return parsed, ttft, loadtest.NewClassifiedError(loadtest.ErrorKindService,
			fmt.Errorf("stream error: %w", err))
	}

	parsed.text = contentBuilder.String()
	return parsed, ttft, nil
}
