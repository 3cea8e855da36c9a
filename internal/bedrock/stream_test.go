package bedrock

import (
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedrock-loadtest/internal/loadtest"
)

type fakeStreamReader struct {
	events chan types.ResponseStream
	err    error
}

func (f *fakeStreamReader) Events() <-chan types.ResponseStream { return f.events }
func (f *fakeStreamReader) Close() error                        { return nil }
func (f *fakeStreamReader) Err() error                          { return f.err }

func fakeStream(err error, payloads ...string) *bedrockruntime.InvokeModelWithResponseStreamEventStream {
	ch := make(chan types.ResponseStream, len(payloads))
	for _, p := range payloads {
		ch <- &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte(p)}}
	}
	close(ch)

	return bedrockruntime.NewInvokeModelWithResponseStreamEventStream(func(es *bedrockruntime.InvokeModelWithResponseStreamEventStream) {
		es.Reader = &fakeStreamReader{events: ch, err: err}
	})
}

func TestConsumeClaudeStream(t *testing.T) {
	stream := fakeStream(nil,
		`{"type": "message_start", "message": {"usage": {"input_tokens": 12}}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": "Hello"}}`,
		`{"type": "content_block_delta", "index": 0, "delta": {"type": "text_delta", "text": " world"}}`,
		`{"type": "message_delta", "usage": {"output_tokens": 2}}`,
		`{"type": "message_stop"}`,
	)

	parsed, ttft, err := consumeClaudeStream(stream, time.Now().Add(-10*time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, "Hello world", parsed.text)
	assert.Equal(t, 12, parsed.inputTokens)
	assert.Equal(t, 2, parsed.outputTokens)
	assert.GreaterOrEqual(t, ttft, 10*time.Millisecond,
		"the first content delta stamps the time to first token")
}

func TestConsumeClaudeStreamNoContent(t *testing.T) {
	stream := fakeStream(nil,
		`{"type": "message_start", "message": {"usage": {"input_tokens": 5}}}`,
		`{"type": "message_stop"}`,
	)

	parsed, ttft, err := consumeClaudeStream(stream, time.Now())
	require.NoError(t, err)

	assert.Empty(t, parsed.text)
	assert.Zero(t, ttft, "no content delta means no first-token time")
}

func TestConsumeClaudeStreamBadEvent(t *testing.T) {
	stream := fakeStream(nil, `{{{`)

	_, _, err := consumeClaudeStream(stream, time.Now())
	require.Error(t, err)
	assert.Equal(t, loadtest.ErrorKindService, loadtest.Classify(err))
}

func TestConsumeClaudeStreamReaderError(t *testing.T) {
	stream := fakeStream(errors.New("connection reset"),
		`{"type": "content_block_delta", "delta": {"type": "text_delta", "text": "partial"}}`,
	)

	_, _, err := consumeClaudeStream(stream, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, loadtest.ErrorKindService, loadtest.Classify(err))
}
