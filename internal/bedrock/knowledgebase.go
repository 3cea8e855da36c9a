package bedrock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	agtypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"bedrock-loadtest/internal/config"
	"bedrock-loadtest/internal/loadtest"
)

// KnowledgeBaseAPI captures the agent runtime client surface the invoker
// uses, so tests can substitute a fake.
type KnowledgeBaseAPI interface {
	RetrieveAndGenerate(ctx context.Context, params *bedrockagentruntime.RetrieveAndGenerateInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveAndGenerateOutput, error)
}

// NewKnowledgeBaseClient creates a Bedrock agent runtime client.
func NewKnowledgeBaseClient(ctx context.Context, cc ClientConfig) (*bedrockagentruntime.Client, error) {
	cfg, err := AWSConfig(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return bedrockagentruntime.NewFromConfig(cfg), nil
}

// KnowledgeBaseInvoker issues retrieve-and-generate queries against one
// knowledge base. With session reuse on, consecutive queries share a
// conversation session; the session is dropped after any failure.
type KnowledgeBaseInvoker struct {
	client KnowledgeBaseAPI
	cfg    config.KnowledgeBaseConfig

	mu        sync.Mutex
	sessionID string
}

func NewKnowledgeBaseInvoker(client KnowledgeBaseAPI, cfg config.KnowledgeBaseConfig) *KnowledgeBaseInvoker {
	return &KnowledgeBaseInvoker{client: client, cfg: cfg}
}

// Invoke runs one retrieval query and returns the measured result. Token
// counts are estimated from text length; the retrieve-and-generate API
// reports no usage.
func (kb *KnowledgeBaseInvoker) Invoke(ctx context.Context, query string) (*loadtest.InvokeResult, error) {
	input := &bedrockagentruntime.RetrieveAndGenerateInput{
		Input: &agtypes.RetrieveAndGenerateInput{
			Text: aws.String(query),
		},
		RetrieveAndGenerateConfiguration: &agtypes.RetrieveAndGenerateConfiguration{
			Type: agtypes.RetrieveAndGenerateTypeKnowledgeBase,
			KnowledgeBaseConfiguration: &agtypes.KnowledgeBaseRetrieveAndGenerateConfiguration{
				KnowledgeBaseId: aws.String(kb.cfg.KnowledgeBaseID),
				ModelArn:        aws.String(kb.cfg.ModelARN),
				RetrievalConfiguration: &agtypes.KnowledgeBaseRetrievalConfiguration{
					VectorSearchConfiguration: &agtypes.KnowledgeBaseVectorSearchConfiguration{
						NumberOfResults: aws.Int32(int32(kb.cfg.RetrievalResults)),
					},
				},
			},
		},
	}

	if kb.cfg.SessionReuse {
		if id := kb.session(); id != "" {
			input.SessionId = aws.String(id)
		}
	}

	start := time.Now()
	output, err := kb.client.RetrieveAndGenerate(ctx, input)
	latency := time.Since(start)
	if err != nil {
		kb.setSession("")
		return nil, ClassifyError(err)
	}

	if kb.cfg.SessionReuse {
		kb.setSession(aws.ToString(output.SessionId))
	}

	var text string
	if output.Output != nil {
		text = aws.ToString(output.Output.Text)
	}
	inputTokens := EstimateTokens(query)
	outputTokens := EstimateTokens(text)

	return &loadtest.InvokeResult{
		Latency:      latency,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         KBCost(kb.cfg.Pricing, inputTokens, outputTokens),
	}, nil
}

func (kb *KnowledgeBaseInvoker) session() string {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.sessionID
}

func (kb *KnowledgeBaseInvoker) setSession(id string) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.sessionID = id
}
