package report

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedrock-loadtest/internal/loadtest"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func datumByName(t *testing.T, datums []cwtypes.MetricDatum, name string, concurrency string) cwtypes.MetricDatum {
	t.Helper()
	for _, d := range datums {
		if aws.ToString(d.MetricName) != name {
			continue
		}
		for _, dim := range d.Dimensions {
			if aws.ToString(dim.Name) == "Concurrency" && aws.ToString(dim.Value) == concurrency {
				return d
			}
		}
	}
	t.Fatalf("datum %s for concurrency %s not found", name, concurrency)
	return cwtypes.MetricDatum{}
}

func TestPublishDatums(t *testing.T) {
	fake := &fakeCloudWatch{}
	p := NewPublisher(fake, "BedrockLoadTest")

	require.NoError(t, p.Publish(context.Background(), sampleResultSet()))

	// Two live stages, ten datums each; failed stage publishes nothing.
	require.Len(t, fake.inputs, 1)
	input := fake.inputs[0]
	assert.Equal(t, "BedrockLoadTest", aws.ToString(input.Namespace))
	assert.Len(t, input.MetricData, 20)

	requests := datumByName(t, input.MetricData, "RequestCount", "1")
	assert.Equal(t, 50.0, aws.ToFloat64(requests.Value))
	assert.Equal(t, cwtypes.StandardUnitCount, requests.Unit)
	require.NotNil(t, requests.Timestamp)

	rate := datumByName(t, input.MetricData, "SuccessRate", "5")
	assert.InDelta(t, 95.0, aws.ToFloat64(rate.Value), 1e-9)
	assert.Equal(t, cwtypes.StandardUnitPercent, rate.Unit)

	rps := datumByName(t, input.MetricData, "RequestsPerSecond", "5")
	assert.Equal(t, cwtypes.StandardUnitCountSecond, rps.Unit)

	p99 := datumByName(t, input.MetricData, "P99Latency", "5")
	assert.InDelta(t, 30.0, aws.ToFloat64(p99.Value), 1e-9)
	assert.Equal(t, cwtypes.StandardUnitSeconds, p99.Unit)

	for _, d := range input.MetricData {
		require.Len(t, d.Dimensions, 2)
		assert.Equal(t, "Suite", aws.ToString(d.Dimensions[0].Name))
		assert.Equal(t, "foundation_models", aws.ToString(d.Dimensions[0].Value))
	}
}

func TestPublishBatchesOfTwenty(t *testing.T) {
	rs := sampleResultSet()
	// A third live stage pushes the datum count to 30, forcing two calls.
	extra := rs.Stages[0]
	extra.Concurrency = 20
	rs.Stages = append(rs.Stages, extra)

	fake := &fakeCloudWatch{}
	p := NewPublisher(fake, "BedrockLoadTest")
	require.NoError(t, p.Publish(context.Background(), rs))

	require.Len(t, fake.inputs, 2)
	assert.Len(t, fake.inputs[0].MetricData, 20)
	assert.Len(t, fake.inputs[1].MetricData, 10)
	assert.Equal(t, "BedrockLoadTest", aws.ToString(fake.inputs[1].Namespace))
}

func TestPublishSkipsDeadStages(t *testing.T) {
	rs := &loadtest.ResultSet{
		Suite: "foundation_models",
		Stages: []loadtest.StageStats{
			{Concurrency: 1, Failed: true, Overall: loadtest.Stats{NoData: true}},
			{Concurrency: 5, Overall: loadtest.Stats{NoData: true}},
		},
	}

	fake := &fakeCloudWatch{}
	p := NewPublisher(fake, "BedrockLoadTest")
	require.NoError(t, p.Publish(context.Background(), rs))
	assert.Empty(t, fake.inputs)
}

func TestPublishError(t *testing.T) {
	fake := &fakeCloudWatch{err: errors.New("rate exceeded")}
	p := NewPublisher(fake, "BedrockLoadTest")

	err := p.Publish(context.Background(), sampleResultSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish metrics")
	assert.Contains(t, err.Error(), "rate exceeded")
}
