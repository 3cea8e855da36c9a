package report

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"bedrock-loadtest/internal/loadtest"
)

// metricBatchSize is the PutMetricData limit on datums per call.
const metricBatchSize = 20

// CloudWatchAPI is the subset of the CloudWatch client used by Publisher.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// NewCloudWatchClient creates a CloudWatch client from a resolved AWS config
func NewCloudWatchClient(cfg aws.Config) *cloudwatch.Client {
	return cloudwatch.NewFromConfig(cfg)
}

// Publisher sends stage statistics to CloudWatch as custom metrics.
type Publisher struct {
	client    CloudWatchAPI
	namespace string
}

// NewPublisher creates a publisher writing to the given namespace
func NewPublisher(client CloudWatchAPI, namespace string) *Publisher {
	return &Publisher{
		client:    client,
		namespace: namespace,
	}
}

// Publish sends one suite run's per-stage statistics. Stages that failed
// or recorded no requests are skipped rather than published as zeros.
func (p *Publisher) Publish(ctx context.Context, rs *loadtest.ResultSet) error {
	datums := stageDatums(rs, time.Now().UTC())

	for start := 0; start < len(datums); start += metricBatchSize {
		end := start + metricBatchSize
		if end > len(datums) {
			end = len(datums)
		}
		_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(p.namespace),
			MetricData: datums[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to publish metrics: %w", err)
		}
	}
	return nil
}

// stageDatums flattens a result set into metric datums, dimensioned by
// suite and concurrency level.
func stageDatums(rs *loadtest.ResultSet, ts time.Time) []cwtypes.MetricDatum {
	var datums []cwtypes.MetricDatum
	for _, st := range rs.Stages {
		if st.Failed || st.Overall.NoData {
			continue
		}
		s := st.Overall
		dims := []cwtypes.Dimension{
			{Name: aws.String("Suite"), Value: aws.String(rs.Suite)},
			{Name: aws.String("Concurrency"), Value: aws.String(strconv.Itoa(st.Concurrency))},
		}
		add := func(name string, value float64, unit cwtypes.StandardUnit) {
			datums = append(datums, cwtypes.MetricDatum{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       unit,
				Timestamp:  aws.Time(ts),
				Dimensions: dims,
			})
		}

		add("RequestCount", float64(s.TotalRequests), cwtypes.StandardUnitCount)
		add("SuccessRate", s.SuccessRate*100, cwtypes.StandardUnitPercent)
		add("RequestsPerSecond", s.RequestsPerSecond, cwtypes.StandardUnitCountSecond)
		add("MeanLatency", s.MeanLatency, cwtypes.StandardUnitSeconds)
		add("P50Latency", s.P50Latency, cwtypes.StandardUnitSeconds)
		add("P90Latency", s.P90Latency, cwtypes.StandardUnitSeconds)
		add("P95Latency", s.P95Latency, cwtypes.StandardUnitSeconds)
		add("P99Latency", s.P99Latency, cwtypes.StandardUnitSeconds)
		add("OutputTokens", float64(s.TotalOutputTokens), cwtypes.StandardUnitCount)
		add("EstimatedCost", s.TotalCost, cwtypes.StandardUnitNone)
	}
	return datums
}
