package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricNamespace is the CloudWatch namespace for run metrics.
const MetricNamespace = "LeastPriv"

// CloudWatchAPI is the subset of CloudWatch used to publish run metrics.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// RunMetrics is what one analysis run reports.
type RunMetrics struct {
	Stack         string
	BySeverity    map[aggregate.Severity]int
	FailedSources int
	At            time.Time
}

// PublishMetrics writes one Denials datum per severity plus FailedSources.
func PublishMetrics(ctx context.Context, client CloudWatchAPI, m RunMetrics) error {
	stack := m.Stack
	if stack == "" {
		stack = "none"
	}
	at := m.At
	if at.IsZero() {
		at = time.Now()
	}

	var data []types.MetricDatum
	for _, sev := range aggregate.Severities {
		data = append(data, types.MetricDatum{
			MetricName: aws.String("Denials"),
			Dimensions: []types.Dimension{
				{Name: aws.String("Stack"), Value: aws.String(stack)},
				{Name: aws.String("Severity"), Value: aws.String(sev.String())},
			},
			Value:     aws.Float64(float64(m.BySeverity[sev])),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(at),
		})
	}
	data = append(data, types.MetricDatum{
		MetricName: aws.String("FailedSources"),
		Dimensions: []types.Dimension{{Name: aws.String("Stack"), Value: aws.String(stack)}},
		Value:      aws.Float64(float64(m.FailedSources)),
		Unit:       types.StandardUnitCount,
		Timestamp:  aws.Time(at),
	})

	if _, err := client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(MetricNamespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("failed to publish metrics: %w", err)
	}
	return nil
}

// NewCloudWatchClient returns a CloudWatch client for PublishMetrics.
func NewCloudWatchClient(cfg aws.Config) *cloudwatch.Client {
	return cloudwatch.NewFromConfig(cfg)
}
