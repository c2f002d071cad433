//go:build integration

package aws

import (
	"context"
	"testing"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
)

// TestLogsSource_Integration uses Testcontainers to spin up LocalStack.
// Requires Docker.
func TestLogsSource_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// 1. Start LocalStack Container
	container, err := localstack.Run(ctx, "localstack/localstack:3.0")
	if err != nil {
		t.Fatalf("Failed to start LocalStack: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	}()

	// 2. Configure AWS SDK to talk to LocalStack
	endpoint, err := container.PortEndpoint(ctx, "4566/tcp", "http")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("us-east-1"),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test", SessionToken: "test"}, nil
		})),
	)
	if err != nil {
		t.Fatalf("Failed to load SDK config: %v", err)
	}

	// 3. Seed a log group with one denial and one unrelated line
	logs := cloudwatchlogs.NewFromConfig(cfg)
	group, stream := "/aws/lambda/orders", "2024/01/01/[$LATEST]abc"
	if _, err := logs.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(group)}); err != nil {
		t.Fatalf("CreateLogGroup: %v", err)
	}
	if _, err := logs.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName: aws.String(group), LogStreamName: aws.String(stream),
	}); err != nil {
		t.Fatalf("CreateLogStream: %v", err)
	}
	now := time.Now().UnixMilli()
	msg := "User: arn:aws:iam::123456789012:role/orders is not authorized to perform: dynamodb:PutItem on resource: arn:aws:dynamodb:us-east-1:123456789012:table/Orders"
	if _, err := logs.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		LogEvents: []types.InputLogEvent{
			{Timestamp: aws.Int64(now), Message: aws.String("START RequestId: 1")},
			{Timestamp: aws.Int64(now + 1), Message: aws.String(msg)},
		},
	}); err != nil {
		t.Fatalf("PutLogEvents: %v", err)
	}

	// 4. Read it back through the source
	src := NewLogsSource(cfg)
	src.Prefix = "/aws/lambda/"
	src.Lookback = time.Hour

	groups, err := src.Sources(ctx)
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(groups) != 1 || groups[0] != group {
		t.Fatalf("expected [%s], got %v", group, groups)
	}

	recs, err := src.Records(ctx, group)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	var found *denial.Denial
	for _, r := range recs {
		if d, ok := denial.Parse(r); ok {
			found = d
		}
	}
	if found == nil {
		t.Fatalf("no denial parsed from %d records", len(recs))
	}
	if found.Action != "dynamodb:PutItem" || found.Stream != stream {
		t.Errorf("unexpected denial: %+v", found)
	}
}
