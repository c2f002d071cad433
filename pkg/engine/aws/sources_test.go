package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/resource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cttypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestLogsSource_SourcesPaginates(t *testing.T) {
	client := &mockLogs{}
	client.On("DescribeLogGroups", mock.Anything, mock.MatchedBy(func(in *cloudwatchlogs.DescribeLogGroupsInput) bool {
		return aws.ToString(in.LogGroupNamePrefix) == "/aws/lambda/" && in.NextToken == nil
	})).Return(&cloudwatchlogs.DescribeLogGroupsOutput{
		LogGroups: []types.LogGroup{{LogGroupName: aws.String("/aws/lambda/a")}},
		NextToken: aws.String("p2"),
	}, nil).Once()
	client.On("DescribeLogGroups", mock.Anything, mock.MatchedBy(func(in *cloudwatchlogs.DescribeLogGroupsInput) bool {
		return aws.ToString(in.NextToken) == "p2"
	})).Return(&cloudwatchlogs.DescribeLogGroupsOutput{
		LogGroups: []types.LogGroup{{LogGroupName: aws.String("/aws/lambda/b")}},
	}, nil).Once()

	src := &LogsSource{Client: client, Prefix: "/aws/lambda/"}
	groups, err := src.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/aws/lambda/a", "/aws/lambda/b"}, groups)
	client.AssertExpectations(t)
}

func TestLogsSource_ExplicitGroups(t *testing.T) {
	client := &mockLogs{}
	src := &LogsSource{Client: client, Groups: []string{"/aws/codebuild/x"}}

	groups, err := src.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/aws/codebuild/x"}, groups)
	client.AssertNotCalled(t, "DescribeLogGroups", mock.Anything, mock.Anything)
}

func TestLogsSource_PinnedEmptyStack(t *testing.T) {
	client := &mockLogs{}
	inv := resource.Inventory{{LogicalID: "Bucket", ResourceType: "AWS::S3::Bucket", PhysicalID: "orders-data"}}
	src := &LogsSource{Client: client, Groups: inv.LogGroups(), Pinned: true}

	groups, err := src.Sources(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
	client.AssertNotCalled(t, "DescribeLogGroups", mock.Anything, mock.Anything)
}

func TestLogsSource_Records(t *testing.T) {
	client := &mockLogs{}
	client.On("FilterLogEvents", mock.Anything, mock.MatchedBy(func(in *cloudwatchlogs.FilterLogEventsInput) bool {
		return aws.ToString(in.LogGroupName) == "/aws/lambda/a" &&
			aws.ToString(in.FilterPattern) == "?AccessDenied" &&
			aws.ToInt64(in.StartTime) == testNow.Add(-time.Hour).UnixMilli()
	})).Return(&cloudwatchlogs.FilterLogEventsOutput{
		Events: []types.FilteredLogEvent{
			{Timestamp: aws.Int64(1), LogStreamName: aws.String("s1"), Message: aws.String("AccessDenied one")},
			{Timestamp: aws.Int64(2), LogStreamName: aws.String("s1"), Message: aws.String("AccessDenied two")},
			{Timestamp: aws.Int64(3), LogStreamName: aws.String("s2"), Message: aws.String("AccessDenied three")},
		},
	}, nil)

	src := &LogsSource{
		Client:        client,
		FilterPattern: "?AccessDenied",
		Lookback:      time.Hour,
		MaxEvents:     2,
		Now:           func() time.Time { return testNow },
	}
	recs, err := src.Records(context.Background(), "/aws/lambda/a")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/aws/lambda/a", recs[0].SourceID)
	assert.Equal(t, "s1", recs[0].StreamID)
	assert.Equal(t, "AccessDenied two", recs[1].RawMessage)
}

func TestLogsSource_RecordsError(t *testing.T) {
	client := &mockLogs{}
	client.On("FilterLogEvents", mock.Anything, mock.Anything).Return(nil, errors.New("ResourceNotFoundException"))

	_, err := (&LogsSource{Client: client}).Records(context.Background(), "/gone")
	assert.ErrorContains(t, err, "/gone")
}

func TestCloudTrailSource(t *testing.T) {
	client := &mockTrail{}
	denied := `{"eventSource":"s3.amazonaws.com","eventName":"GetObject","errorCode":"AccessDenied"}`
	client.On("LookupEvents", mock.Anything, mock.MatchedBy(func(in *cloudtrail.LookupEventsInput) bool {
		return in.StartTime != nil && in.StartTime.Equal(testNow.Add(-2*time.Hour))
	})).Return(&cloudtrail.LookupEventsOutput{
		Events: []cttypes.Event{
			{CloudTrailEvent: aws.String(`{"eventName":"ListBuckets"}`)},
			{CloudTrailEvent: aws.String(denied), EventSource: aws.String("s3.amazonaws.com"), EventTime: aws.Time(testNow)},
		},
	}, nil)

	src := &CloudTrailSource{Client: client, Region: "eu-west-1", Lookback: 2 * time.Hour, Now: func() time.Time { return testNow }}

	ids, err := src.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cloudtrail:eu-west-1"}, ids)

	recs, err := src.Records(context.Background(), ids[0])
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, denied, recs[0].RawMessage)
	assert.Equal(t, testNow.UnixMilli(), recs[0].TimestampMillis)
	assert.Equal(t, "s3.amazonaws.com", recs[0].StreamID)

	_, err = src.Records(context.Background(), "cloudtrail:us-east-1")
	assert.Error(t, err)
}
