package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// LogsAPI is the subset of CloudWatch Logs used to read denials.
type LogsAPI interface {
	cloudwatchlogs.DescribeLogGroupsAPIClient
	cloudwatchlogs.FilterLogEventsAPIClient
}

// LogsSource reads log groups as analysis sources.
type LogsSource struct {
	Client LogsAPI

	// Groups, when set, is the exact list of log groups to read.
	Groups []string
	// Pinned restricts the source to Groups even when it is empty, so a
	// stack that owns no log groups never widens to the whole account.
	Pinned bool
	// Prefix filters discovered log groups when nothing is pinned.
	Prefix        string
	FilterPattern string
	Lookback      time.Duration
	// MaxEvents caps events per log group. Zero means unlimited.
	MaxEvents int

	Now func() time.Time
}

func NewLogsSource(cfg aws.Config) *LogsSource {
	return &LogsSource{
		Client: cloudwatchlogs.NewFromConfig(cfg),
		Now:    time.Now,
	}
}

func (s *LogsSource) Name() string { return "cloudwatch-logs" }

// Sources lists log group names.
func (s *LogsSource) Sources(ctx context.Context) ([]string, error) {
	if s.Pinned || len(s.Groups) > 0 {
		return append([]string{}, s.Groups...), nil
	}

	input := &cloudwatchlogs.DescribeLogGroupsInput{}
	if s.Prefix != "" {
		input.LogGroupNamePrefix = aws.String(s.Prefix)
	}

	var groups []string
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(s.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe log groups: %w", err)
		}
		for _, g := range page.LogGroups {
			if g.LogGroupName != nil {
				groups = append(groups, *g.LogGroupName)
			}
		}
	}
	return groups, nil
}

// Records fetches filtered events for one log group in the lookback window.
func (s *LogsSource) Records(ctx context.Context, group string) ([]denial.LogRecord, error) {
	input := &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: aws.String(group),
	}
	if s.FilterPattern != "" {
		input.FilterPattern = aws.String(s.FilterPattern)
	}
	if s.Lookback > 0 {
		input.StartTime = aws.Int64(s.now().Add(-s.Lookback).UnixMilli())
	}

	var records []denial.LogRecord
	paginator := cloudwatchlogs.NewFilterLogEventsPaginator(s.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to filter events in %s: %w", group, err)
		}
		for _, ev := range page.Events {
			records = append(records, denial.LogRecord{
				TimestampMillis: aws.ToInt64(ev.Timestamp),
				SourceID:        group,
				StreamID:        aws.ToString(ev.LogStreamName),
				RawMessage:      aws.ToString(ev.Message),
			})
			if s.MaxEvents > 0 && len(records) >= s.MaxEvents {
				return records, nil
			}
		}
	}
	return records, nil
}

func (s *LogsSource) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
