package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/denial"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
)

// CloudTrailSource exposes the regional CloudTrail event history as a
// single analysis source.
type CloudTrailSource struct {
	Client    cloudtrail.LookupEventsAPIClient
	Region    string
	Lookback  time.Duration
	MaxEvents int

	Now func() time.Time
}

func NewCloudTrailSource(cfg aws.Config) *CloudTrailSource {
	return &CloudTrailSource{
		Client: cloudtrail.NewFromConfig(cfg),
		Region: cfg.Region,
		Now:    time.Now,
	}
}

func (s *CloudTrailSource) Name() string { return "cloudtrail" }

// SourceID is the single source id this source reports.
func (s *CloudTrailSource) SourceID() string {
	return "cloudtrail:" + s.Region
}

func (s *CloudTrailSource) Sources(ctx context.Context) ([]string, error) {
	return []string{s.SourceID()}, nil
}

// Records returns events that carry an errorCode. The raw event JSON is
// kept so the parser takes its structured path.
func (s *CloudTrailSource) Records(ctx context.Context, sourceID string) ([]denial.LogRecord, error) {
	if sourceID != s.SourceID() {
		return nil, fmt.Errorf("unknown cloudtrail source %q", sourceID)
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	input := &cloudtrail.LookupEventsInput{
		EndTime:    aws.Time(now),
		MaxResults: aws.Int32(50),
	}
	if s.Lookback > 0 {
		input.StartTime = aws.Time(now.Add(-s.Lookback))
	}

	var records []denial.LogRecord
	paginator := cloudtrail.NewLookupEventsPaginator(s.Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to lookup cloudtrail events: %w", err)
		}
		for _, ev := range page.Events {
			raw := aws.ToString(ev.CloudTrailEvent)
			if !strings.Contains(raw, `"errorCode"`) {
				continue
			}
			var ts int64
			if ev.EventTime != nil {
				ts = ev.EventTime.UnixMilli()
			}
			records = append(records, denial.LogRecord{
				TimestampMillis: ts,
				SourceID:        sourceID,
				StreamID:        aws.ToString(ev.EventSource),
				RawMessage:      raw,
			})
			if s.MaxEvents > 0 && len(records) >= s.MaxEvents {
				return records, nil
			}
		}
	}
	return records, nil
}
