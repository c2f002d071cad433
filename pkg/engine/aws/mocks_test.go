package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/mock"
)

type mockLogs struct{ mock.Mock }

func (m *mockLogs) DescribeLogGroups(ctx context.Context, in *cloudwatchlogs.DescribeLogGroupsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudwatchlogs.DescribeLogGroupsOutput)
	return out, args.Error(1)
}

func (m *mockLogs) FilterLogEvents(ctx context.Context, in *cloudwatchlogs.FilterLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudwatchlogs.FilterLogEventsOutput)
	return out, args.Error(1)
}

type mockTrail struct{ mock.Mock }

func (m *mockTrail) LookupEvents(ctx context.Context, in *cloudtrail.LookupEventsInput, _ ...func(*cloudtrail.Options)) (*cloudtrail.LookupEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudtrail.LookupEventsOutput)
	return out, args.Error(1)
}

type mockStack struct{ mock.Mock }

func (m *mockStack) DescribeStackResources(ctx context.Context, in *cloudformation.DescribeStackResourcesInput, _ ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudformation.DescribeStackResourcesOutput)
	return out, args.Error(1)
}

type mockLambda struct{ mock.Mock }

func (m *mockLambda) ListFunctions(ctx context.Context, in *lambda.ListFunctionsInput, _ ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.ListFunctionsOutput)
	return out, args.Error(1)
}

type mockIAM struct{ mock.Mock }

func (m *mockIAM) SimulateCustomPolicy(ctx context.Context, in *iam.SimulateCustomPolicyInput, _ ...func(*iam.Options)) (*iam.SimulateCustomPolicyOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*iam.SimulateCustomPolicyOutput)
	return out, args.Error(1)
}

type mockCloudWatch struct{ mock.Mock }

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*cloudwatch.PutMetricDataOutput)
	return out, args.Error(1)
}
