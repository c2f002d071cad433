package aws

import (
	"context"
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/resource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
)

// CloudFormationAPI is the subset of CloudFormation used for inventory.
type CloudFormationAPI interface {
	DescribeStackResources(ctx context.Context, params *cloudformation.DescribeStackResourcesInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStackResourcesOutput, error)
}

// StackInventory lists a stack's resources with their conventional log groups.
func StackInventory(ctx context.Context, client CloudFormationAPI, stack string) (resource.Inventory, error) {
	out, err := client.DescribeStackResources(ctx, &cloudformation.DescribeStackResourcesInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe stack %s: %w", stack, err)
	}

	var inv resource.Inventory
	for _, r := range out.StackResources {
		typ := aws.ToString(r.ResourceType)
		physical := aws.ToString(r.PhysicalResourceId)
		inv = append(inv, resource.Resource{
			LogicalID:    aws.ToString(r.LogicalResourceId),
			PhysicalID:   physical,
			ResourceType: typ,
			LogGroups:    resource.DefaultLogGroups(typ, physical),
		})
	}
	return inv, nil
}

// NewStackClient returns a CloudFormation client for StackInventory.
func NewStackClient(cfg aws.Config) *cloudformation.Client {
	return cloudformation.NewFromConfig(cfg)
}
