package aws

import (
	"context"
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/resource"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// LambdaInventory lists every function in the region. A function with a
// custom logging config reports that group instead of the default one.
func LambdaInventory(ctx context.Context, client lambda.ListFunctionsAPIClient) (resource.Inventory, error) {
	var inv resource.Inventory
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			name := aws.ToString(fn.FunctionName)
			groups := resource.DefaultLogGroups(resource.LambdaFunction, name)
			if fn.LoggingConfig != nil && aws.ToString(fn.LoggingConfig.LogGroup) != "" {
				groups = []string{aws.ToString(fn.LoggingConfig.LogGroup)}
			}
			inv = append(inv, resource.Resource{
				LogicalID:    name,
				PhysicalID:   aws.ToString(fn.FunctionArn),
				ResourceType: resource.LambdaFunction,
				LogGroups:    groups,
			})
		}
	}
	return inv, nil
}

// NewLambdaClient returns a Lambda client for LambdaInventory.
func NewLambdaClient(cfg aws.Config) *lambda.Client {
	return lambda.NewFromConfig(cfg)
}
