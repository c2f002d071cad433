package aws

import (
	"context"
	"fmt"

	"github.com/DrSkyle/leastpriv/pkg/engine/permissions"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// VerificationIssue is an action/resource pair the simulator did not allow.
type VerificationIssue struct {
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Decision string `json:"decision"`
}

// VerifyPolicy runs the policy simulator over every statement of doc and
// returns the pairs the document does not actually grant. Statements with a
// condition are simulated without context, so their pairs are reported as
// not allowed unless the condition is trivially satisfied.
func VerifyPolicy(ctx context.Context, client iam.SimulateCustomPolicyAPIClient, doc permissions.PolicyDocument) ([]VerificationIssue, error) {
	body, err := doc.JSON()
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}

	var issues []VerificationIssue
	for _, st := range doc.Statement {
		resources := simulatable(st.Resource)
		if len(resources) == 0 {
			continue
		}
		input := &iam.SimulateCustomPolicyInput{
			PolicyInputList: []string{string(body)},
			ActionNames:     st.Action,
			ResourceArns:    resources,
		}
		paginator := iam.NewSimulateCustomPolicyPaginator(client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("policy simulation failed: %w", err)
			}
			for _, r := range page.EvaluationResults {
				if r.EvalDecision == types.PolicyEvaluationDecisionTypeAllowed {
					continue
				}
				issues = append(issues, VerificationIssue{
					Action:   aws.ToString(r.EvalActionName),
					Resource: aws.ToString(r.EvalResourceName),
					Decision: string(r.EvalDecision),
				})
			}
		}
	}
	return issues, nil
}

// simulatable drops placeholder resources the simulator rejects.
func simulatable(resources []string) []string {
	var out []string
	for _, r := range resources {
		if r == "Unknown" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NewIAMClient returns an IAM client for VerifyPolicy.
func NewIAMClient(cfg aws.Config) *iam.Client {
	return iam.NewFromConfig(cfg)
}
