package permissions

import (
	"sort"
	"strings"
)

// Catalog maps each leastpriv module to the IAM actions it calls.
var Catalog = map[string][]string{
	"Logs": {
		"logs:DescribeLogGroups",
		"logs:FilterLogEvents",
	},
	"CloudTrail": {
		"cloudtrail:LookupEvents",
	},
	"CloudFormation": {
		"cloudformation:DescribeStackResources",
	},
	"Lambda": {
		"lambda:ListFunctions",
	},
	"IAM": {
		"iam:SimulateCustomPolicy", // --verify only
	},
	"CloudWatch": {
		"cloudwatch:PutMetricData",
	},
	"S3": {
		"s3:PutObject", // s3:// report targets
		"s3:GetObject", // policy --input s3://...
	},
}

// CorePermissions returns the minimum permissions needed to start a run.
func CorePermissions() []string {
	return []string{
		"sts:GetCallerIdentity",
	}
}

// Modules lists the catalog keys in stable order.
func Modules() []string {
	out := make([]string, 0, len(Catalog))
	for m := range Catalog {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// SelfPolicy builds the policy leastpriv itself needs for the given modules.
// An empty list selects every module. Names match case-insensitively and
// unknown names are ignored.
func SelfPolicy(modules []string) PolicyDocument {
	if len(modules) == 0 {
		modules = Modules()
	}
	actions := make(map[string]struct{})
	for _, a := range CorePermissions() {
		actions[a] = struct{}{}
	}
	for _, m := range modules {
		for name, acts := range Catalog {
			if !strings.EqualFold(name, strings.TrimSpace(m)) {
				continue
			}
			for _, a := range acts {
				actions[a] = struct{}{}
			}
		}
	}
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []Statement{{
			Sid:      "LeastPrivAnalyzer",
			Effect:   "Allow",
			Action:   sortedSet(actions),
			Resource: []string{"*"},
		}},
	}
}
