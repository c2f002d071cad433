package resource

import (
	"sort"
	"strings"
)

// CloudFormation resource types with a conventional log group.
const (
	LambdaFunction   = "AWS::Lambda::Function"
	CodeBuildProject = "AWS::CodeBuild::Project"
	StateMachine     = "AWS::StepFunctions::StateMachine"
	RestAPI          = "AWS::ApiGateway::RestApi"
	LogGroup         = "AWS::Logs::LogGroup"
)

// Resource is one inventory entry and the log groups it writes to.
type Resource struct {
	LogicalID    string   `json:"logical_id"`
	PhysicalID   string   `json:"physical_id"`
	ResourceType string   `json:"resource_type"`
	LogGroups    []string `json:"log_groups,omitempty"`
}

// DefaultLogGroups derives the log groups AWS creates for a resource by
// convention. Types without a convention yield nil.
func DefaultLogGroups(resourceType, physicalID string) []string {
	if physicalID == "" {
		return nil
	}
	switch resourceType {
	case LambdaFunction:
		return []string{"/aws/lambda/" + physicalID}
	case CodeBuildProject:
		return []string{"/aws/codebuild/" + physicalID}
	case StateMachine:
		return []string{"/aws/vendedlogs/states/" + lastSegment(physicalID)}
	case RestAPI:
		return []string{"API-Gateway-Execution-Logs_" + physicalID}
	case LogGroup:
		return []string{physicalID}
	}
	return nil
}

func lastSegment(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == ':' || id[i] == '/' {
			return id[i+1:]
		}
	}
	return id
}

// Inventory is the set of resources a run attributes denials to.
type Inventory []Resource

// Owner returns the logical id of the resource that writes to logGroup.
// A function or project wins over an AWS::Logs::LogGroup resource declaring
// the same group. API Gateway groups are matched by prefix since stages
// append a suffix.
func (inv Inventory) Owner(logGroup string) (string, bool) {
	var fallback string
	for _, r := range inv {
		if !r.writes(logGroup) {
			continue
		}
		if r.ResourceType != LogGroup {
			return r.LogicalID, true
		}
		if fallback == "" {
			fallback = r.LogicalID
		}
	}
	return fallback, fallback != ""
}

func (r Resource) writes(logGroup string) bool {
	for _, g := range r.LogGroups {
		if g == logGroup {
			return true
		}
		if r.ResourceType == RestAPI && strings.HasPrefix(logGroup, g+"/") {
			return true
		}
	}
	return false
}

// LogGroups returns every distinct log group in the inventory, sorted.
func (inv Inventory) LogGroups() []string {
	seen := make(map[string]struct{})
	for _, r := range inv {
		for _, g := range r.LogGroups {
			seen[g] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
