package aggregate

import "strings"

const arnPrefix = "arn:aws:"

// NormalizeAction lowercases an IAM action for keying.
func NormalizeAction(action string) string {
	return strings.ToLower(action)
}

// NormalizeResource qualifies path-like identifiers as wildcard ARNs.
// Fully qualified ARNs and plain names are returned unchanged.
func NormalizeResource(resource string) string {
	if strings.HasPrefix(resource, arnPrefix) {
		return resource
	}
	if strings.Contains(resource, "/") {
		return arnPrefix + "*:*:*:" + resource
	}
	return resource
}

// Service returns the namespace of an IAM action ("s3" for "s3:GetObject").
func Service(action string) string {
	if i := strings.Index(action, ":"); i > 0 {
		return action[:i]
	}
	return action
}
