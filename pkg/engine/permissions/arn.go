package permissions

import "strings"

const (
	s3BucketPrefix = "arn:aws:s3:::"
	logsPrefix     = "arn:aws:logs:"
)

// OptimizeARN narrows over-broad resource patterns without guessing
// sub-resources that were never observed.
func OptimizeARN(resource string) string {
	switch {
	case resource == "Unknown" || resource == "*":
		return resource

	case strings.HasPrefix(resource, s3BucketPrefix):
		// Bucket-level ARN: scope to its objects.
		if !strings.Contains(strings.TrimPrefix(resource, s3BucketPrefix), "/") {
			return resource + "/*"
		}

	case strings.HasPrefix(resource, logsPrefix):
		// arn:aws:logs:<region>:<account>:* -> ...:log-group:*
		if strings.HasSuffix(resource, ":*") && !strings.Contains(resource, "log-group:") {
			return strings.TrimSuffix(resource, "*") + "log-group:*"
		}
	}
	return resource
}
