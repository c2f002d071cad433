// Package conditions attaches IAM condition blocks to risky grants.
package conditions

import (
	"encoding/json"
	"strings"
	"time"
)

// Condition mirrors the IAM policy Condition element:
// operator -> condition key -> value(s).
type Condition map[string]map[string]interface{}

// PrivateRanges are the RFC 1918 networks used for source restrictions.
var PrivateRanges = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}

// Key serializes c deterministically. A nil or empty condition yields "".
func (c Condition) Key() string {
	if len(c) == 0 {
		return ""
	}
	// encoding/json sorts map keys.
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(b)
}

// Generator derives conditions from the shape of an action and resource.
type Generator struct {
	now time.Time
}

// NewGenerator captures the generation time once so every condition produced
// in the same run serializes identically.
func NewGenerator(now time.Time) *Generator {
	return &Generator{now: now.UTC()}
}

// Generate returns the merged condition for a grant, or nil if no rule fired.
//
// The DateGreaterThan block pins aws:CurrentTime to generation time. It is
// always satisfied afterwards and only marks the grant for review.
func (g *Generator) Generate(action, resource string) Condition {
	a := strings.ToLower(action)
	r := strings.ToLower(resource)
	cond := Condition{}

	if containsAny(a, "delete", "put", "create") {
		cond.add("DateGreaterThan", "aws:CurrentTime", g.now.Format(time.RFC3339))
	}

	if containsAny(r, "api", "public") {
		ranges := make([]string, len(PrivateRanges))
		copy(ranges, PrivateRanges)
		cond.add("IpAddress", "aws:SourceIp", ranges)
	}

	if containsAny(a, "delete", "iam:", "admin") {
		cond.add("Bool", "aws:MultiFactorAuthPresent", "true")
	}

	if len(cond) == 0 {
		return nil
	}
	return cond
}

func (c Condition) add(operator, key string, value interface{}) {
	block, ok := c[operator]
	if !ok {
		block = map[string]interface{}{}
		c[operator] = block
	}
	block[key] = value
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
