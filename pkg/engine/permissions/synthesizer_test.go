package permissions

import (
	"encoding/json"
	"testing"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/conditions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perm(action, resource string, freq int, sev aggregate.Severity, cond conditions.Condition) aggregate.SuggestedPermission {
	return aggregate.SuggestedPermission{
		Action:    action,
		Resource:  resource,
		Effect:    "Allow",
		Condition: cond,
		Frequency: freq,
		Severity:  sev,
	}
}

func TestSynthesize_GroupsByResourceAndCondition(t *testing.T) {
	mfa := conditions.Condition{"Bool": {"aws:MultiFactorAuthPresent": "true"}}
	doc := Synthesize([]aggregate.SuggestedPermission{
		perm("s3:putobject", "arn:aws:s3:::bucket", 2, aggregate.Critical, nil),
		perm("s3:getobject", "arn:aws:s3:::bucket/*", 4, aggregate.Critical, nil),
		perm("s3:deleteobject", "arn:aws:s3:::bucket/*", 1, aggregate.Medium, mfa),
		perm("sqs:sendmessage", "arn:aws:sqs:us-east-1:1:q", 1, aggregate.Low, nil),
	})

	assert.Equal(t, PolicyVersion, doc.Version)
	require.Len(t, doc.Statement, 3)

	first := doc.Statement[0]
	assert.Equal(t, "Allow", first.Effect)
	assert.Equal(t, []string{"s3:getobject", "s3:putobject"}, first.Action)
	assert.Equal(t, []string{"arn:aws:s3:::bucket/*"}, first.Resource)
	assert.Nil(t, first.Condition)

	assert.Equal(t, []string{"s3:deleteobject"}, doc.Statement[1].Action)
	assert.Equal(t, mfa, doc.Statement[1].Condition)

	assert.Equal(t, []string{"sqs:sendmessage"}, doc.Statement[2].Action)
}

func TestSynthesize_FiltersOnlyZeroFrequencyLow(t *testing.T) {
	doc := Synthesize([]aggregate.SuggestedPermission{
		perm("a:one", "r1", 0, aggregate.Low, nil),
		perm("a:two", "r2", 0, aggregate.Medium, nil),
		perm("a:three", "r3", 1, aggregate.Low, nil),
	})

	require.Len(t, doc.Statement, 2)
	assert.Equal(t, []string{"a:two"}, doc.Statement[0].Action)
	assert.Equal(t, []string{"a:three"}, doc.Statement[1].Action)
}

func TestSynthesize_Empty(t *testing.T) {
	doc := Synthesize(nil)
	b, err := doc.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Version":"2012-10-17","Statement":[]}`, string(b))
}

func TestSynthesize_NoInventedGrants(t *testing.T) {
	in := []aggregate.SuggestedPermission{
		perm("s3:getobject", "arn:aws:s3:::b", 3, aggregate.Critical, nil),
		perm("logs:putlogevents", "arn:aws:logs:us-east-1:1:*", 1, aggregate.Low, nil),
		perm("dynamodb:putitem", "Unknown", 1, aggregate.Critical, nil),
	}
	allowed := make(map[string]bool)
	actions := make(map[string]bool)
	for _, p := range in {
		allowed[OptimizeARN(p.Resource)] = true
		actions[p.Action] = true
	}

	for _, st := range Synthesize(in).Statement {
		for _, r := range st.Resource {
			assert.True(t, allowed[r], "unexpected resource %q", r)
		}
		for _, a := range st.Action {
			assert.True(t, actions[a], "unexpected action %q", a)
		}
	}
}

func TestPolicyDocument_JSON(t *testing.T) {
	doc := Synthesize([]aggregate.SuggestedPermission{
		perm("s3:getobject", "arn:aws:s3:::b/*", 1, aggregate.High, nil),
	})
	b, err := doc.JSON()
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &raw))
	st := raw["Statement"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, st, "Condition")
	assert.NotContains(t, st, "Sid")
}

func TestSelfPolicy(t *testing.T) {
	all := SelfPolicy(nil)
	require.Len(t, all.Statement, 1)
	assert.Contains(t, all.Statement[0].Action, "logs:FilterLogEvents")
	assert.Contains(t, all.Statement[0].Action, "sts:GetCallerIdentity")
	assert.IsIncreasing(t, all.Statement[0].Action)

	logsOnly := SelfPolicy([]string{"logs", "Nope"})
	assert.Equal(t, []string{"logs:DescribeLogGroups", "logs:FilterLogEvents", "sts:GetCallerIdentity"}, logsOnly.Statement[0].Action)
}
