package conditions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var genTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	gen := NewGenerator(genTime)

	tests := []struct {
		name     string
		action   string
		resource string
		want     Condition
	}{
		{
			name:     "read on private resource",
			action:   "s3:GetObject",
			resource: "arn:aws:s3:::reports/*",
			want:     nil,
		},
		{
			name:     "put gets time constraint",
			action:   "s3:PutObject",
			resource: "arn:aws:s3:::reports/*",
			want: Condition{
				"DateGreaterThan": {"aws:CurrentTime": "2024-03-01T12:00:00Z"},
			},
		},
		{
			name:     "delete gets time and mfa",
			action:   "dynamodb:DeleteItem",
			resource: "arn:aws:dynamodb:us-east-1:123456789012:table/Orders",
			want: Condition{
				"DateGreaterThan": {"aws:CurrentTime": "2024-03-01T12:00:00Z"},
				"Bool":            {"aws:MultiFactorAuthPresent": "true"},
			},
		},
		{
			name:     "public resource restricted to private ranges",
			action:   "execute-api:Invoke",
			resource: "arn:aws:execute-api:us-east-1:123456789012:abc/prod/GET/orders",
			want: Condition{
				"IpAddress": {"aws:SourceIp": []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}},
			},
		},
		{
			name:     "iam namespace requires mfa",
			action:   "iam:PassRole",
			resource: "arn:aws:iam::123456789012:role/worker",
			want: Condition{
				"Bool": {"aws:MultiFactorAuthPresent": "true"},
			},
		},
		{
			name:     "admin verb is case insensitive",
			action:   "es:ESHttpAdmin",
			resource: "Unknown",
			want: Condition{
				"Bool": {"aws:MultiFactorAuthPresent": "true"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gen.Generate(tt.action, tt.resource))
		})
	}
}

func TestConditionKey(t *testing.T) {
	gen := NewGenerator(genTime)

	a := gen.Generate("s3:DeleteObject", "arn:aws:s3:::public-site/*")
	b := gen.Generate("s3:DeleteObject", "arn:aws:s3:::public-site/*")
	require.NotNil(t, a)

	assert.Equal(t, a.Key(), b.Key(), "same generator must serialize identically")
	assert.Contains(t, a.Key(), `"aws:MultiFactorAuthPresent":"true"`)
	assert.Equal(t, "", Condition(nil).Key())
	assert.Equal(t, "", Condition{}.Key())
}

func TestGenerate_DoesNotShareRanges(t *testing.T) {
	gen := NewGenerator(genTime)
	c := gen.Generate("s3:GetObject", "public")
	ranges := c["IpAddress"]["aws:SourceIp"].([]string)
	ranges[0] = "0.0.0.0/0"

	assert.Equal(t, "10.0.0.0/8", PrivateRanges[0])
}
