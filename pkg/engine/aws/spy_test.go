package aws

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/smithy-go/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spyHTTP records every outgoing operation and answers with an empty page.
type spyHTTP struct {
	mu         sync.Mutex
	operations []string
	userAgents []string
}

func (s *spyHTTP) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	target := req.Header.Get("X-Amz-Target")
	s.operations = append(s.operations, target[strings.LastIndex(target, ".")+1:])
	s.userAgents = append(s.userAgents, req.Header.Get("User-Agent"))
	s.mu.Unlock()

	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/x-amz-json-1.1"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(`{}`))),
		Request:    req,
	}, nil
}

// The analyzer must only ever read from the account it inspects.
func TestSafetyGuarantee_ReadOnlyCalls(t *testing.T) {
	spy := &spyHTTP{}
	cfg := aws.Config{
		Region:     "us-east-1",
		HTTPClient: spy,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{AccessKeyID: "test", SecretAccessKey: "test"}, nil
		}),
		APIOptions: []func(*middleware.Stack) error{userAgentMiddleware},
	}

	src := &LogsSource{
		Client:   cloudwatchlogs.NewFromConfig(cfg),
		Lookback: time.Hour,
	}
	ctx := context.Background()
	groups, err := src.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)

	_, err = src.Records(ctx, "/aws/lambda/a")
	require.NoError(t, err)

	allowed := map[string]bool{"DescribeLogGroups": true, "FilterLogEvents": true}
	require.NotEmpty(t, spy.operations)
	for _, op := range spy.operations {
		assert.True(t, allowed[op], "unexpected API call %s", op)
	}
	for _, ua := range spy.userAgents {
		assert.Contains(t, ua, "leastpriv/")
	}
}
