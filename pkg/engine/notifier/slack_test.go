package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *analysis.Result {
	res := &analysis.Result{
		GeneratedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		FailedSources: []analysis.SourceFailure{{Source: "/aws/lambda/c", Error: "throttled"}},
		Stats:         analysis.Stats{Sources: 3, Denials: 8},
	}
	for i := 0; i < 7; i++ {
		res.Permissions = append(res.Permissions, aggregate.SuggestedPermission{
			Action:    fmt.Sprintf("dynamodb:op%d", i),
			Resource:  "arn:aws:dynamodb:us-east-1:1:table/T",
			Frequency: 1,
			Severity:  aggregate.Critical,
		})
	}
	res.Permissions = append(res.Permissions, aggregate.SuggestedPermission{
		Action: "sqs:sendmessage", Resource: "Unknown", Frequency: 1, Severity: aggregate.Low,
	})
	return res
}

func TestSendRunSummary(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewSlackClient(srv.URL, "#iam")
	err := client.SendRunSummary(context.Background(), sampleResult(), Summary{Stack: "orders", Region: "us-east-1"})
	require.NoError(t, err)

	assert.Equal(t, "#iam", body["channel"])
	raw, err := json.Marshal(body["blocks"])
	require.NoError(t, err)
	text := string(raw)

	assert.Contains(t, text, "Least-Privilege Report: orders")
	assert.Contains(t, text, `*Critical:*\n7`)
	assert.Contains(t, text, `*Low:*\n1`)
	assert.Contains(t, text, "dynamodb:op4")
	assert.NotContains(t, text, "dynamodb:op5")
	assert.Contains(t, text, "and 2 more")
	assert.Contains(t, text, "/aws/lambda/c")
}

func TestSendRunSummary_NoWebhook(t *testing.T) {
	assert.NoError(t, NewSlackClient("", "").SendRunSummary(context.Background(), sampleResult(), Summary{}))
}

func TestSendRunSummary_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackClient(srv.URL, "").SendRunSummary(context.Background(), sampleResult(), Summary{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "403"))
}

func TestConstructPayload_CleanRun(t *testing.T) {
	payload := NewSlackClient("http://example", "").constructPayload(&analysis.Result{}, Summary{})
	assert.NotContains(t, payload, "channel")

	blocks := payload["blocks"].([]map[string]interface{})
	require.Len(t, blocks, 4)
	header := blocks[0]["text"].(map[string]interface{})["text"].(string)
	assert.True(t, strings.HasPrefix(header, "🟢"))
}
