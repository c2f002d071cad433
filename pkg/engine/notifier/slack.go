package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DrSkyle/leastpriv/pkg/engine/aggregate"
	"github.com/DrSkyle/leastpriv/pkg/engine/analysis"
)

// maxListed caps how many critical actions and failed sources are listed.
const maxListed = 5

// SlackClient handles Slack notifications.
type SlackClient struct {
	WebhookURL string
	Channel    string // Optional: Override default channel
	HTTPClient *http.Client
}

// NewSlackClient initializes the Slack integration.
func NewSlackClient(webhookURL string, channel string) *SlackClient {
	return &SlackClient{
		WebhookURL: webhookURL,
		Channel:    channel,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Summary identifies the run being reported.
type Summary struct {
	Stack  string
	Region string
}

// SendRunSummary posts severity counts, the top critical actions and any
// failed sources. An empty webhook is a no-op.
func (s *SlackClient) SendRunSummary(ctx context.Context, res *analysis.Result, sum Summary) error {
	if s.WebhookURL == "" {
		return nil
	}

	jsonPayload, err := json.Marshal(s.constructPayload(res, sum))
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(jsonPayload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received non-200 status from slack: %d", resp.StatusCode)
	}
	return nil
}

// constructPayload builds the message blocks.
func (s *SlackClient) constructPayload(res *analysis.Result, sum Summary) map[string]interface{} {
	counts := res.CountBySeverity()

	statusIcon := "🟢"
	switch {
	case counts[aggregate.Critical] > 0 || res.Partial():
		statusIcon = "🔴"
	case len(res.Permissions) > 0:
		statusIcon = "🟡"
	}

	title := "Least-Privilege Report"
	if sum.Stack != "" {
		title += ": " + sum.Stack
	}

	fields := make([]map[string]interface{}, 0, len(aggregate.Severities))
	for _, sev := range aggregate.Severities {
		fields = append(fields, map[string]interface{}{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:*\n%d", sev, counts[sev]),
		})
	}

	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type": "plain_text",
				"text": fmt.Sprintf("%s %s", statusIcon, title),
			},
		},
		{
			"type": "context",
			"elements": []map[string]interface{}{
				{
					"type": "mrkdwn",
					"text": fmt.Sprintf("*Generated:* %s | *Region:* %s | *Sources:* %d | *Denials:* %d",
						res.GeneratedAt.UTC().Format(time.RFC3339), sum.Region, res.Stats.Sources, res.Stats.Denials),
				},
			},
		},
		{"type": "divider"},
		{"type": "section", "fields": fields},
	}

	if crit := criticalActions(res.Permissions); len(crit) > 0 {
		blocks = append(blocks, section("🚨 *Critical denials*\n"+bullets(crit)))
	}

	if len(res.FailedSources) > 0 {
		failed := make([]string, 0, len(res.FailedSources))
		for _, f := range res.FailedSources {
			failed = append(failed, fmt.Sprintf("`%s`: %s", f.Source, f.Error))
		}
		blocks = append(blocks, section("⚠️ *Sources that could not be read*\n"+bullets(failed)))
	}

	payload := map[string]interface{}{
		"blocks": blocks,
	}
	if s.Channel != "" {
		payload["channel"] = s.Channel
	}
	return payload
}

// criticalActions lists Critical suggestions in result order.
func criticalActions(perms []aggregate.SuggestedPermission) []string {
	var out []string
	for _, p := range perms {
		if p.Severity == aggregate.Critical {
			out = append(out, fmt.Sprintf("`%s` on `%s` (%dx)", p.Action, p.Resource, p.Frequency))
		}
	}
	return out
}

func bullets(items []string) string {
	extra := 0
	if len(items) > maxListed {
		extra = len(items) - maxListed
		items = items[:maxListed]
	}
	var b strings.Builder
	for _, it := range items {
		b.WriteString("• " + it + "\n")
	}
	if extra > 0 {
		fmt.Fprintf(&b, "…and %d more\n", extra)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func section(text string) map[string]interface{} {
	return map[string]interface{}{
		"type": "section",
		"text": map[string]interface{}{
			"type": "mrkdwn",
			"text": text,
		},
	}
}
