package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Slack posts events to an incoming webhook.
type Slack struct {
	webhookURL string
}

func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

func (s *Slack) Notify(ctx context.Context, e Event) error {
	if err := slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{Text: e.Text()}); err != nil {
		return fmt.Errorf("slack notify: %w", err)
	}
	return nil
}
