// internal/infra/notify/webhook.go
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"birthday_notification_service/internal/domain/notify"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier delivers birthday messages by POSTing a JSON payload
// to a configured webhook URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
}

type webhookPayload struct {
	Message string `json:"message"`
}

// Send posts {"message": "Hey, <first> <last> it's your birthday"}.
// Any non-2xx response is a delivery failure.
func (n *WebhookNotifier) Send(ctx context.Context, firstName, lastName string) error {
	body, err := json.Marshal(webhookPayload{Message: notify.Message(firstName, lastName)})
	if err != nil {
		return fmt.Errorf("error encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
