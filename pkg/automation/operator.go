package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// WebhookNotifier delivers operator notifications to an incoming
// webhook (Slack, Mattermost and compatible receivers accept the same
// {"text": ...} payload).
type WebhookNotifier struct {
	url    string
	client *retryablehttp.Client
}

// NewWebhookNotifier creates a notifier posting to the given webhook
// URL.
func NewWebhookNotifier(url string) (*WebhookNotifier, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: webhook URL is required", ErrInvalidDefinition)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &WebhookNotifier{url: url, client: client}, nil
}

// Notify posts one message. Non-2xx responses are errors so the engine
// records the execution as failed.
func (n *WebhookNotifier) Notify(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: operator webhook answered %d", ErrActionFailed, resp.StatusCode)
	}
	return nil
}
