package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// newRetryClient returns the shared HTTP client configuration for
// provider API calls. Retries cover transient provider outages; the
// caller still treats a final failure as fail-closed.
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = 30 * time.Second
	c.Logger = nil
	return c
}

// LemonSqueezyClient manages subscriptions through the lemonsqueezy REST
// API. Cancel issues a DELETE on the subscription resource; resume
// PATCHes cancelled back to false.
type LemonSqueezyClient struct {
	apiKey  string
	baseURL string
	client  *retryablehttp.Client
}

// NewLemonSqueezyClient creates an API client from config.
func NewLemonSqueezyClient(cfg LemonSqueezyConfig) (*LemonSqueezyClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: lemonsqueezy API key is empty", ErrProviderUnavailable)
	}
	return &LemonSqueezyClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  newRetryClient(),
	}, nil
}

func (c *LemonSqueezyClient) CancelSubscription(ctx context.Context, subID string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions/"+subID, nil)
}

func (c *LemonSqueezyClient) ResumeSubscription(ctx context.Context, subID string) error {
	body := map[string]any{
		"data": map[string]any{
			"type":       "subscriptions",
			"id":         subID,
			"attributes": map[string]any{"cancelled": false},
		},
	}
	return c.do(ctx, http.MethodPatch, "/subscriptions/"+subID, body)
}

func (c *LemonSqueezyClient) do(ctx context.Context, method, path string, body any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: %s %s: %d %s", ErrProviderUnavailable, method, path, resp.StatusCode, detail)
	}
	return nil
}

// PaygateClient manages subscriptions through paygate's form-encoded
// management API. Requests are signed with the same canonical-string
// scheme the IPN uses, with the shared API key as the secret.
type PaygateClient struct {
	apiKey  string
	baseURL string
	client  *retryablehttp.Client
}

// NewPaygateClient creates an API client from config.
func NewPaygateClient(cfg PaygateConfig) (*PaygateClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: paygate API key is empty", ErrProviderUnavailable)
	}
	return &PaygateClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		client:  newRetryClient(),
	}, nil
}

func (c *PaygateClient) CancelSubscription(ctx context.Context, subID string) error {
	return c.post(ctx, "/subscription/cancel", subID)
}

func (c *PaygateClient) ResumeSubscription(ctx context.Context, subID string) error {
	return c.post(ctx, "/subscription/resume", subID)
}

func (c *PaygateClient) post(ctx context.Context, path, subID string) error {
	form := url.Values{}
	form.Set("subscription_id", subID)
	form.Set("ts", fmt.Sprintf("%d", time.Now().Unix()))
	form.Set("sign", paygateCanonicalSign(c.apiKey, form))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: POST %s: %d %s", ErrProviderUnavailable, path, resp.StatusCode, detail)
	}
	return nil
}
