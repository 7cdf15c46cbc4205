package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"dqpipe/internal/config"
	"dqpipe/internal/errors"
	"dqpipe/pkg/contracts/domain"
)

// WebhookTransport posts a JSON payload to a configured endpoint. A
// rate limiter keeps retry bursts from hammering the receiver.
type WebhookTransport struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookTransport creates a webhook transport from configuration.
func NewWebhookTransport(cfg config.WebhookConfig) *WebhookTransport {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 1
	}
	return &WebhookTransport{
		url:     cfg.URL,
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Name implements Transport.
func (t *WebhookTransport) Name() string {
	return "webhook"
}

// webhookPayload is the wire body posted to the endpoint.
type webhookPayload struct {
	Text       string `json:"text"`
	Subject    string `json:"subject,omitempty"`
	Attachment string `json:"attachment,omitempty"`
}

// Send implements Transport. Webhooks cannot carry the spreadsheet, so
// the attachment path is referenced in the payload instead.
func (t *WebhookTransport) Send(ctx context.Context, msg domain.Message) error {
	if t.url == "" {
		return errors.New(errors.CodeNotifyExhausted, "no webhook url configured")
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.CodeNotifyTransient, "webhook rate limit wait cancelled", err)
	}

	body, err := json.Marshal(webhookPayload{
		Text:       msg.Body,
		Subject:    msg.Subject,
		Attachment: msg.Attachment,
	})
	if err != nil {
		return errors.Wrap(errors.CodeNotifyExhausted, "failed to encode webhook payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.CodeNotifyExhausted, "failed to build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeNotifyTransient, "webhook request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.New(errors.CodeNotifyTransient, fmt.Sprintf("webhook returned HTTP %d", resp.StatusCode))
	}
	return nil
}
