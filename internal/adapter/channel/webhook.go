// package channel contains the delivery-channel adapters for lifecycle
// notifications.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.DeliveryChannel = &WebhookChannel{}

// WebhookChannel posts notifications as JSON to a configured HTTP endpoint.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

// NewWebhookChannel creates a webhook delivery channel
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string {
	return "webhook"
}

type webhookMessage struct {
	Severity  domain.Severity        `json:"severity"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Deliver posts one notification. Non-2xx responses count as delivery
// failures.
func (c *WebhookChannel) Deliver(ctx context.Context, severity domain.Severity, message string, payload map[string]interface{}) error {
	body, err := json.Marshal(webhookMessage{
		Severity:  severity,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
