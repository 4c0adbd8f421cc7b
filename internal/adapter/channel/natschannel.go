package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ secondary.DeliveryChannel = &NatsChannel{}

// NatsChannel publishes notifications on a NATS subject for in-cluster
// subscribers.
type NatsChannel struct {
	nc      *nats.Conn
	subject string
}

// NewNatsChannel creates a NATS delivery channel
func NewNatsChannel(nc *nats.Conn, subject string) *NatsChannel {
	return &NatsChannel{
		nc:      nc,
		subject: subject,
	}
}

func (c *NatsChannel) Name() string {
	return "nats"
}

type natsMessage struct {
	Severity  domain.Severity        `json:"severity"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (c *NatsChannel) Deliver(_ context.Context, severity domain.Severity, message string, payload map[string]interface{}) error {
	data, err := json.Marshal(natsMessage{
		Severity:  severity,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal nats message: %w", err)
	}
	if err := c.nc.Publish(c.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.subject, err)
	}
	return nil
}
