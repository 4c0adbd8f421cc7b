package secondary

import (
	"context"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// DeliveryChannel is one best-effort destination for lifecycle notifications.
type DeliveryChannel interface {
	Name() string
	Deliver(ctx context.Context, severity domain.Severity, message string, payload map[string]interface{}) error
}
