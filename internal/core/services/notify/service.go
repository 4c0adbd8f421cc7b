package notify

import (
	"context"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// IFanOutService dispatches lifecycle events to configured channels after
// appending them to the audit log.
type IFanOutService interface {
	Notify(ctx context.Context, event *domain.LifecycleEvent) error
}
