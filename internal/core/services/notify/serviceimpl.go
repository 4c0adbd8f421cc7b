package notify

import (
	"context"
	"fmt"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ IFanOutService = &FanOutService{}

// FanOutService appends every event to the audit log first, then attempts
// best-effort delivery on each configured channel. One failing channel never
// blocks the others or rolls back the audit append.
type FanOutService struct {
	events   secondary.EventRepository
	channels []secondary.DeliveryChannel
	cfg      *config.NotifyCfg
	logger   primary.Logger
}

// NewFanOutService creates a new notification fan-out service
func NewFanOutService(
	events secondary.EventRepository,
	channels []secondary.DeliveryChannel,
	cfg *config.NotifyCfg,
	logger primary.Logger,
) *FanOutService {
	return &FanOutService{
		events:   events,
		channels: channels,
		cfg:      cfg,
		logger:   logger,
	}
}

// Notify appends the event and fans it out. The audit append happens for
// every event; the category toggles gate channel delivery only.
func (f *FanOutService) Notify(ctx context.Context, event *domain.LifecycleEvent) error {
	if err := f.events.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to append lifecycle event: %w", err)
	}

	if !f.enabled(event.Kind) {
		return nil
	}

	for _, ch := range f.channels {
		if err := ch.Deliver(ctx, event.Severity, event.Message, event.Payload); err != nil {
			f.logger.Warn("Channel delivery failed", "channel", ch.Name(), "kind", event.Kind, "error", err)
		}
	}

	return nil
}

func (f *FanOutService) enabled(kind domain.EventKind) bool {
	switch kind {
	case domain.EventCostAlert:
		return f.cfg.CostAlerts
	case domain.EventSessionFailed, domain.EventShutdownFailed, domain.EventQuotaExhausted:
		return f.cfg.FailureAlerts
	default:
		return f.cfg.CompletionNotifications
	}
}
