package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

type EventRepository interface {
	// AppendEvent durably appends a lifecycle event. Events are never
	// mutated or deleted.
	AppendEvent(ctx context.Context, event *domain.LifecycleEvent) error

	// GetEventsBySession retrieves events for a session, newest first
	GetEventsBySession(ctx context.Context, sessionID uuid.UUID, limit int) ([]*domain.LifecycleEvent, error)
}
