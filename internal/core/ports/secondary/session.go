package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

type SessionRepository interface {
	// SaveSession inserts or updates a session row
	SaveSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID, nil when absent
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)

	// GetActiveSessions retrieves sessions that are provisioning or ready
	GetActiveSessions(ctx context.Context) ([]*domain.Session, error)

	// GetTerminatedBetween retrieves sessions whose shutdown timestamp falls
	// inside [from, to)
	GetTerminatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Session, error)
}
