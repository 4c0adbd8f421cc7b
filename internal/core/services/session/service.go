package session

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// ScheduleRequest is a validated request for a new judging session
type ScheduleRequest struct {
	ExpectedParticipants int
	EstimatedMinutes     int
	ProblemSetID         string
	InstanceClass        domain.InstanceClass
}

// ISessionService is the top-level entry point for session provisioning
type ISessionService interface {
	// ScheduleSession validates the request, provisions a compute instance
	// and creates the session in PROVISIONING state. Readiness probing and
	// completion detection continue in the background.
	ScheduleSession(ctx context.Context, req ScheduleRequest) (*domain.Session, error)

	// GetSession returns a session snapshot, falling back to durable
	// storage for sessions not held in memory.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error)
}
