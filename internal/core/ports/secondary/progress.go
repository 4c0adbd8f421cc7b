package secondary

import (
	"context"

	"github.com/google/uuid"
)

// ProgressTracker tracks live per-session submission progress: which
// participants have handed in a final run and how many runs are in flight.
// The completion detector and the shutdown drain both read from it.
type ProgressTracker interface {
	// MarkParticipantSubmitted records that a participant completed a final
	// run. Marking the same participant twice is idempotent.
	MarkParticipantSubmitted(ctx context.Context, sessionID uuid.UUID, participantID string) error

	// ParticipantsSubmitted returns the number of distinct participants that
	// completed a final run.
	ParticipantsSubmitted(ctx context.Context, sessionID uuid.UUID) (int, error)

	// IncrPendingSubmissions marks one submission as in flight.
	IncrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error

	// DecrPendingSubmissions marks one in-flight submission as resolved.
	DecrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error

	// PendingSubmissions returns the number of in-flight submissions.
	PendingSubmissions(ctx context.Context, sessionID uuid.UUID) (int, error)

	// ClearSession drops all progress keys for a terminated session.
	ClearSession(ctx context.Context, sessionID uuid.UUID) error
}
