package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// ICoordinatorService tears a session down. The transition into
// SHUTTING_DOWN is an atomic check-and-set, so concurrent shutdown requests
// (auto-completion racing a manual request) are safe: exactly one caller
// runs the teardown, the rest return immediately.
type ICoordinatorService interface {
	Shutdown(ctx context.Context, sessionID uuid.UUID, reason domain.ShutdownReason, force bool) error
}

// ICompletionService evaluates and watches session completion.
type ICompletionService interface {
	// Watch runs the completion loop for one session until it triggers a
	// shutdown, observes a terminal state, or ctx is cancelled.
	Watch(ctx context.Context, sessionID uuid.UUID)

	// Status reports the current completion predicate inputs and verdict.
	Status(ctx context.Context, sessionID uuid.UUID) (*CompletionStatus, error)
}

// CompletionStatus is a snapshot of the completion predicate inputs.
type CompletionStatus struct {
	ParticipantsSubmitted int  `json:"participantsSubmitted"`
	ExpectedParticipants  int  `json:"expectedParticipants"`
	PendingSubmissions    int  `json:"pendingSubmissions"`
	DwellElapsed          bool `json:"dwellElapsed"`
	ShutdownReady         bool `json:"shutdownReady"`
}
