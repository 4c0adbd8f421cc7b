package secondary

import (
	"context"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// JudgeBackend is the opaque external code executor, reachable only through
// request/response calls against a provisioned instance's address.
type JudgeBackend interface {
	// SubmitBatch submits execution units as one batch call and returns one
	// handle per unit, in submission order.
	SubmitBatch(ctx context.Context, addr string, units []domain.ExecutionUnit) ([]string, error)

	// PollStatus fetches the current status of a submitted unit. The result
	// is terminal when Status.Terminal() holds.
	PollStatus(ctx context.Context, addr string, handle string) (*domain.UnitResult, error)

	// HealthCheck reports whether the backend on the instance is serving.
	HealthCheck(ctx context.Context, addr string) (bool, error)
}
