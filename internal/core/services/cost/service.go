package cost

import (
	"context"
	"time"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// IAccountantService computes resource cost from duration and instance
// class. Breakdowns are derived snapshots; only Finalize produces the
// authoritative figure persisted on the session.
type IAccountantService interface {
	// Breakdown computes a cost snapshot for the given billable duration
	Breakdown(duration time.Duration, class domain.InstanceClass) domain.CostBreakdown

	// Finalize computes the authoritative total for a session using its
	// actual readiness-to-shutdown elapsed time
	Finalize(session *domain.Session, at time.Time) float64

	// RealTime returns the running cost so far and the cost projected at the
	// estimated session duration
	RealTime(session *domain.Session, now time.Time) (current, projected domain.CostBreakdown)

	// PeriodSummary aggregates finalized costs of sessions terminated inside
	// [from, to)
	PeriodSummary(ctx context.Context, from, to time.Time) (*domain.CostSummary, error)
}
