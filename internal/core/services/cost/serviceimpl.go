package cost

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ IAccountantService = &AccountantService{}

// hoursPerMonth prorates monthly storage pricing over session durations.
const hoursPerMonth = 730.0

// AccountantService implements cost accounting
type AccountantService struct {
	sessions secondary.SessionRepository
	cfg      *config.CostCfg
	logger   primary.Logger
}

// NewAccountantService creates a new cost accountant
func NewAccountantService(sessions secondary.SessionRepository, cfg *config.CostCfg, logger primary.Logger) *AccountantService {
	return &AccountantService{
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// Breakdown computes a cost snapshot for the given duration and class.
// Total is always recomputed as the sum of its parts.
func (a *AccountantService) Breakdown(duration time.Duration, class domain.InstanceClass) domain.CostBreakdown {
	hours := duration.Hours()
	if hours < 0 {
		hours = 0
	}

	compute := hours * a.cfg.HourlyRate(string(class))

	storage := a.cfg.StorageGB * a.cfg.StorageMonthlyRate * (hours / hoursPerMonth)

	transferGB := hours * a.cfg.TransferGBPerHour
	billableGB := transferGB - a.cfg.TransferFreeGB
	if billableGB < 0 {
		billableGB = 0
	}
	transfer := billableGB * a.cfg.TransferRatePerGB
	if transfer > a.cfg.TransferCeiling {
		transfer = a.cfg.TransferCeiling
	}

	return domain.CostBreakdown{
		InstanceClass:    class,
		Duration:         duration,
		ComputeCost:      compute,
		StorageCost:      storage,
		DataTransferCost: transfer,
		TotalCost:        compute + storage + transfer,
	}
}

// Finalize computes the authoritative session total at shutdown time.
func (a *AccountantService) Finalize(session *domain.Session, at time.Time) float64 {
	elapsed := session.Elapsed(at)
	breakdown := a.Breakdown(elapsed, session.InstanceClass)
	return breakdown.TotalCost
}

// RealTime returns the running and projected cost for a live session.
func (a *AccountantService) RealTime(session *domain.Session, now time.Time) (domain.CostBreakdown, domain.CostBreakdown) {
	current := a.Breakdown(session.Elapsed(now), session.InstanceClass)
	projected := a.Breakdown(time.Duration(session.EstimatedMinutes)*time.Minute, session.InstanceClass)
	return current, projected
}

// PeriodSummary aggregates finalized costs over a termination window.
func (a *AccountantService) PeriodSummary(ctx context.Context, from, to time.Time) (*domain.CostSummary, error) {
	sessions, err := a.sessions.GetTerminatedBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load terminated sessions: %w", err)
	}

	summary := &domain.CostSummary{
		WindowStart: from,
		WindowEnd:   to,
	}
	for _, s := range sessions {
		total := 0.0
		if s.FinalCost != nil {
			total = *s.FinalCost
		} else if s.ShutdownAt != nil {
			// Sessions parked in SHUTTING_DOWN by a failed teardown carry no
			// final cost; recompute from timestamps.
			total = a.Finalize(s, *s.ShutdownAt)
		}
		summary.TotalCost += total
		summary.SessionCount++
	}
	if summary.SessionCount > 0 {
		summary.AverageCost = summary.TotalCost / float64(summary.SessionCount)
	}
	return summary, nil
}
