package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/cost"
	"gitlab.com/examgrid-2026.net/internal/core/services/notify"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

var _ ICoordinatorService = &ShutdownCoordinator{}

// ShutdownCoordinator owns every terminal-state write on sessions.
type ShutdownCoordinator struct {
	registry   *registry.Registry
	sessions   secondary.SessionRepository
	progress   secondary.ProgressTracker
	cloud      secondary.CloudProvisioner
	accountant cost.IAccountantService
	notifier   notify.IFanOutService
	cfg        *config.OrchestratorCfg
	logger     primary.Logger
}

// NewShutdownCoordinator creates a new shutdown coordinator
func NewShutdownCoordinator(
	reg *registry.Registry,
	sessions secondary.SessionRepository,
	progress secondary.ProgressTracker,
	cloud secondary.CloudProvisioner,
	accountant cost.IAccountantService,
	notifier notify.IFanOutService,
	cfg *config.OrchestratorCfg,
	logger primary.Logger,
) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		registry:   reg,
		sessions:   sessions,
		progress:   progress,
		cloud:      cloud,
		accountant: accountant,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
	}
}

// Shutdown drains in-flight work, finalizes cost, releases the instance and
// terminates the session. A session already shutting down or terminated is
// left untouched. If teardown fails and force was not set, the whole
// teardown is retried once with force=true and reason EMERGENCY; a second
// failure surfaces ErrShutdownFailed and leaves the session parked in
// SHUTTING_DOWN for manual intervention.
func (c *ShutdownCoordinator) Shutdown(ctx context.Context, sessionID uuid.UUID, reason domain.ShutdownReason, force bool) error {
	snap, applied, err := c.registry.CompareAndTransition(sessionID, domain.SessionStateShuttingDown, func(s *domain.Session) {
		r := reason
		s.ShutdownReason = &r
	})
	if err != nil {
		if errors.Is(err, errs.ErrIllegalTransition) {
			return fmt.Errorf("%w: %v", errs.ErrShutdownNotPermitted, err)
		}
		return err
	}
	if !applied {
		c.logger.Info("Shutdown already in progress", "sessionID", sessionID, "state", snap.State)
		return nil
	}

	c.logger.Info("Session shutting down", "sessionID", sessionID, "reason", reason, "force", force)
	if err := c.sessions.SaveSession(ctx, snap); err != nil {
		c.logger.Error("Failed to persist shutting-down state", "sessionID", sessionID, "error", err)
	}

	err = c.teardown(ctx, sessionID, reason, force)
	if err == nil {
		return nil
	}
	if force {
		return c.fail(ctx, sessionID, reason, err)
	}

	c.logger.Error("Shutdown failed, escalating to emergency", "sessionID", sessionID, "error", err)
	if err2 := c.teardown(ctx, sessionID, domain.ShutdownReasonEmergency, true); err2 != nil {
		return c.fail(ctx, sessionID, domain.ShutdownReasonEmergency, err2)
	}
	return nil
}

func (c *ShutdownCoordinator) teardown(ctx context.Context, sessionID uuid.UUID, reason domain.ShutdownReason, force bool) error {
	if !force {
		c.drain(ctx, sessionID)
	}

	sess, err := c.registry.Get(sessionID)
	if err != nil {
		return err
	}

	now := time.Now()
	snap, err := c.registry.Update(sessionID, func(s *domain.Session) {
		if s.ShutdownAt == nil {
			s.ShutdownAt = &now
		}
		r := reason
		s.ShutdownReason = &r
	})
	if err != nil {
		return err
	}

	if sess.InstanceID != nil {
		if err := c.cloud.Terminate(ctx, *sess.InstanceID); err != nil {
			return fmt.Errorf("failed to release instance %s: %w", *sess.InstanceID, err)
		}
	}

	// CompareAndTransition keeps the escalated retry safe when the first
	// attempt failed after the terminal transition already landed.
	finalCost := c.accountant.Finalize(snap, *snap.ShutdownAt)
	snap, _, err = c.registry.CompareAndTransition(sessionID, domain.SessionStateTerminated, func(s *domain.Session) {
		if s.FinalCost == nil {
			s.FinalCost = &finalCost
		}
	})
	if err != nil {
		return err
	}
	if err := c.sessions.SaveSession(ctx, snap); err != nil {
		return fmt.Errorf("failed to persist terminated session: %w", err)
	}
	if snap.FinalCost != nil {
		finalCost = *snap.FinalCost
	}

	if err := c.progress.ClearSession(ctx, sessionID); err != nil {
		c.logger.Warn("Failed to clear session progress", "sessionID", sessionID, "error", err)
	}

	kind := domain.EventSessionShutdown
	severity := domain.SeverityInfo
	if reason == domain.ShutdownReasonAutoCompletion {
		kind = domain.EventSessionCompleted
	}
	if reason == domain.ShutdownReasonEmergency {
		severity = domain.SeverityWarning
	}
	event := domain.NewLifecycleEvent(sessionID, kind, severity,
		fmt.Sprintf("session terminated (%s)", reason), map[string]interface{}{
			"reason":             string(reason),
			"finalCost":          finalCost,
			"participantsServed": snap.ParticipantsServed,
		})
	if err := c.notifier.Notify(ctx, event); err != nil {
		c.logger.Error("Failed to dispatch shutdown event", "sessionID", sessionID, "error", err)
	}

	c.logger.Info("Session terminated", "sessionID", sessionID, "reason", reason, "finalCost", finalCost)
	return nil
}

// drain waits for in-flight submissions to resolve, bounded by the drain
// budget. Read errors are tolerated; the budget caps the wait either way.
func (c *ShutdownCoordinator) drain(ctx context.Context, sessionID uuid.UUID) {
	deadline := time.Now().Add(c.cfg.DrainBudget)
	ticker := time.NewTicker(c.cfg.DrainPollInterval)
	defer ticker.Stop()

	for {
		pending, err := c.progress.PendingSubmissions(ctx, sessionID)
		if err != nil {
			c.logger.Warn("Failed to read pending submissions during drain", "sessionID", sessionID, "error", err)
		} else if pending == 0 {
			return
		} else {
			c.logger.Debug("Draining in-flight submissions", "sessionID", sessionID, "pending", pending)
		}

		if time.Now().After(deadline) {
			c.logger.Warn("Drain budget exhausted", "sessionID", sessionID)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *ShutdownCoordinator) fail(ctx context.Context, sessionID uuid.UUID, reason domain.ShutdownReason, cause error) error {
	event := domain.NewLifecycleEvent(sessionID, domain.EventShutdownFailed, domain.SeverityCritical,
		"session shutdown failed, manual intervention required", map[string]interface{}{
			"reason": string(reason),
			"error":  cause.Error(),
		})
	if nerr := c.notifier.Notify(ctx, event); nerr != nil {
		c.logger.Error("Failed to dispatch shutdown-failed event", "sessionID", sessionID, "error", nerr)
	}
	return fmt.Errorf("%w: %v", errs.ErrShutdownFailed, cause)
}
