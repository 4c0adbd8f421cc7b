package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

var _ ICompletionService = &CompletionDetector{}

// AutoShutdownReady is the completion predicate: every expected participant
// has submitted, nothing is in flight, and the dwell floor since readiness
// has passed. Kept pure so it can be tested apart from the polling loop.
func AutoShutdownReady(submitted, expected, pending int, readyAt, now time.Time, minDwell time.Duration) bool {
	return submitted >= expected &&
		pending == 0 &&
		now.Sub(readyAt) > minDwell
}

// CompletionDetector runs one independent loop per active session and
// invokes the shutdown coordinator once the completion predicate holds.
type CompletionDetector struct {
	registry    *registry.Registry
	progress    secondary.ProgressTracker
	coordinator ICoordinatorService
	cfg         *config.OrchestratorCfg
	logger      primary.Logger
}

// NewCompletionDetector creates a new completion detector
func NewCompletionDetector(
	reg *registry.Registry,
	progress secondary.ProgressTracker,
	coordinator ICoordinatorService,
	cfg *config.OrchestratorCfg,
	logger primary.Logger,
) *CompletionDetector {
	return &CompletionDetector{
		registry:    reg,
		progress:    progress,
		coordinator: coordinator,
		cfg:         cfg,
		logger:      logger,
	}
}

// Watch wakes at a fixed interval and evaluates the completion predicate.
// The loop is self-terminating: it stops after triggering a shutdown or
// observing that the session left READY. A failed evaluation is logged and
// the loop continues to the next wake.
func (d *CompletionDetector) Watch(ctx context.Context, sessionID uuid.UUID) {
	d.logger.Info("Completion detector started", "sessionID", sessionID, "interval", d.cfg.CheckInterval)
	ticker := time.NewTicker(d.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Completion detector cancelled", "sessionID", sessionID)
			return
		case <-ticker.C:
			done, err := d.evaluate(ctx, sessionID)
			if err != nil {
				d.logger.Error("Completion check failed", "sessionID", sessionID, "error", err)
				continue
			}
			if done {
				d.logger.Info("Completion detector stopped", "sessionID", sessionID)
				return
			}
		}
	}
}

// evaluate returns done=true when the loop should stop.
func (d *CompletionDetector) evaluate(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	sess, err := d.registry.Get(sessionID)
	if err != nil {
		return false, err
	}
	if sess.State != domain.SessionStateReady {
		// Shutdown already started elsewhere; never re-evaluate it.
		return true, nil
	}

	if over, reason := d.overTimeLimit(sess); over {
		if err := d.coordinator.Shutdown(ctx, sessionID, reason, false); err != nil {
			return false, fmt.Errorf("timeout shutdown failed: %w", err)
		}
		return true, nil
	}

	status, err := d.Status(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if !status.ShutdownReady {
		return false, nil
	}

	if err := d.coordinator.Shutdown(ctx, sessionID, domain.ShutdownReasonAutoCompletion, false); err != nil {
		return false, fmt.Errorf("auto-completion shutdown failed: %w", err)
	}
	return true, nil
}

// Status reports the predicate inputs and verdict for a session.
func (d *CompletionDetector) Status(ctx context.Context, sessionID uuid.UUID) (*CompletionStatus, error) {
	sess, err := d.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}

	submitted, err := d.progress.ParticipantsSubmitted(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read participants submitted: %w", err)
	}
	pending, err := d.progress.PendingSubmissions(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pending submissions: %w", err)
	}

	status := &CompletionStatus{
		ParticipantsSubmitted: submitted,
		ExpectedParticipants:  sess.ExpectedParticipants,
		PendingSubmissions:    pending,
	}
	if sess.State == domain.SessionStateReady && sess.ReadyAt != nil {
		now := time.Now()
		status.DwellElapsed = now.Sub(*sess.ReadyAt) > d.cfg.MinDwell
		status.ShutdownReady = AutoShutdownReady(submitted, sess.ExpectedParticipants, pending, *sess.ReadyAt, now, d.cfg.MinDwell)
	}
	return status, nil
}

func (d *CompletionDetector) overTimeLimit(sess *domain.Session) (bool, domain.ShutdownReason) {
	if d.cfg.TimeoutGraceFactor <= 0 || sess.ReadyAt == nil || sess.EstimatedMinutes <= 0 {
		return false, ""
	}
	limit := time.Duration(float64(sess.EstimatedMinutes) * d.cfg.TimeoutGraceFactor * float64(time.Minute))
	if time.Since(*sess.ReadyAt) > limit {
		return true, domain.ShutdownReasonTimeout
	}
	return false, ""
}
