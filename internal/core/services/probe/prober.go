package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/notify"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

// ReadinessProber polls a freshly launched instance until its judging
// backend answers health checks or the probe budget runs out. Exactly one
// probe sequence runs per session.
type ReadinessProber struct {
	registry *registry.Registry
	sessions secondary.SessionRepository
	judge    secondary.JudgeBackend
	cloud    secondary.CloudProvisioner
	notifier notify.IFanOutService
	cfg      *config.OrchestratorCfg
	logger   primary.Logger
	inFlight *xsync.MapOf[uuid.UUID, struct{}]
}

// NewReadinessProber creates a new readiness prober
func NewReadinessProber(
	reg *registry.Registry,
	sessions secondary.SessionRepository,
	judge secondary.JudgeBackend,
	cloud secondary.CloudProvisioner,
	notifier notify.IFanOutService,
	cfg *config.OrchestratorCfg,
	logger primary.Logger,
) *ReadinessProber {
	return &ReadinessProber{
		registry: reg,
		sessions: sessions,
		judge:    judge,
		cloud:    cloud,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		inFlight: xsync.NewMapOf[uuid.UUID, struct{}](),
	}
}

// AwaitReady blocks until the session's backend is serving or the budget
// elapses. On success the session moves to READY with its readiness
// timestamp; on budget exhaustion it moves to FAILED and
// ErrProvisioningTimeout is returned.
func (p *ReadinessProber) AwaitReady(ctx context.Context, sessionID uuid.UUID) error {
	if _, loaded := p.inFlight.LoadOrStore(sessionID, struct{}{}); loaded {
		return errs.ErrProbeAlreadyRunning
	}
	defer p.inFlight.Delete(sessionID)

	sess, err := p.registry.Get(sessionID)
	if err != nil {
		return err
	}
	if sess.InstanceAddr == nil {
		return fmt.Errorf("%w: session %s has no instance address", errs.ErrProvisioning, sessionID)
	}
	addr := *sess.InstanceAddr

	p.logger.Info("Probing instance readiness", "sessionID", sessionID, "addr", addr, "budget", p.cfg.ProbeBudget)
	deadline := time.Now().Add(p.cfg.ProbeBudget)
	ticker := time.NewTicker(p.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		healthy, err := p.judge.HealthCheck(ctx, addr)
		if err != nil {
			// Expected while the backend boots; the budget bounds the wait.
			p.logger.Debug("Health check failed", "sessionID", sessionID, "error", err)
		}
		if healthy {
			return p.markReady(ctx, sessionID)
		}

		if time.Now().After(deadline) {
			return p.markFailed(ctx, sessionID)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *ReadinessProber) markReady(ctx context.Context, sessionID uuid.UUID) error {
	now := time.Now()
	snap, err := p.registry.Transition(sessionID, domain.SessionStateReady, func(s *domain.Session) {
		s.ReadyAt = &now
	})
	if err != nil {
		return err
	}
	if err := p.sessions.SaveSession(ctx, snap); err != nil {
		p.logger.Error("Failed to persist ready session", "sessionID", sessionID, "error", err)
	}

	event := domain.NewLifecycleEvent(sessionID, domain.EventSessionReady, domain.SeverityInfo,
		"judging backend is serving", map[string]interface{}{"instanceID": deref(snap.InstanceID)})
	if err := p.notifier.Notify(ctx, event); err != nil {
		p.logger.Error("Failed to dispatch readiness event", "sessionID", sessionID, "error", err)
	}

	p.logger.Info("Session ready", "sessionID", sessionID)
	return nil
}

func (p *ReadinessProber) markFailed(ctx context.Context, sessionID uuid.UUID) error {
	snap, err := p.registry.Transition(sessionID, domain.SessionStateFailed, nil)
	if err != nil {
		return err
	}
	if err := p.sessions.SaveSession(ctx, snap); err != nil {
		p.logger.Error("Failed to persist failed session", "sessionID", sessionID, "error", err)
	}

	// Release the instance; a backend that never came up still bills.
	if snap.InstanceID != nil {
		if err := p.cloud.Terminate(ctx, *snap.InstanceID); err != nil {
			p.logger.Error("Failed to release unhealthy instance", "sessionID", sessionID, "instanceID", *snap.InstanceID, "error", err)
		}
	}

	event := domain.NewLifecycleEvent(sessionID, domain.EventSessionFailed, domain.SeverityError,
		"instance readiness timed out", map[string]interface{}{"instanceID": deref(snap.InstanceID)})
	if err := p.notifier.Notify(ctx, event); err != nil {
		p.logger.Error("Failed to dispatch failure event", "sessionID", sessionID, "error", err)
	}

	p.logger.Error("Session failed readiness", "sessionID", sessionID, "budget", p.cfg.ProbeBudget)
	return errs.ErrProvisioningTimeout
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
