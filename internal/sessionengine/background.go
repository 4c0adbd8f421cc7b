package sessionengine

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/lifecycle"
	"gitlab.com/examgrid-2026.net/internal/core/services/probe"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

// SessionEngine owns the long-lived background work: one readiness probe
// followed by one completion-detector loop per session, each in its own
// goroutine. Loops are self-terminating; Wait blocks until all have
// stopped.
type SessionEngine struct {
	baseCtx  context.Context
	registry *registry.Registry
	sessions secondary.SessionRepository
	prober   *probe.ReadinessProber
	detector lifecycle.ICompletionService
	logger   primary.Logger
	wg       sync.WaitGroup
}

func NewSessionEngine(
	baseCtx context.Context,
	reg *registry.Registry,
	sessions secondary.SessionRepository,
	prober *probe.ReadinessProber,
	detector lifecycle.ICompletionService,
	logger primary.Logger,
) *SessionEngine {
	return &SessionEngine{
		baseCtx:  baseCtx,
		registry: reg,
		sessions: sessions,
		prober:   prober,
		detector: detector,
		logger:   logger,
	}
}

// Activate runs the probe-then-detect sequence for a provisioning session.
// The detector loop only starts after a successful readiness probe.
func (e *SessionEngine) Activate(sessionID uuid.UUID) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.prober.AwaitReady(e.baseCtx, sessionID); err != nil {
			e.logger.Error("Session activation failed", "sessionID", sessionID, "error", err)
			return
		}
		e.detector.Watch(e.baseCtx, sessionID)
	}()
}

// StartDetector starts a completion-detector loop for a session that is
// already READY.
func (e *SessionEngine) StartDetector(sessionID uuid.UUID) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.detector.Watch(e.baseCtx, sessionID)
	}()
}

// ResumeActiveSessions reloads non-terminal sessions from storage after a
// restart and restarts their background loops.
func (e *SessionEngine) ResumeActiveSessions(ctx context.Context) error {
	sessions, err := e.sessions.GetActiveSessions(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		e.registry.Add(sess)
		switch sess.State {
		case domain.SessionStateProvisioning:
			e.logger.Info("Resuming provisioning session", "sessionID", sess.ID)
			e.Activate(sess.ID)
		case domain.SessionStateReady:
			e.logger.Info("Resuming ready session", "sessionID", sess.ID)
			e.StartDetector(sess.ID)
		}
	}
	e.logger.Info("Resumed active sessions", "count", len(sessions))
	return nil
}

// Wait blocks until every background loop has stopped.
func (e *SessionEngine) Wait() {
	e.wg.Wait()
}
