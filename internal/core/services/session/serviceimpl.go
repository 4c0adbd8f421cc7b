package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/notify"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

var _ ISessionService = &SessionService{}

// Activator hands a freshly provisioned session to the background readiness
// probe and, after readiness, the completion-detector loop.
type Activator interface {
	Activate(sessionID uuid.UUID)
}

// SessionService implements session scheduling
type SessionService struct {
	registry  *registry.Registry
	sessions  secondary.SessionRepository
	cloud     secondary.CloudProvisioner
	notifier  notify.IFanOutService
	activator Activator
	cfg       *config.OrchestratorCfg
	logger    primary.Logger
}

// NewSessionService creates a new session scheduler
func NewSessionService(
	reg *registry.Registry,
	sessions secondary.SessionRepository,
	cloud secondary.CloudProvisioner,
	notifier notify.IFanOutService,
	activator Activator,
	cfg *config.OrchestratorCfg,
	logger primary.Logger,
) *SessionService {
	return &SessionService{
		registry:  reg,
		sessions:  sessions,
		cloud:     cloud,
		notifier:  notifier,
		activator: activator,
		cfg:       cfg,
		logger:    logger,
	}
}

// ScheduleSession provisions a new judging session. On provisioning failure
// no session row is created.
func (s *SessionService) ScheduleSession(ctx context.Context, req ScheduleRequest) (*domain.Session, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	class := req.InstanceClass
	if class == "" {
		class = domain.InstanceClassStandard
	}

	instance, err := s.cloud.Launch(ctx, class)
	if err != nil {
		s.logger.Error("Instance launch failed", "class", class, "error", err)
		return nil, fmt.Errorf("%w: %v", errs.ErrProvisioning, err)
	}

	sess := domain.NewSession(class, req.ProblemSetID, req.ExpectedParticipants, req.EstimatedMinutes)
	sess.InstanceID = &instance.ID
	sess.InstanceAddr = &instance.Addr

	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		// The session row is the source of truth; without it the instance
		// would leak unobserved, so release it and fail the request.
		if terr := s.cloud.Terminate(ctx, instance.ID); terr != nil {
			s.logger.Error("Failed to release instance after save failure", "instanceID", instance.ID, "error", terr)
		}
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	// Registered only after the row exists so a failed request leaves no
	// in-memory session behind.
	s.registry.Add(sess)

	event := domain.NewLifecycleEvent(sess.ID, domain.EventSessionScheduled, domain.SeverityInfo,
		"session provisioning started", map[string]interface{}{
			"instanceID":           instance.ID,
			"instanceClass":        string(class),
			"expectedParticipants": req.ExpectedParticipants,
		})
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Error("Failed to dispatch scheduled event", "sessionID", sess.ID, "error", err)
	}

	s.activator.Activate(sess.ID)

	s.logger.Info("Session scheduled", "sessionID", sess.ID, "instanceID", instance.ID, "class", class)
	return sess, nil
}

// GetSession returns a session from memory, falling back to storage.
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	sess, err := s.registry.Get(sessionID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, errs.ErrSessionNotFound) {
		return nil, err
	}
	sess, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errs.ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) validate(req ScheduleRequest) error {
	if req.ExpectedParticipants <= 0 {
		return errs.ErrInvalidParticipants
	}
	if req.EstimatedMinutes < s.cfg.MinSessionMinutes || req.EstimatedMinutes > s.cfg.MaxSessionMinutes {
		return fmt.Errorf("%w: %d minutes not in [%d, %d]", errs.ErrInvalidDuration,
			req.EstimatedMinutes, s.cfg.MinSessionMinutes, s.cfg.MaxSessionMinutes)
	}
	return nil
}
