package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/examgrid-2026.net/internal/adapter/logging"
	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

type fakeCloud struct {
	mu         sync.Mutex
	launchErr  error
	launched   []domain.InstanceClass
	terminated []string
}

func (f *fakeCloud) Launch(ctx context.Context, class domain.InstanceClass) (*domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return nil, f.launchErr
	}
	f.launched = append(f.launched, class)
	return &domain.Instance{ID: "i-test", Addr: "10.0.0.5"}, nil
}

func (f *fakeCloud) Terminate(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, instanceID)
	return nil
}

type fakeSessionRepo struct {
	mu      sync.Mutex
	saveErr error
	saves   []*domain.Session
	stored  map[uuid.UUID]*domain.Session
}

func (f *fakeSessionRepo) SaveSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves = append(f.saves, session)
	return nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stored[sessionID], nil
}

func (f *fakeSessionRepo) GetActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

func (f *fakeSessionRepo) GetTerminatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Session, error) {
	return nil, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []*domain.LifecycleEvent
}

func (f *fakeNotifier) Notify(ctx context.Context, event *domain.LifecycleEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type fakeActivator struct {
	mu        sync.Mutex
	activated []uuid.UUID
}

func (f *fakeActivator) Activate(sessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.activated = append(f.activated, sessionID)
}

func schedulerCfg() *config.OrchestratorCfg {
	return &config.OrchestratorCfg{
		MinSessionMinutes: 10,
		MaxSessionMinutes: 480,
	}
}

func validRequest() ScheduleRequest {
	return ScheduleRequest{
		ExpectedParticipants: 25,
		EstimatedMinutes:     90,
		ProblemSetID:         "set-1",
		InstanceClass:        domain.InstanceClassStandard,
	}
}

func newScheduler(cloud *fakeCloud, repo *fakeSessionRepo) (*SessionService, *registry.Registry, *fakeActivator, *fakeNotifier) {
	reg := registry.New()
	activator := &fakeActivator{}
	notifier := &fakeNotifier{}
	svc := NewSessionService(reg, repo, cloud, notifier, activator, schedulerCfg(), logging.NewZapLogger())
	return svc, reg, activator, notifier
}

func TestScheduleSessionHappyPath(t *testing.T) {
	cloud := &fakeCloud{}
	svc, reg, activator, notifier := newScheduler(cloud, &fakeSessionRepo{})

	sess, err := svc.ScheduleSession(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStateProvisioning, sess.State)
	require.NotNil(t, sess.InstanceID)
	assert.Equal(t, "i-test", *sess.InstanceID)
	require.NotNil(t, sess.InstanceAddr)
	assert.Equal(t, "10.0.0.5", *sess.InstanceAddr)

	snap, err := reg.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, snap.ID)

	activator.mu.Lock()
	assert.Equal(t, []uuid.UUID{sess.ID}, activator.activated)
	activator.mu.Unlock()

	notifier.mu.Lock()
	require.Len(t, notifier.events, 1)
	assert.Equal(t, domain.EventSessionScheduled, notifier.events[0].Kind)
	notifier.mu.Unlock()
}

func TestScheduleSessionDefaultsToStandardClass(t *testing.T) {
	cloud := &fakeCloud{}
	svc, _, _, _ := newScheduler(cloud, &fakeSessionRepo{})

	req := validRequest()
	req.InstanceClass = ""
	sess, err := svc.ScheduleSession(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, domain.InstanceClassStandard, sess.InstanceClass)
	assert.Equal(t, []domain.InstanceClass{domain.InstanceClassStandard}, cloud.launched)
}

func TestScheduleSessionValidation(t *testing.T) {
	svc, _, activator, _ := newScheduler(&fakeCloud{}, &fakeSessionRepo{})

	tests := []struct {
		name    string
		mutate  func(*ScheduleRequest)
		wantErr error
	}{
		{"zero participants", func(r *ScheduleRequest) { r.ExpectedParticipants = 0 }, errs.ErrInvalidParticipants},
		{"negative participants", func(r *ScheduleRequest) { r.ExpectedParticipants = -3 }, errs.ErrInvalidParticipants},
		{"too short", func(r *ScheduleRequest) { r.EstimatedMinutes = 5 }, errs.ErrInvalidDuration},
		{"too long", func(r *ScheduleRequest) { r.EstimatedMinutes = 481 }, errs.ErrInvalidDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.ScheduleSession(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Empty(t, activator.activated)
}

func TestScheduleSessionBoundaryDurations(t *testing.T) {
	svc, _, _, _ := newScheduler(&fakeCloud{}, &fakeSessionRepo{})

	req := validRequest()
	req.EstimatedMinutes = 10
	_, err := svc.ScheduleSession(context.Background(), req)
	assert.NoError(t, err)

	req.EstimatedMinutes = 480
	_, err = svc.ScheduleSession(context.Background(), req)
	assert.NoError(t, err)
}

func TestScheduleSessionLaunchFailure(t *testing.T) {
	cloud := &fakeCloud{launchErr: errors.New("capacity")}
	repo := &fakeSessionRepo{}
	svc, _, activator, _ := newScheduler(cloud, repo)

	_, err := svc.ScheduleSession(context.Background(), validRequest())
	assert.ErrorIs(t, err, errs.ErrProvisioning)

	// No session row and no background work on a failed launch.
	assert.Empty(t, repo.saves)
	assert.Empty(t, activator.activated)
}

func TestScheduleSessionSaveFailureReleasesInstance(t *testing.T) {
	cloud := &fakeCloud{}
	repo := &fakeSessionRepo{saveErr: errors.New("db down")}
	svc, reg, activator, _ := newScheduler(cloud, repo)

	_, err := svc.ScheduleSession(context.Background(), validRequest())
	require.Error(t, err)

	assert.Equal(t, []string{"i-test"}, cloud.terminated)
	assert.Empty(t, activator.activated)
	// A failed schedule leaves nothing in memory either; the caller was told
	// no session exists.
	assert.Empty(t, reg.Active())
}

func TestGetSessionFallsBackToStorage(t *testing.T) {
	stored := domain.NewSession(domain.InstanceClassSmall, "set-2", 5, 30)
	repo := &fakeSessionRepo{stored: map[uuid.UUID]*domain.Session{stored.ID: stored}}
	svc, _, _, _ := newScheduler(&fakeCloud{}, repo)

	sess, err := svc.GetSession(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, sess.ID)
}

func TestGetSessionNotFound(t *testing.T) {
	svc, _, _, _ := newScheduler(&fakeCloud{}, &fakeSessionRepo{})

	_, err := svc.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrSessionNotFound)
}
