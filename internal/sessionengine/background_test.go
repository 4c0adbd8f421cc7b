package sessionengine

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
	"gitlab.com/examgrid-2026.net/internal/core/services/lifecycle"
	"gitlab.com/examgrid-2026.net/internal/core/services/probe"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

type fakeJudge struct {
	healthy bool
}

func (f *fakeJudge) SubmitBatch(ctx context.Context, addr string, units []domain.ExecutionUnit) ([]string, error) {
	return nil, nil
}

func (f *fakeJudge) PollStatus(ctx context.Context, addr string, handle string) (*domain.UnitResult, error) {
	return nil, nil
}

func (f *fakeJudge) HealthCheck(ctx context.Context, addr string) (bool, error) {
	if !f.healthy {
		return false, errors.New("connection refused")
	}
	return true, nil
}

type fakeCloud struct {
	mu         sync.Mutex
	terminated []string
}

func (f *fakeCloud) Launch(ctx context.Context, class domain.InstanceClass) (*domain.Instance, error) {
	return &domain.Instance{ID: "i-test", Addr: "10.0.0.5"}, nil
}

func (f *fakeCloud) Terminate(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated = append(f.terminated, instanceID)
	return nil
}

type fakeSessionRepo struct {
	active []*domain.Session
}

func (f *fakeSessionRepo) SaveSession(ctx context.Context, session *domain.Session) error {
	return nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return nil, nil
}

func (f *fakeSessionRepo) GetActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return f.active, nil
}

func (f *fakeSessionRepo) GetTerminatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Session, error) {
	return nil, nil
}

type fakeNotifier struct{}

func (f *fakeNotifier) Notify(ctx context.Context, event *domain.LifecycleEvent) error {
	return nil
}

type fakeDetector struct {
	mu      sync.Mutex
	watched []uuid.UUID
}

func (f *fakeDetector) Watch(ctx context.Context, sessionID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched = append(f.watched, sessionID)
}

func (f *fakeDetector) Status(ctx context.Context, sessionID uuid.UUID) (*lifecycle.CompletionStatus, error) {
	return nil, nil
}

var _ lifecycle.ICompletionService = &fakeDetector{}

func engineCfg() *config.OrchestratorCfg {
	return &config.OrchestratorCfg{
		ProbeInterval: 2 * time.Millisecond,
		ProbeBudget:   10 * time.Millisecond,
	}
}

func newEngine(t *testing.T, judge *fakeJudge, repo *fakeSessionRepo) (*SessionEngine, *registry.Registry, *fakeDetector) {
	t.Helper()
	reg := registry.New()
	detector := &fakeDetector{}
	logger := logging.NewZapLogger()
	prober := probe.NewReadinessProber(reg, repo, judge, &fakeCloud{}, &fakeNotifier{}, engineCfg(), logger)
	engine := NewSessionEngine(context.Background(), reg, repo, prober, detector, logger)
	return engine, reg, detector
}

func addProvisioningSession(reg *registry.Registry) uuid.UUID {
	sess := domain.NewSession(domain.InstanceClassStandard, "set-1", 10, 60)
	instanceID := "i-abc123"
	addr := "10.0.0.5"
	sess.InstanceID = &instanceID
	sess.InstanceAddr = &addr
	reg.Add(sess)
	return sess.ID
}

func TestActivateStartsDetectorAfterReadiness(t *testing.T) {
	engine, reg, detector := newEngine(t, &fakeJudge{healthy: true}, &fakeSessionRepo{})
	sessID := addProvisioningSession(reg)

	engine.Activate(sessID)
	engine.Wait()

	snap, err := reg.Get(sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateReady, snap.State)
	assert.Equal(t, []uuid.UUID{sessID}, detector.watched)
}

func TestActivateSkipsDetectorOnProbeTimeout(t *testing.T) {
	engine, reg, detector := newEngine(t, &fakeJudge{healthy: false}, &fakeSessionRepo{})
	sessID := addProvisioningSession(reg)

	engine.Activate(sessID)
	engine.Wait()

	// A session that never became ready gets no completion loop.
	snap, err := reg.Get(sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateFailed, snap.State)
	assert.Empty(t, detector.watched)
}

func TestResumeActiveSessionsRestartsLoops(t *testing.T) {
	ready := domain.NewSession(domain.InstanceClassStandard, "set-1", 10, 60)
	instanceID := "i-ready"
	addr := "10.0.0.6"
	ready.InstanceID = &instanceID
	ready.InstanceAddr = &addr
	ready.State = domain.SessionStateReady
	now := time.Now()
	ready.ReadyAt = &now

	repo := &fakeSessionRepo{active: []*domain.Session{ready}}
	engine, reg, detector := newEngine(t, &fakeJudge{healthy: true}, repo)

	require.NoError(t, engine.ResumeActiveSessions(context.Background()))
	engine.Wait()

	_, err := reg.Get(ready.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ready.ID}, detector.watched)
}
