package lifecycle

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
	mu            sync.Mutex
	terminated    []string
	terminateErrs []error // consumed per call; nil means success
}

func (f *fakeCloud) Launch(ctx context.Context, class domain.InstanceClass) (*domain.Instance, error) {
	return &domain.Instance{ID: "i-test", Addr: "10.0.0.5"}, nil
}

func (f *fakeCloud) Terminate(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.terminated)
	f.terminated = append(f.terminated, instanceID)
	if call < len(f.terminateErrs) && f.terminateErrs[call] != nil {
		return f.terminateErrs[call]
	}
	return nil
}

func (f *fakeCloud) terminateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.terminated)
}

type fakeAccountant struct {
	finalCost float64
}

func (f *fakeAccountant) Breakdown(duration time.Duration, class domain.InstanceClass) domain.CostBreakdown {
	return domain.CostBreakdown{InstanceClass: class, Duration: duration}
}

func (f *fakeAccountant) Finalize(session *domain.Session, at time.Time) float64 {
	return f.finalCost
}

func (f *fakeAccountant) RealTime(session *domain.Session, now time.Time) (domain.CostBreakdown, domain.CostBreakdown) {
	return domain.CostBreakdown{}, domain.CostBreakdown{}
}

func (f *fakeAccountant) PeriodSummary(ctx context.Context, from, to time.Time) (*domain.CostSummary, error) {
	return &domain.CostSummary{}, nil
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

func (f *fakeNotifier) find(kind domain.EventKind) *domain.LifecycleEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Kind == kind {
			return e
		}
	}
	return nil
}

type fakeSessionRepo struct {
	mu    sync.Mutex
	saves []*domain.Session
}

func (f *fakeSessionRepo) SaveSession(ctx context.Context, session *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, session)
	return nil
}

func (f *fakeSessionRepo) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Session, error) {
	return nil, nil
}

func (f *fakeSessionRepo) GetActiveSessions(ctx context.Context) ([]*domain.Session, error) {
	return nil, nil
}

func (f *fakeSessionRepo) GetTerminatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Session, error) {
	return nil, nil
}

func coordinatorCfg() *config.OrchestratorCfg {
	return &config.OrchestratorCfg{
		DrainPollInterval: time.Millisecond,
		DrainBudget:       50 * time.Millisecond,
	}
}

type coordinatorHarness struct {
	coordinator *ShutdownCoordinator
	reg         *registry.Registry
	cloud       *fakeCloud
	progress    *fakeProgress
	notifier    *fakeNotifier
	sessID      uuid.UUID
}

func newCoordinatorHarness(cloud *fakeCloud, progress *fakeProgress) *coordinatorHarness {
	reg := registry.New()
	sess := domain.NewSession(domain.InstanceClassStandard, "set-1", 5, 60)
	sess.State = domain.SessionStateReady
	instanceID := "i-abc123"
	sess.InstanceID = &instanceID
	readyAt := time.Now().Add(-time.Hour)
	sess.ReadyAt = &readyAt
	reg.Add(sess)

	notifier := &fakeNotifier{}
	coordinator := NewShutdownCoordinator(reg, &fakeSessionRepo{}, progress, cloud,
		&fakeAccountant{finalCost: 1.25}, notifier, coordinatorCfg(), logging.NewZapLogger())

	return &coordinatorHarness{
		coordinator: coordinator,
		reg:         reg,
		cloud:       cloud,
		progress:    progress,
		notifier:    notifier,
		sessID:      sess.ID,
	}
}

func TestShutdownTerminatesSession(t *testing.T) {
	h := newCoordinatorHarness(&fakeCloud{}, &fakeProgress{})

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false)
	require.NoError(t, err)

	snap, err := h.reg.Get(h.sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateTerminated, snap.State)
	require.NotNil(t, snap.FinalCost)
	assert.Equal(t, 1.25, *snap.FinalCost)
	require.NotNil(t, snap.ShutdownReason)
	assert.Equal(t, domain.ShutdownReasonManual, *snap.ShutdownReason)
	assert.NotNil(t, snap.ShutdownAt)

	assert.Equal(t, []string{"i-abc123"}, h.cloud.terminated)
	assert.Equal(t, 1, h.progress.clearCalls)

	event := h.notifier.find(domain.EventSessionShutdown)
	require.NotNil(t, event)
	assert.Equal(t, domain.SeverityInfo, event.Severity)
}

func TestShutdownAutoCompletionEmitsCompletedEvent(t *testing.T) {
	h := newCoordinatorHarness(&fakeCloud{}, &fakeProgress{})

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonAutoCompletion, false)
	require.NoError(t, err)

	assert.NotNil(t, h.notifier.find(domain.EventSessionCompleted))
	assert.Nil(t, h.notifier.find(domain.EventSessionShutdown))
}

func TestShutdownIdempotentUnderConcurrency(t *testing.T) {
	h := newCoordinatorHarness(&fakeCloud{}, &fakeProgress{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Exactly one caller ran the teardown.
	assert.Equal(t, 1, h.cloud.terminateCalls())

	snap, err := h.reg.Get(h.sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateTerminated, snap.State)
}

func TestShutdownRepeatAfterTerminationIsNoOp(t *testing.T) {
	h := newCoordinatorHarness(&fakeCloud{}, &fakeProgress{})

	require.NoError(t, h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false))
	require.NoError(t, h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonEmergency, true))

	assert.Equal(t, 1, h.cloud.terminateCalls())
}

func TestShutdownBeforeReadyNotPermitted(t *testing.T) {
	h := newCoordinatorHarness(&fakeCloud{}, &fakeProgress{})

	early := domain.NewSession(domain.InstanceClassStandard, "set-1", 5, 60)
	h.reg.Add(early)

	err := h.coordinator.Shutdown(context.Background(), early.ID, domain.ShutdownReasonManual, false)
	assert.ErrorIs(t, err, errs.ErrShutdownNotPermitted)
	assert.Equal(t, 0, h.cloud.terminateCalls())
}

func TestShutdownDrainsInFlightSubmissions(t *testing.T) {
	progress := &fakeProgress{pendingScript: []int{2, 1, 0}}
	h := newCoordinatorHarness(&fakeCloud{}, progress)

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false)
	require.NoError(t, err)

	progress.mu.Lock()
	reads := progress.pendingReads
	progress.mu.Unlock()
	assert.GreaterOrEqual(t, reads, 3)
	assert.Equal(t, 1, h.cloud.terminateCalls())
}

func TestForcedShutdownSkipsDrain(t *testing.T) {
	progress := &fakeProgress{pending: 5}
	h := newCoordinatorHarness(&fakeCloud{}, progress)

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonEmergency, true)
	require.NoError(t, err)

	progress.mu.Lock()
	reads := progress.pendingReads
	progress.mu.Unlock()
	assert.Equal(t, 0, reads)
}

func TestShutdownEscalatesToEmergencyOnFailure(t *testing.T) {
	cloud := &fakeCloud{terminateErrs: []error{errors.New("api throttled"), nil}}
	h := newCoordinatorHarness(cloud, &fakeProgress{})

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false)
	require.NoError(t, err)

	assert.Equal(t, 2, cloud.terminateCalls())

	snap, err := h.reg.Get(h.sessID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStateTerminated, snap.State)
	require.NotNil(t, snap.ShutdownReason)
	assert.Equal(t, domain.ShutdownReasonEmergency, *snap.ShutdownReason)

	event := h.notifier.find(domain.EventSessionShutdown)
	require.NotNil(t, event)
	assert.Equal(t, domain.SeverityWarning, event.Severity)
}

func TestShutdownFailsAfterEscalation(t *testing.T) {
	boom := errors.New("instance stuck")
	cloud := &fakeCloud{terminateErrs: []error{boom, boom}}
	h := newCoordinatorHarness(cloud, &fakeProgress{})

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonManual, false)
	assert.ErrorIs(t, err, errs.ErrShutdownFailed)

	// The session stays parked in SHUTTING_DOWN for manual intervention.
	snap, gerr := h.reg.Get(h.sessID)
	require.NoError(t, gerr)
	assert.Equal(t, domain.SessionStateShuttingDown, snap.State)

	event := h.notifier.find(domain.EventShutdownFailed)
	require.NotNil(t, event)
	assert.Equal(t, domain.SeverityCritical, event.Severity)
}

func TestForcedShutdownFailureDoesNotEscalateTwice(t *testing.T) {
	boom := errors.New("instance stuck")
	cloud := &fakeCloud{terminateErrs: []error{boom, boom}}
	h := newCoordinatorHarness(cloud, &fakeProgress{})

	err := h.coordinator.Shutdown(context.Background(), h.sessID, domain.ShutdownReasonEmergency, true)
	assert.ErrorIs(t, err, errs.ErrShutdownFailed)
	assert.Equal(t, 1, cloud.terminateCalls())
}
