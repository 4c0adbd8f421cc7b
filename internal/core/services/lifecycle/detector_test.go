package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/examgrid-2026.net/internal/adapter/logging"
	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
)

type fakeProgress struct {
	mu            sync.Mutex
	submitted     int
	pending       int
	pendingScript []int // consumed by PendingSubmissions, then falls back to pending
	pendingReads  int
	readErrs      []error // consumed by ParticipantsSubmitted, one per call
	readCalls     int
	clearCalls    int
}

func (f *fakeProgress) MarkParticipantSubmitted(ctx context.Context, sessionID uuid.UUID, participantID string) error {
	return nil
}

func (f *fakeProgress) ParticipantsSubmitted(ctx context.Context, sessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := f.readCalls
	f.readCalls++
	if call < len(f.readErrs) && f.readErrs[call] != nil {
		return 0, f.readErrs[call]
	}
	return f.submitted, nil
}

func (f *fakeProgress) IncrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error {
	return nil
}

func (f *fakeProgress) DecrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error {
	return nil
}

func (f *fakeProgress) PendingSubmissions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	read := f.pendingReads
	f.pendingReads++
	if read < len(f.pendingScript) {
		return f.pendingScript[read], nil
	}
	return f.pending, nil
}

func (f *fakeProgress) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return nil
}

type fakeCoordinator struct {
	mu      sync.Mutex
	calls   []domain.ShutdownReason
	reg     *registry.Registry
	withReg bool
}

func (f *fakeCoordinator) Shutdown(ctx context.Context, sessionID uuid.UUID, reason domain.ShutdownReason, force bool) error {
	f.mu.Lock()
	f.calls = append(f.calls, reason)
	f.mu.Unlock()
	if f.withReg {
		// Mirror the real coordinator: the session leaves READY.
		f.reg.CompareAndTransition(sessionID, domain.SessionStateShuttingDown, nil)
	}
	return nil
}

func (f *fakeCoordinator) reasons() []domain.ShutdownReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ShutdownReason(nil), f.calls...)
}

func detectorCfg() *config.OrchestratorCfg {
	return &config.OrchestratorCfg{
		CheckInterval:      5 * time.Millisecond,
		MinDwell:           time.Millisecond,
		TimeoutGraceFactor: 0,
	}
}

func addReadySession(reg *registry.Registry, expected int, readyAgo time.Duration) uuid.UUID {
	sess := domain.NewSession(domain.InstanceClassStandard, "set-1", expected, 60)
	sess.State = domain.SessionStateReady
	readyAt := time.Now().Add(-readyAgo)
	sess.ReadyAt = &readyAt
	reg.Add(sess)
	return sess.ID
}

func TestAutoShutdownReadyPredicate(t *testing.T) {
	now := time.Now()
	readyAt := now.Add(-10 * time.Minute)
	dwell := 5 * time.Minute

	tests := []struct {
		name      string
		submitted int
		expected  int
		pending   int
		want      bool
	}{
		{"all submitted nothing pending", 10, 10, 0, true},
		{"over-submission still completes", 12, 10, 0, true},
		{"missing participants", 9, 10, 0, false},
		{"in-flight submission blocks", 10, 10, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AutoShutdownReady(tt.submitted, tt.expected, tt.pending, readyAt, now, dwell)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("dwell floor not yet passed", func(t *testing.T) {
		assert.False(t, AutoShutdownReady(10, 10, 0, now.Add(-time.Minute), now, dwell))
	})
}

func TestAutoShutdownReadyProperty(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	base := time.Now()
	properties.Property("predicate holds exactly when all conditions hold", prop.ForAll(
		func(submitted, expected, pending, dwellSec, elapsedSec int) bool {
			readyAt := base.Add(-time.Duration(elapsedSec) * time.Second)
			minDwell := time.Duration(dwellSec) * time.Second
			got := AutoShutdownReady(submitted, expected, pending, readyAt, base, minDwell)
			want := submitted >= expected && pending == 0 && elapsedSec > dwellSec
			return got == want
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 30),
		gen.IntRange(0, 3),
		gen.IntRange(0, 600),
		gen.IntRange(0, 600),
	))

	properties.TestingRun(t)
}

func TestWatchTriggersAutoShutdownExactlyOnce(t *testing.T) {
	reg := registry.New()
	sessID := addReadySession(reg, 2, time.Minute)
	progress := &fakeProgress{submitted: 2, pending: 0}
	coordinator := &fakeCoordinator{reg: reg, withReg: true}

	d := NewCompletionDetector(reg, progress, coordinator, detectorCfg(), logging.NewZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Watch(ctx, sessID)

	require.NoError(t, ctx.Err(), "watch should stop on its own, not by cancellation")
	reasons := coordinator.reasons()
	require.Len(t, reasons, 1)
	assert.Equal(t, domain.ShutdownReasonAutoCompletion, reasons[0])
}

func TestWatchStopsWhenSessionLeftReady(t *testing.T) {
	reg := registry.New()
	sessID := addReadySession(reg, 2, time.Minute)
	_, _, err := reg.CompareAndTransition(sessID, domain.SessionStateShuttingDown, nil)
	require.NoError(t, err)

	coordinator := &fakeCoordinator{}
	d := NewCompletionDetector(reg, &fakeProgress{}, coordinator, detectorCfg(), logging.NewZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Watch(ctx, sessID)

	assert.Empty(t, coordinator.reasons())
}

func TestWatchDoesNotFireBeforeDwell(t *testing.T) {
	reg := registry.New()
	cfg := detectorCfg()
	cfg.MinDwell = time.Hour
	sessID := addReadySession(reg, 1, time.Minute)
	coordinator := &fakeCoordinator{}

	d := NewCompletionDetector(reg, &fakeProgress{submitted: 1}, coordinator, cfg, logging.NewZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d.Watch(ctx, sessID)

	assert.Empty(t, coordinator.reasons())
}

func TestWatchFiresTimeoutShutdown(t *testing.T) {
	reg := registry.New()
	cfg := detectorCfg()
	cfg.TimeoutGraceFactor = 1.5
	// Ready two hours ago with a 10 minute estimate: far past the grace limit.
	sess := domain.NewSession(domain.InstanceClassStandard, "set-1", 5, 10)
	sess.State = domain.SessionStateReady
	readyAt := time.Now().Add(-2 * time.Hour)
	sess.ReadyAt = &readyAt
	reg.Add(sess)

	coordinator := &fakeCoordinator{reg: reg, withReg: true}
	d := NewCompletionDetector(reg, &fakeProgress{}, coordinator, cfg, logging.NewZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Watch(ctx, sess.ID)

	reasons := coordinator.reasons()
	require.Len(t, reasons, 1)
	assert.Equal(t, domain.ShutdownReasonTimeout, reasons[0])
}

func TestWatchSurvivesEvaluationErrors(t *testing.T) {
	reg := registry.New()
	sessID := addReadySession(reg, 1, time.Minute)
	progress := &fakeProgress{
		submitted: 1,
		readErrs:  []error{errors.New("redis down"), errors.New("redis down")},
	}
	coordinator := &fakeCoordinator{reg: reg, withReg: true}

	d := NewCompletionDetector(reg, progress, coordinator, detectorCfg(), logging.NewZapLogger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Watch(ctx, sessID)

	require.NoError(t, ctx.Err())
	assert.Len(t, coordinator.reasons(), 1)
}

func TestStatusReportsPredicateInputs(t *testing.T) {
	reg := registry.New()
	sessID := addReadySession(reg, 5, 10*time.Minute)
	progress := &fakeProgress{submitted: 3, pending: 2}

	cfg := detectorCfg()
	cfg.MinDwell = time.Minute
	d := NewCompletionDetector(reg, progress, &fakeCoordinator{}, cfg, logging.NewZapLogger())

	status, err := d.Status(context.Background(), sessID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.ParticipantsSubmitted)
	assert.Equal(t, 5, status.ExpectedParticipants)
	assert.Equal(t, 2, status.PendingSubmissions)
	assert.True(t, status.DwellElapsed)
	assert.False(t, status.ShutdownReady)
}
