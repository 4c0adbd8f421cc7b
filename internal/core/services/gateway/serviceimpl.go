package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
	"gitlab.com/examgrid-2026.net/internal/core/services/notify"
	"gitlab.com/examgrid-2026.net/internal/core/services/registry"
	"gitlab.com/examgrid-2026.net/internal/domain"
	"gitlab.com/examgrid-2026.net/internal/static/errs"
)

var _ IGatewayService = &GatewayService{}

// GatewayService implements batch execution against the judging backend
type GatewayService struct {
	registry  *registry.Registry
	sessions  secondary.SessionRepository
	judge     secondary.JudgeBackend
	testCases secondary.TestCaseRepository
	progress  secondary.ProgressTracker
	notifier  notify.IFanOutService
	quota     *CallQuota
	cfg       *config.GatewayCfg
	logger    primary.Logger
}

// NewGatewayService creates a new batch execution gateway
func NewGatewayService(
	reg *registry.Registry,
	sessions secondary.SessionRepository,
	judge secondary.JudgeBackend,
	testCases secondary.TestCaseRepository,
	progress secondary.ProgressTracker,
	notifier notify.IFanOutService,
	quota *CallQuota,
	cfg *config.GatewayCfg,
	logger primary.Logger,
) *GatewayService {
	return &GatewayService{
		registry:  reg,
		sessions:  sessions,
		judge:     judge,
		testCases: testCases,
		progress:  progress,
		notifier:  notifier,
		quota:     quota,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunProbe runs a submission against the sample test cases
func (g *GatewayService) RunProbe(ctx context.Context, sessionID uuid.UUID, problemID string, unit domain.SourceUnit) (*domain.ExecutionBatch, error) {
	sess, err := g.readySession(sessionID)
	if err != nil {
		return nil, err
	}

	cases, err := g.testCases.GetSampleTestCases(ctx, problemID, g.cfg.ProbeCaseLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sample test cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, errs.ErrNoTestCases
	}

	limits := domain.ResourceLimits{
		CPUTimeSec:  g.cfg.ProbeCPUTimeSec,
		MemoryKB:    g.cfg.ProbeMemoryKB,
		WallTimeSec: g.cfg.ProbeCPUTimeSec * 2,
	}
	return g.execute(ctx, sess, problemID, buildUnits(unit, cases, limits))
}

// RunFinal runs a submission against the full test-case set and records the
// participant's completion for the session's progress tracking.
func (g *GatewayService) RunFinal(ctx context.Context, sessionID uuid.UUID, problemID string, unit domain.SourceUnit) (*domain.ExecutionBatch, error) {
	sess, err := g.readySession(sessionID)
	if err != nil {
		return nil, err
	}

	cases, err := g.testCases.GetAllTestCases(ctx, problemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load test cases: %w", err)
	}
	if len(cases) == 0 {
		return nil, errs.ErrNoTestCases
	}

	if err := g.progress.IncrPendingSubmissions(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to track pending submission: %w", err)
	}
	defer func() {
		if err := g.progress.DecrPendingSubmissions(context.Background(), sessionID); err != nil {
			g.logger.Error("Failed to release pending submission", "sessionID", sessionID, "error", err)
		}
	}()

	limits := domain.ResourceLimits{
		CPUTimeSec:  g.cfg.FinalCPUTimeSec,
		MemoryKB:    g.cfg.FinalMemoryKB,
		WallTimeSec: g.cfg.FinalCPUTimeSec * 2,
	}
	batch, err := g.execute(ctx, sess, problemID, buildUnits(unit, cases, limits))
	if err != nil {
		return batch, err
	}

	if err := g.progress.MarkParticipantSubmitted(ctx, sessionID, unit.ParticipantID); err != nil {
		g.logger.Error("Failed to mark participant submitted", "sessionID", sessionID, "participant", unit.ParticipantID, "error", err)
	}
	if updated, err := g.registry.Update(sessionID, func(s *domain.Session) {
		s.ParticipantsServed++
	}); err == nil {
		if err := g.sessions.SaveSession(ctx, updated); err != nil {
			g.logger.Error("Failed to persist participants served", "sessionID", sessionID, "error", err)
		}
	}

	return batch, nil
}

// QuotaUsage reports the shared call counter and its ceiling
func (g *GatewayService) QuotaUsage() (int, int) {
	return g.quota.Used(), g.quota.Ceiling()
}

func (g *GatewayService) readySession(sessionID uuid.UUID) (*domain.Session, error) {
	sess, err := g.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.State != domain.SessionStateReady {
		return nil, fmt.Errorf("%w: session %s is %s", errs.ErrSessionNotReady, sessionID, sess.State)
	}
	if sess.InstanceAddr == nil {
		return nil, fmt.Errorf("%w: session %s has no instance address", errs.ErrSessionNotReady, sessionID)
	}
	return sess, nil
}

// execute partitions units into backend-sized chunks, submits each chunk as
// one batch call, then polls until every unit is terminal. On failure the
// returned batch carries the results resolved before the failure.
func (g *GatewayService) execute(ctx context.Context, sess *domain.Session, problemID string, units []domain.ExecutionUnit) (*domain.ExecutionBatch, error) {
	batch := domain.NewExecutionBatch(sess.ID, problemID, units)
	addr := *sess.InstanceAddr

	handles := make([]string, 0, len(units))
	for start := 0; start < len(units); start += g.cfg.ChunkSize {
		if start > 0 {
			if err := sleepCtx(ctx, g.cfg.InterChunkDelay); err != nil {
				return batch, err
			}
		}
		end := start + g.cfg.ChunkSize
		if end > len(units) {
			end = len(units)
		}
		chunkHandles, err := g.submitChunk(ctx, sess.ID, addr, units[start:end])
		if err != nil {
			return batch, err
		}
		handles = append(handles, chunkHandles...)
	}

	results, err := g.monitor(ctx, addr, handles)
	batch.Results = results
	if err != nil {
		return batch, err
	}
	return batch, nil
}

// submitChunk submits one chunk, applying the quota and retry policy. Every
// attempt consumes one quota slot; quota exhaustion is a hard stop.
func (g *GatewayService) submitChunk(ctx context.Context, sessionID uuid.UUID, addr string, units []domain.ExecutionUnit) ([]string, error) {
	// The retry bands are counted independently: timeouts spent on one class
	// of failure never eat into another's allowance.
	var rateLimitAttempts, timeoutAttempts, transientAttempts int
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !g.quota.TryAcquire() {
			g.logger.Error("Judge call quota exhausted", "sessionID", sessionID, "ceiling", g.quota.Ceiling())
			event := domain.NewLifecycleEvent(sessionID, domain.EventQuotaExhausted, domain.SeverityError,
				"judge call quota exhausted", map[string]interface{}{"ceiling": g.quota.Ceiling()})
			if err := g.notifier.Notify(ctx, event); err != nil {
				g.logger.Error("Failed to notify quota exhaustion", "error", err)
			}
			return nil, errs.ErrQuotaExhausted
		}

		handles, err := g.judge.SubmitBatch(ctx, addr, units)
		if err == nil {
			return handles, nil
		}

		switch {
		case errors.Is(err, errs.ErrRateLimited):
			rateLimitAttempts++
			if rateLimitAttempts >= g.cfg.RateLimitMaxAttempts {
				return nil, fmt.Errorf("%w: %v", errs.ErrRateLimitExceeded, err)
			}
			delay := g.cfg.BackoffBase * time.Duration(rateLimitAttempts)
			g.logger.Warn("Judge rate limited, backing off", "sessionID", sessionID, "attempt", rateLimitAttempts, "delay", delay)
			if serr := sleepCtx(ctx, delay); serr != nil {
				return nil, serr
			}
		case isTimeout(err):
			timeoutAttempts++
			if timeoutAttempts > g.cfg.TimeoutMaxAttempts {
				return nil, fmt.Errorf("%w: %v", errs.ErrRequestTimeout, err)
			}
			g.logger.Warn("Judge request timed out, retrying", "sessionID", sessionID, "attempt", timeoutAttempts)
			if serr := sleepCtx(ctx, g.cfg.TimeoutRetryDelay); serr != nil {
				return nil, serr
			}
		case errors.Is(err, errs.ErrBackendUnavailable):
			transientAttempts++
			if transientAttempts > 1 {
				return nil, err
			}
			g.logger.Warn("Judge backend unavailable, retrying once", "sessionID", sessionID)
			if serr := sleepCtx(ctx, g.cfg.TimeoutRetryDelay); serr != nil {
				return nil, serr
			}
		default:
			return nil, err
		}
	}
}

// monitor polls all handles at a fixed interval until every unit reports a
// terminal status or the monitoring budget runs out. Results preserve
// submission order; on timeout only resolved entries are returned.
func (g *GatewayService) monitor(ctx context.Context, addr string, handles []string) ([]domain.UnitResult, error) {
	resolved := make([]*domain.UnitResult, len(handles))
	deadline := time.Now().Add(g.cfg.MonitorBudget)
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(g.cfg.PollParallel)
		var mu sync.Mutex
		for i, h := range handles {
			if resolved[i] != nil {
				continue
			}
			i, h := i, h
			eg.Go(func() error {
				res, err := g.judge.PollStatus(egCtx, addr, h)
				if err != nil {
					// Transient poll failures are tolerated until the
					// monitoring budget runs out.
					g.logger.Debug("Status poll failed", "handle", h, "error", err)
					return nil
				}
				if res.Status.Terminal() {
					mu.Lock()
					resolved[i] = res
					mu.Unlock()
				}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return compact(resolved), err
		}

		if allResolved(resolved) {
			out := make([]domain.UnitResult, len(resolved))
			for i, r := range resolved {
				out[i] = *r
			}
			return out, nil
		}

		if time.Now().After(deadline) {
			return compact(resolved), errs.ErrMonitoringTimeout
		}

		select {
		case <-ctx.Done():
			return compact(resolved), ctx.Err()
		case <-ticker.C:
		}
	}
}

func buildUnits(src domain.SourceUnit, cases []*domain.TestCase, limits domain.ResourceLimits) []domain.ExecutionUnit {
	units := make([]domain.ExecutionUnit, 0, len(cases))
	for _, tc := range cases {
		units = append(units, domain.ExecutionUnit{
			SourceCode:     src.SourceCode,
			Language:       src.Language,
			Stdin:          tc.Input,
			ExpectedOutput: tc.ExpectedOutput,
			Limits:         limits,
		})
	}
	return units
}

func allResolved(results []*domain.UnitResult) bool {
	for _, r := range results {
		if r == nil {
			return false
		}
	}
	return true
}

func compact(results []*domain.UnitResult) []domain.UnitResult {
	out := make([]domain.UnitResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
