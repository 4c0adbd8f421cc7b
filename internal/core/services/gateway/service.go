package gateway

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// IGatewayService submits candidate code to the judging backend in batches.
// Both operations share the same chunking, quota, retry and monitoring
// machinery and differ only in test-case volume and per-unit limits.
type IGatewayService interface {
	// RunProbe runs a submission against the problem's sample test cases,
	// used for interactive feedback during the active window.
	RunProbe(ctx context.Context, sessionID uuid.UUID, problemID string, unit domain.SourceUnit) (*domain.ExecutionBatch, error)

	// RunFinal runs a submission against the complete test-case set, used
	// for end-of-session grading.
	RunFinal(ctx context.Context, sessionID uuid.UUID, problemID string, unit domain.SourceUnit) (*domain.ExecutionBatch, error)

	// QuotaUsage reports the shared call counter and its ceiling.
	QuotaUsage() (used, ceiling int)
}
