// package progressport tracks live session progress in Redis
package progressport

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
	"gitlab.com/examgrid-2026.net/internal/core/ports/secondary"
)

const (
	participantsKeyPrefix = "session:participants:"
	pendingKeyPrefix      = "session:pending:"
	progressExpiration    = 24 * time.Hour
)

var _ secondary.ProgressTracker = &ProgressTracker{}

// ProgressTracker implements the ProgressTracker port with Redis. The
// participant set and pending counter are the shared source of truth for
// the completion detector and the shutdown drain.
type ProgressTracker struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewProgressTracker creates a new Redis progress tracker
func NewProgressTracker(redisClient *redis.Client, logger primary.Logger) *ProgressTracker {
	return &ProgressTracker{
		redisClient: redisClient,
		logger:      logger,
	}
}

// MarkParticipantSubmitted records a participant's completed final run.
// The set membership makes repeat submissions idempotent.
func (t *ProgressTracker) MarkParticipantSubmitted(ctx context.Context, sessionID uuid.UUID, participantID string) error {
	key := participantsKey(sessionID)
	if err := t.redisClient.SAdd(ctx, key, participantID).Err(); err != nil {
		t.logger.Error("Failed to mark participant submitted", "sessionID", sessionID, "error", err)
		return fmt.Errorf("failed to mark participant submitted: %w", err)
	}
	if err := t.redisClient.Expire(ctx, key, progressExpiration).Err(); err != nil {
		t.logger.Warn("Failed to set participants key expiration", "sessionID", sessionID, "error", err)
	}
	return nil
}

// ParticipantsSubmitted returns the count of distinct submitted participants
func (t *ProgressTracker) ParticipantsSubmitted(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := t.redisClient.SCard(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count submitted participants: %w", err)
	}
	return int(n), nil
}

// IncrPendingSubmissions marks one submission as in flight
func (t *ProgressTracker) IncrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error {
	key := pendingKey(sessionID)
	if err := t.redisClient.Incr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to increment pending submissions: %w", err)
	}
	if err := t.redisClient.Expire(ctx, key, progressExpiration).Err(); err != nil {
		t.logger.Warn("Failed to set pending key expiration", "sessionID", sessionID, "error", err)
	}
	return nil
}

// DecrPendingSubmissions marks one in-flight submission as resolved
func (t *ProgressTracker) DecrPendingSubmissions(ctx context.Context, sessionID uuid.UUID) error {
	if err := t.redisClient.Decr(ctx, pendingKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to decrement pending submissions: %w", err)
	}
	return nil
}

// PendingSubmissions returns the number of in-flight submissions. A counter
// that went negative through crash recovery reads as zero.
func (t *ProgressTracker) PendingSubmissions(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n, err := t.redisClient.Get(ctx, pendingKey(sessionID)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read pending submissions: %w", err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// ClearSession drops all progress keys for a terminated session
func (t *ProgressTracker) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := t.redisClient.Del(ctx, participantsKey(sessionID), pendingKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session progress: %w", err)
	}
	return nil
}

func participantsKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s%s", participantsKeyPrefix, sessionID)
}

func pendingKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("%s%s", pendingKeyPrefix, sessionID)
}
