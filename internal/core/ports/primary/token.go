package primary

import (
	"context"
	"time"
)

// OperatorTokenService issues and verifies the HMAC tokens that guard the
// manual and emergency shutdown routes.
type OperatorTokenService interface {
	GenerateToken(ctx context.Context, operator string, ttl time.Duration) (string, error)
	VerifyToken(ctx context.Context, token string) (bool, error)
}
