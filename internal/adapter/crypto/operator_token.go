// package crypto contains the operator-token implementation
package crypto

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gitlab.com/examgrid-2026.net/internal/config"
	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
)

var _ primary.OperatorTokenService = (*OperatorTokenServiceImpl)(nil)

var ErrInvalidToken = fmt.Errorf("invalid token")

// OperatorTokenServiceImpl issues HMAC-signed tokens that identify operators
// on the shutdown routes.
type OperatorTokenServiceImpl struct {
	secret []byte
}

func NewOperatorTokenService(cfg *config.OperatorCfg) primary.OperatorTokenService {
	return &OperatorTokenServiceImpl{
		secret: []byte(cfg.Secret),
	}
}

func (s *OperatorTokenServiceImpl) GenerateToken(ctx context.Context, operator string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": operator,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

func (s *OperatorTokenServiceImpl) VerifyToken(ctx context.Context, token string) (bool, error) {
	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return false, err
	}
	if !parsedToken.Valid {
		return false, ErrInvalidToken
	}
	return true, nil
}
