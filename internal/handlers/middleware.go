package handlers

import (
	"net/http"
	"strings"

	"gitlab.com/examgrid-2026.net/internal/core/ports/primary"
)

// MiddlewareProvider guards operator-only routes with HMAC tokens.
type MiddlewareProvider struct {
	tokens primary.OperatorTokenService
}

func New(tokens primary.OperatorTokenService) *MiddlewareProvider {
	return &MiddlewareProvider{
		tokens: tokens,
	}
}

// OperatorMiddleware rejects requests without a valid operator token.
func (m *MiddlewareProvider) OperatorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		valid, err := m.tokens.VerifyToken(r.Context(), tokenString)
		if err != nil || !valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
