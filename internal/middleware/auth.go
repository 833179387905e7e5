package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/resale-hub/internal/models"
	"github.com/benvon/resale-hub/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier is implemented by oidc.Verifier
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.Operator, error)
}

// Auth requires a valid operator bearer token and puts the operator in the request context.
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthorized", "Invalid Authorization header format", logger)
				return
			}

			op, err := verifier.Verify(r.Context(), strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondErrorJSON(w, r, http.StatusUnauthorized, "unauthorized", "Invalid or expired token", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithOperator(r.Context(), op)))
		})
	}
}
