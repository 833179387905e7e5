package middleware

import (
	"net/http"
	"strings"

	logpkg "github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/request"
	"go.uber.org/zap"
)

// Audit logs security-relevant outcomes: auth failures, rate limiting and key pool changes.
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			status := wrapped.statusCode
			ip := logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)
			path := logpkg.SanitizePath(r.URL.Path)

			switch {
			case status == http.StatusUnauthorized || status == http.StatusForbidden:
				logger.Warn("security_event",
					zap.Int("status_code", status),
					zap.String("method", r.Method),
					zap.String("path", path),
					zap.String("ip", ip),
				)
			case status == http.StatusTooManyRequests:
				logger.Warn("rate_limit_violation",
					zap.String("method", r.Method),
					zap.String("path", path),
					zap.String("ip", ip),
				)
			case r.Method != http.MethodGet && status < 300 && isAuditedPath(r.URL.Path):
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", path),
				}
				if op := request.OperatorFromContext(r); op != nil {
					fields = append(fields, zap.String("operator", op.Sub))
				}
				logger.Info("admin_change", fields...)
			}
		})
	}
}

func isAuditedPath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/background/keys") || path == "/api/v1/storefront/config"
}
