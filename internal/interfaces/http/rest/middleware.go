package rest

import (
	"errors"
	"net/http"
	"time"

	"gridguardian-backend/internal/auth"
	apperrors "gridguardian-backend/internal/errors"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Logger creates a request logging middleware.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			)
		})
	}
}

// Authenticate rejects requests without a valid bearer token and stores the
// claims in the request context.
func Authenticate(validator *auth.Validator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.Validate(auth.TokenFromRequest(r))
			if err != nil {
				logger.Warn("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
					zap.String("remoteAddr", r.RemoteAddr),
				)
				respondError(w, r, logger, apperrors.Unauthorized(string(apperrors.CodeUnauthorized), authMessage(err)).
					WithCause(err).
					Build())
				return
			}

			logger.Debug("Request authenticated",
				zap.String("subject", claims.Subject),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing authentication token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid token signature"
	default:
		return "invalid token"
	}
}
