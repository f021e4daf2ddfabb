package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = iota

type MiddlewareProvider struct {
	verifier primary.TokenVerifier
	logger   primary.Logger
}

// New builds the middleware set. A nil verifier turns the bearer check off.
func New(verifier primary.TokenVerifier, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		verifier: verifier,
		logger:   logger,
	}
}

func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	if m.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ResponseError(w, "authorization header missing", http.StatusUnauthorized)
			return
		}

		// Extract token from "Bearer <token>"
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		ok, err := m.verifier.VerifyTokenHMAC(r.Context(), tokenString)
		if err != nil || !ok {
			m.logger.Warn("Rejected token", "requestId", RequestID(r.Context()), "error", err)
			ResponseError(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware reuses the caller's X-Request-ID or assigns a new one.
func (m *MiddlewareProvider) RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (m *MiddlewareProvider) AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snoop := httpsnoop.CaptureMetrics(next, w, r)
		args := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", snoop.Code,
			"bytes", snoop.Written,
			"duration", snoop.Duration.String(),
			"requestId", RequestID(r.Context()),
		}
		if snoop.Code >= http.StatusInternalServerError {
			m.logger.Error("HTTP request", args...)
			return
		}
		m.logger.Info("HTTP request", args...)
	})
}

// RequestID returns the id assigned by RequestIDMiddleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
