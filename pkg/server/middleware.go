package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Layr-Labs/near-signer-go/pkg/auth"
	"github.com/Layr-Labs/near-signer-go/pkg/types"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// unauthenticated paths bypass the limiter and token check
func isInfraPath(path string) bool {
	return path == "/healthz" || path == "/metrics"
}

func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))

		s.metrics.ObserveRequest(metricsPath(r.URL.Path), rec.status)
		s.logger.Sugar().Debugw("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isInfraPath(r.URL.Path) && !s.limiter.Allow() {
			s.metrics.IncRateLimited()
			w.Header().Set("Retry-After", "1")
			writeErrorResponse(w, http.StatusTooManyRequests, types.ErrorCodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requiredScope maps a route onto the scope a scoped token must carry
func requiredScope(path string) string {
	switch {
	case strings.HasPrefix(path, "/sign/"):
		return auth.ScopeSign
	case strings.HasPrefix(path, "/verify/"):
		return auth.ScopeVerify
	default:
		return auth.ScopeRead
	}
}

// withAuth requires a bearer token when a verifier is configured. Tokens that carry
// no scopes are accepted on every route.
func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.verifier == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isInfraPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.metrics.IncAuthFailures()
			w.Header().Set("WWW-Authenticate", `Bearer realm="near-signer"`)
			writeErrorResponse(w, http.StatusUnauthorized, types.ErrorCodeUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.verifier.VerifyToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			s.metrics.IncAuthFailures()
			s.logger.Sugar().Debugw("Rejected bearer token",
				"path", r.URL.Path,
				"request_id", requestIDFromContext(r.Context()),
				"error", err,
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="near-signer", error="invalid_token"`)
			writeErrorResponse(w, http.StatusUnauthorized, types.ErrorCodeUnauthorized, "invalid bearer token")
			return
		}

		if scope := requiredScope(r.URL.Path); len(claims.Scopes) > 0 && !claims.HasScope(scope) {
			s.metrics.IncAuthFailures()
			writeErrorResponse(w, http.StatusForbidden, types.ErrorCodeForbidden, "token lacks scope "+scope)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}
