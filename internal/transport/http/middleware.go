package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/eventflow/platform/internal/auth"
)

// RequestLogger logs basic request details and latency.
func RequestLogger(next http.Handler, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Printf(
			"request method=%s path=%s status=%d duration=%s",
			r.Method,
			r.URL.Path,
			rec.status,
			time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// TokenVerifier turns a raw bearer credential into a verified identity.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (auth.Identity, error)
}

// Authenticate rejects requests without a valid bearer credential and
// stores the verified identity in the request context.
func Authenticate(verifier TokenVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		id, err := verifier.Verify(r.Context(), raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireRoles lets the request through when the authenticated identity
// holds at least one of roles. It must run inside Authenticate.
func RequireRoles(next http.Handler, roles ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMissingToken, "no token provided")
			return
		}
		if err := auth.RequireAnyRole(id, roles...); err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the caller set by Authenticate.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
